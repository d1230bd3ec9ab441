package fetch

import (
	"fmt"
	"strings"

	"github.com/repofetch/repofetch/internal/domain/model"
)

// fieldMapping binds one canonical field to a platform schema: the selection
// fragment to put into a GraphQL query (empty for REST platforms) and the
// JMESPath expression that pulls the value back out of the response node.
type fieldMapping struct {
	selection string
	expr      string
}

// platformMapping is the full canonical-to-platform translation table of one
// adapter. mrNode is the response key holding the merge request connection.
type platformMapping struct {
	repo   map[string]fieldMapping
	mr     map[string]fieldMapping
	mrNode string
}

// splitFieldPaths separates flattened dotted paths into top-level repository
// fields and merge request subfields, preserving order.
func splitFieldPaths(fields []string) (repoFields, mrFields []string) {
	for _, f := range fields {
		top, rest := model.SplitFieldPath(f)
		if top == model.FieldMergeRequests {
			mrFields = append(mrFields, rest)
			continue
		}
		repoFields = append(repoFields, top)
	}
	return repoFields, mrFields
}

// buildSelections maps canonical field names to the platform's GraphQL
// selection fragments. Fields without a mapping are skipped; the platform
// simply does not expose them.
func buildSelections(fields []string, mapping map[string]fieldMapping) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		m, ok := mapping[f]
		if !ok || m.selection == "" {
			continue
		}
		out = append(out, m.selection)
	}
	return out
}

// buildMergeRequestsSelection renders the merge request connection block for
// the requested subfields, capped at maxMRs entries.
func buildMergeRequestsSelection(subfields []string, maxMRs int, pm platformMapping) string {
	parts := buildSelections(subfields, pm.mr)
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("%s(first: %d) { nodes { %s } }", pm.mrNode, maxMRs, strings.Join(parts, " "))
}

// parseRepoNode extracts exactly the requested canonical fields from one
// decoded platform node. Missing or malformed values degrade the field to
// unset, never fail the record.
func parseRepoNode(node any, repoFields, mrFields []string, maxMRs int, pm platformMapping) model.RepoData {
	var repo model.RepoData
	for _, f := range repoFields {
		m, ok := pm.repo[f]
		if !ok {
			continue
		}
		switch f {
		case model.FieldName:
			repo.Name = extractString(m.expr, node)
		case model.FieldFullName:
			repo.FullName = extractString(m.expr, node)
		case model.FieldDescription:
			repo.Description = extractString(m.expr, node)
		case model.FieldStarCount:
			repo.StarCount = extractInt(m.expr, node)
		case model.FieldCreatedAt:
			repo.CreatedAt = extractTime(m.expr, node)
		case model.FieldUpdatedAt:
			repo.UpdatedAt = extractTime(m.expr, node)
		case model.FieldLanguages:
			repo.Languages = extractLanguages(m.expr, node)
		}
	}
	if len(mrFields) > 0 {
		nodes, _ := extractValue(pm.mrNode+".nodes", node).([]any)
		repo.MergeRequests = parseMergeRequests(nodes, mrFields, maxMRs, pm)
	}
	return repo
}

// extractLanguages accepts both shapes the platforms use: a list of names and
// a single primary-language string.
func extractLanguages(expr string, node any) []string {
	if list := extractStringList(expr, node); list != nil {
		return list
	}
	if s := extractString(expr, node); s != nil {
		return []string{*s}
	}
	return nil
}

// parseMergeRequests extracts the requested subfields from raw merge request
// nodes, preserving platform order and the maxMRs cap.
func parseMergeRequests(nodes []any, mrFields []string, maxMRs int, pm platformMapping) []model.MergeRequestData {
	if maxMRs >= 0 && len(nodes) > maxMRs {
		nodes = nodes[:maxMRs]
	}
	out := make([]model.MergeRequestData, 0, len(nodes))
	for _, node := range nodes {
		var mr model.MergeRequestData
		for _, f := range mrFields {
			m, ok := pm.mr[f]
			if !ok {
				continue
			}
			switch f {
			case model.MRFieldAuthorName:
				mr.AuthorName = extractString(m.expr, node)
			case model.MRFieldCreatedAt:
				mr.CreatedAt = extractTime(m.expr, node)
			case model.MRFieldDescription:
				mr.Description = extractString(m.expr, node)
			case model.MRFieldTitle:
				mr.Title = extractString(m.expr, node)
			case model.MRFieldDiffStats:
				mr.DiffSize = extractInt(m.expr, node)
			}
		}
		out = append(out, mr)
	}
	return out
}
