package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// gitlabPageSize caps the per-request page size at GitLab's maximum.
const gitlabPageSize = 100

var gitlabMapping = platformMapping{
	repo: map[string]fieldMapping{
		model.FieldName:        {selection: "name", expr: "name"},
		model.FieldFullName:    {selection: "fullPath", expr: "fullPath"},
		model.FieldDescription: {selection: "description", expr: "description"},
		model.FieldStarCount:   {selection: "starCount", expr: "starCount"},
		model.FieldCreatedAt:   {selection: "createdAt", expr: "createdAt"},
		model.FieldUpdatedAt:   {selection: "updatedAt", expr: "updatedAt"},
		model.FieldLanguages:   {selection: "languages { name }", expr: "languages[].name"},
	},
	mr: map[string]fieldMapping{
		model.MRFieldAuthorName:  {selection: "author { name }", expr: "author.name"},
		model.MRFieldCreatedAt:   {selection: "createdAt", expr: "createdAt"},
		model.MRFieldDescription: {selection: "description", expr: "description"},
		model.MRFieldTitle:       {selection: "title", expr: "title"},
		model.MRFieldDiffStats: {
			selection: "diffStatsSummary { additions deletions }",
			expr:      "sum([diffStatsSummary.additions, diffStatsSummary.deletions])",
		},
	},
	mrNode: "mergeRequests",
}

// GitLabFetcher fetches projects through GitLab's GraphQL API with flat
// search filters and cursor pagination.
type GitLabFetcher struct {
	client *GraphQLClient
}

// NewGitLabFetcher builds a GitLab adapter against endpoint.
func NewGitLabFetcher(endpoint string, doer HTTPDoer, pool *TokenPool, policy RetryPolicy) *GitLabFetcher {
	return &GitLabFetcher{client: NewGraphQLClient(endpoint, doer, pool, policy)}
}

// Fetch implements core.Fetcher.
func (f *GitLabFetcher) Fetch(ctx context.Context, settings model.FetchSettings, fields []string, log core.JobLogger) ([]model.RepoData, error) {
	log(model.LogInfo, "fetching repositories from GitLab")
	start := time.Now()

	repoFields, mrFields := splitFieldPaths(fields)
	progress := newProgressTracker(settings.RepoCount, log)

	var collected []any
	cursor := ""

	for len(collected) < settings.RepoCount {
		query := f.buildQuery(settings, fields, cursor)
		log(model.LogDebug, "graphql query: "+query)

		data, err := f.client.Execute(ctx, query, nil, log)
		if err != nil {
			return nil, err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed projects response")
		}
		nodes, ok := extractValue("projects.nodes", doc).([]any)
		if !ok {
			return nil, apperrors.Internal("projects response missing nodes")
		}
		if len(nodes) == 0 {
			log(model.LogWarning, "no more repositories found")
			break
		}

		collected = append(collected, nodes...)
		progress.Advance(len(nodes))

		next, _ := extractValue("projects.pageInfo.hasNextPage", doc).(bool)
		if !next {
			break
		}
		cursor, _ = extractValue("projects.pageInfo.endCursor", doc).(string)
	}

	if len(collected) == 0 {
		log(model.LogError, "no repositories found")
		return nil, apperrors.NotFound("no repositories matched the search filters")
	}
	if len(collected) > settings.RepoCount {
		collected = collected[:settings.RepoCount]
	}

	repos := make([]model.RepoData, 0, len(collected))
	for _, node := range collected {
		repos = append(repos, parseRepoNode(node, repoFields, mrFields, settings.MaxMRs, gitlabMapping))
	}

	log(model.LogInfo, fmt.Sprintf("fetched and parsed %d repositories in %.2f seconds",
		len(repos), time.Since(start).Seconds()))
	return repos, nil
}

// FetchRaw implements core.Fetcher by forwarding the query verbatim.
func (f *GitLabFetcher) FetchRaw(ctx context.Context, rawQuery string, log core.JobLogger) (json.RawMessage, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, apperrors.Validation("raw query must not be empty")
	}
	log(model.LogInfo, "executing raw query on GitLab")
	start := time.Now()

	body, err := f.client.ExecuteRaw(ctx, rawQuery, log)
	if err != nil {
		log(model.LogError, "raw query failed: "+err.Error())
		return nil, err
	}
	log(model.LogInfo, fmt.Sprintf("raw query executed in %.2f seconds", time.Since(start).Seconds()))
	log(model.LogDebug, "raw query response: "+truncate(string(body), 2000))
	return body, nil
}

// buildQuery renders one projects query page for the requested fields.
func (f *GitLabFetcher) buildQuery(settings model.FetchSettings, fields []string, cursor string) string {
	repoFields, mrFields := splitFieldPaths(fields)
	selections := buildSelections(repoFields, gitlabMapping.repo)
	if mrSel := buildMergeRequestsSelection(mrFields, settings.MaxMRs, gitlabMapping); mrSel != "" {
		selections = append(selections, mrSel)
	}

	args := []string{fmt.Sprintf("first: %d", min(settings.RepoCount, gitlabPageSize))}
	if cursor != "" {
		args = append(args, fmt.Sprintf(`after: "%s"`, cursor))
	}
	if settings.SearchTerm != "" {
		args = append(args, fmt.Sprintf(`search: "%s"`, settings.SearchTerm))
	}
	if settings.ProgrammingLanguage != "" {
		args = append(args, fmt.Sprintf(`programmingLanguageName: "%s"`, settings.ProgrammingLanguage))
	}

	return fmt.Sprintf(`{
  projects(%s) {
    nodes { %s }
    pageInfo { hasNextPage endCursor }
  }
}`, strings.Join(args, ", "), strings.Join(selections, " "))
}
