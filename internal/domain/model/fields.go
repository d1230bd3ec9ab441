package model

import (
	"strings"

	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// FieldRequest is one node of a requested field tree. Leaf fields name a
// scalar repository attribute; composite fields (currently only
// "mergeRequests") carry child requests for the sub-entity.
type FieldRequest struct {
	Name     string         `json:"name"`
	Children []FieldRequest `json:"children,omitempty"`
}

// Recognized top-level field identifiers.
const (
	FieldName          = "name"
	FieldFullName      = "fullName"
	FieldDescription   = "description"
	FieldStarCount     = "starCount"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldLanguages     = "languages"
	FieldMergeRequests = "mergeRequests"
)

// Recognized merge request child field identifiers.
const (
	MRFieldAuthorName  = "authorName"
	MRFieldCreatedAt   = "createdAt"
	MRFieldDescription = "description"
	MRFieldTitle       = "title"
	MRFieldDiffStats   = "diffStats"
)

type fieldSpec struct {
	composite bool
	children  map[string]struct{}
}

// recognizedFields is the fixed registry every field tree is validated
// against. Adapters walk the same registry names, so constructed queries and
// extracted output stay in lock-step.
var recognizedFields = map[string]fieldSpec{
	FieldName:        {},
	FieldFullName:    {},
	FieldDescription: {},
	FieldStarCount:   {},
	FieldCreatedAt:   {},
	FieldUpdatedAt:   {},
	FieldLanguages:   {},
	FieldMergeRequests: {
		composite: true,
		children: map[string]struct{}{
			MRFieldAuthorName:  {},
			MRFieldCreatedAt:   {},
			MRFieldDescription: {},
			MRFieldTitle:       {},
			MRFieldDiffStats:   {},
		},
	},
}

// ValidateFields checks every node of a requested field tree against the
// recognized field registry. Unknown names and malformed nesting are
// validation errors, never silent no-ops.
func ValidateFields(tree []FieldRequest) error {
	if len(tree) == 0 {
		return apperrors.Validation("at least one field must be requested")
	}
	seen := make(map[string]struct{}, len(tree))
	for _, req := range tree {
		spec, ok := recognizedFields[req.Name]
		if !ok {
			return apperrors.ValidationField(req.Name, "unrecognized field: "+req.Name)
		}
		if _, dup := seen[req.Name]; dup {
			return apperrors.ValidationField(req.Name, "duplicate field: "+req.Name)
		}
		seen[req.Name] = struct{}{}

		if !spec.composite {
			if len(req.Children) > 0 {
				return apperrors.ValidationField(req.Name, "field does not accept subfields: "+req.Name)
			}
			continue
		}
		if len(req.Children) == 0 {
			return apperrors.ValidationField(req.Name, "composite field requires at least one subfield: "+req.Name)
		}
		childSeen := make(map[string]struct{}, len(req.Children))
		for _, child := range req.Children {
			if _, ok := spec.children[child.Name]; !ok {
				return apperrors.ValidationField(child.Name,
					"unrecognized subfield of "+req.Name+": "+child.Name)
			}
			if len(child.Children) > 0 {
				return apperrors.ValidationField(child.Name, "subfields cannot be nested further: "+child.Name)
			}
			if _, dup := childSeen[child.Name]; dup {
				return apperrors.ValidationField(child.Name, "duplicate subfield: "+child.Name)
			}
			childSeen[child.Name] = struct{}{}
		}
	}
	return nil
}

// FlattenFields converts a validated field tree into the dotted path form
// consumed by platform adapters ("name", "mergeRequests.title", ...),
// preserving request order.
func FlattenFields(tree []FieldRequest) []string {
	paths := make([]string, 0, len(tree))
	for _, req := range tree {
		if len(req.Children) == 0 {
			paths = append(paths, req.Name)
			continue
		}
		for _, child := range req.Children {
			paths = append(paths, req.Name+"."+child.Name)
		}
	}
	return paths
}

// SplitFieldPath splits a dotted field path into its top-level name and
// remainder (empty for leaf paths).
func SplitFieldPath(path string) (string, string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func cloneFields(tree []FieldRequest) []FieldRequest {
	if tree == nil {
		return nil
	}
	out := make([]FieldRequest, len(tree))
	for i, req := range tree {
		out[i] = FieldRequest{Name: req.Name, Children: cloneFields(req.Children)}
	}
	return out
}
