package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/repofetch/repofetch/internal/errors"
)

func TestValidateFields_RecognizedSet(t *testing.T) {
	tree := []FieldRequest{
		{Name: FieldName},
		{Name: FieldFullName},
		{Name: FieldDescription},
		{Name: FieldStarCount},
		{Name: FieldCreatedAt},
		{Name: FieldUpdatedAt},
		{Name: FieldLanguages},
		{Name: FieldMergeRequests, Children: []FieldRequest{
			{Name: MRFieldAuthorName},
			{Name: MRFieldCreatedAt},
			{Name: MRFieldDescription},
			{Name: MRFieldTitle},
			{Name: MRFieldDiffStats},
		}},
	}
	assert.NoError(t, ValidateFields(tree))
}

func TestValidateFields_UnknownField(t *testing.T) {
	err := ValidateFields([]FieldRequest{{Name: "nonexistentField"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "nonexistentField", apperrors.GetField(err))
}

func TestValidateFields_NestingErrors(t *testing.T) {
	tests := []struct {
		name string
		tree []FieldRequest
	}{
		{
			name: "children on a leaf field",
			tree: []FieldRequest{{Name: FieldName, Children: []FieldRequest{{Name: "x"}}}},
		},
		{
			name: "composite without children",
			tree: []FieldRequest{{Name: FieldMergeRequests}},
		},
		{
			name: "unknown subfield",
			tree: []FieldRequest{{Name: FieldMergeRequests, Children: []FieldRequest{{Name: "starCount"}}}},
		},
		{
			name: "subfield nested further",
			tree: []FieldRequest{{Name: FieldMergeRequests, Children: []FieldRequest{
				{Name: MRFieldTitle, Children: []FieldRequest{{Name: "x"}}},
			}}},
		},
		{
			name: "duplicate top-level field",
			tree: []FieldRequest{{Name: FieldName}, {Name: FieldName}},
		},
		{
			name: "empty tree",
			tree: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFields(tt.tree)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestFlattenFields(t *testing.T) {
	tree := []FieldRequest{
		{Name: FieldName},
		{Name: FieldMergeRequests, Children: []FieldRequest{
			{Name: MRFieldTitle},
			{Name: MRFieldAuthorName},
		}},
		{Name: FieldStarCount},
	}
	assert.Equal(t,
		[]string{"name", "mergeRequests.title", "mergeRequests.authorName", "starCount"},
		FlattenFields(tree))
}

func TestSplitFieldPath(t *testing.T) {
	top, rest := SplitFieldPath("mergeRequests.title")
	assert.Equal(t, "mergeRequests", top)
	assert.Equal(t, "title", rest)

	top, rest = SplitFieldPath("name")
	assert.Equal(t, "name", top)
	assert.Empty(t, rest)
}
