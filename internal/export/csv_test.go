package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

func TestExporter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(dir, "http://files.local/exports/")

	path, err := exp.WriteCSV("lang stats!", []string{"language", "count"},
		[][]string{{"Go", "3"}, {"Rust", "1"}}, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lang_stats_.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "language,count", lines[0])
	assert.Equal(t, "Go,3", lines[1])
}

func TestExporter_WriteCSVServedURL(t *testing.T) {
	exp := NewExporter(t.TempDir(), "http://files.local/exports")
	url, err := exp.WriteCSV("metrics", []string{"a"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/exports/metrics.csv", url)
}

func TestExporter_WriteJobData(t *testing.T) {
	exp := NewExporter(t.TempDir(), "http://files.local")

	name := "alpha"
	stars := 12
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	job := model.NewJob(&model.CreateJobRequest{
		Name:     "report",
		Platform: model.PlatformGitHub,
		Mode:     model.ModeAssistant,
		Settings: &model.FetchSettings{RepoCount: 1, MaxMRs: 1},
		Fields: []model.FieldRequest{
			{Name: model.FieldName},
			{Name: model.FieldStarCount},
			{Name: model.FieldCreatedAt},
			{Name: model.FieldLanguages},
			{Name: model.FieldMergeRequests, Children: []model.FieldRequest{{Name: model.MRFieldTitle}}},
		},
	})
	job.State = model.StateDone
	title := "Fix build"
	job.Repos = []model.RepoData{{
		Name:          &name,
		StarCount:     &stars,
		CreatedAt:     &created,
		Languages:     []string{"Go", "Shell"},
		MergeRequests: []model.MergeRequestData{{Title: &title}},
	}}

	path, err := exp.WriteJobData(job, true)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "name,starCount,createdAt,languages,mergeRequests", lines[0])
	assert.Equal(t, "alpha,12,2024-01-02T03:04:05Z,Go;Shell,1 merge requests", lines[1])
}

func TestExporter_WriteJobDataRequiresDone(t *testing.T) {
	exp := NewExporter(t.TempDir(), "")
	job := model.NewJob(&model.CreateJobRequest{
		Name:     "report",
		Platform: model.PlatformGitHub,
		Mode:     model.ModeAssistant,
		Settings: &model.FetchSettings{RepoCount: 1},
		Fields:   []model.FieldRequest{{Name: model.FieldName}},
	})

	_, err := exp.WriteJobData(job, true)
	require.Error(t, err)
	assert.True(t, apperrors.IsJobNotReady(err))
}
