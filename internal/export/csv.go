// Package export writes job results and plugin artifacts as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Exporter implements core.ExportSink over a directory of served files.
type Exporter struct {
	// Dir is where CSV files are written.
	Dir string
	// BaseURL prefixes served-file URLs (non-local export).
	BaseURL string
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(dir, baseURL string) *Exporter {
	return &Exporter{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// WriteCSV writes one CSV file and returns its local path or served URL.
func (e *Exporter) WriteCSV(name string, header []string, rows [][]string, local bool) (string, error) {
	filename := sanitizeName(name) + ".csv"
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "creating export directory")
	}
	path := filepath.Join(e.Dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "creating export file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "writing csv header")
	}
	if err := w.WriteAll(rows); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "writing csv rows")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "flushing csv")
	}

	if local {
		return path, nil
	}
	return e.BaseURL + "/" + filename, nil
}

// WriteJobData exports a completed job's repository records. The column set
// follows the job's requested fields so "not requested" never shows up as an
// empty column.
func (e *Exporter) WriteJobData(job *model.Job, local bool) (string, error) {
	if job.State != model.StateDone {
		return "", apperrors.Newf(apperrors.ErrCodeJobNotReady, "job %s is %s, only DONE jobs can be exported", job.ID, job.State)
	}
	if job.Mode != model.ModeAssistant {
		return "", apperrors.Newf(apperrors.ErrCodeJobNotReady, "job %s has no tabular data to export", job.ID)
	}

	header, rows := jobTable(job)
	return e.WriteCSV(job.Name+"_"+job.ID, header, rows, local)
}

func jobTable(job *model.Job) ([]string, [][]string) {
	fields := model.FlattenFields(job.Fields)
	var header []string
	for _, f := range fields {
		top, _ := model.SplitFieldPath(f)
		// merge request subcolumns collapse into one summary column
		if top == model.FieldMergeRequests {
			if len(header) == 0 || header[len(header)-1] != model.FieldMergeRequests {
				header = append(header, model.FieldMergeRequests)
			}
			continue
		}
		header = append(header, f)
	}

	rows := make([][]string, 0, len(job.Repos))
	for i := range job.Repos {
		repo := &job.Repos[i]
		row := make([]string, 0, len(header))
		for _, col := range header {
			row = append(row, repoColumn(repo, col))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func repoColumn(repo *model.RepoData, col string) string {
	switch col {
	case model.FieldName:
		return strOrEmpty(repo.Name)
	case model.FieldFullName:
		return strOrEmpty(repo.FullName)
	case model.FieldDescription:
		return strOrEmpty(repo.Description)
	case model.FieldStarCount:
		if repo.StarCount == nil {
			return ""
		}
		return strconv.Itoa(*repo.StarCount)
	case model.FieldCreatedAt:
		return timeOrEmpty(repo.CreatedAt)
	case model.FieldUpdatedAt:
		return timeOrEmpty(repo.UpdatedAt)
	case model.FieldLanguages:
		return strings.Join(repo.Languages, ";")
	case model.FieldMergeRequests:
		return fmt.Sprintf("%d merge requests", len(repo.MergeRequests))
	default:
		return ""
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// sanitizeName keeps export filenames shell and URL safe.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
