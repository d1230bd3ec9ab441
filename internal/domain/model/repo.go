package model

import "time"

// RepoData is the canonical, platform-independent repository record. Only
// fields present in the originating field request are populated; absent
// fields stay nil so callers can distinguish "not requested" from "empty on
// the platform".
type RepoData struct {
	Name          *string            `json:"name,omitempty"`
	FullName      *string            `json:"full_name,omitempty"`
	Description   *string            `json:"description,omitempty"`
	StarCount     *int               `json:"star_count,omitempty"`
	CreatedAt     *time.Time         `json:"created_at,omitempty"`
	UpdatedAt     *time.Time         `json:"updated_at,omitempty"`
	Languages     []string           `json:"languages,omitempty"`
	MergeRequests []MergeRequestData `json:"merge_requests,omitempty"`
}

// MergeRequestData is one merge/pull request attached to a repository record.
// DiffSize is the summed added and deleted line count where the platform
// exposes diff statistics.
type MergeRequestData struct {
	AuthorName  *string    `json:"author_name,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	Description *string    `json:"description,omitempty"`
	Title       *string    `json:"title,omitempty"`
	DiffSize    *int       `json:"diff_size,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *RepoData) Clone() *RepoData {
	out := *r
	out.Name = cloneString(r.Name)
	out.FullName = cloneString(r.FullName)
	out.Description = cloneString(r.Description)
	out.StarCount = cloneInt(r.StarCount)
	out.CreatedAt = cloneTime(r.CreatedAt)
	out.UpdatedAt = cloneTime(r.UpdatedAt)
	if r.Languages != nil {
		out.Languages = make([]string, len(r.Languages))
		copy(out.Languages, r.Languages)
	}
	if r.MergeRequests != nil {
		out.MergeRequests = make([]MergeRequestData, len(r.MergeRequests))
		for i, mr := range r.MergeRequests {
			out.MergeRequests[i] = MergeRequestData{
				AuthorName:  cloneString(mr.AuthorName),
				CreatedAt:   cloneTime(mr.CreatedAt),
				Description: cloneString(mr.Description),
				Title:       cloneString(mr.Title),
				DiffSize:    cloneInt(mr.DiffSize),
			}
		}
	}
	return &out
}

// PluginURL points to a file produced by a plugin run.
type PluginURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PluginResult is the outcome of a plugin execution.
type PluginResult struct {
	URLs    []PluginURL `json:"urls"`
	Message string      `json:"message,omitempty"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
