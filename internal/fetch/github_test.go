package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// logRecorder captures job log lines for assertions.
type logRecorder struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func (r *logRecorder) Log(level model.LogLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, model.LogEntry{Level: level, Message: message})
}

func (r *logRecorder) Messages(level model.LogLevel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

const githubSearchResponse = `{
  "data": {
    "search": {
      "edges": [
        {"node": {
          "name": "alpha",
          "nameWithOwner": "octo/alpha",
          "stargazerCount": 120,
          "createdAt": "2021-06-01T10:00:00Z",
          "primaryLanguage": {"name": "Go"},
          "pullRequests": {"nodes": [
            {"title": "Fix race", "author": {"login": "ana"}, "additions": 10, "deletions": 4},
            {"title": "Add docs", "author": {"login": "bob"}, "additions": 1, "deletions": 0}
          ]}
        }},
        {"node": {
          "name": "beta",
          "nameWithOwner": "octo/beta",
          "stargazerCount": 7,
          "createdAt": "2022-01-15T08:30:00Z",
          "primaryLanguage": null,
          "pullRequests": {"nodes": []}
        }}
      ],
      "pageInfo": {"hasNextPage": false, "endCursor": "abc"}
    }
  }
}`

func githubTestFields() []string {
	return []string{
		"name", "fullName", "starCount", "createdAt", "languages",
		"mergeRequests.title", "mergeRequests.authorName", "mergeRequests.diffStats",
	}
}

func TestGitHubFetcher_Fetch(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		queries = append(queries, req.Query)
		_, _ = w.Write([]byte(githubSearchResponse))
	}))
	defer srv.Close()

	fetcher := NewGitHubFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	rec := &logRecorder{}

	settings := model.FetchSettings{RepoCount: 2, MaxMRs: 1, ProgrammingLanguage: "go", SearchTerm: "web"}
	repos, err := fetcher.Fetch(context.Background(), settings, githubTestFields(), rec.Log)
	require.NoError(t, err)
	require.Len(t, repos, 2)

	first := repos[0]
	assert.Equal(t, "alpha", *first.Name)
	assert.Equal(t, "octo/alpha", *first.FullName)
	assert.Equal(t, 120, *first.StarCount)
	assert.Equal(t, time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC), *first.CreatedAt)
	assert.Equal(t, []string{"Go"}, first.Languages)
	// requested but absent fields stay unset
	assert.Nil(t, first.Description)
	assert.Nil(t, first.UpdatedAt)

	// maxMRs caps the merge request list
	require.Len(t, first.MergeRequests, 1)
	assert.Equal(t, "Fix race", *first.MergeRequests[0].Title)
	assert.Equal(t, "ana", *first.MergeRequests[0].AuthorName)
	assert.Equal(t, 14, *first.MergeRequests[0].DiffSize)

	second := repos[1]
	assert.Equal(t, "beta", *second.Name)
	assert.Nil(t, second.Languages)
	assert.Empty(t, second.MergeRequests)

	// both filters land in the search DSL conjunctively
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], `web language:go`)
	assert.Contains(t, queries[0], "nameWithOwner")
	assert.Contains(t, queries[0], "pullRequests(first: 1)")
	assert.NotContains(t, queries[0], "description")

	assert.NotEmpty(t, rec.Messages(model.LogInfo))
}

func TestGitHubFetcher_FetchPaginates(t *testing.T) {
	pageOne := `{"data":{"search":{
		"edges":[{"node":{"name":"one"}}],
		"pageInfo":{"hasNextPage":true,"endCursor":"CUR"}}}}`
	pageTwo := `{"data":{"search":{
		"edges":[{"node":{"name":"two"}}],
		"pageInfo":{"hasNextPage":false,"endCursor":""}}}}`

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls++
		if calls == 1 {
			assert.NotContains(t, req.Query, "after:")
			_, _ = w.Write([]byte(pageOne))
			return
		}
		assert.Contains(t, req.Query, `after: "CUR"`)
		_, _ = w.Write([]byte(pageTwo))
	}))
	defer srv.Close()

	fetcher := NewGitHubFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	repos, err := fetcher.Fetch(context.Background(),
		model.FetchSettings{RepoCount: 2}, []string{"name"}, (&logRecorder{}).Log)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "one", *repos[0].Name)
	assert.Equal(t, "two", *repos[1].Name)
	assert.Equal(t, 2, calls)
}

func TestGitHubFetcher_FetchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"search":{"edges":[],"pageInfo":{"hasNextPage":false}}}}`))
	}))
	defer srv.Close()

	fetcher := NewGitHubFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	_, err := fetcher.Fetch(context.Background(),
		model.FetchSettings{RepoCount: 5}, []string{"name"}, (&logRecorder{}).Log)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGitHubFetcher_FetchRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "{ viewer { login } }", req.Query)
		_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octo"}}}`))
	}))
	defer srv.Close()

	fetcher := NewGitHubFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	rec := &logRecorder{}
	body, err := fetcher.FetchRaw(context.Background(), "{ viewer { login } }", rec.Log)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"octo"`)
	// the raw response itself only surfaces in debug log lines
	assert.NotEmpty(t, rec.Messages(model.LogDebug))
}

func TestGitHubFetcher_FetchRawEmpty(t *testing.T) {
	fetcher := NewGitHubFetcher("http://unused", nil, NewTokenPool(nil, TokenPoolOptions{}), fastPolicy())
	_, err := fetcher.FetchRaw(context.Background(), "   ", (&logRecorder{}).Log)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
