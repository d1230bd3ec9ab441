package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/domain/model"
)

const gitlabProjectsResponse = `{
  "data": {
    "projects": {
      "nodes": [
        {
          "name": "orchestrator",
          "fullPath": "infra/orchestrator",
          "starCount": 33,
          "languages": [{"name": "Go"}, {"name": "Shell"}],
          "mergeRequests": {"nodes": [
            {"title": "Speed up CI", "author": {"name": "Dana"},
             "description": "cache layers",
             "diffStatsSummary": {"additions": 40, "deletions": 12}}
          ]}
        }
      ],
      "pageInfo": {"hasNextPage": false, "endCursor": ""}
    }
  }
}`

func TestGitLabFetcher_Fetch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		query = req.Query
		_, _ = w.Write([]byte(gitlabProjectsResponse))
	}))
	defer srv.Close()

	fetcher := NewGitLabFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	settings := model.FetchSettings{RepoCount: 1, MaxMRs: 5, SearchTerm: "orchestrator", ProgrammingLanguage: "Go"}
	fields := []string{
		"name", "fullName", "starCount", "languages",
		"mergeRequests.title", "mergeRequests.authorName", "mergeRequests.description", "mergeRequests.diffStats",
	}

	repos, err := fetcher.Fetch(context.Background(), settings, fields, (&logRecorder{}).Log)
	require.NoError(t, err)
	require.Len(t, repos, 1)

	repo := repos[0]
	assert.Equal(t, "orchestrator", *repo.Name)
	assert.Equal(t, "infra/orchestrator", *repo.FullName)
	assert.Equal(t, 33, *repo.StarCount)
	assert.Equal(t, []string{"Go", "Shell"}, repo.Languages)
	assert.Nil(t, repo.Description)

	require.Len(t, repo.MergeRequests, 1)
	mr := repo.MergeRequests[0]
	assert.Equal(t, "Speed up CI", *mr.Title)
	assert.Equal(t, "Dana", *mr.AuthorName)
	assert.Equal(t, "cache layers", *mr.Description)
	assert.Equal(t, 52, *mr.DiffSize)

	// filters translate to separate GraphQL arguments
	assert.Contains(t, query, `search: "orchestrator"`)
	assert.Contains(t, query, `programmingLanguageName: "Go"`)
	assert.Contains(t, query, "mergeRequests(first: 5)")
	assert.Contains(t, query, "diffStatsSummary")
}

func TestGitLabFetcher_FetchTrimsToRepoCount(t *testing.T) {
	resp := `{"data":{"projects":{
		"nodes":[{"name":"a"},{"name":"b"},{"name":"c"}],
		"pageInfo":{"hasNextPage":false,"endCursor":""}}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(resp))
	}))
	defer srv.Close()

	fetcher := NewGitLabFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	repos, err := fetcher.Fetch(context.Background(),
		model.FetchSettings{RepoCount: 2}, []string{"name"}, (&logRecorder{}).Log)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "a", *repos[0].Name)
	assert.Equal(t, "b", *repos[1].Name)
}

func TestGitLabFetcher_FetchRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"projects":{"nodes":[]}}}`))
	}))
	defer srv.Close()

	fetcher := NewGitLabFetcher(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	body, err := fetcher.FetchRaw(context.Background(), "{ projects { nodes { name } } }", (&logRecorder{}).Log)
	require.NoError(t, err)
	assert.Contains(t, string(body), "projects")
}
