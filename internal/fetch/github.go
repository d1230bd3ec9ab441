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

// githubSearchCap is the hard ceiling GitHub's search API puts on results
// reachable through one query. Requests beyond it cycle sort modes to reach
// a different slice of the result space.
const githubSearchCap = 1000

// githubPageSize caps the per-request page size.
const githubPageSize = 50

// githubSortModes are cycled, in order, once a single search query is
// exhausted against the search cap.
var githubSortModes = []string{
	"stars-desc",
	"updated-desc",
	"forks-desc",
	"help-wanted-issues-desc",
	"best-match",
	"stars-asc",
	"updated-asc",
	"forks-asc",
}

var githubMapping = platformMapping{
	repo: map[string]fieldMapping{
		model.FieldName:        {selection: "name", expr: "name"},
		model.FieldFullName:    {selection: "nameWithOwner", expr: "nameWithOwner"},
		model.FieldDescription: {selection: "description", expr: "description"},
		model.FieldStarCount:   {selection: "stargazerCount", expr: "stargazerCount"},
		model.FieldCreatedAt:   {selection: "createdAt", expr: "createdAt"},
		model.FieldUpdatedAt:   {selection: "updatedAt", expr: "updatedAt"},
		model.FieldLanguages:   {selection: "primaryLanguage { name }", expr: "primaryLanguage.name"},
	},
	mr: map[string]fieldMapping{
		model.MRFieldAuthorName:  {selection: "author { login }", expr: "author.login"},
		model.MRFieldCreatedAt:   {selection: "createdAt", expr: "createdAt"},
		model.MRFieldDescription: {selection: "bodyText", expr: "bodyText"},
		model.MRFieldTitle:       {selection: "title", expr: "title"},
		model.MRFieldDiffStats:   {selection: "additions deletions", expr: "sum([additions, deletions])"},
	},
	mrNode: "pullRequests",
}

// GitHubFetcher fetches repositories through GitHub's GraphQL search API with
// cursor pagination and sort-mode cycling past the search result cap.
type GitHubFetcher struct {
	client *GraphQLClient
}

// NewGitHubFetcher builds a GitHub adapter against endpoint.
func NewGitHubFetcher(endpoint string, doer HTTPDoer, pool *TokenPool, policy RetryPolicy) *GitHubFetcher {
	return &GitHubFetcher{client: NewGraphQLClient(endpoint, doer, pool, policy)}
}

type githubPage struct {
	nodes       []any
	hasNextPage bool
	endCursor   string
}

// Fetch implements core.Fetcher.
func (f *GitHubFetcher) Fetch(ctx context.Context, settings model.FetchSettings, fields []string, log core.JobLogger) ([]model.RepoData, error) {
	log(model.LogInfo, "fetching repositories from GitHub")
	start := time.Now()

	repoFields, mrFields := splitFieldPaths(fields)
	progress := newProgressTracker(settings.RepoCount, log)

	var collected []any
	cursor := ""
	sortIdx := 0

	for len(collected) < settings.RepoCount {
		query := f.buildQuery(settings, fields, cursor, f.sortMode(settings, sortIdx))
		log(model.LogDebug, "graphql query: "+query)

		page, err := f.searchPage(ctx, query, log)
		if err != nil {
			return nil, err
		}
		if len(page.nodes) == 0 {
			if !f.nextSortMode(settings, &sortIdx, &cursor, log) {
				log(model.LogWarning, "no more repositories found")
				break
			}
			continue
		}

		collected = append(collected, page.nodes...)
		progress.Advance(len(page.nodes))

		if page.hasNextPage {
			cursor = page.endCursor
			continue
		}
		if len(collected) >= settings.RepoCount || !f.nextSortMode(settings, &sortIdx, &cursor, log) {
			break
		}
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
		repos = append(repos, parseRepoNode(node, repoFields, mrFields, settings.MaxMRs, githubMapping))
	}

	log(model.LogInfo, fmt.Sprintf("fetched and parsed %d repositories in %.2f seconds",
		len(repos), time.Since(start).Seconds()))
	return repos, nil
}

// FetchRaw implements core.Fetcher by forwarding the query verbatim.
func (f *GitHubFetcher) FetchRaw(ctx context.Context, rawQuery string, log core.JobLogger) (json.RawMessage, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, apperrors.Validation("raw query must not be empty")
	}
	log(model.LogInfo, "executing raw query on GitHub")
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

// sortMode picks the current sort mode. Requests within the search cap always
// use best-match; only larger requests cycle.
func (f *GitHubFetcher) sortMode(settings model.FetchSettings, idx int) string {
	if settings.RepoCount <= githubSearchCap {
		return "best-match"
	}
	return githubSortModes[idx%len(githubSortModes)]
}

// nextSortMode advances to the next sort mode and resets the cursor; returns
// false when cycling is not applicable or exhausted.
func (f *GitHubFetcher) nextSortMode(settings model.FetchSettings, idx *int, cursor *string, log core.JobLogger) bool {
	if settings.RepoCount <= githubSearchCap || *idx+1 >= len(githubSortModes) {
		return false
	}
	*idx++
	*cursor = ""
	log(model.LogInfo, "search result cap reached, switching to sort mode "+githubSortModes[*idx%len(githubSortModes)])
	return true
}

func (f *GitHubFetcher) searchPage(ctx context.Context, query string, log core.JobLogger) (*githubPage, error) {
	data, err := f.client.Execute(ctx, query, nil, log)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed search response")
	}

	page := &githubPage{}
	edges, ok := extractValue("search.edges", doc).([]any)
	if !ok {
		return nil, apperrors.Internal("search response missing edges")
	}
	for _, edge := range edges {
		if node := extractValue("node", edge); node != nil {
			page.nodes = append(page.nodes, node)
		} else {
			log(model.LogWarning, "skipping invalid repository node")
		}
	}
	if next, ok := extractValue("search.pageInfo.hasNextPage", doc).(bool); ok {
		page.hasNextPage = next
	}
	if end, ok := extractValue("search.pageInfo.endCursor", doc).(string); ok {
		page.endCursor = end
	}
	return page, nil
}

// buildQuery renders one search query page for the requested fields.
func (f *GitHubFetcher) buildQuery(settings model.FetchSettings, fields []string, cursor, sortMode string) string {
	repoFields, mrFields := splitFieldPaths(fields)
	selections := buildSelections(repoFields, githubMapping.repo)
	if mrSel := buildMergeRequestsSelection(mrFields, settings.MaxMRs, githubMapping); mrSel != "" {
		selections = append(selections, mrSel)
	}

	after := ""
	if cursor != "" {
		after = fmt.Sprintf(`, after: "%s"`, cursor)
	}
	pageSize := min(settings.RepoCount, githubPageSize)

	return fmt.Sprintf(`{
  search(query: "%s sort:%s", type: REPOSITORY, first: %d%s) {
    edges { node { ... on Repository { %s } } }
    pageInfo { hasNextPage endCursor }
  }
}`, f.searchFilters(settings), sortMode, pageSize, after, strings.Join(selections, " "))
}

// searchFilters translates the settings into GitHub's search DSL; both
// filters apply conjunctively.
func (f *GitHubFetcher) searchFilters(settings model.FetchSettings) string {
	var filters []string
	if settings.SearchTerm != "" {
		filters = append(filters, settings.SearchTerm)
	}
	if settings.ProgrammingLanguage != "" {
		filters = append(filters, "language:"+settings.ProgrammingLanguage)
	}
	if len(filters) == 0 {
		filters = append(filters, "stars:>=0")
	}
	return strings.Join(filters, " ")
}
