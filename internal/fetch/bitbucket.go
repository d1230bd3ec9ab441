package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// bitbucketPageSize caps the per-request page size at Bitbucket's maximum.
const bitbucketPageSize = 100

// bitbucketMRConcurrency bounds the parallel per-repository pull request
// fetches.
const bitbucketMRConcurrency = 8

// Bitbucket exposes no diff statistics on the pull request list payload, so
// diffStats is simply omitted there.
var bitbucketMapping = platformMapping{
	repo: map[string]fieldMapping{
		model.FieldName:        {expr: "name"},
		model.FieldFullName:    {expr: "full_name"},
		model.FieldDescription: {expr: "description"},
		model.FieldCreatedAt:   {expr: "created_on"},
		model.FieldUpdatedAt:   {expr: "updated_on"},
		model.FieldLanguages:   {expr: "language"},
	},
	mr: map[string]fieldMapping{
		model.MRFieldAuthorName:  {expr: "author.display_name"},
		model.MRFieldCreatedAt:   {expr: "created_on"},
		model.MRFieldDescription: {expr: "summary.raw"},
		model.MRFieldTitle:       {expr: "title"},
	},
}

// BitbucketFetcher fetches repositories through Bitbucket's paginated REST
// API. Auth is OAuth2 client credentials carried by the HTTP client's token
// source; the raw-query bypass is not available on a REST platform.
type BitbucketFetcher struct {
	baseURL string
	oauth   clientcredentials.Config
	doer    HTTPDoer
	policy  RetryPolicy
}

// NewBitbucketFetcher builds a Bitbucket adapter. A non-nil doer overrides
// the OAuth2 client, for tests.
func NewBitbucketFetcher(baseURL, tokenURL, clientID, clientSecret string, doer HTTPDoer, policy RetryPolicy) *BitbucketFetcher {
	return &BitbucketFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		oauth: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		doer:   doer,
		policy: policy,
	}
}

func (f *BitbucketFetcher) restClient(ctx context.Context) *RESTClient {
	if f.doer != nil {
		return NewRESTClient(f.doer, f.policy)
	}
	return NewRESTClient(f.oauth.Client(ctx), f.policy)
}

type bitbucketPage struct {
	Values []json.RawMessage `json:"values"`
	Next   string            `json:"next"`
}

// Fetch implements core.Fetcher.
func (f *BitbucketFetcher) Fetch(ctx context.Context, settings model.FetchSettings, fields []string, log core.JobLogger) ([]model.RepoData, error) {
	log(model.LogInfo, "fetching repositories from Bitbucket")
	start := time.Now()

	client := f.restClient(ctx)
	repoFields, mrFields := splitFieldPaths(fields)
	progress := newProgressTracker(settings.RepoCount, log)

	var collected []any
	next := f.repositoriesURL(settings)
	for next != "" && len(collected) < settings.RepoCount {
		body, err := client.GetJSON(ctx, next, log)
		if err != nil {
			return nil, err
		}
		var page bitbucketPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed repositories response")
		}
		if len(page.Values) == 0 {
			log(model.LogWarning, "no more repositories found")
			break
		}
		for _, raw := range page.Values {
			var node any
			if err := json.Unmarshal(raw, &node); err != nil {
				log(model.LogWarning, "skipping invalid repository entry")
				continue
			}
			collected = append(collected, node)
		}
		progress.Advance(len(page.Values))
		next = page.Next
	}

	if len(collected) == 0 {
		log(model.LogError, "no repositories found")
		return nil, apperrors.NotFound("no repositories matched the search filters")
	}
	if len(collected) > settings.RepoCount {
		collected = collected[:settings.RepoCount]
	}

	repos := make([]model.RepoData, len(collected))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(bitbucketMRConcurrency)
	for i, node := range collected {
		group.Go(func() error {
			repo := parseRepoNode(node, repoFields, nil, 0, bitbucketMapping)
			if len(mrFields) > 0 {
				mrs, err := f.fetchMergeRequests(gctx, client, node, mrFields, settings.MaxMRs, log)
				if err != nil {
					return err
				}
				repo.MergeRequests = mrs
			}
			repos[i] = repo
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	log(model.LogInfo, fmt.Sprintf("fetched and parsed %d repositories in %.2f seconds",
		len(repos), time.Since(start).Seconds()))
	return repos, nil
}

// FetchRaw implements core.Fetcher. Bitbucket has no GraphQL endpoint to
// forward a raw query to.
func (f *BitbucketFetcher) FetchRaw(_ context.Context, _ string, log core.JobLogger) (json.RawMessage, error) {
	log(model.LogError, "raw queries are not supported on Bitbucket")
	return nil, apperrors.New(apperrors.ErrCodeUnsupportedOperation, "raw queries are not supported on Bitbucket")
}

// fetchMergeRequests follows the repository's pullrequests link and extracts
// the requested subfields from the first page, capped at maxMRs.
func (f *BitbucketFetcher) fetchMergeRequests(ctx context.Context, client *RESTClient, repoNode any, mrFields []string, maxMRs int, log core.JobLogger) ([]model.MergeRequestData, error) {
	href, ok := extractValue("links.pullrequests.href", repoNode).(string)
	if !ok || href == "" {
		return nil, nil
	}
	if maxMRs == 0 {
		return []model.MergeRequestData{}, nil
	}
	sep := "?"
	if strings.Contains(href, "?") {
		sep = "&"
	}
	body, err := client.GetJSON(ctx, fmt.Sprintf("%s%spagelen=%d", href, sep, min(maxMRs, bitbucketPageSize)), log)
	if err != nil {
		return nil, err
	}
	var page struct {
		Values []any `json:"values"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed pull requests response")
	}
	return parseMergeRequests(page.Values, mrFields, maxMRs, bitbucketMapping), nil
}

// repositoriesURL renders the first page URL with the settings translated to
// Bitbucket's q filter syntax; both filters apply conjunctively.
func (f *BitbucketFetcher) repositoriesURL(settings model.FetchSettings) string {
	var filters []string
	if settings.SearchTerm != "" {
		filters = append(filters, fmt.Sprintf(`name~"%s"`, settings.SearchTerm))
	}
	if settings.ProgrammingLanguage != "" {
		filters = append(filters, fmt.Sprintf(`language="%s"`, strings.ToLower(settings.ProgrammingLanguage)))
	}

	params := url.Values{}
	params.Set("role", "member")
	params.Set("pagelen", fmt.Sprintf("%d", min(settings.RepoCount, bitbucketPageSize)))
	if len(filters) > 0 {
		params.Set("q", strings.Join(filters, " AND "))
	}
	return f.baseURL + "/repositories?" + params.Encode()
}
