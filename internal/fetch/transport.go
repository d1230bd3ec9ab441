package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

const userAgent = "repofetch"

// HTTPDoer is the slice of http.Client the transport needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryPolicy tunes the transport layer. Transient failures (5xx, network
// errors) are retried on the same token with exponential backoff; rate limits
// ban the token and rotate to the next one, waiting PassDelay between full
// passes over the pool; authentication failures are fatal immediately.
type RetryPolicy struct {
	MaxRetries     uint64
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	MaxTokenPasses int
	PassDelay      time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries == 0 {
		p.MaxRetries = 5
	}
	if p.BackoffMin <= 0 {
		p.BackoffMin = 2 * time.Second
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = 8 * time.Second
	}
	if p.MaxTokenPasses <= 0 {
		p.MaxTokenPasses = 3
	}
	if p.PassDelay <= 0 {
		p.PassDelay = 30 * time.Second
	}
	return p
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BackoffMin
	bo.MaxInterval = p.BackoffMax
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxRetries), ctx)
}

// classifyStatus maps an HTTP response to an application error. Rate-limit
// style 403s are distinguished from credential rejections by body content.
func classifyStatus(status int, body []byte) error {
	lower := strings.ToLower(string(body))
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.Newf(apperrors.ErrCodeAuthentication, "credential rejected (status %d)", status)
	case status == http.StatusTooManyRequests:
		return apperrors.Newf(apperrors.ErrCodeRateLimited, "rate limited (status %d)", status)
	case status == http.StatusForbidden:
		if strings.Contains(lower, "rate limit") {
			return apperrors.Newf(apperrors.ErrCodeRateLimited, "rate limited (status %d)", status)
		}
		return apperrors.Newf(apperrors.ErrCodeAuthentication, "access forbidden (status %d)", status)
	case status >= 500:
		return apperrors.Newf(apperrors.ErrCodeTransient, "server error (status %d)", status)
	case status >= 400:
		return apperrors.Newf(apperrors.ErrCodeValidation, "request rejected (status %d): %s", status, truncate(lower, 200))
	default:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// classifyGraphQLErrors maps an errors array in a 200 response to an
// application error, matching the throttling and credential phrasings the
// platforms use inside otherwise-successful responses.
func classifyGraphQLErrors(errs []graphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	joined := strings.Join(msgs, "; ")
	lower := strings.ToLower(joined)
	switch {
	case strings.Contains(lower, "rate limit"):
		return apperrors.Newf(apperrors.ErrCodeRateLimited, "query rate limited: %s", joined)
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "authentication"):
		return apperrors.Newf(apperrors.ErrCodeAuthentication, "query rejected: %s", joined)
	default:
		return apperrors.Validationf("query failed: %s", joined)
	}
}

// GraphQLClient executes queries against one platform GraphQL endpoint,
// leasing a token from the pool per request.
type GraphQLClient struct {
	endpoint string
	client   HTTPDoer
	pool     *TokenPool
	policy   RetryPolicy
}

// NewGraphQLClient builds a client for endpoint. A nil doer falls back to a
// default http.Client with the transport timeout baked in.
func NewGraphQLClient(endpoint string, client HTTPDoer, pool *TokenPool, policy RetryPolicy) *GraphQLClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GraphQLClient{endpoint: endpoint, client: client, pool: pool, policy: policy.withDefaults()}
}

// Execute runs a query and returns the response's data document. A response
// carrying GraphQL errors is an error, classified by error text.
func (c *GraphQLClient) Execute(ctx context.Context, query string, variables map[string]any, log core.JobLogger) (json.RawMessage, error) {
	body, err := c.post(ctx, graphQLRequest{Query: query, Variables: variables}, log)
	if err != nil {
		return nil, err
	}
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed graphql response")
	}
	if len(resp.Errors) > 0 {
		return nil, classifyGraphQLErrors(resp.Errors)
	}
	return resp.Data, nil
}

// ExecuteRaw runs a caller-supplied query and returns the decoded response
// body unmodified, errors array included. Only HTTP-level failures are errors.
func (c *GraphQLClient) ExecuteRaw(ctx context.Context, query string, log core.JobLogger) (json.RawMessage, error) {
	body, err := c.post(ctx, graphQLRequest{Query: query}, log)
	if err != nil {
		return nil, err
	}
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed graphql response")
	}
	if len(resp.Errors) > 0 {
		log(model.LogWarning, fmt.Sprintf("response carries %d graphql error(s)", len(resp.Errors)))
	}
	return json.RawMessage(body), nil
}

// post runs the token-pass loop: rotate through the pool banning rate-limited
// tokens, wait between full passes, give up after MaxTokenPasses.
func (c *GraphQLClient) post(ctx context.Context, req graphQLRequest, log core.JobLogger) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding graphql request")
	}

	var lastErr error
	for pass := range c.policy.MaxTokenPasses {
		if pass > 0 {
			log(model.LogWarning, "all tokens exhausted, waiting before next pass")
			if err := sleepCtx(ctx, c.policy.PassDelay); err != nil {
				return nil, err
			}
		}

		rotations := c.pool.Size()
		if rotations == 0 {
			return nil, apperrors.New(apperrors.ErrCodeAuthentication, "no tokens configured")
		}
		for range rotations {
			token, release, err := c.pool.Acquire(ctx)
			if errors.Is(err, ErrNoTokensAvailable) {
				lastErr = apperrors.Wrap(err, apperrors.ErrCodeRateLimited, "token pool exhausted")
				break
			}
			if err != nil {
				return nil, err
			}

			body, err := c.attempt(ctx, token, payload, log)
			release()
			if err == nil {
				return body, nil
			}
			lastErr = err

			switch {
			case apperrors.IsRateLimited(err):
				c.pool.Ban(token)
				log(model.LogWarning, "token rate limited, rotating to next token")
			case apperrors.IsAuthentication(err):
				c.pool.Ban(token)
				return nil, err
			default:
				return nil, err
			}
		}
	}
	if lastErr == nil {
		lastErr = apperrors.New(apperrors.ErrCodeRateLimited, "token pool exhausted")
	}
	return nil, lastErr
}

// attempt issues one request with the leased token, retrying transient
// failures with exponential backoff.
func (c *GraphQLClient) attempt(ctx context.Context, token string, payload []byte, log core.JobLogger) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(apperrors.Wrap(err, apperrors.ErrCodeInternal, "building request"))
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log(model.LogWarning, "request failed, retrying: "+err.Error())
			return apperrors.Wrap(err, apperrors.ErrCodeTransient, "request failed")
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTransient, "reading response")
		}
		if cerr := classifyStatus(resp.StatusCode, body); cerr != nil {
			if apperrors.IsTransient(cerr) {
				log(model.LogWarning, fmt.Sprintf("server error (status %d), retrying", resp.StatusCode))
				return cerr
			}
			return backoff.Permanent(cerr)
		}
		log(model.LogDebug, "raw response: "+truncate(string(body), 2000))
		return nil
	}
	if err := backoff.Retry(op, c.policy.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// RESTClient wraps plain JSON GETs with the same transient retry policy. Auth
// is carried by the underlying client (an oauth2 transport for Bitbucket), so
// no token pool is involved.
type RESTClient struct {
	client HTTPDoer
	policy RetryPolicy
}

// NewRESTClient builds a REST transport over client.
func NewRESTClient(client HTTPDoer, policy RetryPolicy) *RESTClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTClient{client: client, policy: policy.withDefaults()}
}

// GetJSON fetches url and returns the response body.
func (c *RESTClient) GetJSON(ctx context.Context, url string, log core.JobLogger) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(apperrors.Wrap(err, apperrors.ErrCodeInternal, "building request"))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log(model.LogWarning, "request failed, retrying: "+err.Error())
			return apperrors.Wrap(err, apperrors.ErrCodeTransient, "request failed")
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTransient, "reading response")
		}
		if cerr := classifyStatus(resp.StatusCode, body); cerr != nil {
			if apperrors.IsTransient(cerr) {
				log(model.LogWarning, fmt.Sprintf("server error (status %d), retrying", resp.StatusCode))
				return cerr
			}
			return backoff.Permanent(cerr)
		}
		log(model.LogDebug, "raw response: "+truncate(string(body), 2000))
		return nil
	}
	if err := backoff.Retry(op, c.policy.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
