package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repofetch/repofetch/internal/core"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		BackoffMin:     time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
		MaxTokenPasses: 2,
		PassDelay:      time.Millisecond,
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"ok", 200, "", func(err error) bool { return err == nil }},
		{"unauthorized", 401, "", apperrors.IsAuthentication},
		{"forbidden", 403, "bad credentials", apperrors.IsAuthentication},
		{"forbidden rate limit", 403, "API rate limit exceeded", apperrors.IsRateLimited},
		{"too many requests", 429, "", apperrors.IsRateLimited},
		{"server error", 502, "", apperrors.IsTransient},
		{"bad request", 400, "syntax error", apperrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(classifyStatus(tt.status, []byte(tt.body))))
		})
	}
}

func TestGraphQLClient_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "viewer")
		_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octo"}}}`))
	}))
	defer srv.Close()

	client := NewGraphQLClient(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	data, err := client.Execute(context.Background(), "{ viewer { login } }", nil, core.Nop)
	require.NoError(t, err)
	assert.JSONEq(t, `{"viewer":{"login":"octo"}}`, string(data))
}

func TestGraphQLClient_RotatesOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer banned" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("rate limit exceeded"))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer srv.Close()

	pool := NewTokenPool([]string{"banned", "good"}, TokenPoolOptions{})
	client := NewGraphQLClient(srv.URL, srv.Client(), pool, fastPolicy())

	data, err := client.Execute(context.Background(), "{ ok }", nil, core.Nop)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	// the throttled token is out of rotation
	assert.Equal(t, 1, pool.Available())
}

func TestGraphQLClient_AuthFailureIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	pool := NewTokenPool([]string{"a", "b"}, TokenPoolOptions{})
	client := NewGraphQLClient(srv.URL, srv.Client(), pool, fastPolicy())

	_, err := client.Execute(context.Background(), "{ ok }", nil, core.Nop)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthentication(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGraphQLClient_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer srv.Close()

	client := NewGraphQLClient(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	_, err := client.Execute(context.Background(), "{ ok }", nil, core.Nop)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGraphQLClient_GraphQLErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		message string
		check   func(error) bool
	}{
		{"rate limit text", "API rate limit exceeded for query", apperrors.IsRateLimited},
		{"auth text", "authentication required", apperrors.IsAuthentication},
		{"other", "Field 'nope' doesn't exist", apperrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyGraphQLErrors([]graphQLError{{Message: tt.message}})
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestGraphQLClient_ExecuteRawKeepsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Parse error"}]}`))
	}))
	defer srv.Close()

	client := NewGraphQLClient(srv.URL, srv.Client(), NewTokenPool([]string{"tok"}, TokenPoolOptions{}), fastPolicy())
	body, err := client.ExecuteRaw(context.Background(), "{ broken", core.Nop)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Parse error")
}

func TestRESTClient_GetJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"values":[]}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.Client(), fastPolicy())
	body, err := client.GetJSON(context.Background(), srv.URL, core.Nop)
	require.NoError(t, err)
	assert.JSONEq(t, `{"values":[]}`, string(body))
	assert.Equal(t, int32(2), calls.Load())
}
