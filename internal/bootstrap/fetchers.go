package bootstrap

import (
	"net/http"

	"github.com/repofetch/repofetch/config"
	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	"github.com/repofetch/repofetch/internal/fetch"
)

// BuildFetchers constructs the per-platform fetchers and the factory that
// resolves them by platform identifier.
func BuildFetchers(cfg *config.AppConfig) *fetch.Factory {
	client := &http.Client{Timeout: cfg.Fetch.Timeout}

	policy := fetch.RetryPolicy{
		MaxRetries:     uint64(cfg.Fetch.MaxRetries),
		BackoffMin:     cfg.Fetch.BackoffMin,
		BackoffMax:     cfg.Fetch.BackoffMax,
		MaxTokenPasses: cfg.Fetch.MaxTokenPasses,
		PassDelay:      cfg.Fetch.PassDelay,
	}
	poolOpts := fetch.TokenPoolOptions{
		BanCooldown:       cfg.Fetch.TokenBanCooldown,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	}

	githubPool := fetch.NewTokenPool(cfg.GitHub.Tokens, poolOpts)
	gitlabPool := fetch.NewTokenPool(cfg.GitLab.Tokens, poolOpts)

	return fetch.NewFactory(map[model.Platform]core.Fetcher{
		model.PlatformGitHub: fetch.NewGitHubFetcher(cfg.GitHub.BaseURL, client, githubPool, policy),
		model.PlatformGitLab: fetch.NewGitLabFetcher(cfg.GitLab.BaseURL, client, gitlabPool, policy),
		model.PlatformBitbucket: fetch.NewBitbucketFetcher(
			cfg.Bitbucket.BaseURL,
			cfg.Bitbucket.TokenURL,
			cfg.Bitbucket.ClientID,
			cfg.Bitbucket.Secret,
			nil, // OAuth2 client credentials transport is built per request context
			policy,
		),
	})
}
