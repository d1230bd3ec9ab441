// Package config defines the application configuration, loaded from
// environment variables with github.com/caarlos0/env. Domain-specific
// sections live in their own files:
//   - http.go: HTTP server configuration
//   - platforms.go: per-platform API endpoints and credentials
//   - fetch.go: transport retry and token pool tuning
//   - store.go: job store backend selection (memory, postgres, redis)
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
type AppConfig struct {
	// LogLevel is the application log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Platform configurations
	GitHub    PlatformConfig  `envPrefix:"GITHUB_"`
	GitLab    PlatformConfig  `envPrefix:"GITLAB_"`
	Bitbucket BitbucketConfig `envPrefix:"BITBUCKET_"`

	// Transport tuning shared by all platform fetchers
	Fetch FetchConfig

	// Job store backend configuration
	Store StoreConfig

	// CSV export configuration
	Export ExportConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	// Endpoint defaults differ per platform, so they cannot live in the
	// shared PlatformConfig env tags.
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = "https://api.github.com/graphql"
	}
	if c.GitLab.BaseURL == "" {
		c.GitLab.BaseURL = "https://gitlab.com/api/graphql"
	}
	c.GitHub.Sanitize()
	c.GitLab.Sanitize()
	c.Fetch.Sanitize()
	c.Export.Sanitize(c.HTTP.BaseURL)
}
