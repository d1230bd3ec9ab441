package config

import "strings"

// PlatformConfig contains a GraphQL platform's endpoint and token pool.
// Loaded with envPrefix GITHUB_ or GITLAB_.
type PlatformConfig struct {
	// BaseURL is the platform's GraphQL endpoint.
	BaseURL string `env:"BASE_URL"`

	// Tokens is the comma-separated personal access token pool.
	Tokens []string `env:"TOKENS" envDefault:""`
}

// Sanitize trims whitespace and surrounding quotes from tokens and drops
// empty entries.
func (p *PlatformConfig) Sanitize() {
	cleaned := make([]string, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		t = strings.Trim(strings.TrimSpace(t), `"'`)
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	p.Tokens = cleaned
}

// BitbucketConfig contains Bitbucket's REST endpoint and OAuth2 client
// credentials. Loaded with envPrefix BITBUCKET_.
type BitbucketConfig struct {
	// BaseURL is the Bitbucket REST API root.
	BaseURL string `env:"BASE_URL" envDefault:"https://api.bitbucket.org/2.0"`

	// TokenURL is the OAuth2 client credentials token endpoint.
	TokenURL string `env:"TOKEN_URL" envDefault:"https://bitbucket.org/site/oauth2/access_token"`

	ClientID string `env:"CLIENT_ID" envDefault:""`
	Secret   string `env:"SECRET"    envDefault:""`
}
