package config

import "time"

// FetchConfig contains transport retry and token pool tuning shared by all
// platform fetchers.
type FetchConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"180s"`

	// MaxRetries bounds same-token retries of transient failures.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"5"`

	// BackoffMin and BackoffMax bound the exponential retry backoff.
	BackoffMin time.Duration `env:"BACKOFF_MIN" envDefault:"2s"`
	BackoffMax time.Duration `env:"BACKOFF_MAX" envDefault:"8s"`

	// MaxTokenPasses bounds how often the full token pool is cycled when
	// every token keeps hitting rate limits.
	MaxTokenPasses int `env:"MAX_TOKEN_PASSES" envDefault:"3"`

	// PassDelay is the wait between full token pool passes.
	PassDelay time.Duration `env:"PASS_DELAY" envDefault:"30s"`

	// TokenBanCooldown is how long a banned token stays unavailable.
	TokenBanCooldown time.Duration `env:"TOKEN_BAN_COOLDOWN" envDefault:"600s"`

	// RequestsPerSecond throttles requests per token pool. Zero disables
	// throttling.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"1"`
}

// Sanitize applies guardrails to fetch configuration values.
func (f *FetchConfig) Sanitize() {
	if f.Timeout < time.Second {
		f.Timeout = time.Second
	}
	if f.MaxRetries < 1 {
		f.MaxRetries = 1
	}
	if f.BackoffMin <= 0 {
		f.BackoffMin = 2 * time.Second
	}
	if f.BackoffMax < f.BackoffMin {
		f.BackoffMax = f.BackoffMin
	}
	if f.MaxTokenPasses < 1 {
		f.MaxTokenPasses = 1
	}
	if f.RequestsPerSecond < 0 {
		f.RequestsPerSecond = 0
	}
}
