// Package fetch implements the platform adapters of the fetch engine: query
// construction, transport with token rotation and retry, and response
// normalization into canonical repository records.
package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoTokensAvailable is returned by Acquire when every token is banned or
// currently leased to another in-flight request.
var ErrNoTokensAvailable = errors.New("no tokens available")

// TokenPoolOptions configures a TokenPool.
type TokenPoolOptions struct {
	// BanCooldown is how long a banned token stays out of rotation.
	// Defaults to 10 minutes.
	BanCooldown time.Duration
	// RequestsPerSecond paces each token individually. Zero disables pacing.
	RequestsPerSecond float64
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type tokenState struct {
	value       string
	limiter     *rate.Limiter
	inUse       bool
	bannedUntil time.Time
}

// TokenPool is a rotating set of per-platform credentials shared by all
// concurrently running jobs for that platform. Acquisition is round-robin and
// mutually exclusive per token: a token is leased to exactly one in-flight
// request at a time so per-token rate limits are honored.
type TokenPool struct {
	mu       sync.Mutex
	tokens   []*tokenState
	next     int
	cooldown time.Duration
	now      func() time.Time
}

// NewTokenPool builds a pool from the configured token values.
func NewTokenPool(tokens []string, opts TokenPoolOptions) *TokenPool {
	cooldown := opts.BanCooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	states := make([]*tokenState, 0, len(tokens))
	for _, tok := range tokens {
		var limiter *rate.Limiter
		if opts.RequestsPerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		}
		states = append(states, &tokenState{value: tok, limiter: limiter})
	}
	return &TokenPool{tokens: states, cooldown: cooldown, now: now}
}

// Size returns the number of configured tokens.
func (p *TokenPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokens)
}

// Acquire leases the next available token round-robin. The returned release
// function must be called when the request completes. Returns
// ErrNoTokensAvailable when every token is banned or in use.
func (p *TokenPool) Acquire(ctx context.Context) (string, func(), error) {
	p.mu.Lock()
	state := p.pickLocked()
	if state == nil {
		p.mu.Unlock()
		return "", nil, ErrNoTokensAvailable
	}
	state.inUse = true
	p.mu.Unlock()

	release := func() {
		p.mu.Lock()
		state.inUse = false
		p.mu.Unlock()
	}

	if state.limiter != nil {
		if err := state.limiter.Wait(ctx); err != nil {
			release()
			return "", nil, err
		}
	}
	return state.value, release, nil
}

// pickLocked scans round-robin for a token that is neither banned nor leased.
func (p *TokenPool) pickLocked() *tokenState {
	n := len(p.tokens)
	if n == 0 {
		return nil
	}
	now := p.now()
	for i := range n {
		state := p.tokens[(p.next+i)%n]
		if state.inUse {
			continue
		}
		if state.bannedUntil.After(now) {
			continue
		}
		p.next = (p.next + i + 1) % n
		return state
	}
	return nil
}

// Ban removes a token from rotation for the configured cooldown, used after
// rate-limit or credential rejections.
func (p *TokenPool) Ban(token string) {
	p.BanFor(token, p.cooldown)
}

// BanFor removes a token from rotation for an explicit duration.
func (p *TokenPool) BanFor(token string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, state := range p.tokens {
		if state.value == token {
			state.bannedUntil = p.now().Add(d)
			return
		}
	}
}

// Available returns how many tokens are currently eligible for acquisition.
func (p *TokenPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	count := 0
	for _, state := range p.tokens {
		if !state.inUse && !state.bannedUntil.After(now) {
			count++
		}
	}
	return count
}
