// Package ratelimit is the outbound throttle shared by every upstream client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"review_dashboard/internal/domain"
)

// Policy says what happens to a call that arrives before a token is available.
type Policy int

const (
	// Wait blocks until the next slot; used for paid per-call endpoints.
	Wait Policy = iota
	// Reject fails fast with domain.ErrRateLimited; used for cheap, cacheable endpoints.
	Reject
)

func (p Policy) String() string {
	if p == Reject {
		return "reject"
	}
	return "wait"
}

type Limiter struct {
	name   string
	rl     *rate.Limiter
	policy Policy
}

// New allows one call per spacing with the given burst.
func New(name string, spacing time.Duration, burst int, p Policy) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	log.Debug().Str("limiter", name).Stringer("policy", p).Dur("spacing", spacing).Int("burst", burst).Msg("rate limiter configured")
	return &Limiter{name: name, rl: rate.NewLimiter(limit, burst), policy: p}
}

// Acquire takes one slot according to the limiter's policy.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.policy == Reject {
		if !l.rl.Allow() {
			return fmt.Errorf("%s: %w", l.name, domain.ErrRateLimited)
		}
		return nil
	}
	if err := l.rl.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", l.name, err)
	}
	return nil
}
