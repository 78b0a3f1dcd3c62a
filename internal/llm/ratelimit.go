package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/textlens/internal/model"
)

// RateLimiter paces dispatches per provider, so a burst of OpenAI rewrites never delays an
// Anthropic one. Each provider may send requestsPerMinute requests in any one-minute window,
// starting with a full burst.
type RateLimiter struct {
	now      func() time.Time
	next     map[model.Provider]time.Time
	interval time.Duration
	window   time.Duration
	mu       sync.Mutex
}

// NewRateLimiter allows requestsPerMinute dispatches per provider; non-positive means 60.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &RateLimiter{
		now:      time.Now,
		next:     make(map[model.Provider]time.Time),
		interval: interval,
		window:   interval * time.Duration(requestsPerMinute),
	}
}

// Wait blocks until provider may dispatch or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, provider model.Provider) error {
	for {
		delay := rl.reserve(provider)
		if delay == 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for %s rate limit: %w", provider, ctx.Err())
		case <-timer.C:
		}
	}
}

// reserve records a dispatch and returns zero, or returns how long until one is allowed.
func (rl *RateLimiter) reserve(provider model.Provider) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	next := rl.next[provider]
	if next.Before(now) {
		next = now
	}

	after := next.Add(rl.interval)
	if ahead := after.Sub(now); ahead > rl.window {
		return ahead - rl.window
	}
	rl.next[provider] = after
	return 0
}
