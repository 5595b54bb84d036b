package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing calls with one token bucket per key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	logger   music.Logger
}

// NewRateLimiter creates a limiter. A non-positive rate disables pacing.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     limit,
		burst:    burst,
	}
}

func (rl *RateLimiter) SetLogger(logger music.Logger) {
	rl.logger = logger
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = limiter
	return limiter
}

// Wait blocks until a call for key is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	if rl == nil {
		return nil
	}
	return rl.getLimiter(key).Wait(ctx)
}

// RetryAfterError marks an error the remote side asked us to retry later.
type RetryAfterError struct {
	Err   error
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.After)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry\s+after[:\s]+(\d+)`)

func parseRetryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}

	var retryErr *RetryAfterError
	if errors.As(err, &retryErr) && retryErr.After > 0 {
		return retryErr.After, true
	}

	if matches := retryAfterPattern.FindStringSubmatch(err.Error()); len(matches) == 2 {
		if parsed, parseErr := strconv.Atoi(matches[1]); parseErr == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second, true
		}
	}

	return 0, false
}

// WithRetry paces fn through rl and retries it while it fails with a retry-after hint.
// The last error is returned once attempts run out.
func WithRetry(ctx context.Context, rl *RateLimiter, key string, attempts int, fn func() error) error {
	if fn == nil {
		return nil
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := rl.Wait(ctx, key); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		retryAfter, shouldRetry := parseRetryAfter(err)
		if !shouldRetry {
			return err
		}

		if attempt < attempts-1 {
			if rl != nil && rl.logger != nil {
				rl.logger.Warn("rate limited, backing off", "key", key, "retry_after", retryAfter, "attempt", attempt+1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter):
			}
		}
	}

	return lastErr
}
