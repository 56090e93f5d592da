package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// ProactiveRate is the default request rate (~4300 requests/hour).
	ProactiveRate = 1.2

	// MinBuffer is the minimum remaining requests before waiting for reset.
	MinBuffer = 5

	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
)

// RateLimiter combines a token bucket with the quota reported by the API.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
	minBuffer int
}

// NewRateLimiter creates a limiter allowing perSecond requests per second.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		perSecond = ProactiveRate
	}
	return &RateLimiter{
		remaining: -1, // unknown until the first response
		limit:     -1,
		bucket:    rate.NewLimiter(rate.Limit(perSecond), 4),
		minBuffer: MinBuffer,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining >= 0 && remaining < r.minBuffer && time.Now().Before(resetTime) {
		timer := time.NewTimer(time.Until(resetTime))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v := resp.Header.Get(HeaderRateRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.remaining = n
		}
	}
	if v := resp.Header.Get(HeaderRateLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.limit = n
		}
	}
	if v := resp.Header.Get(HeaderRateReset); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.resetTime = time.Unix(n, 0)
		}
	}
}

// Remaining returns the last reported remaining quota, -1 if unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the last reported quota, -1 if unknown.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}
