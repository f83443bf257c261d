package providers

import (
	"context"
	"sync"
	"time"
)

// defaultRPM applies when a provider has no rate_limit configured.
const defaultRPM = 60

// RateLimiter paces calls to one provider. Tokens refill continuously at
// rpm per minute up to a burst of rpm. A 429 with Retry-After pauses the
// limiter until the provider's deadline has passed.
type RateLimiter struct {
	mu sync.Mutex

	rpm       int
	perSecond float64
	tokens    float64
	refilled  time.Time

	pausedUntil time.Time
	last429     time.Time

	consumed int64
	waited   time.Duration
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	Utilization     float64       `json:"utilization"`
	TimeUntilToken  time.Duration `json:"time_until_token"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
	PausedUntil     time.Time     `json:"paused_until,omitempty"`
}

// NewRateLimiter creates a full limiter. Non-positive rpm uses 60.
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		rpm = defaultRPM
	}
	return &RateLimiter{
		rpm:       rpm,
		perSecond: float64(rpm) / 60,
		tokens:    float64(rpm),
		refilled:  time.Now(),
	}
}

// Wait blocks until a token is taken or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.take(time.Now())
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		r.mu.Lock()
		r.waited += delay
		r.mu.Unlock()
	}
}

// TryConsume takes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	_, ok := r.take(time.Now())
	return ok
}

// take consumes a token at now, or reports how long until one is free.
func (r *RateLimiter) take(now time.Time) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Before(r.pausedUntil) {
		return r.pausedUntil.Sub(now), false
	}
	r.refill(now)
	if r.tokens < 1 {
		return r.untilToken(), false
	}
	r.tokens--
	r.consumed++
	return 0, true
}

// Record429 notes a rate-limit response. A positive retryAfter empties the
// bucket and holds every caller until it has elapsed.
func (r *RateLimiter) Record429(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.last429 = now
	if retryAfter <= 0 {
		return
	}
	r.tokens = 0
	r.refilled = now
	if until := now.Add(retryAfter); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

// Status returns a snapshot of the limiter.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refill(now)

	s := RateLimiterStatus{
		TokensAvailable: int(r.tokens),
		TokensLimit:     r.rpm,
		Utilization:     max(0, 1-r.tokens/float64(r.rpm)),
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		Last429Time:     r.last429,
	}
	switch {
	case now.Before(r.pausedUntil):
		s.PausedUntil = r.pausedUntil
		s.TimeUntilToken = r.pausedUntil.Sub(now)
	case r.tokens < 1:
		s.TimeUntilToken = r.untilToken()
	}
	return s
}

// untilToken must be called with the lock held.
func (r *RateLimiter) untilToken() time.Duration {
	return time.Duration((1 - r.tokens) / r.perSecond * float64(time.Second))
}

// refill must be called with the lock held.
func (r *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(r.refilled).Seconds()
	if elapsed <= 0 {
		return
	}
	r.refilled = now
	r.tokens = min(r.tokens+elapsed*r.perSecond, float64(r.rpm))
}
