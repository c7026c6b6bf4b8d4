package llm

import (
	"context"
	"sync"
	"time"

	"codescout/internal/logging"
)

// LimiterConfig sets the provider ceilings. Zero disables a ceiling.
type LimiterConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
}

// DefaultLimiterConfig matches free-tier Gemini ceilings.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		RequestsPerMinute: 10,
		TokensPerMinute:   250_000,
		RequestsPerDay:    250,
	}
}

// bucket is one continuously-refilling token bucket.
type bucket struct {
	capacity  float64
	remaining float64
	window    time.Duration
	last      time.Time
}

func newBucket(capacity int, window time.Duration) *bucket {
	return &bucket{
		capacity:  float64(capacity),
		remaining: float64(capacity),
		window:    window,
		last:      time.Now(),
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last)
	b.last = now
	b.remaining += b.capacity * float64(elapsed) / float64(b.window)
	if b.remaining > b.capacity {
		b.remaining = b.capacity
	}
}

// wait returns how long until cost tokens are available; zero means now.
func (b *bucket) wait(now time.Time, cost float64) time.Duration {
	b.refill(now)
	if b.remaining >= cost {
		return 0
	}
	deficit := cost - b.remaining
	return time.Duration(deficit / b.capacity * float64(b.window))
}

func (b *bucket) take(cost float64) {
	b.remaining -= cost
}

// Limiter enforces RPM/TPM/RPD ceilings via nested token buckets. It is a
// per-project singleton shared across concurrent tasks; callers see an
// opaque Wait that may queue or delay.
type Limiter struct {
	mu      sync.Mutex
	rpm     *bucket
	tpm     *bucket
	rpd     *bucket
	waiting int
}

// NewLimiter creates a limiter. Nil-safe: a nil Limiter never blocks.
func NewLimiter(cfg LimiterConfig) *Limiter {
	l := &Limiter{}
	if cfg.RequestsPerMinute > 0 {
		l.rpm = newBucket(cfg.RequestsPerMinute, time.Minute)
	}
	if cfg.TokensPerMinute > 0 {
		l.tpm = newBucket(cfg.TokensPerMinute, time.Minute)
	}
	if cfg.RequestsPerDay > 0 {
		l.rpd = newBucket(cfg.RequestsPerDay, 24*time.Hour)
	}
	return l
}

// Wait blocks until one request of estimatedTokens may proceed, or ctx is
// cancelled. The admission is debited from every configured bucket.
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int) error {
	if l == nil {
		return nil
	}

	for {
		l.mu.Lock()
		now := time.Now()

		var delay time.Duration
		if l.rpm != nil {
			delay = max(delay, l.rpm.wait(now, 1))
		}
		if l.tpm != nil {
			delay = max(delay, l.tpm.wait(now, float64(estimatedTokens)))
		}
		if l.rpd != nil {
			delay = max(delay, l.rpd.wait(now, 1))
		}

		if delay == 0 {
			if l.rpm != nil {
				l.rpm.take(1)
			}
			if l.tpm != nil {
				l.tpm.take(float64(estimatedTokens))
			}
			if l.rpd != nil {
				l.rpd.take(1)
			}
			l.mu.Unlock()
			return nil
		}

		l.waiting++
		waiting := l.waiting
		l.mu.Unlock()

		logging.LLMDebug("rate limiter queuing for %v (waiters=%d)", delay, waiting)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			l.mu.Lock()
			l.waiting--
			l.mu.Unlock()
			return ctx.Err()
		}
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}
}
