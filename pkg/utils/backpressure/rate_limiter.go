package backpressure

import (
	"context"
	"sync"
	"time"

	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

type RateLimiter interface {
	Allow() bool
	AllowN(n int) bool
	Wait(ctx context.Context) error
	Limit() float64
	Burst() int
}

// TokenBucketLimiter refills rate tokens per second up to burst
type TokenBucketLimiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mutex      sync.Mutex
	log        *logger.Logger
}

func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}

	limiter := &TokenBucketLimiter{
		rate:   rate,
		burst:  burst,
		tokens: float64(burst),
		now:    time.Now,
		log:    logger.GetLogger("rate_limiter.token_bucket"),
	}
	limiter.lastUpdate = limiter.now()

	limiter.log.Infof("Token bucket rate limiter created with rate=%.2f, burst=%d", rate, burst)
	return limiter
}

// Allow checks if a single operation is allowed
func (tb *TokenBucketLimiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if they are available
func (tb *TokenBucketLimiter) AllowN(n int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		timer := time.NewTimer(tb.waitTime(1))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (tb *TokenBucketLimiter) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed.Seconds() * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now
}

func (tb *TokenBucketLimiter) waitTime(n int) time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	needed := float64(n) - tb.tokens
	wait := time.Duration(needed / tb.rate * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

// Limit returns the refill rate in tokens per second
func (tb *TokenBucketLimiter) Limit() float64 {
	return tb.rate
}

// Burst returns the burst capacity
func (tb *TokenBucketLimiter) Burst() int {
	return tb.burst
}

// KeyedLimiter keeps one token bucket per key, e.g. per client address
type KeyedLimiter struct {
	rate     float64
	burst    int
	limiters map[string]*TokenBucketLimiter
	mutex    sync.Mutex
}

func NewKeyedLimiter(rate float64, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		limiters: make(map[string]*TokenBucketLimiter),
	}
}

// Allow reports whether key may perform one more operation
func (k *KeyedLimiter) Allow(key string) bool {
	k.mutex.Lock()
	l, ok := k.limiters[key]
	if !ok {
		l = NewTokenBucketLimiter(k.rate, k.burst)
		k.limiters[key] = l
	}
	k.mutex.Unlock()
	return l.Allow()
}
