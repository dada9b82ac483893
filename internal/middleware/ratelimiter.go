package middleware

import (
	"sync/atomic"
	"time"
)

// RateLimiter is a lock-free token bucket applied per websocket connection
// to inbound events. Tokens refill at one per interval up to burst.
type RateLimiter struct {
	tokens   int32
	burst    int32
	interval time.Duration
	lastTick int64 // unix millis of the last refill
}

func NewRateLimiter(burst int32, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   burst,
		burst:    burst,
		interval: interval,
		lastTick: time.Now().UnixMilli(),
	}
}

// Allow consumes a token if one is available.
func (l *RateLimiter) Allow() bool {
	now := time.Now().UnixMilli()
	last := atomic.LoadInt64(&l.lastTick)

	if generated := int32((now - last) / l.interval.Milliseconds()); generated > 0 {
		if atomic.CompareAndSwapInt64(&l.lastTick, last, now) {
			balance := atomic.LoadInt32(&l.tokens) + generated
			if balance > l.burst {
				balance = l.burst
			}
			atomic.StoreInt32(&l.tokens, balance)
		}
	}

	for {
		current := atomic.LoadInt32(&l.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&l.tokens, current, current-1) {
			return true
		}
	}
}
