package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepTrigger = 1024
)

// clientLimiter keeps one token bucket per client address for the public booking form.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clock   func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perMinute, burst int, clock func() time.Time) *clientLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &clientLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		clock:   clock,
		clients: make(map[string]*clientBucket),
	}
}

// Allow consumes one token for key and reports whether the request may proceed.
func (l *clientLimiter) Allow(key string) bool {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.clients) >= limiterSweepTrigger {
		l.evictIdle(now)
	}
	bucket, ok := l.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *clientLimiter) evictIdle(now time.Time) {
	for key, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
