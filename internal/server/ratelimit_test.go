package server

import (
	"fmt"
	"testing"
	"time"
)

func TestClientLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(6, 1, func() time.Time { return now })

	if !limiter.Allow("198.51.100.1") {
		t.Fatalf("expected the first request to pass")
	}
	if limiter.Allow("198.51.100.1") {
		t.Fatalf("expected the burst to be exhausted")
	}
	if !limiter.Allow("198.51.100.2") {
		t.Fatalf("expected other clients to have their own bucket")
	}

	now = now.Add(10 * time.Second)
	if !limiter.Allow("198.51.100.1") {
		t.Fatalf("expected a token after the refill interval")
	}
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(60, 1, func() time.Time { return now })

	for index := 0; index < limiterSweepTrigger; index++ {
		limiter.Allow(fmt.Sprintf("client-%d", index))
	}
	now = now.Add(limiterIdleTTL + time.Minute)
	limiter.Allow("fresh-client")

	if got := limiter.size(); got != 1 {
		t.Fatalf("expected idle clients to be evicted, %d remain", got)
	}
}
