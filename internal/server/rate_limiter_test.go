package server

import "testing"

// TestRateLimiterBudget verifies the burst is honored and exhausting it
// denies further events until tokens refill.
func TestRateLimiterBudget(t *testing.T) {
	rl := newRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("event %d denied within burst", i+1)
		}
	}
	if rl.allow() {
		t.Error("event allowed after burst was exhausted")
	}
}

// TestRateLimiterSanitizesCapacity verifies a non-positive budget falls back
// to a minimal limiter instead of denying everything.
func TestRateLimiterSanitizesCapacity(t *testing.T) {
	rl := newRateLimiter(0)
	if !rl.allow() {
		t.Error("first event denied with sanitized capacity")
	}
}
