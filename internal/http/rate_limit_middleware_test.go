package httpx

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestMemoryRateLimiterEnforcesLimit(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 0; i < 3; i++ {
		decision := rl.Allow("ip:198.51.100.7", 3, time.Minute)
		if !decision.allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.count != i+1 {
			t.Fatalf("unexpected count %d on request %d", decision.count, i)
		}
	}
	decision := rl.Allow("ip:198.51.100.7", 3, time.Minute)
	if decision.allowed {
		t.Fatalf("fourth request should be blocked")
	}
	if other := rl.Allow("ip:203.0.113.9", 3, time.Minute); !other.allowed {
		t.Fatalf("unrelated key must not be throttled")
	}
}

func TestMemoryRateLimiterWindowReset(t *testing.T) {
	rl := &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
	}
	defer rl.Close()

	if decision := rl.Allow("k", 1, time.Nanosecond); !decision.allowed {
		t.Fatalf("first request should pass")
	}
	time.Sleep(5 * time.Millisecond)
	if decision := rl.Allow("k", 1, time.Nanosecond); !decision.allowed {
		t.Fatalf("expired window should reset the counter")
	}
}

func TestMemoryRateLimiterCleanup(t *testing.T) {
	rl := &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
	}
	rl.Allow("stale", 5, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	rl.cleanup(time.Now())
	if len(rl.entries) != 0 {
		t.Fatalf("expected stale entries to be swept, got %d", len(rl.entries))
	}
}

func TestZeroLimitDisablesThrottling(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	for i := 0; i < 100; i++ {
		if decision := rl.Allow("k", 0, time.Minute); !decision.allowed {
			t.Fatalf("zero limit must allow everything")
		}
	}
}

func TestRateLimitKeyIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/register", nil)
	req.RemoteAddr = "198.51.100.7:4411"
	if key := rateLimitKeyIP(req); key != "ip:198.51.100.7" {
		t.Fatalf("unexpected key: %q", key)
	}
	req.RemoteAddr = "no-port-here"
	if key := rateLimitKeyIP(req); key != "ip:no-port-here" {
		t.Fatalf("unexpected key: %q", key)
	}
}
