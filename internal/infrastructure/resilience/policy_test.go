package resilience

import (
	"testing"
	"time"
)

func TestDefaultConfigMatchesOutboundCallProfile(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RetryInitialBackoff != 250*time.Millisecond || cfg.RetryMaxBackoff != 2*time.Second {
		t.Fatalf("backoff window must span rate-limit recovery, got %v..%v",
			cfg.RetryInitialBackoff, cfg.RetryMaxBackoff)
	}
	if cfg.BreakerMinRequests != 5 {
		t.Fatalf("breaker must trip on a per-document sample size, got %d", cfg.BreakerMinRequests)
	}
	if !cfg.BreakerEnabled {
		t.Fatalf("breaker must be on by default")
	}
}

func TestNormalizeFillsZeroValuesAndOrdersBackoff(t *testing.T) {
	got := Config{
		RetryInitialBackoff: 5 * time.Second,
		RetryMaxBackoff:     1 * time.Second,
	}.normalize()

	if got.RetryMaxBackoff != got.RetryInitialBackoff {
		t.Fatalf("max backoff must not sit below the initial, got %v < %v",
			got.RetryMaxBackoff, got.RetryInitialBackoff)
	}
	if got.RetryMaxAttempts != DefaultConfig().RetryMaxAttempts {
		t.Fatalf("zero attempts must fall back to the default, got %d", got.RetryMaxAttempts)
	}
	if got.BreakerFailureRatio != DefaultConfig().BreakerFailureRatio {
		t.Fatalf("zero failure ratio must fall back to the default, got %v", got.BreakerFailureRatio)
	}
}
