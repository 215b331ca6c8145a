package resil

import "time"

// Preset option bundles for common call shapes. Each returns a fresh slice
// so callers can append their own options without sharing state.

// mustBackoff is for package presets whose literal values are known valid.
func mustBackoff(b Backoff, err error) Backoff {
	if err != nil {
		panic(err)
	}

	return b
}

func mustRetryConfig(maxAttempts int, b Backoff, opts ...RetryConfigOption) RetryConfig {
	cfg, err := NewRetryConfig(maxAttempts, b, opts...)
	if err != nil {
		panic(err)
	}

	return cfg
}

// StandardHTTPClient returns options suitable for a typical HTTP client:
// 5s timeout, 3 attempts with 100ms exponential backoff and full jitter, and
// a circuit breaker with a 5-failure threshold and 30s open timeout.
func StandardHTTPClient() []any {
	return []any{
		WithTimeout(5 * time.Second),
		WithRetry(mustRetryConfig(
			3,
			mustBackoff(Exponential(100*time.Millisecond, 2, 10*time.Second)),
			WithJitter(JitterFull),
		)),
		WithCircuitBreaker(
			FailureThreshold(5),
			OpenTimeout(30*time.Second),
		),
	}
}

// AggressiveHTTPClient returns options for latency-sensitive HTTP clients:
// 2s timeout, 5 attempts with 50ms exponential backoff capped at 5s with
// equal jitter, a circuit breaker with a 3-failure threshold and 15s open
// timeout, and a bulkhead of 20 concurrent calls.
func AggressiveHTTPClient() []any {
	return []any{
		WithTimeout(2 * time.Second),
		WithRetry(mustRetryConfig(
			5,
			mustBackoff(Exponential(50*time.Millisecond, 2, 5*time.Second)),
			WithJitter(JitterEqual),
		)),
		WithCircuitBreaker(
			FailureThreshold(3),
			OpenTimeout(15*time.Second),
		),
		WithBulkhead(20),
	}
}

// BackgroundWorker returns options for queue consumers and other
// latency-tolerant work: 10 attempts with 1s exponential backoff capped at
// 2m with decorrelated jitter, and no timeout or breaker.
func BackgroundWorker() []any {
	return []any{
		WithRetry(mustRetryConfig(
			10,
			mustBackoff(Exponential(time.Second, 2, 2*time.Minute)),
			WithJitter(JitterDecorrelated),
		)),
	}
}
