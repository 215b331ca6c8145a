package resil

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Policies map[string]PolicyConfig `json:"policies"`
	}

	// PolicyConfig holds the decoded configuration for a single resilience
	// policy. Embed it in your own app config structs for JSON unmarshaling,
	// then call [BuildOptions] to obtain functional options for [NewPolicy].
	PolicyConfig struct {
		// CircuitBreaker configures the circuit breaker pattern.
		// Optional. Example: {"failure_threshold": 5}.
		CircuitBreaker *CircuitBreakerSettings `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
		// Retry configures the retry pattern.
		// Optional. Example: {"max_attempts": 3, "backoff": "exponential"}.
		Retry *RetrySettings `json:"retry,omitempty" yaml:"retry,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Parsed via time.ParseDuration. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// RateLimit is the maximum calls per second.
		// Optional. Example: 100.
		RateLimit *float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
		// Bulkhead is the maximum concurrent calls.
		// Optional. Example: 10.
		Bulkhead *int `json:"bulkhead,omitempty" yaml:"bulkhead,omitempty"`
	}

	// CircuitBreakerSettings holds circuit breaker configuration values.
	CircuitBreakerSettings struct {
		// OpenTimeout is the duration the breaker stays open before
		// admitting a trial. Optional. Parsed via time.ParseDuration.
		// Example: "30s".
		OpenTimeout *string `json:"open_timeout,omitempty" yaml:"open_timeout,omitempty"`
		// FailureThreshold is the number of consecutive failures before
		// opening. Optional. Example: 5.
		FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
		// SuccessThreshold is the number of consecutive half-open successes
		// before closing. Optional. Example: 2.
		SuccessThreshold *int `json:"success_threshold,omitempty" yaml:"success_threshold,omitempty"`
		// HalfOpenMaxCalls caps concurrent trial calls in half-open.
		// Optional. Example: 1.
		HalfOpenMaxCalls *int `json:"half_open_max_calls,omitempty" yaml:"half_open_max_calls,omitempty"`
	}

	// RetrySettings holds retry configuration values.
	RetrySettings struct {
		// Backoff is the backoff strategy name.
		// Required. One of: "immediate", "constant", "linear", "exponential".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// InitialDelay is the base delay for backoff calculation.
		// Required except for "immediate". Parsed via time.ParseDuration.
		// Example: "100ms".
		InitialDelay *string `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
		// MaxDelay caps the computed delay.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		// Multiplier is the exponential growth factor. Must be > 1.
		// Optional, defaults to 2. Ignored by non-exponential strategies.
		Multiplier *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		// Jitter is the jitter mode name.
		// Optional. One of: "none", "full", "equal", "decorrelated".
		Jitter *string `json:"jitter,omitempty" yaml:"jitter,omitempty"`
		// MaxAttempts is the total number of attempts, first call included.
		// Required. Example: 3.
		MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
		// RetryCircuitOpen, when true, lets the policy keep retrying after
		// an open-circuit rejection. Optional, defaults to false.
		RetryCircuitOpen *bool `json:"retry_circuit_open,omitempty" yaml:"retry_circuit_open,omitempty"`
	}
)

// LoadConfig reads a JSON configuration file and stores the policy
// configurations in a [Registry]. Actual [Policy] instances are not created
// until [GetPolicy] is called, allowing the caller to provide type
// parameters and additional code-level options.
//
// Duration values (timeout, open_timeout, initial_delay, max_delay) are
// parsed using [time.ParseDuration].
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("resil: read config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("resil: parse config: %w", err)
	}

	// Validate all policies eagerly so errors surface at load time.
	for name, pc := range cfg.Policies {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("resil: policy %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = cfg.Policies
	reg.mu.Unlock()

	return reg, nil
}

// BuildOptions converts a [PolicyConfig] into a slice of functional option
// values suitable for [NewPolicy]. Use this when you embed [PolicyConfig] in
// your own config struct and want to build a policy without going through
// [LoadConfig].
func BuildOptions(pc *PolicyConfig) ([]any, error) {
	var opts []any

	if pc.Timeout != nil {
		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		opts = append(opts, WithTimeout(d))
	}

	if pc.CircuitBreaker != nil {
		cbOpts, err := buildBreakerOptions(pc.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("circuit_breaker: %w", err)
		}

		opts = append(opts, WithCircuitBreaker(cbOpts...))
	}

	if pc.Retry != nil {
		cfg, err := buildRetryConfig(pc.Retry)
		if err != nil {
			return nil, fmt.Errorf("retry: %w", err)
		}

		opts = append(opts, WithRetry(cfg))
	}

	if pc.RateLimit != nil {
		opts = append(opts, WithRateLimit(*pc.RateLimit))
	}

	if pc.Bulkhead != nil {
		opts = append(opts, WithBulkhead(*pc.Bulkhead))
	}

	return opts, nil
}

func buildBreakerOptions(cbs *CircuitBreakerSettings) ([]BreakerOption, error) {
	var cbOpts []BreakerOption

	if cbs.FailureThreshold != nil {
		cbOpts = append(cbOpts, FailureThreshold(*cbs.FailureThreshold))
	}

	if cbs.SuccessThreshold != nil {
		cbOpts = append(cbOpts, SuccessThreshold(*cbs.SuccessThreshold))
	}

	if cbs.OpenTimeout != nil {
		d, err := time.ParseDuration(*cbs.OpenTimeout)
		if err != nil {
			return nil, fmt.Errorf("open_timeout: %w", err)
		}

		cbOpts = append(cbOpts, OpenTimeout(d))
	}

	if cbs.HalfOpenMaxCalls != nil {
		cbOpts = append(cbOpts, HalfOpenMaxCalls(*cbs.HalfOpenMaxCalls))
	}

	return cbOpts, nil
}

func buildRetryConfig(rs *RetrySettings) (RetryConfig, error) {
	backoff, err := parseBackoff(rs)
	if err != nil {
		return RetryConfig{}, err
	}

	if rs.MaxAttempts == nil {
		return RetryConfig{}, fmt.Errorf("max_attempts is required")
	}

	var retryOpts []RetryConfigOption

	if rs.Jitter != nil {
		jitter, jitterErr := parseJitter(*rs.Jitter)
		if jitterErr != nil {
			return RetryConfig{}, jitterErr
		}

		retryOpts = append(retryOpts, WithJitter(jitter))
	}

	if rs.RetryCircuitOpen != nil && *rs.RetryCircuitOpen {
		retryOpts = append(retryOpts, RetryOnCircuitOpen())
	}

	return NewRetryConfig(*rs.MaxAttempts, backoff, retryOpts...)
}

// parseBackoff maps a backoff name plus delay fields to a [Backoff].
func parseBackoff(rs *RetrySettings) (Backoff, error) {
	if rs.Backoff == nil {
		return Backoff{}, fmt.Errorf("backoff is required")
	}

	name := *rs.Backoff

	if name == "immediate" {
		return Immediate(), nil
	}

	if rs.InitialDelay == nil {
		return Backoff{}, fmt.Errorf("initial_delay is required for %q backoff", name)
	}

	initial, err := time.ParseDuration(*rs.InitialDelay)
	if err != nil {
		return Backoff{}, fmt.Errorf("initial_delay: %w", err)
	}

	maxDelay := initial
	if rs.MaxDelay != nil {
		maxDelay, err = time.ParseDuration(*rs.MaxDelay)
		if err != nil {
			return Backoff{}, fmt.Errorf("max_delay: %w", err)
		}
	}

	switch name {
	case "constant":
		return Constant(initial)
	case "linear":
		return Linear(initial, maxDelay)
	case "exponential":
		multiplier := 2.0
		if rs.Multiplier != nil {
			multiplier = *rs.Multiplier
		}

		return Exponential(initial, multiplier, maxDelay)
	default:
		return Backoff{}, fmt.Errorf("unknown backoff strategy: %q", name)
	}
}

func parseJitter(name string) (Jitter, error) {
	switch name {
	case "none":
		return JitterNone, nil
	case "full":
		return JitterFull, nil
	case "equal":
		return JitterEqual, nil
	case "decorrelated":
		return JitterDecorrelated, nil
	default:
		return JitterNone, fmt.Errorf("unknown jitter mode: %q", name)
	}
}

// GetPolicy retrieves a named policy configuration from a config-loaded
// [Registry] and returns a typed [Policy] ready for use with [Policy.Do].
// If the name is not found in the stored configs, a bare policy is created
// with only the provided opts.
//
// User-provided options are applied after config options, so they take
// precedence.
func GetPolicy[T any](reg *Registry, name string, opts ...any) (*Policy[T], error) {
	reg.mu.Lock()
	pc, ok := reg.configs[name]
	reg.mu.Unlock()

	var allOpts []any

	allOpts = append(allOpts, WithRegistry(reg))

	if ok {
		configOpts, err := BuildOptions(&pc)
		if err != nil {
			return nil, fmt.Errorf("resil: policy %q: %w", name, err)
		}

		allOpts = append(allOpts, configOpts...)
	}

	allOpts = append(allOpts, opts...)

	return NewPolicy[T](name, allOpts...)
}
