// Package resil is a resilience toolkit built around two halves designed to
// nest: a circuit breaker state machine and a retry executor with
// configurable backoff and jitter.
//
// The breaker never retries and the executor never keeps breaker state; they
// compose by wrapping: a retry loop calls through a breaker via [Guard], or
// both are assembled into a [Policy] chain. Breakers are the only shared
// state: one long-lived [CircuitBreaker] per guarded dependency, used by any
// number of concurrent callers. Retry state lives entirely in the call.
//
// Time, sleeping, and randomness are injected through [Clock] and [Rand], so
// every timing-sensitive path can be tested deterministically.
package resil
