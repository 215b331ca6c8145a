package resil

import "time"

// Hooks holds optional callbacks for toolkit lifecycle events. All fields are
// nil by default; set only the ones you care about. A Hooks value must not be
// mutated after construction; the emit paths read the fields without
// synchronisation, which is safe only while the struct stays read-only.
//
// Adapters for common consumers exist as [ZapHooks] and [MeterHooks];
// [JoinHooks] fans one event stream out to several.
type Hooks struct {
	// OnRetry fires after a failed attempt, before the backoff sleep.
	// attempt is 1-based; delay is the jittered sleep about to happen.
	OnRetry func(attempt int, delay time.Duration, err error)
	// OnCircuitOpen fires when a breaker transitions to open.
	OnCircuitOpen func(breaker string)
	// OnCircuitClose fires when a breaker transitions to closed.
	OnCircuitClose func(breaker string)
	// OnCircuitHalfOpen fires when a breaker starts admitting trials.
	OnCircuitHalfOpen func(breaker string)
	// OnCircuitReject fires when an open breaker rejects a call.
	OnCircuitReject func(breaker string)
	// OnTimeout fires when a call exceeds its deadline.
	OnTimeout func()
	// OnRateLimited fires when a rate limiter rejects a call.
	OnRateLimited func()
	// OnBulkheadFull fires when the bulkhead rejects a call.
	OnBulkheadFull func()
}

func (h *Hooks) emitRetry(attempt int, delay time.Duration, err error) {
	if h != nil && h.OnRetry != nil {
		h.OnRetry(attempt, delay, err)
	}
}

func (h *Hooks) emitCircuitOpen(breaker string) {
	if h != nil && h.OnCircuitOpen != nil {
		h.OnCircuitOpen(breaker)
	}
}

func (h *Hooks) emitCircuitClose(breaker string) {
	if h != nil && h.OnCircuitClose != nil {
		h.OnCircuitClose(breaker)
	}
}

func (h *Hooks) emitCircuitHalfOpen(breaker string) {
	if h != nil && h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen(breaker)
	}
}

func (h *Hooks) emitCircuitReject(breaker string) {
	if h != nil && h.OnCircuitReject != nil {
		h.OnCircuitReject(breaker)
	}
}

func (h *Hooks) emitTimeout() {
	if h != nil && h.OnTimeout != nil {
		h.OnTimeout()
	}
}

func (h *Hooks) emitRateLimited() {
	if h != nil && h.OnRateLimited != nil {
		h.OnRateLimited()
	}
}

func (h *Hooks) emitBulkheadFull() {
	if h != nil && h.OnBulkheadFull != nil {
		h.OnBulkheadFull()
	}
}

// JoinHooks combines several hook sets into one that dispatches each event to
// every non-nil callback, in argument order.
func JoinHooks(hooks ...*Hooks) *Hooks {
	joined := &Hooks{
		OnRetry: func(attempt int, delay time.Duration, err error) {
			for _, h := range hooks {
				h.emitRetry(attempt, delay, err)
			}
		},
		OnCircuitOpen: func(breaker string) {
			for _, h := range hooks {
				h.emitCircuitOpen(breaker)
			}
		},
		OnCircuitClose: func(breaker string) {
			for _, h := range hooks {
				h.emitCircuitClose(breaker)
			}
		},
		OnCircuitHalfOpen: func(breaker string) {
			for _, h := range hooks {
				h.emitCircuitHalfOpen(breaker)
			}
		},
		OnCircuitReject: func(breaker string) {
			for _, h := range hooks {
				h.emitCircuitReject(breaker)
			}
		},
		OnTimeout: func() {
			for _, h := range hooks {
				h.emitTimeout()
			}
		},
		OnRateLimited: func() {
			for _, h := range hooks {
				h.emitRateLimited()
			}
		},
		OnBulkheadFull: func() {
			for _, h := range hooks {
				h.emitBulkheadFull()
			}
		},
	}

	return joined
}
