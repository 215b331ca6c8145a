package resil

import (
	"time"

	"go.uber.org/zap"
)

// ZapHooks returns a [Hooks] that logs every lifecycle event through logger.
// Retries and rejections log at warn, state transitions at info. Combine with
// your own callbacks via [JoinHooks].
func ZapHooks(logger *zap.Logger) *Hooks {
	return &Hooks{
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		},
		OnCircuitOpen: func(breaker string) {
			logger.Warn("circuit opened", zap.String("breaker", breaker))
		},
		OnCircuitClose: func(breaker string) {
			logger.Info("circuit closed", zap.String("breaker", breaker))
		},
		OnCircuitHalfOpen: func(breaker string) {
			logger.Info("circuit half-open", zap.String("breaker", breaker))
		},
		OnCircuitReject: func(breaker string) {
			logger.Warn("circuit rejected call", zap.String("breaker", breaker))
		},
		OnTimeout: func() {
			logger.Warn("call timed out")
		},
		OnRateLimited: func() {
			logger.Warn("call rate limited")
		},
		OnBulkheadFull: func() {
			logger.Warn("bulkhead full")
		},
	}
}
