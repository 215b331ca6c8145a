package resil

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapHooksLogsRetry(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hooks := ZapHooks(zap.New(core))

	hooks.emitRetry(2, 150*time.Millisecond, errors.New("flaky"))

	entries := logs.FilterMessage("retrying").All()
	if len(entries) != 1 {
		t.Fatalf("got %d 'retrying' entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("level = %v, want warn", entry.Level)
	}

	fields := entry.ContextMap()
	if got := fields["attempt"]; got != int64(2) {
		t.Fatalf("attempt field = %v, want 2", got)
	}
	if got := fields["delay"]; got != 150*time.Millisecond {
		t.Fatalf("delay field = %v, want 150ms", got)
	}
}

func TestZapHooksLogsCircuitTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hooks := ZapHooks(zap.New(core))

	hooks.emitCircuitOpen("payments")
	hooks.emitCircuitHalfOpen("payments")
	hooks.emitCircuitClose("payments")
	hooks.emitCircuitReject("payments")

	if got := logs.Len(); got != 4 {
		t.Fatalf("got %d log entries, want 4", got)
	}

	for _, entry := range logs.All() {
		if got := entry.ContextMap()["breaker"]; got != "payments" {
			t.Fatalf("breaker field = %v, want payments", got)
		}
	}
}

func TestZapHooksCoversEveryEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hooks := ZapHooks(zap.New(core))

	hooks.emitTimeout()
	hooks.emitRateLimited()
	hooks.emitBulkheadFull()

	if got := logs.Len(); got != 3 {
		t.Fatalf("got %d log entries, want 3", got)
	}
}
