package guard

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCall_Success(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	got := Call(context.Background(), zap.New(core), "c1", "show", func(context.Context) (int, error) {
		return 42, nil
	}, -1)

	if got != 42 {
		t.Errorf("Call() = %d, want 42", got)
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log entries, got %d", logs.Len())
	}
}

func TestCall_ErrorReturnsDefault(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	got := Call(context.Background(), zap.New(core), "cycle-7", "is_gateway_available", func(context.Context) (string, error) {
		return "ignored", errors.New("timeout")
	}, "N/A")

	if got != "N/A" {
		t.Errorf("Call() = %q, want N/A", got)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["call_id"] != "cycle-7" {
		t.Errorf("call_id = %v", fields["call_id"])
	}
	if fields["method"] != "is_gateway_available" {
		t.Errorf("method = %v", fields["method"])
	}
}

func TestCall_PanicReturnsDefault(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	got := Call(context.Background(), zap.New(core), "c2", "get_priority_interface", func(context.Context) ([]string, error) {
		panic("nil map")
	}, []string{"N/A"})

	if len(got) != 1 || got[0] != "N/A" {
		t.Errorf("Call() = %v, want [N/A]", got)
	}
	if logs.Len() != 1 {
		t.Errorf("expected panic to be logged, got %d entries", logs.Len())
	}
}

func TestCall_NilLogger(t *testing.T) {
	got := Call(context.Background(), nil, "c3", "reset_cached_data", func(context.Context) (bool, error) {
		return false, errors.New("boom")
	}, true)
	if !got {
		t.Errorf("Call() = false, want default true")
	}
}
