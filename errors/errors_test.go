package errors

import (
	"strings"
	"testing"
)

func TestRuntimeErrorFormatsLine(t *testing.T) {
	err := NewAtLine(IllegalOperationAttempt, 42, "attempt to perform arithmetic on a %s value", "table")
	if got := err.Error(); !strings.Contains(got, "line 42") || !strings.Contains(got, "table") {
		t.Errorf("Error() = %q, want it to mention line 42 and the type", got)
	}
}

func TestNewLuaErrorPreservesNonStringValue(t *testing.T) {
	payload := map[string]any{"code": 7}
	err := NewLuaError(payload)
	if err.Value == nil {
		t.Fatal("expected Value to carry the original thrown value")
	}
	if _, ok := err.Value.(map[string]any); !ok {
		t.Errorf("Value should be the raw payload, got %T", err.Value)
	}
}

func TestInvalidContinuationNotCatchableByPcall(t *testing.T) {
	err := New(InvalidContinuation, "version mismatch")
	if err.CatchableByPcall() {
		t.Error("InvalidContinuation must bypass pcall/xpcall handlers")
	}
	if (New(LuaRuntimeError, "boom")).CatchableByPcall() == false {
		t.Error("LuaRuntimeError must be catchable")
	}
}

func TestIsMatchesByKind(t *testing.T) {
	a := New(ConversionFailure, "first")
	b := New(ConversionFailure, "second")
	if !a.Is(b) {
		t.Error("two RuntimeErrors of the same Kind should match Is()")
	}
	c := New(LuaRuntimeError, "other kind")
	if a.Is(c) {
		t.Error("RuntimeErrors of different Kind should not match Is()")
	}
}
