package runtime

import (
	"context"
	"testing"

	lerr "github.com/lua53go/engine/errors"
)

func TestRunAllCollectsResultsInOrder(t *testing.T) {
	state := NewDefaultStateContext()
	makeCall := func(n int64) *Call {
		double := &nativeCallable{
			name: "double",
			fn: func(call *Call, args []Value) ([]Value, error) {
				return []Value{Int(args[0].AsInt() * 2)}, nil
			},
		}
		return NewCall(Function(double), []Value{Int(n)}, state, nil)
	}

	calls := []*Call{makeCall(1), makeCall(2), makeCall(3)}
	pool := NewCallPool(2)

	outcomes, err := RunAll(context.Background(), pool, calls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{2, 4, 6}
	for i, w := range want {
		if !outcomes[i].Done || outcomes[i].Results[0].AsInt() != w {
			t.Fatalf("call %d: got %+v, want result %d", i, outcomes[i], w)
		}
	}
}

func TestRunAllSurfacesPerCallLuaError(t *testing.T) {
	state := NewDefaultStateContext()
	failing := &nativeCallable{
		name: "boom",
		fn: func(call *Call, args []Value) ([]Value, error) {
			return nil, lerr.New(lerr.IllegalOperationAttempt, "boom")
		},
	}
	call := NewCall(Function(failing), nil, state, nil)

	pool := NewCallPool(0)
	outcomes, err := RunAll(context.Background(), pool, []*Call{call})
	if err != nil {
		t.Fatalf("RunAll itself should not error on a Lua-level failure: %v", err)
	}
	if !outcomes[0].Done || outcomes[0].Err == nil {
		t.Fatalf("expected a failed-but-done outcome, got %+v", outcomes[0])
	}
}
