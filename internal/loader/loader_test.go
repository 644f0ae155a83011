package loader

import (
	"testing"

	"github.com/lua53go/engine/internal/emit"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
)

func straightLineModule() (*ir.Module, *ir.Val) {
	gen := ir.NewIDGen()
	one := ir.NewVal(gen, "one")
	two := ir.NewVal(gen, "two")
	sum := ir.NewVal(gen, "sum")
	results := ir.NewMultiVal(gen, "results")

	mainFn := &ir.IRFunc{
		ID: ir.MainFunctionId,
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Body: []ir.Node{
				&ir.LoadConst{Dst: one, Kind: ir.ConstInt, Int: 1},
				&ir.LoadConst{Dst: two, Kind: ir.ConstInt, Int: 2},
				&ir.BinOp{Dst: sum, Op: ir.OpAdd, Left: one, Right: two},
				&ir.Bundle{Dst: results, Vals: []*ir.Val{sum}},
			},
			Term: &ir.RetTerm{Multi: results},
		}}),
	}
	mod := ir.NewModule()
	mod.Add(mainFn)
	return mod, sum
}

func TestLoaderLoadAndInvoke(t *testing.T) {
	mod, _ := straightLineModule()
	ld := New(mod, DefaultOptions())

	entry, err := ld.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := runtime.NewDefaultStateContext()
	call := runtime.NewCall(entry, nil, state, nil)
	outcome, err := call.Resume(call.Continuation())
	if err != nil {
		t.Fatalf("resume error: %v", err)
	}
	if !outcome.Done {
		t.Fatalf("expected the call to finish immediately, got %+v", outcome)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].AsInt() != 3 {
		t.Fatalf("1+2 = %v, want [3]", outcome.Results)
	}
}

func TestLoaderMissingFunctionErrors(t *testing.T) {
	mod := ir.NewModule()
	ld := New(mod, DefaultOptions())

	if _, err := ld.Load(); err == nil {
		t.Fatalf("expected an error for a module with no main function")
	}
}

// TestLoaderClosureSharesSingletonForPureFunction checks spec.md 4.5's "an
// INSTANCE singleton field iff the function has no upvalues": two Closure
// calls for the same no-upvalue id must hand back the same runtime.Value,
// not two independently-allocated closures.
func TestLoaderClosureSharesSingletonForPureFunction(t *testing.T) {
	gen := ir.NewIDGen()
	results := ir.NewMultiVal(gen, "results")
	pureFn := &ir.IRFunc{
		ID:   ir.NewFunctionId("pure"),
		Code: ir.NewCode([]*ir.BasicBlock{{Label: 0, Term: &ir.RetTerm{Multi: results}}}),
	}
	mainFn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{{Label: 0, Term: &ir.RetTerm{}}})}

	mod := ir.NewModule()
	mod.Add(mainFn)
	mod.Add(pureFn)
	ld := New(mod, DefaultOptions())

	v1 := ld.Closure(pureFn.ID, nil)
	v2 := ld.Closure(pureFn.ID, nil)

	c1, ok1 := v1.Data.(*emit.Closure)
	c2, ok2 := v2.Data.(*emit.Closure)
	if !ok1 || !ok2 {
		t.Fatalf("expected both values to wrap *emit.Closure, got %T and %T", v1.Data, v2.Data)
	}
	if c1 != c2 {
		t.Errorf("expected the same singleton closure for repeated Closure() calls on a no-upvalue function")
	}
}
