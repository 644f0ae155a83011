package emit

import (
	"testing"

	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
	"github.com/lua53go/engine/internal/slots"
)

// compile runs the pipeline stages emit depends on directly over a
// hand-built IRFunc, rather than through internal/translate or
// internal/loader: reification, liveness, and slot allocation.
func compile(m *ir.Module, fn *ir.IRFunc, resolve Resolver) *FuncTemplate {
	analysis.MarkReified(m)
	li := analysis.ComputeLiveness(fn)
	sa := slots.Allocate(fn, li)
	types := analysis.ComputeTypes(fn)
	return NewFuncTemplate(fn, sa, types, resolve)
}

type nilResolver struct{}

func (nilResolver) Closure(target ir.FunctionId, upvals []*Cell) runtime.Value {
	return runtime.Nil
}

func newTestCall(state *runtime.StateContext) *runtime.Call {
	return &runtime.Call{State: state, Dispatch: runtime.NewDispatch(state)}
}

// TestClosureInvokeStraightLineArithmetic builds `return (a + b) * 2` over
// two parameters and checks the result comes back without any suspension.
func TestClosureInvokeStraightLineArithmetic(t *testing.T) {
	gen := ir.NewIDGen()
	a := ir.NewVar(gen, "a", ir.VarKindParam)
	b := ir.NewVar(gen, "b", ir.VarKindParam)
	aVal := ir.NewVal(gen, "a")
	bVal := ir.NewVal(gen, "b")
	sum := ir.NewVal(gen, "sum")
	two := ir.NewVal(gen, "two")
	prod := ir.NewVal(gen, "prod")
	results := ir.NewMultiVal(gen, "results")

	fn := &ir.IRFunc{
		ID:     ir.MainFunctionId,
		Params: []*ir.Var{a, b},
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Body: []ir.Node{
				&ir.VarLoad{Dst: aVal, Src: a},
				&ir.VarLoad{Dst: bVal, Src: b},
				&ir.BinOp{Dst: sum, Op: ir.OpAdd, Left: aVal, Right: bVal},
				&ir.LoadConst{Dst: two, Kind: ir.ConstInt, Int: 2},
				&ir.BinOp{Dst: prod, Op: ir.OpMul, Left: sum, Right: two},
				&ir.Bundle{Dst: results, Vals: []*ir.Val{prod}},
			},
			Term: &ir.RetTerm{Multi: results},
		}}),
	}

	m := ir.NewModule()
	m.Add(fn)
	tmpl := compile(m, fn, nilResolver{})
	cl := NewClosure(tmpl, nil)

	call := newTestCall(runtime.NewDefaultStateContext())
	res, err := cl.Invoke(call, []runtime.Value{runtime.Int(3), runtime.Int(4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[0].AsInt() != 14 {
		t.Fatalf("(3+4)*2 = %v, want [14]", res)
	}
}

// TestClosureInvokeBareReturn checks that a RetTerm with a nil Multi (no
// return expressions at all) yields an empty result list rather than
// panicking on a nil MultiVal lookup.
func TestClosureInvokeBareReturn(t *testing.T) {
	fn := &ir.IRFunc{
		ID: ir.MainFunctionId,
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Term:  &ir.RetTerm{},
		}}),
	}
	m := ir.NewModule()
	m.Add(fn)
	tmpl := compile(m, fn, nilResolver{})
	cl := NewClosure(tmpl, nil)

	res, err := cl.Invoke(newTestCall(runtime.NewDefaultStateContext()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("bare return should yield no values, got %v", res)
	}
}

// TestClosureInvokeSuspendingCall exercises a Call node whose target
// suspends via YieldSignal, confirming Closure.Invoke's frame parks
// correctly and Call.Resume can drive it to completion on a second Resume.
// The host callable reaches the function through an upvalue cell (UpLoad),
// the same mechanism a real translator uses for any captured binding.
func TestClosureInvokeSuspendingCall(t *testing.T) {
	gen := ir.NewIDGen()
	hostUV := ir.NewUpVar(gen, "host", ir.NewVar(gen, "host_outer", ir.VarKindLocal))
	fnVal := ir.NewVal(gen, "host")
	argVal := ir.NewVal(gen, "arg")
	results := ir.NewMultiVal(gen, "results")

	fn := &ir.IRFunc{
		ID:     ir.MainFunctionId,
		Upvars: []*ir.UpVar{hostUV},
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Body: []ir.Node{
				&ir.UpLoad{Dst: fnVal, Src: hostUV},
				&ir.LoadConst{Dst: argVal, Kind: ir.ConstInt, Int: 7},
				&ir.Call{Dst: results, Target: fnVal, Args: []*ir.Val{argVal}},
			},
			Term: &ir.RetTerm{Multi: results},
		}}),
	}

	m := ir.NewModule()
	m.Add(fn)
	tmpl := compile(m, fn, nilResolver{})
	cl := NewClosure(tmpl, []*Cell{{V: runtime.Function(&yieldOnceCallable{})}})

	state := runtime.NewDefaultStateContext()
	call := runtime.NewCall(runtime.Function(cl), nil, state, nil)

	outcome, err := call.Resume(call.Continuation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Done {
		t.Fatalf("expected the call to pause on the host's yield, got done=%v", outcome)
	}

	outcome, err = call.Resume(outcome.Continuation)
	if err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	if !outcome.Done {
		t.Fatalf("expected completion after the second resume, got %+v", outcome)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].AsInt() != 7 {
		t.Fatalf("got %v, want [7]", outcome.Results)
	}
}

// yieldOnceCallable suspends exactly once via YieldSignal, then on the
// resumed segment returns its own single argument unchanged.
type yieldOnceCallable struct{}

func (*yieldOnceCallable) Name() string { return "yielder" }
func (*yieldOnceCallable) Invoke(call *runtime.Call, args []runtime.Value) ([]runtime.Value, error) {
	return (&yieldOnceFrame{arg: args[0]}).Run(call, nil)
}

type yieldOnceFrame struct {
	arg   runtime.Value
	point int
}

func (f *yieldOnceFrame) IsErrorHandler() bool { return false }
func (f *yieldOnceFrame) Run(call *runtime.Call, pendingErr error) ([]runtime.Value, error) {
	if f.point == 0 {
		f.point = 1
		sig := &runtime.YieldSignal{Values: []runtime.Value{f.arg}}
		sig.PushFrame(&runtime.ResumeInfo{Frame: f})
		panic(sig)
	}
	return []runtime.Value{f.arg}, nil
}

// TestClosureInvokeCapturesReifiedVar builds a parent that declares a local
// captured by a child's UpVar (MakeClosure{Sources: [{Var: x}]}) and checks
// the Resolver receives the exact Cell backing the parent's reified Var,
// holding the value the parent stored into it.
func TestClosureInvokeCapturesReifiedVar(t *testing.T) {
	gen := ir.NewIDGen()
	x := ir.NewVar(gen, "x", ir.VarKindLocal)
	uv := ir.NewUpVar(gen, "x", x)
	initVal := ir.NewVal(gen, "init")
	fnVal := ir.NewVal(gen, "closure")

	childID := ir.MainFunctionId.Child(0)
	child := &ir.IRFunc{
		ID:     childID,
		Upvars: []*ir.UpVar{uv},
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Term:  &ir.RetTerm{},
		}}),
	}

	parent := &ir.IRFunc{
		ID: ir.MainFunctionId,
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Body: []ir.Node{
				&ir.LoadConst{Dst: initVal, Kind: ir.ConstInt, Int: 10},
				&ir.VarInit{Dst: x, Src: initVal},
				&ir.MakeClosure{Dst: fnVal, Target: childID, Sources: []ir.UpvalSource{{Var: x}}},
			},
			Term: &ir.RetTerm{},
		}}),
	}

	m := ir.NewModule()
	m.Add(parent)
	m.Add(child)

	var captured []*Cell
	resolve := capturingResolver{out: &captured}
	tmpl := compile(m, parent, resolve)
	cl := NewClosure(tmpl, nil)

	call := newTestCall(runtime.NewDefaultStateContext())
	if _, err := cl.Invoke(call, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected MakeClosure to resolve exactly one upvalue cell, got %d", len(captured))
	}
	if captured[0].V.AsInt() != 10 {
		t.Fatalf("captured cell holds %v, want 10 (the Var's initial value)", captured[0].V)
	}
	if !x.Reified {
		t.Fatalf("x should have been marked reified by MarkReified (captured via the child's UpVar)")
	}
}

// TestClosureInvokeTailCallRoutesThroughReturnBuffer builds `return
// adder(x)` as a TCallTerm to a host callable and drives it through
// Call.Resume, confirming the tail-call path reaches the callee's result
// through ReturnBuffer.IsCall rather than a direct recursive invocation.
func TestClosureInvokeTailCallRoutesThroughReturnBuffer(t *testing.T) {
	gen := ir.NewIDGen()
	x := ir.NewVar(gen, "x", ir.VarKindParam)
	hostUV := ir.NewUpVar(gen, "adder", ir.NewVar(gen, "adder_outer", ir.VarKindLocal))
	fnVal := ir.NewVal(gen, "adder")
	xVal := ir.NewVal(gen, "x")

	fn := &ir.IRFunc{
		ID:     ir.MainFunctionId,
		Params: []*ir.Var{x},
		Upvars: []*ir.UpVar{hostUV},
		Code: ir.NewCode([]*ir.BasicBlock{{
			Label: 0,
			Body: []ir.Node{
				&ir.UpLoad{Dst: fnVal, Src: hostUV},
				&ir.VarLoad{Dst: xVal, Src: x},
			},
			Term: &ir.TCallTerm{Target: fnVal, Args: []*ir.Val{xVal}},
		}}),
	}

	m := ir.NewModule()
	m.Add(fn)
	tmpl := compile(m, fn, nilResolver{})
	cl := NewClosure(tmpl, []*Cell{{V: runtime.Function(&incrCallable{})}})

	state := runtime.NewDefaultStateContext()
	call := runtime.NewCall(runtime.Function(cl), []runtime.Value{runtime.Int(7)}, state, nil)

	outcome, err := call.Resume(call.Continuation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Done {
		t.Fatalf("expected the tail call to finish in one resume, got %+v", outcome)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].AsInt() != 8 {
		t.Fatalf("got %v, want [8]", outcome.Results)
	}
}

// incrCallable returns its single argument plus one, standing in for a
// second Lua function a tail call hands off to.
type incrCallable struct{}

func (*incrCallable) Name() string { return "incr" }
func (*incrCallable) Invoke(call *runtime.Call, args []runtime.Value) ([]runtime.Value, error) {
	return []runtime.Value{runtime.Int(args[0].AsInt() + 1)}, nil
}

type capturingResolver struct {
	out *[]*Cell
}

func (r capturingResolver) Closure(target ir.FunctionId, upvals []*Cell) runtime.Value {
	*r.out = append(*r.out, upvals...)
	return runtime.Nil
}
