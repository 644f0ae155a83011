package analysis

import (
	"testing"

	"github.com/lua53go/engine/internal/ir"
)

func TestVerifyClosureIgnoresUnreferencedAbsentChild(t *testing.T) {
	m := ir.NewModule()
	main := &ir.IRFunc{ID: ir.MainFunctionId, Code: trivialCode()}
	m.Add(main)

	// child0 is never added to the module and nothing in main refers to
	// it, so it is not a dependency and the closure check still passes.
	missing := ir.MainFunctionId.Child(0)
	dep := ComputeDependencies(m, main)
	if dep.Contains(missing) {
		t.Fatalf("module has no main/0, ComputeDependencies should not report it")
	}

	if _, ok := VerifyClosure(m); !ok {
		t.Fatalf("a module whose functions only reference each other should verify")
	}
}

func TestMarkReifiedSetsOwningVar(t *testing.T) {
	gen := ir.NewIDGen()
	captured := ir.NewVar(gen, "x", ir.VarKindLocal)
	uv := ir.NewUpVar(gen, "x", captured)

	m := ir.NewModule()
	main := &ir.IRFunc{ID: ir.MainFunctionId, Code: trivialCode()}
	child := &ir.IRFunc{ID: ir.MainFunctionId.Child(0), Upvars: []*ir.UpVar{uv}, Code: trivialCode()}
	m.Add(main)
	m.Add(child)

	if captured.Reified {
		t.Fatalf("captured should start unreified")
	}
	MarkReified(m)
	if !captured.Reified {
		t.Fatalf("MarkReified must mark a Var captured by a child's UpVar as reified")
	}
}

func TestMarkReifiedFollowsTransitiveCapture(t *testing.T) {
	gen := ir.NewIDGen()
	owner := ir.NewVar(gen, "x", ir.VarKindLocal)
	middle := ir.NewUpVar(gen, "x", owner)
	outer := ir.NewTransitiveUpVar(gen, "x", middle)

	m := ir.NewModule()
	main := &ir.IRFunc{ID: ir.MainFunctionId, Code: trivialCode()}
	child := &ir.IRFunc{ID: ir.MainFunctionId.Child(0), Upvars: []*ir.UpVar{middle}, Code: trivialCode()}
	grandchild := &ir.IRFunc{ID: ir.MainFunctionId.Child(0).Child(0), Upvars: []*ir.UpVar{outer}, Code: trivialCode()}
	m.Add(main)
	m.Add(child)
	m.Add(grandchild)

	MarkReified(m)
	if !owner.Reified {
		t.Fatalf("a Var captured two levels deep through a chain of UpVars must still be reified")
	}
}

func TestComputeDependenciesFindsMakeClosureTarget(t *testing.T) {
	gen := ir.NewIDGen()
	dst := ir.NewVal(gen, "f")
	target := ir.MainFunctionId.Child(0)

	m := ir.NewModule()
	main := &ir.IRFunc{
		ID: ir.MainFunctionId,
		Code: ir.NewCode([]*ir.BasicBlock{{
			Body: []ir.Node{&ir.MakeClosure{Dst: dst, Target: target}},
			Term: &ir.RetTerm{},
		}}),
	}
	child := &ir.IRFunc{ID: target, Code: trivialCode()}
	m.Add(main)
	m.Add(child)

	dep := ComputeDependencies(m, main)
	if !dep.Contains(target) {
		t.Fatalf("expected a MakeClosure node to register its target as a dependency")
	}
}

func TestDependencyIDsMatchesContains(t *testing.T) {
	m := ir.NewModule()
	main := &ir.IRFunc{ID: ir.MainFunctionId, Code: trivialCode()}
	child0 := &ir.IRFunc{ID: ir.MainFunctionId.Child(0), Code: trivialCode()}
	child1 := &ir.IRFunc{ID: ir.MainFunctionId.Child(1), Code: trivialCode()}
	m.Add(main)
	m.Add(child0)
	m.Add(child1)

	dep := ComputeDependencies(m, main)
	ids := dep.IDs()
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	for _, id := range ids {
		if !dep.Contains(id) {
			t.Fatalf("IDs() returned %v which Contains rejects", id)
		}
	}
}
