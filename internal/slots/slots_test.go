package slots

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
)

func TestAllocateParamsPreoccupySlots(t *testing.T) {
	gen := ir.NewIDGen()
	p0 := ir.NewVar(gen, "a", ir.VarKindParam)
	p1 := ir.NewVar(gen, "b", ir.VarKindParam)
	m := ir.NewMultiVal(gen, "")

	b0 := &ir.BasicBlock{Term: &ir.RetTerm{Multi: m}}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Params: []*ir.Var{p0, p1}, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	info := Allocate(fn, li)

	if got := info.Slot(p0); got != 0 {
		t.Errorf("param 0 slot = %d, want 0", got)
	}
	if got := info.Slot(p1); got != 1 {
		t.Errorf("param 1 slot = %d, want 1", got)
	}
}

func TestAllocateReusesSlotAfterLastUse(t *testing.T) {
	gen := ir.NewIDGen()
	v1 := ir.NewVal(gen, "")
	v2 := ir.NewVal(gen, "")
	v3 := ir.NewVal(gen, "")
	m := ir.NewMultiVal(gen, "")

	// v1 dies right after producing v2 (v1 + 1 -> v2); v3 is then defined
	// and v1's slot should be free for reuse since v1 is dead by then.
	b0 := &ir.BasicBlock{
		Body: []ir.Node{
			&ir.LoadConst{Dst: v1, Kind: ir.ConstInt, Int: 1},
			&ir.UnOp{Dst: v2, Op: ir.OpUnm, Src: v1},
			&ir.LoadConst{Dst: v3, Kind: ir.ConstInt, Int: 2},
		},
		Term: &ir.RetTerm{Multi: m},
	}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	info := Allocate(fn, li)

	if info.Slot(v1) != info.Slot(v3) {
		t.Errorf("expected v3 to reuse v1's dead slot: slot(v1)=%d slot(v3)=%d", info.Slot(v1), info.Slot(v3))
	}
	// v1 dies at the very node that produces v2 (its only use), so the
	// allocator is free to let v2 reuse v1's slot: that's not a live-range
	// overlap, just an operand read immediately followed by the result write.
}

func TestAllocateOverlappingLiveRangesDistinctSlots(t *testing.T) {
	gen := ir.NewIDGen()
	v1 := ir.NewVal(gen, "")
	v2 := ir.NewVal(gen, "")
	v3 := ir.NewVal(gen, "")
	m := ir.NewMultiVal(gen, "")

	b0 := &ir.BasicBlock{
		Body: []ir.Node{
			&ir.LoadConst{Dst: v1, Kind: ir.ConstInt, Int: 1},
			&ir.LoadConst{Dst: v2, Kind: ir.ConstInt, Int: 2},
			&ir.BinOp{Dst: v3, Op: ir.OpAdd, Left: v1, Right: v2},
		},
		Term: &ir.RetTerm{Multi: m},
	}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	info := Allocate(fn, li)

	if info.Slot(v1) == info.Slot(v2) {
		t.Errorf("v1 and v2 are both live at the BinOp, must not share a slot")
	}
}

func TestAllocateUpVarNeverSlotted(t *testing.T) {
	gen := ir.NewIDGen()
	outer := ir.NewVar(gen, "x", ir.VarKindLocal)
	up := ir.NewUpVar(gen, "x", outer)

	if _, ok := keyOf(up); ok {
		t.Errorf("UpVar must never produce a slot key")
	}
}

// TestAllocateParamSlotMapMatchesExpected builds a name->slot snapshot of a
// three-parameter function's allocation and compares it with go-cmp: a
// plain map deep-equality check reads clearer as a diff than three separate
// Slot() assertions once there are more than a couple of entities to check.
func TestAllocateParamSlotMapMatchesExpected(t *testing.T) {
	gen := ir.NewIDGen()
	a := ir.NewVar(gen, "a", ir.VarKindParam)
	b := ir.NewVar(gen, "b", ir.VarKindParam)
	c := ir.NewVar(gen, "c", ir.VarKindParam)
	m := ir.NewMultiVal(gen, "")

	b0 := &ir.BasicBlock{Term: &ir.RetTerm{Multi: m}}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Params: []*ir.Var{a, b, c}, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	info := Allocate(fn, li)

	got := map[string]int{
		"a": info.Slot(a),
		"b": info.Slot(b),
		"c": info.Slot(c),
	}
	want := map[string]int{"a": 0, "b": 1, "c": 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("param slot assignment mismatch (-want +got):\n%s", diff)
	}
}
