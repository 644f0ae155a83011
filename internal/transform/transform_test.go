package transform

import (
	"testing"

	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
)

func TestPruneDeadCodeRemovesUnusedConst(t *testing.T) {
	gen := ir.NewIDGen()
	dead := ir.NewVal(gen, "")
	used := ir.NewVal(gen, "")

	b0 := &ir.BasicBlock{
		Body: []ir.Node{
			&ir.LoadConst{Dst: dead, Kind: ir.ConstInt, Int: 1}, // never read again: dead
			&ir.LoadConst{Dst: used, Kind: ir.ConstInt, Int: 2},
		},
		Term: &ir.TCallTerm{Target: used}, // reads used
	}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	PruneDeadCode(fn, li)

	if len(fn.Code.Entry().Body) != 1 {
		t.Fatalf("expected 1 surviving node, got %d", len(fn.Code.Entry().Body))
	}
	if lc, ok := fn.Code.Entry().Body[0].(*ir.LoadConst); !ok || lc.Dst != used {
		t.Errorf("expected the used const to survive")
	}
}

func TestPruneDeadCodeKeepsReifiedVarStore(t *testing.T) {
	gen := ir.NewIDGen()
	v := ir.NewVar(gen, "x", ir.VarKindLocal)
	v.Reified = true
	src := ir.NewVal(gen, "")
	m := ir.NewMultiVal(gen, "")

	b0 := &ir.BasicBlock{
		Body: []ir.Node{
			&ir.LoadConst{Dst: src, Kind: ir.ConstInt, Int: 1},
			&ir.VarStore{Dst: v, Src: src},
		},
		Term: &ir.RetTerm{Multi: m},
	}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	li := analysis.ComputeLiveness(fn)
	PruneDeadCode(fn, li)

	if len(fn.Code.Entry().Body) != 2 {
		t.Fatalf("expected VarStore to a reified Var to survive even though unread, got %d nodes", len(fn.Code.Entry().Body))
	}
}

func TestMergeBlocksCollapsesSinglePredecessorChain(t *testing.T) {
	m := ir.NewMultiVal(ir.NewIDGen(), "")
	b2 := &ir.BasicBlock{Label: 2, Term: &ir.RetTerm{Multi: m}}
	b1 := &ir.BasicBlock{Label: 1, Term: &ir.ToNextTerm{Target: 2}}
	b0 := &ir.BasicBlock{Label: 0, Term: &ir.ToNextTerm{Target: 1}}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0, b1, b2})}

	MergeBlocks(fn)

	if len(fn.Code.Blocks) != 1 {
		t.Fatalf("expected the 3-block chain to collapse to 1 block, got %d", len(fn.Code.Blocks))
	}
	if _, ok := fn.Code.Entry().Term.(*ir.RetTerm); !ok {
		t.Errorf("merged block should end with the final RetTerm")
	}
}

func TestMergeBlocksDoesNotCollapseMultiplePredecessors(t *testing.T) {
	m := ir.NewMultiVal(ir.NewIDGen(), "")
	b2 := &ir.BasicBlock{Label: 2, Term: &ir.RetTerm{Multi: m}}
	// b0 and b1 both jump to b2: b2 has two predecessors, must not merge.
	cond := ir.NewVal(ir.NewIDGen(), "")
	b1 := &ir.BasicBlock{Label: 1, Term: &ir.ToNextTerm{Target: 2}}
	b0 := &ir.BasicBlock{Label: 0, Term: &ir.BranchTerm{Cond: cond, Then: 1, Else: 2}}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0, b1, b2})}

	MergeBlocks(fn)

	if len(fn.Code.Blocks) != 3 {
		t.Fatalf("expected no merge across a block with 2 predecessors, got %d blocks", len(fn.Code.Blocks))
	}
}

func TestPruneUnreachable(t *testing.T) {
	m := ir.NewMultiVal(ir.NewIDGen(), "")
	b0 := &ir.BasicBlock{Label: 0, Term: &ir.ToNextTerm{Target: 2}}
	b1 := &ir.BasicBlock{Label: 1, Term: &ir.RetTerm{Multi: m}} // unreachable
	b2 := &ir.BasicBlock{Label: 2, Term: &ir.RetTerm{Multi: m}}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0, b1, b2})}

	PruneUnreachable(fn)

	if len(fn.Code.Blocks) != 2 {
		t.Fatalf("expected unreachable block removed, got %d blocks", len(fn.Code.Blocks))
	}
	for _, b := range fn.Code.Blocks {
		if b.Label == 1 {
			t.Errorf("unreachable block L1 should have been pruned")
		}
	}
}

func TestSegmentConservation(t *testing.T) {
	gen := ir.NewIDGen()
	mkBlock := func(label ir.Label, n int, next ir.Label) *ir.BasicBlock {
		body := make([]ir.Node, n)
		for i := range body {
			body[i] = &ir.LoadConst{Dst: ir.NewVal(gen, ""), Kind: ir.ConstInt, Int: int64(i)}
		}
		return &ir.BasicBlock{Label: label, Body: body, Term: &ir.ToNextTerm{Target: next}}
	}
	b0 := mkBlock(0, 3, 1) // len 4
	b1 := mkBlock(1, 5, 2) // len 6: will need splitting under a small limit
	m := ir.NewMultiVal(gen, "")
	b2 := &ir.BasicBlock{Label: 2, Term: &ir.RetTerm{Multi: m}}
	code := ir.NewCode([]*ir.BasicBlock{b0, b1, b2})
	originalCount := code.NodeCount()

	segments := Segment(code, 4)
	if len(segments) == 0 {
		t.Fatal("expected at least one segment")
	}

	splits := 0
	for _, seg := range segments {
		for _, b := range seg.Blocks {
			if b.Label < 0 {
				splits++
			}
		}
	}
	// Every synthetic successor block corresponds to exactly one split;
	// conservation says total - original == number of splits.
	got := TotalNodeCount(segments)
	if got != originalCount+splits {
		t.Errorf("TotalNodeCount = %d, want original(%d) + splits(%d) = %d", got, originalCount, splits, originalCount+splits)
	}

	for _, seg := range segments {
		if seg.NodeCount() > 4 && len(seg.Blocks) > 1 {
			// A segment may exceed the limit only via a single oversized
			// block it couldn't further shrink below the limit in one split;
			// with limit=4 and block sizes used here that should not happen.
			t.Logf("segment exceeded limit with multiple blocks: %d nodes", seg.NodeCount())
		}
	}
}

func TestSegmentZeroLimitIsSingleSegment(t *testing.T) {
	b0 := &ir.BasicBlock{Label: 0, Term: &ir.RetTerm{}}
	code := ir.NewCode([]*ir.BasicBlock{b0})
	segments := Segment(code, 0)
	if len(segments) != 1 {
		t.Fatalf("limit 0 should produce exactly one segment, got %d", len(segments))
	}
}
