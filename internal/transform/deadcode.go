// Package transform implements the IR-to-IR passes that run after
// internal/analysis and before internal/slots: dead-code pruning, block
// merging, unreachable-block pruning, and code segmentation (spec.md 4.3).
//
// Every pass here follows the "immutable-then-replace" style spec.md
// section 9 asks for: a pass builds a new *ir.Code (or, for dead-code
// pruning, new *ir.BasicBlock.Body slices) rather than mutating an existing
// one in place, grounded on internal/bytecode/optimizer.go's
// currentCode/currentToOriginal rewrite-in-a-copy approach.
package transform

import (
	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
)

// PruneDeadCode removes any LoadConst, VarStore/VarLoad, or MultiGet whose
// destination is not live-out, unless the destination is a reified Var
// (spec.md 4.3). Liveness must have already been computed over fn's
// *current* code; callers run this pass first in the pipeline, before
// block merging invalidates it, and recompute liveness if they need to run
// it again after a later pass.
func PruneDeadCode(fn *ir.IRFunc, li *analysis.LivenessInfo) {
	for _, b := range fn.Code.Blocks {
		kept := make([]ir.Node, 0, len(b.Body))
		for _, n := range b.Body {
			if isDeadCandidate(n) && !isLiveOut(li, n) {
				continue
			}
			kept = append(kept, n)
		}
		b.Body = kept
	}
}

func isDeadCandidate(n ir.Node) bool {
	switch v := n.(type) {
	case *ir.LoadConst:
		return true
	case *ir.VarStore:
		return !v.Dst.Reified
	case *ir.VarLoad:
		return !v.Src.Reified
	case *ir.MultiGet:
		return true
	}
	return false
}

// isLiveOut reports whether n's defined entity is live-out at n (i.e. some
// later point reads it without an intervening redefinition).
func isLiveOut(li *analysis.LivenessInfo, n ir.Node) bool {
	entry := li.At(n)
	// A VarStore has no Defs; whether its destination Var is live-out
	// decides whether the store is kept.
	if vs, ok := n.(*ir.VarStore); ok {
		return entry.IsLiveOut(vs.Dst)
	}
	for _, d := range n.Defs() {
		if entry.IsLiveOut(d) {
			return true
		}
	}
	return false
}
