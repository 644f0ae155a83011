package transform

import "github.com/lua53go/engine/internal/ir"

// MergeBlocks collapses `a -> b` where a ends in a ToNextTerm(b) and b has
// exactly one predecessor in the whole function: b's body is appended to
// a, and a's terminator becomes b's (spec.md 4.3). Runs to a fixed point
// (merging can expose further merge opportunities); each merge installs a
// new Code in fn.Code rather than mutating the old one in place.
func MergeBlocks(fn *ir.IRFunc) {
	for {
		if !mergeOnePass(fn) {
			return
		}
	}
}

func mergeOnePass(fn *ir.IRFunc) bool {
	code := fn.Code
	predCount := countPredecessors(code)

	byLabel := make(map[ir.Label]*ir.BasicBlock, len(code.Blocks))
	for _, b := range code.Blocks {
		byLabel[b.Label] = b
	}

	merged := make(map[ir.Label]bool)
	out := make([]*ir.BasicBlock, 0, len(code.Blocks))
	changed := false

	for _, a := range code.Blocks {
		if merged[a.Label] {
			continue
		}
		next := a
		body := append([]ir.Node(nil), a.Body...)
		term := a.Term
		for {
			jump, ok := term.(*ir.ToNextTerm)
			if !ok {
				break
			}
			target := jump.Target
			if target == next.Label {
				break // self-loop to the block we're already building: don't merge into self
			}
			b, ok := byLabel[target]
			if !ok || predCount[target] != 1 {
				break
			}
			body = append(body, b.Body...)
			term = b.Term
			merged[b.Label] = true
			changed = true
			next = b
		}
		out = append(out, &ir.BasicBlock{Label: a.Label, Body: body, Term: term})
	}

	if changed {
		fn.Code = ir.NewCode(out)
	}
	return changed
}

// countPredecessors counts, for every label, how many *distinct* blocks
// name it as a successor (a block naming itself twice — e.g. a ForTestTerm
// whose Body and Exit happen to coincide — would otherwise inflate the
// count for a merge decision that only cares about distinct predecessors).
func countPredecessors(code *ir.Code) map[ir.Label]int {
	counts := make(map[ir.Label]int)
	for _, b := range code.Blocks {
		seen := make(map[ir.Label]bool)
		for _, s := range b.Term.Successors() {
			if !seen[s] {
				seen[s] = true
				counts[s]++
			}
		}
	}
	return counts
}
