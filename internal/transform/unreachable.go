package transform

import "github.com/lua53go/engine/internal/ir"

// PruneUnreachable removes blocks not reachable from the entry label,
// computed by a visit/use-count walk over label references (spec.md 4.3).
func PruneUnreachable(fn *ir.IRFunc) {
	code := fn.Code
	reachable := reachableLabels(code)

	kept := make([]*ir.BasicBlock, 0, len(code.Blocks))
	for _, b := range code.Blocks {
		if reachable[b.Label] {
			kept = append(kept, b)
		}
	}
	fn.Code = ir.NewCode(kept)
}

func reachableLabels(code *ir.Code) map[ir.Label]bool {
	byLabel := make(map[ir.Label]*ir.BasicBlock, len(code.Blocks))
	for _, b := range code.Blocks {
		byLabel[b.Label] = b
	}

	visited := map[ir.Label]bool{code.Entry().Label: true}
	queue := []ir.Label{code.Entry().Label}
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		b, ok := byLabel[l]
		if !ok {
			continue
		}
		for _, s := range b.Term.Successors() {
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}
	return visited
}
