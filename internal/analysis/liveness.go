package analysis

import "github.com/lua53go/engine/internal/ir"

// entityKey gives every liveness-tracked entity (Var, Val, PhiVal, MultiVal)
// a small comparable key so sets can be plain maps. UpVars are excluded:
// spec.md 4.4 says "UpVars are never slotted", and symmetrically they are
// never tracked by liveness — a captured outer variable is always valid to
// read/write for as long as the closure exists, independent of any
// in-function live range.
type entityKey struct {
	kind byte // 'r' = Var, 'v' = Val, 'p' = PhiVal, 'm' = MultiVal
	id   int
}

func keyOf(e any) (entityKey, bool) {
	switch v := e.(type) {
	case *ir.Var:
		return entityKey{kind: 'r', id: v.ID()}, true
	case *ir.Val:
		return entityKey{kind: 'v', id: v.ID()}, true
	case *ir.PhiVal:
		return entityKey{kind: 'p', id: v.ID()}, true
	case *ir.MultiVal:
		return entityKey{kind: 'm', id: v.ID()}, true
	default:
		return entityKey{}, false // *ir.UpVar, or nil
	}
}

type entitySet map[entityKey]any

func (s entitySet) clone() entitySet {
	out := make(entitySet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s entitySet) add(e any) {
	if k, ok := keyOf(e); ok {
		s[k] = e
	}
}

func (s entitySet) has(e any) bool {
	k, ok := keyOf(e)
	if !ok {
		return false
	}
	_, present := s[k]
	return present
}

func unionInto(dst, src entitySet) (changed bool) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
			changed = true
		}
	}
	return changed
}

func setsEqual(a, b entitySet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Entry is the liveness state at one program point, split into the Var
// category (plain variable slots) and the Val category (Val/PhiVal/
// MultiVal), matching spec.md 3.3's Entry{inVar, outVar, inVal, outVal}.
type Entry struct {
	InVar, OutVar entitySet
	InVal, OutVal entitySet
}

// IsLiveIn reports whether e is live-in at this point, the predicate the
// "liveness soundness" testable property (spec.md 8) checks against Uses.
func (e Entry) IsLiveIn(entity any) bool {
	return e.InVar.has(entity) || e.InVal.has(entity)
}

// IsLiveOut reports whether e is live-out at this point: read at some later
// point without an intervening redefinition. internal/transform's dead-code
// pass uses this to decide whether a node's definition can be dropped.
func (e Entry) IsLiveOut(entity any) bool {
	return e.OutVar.has(entity) || e.OutVal.has(entity)
}

// LiveInOut returns every entity that is simultaneously live-in and live-out
// at this point — the set internal/slots must not collide a fresh def with
// (spec.md 4.4: "compute the set of slots occupied by entities both live-in
// and live-out at that node").
func (e Entry) LiveInOut() []any {
	var out []any
	for k, v := range e.InVar {
		if _, ok := e.OutVar[k]; ok {
			out = append(out, v)
		}
	}
	for k, v := range e.InVal {
		if _, ok := e.OutVal[k]; ok {
			out = append(out, v)
		}
	}
	return out
}

// LivenessInfo holds one Entry per body node and one per terminator,
// across every block of a function.
type LivenessInfo struct {
	nodeEntries map[ir.Node]Entry
	termEntries map[ir.Terminator]Entry
	blockIn     map[ir.Label]Entry // liveness at the very start of a block
}

// At returns the recorded Entry for a body node.
func (li *LivenessInfo) At(n ir.Node) Entry { return li.nodeEntries[n] }

// AtTerm returns the recorded Entry for a block's terminator.
func (li *LivenessInfo) AtTerm(t ir.Terminator) Entry { return li.termEntries[t] }

// AtBlockEntry returns the liveness state at the very top of a block.
func (li *LivenessInfo) AtBlockEntry(l ir.Label) Entry { return li.blockIn[l] }

// ComputeLiveness runs the backward dataflow pass from spec.md 4.2: for
// each node, in = use ∪ (out - def); a block's in propagates to every
// predecessor's end.out. Iterated on a worklist of labels, breadth-first
// from the entry label, until no set changes.
func ComputeLiveness(fn *ir.IRFunc) *LivenessInfo {
	code := fn.Code
	succs := make(map[ir.Label][]ir.Label, len(code.Blocks))
	for _, b := range code.Blocks {
		succs[b.Label] = b.Term.Successors()
	}

	order := bfsOrder(code)

	blockInVar := make(map[ir.Label]entitySet, len(code.Blocks))
	blockInVal := make(map[ir.Label]entitySet, len(code.Blocks))
	for _, b := range code.Blocks {
		blockInVar[b.Label] = entitySet{}
		blockInVal[b.Label] = entitySet{}
	}

	li := &LivenessInfo{
		nodeEntries: make(map[ir.Node]Entry),
		termEntries: make(map[ir.Terminator]Entry),
		blockIn:     make(map[ir.Label]Entry),
	}

	for changed := true; changed; {
		changed = false
		for _, label := range order {
			b := code.ByLabel(label)
			outVar := entitySet{}
			outVal := entitySet{}
			for _, s := range succs[label] {
				unionInto(outVar, blockInVar[s])
				unionInto(outVal, blockInVal[s])
			}

			// Terminator first (it's the last point in the block).
			termUses, _ := split(b.Term)
			inVarT, inValT := stepBackward(outVar, outVal, termUses, nil)
			li.termEntries[b.Term] = Entry{InVar: inVarT, OutVar: outVar.clone(), InVal: inValT, OutVal: outVal.clone()}

			curVar, curVal := inVarT, inValT
			for i := len(b.Body) - 1; i >= 0; i-- {
				n := b.Body[i]
				uses := filterNonVarStoreAware(n)
				defs := defsOf(n)
				nextVar, nextVal := stepBackward(curVar, curVal, uses, defs)
				li.nodeEntries[n] = Entry{InVar: nextVar, OutVar: curVar.clone(), InVal: nextVal, OutVal: curVal.clone()}
				curVar, curVal = nextVar, nextVal
			}

			if !setsEqual(curVar, blockInVar[label]) || !setsEqual(curVal, blockInVal[label]) {
				blockInVar[label] = curVar
				blockInVal[label] = curVal
				changed = true
			}
			li.blockIn[label] = Entry{InVar: curVar.clone(), InVal: curVal.clone()}
		}
	}
	return li
}

// stepBackward computes in = use ∪ (out - def), split by Var/Val category.
func stepBackward(outVar, outVal entitySet, uses []any, defs []any) (inVar, inVal entitySet) {
	inVar = outVar.clone()
	inVal = outVal.clone()
	for _, d := range defs {
		if k, ok := keyOf(d); ok {
			if k.kind == 'r' {
				delete(inVar, k)
			} else {
				delete(inVal, k)
			}
		}
	}
	for _, u := range uses {
		if k, ok := keyOf(u); ok {
			if k.kind == 'r' {
				inVar[k] = u
			} else {
				inVal[k] = u
			}
		}
	}
	return inVar, inVal
}

// filterNonVarStoreAware implements the VarStore special case (spec.md
// 4.2): a VarStore uses both its destination Var and its source Val, and
// is not treated as defining the destination at all.
func filterNonVarStoreAware(n ir.Node) []any {
	if vs, ok := n.(*ir.VarStore); ok {
		return []any{vs.Dst, vs.Src}
	}
	return n.Uses()
}

func defsOf(n ir.Node) []any {
	if _, ok := n.(*ir.VarStore); ok {
		return nil
	}
	return n.Defs()
}

// split extracts uses/defs from a Terminator. Terminators never define
// entities in this IR, only use them (a Branch's condition, a Ret's
// MultiVal, a tail call's target/args).
func split(t interface{}) (uses, defs []any) {
	switch v := t.(type) {
	case *ir.ToNextTerm:
		return nil, nil
	case *ir.BranchTerm:
		return []any{v.Cond}, nil
	case *ir.ForTestTerm:
		return []any{v.Init, v.Limit, v.Step}, nil
	case *ir.RetTerm:
		if v.Multi == nil {
			return nil, nil
		}
		return []any{v.Multi}, nil
	case *ir.TCallTerm:
		out := make([]any, 0, len(v.Args)+2)
		out = append(out, v.Target)
		for _, a := range v.Args {
			out = append(out, a)
		}
		if v.ArgsTail != nil {
			out = append(out, v.ArgsTail)
		}
		return out, nil
	}
	return nil, nil
}

// bfsOrder returns labels in breadth-first order starting at the entry
// block, which is the worklist order spec.md 4.2 specifies. Unreachable
// blocks (not yet pruned by internal/transform) are appended afterward so
// every block still gets an Entry.
func bfsOrder(code *ir.Code) []ir.Label {
	visited := make(map[ir.Label]bool)
	var order []ir.Label
	queue := []ir.Label{code.Entry().Label}
	visited[code.Entry().Label] = true
	for len(queue) > 0 {
		l := queue[0]
		queue = queue[1:]
		order = append(order, l)
		b := code.ByLabel(l)
		if b == nil {
			continue
		}
		for _, s := range b.Term.Successors() {
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}
	for _, b := range code.Blocks {
		if !visited[b.Label] {
			order = append(order, b.Label)
			visited[b.Label] = true
		}
	}
	return order
}
