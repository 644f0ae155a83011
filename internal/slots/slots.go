// Package slots implements the slot allocator (C5, spec.md 4.4): it assigns
// every Var and Val a non-negative storage slot such that any two entities
// simultaneously live share no slot, and hands that mapping to internal/emit
// as the saved-state register layout.
package slots

import (
	"fmt"

	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
)

type entityKey struct {
	kind byte // 'r' = Var, 'v' = Val/PhiVal/MultiVal (slot space is shared across these)
	id   int
}

func keyOf(e any) (entityKey, bool) {
	switch v := e.(type) {
	case *ir.Var:
		return entityKey{kind: 'r', id: v.ID()}, true
	case *ir.Val:
		return entityKey{kind: 'v', id: v.ID()}, true
	case *ir.PhiVal:
		return entityKey{kind: 'v', id: v.ID()}, true
	case *ir.MultiVal:
		return entityKey{kind: 'v', id: v.ID()}, true
	default:
		return entityKey{}, false // *ir.UpVar, or nil: never slotted
	}
}

// SlotAllocInfo is the injection from Var/Val to slot index (spec.md 3.3).
type SlotAllocInfo struct {
	slots  map[entityKey]int
	nSlots int
}

// Slot returns the assigned slot for e, panicking if e was never slotted —
// a use of an un-slotted entity is an allocator bug, not a recoverable
// runtime condition.
func (s *SlotAllocInfo) Slot(e any) int {
	k, ok := keyOf(e)
	if !ok {
		panic(fmt.Sprintf("slots: %T is never slotted (UpVar or nil)", e))
	}
	n, ok := s.slots[k]
	if !ok {
		panic(fmt.Sprintf("slots: no slot assigned for %T", e))
	}
	return n
}

// TrySlot is Slot without the panic, for callers (e.g. the emitter's
// resumption-state layout) that need to know whether an entity was ever
// live rather than assume it must have been.
func (s *SlotAllocInfo) TrySlot(e any) (int, bool) {
	k, ok := keyOf(e)
	if !ok {
		return 0, false
	}
	n, ok := s.slots[k]
	return n, ok
}

// NumSlots is the size the saved-state register array must have.
func (s *SlotAllocInfo) NumSlots() int { return s.nSlots }

// Allocate runs the allocator over fn using liveness already computed for
// fn's current code (spec.md 4.4).
//
// Parameters pre-occupy slots 0..n-1 in declaration order. Blocks are then
// visited breadth-first; at each node, in def order, the allocator picks the
// lowest slot index not occupied by any entity simultaneously live at that
// point and assigns it to the def. A PhiVal assigned on one predecessor edge
// keeps whatever slot a sibling PhiStore already gave it, so every edge into
// the join agrees on where the value lives. UpVars are never slotted, since
// they live in their own cell outside any frame's register array; a reified
// Var still gets a slot, holding the cell reference itself.
func Allocate(fn *ir.IRFunc, li *analysis.LivenessInfo) *SlotAllocInfo {
	s := &SlotAllocInfo{slots: make(map[entityKey]int)}

	for i, p := range fn.Params {
		k, _ := keyOf(p)
		s.slots[k] = i
	}
	next := len(fn.Params)
	used := make(map[int]bool, next)
	for i := 0; i < next; i++ {
		used[i] = true
	}

	order := bfsBlockOrder(fn.Code)
	for _, b := range order {
		for _, n := range b.Body {
			s.assignUses(n.Uses())
			s.assignDefs(n.Defs(), li.At(n), &next)
		}
		termUses, termDefs := splitTerm(b.Term)
		s.assignUses(termUses)
		s.assignDefs(termDefs, li.AtTerm(b.Term), &next)
	}

	s.nSlots = next
	return s
}

// assignUses asserts every used entity (other than UpVars) already has a
// mapping — spec.md 4.4's "on a use, assert a mapping exists".
func (s *SlotAllocInfo) assignUses(uses []any) {
	for _, u := range uses {
		k, ok := keyOf(u)
		if !ok {
			continue
		}
		if _, ok := s.slots[k]; !ok {
			panic(fmt.Sprintf("slots: use of %T before any def reached the allocator", u))
		}
	}
}

// assignDefs assigns slots for entities def'd at a node, choosing the lowest
// slot not occupied by anything both live-in and live-out at that point
// (spec.md 4.4). A PhiVal that already has a mapping from a sibling
// predecessor edge keeps it.
func (s *SlotAllocInfo) assignDefs(defs []any, entry analysis.Entry, next *int) {
	for _, d := range defs {
		k, ok := keyOf(d)
		if !ok {
			continue
		}
		if _, already := s.slots[k]; already {
			continue
		}
		occupied := s.liveOverlap(entry)
		slot := lowestFree(occupied)
		s.slots[k] = slot
		if slot+1 > *next {
			*next = slot + 1
		}
	}
}

// liveOverlap collects the slots held by every entity that is both live-in
// and live-out at entry — the set a fresh def must avoid, since anything
// only live-in (consumed here) or only live-out (not yet defined) cannot
// collide with a def happening at this exact point.
func (s *SlotAllocInfo) liveOverlap(entry analysis.Entry) map[int]bool {
	occ := make(map[int]bool)
	mark := func(e any) {
		k, ok := keyOf(e)
		if !ok {
			return
		}
		if slot, ok := s.slots[k]; ok {
			occ[slot] = true
		}
	}
	for _, e := range entry.LiveInOut() {
		mark(e)
	}
	return occ
}

func lowestFree(occupied map[int]bool) int {
	for i := 0; ; i++ {
		if !occupied[i] {
			return i
		}
	}
}

func bfsBlockOrder(code *ir.Code) []*ir.BasicBlock {
	byLabel := make(map[ir.Label]*ir.BasicBlock, len(code.Blocks))
	for _, b := range code.Blocks {
		byLabel[b.Label] = b
	}
	visited := map[ir.Label]bool{code.Entry().Label: true}
	queue := []*ir.BasicBlock{code.Entry()}
	var order []*ir.BasicBlock
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		order = append(order, b)
		for _, l := range b.Term.Successors() {
			if !visited[l] {
				visited[l] = true
				if nb := byLabel[l]; nb != nil {
					queue = append(queue, nb)
				}
			}
		}
	}
	for _, b := range code.Blocks {
		if !visited[b.Label] {
			order = append(order, b)
			visited[b.Label] = true
		}
	}
	return order
}

func splitTerm(t ir.Terminator) (uses, defs []any) {
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
