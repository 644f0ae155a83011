// Package analysis implements the dataflow passes that run over internal/ir
// before internal/transform and internal/slots: type propagation, liveness,
// and nested-reference dependency collection (spec.md section 4.2).
package analysis

import "github.com/lua53go/engine/internal/ir"

// Type is one element of the Lua type lattice (spec.md 3.3). It is a flat
// enumeration, not a subtyping lattice object, because the only subtyping
// relationship the spec defines is the numeric family (Integer/Float both
// subtype Number); BinOpType and Combine hard-code that one relationship.
type Type int

const (
	TAny Type = iota
	TNil
	TBool
	TNumber // generic numeric, neither known-integer nor known-float
	TInteger
	TFloat
	TString
	TTable
	TFunction
	TThread
	TUserdata
	// TDynamic names "any runtime tag is possible" as its own element of
	// the type list. No propagation rule below produces it: a load of a
	// reified Var is typed TAny (spec.md 4.2), not TDynamic.
	TDynamic
)

func (t Type) String() string {
	names := [...]string{"any", "nil", "boolean", "number", "number-integer",
		"number-float", "string", "table", "function", "thread", "userdata", "dynamic"}
	if int(t) < len(names) {
		return names[t]
	}
	return "?"
}

// IsNumberSubtype reports whether t is one of Number/Integer/Float.
func IsNumberSubtype(t Type) bool {
	return t == TNumber || t == TInteger || t == TFloat
}

// Combine merges two types seen for the same entity across different
// definitions (used for PhiVal, whose defining PhiStores may disagree).
// Equal types combine to themselves; two numeric subtypes widen to the
// generic TNumber; anything else widens all the way to TAny.
func Combine(a, b Type) Type {
	if a == b {
		return a
	}
	if IsNumberSubtype(a) && IsNumberSubtype(b) {
		return TNumber
	}
	return TAny
}

// BinOpType implements the ternary numeric lattice rules from spec.md 4.2.
func BinOpType(op ir.BinOpKind, left, right Type) Type {
	switch {
	case op.IsComparison():
		return TBool
	case op == ir.OpConcat:
		return TString
	case op.IsBitwise():
		if IsNumberSubtype(left) && IsNumberSubtype(right) {
			return TInteger
		}
		return TAny
	case op.IsArithmetic():
		if op == ir.OpDiv || op == ir.OpPow {
			if IsNumberSubtype(left) && IsNumberSubtype(right) {
				return TFloat
			}
			return TAny
		}
		if left == TInteger && right == TInteger {
			return TInteger
		}
		if IsNumberSubtype(left) && IsNumberSubtype(right) && (left == TFloat || right == TFloat) {
			return TFloat
		}
		if IsNumberSubtype(left) && IsNumberSubtype(right) {
			return TNumber
		}
		return TAny
	}
	return TAny
}

// UnOpType covers the four unary operators.
func UnOpType(op ir.UnOpKind, src Type) Type {
	switch op {
	case ir.OpUnm:
		if src == TInteger || src == TFloat || src == TNumber {
			return src
		}
		return TAny
	case ir.OpBNot:
		if IsNumberSubtype(src) {
			return TInteger
		}
		return TAny
	case ir.OpLen:
		return TInteger
	case ir.OpNot:
		return TBool
	}
	return TAny
}

// TypeInfo is the per-function result of type propagation: an inferred
// type for every Val and MultiVal. Var reification flags live directly on
// *ir.Var (set by MarkReified, which needs whole-module context) rather
// than in this per-function struct.
type TypeInfo struct {
	valTypes   map[int]Type
	multiTypes map[int]Type
}

// ValType returns the inferred type of v, or TAny if v was never recorded
// (which should not happen for a well-formed function).
func (ti *TypeInfo) ValType(v *ir.Val) Type {
	if v == nil {
		return TAny
	}
	if t, ok := ti.valTypes[v.ID()]; ok {
		return t
	}
	return TAny
}

// MultiType returns the inferred type of a MultiVal's elements. Lua
// function calls can return heterogeneous results, so in practice this is
// almost always TAny; it exists for symmetry and for the (common) case of
// a MultiVal fed entirely by `...` in a context where the function is known
// never to receive anything but numbers, etc. — a narrowing this
// implementation does not attempt, so it always reports TAny today.
func (ti *TypeInfo) MultiType(v *ir.MultiVal) Type {
	if v == nil {
		return TAny
	}
	if t, ok := ti.multiTypes[v.ID()]; ok {
		return t
	}
	return TAny
}

// ComputeTypes runs abstract interpretation to a fixed point over fn's
// code, implementing spec.md 4.2's type propagation pass.
func ComputeTypes(fn *ir.IRFunc) *TypeInfo {
	ti := &TypeInfo{valTypes: make(map[int]Type), multiTypes: make(map[int]Type)}

	// Parameters start life as TAny: the spec gives no rule for narrowing a
	// formal parameter's type from its declaration alone.
	phiDefs := make(map[int][]Type) // PhiVal id -> every type seen defining it

	for changed := true; changed; {
		changed = false
		fn.Code.Walk(func(_ *ir.BasicBlock, n ir.Node) {
			switch v := n.(type) {
			case *ir.LoadConst:
				var t Type
				switch v.Kind {
				case ir.ConstNil:
					t = TNil
				case ir.ConstBool:
					t = TBool
				case ir.ConstInt:
					t = TInteger
				case ir.ConstFlt:
					t = TFloat
				case ir.ConstStr:
					t = TString
				}
				changed = ti.setVal(v.Dst, t) || changed
			case *ir.BinOp:
				t := BinOpType(v.Op, ti.ValType(v.Left), ti.ValType(v.Right))
				changed = ti.setVal(v.Dst, t) || changed
			case *ir.UnOp:
				t := UnOpType(v.Op, ti.ValType(v.Src))
				changed = ti.setVal(v.Dst, t) || changed
			case *ir.Concat:
				changed = ti.setVal(v.Dst, TString) || changed
			case *ir.ToNumber:
				changed = ti.setVal(v.Dst, TNumber) || changed
			case *ir.TabNew:
				changed = ti.setVal(v.Dst, TTable) || changed
			case *ir.TabGet:
				changed = ti.setVal(v.Dst, TAny) || changed
			case *ir.VarLoad:
				changed = ti.setVal(v.Dst, varLoadType(v.Src)) || changed
			case *ir.UpLoad:
				changed = ti.setVal(v.Dst, TAny) || changed
			case *ir.PhiLoad:
				if types, ok := phiDefs[v.Src.ID()]; ok {
					combined := combineAll(types)
					changed = ti.setVal(v.Dst, combined) || changed
				}
			case *ir.PhiStore:
				t := ti.ValType(v.Src)
				phiDefs[v.Dst.ID()] = appendUnique(phiDefs[v.Dst.ID()], t)
			case *ir.MultiGet:
				changed = ti.setVal(v.Dst, TAny) || changed
			case *ir.Call:
				changed = ti.setMulti(v.Dst, TAny) || changed
			case *ir.Vararg:
				changed = ti.setMulti(v.Dst, TAny) || changed
			case *ir.Bundle:
				changed = ti.setMulti(v.Dst, TAny) || changed
			case *ir.MakeClosure:
				changed = ti.setVal(v.Dst, TFunction) || changed
			}
		}, nil)
	}
	return ti
}

// varLoadType implements "reified Vars are opaque (Any on load)"; a
// non-reified Var's load type is also TAny here because, unlike Vals, Vars
// are not SSA — a full per-Var type would require tracking every VarStore
// reaching a given VarLoad, which spec.md does not ask this pass to do.
func varLoadType(v *ir.Var) Type {
	return TAny
}

func (ti *TypeInfo) setVal(v *ir.Val, t Type) (changed bool) {
	if v == nil {
		return false
	}
	prev, ok := ti.valTypes[v.ID()]
	if !ok {
		ti.valTypes[v.ID()] = t
		return true
	}
	merged := Combine(prev, t)
	if merged != prev {
		ti.valTypes[v.ID()] = merged
		return true
	}
	return false
}

func (ti *TypeInfo) setMulti(v *ir.MultiVal, t Type) (changed bool) {
	if v == nil {
		return false
	}
	prev, ok := ti.multiTypes[v.ID()]
	if !ok {
		ti.multiTypes[v.ID()] = t
		return true
	}
	merged := Combine(prev, t)
	if merged != prev {
		ti.multiTypes[v.ID()] = merged
		return true
	}
	return false
}

func appendUnique(types []Type, t Type) []Type {
	for _, existing := range types {
		if existing == t {
			return types
		}
	}
	return append(types, t)
}

func combineAll(types []Type) Type {
	if len(types) == 0 {
		return TAny
	}
	out := types[0]
	for _, t := range types[1:] {
		out = Combine(out, t)
	}
	return out
}
