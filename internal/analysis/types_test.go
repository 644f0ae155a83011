package analysis

import (
	"testing"

	"github.com/lua53go/engine/internal/ir"
)

func TestBinOpTypeLattice(t *testing.T) {
	cases := []struct {
		op          ir.BinOpKind
		left, right Type
		want        Type
	}{
		{ir.OpAdd, TInteger, TInteger, TInteger},
		{ir.OpAdd, TInteger, TFloat, TFloat},
		{ir.OpDiv, TInteger, TInteger, TFloat},
		{ir.OpPow, TFloat, TFloat, TFloat},
		{ir.OpBAnd, TInteger, TInteger, TInteger},
		{ir.OpBAnd, TString, TInteger, TAny},
		{ir.OpEq, TString, TInteger, TBool},
		{ir.OpConcat, TString, TInteger, TString},
		{ir.OpAdd, TString, TInteger, TAny},
	}
	for _, c := range cases {
		got := BinOpType(c.op, c.left, c.right)
		if got != c.want {
			t.Errorf("BinOpType(%v,%v,%v) = %v, want %v", c.op, c.left, c.right, got, c.want)
		}
	}
}

func TestComputeTypesConstantFoldShape(t *testing.T) {
	gen := ir.NewIDGen()
	v1 := ir.NewVal(gen, "")
	v2 := ir.NewVal(gen, "")
	v3 := ir.NewVal(gen, "")
	m := ir.NewMultiVal(gen, "")

	b0 := &ir.BasicBlock{
		Body: []ir.Node{
			&ir.LoadConst{Dst: v1, Kind: ir.ConstInt, Int: 1},
			&ir.LoadConst{Dst: v2, Kind: ir.ConstFlt, Flt: 2.5},
			&ir.BinOp{Dst: v3, Op: ir.OpAdd, Left: v1, Right: v2},
		},
		Term: &ir.RetTerm{Multi: m},
	}
	fn := &ir.IRFunc{ID: ir.MainFunctionId, Code: ir.NewCode([]*ir.BasicBlock{b0})}

	ti := ComputeTypes(fn)
	if got := ti.ValType(v1); got != TInteger {
		t.Errorf("v1 type = %v, want Integer", got)
	}
	if got := ti.ValType(v2); got != TFloat {
		t.Errorf("v2 type = %v, want Float", got)
	}
	if got := ti.ValType(v3); got != TFloat {
		t.Errorf("v3 (int+float) type = %v, want Float", got)
	}
}
