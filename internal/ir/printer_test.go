package ir

import (
	"bytes"
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// TestPrinterSnapshotStraightLineArithmetic golden-tests the disassembly
// text for `(a + b) * 2`, the same function shape internal/emit's unit
// tests invoke directly — here it is the Printer's rendering, not the
// runtime result, under test, grounded on go-dws/internal/bytecode's
// disassembly style (go-snaps snapshot testing, per the teacher's own
// reliance on it for interpreter-output golden tests).
func TestPrinterSnapshotStraightLineArithmetic(t *testing.T) {
	gen := NewIDGen()
	a := NewVar(gen, "a", VarKindParam)
	b := NewVar(gen, "b", VarKindParam)
	aVal := NewVal(gen, "a")
	bVal := NewVal(gen, "b")
	sum := NewVal(gen, "sum")
	two := NewVal(gen, "two")
	prod := NewVal(gen, "prod")
	results := NewMultiVal(gen, "results")

	fn := &IRFunc{
		ID:     MainFunctionId,
		Params: []*Var{a, b},
		Code: NewCode([]*BasicBlock{{
			Label: 0,
			Body: []Node{
				&VarLoad{Dst: aVal, Src: a},
				&VarLoad{Dst: bVal, Src: b},
				&BinOp{Dst: sum, Op: OpAdd, Left: aVal, Right: bVal},
				&LoadConst{Dst: two, Kind: ConstInt, Int: 2},
				&BinOp{Dst: prod, Op: OpMul, Left: sum, Right: two},
				&Bundle{Dst: results, Vals: []*Val{prod}},
			},
			Term: &RetTerm{Multi: results},
		}}),
	}
	m := NewModule()
	m.Add(fn)

	var buf bytes.Buffer
	NewPrinter(&buf).PrintModule(m)

	snaps.MatchSnapshot(t, buf.String())
}

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}
