package ir

import "testing"

func TestFunctionIdOrdering(t *testing.T) {
	main := MainFunctionId
	child0 := main.Child(0)
	child1 := main.Child(1)
	grandchild := child0.Child(0)

	if !main.Less(child0) {
		t.Errorf("expected main < main/0")
	}
	if !child0.Less(child1) {
		t.Errorf("expected main/0 < main/1")
	}
	if !child0.Less(grandchild) {
		t.Errorf("expected main/0 < main/0/0")
	}
	if child0.String() != "main/0" {
		t.Errorf("String() = %q, want main/0", child0.String())
	}
	if !main.IsMain() || child0.IsMain() {
		t.Errorf("IsMain incorrect")
	}
}

func TestModuleFuncsOrdered(t *testing.T) {
	m := NewModule()
	main := &IRFunc{ID: MainFunctionId, Code: singleBlockCode()}
	c1 := &IRFunc{ID: MainFunctionId.Child(1), Code: singleBlockCode()}
	c0 := &IRFunc{ID: MainFunctionId.Child(0), Code: singleBlockCode()}
	m.Add(main)
	m.Add(c1)
	m.Add(c0)

	funcs := m.Funcs()
	if len(funcs) != 3 {
		t.Fatalf("got %d funcs, want 3", len(funcs))
	}
	want := []string{"main", "main/0", "main/1"}
	for i, fn := range funcs {
		if fn.ID.String() != want[i] {
			t.Errorf("funcs[%d] = %s, want %s", i, fn.ID, want[i])
		}
	}
}

func TestModuleAddDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on duplicate FunctionId")
		}
	}()
	m := NewModule()
	m.Add(&IRFunc{ID: MainFunctionId, Code: singleBlockCode()})
	m.Add(&IRFunc{ID: MainFunctionId, Code: singleBlockCode()})
}

func TestCodeNodeCount(t *testing.T) {
	gen := NewIDGen()
	v := NewVal(gen, "")
	b0 := &BasicBlock{Label: 0, Body: []Node{&LoadConst{Dst: v, Kind: ConstInt, Int: 1}}, Term: &ToNextTerm{Target: 1}}
	b1 := &BasicBlock{Label: 1, Body: nil, Term: &RetTerm{}}
	code := NewCode([]*BasicBlock{b0, b1})

	// b0: 1 body node + 1 terminator = 2; b1: 0 body + 1 terminator = 1.
	if got := code.NodeCount(); got != 3 {
		t.Errorf("NodeCount() = %d, want 3", got)
	}
}

func singleBlockCode() *Code {
	return NewCode([]*BasicBlock{{Label: 0, Term: &RetTerm{}}})
}
