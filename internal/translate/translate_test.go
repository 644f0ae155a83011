package translate

import (
	"testing"

	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/ir"
)

// TestTranslateReturnArithmetic covers spec.md 8's `return 1 + 2` scenario
// at the translator boundary: main's Code ends in a Ret whose Multi traces
// back to a BinOp over two LoadConsts.
func TestTranslateReturnArithmetic(t *testing.T) {
	one := ast.NewIntExpr(1, 1)
	two := ast.NewIntExpr(1, 2)
	add := ast.NewBinaryExpr(1, "ADD", one, two)
	ret := ast.NewReturnStmt(1, []ast.Expression{add})
	chunk := &ast.Chunk{Body: &ast.Block{Stmts: []ast.Statement{ret}}, SourceName: "t"}

	mod, err := Translate(chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	main, ok := mod.Func(ir.MainFunctionId)
	if !ok {
		t.Fatalf("module has no main function")
	}
	if !main.Vararg {
		t.Errorf("chunk body must be vararg")
	}
	if len(main.Params) != 1 {
		t.Fatalf("main should take exactly one param (_ENV), got %d", len(main.Params))
	}

	term, ok := main.Code.Entry().Term.(*ir.RetTerm)
	if !ok {
		t.Fatalf("entry block should terminate in Ret, got %T", main.Code.Entry().Term)
	}
	if term.Multi == nil {
		t.Fatalf("return with one expression should carry a non-nil Multi")
	}

	var foundAdd bool
	for _, n := range main.Code.Entry().Body {
		if op, ok := n.(*ir.BinOp); ok && op.Op == ir.OpAdd {
			foundAdd = true
		}
	}
	if !foundAdd {
		t.Errorf("expected a BinOp(ADD) node in the entry block, got %+v", main.Code.Entry().Body)
	}
}

// TestTranslateNumericForBuildsLoopBlocks checks that a numeric for loop
// lowers to more than one block (the three-test header plus a body block
// with a step-back edge, spec.md 4.1), rather than collapsing to straight
// line code.
func TestTranslateNumericForBuildsLoopBlocks(t *testing.T) {
	sumDecl := &ast.Decl{Name: "sum"}
	iDecl := &ast.Decl{Name: "i"}
	sumRef := &ast.ResolvedVariable{Kind: ast.VarLocal, Decl: sumDecl}
	iRef := &ast.ResolvedVariable{Kind: ast.VarLocal, Decl: iDecl}

	localSum := ast.NewLocalStmt(1, []*ast.Decl{sumDecl}, []ast.Expression{ast.NewIntExpr(1, 0)})
	body := &ast.Block{Stmts: []ast.Statement{
		ast.NewAssignStmt(2, []ast.AssignTarget{{Var: sumRef}}, []ast.Expression{
			ast.NewBinaryExpr(2, "ADD", ast.NewNameExpr(2, sumRef), ast.NewNameExpr(2, iRef)),
		}),
	}}
	forStmt := ast.NewNumericForStmt(2, iDecl, ast.NewIntExpr(2, 1), ast.NewIntExpr(2, 10), nil, body)
	ret := ast.NewReturnStmt(3, []ast.Expression{ast.NewNameExpr(3, sumRef)})

	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{localSum, forStmt, ret}},
		SourceName: "t",
	}

	mod, err := Translate(chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	main, _ := mod.Func(ir.MainFunctionId)
	if len(main.Code.Blocks) < 3 {
		t.Errorf("expected a multi-block loop (header/body/exit), got %d blocks", len(main.Code.Blocks))
	}
}

// TestTranslateCapturedUpvalueReifiesOuterLocal checks that a nested
// function literal referencing an outer local shows up as an Upvar on the
// nested IRFunc and as a sibling function in the module (spec.md 4.1, 4.6).
func TestTranslateCapturedUpvalueBecomesNestedUpvar(t *testing.T) {
	xDecl := &ast.Decl{Name: "x"}
	localX := ast.NewLocalStmt(1, []*ast.Decl{xDecl}, []ast.Expression{ast.NewIntExpr(1, 1)})

	innerRef := &ast.ResolvedVariable{Kind: ast.VarUpvalue, Decl: xDecl}
	innerBody := &ast.Block{Stmts: []ast.Statement{
		ast.NewReturnStmt(2, []ast.Expression{ast.NewNameExpr(2, innerRef)}),
	}}
	fnExpr := ast.NewFunctionExpr(2, nil, false, innerBody, []*ast.Decl{xDecl}, "inner")
	localF := ast.NewLocalStmt(2, []*ast.Decl{{Name: "f"}}, []ast.Expression{fnExpr})
	ret := ast.NewReturnStmt(3, nil)

	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{localX, localF, ret}},
		SourceName: "t",
	}

	mod, err := Translate(chunk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mod.Len() != 2 {
		t.Fatalf("expected main plus one nested function, got %d functions", mod.Len())
	}

	var nested *ir.IRFunc
	for _, fn := range mod.Funcs() {
		if fn.ID != ir.MainFunctionId {
			nested = fn
		}
	}
	if nested == nil {
		t.Fatalf("no nested function found")
	}
	if len(nested.Upvars) != 1 {
		t.Fatalf("expected exactly one upvalue on the nested function, got %d", len(nested.Upvars))
	}
}

// TestTranslateRejectsUnresolvedGoto confirms a malformed input (a goto
// whose label never appears) surfaces as a plain error rather than a panic
// escaping Translate.
func TestTranslateRejectsUnresolvedGoto(t *testing.T) {
	gotoStmt := ast.NewGotoStmt(1, "nowhere")
	chunk := &ast.Chunk{Body: &ast.Block{Stmts: []ast.Statement{gotoStmt}}, SourceName: "t"}

	_, err := Translate(chunk)
	if err == nil {
		t.Fatalf("expected an error for an unresolved goto label")
	}
}
