package engine

import (
	"testing"

	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/runtime"
)

// TestProgramRunReturnArithmetic is spec.md 8's first end-to-end scenario:
// `return 1 + 2` -> {3}, exercised through the whole Compile/Run surface
// rather than any one package in isolation.
func TestProgramRunReturnArithmetic(t *testing.T) {
	add := ast.NewBinaryExpr(1, "ADD", ast.NewIntExpr(1, 1), ast.NewIntExpr(1, 2))
	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{ast.NewReturnStmt(1, []ast.Expression{add})}},
		SourceName: "arith",
	}

	prog, err := Compile(chunk)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	outcome, err := prog.Run(runtime.Table(runtime.NewTable()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Done {
		t.Fatalf("expected the call to finish, got %+v", outcome)
	}
	if len(outcome.Results) != 1 || outcome.Results[0].AsInt() != 3 {
		t.Fatalf("1+2 = %v, want [3]", outcome.Results)
	}
}

// TestProgramRunNumericForSum is spec.md 8's second scenario: summing 1..10
// with a numeric for loop.
func TestProgramRunNumericForSum(t *testing.T) {
	sumDecl := &ast.Decl{Name: "sum"}
	iDecl := &ast.Decl{Name: "i"}
	sumRef := &ast.ResolvedVariable{Kind: ast.VarLocal, Decl: sumDecl}
	iRef := &ast.ResolvedVariable{Kind: ast.VarLocal, Decl: iDecl}

	localSum := ast.NewLocalStmt(1, []*ast.Decl{sumDecl}, []ast.Expression{ast.NewIntExpr(1, 0)})
	loopBody := &ast.Block{Stmts: []ast.Statement{
		ast.NewAssignStmt(2, []ast.AssignTarget{{Var: sumRef}}, []ast.Expression{
			ast.NewBinaryExpr(2, "ADD", ast.NewNameExpr(2, sumRef), ast.NewNameExpr(2, iRef)),
		}),
	}}
	forStmt := ast.NewNumericForStmt(2, iDecl, ast.NewIntExpr(2, 1), ast.NewIntExpr(2, 10), nil, loopBody)
	ret := ast.NewReturnStmt(3, []ast.Expression{ast.NewNameExpr(3, sumRef)})

	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{localSum, forStmt, ret}},
		SourceName: "for-sum",
	}

	prog, err := Compile(chunk)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	outcome, err := prog.Run(runtime.Table(runtime.NewTable()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Done || len(outcome.Results) != 1 || outcome.Results[0].AsInt() != 55 {
		t.Fatalf("sum 1..10 = %+v, want [55]", outcome)
	}
}

// TestProgramRunNegativeStepForNeverRuns covers spec.md 8's
// `for i=1,10,-1 do assert(false) end` -> {}: a negative step past an
// ascending range must skip the body entirely rather than erroring or
// looping.
func TestProgramRunNegativeStepForNeverRuns(t *testing.T) {
	body := &ast.Block{Stmts: []ast.Statement{
		ast.NewExprStmt(1, ast.NewCallExpr(1, ast.NewNameExpr(1, &ast.ResolvedVariable{Kind: ast.VarGlobal, Name: "assert"}), []ast.Expression{ast.NewFalseExpr(1)})),
	}}
	forStmt := ast.NewNumericForStmt(1, &ast.Decl{Name: "i"}, ast.NewIntExpr(1, 1), ast.NewIntExpr(1, 10), ast.NewIntExpr(1, -1), body)
	ret := ast.NewReturnStmt(2, nil)

	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{forStmt, ret}},
		SourceName: "for-skip",
	}

	prog, err := Compile(chunk)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	outcome, err := prog.Run(runtime.Table(runtime.NewTable()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Done || len(outcome.Results) != 0 {
		t.Fatalf("got %+v, want a done call with no results", outcome)
	}
}

// TestProgramRunTickLimitPauses is spec.md 8's tick-limited scenario: an
// infinite loop under a small tick budget must pause rather than run
// forever or error, and a second Resume on a fresh budget must pause again
// rather than ever completing.
func TestProgramRunTickLimitPauses(t *testing.T) {
	whileStmt := ast.NewWhileStmt(1, ast.NewTrueExpr(1), &ast.Block{})
	chunk := &ast.Chunk{
		Body:       &ast.Block{Stmts: []ast.Statement{whileStmt}},
		SourceName: "spin",
	}

	prog, err := Compile(chunk, WithTickAccounting(64))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	call := prog.NewCall(runtime.Table(runtime.NewTable()))
	outcome, err := call.Resume(call.Continuation())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if outcome.Done {
		t.Fatalf("expected the call to pause under a tick limit, got %+v", outcome)
	}

	outcome2, err := call.Resume(outcome.Continuation)
	if err != nil {
		t.Fatalf("second Resume: %v", err)
	}
	if outcome2.Done {
		t.Fatalf("an infinite loop must keep pausing, got %+v", outcome2)
	}
}
