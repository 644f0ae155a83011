package translate

import (
	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/ir"
)

func (b *builder) translateStmts(stmts []ast.Statement) {
	for _, s := range stmts {
		b.translateStmt(s)
	}
}

func (b *builder) translateStmt(s ast.Statement) {
	switch v := s.(type) {
	case *ast.LocalStmt:
		b.translateLocal(v)
	case *ast.AssignStmt:
		b.translateAssign(v)
	case *ast.ExprStmt:
		b.translateMulti(v.Call)
	case *ast.DoStmt:
		b.translateStmts(v.Body.Stmts)
	case *ast.WhileStmt:
		b.translateWhile(v)
	case *ast.RepeatStmt:
		b.translateRepeat(v)
	case *ast.IfStmt:
		b.translateIf(v)
	case *ast.NumericForStmt:
		b.translateNumericFor(v)
	case *ast.GenericForStmt:
		b.translateGenericFor(v)
	case *ast.ReturnStmt:
		b.translateReturn(v)
	case *ast.BreakStmt:
		b.translateBreak(v)
	case *ast.GotoStmt:
		b.translateGoto(v)
	case *ast.LabelStmt:
		b.translateLabel(v)
	default:
		fail("unhandled statement %T", s)
	}
}

func (b *builder) translateLocal(s *ast.LocalStmt) {
	values := b.exprListValues(s.Exprs, len(s.Decls))
	for i, decl := range s.Decls {
		b.declareLocal(decl, values[i])
	}
}

func (b *builder) translateAssign(s *ast.AssignStmt) {
	type target struct{ obj, key *ir.Val }
	targets := make([]target, len(s.Targets))
	for i, t := range s.Targets {
		if t.Index != nil {
			targets[i] = target{b.translateExpr(t.Index.Obj), b.translateExpr(t.Index.Key)}
		}
	}
	values := b.exprListValues(s.Exprs, len(s.Targets))
	for i, t := range s.Targets {
		if t.Index != nil {
			b.emit(&ir.TabSet{Tab: targets[i].obj, Key: targets[i].key, Val: values[i]})
		} else {
			b.writeVar(t.Var, values[i])
		}
	}
}

// translateWhile lowers `while Cond do Body end` to a header block testing
// Cond, a body block that falls back to the header, and an exit block.
func (b *builder) translateWhile(s *ast.WhileStmt) {
	headLabel := b.freshLabel()
	bodyLabel := b.freshLabel()
	exitLabel := b.freshLabel()

	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(headLabel)
	cond := b.translateExpr(s.Cond)
	b.terminate(&ir.BranchTerm{Cond: cond, Then: bodyLabel, Else: exitLabel})

	b.startBlock(bodyLabel)
	b.pushLoop(exitLabel)
	b.translateStmts(s.Body.Stmts)
	b.popLoop()
	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(exitLabel)
}

// translateRepeat lowers `repeat Body until Cond`; Cond is translated in
// Body's own block so it can see locals Body declared (spec.md: unlike
// While, Repeat's condition shares Body's scope).
func (b *builder) translateRepeat(s *ast.RepeatStmt) {
	bodyLabel := b.freshLabel()
	exitLabel := b.freshLabel()

	b.terminate(&ir.ToNextTerm{Target: bodyLabel})

	b.startBlock(bodyLabel)
	b.pushLoop(exitLabel)
	b.translateStmts(s.Body.Stmts)
	cond := b.translateExpr(s.Cond)
	b.popLoop()
	b.terminate(&ir.BranchTerm{Cond: cond, Then: exitLabel, Else: bodyLabel})

	b.startBlock(exitLabel)
}

// translateIf chains each clause's test into the next clause (or the else
// block, or the exit block) along its false edge.
func (b *builder) translateIf(s *ast.IfStmt) {
	exitLabel := b.freshLabel()

	for i, clause := range s.Clauses {
		cond := b.translateExpr(clause.Cond)
		thenLabel := b.freshLabel()
		last := i == len(s.Clauses)-1

		var falseLabel ir.Label
		switch {
		case !last:
			falseLabel = b.freshLabel()
		case s.Else != nil:
			falseLabel = b.freshLabel()
		default:
			falseLabel = exitLabel
		}

		b.terminate(&ir.BranchTerm{Cond: cond, Then: thenLabel, Else: falseLabel})

		b.startBlock(thenLabel)
		b.translateStmts(clause.Body.Stmts)
		b.terminate(&ir.ToNextTerm{Target: exitLabel})

		if !last {
			b.startBlock(falseLabel)
			continue
		}
		if s.Else != nil {
			b.startBlock(falseLabel)
			b.translateStmts(s.Else.Stmts)
			b.terminate(&ir.ToNextTerm{Target: exitLabel})
		}
	}

	b.startBlock(exitLabel)
}

// translateNumericFor lowers `for Control = Init, Limit[, Step] do Body end`
// to ir.ForTestTerm's three-test header plus a PhiVal carrying the control
// variable's value across iterations: execForTest reads Init/Limit/Step as
// fixed per-entry Vals and never increments them itself, so the translator
// must thread the updated value back in through a Phi rather than relying
// on the emitter (spec.md 4.1).
func (b *builder) translateNumericFor(s *ast.NumericForStmt) {
	initV := b.translateExpr(s.Init)
	initV = b.toNumber(initV)
	limitV := b.toNumber(b.translateExpr(s.Limit))
	var stepV *ir.Val
	if s.Step != nil {
		stepV = b.toNumber(b.translateExpr(s.Step))
	} else {
		stepV = b.constInt(1)
	}

	control := ir.NewPhiVal(b.gen, s.Control.Name)
	b.emit(&ir.PhiStore{Dst: control, Src: initV})

	headLabel := b.freshLabel()
	bodyLabel := b.freshLabel()
	exitLabel := b.freshLabel()

	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(headLabel)
	cur := ir.NewVal(b.gen, s.Control.Name)
	b.emit(&ir.PhiLoad{Dst: cur, Src: control})
	b.terminate(&ir.ForTestTerm{Init: cur, Limit: limitV, Step: stepV, Body: bodyLabel, Exit: exitLabel})

	b.startBlock(bodyLabel)
	b.declareLocal(s.Control, cur)
	b.pushLoop(exitLabel)
	b.translateStmts(s.Body.Stmts)
	b.popLoop()
	next := ir.NewVal(b.gen, "")
	b.emit(&ir.BinOp{Dst: next, Op: ir.OpAdd, Left: cur, Right: stepV})
	b.emit(&ir.PhiStore{Dst: control, Src: next})
	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(exitLabel)
}

func (b *builder) toNumber(v *ir.Val) *ir.Val {
	dst := ir.NewVal(b.gen, "")
	b.emit(&ir.ToNumber{Dst: dst, Src: v})
	return dst
}

// translateGenericFor lowers `for Names in Exprs do Body end` to Lua's
// iterator protocol: Exprs yields (iterFn, state, initialControl); each
// pass calls iterFn(state, control) and stops when its first result is nil
// (spec.md 4.1). The control value is carried the same PhiVal way a numeric
// for's is.
func (b *builder) translateGenericFor(s *ast.GenericForStmt) {
	init := b.exprListValues(s.Exprs, 3)
	iterFn, state, initCtrl := init[0], init[1], init[2]

	control := ir.NewPhiVal(b.gen, "")
	b.emit(&ir.PhiStore{Dst: control, Src: initCtrl})

	headLabel := b.freshLabel()
	bodyLabel := b.freshLabel()
	exitLabel := b.freshLabel()

	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(headLabel)
	curCtrl := ir.NewVal(b.gen, "")
	b.emit(&ir.PhiLoad{Dst: curCtrl, Src: control})
	results := ir.NewMultiVal(b.gen, "")
	b.emit(&ir.Call{Dst: results, Target: iterFn, Args: []*ir.Val{state, curCtrl}})
	first := ir.NewVal(b.gen, "")
	b.emit(&ir.MultiGet{Dst: first, Src: results, Index: 0})
	stop := ir.NewVal(b.gen, "")
	b.emit(&ir.BinOp{Dst: stop, Op: ir.OpEq, Left: first, Right: b.constNil()})
	b.terminate(&ir.BranchTerm{Cond: stop, Then: exitLabel, Else: bodyLabel})

	b.startBlock(bodyLabel)
	for i, decl := range s.Names {
		v := ir.NewVal(b.gen, decl.Name)
		b.emit(&ir.MultiGet{Dst: v, Src: results, Index: i})
		b.declareLocal(decl, v)
	}
	b.pushLoop(exitLabel)
	b.translateStmts(s.Body.Stmts)
	b.popLoop()
	b.emit(&ir.PhiStore{Dst: control, Src: first})
	b.terminate(&ir.ToNextTerm{Target: headLabel})

	b.startBlock(exitLabel)
}

// translateReturn lowers `return f(...)` to a tail call (TCallTerm) and
// anything else to a Bundle plus RetTerm (spec.md 4.1's tail-call rule).
func (b *builder) translateReturn(s *ast.ReturnStmt) {
	if len(s.Exprs) == 1 {
		if ce, ok := s.Exprs[0].(*ast.CallExpr); ok {
			fn, args, tail := b.translateCallParts(ce)
			b.terminate(&ir.TCallTerm{Target: fn, Args: args, ArgsTail: tail, Line: ce.Line()})
			b.startBlock(b.freshLabel())
			return
		}
	}
	if len(s.Exprs) == 0 {
		b.terminate(&ir.RetTerm{Multi: nil})
		b.startBlock(b.freshLabel())
		return
	}
	heads, tail := b.evalExprList(s.Exprs)
	multi := ir.NewMultiVal(b.gen, "")
	b.emit(&ir.Bundle{Dst: multi, Vals: heads, Tail: tail})
	b.terminate(&ir.RetTerm{Multi: multi})
	b.startBlock(b.freshLabel())
}

func (b *builder) translateBreak(s *ast.BreakStmt) {
	b.terminate(&ir.ToNextTerm{Target: b.currentLoop().breakLabel})
	b.startBlock(b.freshLabel())
}

func (b *builder) translateGoto(s *ast.GotoStmt) {
	term := &ir.ToNextTerm{}
	b.terminate(term)
	b.pendingGotos = append(b.pendingGotos, pendingGoto{term: term, name: s.Label, line: s.Line()})
	b.startBlock(b.freshLabel())
}

func (b *builder) translateLabel(s *ast.LabelStmt) {
	lbl := b.freshLabel()
	b.terminate(&ir.ToNextTerm{Target: lbl})
	b.startBlock(lbl)
	b.labelsByName[s.Name] = lbl
}
