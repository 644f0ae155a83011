package translate

import (
	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/ir"
)

var binOpNames = map[string]ir.BinOpKind{
	"ADD": ir.OpAdd, "SUB": ir.OpSub, "MUL": ir.OpMul, "DIV": ir.OpDiv,
	"MOD": ir.OpMod, "IDIV": ir.OpIDiv, "POW": ir.OpPow,
	"BAND": ir.OpBAnd, "BOR": ir.OpBOr, "BXOR": ir.OpBXor, "SHL": ir.OpShl, "SHR": ir.OpShr,
	"EQ": ir.OpEq, "NEQ": ir.OpNeq, "NE": ir.OpNeq, "LT": ir.OpLt, "LE": ir.OpLe,
}

var unOpNames = map[string]ir.UnOpKind{
	"UNM": ir.OpUnm, "BNOT": ir.OpBNot, "LEN": ir.OpLen, "NOT": ir.OpNot,
}

func (b *builder) constNil() *ir.Val {
	dst := ir.NewVal(b.gen, "")
	b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstNil})
	return dst
}

func (b *builder) constInt(n int64) *ir.Val {
	dst := ir.NewVal(b.gen, "")
	b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstInt, Int: n})
	return dst
}

// translateExpr lowers e to a single Val, truncating a call or `...` to its
// first result the way every non-tail-position use of a multi-value
// expression does in Lua (spec.md 6.1).
func (b *builder) translateExpr(e ast.Expression) *ir.Val {
	switch v := e.(type) {
	case *ast.NilExpr:
		return b.constNil()
	case *ast.TrueExpr:
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstBool, Bool: true})
		return dst
	case *ast.FalseExpr:
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstBool, Bool: false})
		return dst
	case *ast.IntExpr:
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstInt, Int: v.Value})
		return dst
	case *ast.FloatExpr:
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstFlt, Flt: v.Value})
		return dst
	case *ast.StringExpr:
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.LoadConst{Dst: dst, Kind: ir.ConstStr, Str: v.Value})
		return dst
	case *ast.VarargExpr:
		multi := ir.NewMultiVal(b.gen, "")
		b.emit(&ir.Vararg{Dst: multi})
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.MultiGet{Dst: dst, Src: multi, Index: 0})
		return dst
	case *ast.NameExpr:
		return b.readVar(v.Ref)
	case *ast.IndexExpr:
		obj := b.translateExpr(v.Obj)
		key := b.translateExpr(v.Key)
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.TabGet{Dst: dst, Tab: obj, Key: key})
		return dst
	case *ast.CallExpr:
		multi := b.translateCall(v)
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.MultiGet{Dst: dst, Src: multi, Index: 0})
		return dst
	case *ast.FunctionExpr:
		return b.translateFunctionExpr(v)
	case *ast.BinaryExpr:
		return b.translateBinary(v)
	case *ast.UnaryExpr:
		src := b.translateExpr(v.Src)
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.UnOp{Dst: dst, Op: unOpNames[v.Op], Src: src})
		return dst
	case *ast.AndExpr:
		return b.translateAndOr(v.Left, v.Right, true)
	case *ast.OrExpr:
		return b.translateAndOr(v.Left, v.Right, false)
	case *ast.TableExpr:
		return b.translateTable(v)
	case *ast.ParenExpr:
		return b.translateExpr(v.Inner)
	}
	fail("unhandled expression %T", e)
	return nil
}

func (b *builder) translateBinary(v *ast.BinaryExpr) *ir.Val {
	switch v.Op {
	case "CONCAT":
		dst := ir.NewVal(b.gen, "")
		b.emit(&ir.Concat{Dst: dst, Operands: b.flattenConcat(v)})
		return dst
	case "GT":
		return b.emitBinOp(ir.OpLt, v.Right, v.Left)
	case "GE":
		return b.emitBinOp(ir.OpLe, v.Right, v.Left)
	}
	kind, ok := binOpNames[v.Op]
	if !ok {
		fail("unknown binary operator %q", v.Op)
	}
	return b.emitBinOp(kind, v.Left, v.Right)
}

func (b *builder) emitBinOp(kind ir.BinOpKind, left, right ast.Expression) *ir.Val {
	l := b.translateExpr(left)
	r := b.translateExpr(right)
	dst := ir.NewVal(b.gen, "")
	b.emit(&ir.BinOp{Dst: dst, Op: kind, Left: l, Right: r})
	return dst
}

// flattenConcat folds a right-associated run of CONCAT BinaryExprs into one
// n-ary Concat node, mirroring how the reference VM batches concat runs
// (ir.Concat's doc comment).
func (b *builder) flattenConcat(v *ast.BinaryExpr) []*ir.Val {
	var operands []*ir.Val
	var walk func(e ast.Expression)
	walk = func(e ast.Expression) {
		if be, ok := e.(*ast.BinaryExpr); ok && be.Op == "CONCAT" {
			walk(be.Left)
			walk(be.Right)
			return
		}
		operands = append(operands, b.translateExpr(e))
	}
	walk(v)
	return operands
}

// translateAndOr lowers Lua's short-circuit operators to a branch plus a
// PhiVal join: each side contributes its own value along its own edge, so
// the unevaluated side never runs (spec.md 4.1).
func (b *builder) translateAndOr(left, right ast.Expression, isAnd bool) *ir.Val {
	leftVal := b.translateExpr(left)
	result := ir.NewPhiVal(b.gen, "")
	b.emit(&ir.PhiStore{Dst: result, Src: leftVal})

	rightLabel := b.freshLabel()
	joinLabel := b.freshLabel()
	if isAnd {
		b.terminate(&ir.BranchTerm{Cond: leftVal, Then: rightLabel, Else: joinLabel})
	} else {
		b.terminate(&ir.BranchTerm{Cond: leftVal, Then: joinLabel, Else: rightLabel})
	}

	b.startBlock(rightLabel)
	rightVal := b.translateExpr(right)
	b.emit(&ir.PhiStore{Dst: result, Src: rightVal})
	b.terminate(&ir.ToNextTerm{Target: joinLabel})

	b.startBlock(joinLabel)
	dst := ir.NewVal(b.gen, "")
	b.emit(&ir.PhiLoad{Dst: dst, Src: result})
	return dst
}

func (b *builder) translateTable(v *ast.TableExpr) *ir.Val {
	tab := ir.NewVal(b.gen, "")
	b.emit(&ir.TabNew{Dst: tab})
	arrayIndex := int64(1)
	n := len(v.Fields)
	for i, f := range v.Fields {
		if f.Key != nil {
			key := b.translateExpr(f.Key)
			val := b.translateExpr(f.Value)
			b.emit(&ir.TabSet{Tab: tab, Key: key, Val: val})
			continue
		}
		if i == n-1 {
			if isMultiExpr(f.Value) {
				multi := b.translateMulti(f.Value)
				b.emit(&ir.TabStackAppend{Tab: tab, Multi: multi})
				continue
			}
		}
		val := b.translateExpr(f.Value)
		b.emit(&ir.TabRawSetInt{Tab: tab, Index: arrayIndex, Val: val})
		arrayIndex++
	}
	return tab
}

func isMultiExpr(e ast.Expression) bool {
	switch e.(type) {
	case *ast.CallExpr, *ast.VarargExpr:
		return true
	}
	return false
}

// translateCall lowers a call to its full MultiVal result (used directly in
// tail position of an expression list; translateExpr projects element 0 out
// of it for a single-value context).
func (b *builder) translateCall(ce *ast.CallExpr) *ir.MultiVal {
	fn, args, tail := b.translateCallParts(ce)
	dst := ir.NewMultiVal(b.gen, "")
	b.emit(&ir.Call{Dst: dst, Target: fn, Args: args, ArgsTail: tail, Line: ce.Line()})
	return dst
}

func (b *builder) translateCallParts(ce *ast.CallExpr) (fn *ir.Val, args []*ir.Val, tail *ir.MultiVal) {
	fn = b.translateExpr(ce.Fn)
	args, tail = b.evalExprList(ce.Args)
	return
}

// translateMulti lowers e into a MultiVal: a call or `...` yields its real
// result list, anything else is wrapped as a one-element Bundle.
func (b *builder) translateMulti(e ast.Expression) *ir.MultiVal {
	switch v := e.(type) {
	case *ast.CallExpr:
		return b.translateCall(v)
	case *ast.VarargExpr:
		dst := ir.NewMultiVal(b.gen, "")
		b.emit(&ir.Vararg{Dst: dst})
		return dst
	default:
		val := b.translateExpr(v)
		dst := ir.NewMultiVal(b.gen, "")
		b.emit(&ir.Bundle{Dst: dst, Vals: []*ir.Val{val}})
		return dst
	}
}

// evalExprList evaluates exprs left to right, truncating every element but
// the last to one value; when the last element is a call or `...` its
// entire result list carries forward as tail instead of being truncated
// (Lua's "last expression in a list expands" rule).
func (b *builder) evalExprList(exprs []ast.Expression) (heads []*ir.Val, tail *ir.MultiVal) {
	if len(exprs) == 0 {
		return nil, nil
	}
	for _, e := range exprs[:len(exprs)-1] {
		heads = append(heads, b.translateExpr(e))
	}
	last := exprs[len(exprs)-1]
	if isMultiExpr(last) {
		tail = b.translateMulti(last)
	} else {
		heads = append(heads, b.translateExpr(last))
	}
	return heads, tail
}

// exprListValues adjusts exprs to exactly n values, the way Lua adjusts a
// local declaration's or assignment's right-hand side to its left-hand
// side's width: padding with nil, or reaching into the expanded tail.
func (b *builder) exprListValues(exprs []ast.Expression, n int) []*ir.Val {
	heads, tail := b.evalExprList(exprs)
	out := make([]*ir.Val, n)
	for i := 0; i < n; i++ {
		switch {
		case i < len(heads):
			out[i] = heads[i]
		case tail != nil:
			v := ir.NewVal(b.gen, "")
			b.emit(&ir.MultiGet{Dst: v, Src: tail, Index: i - len(heads)})
			out[i] = v
		default:
			out[i] = b.constNil()
		}
	}
	return out
}

// translateFunctionExpr compiles fe as its own IRFunc, added to the shared
// Module immediately, and returns a MakeClosure Val that materializes it
// (spec.md 4.1, 4.5). Each capture in the child's Upvars list was minted
// in resolveUpvar invocation order, which is exactly the order
// MakeClosure.Sources must supply cells in.
func (b *builder) translateFunctionExpr(fe *ast.FunctionExpr) *ir.Val {
	id := b.fnID.Child(b.childCount)
	b.childCount++

	child := newBuilder(b.tr, b, id)
	child.startBlock(child.freshLabel())

	params := make([]*ir.Var, len(fe.Params))
	for i, decl := range fe.Params {
		pv := ir.NewVar(child.gen, decl.Name, ir.VarKindParam)
		child.vars[decl] = pv
		params[i] = pv
	}

	child.translateStmts(fe.Body.Stmts)
	child.finish()
	child.resolveGotos()

	fn := &ir.IRFunc{
		ID:         id,
		Params:     params,
		Upvars:     child.upvarList,
		Vararg:     fe.Vararg,
		Code:       ir.NewCode(child.blocks),
		SourceName: b.tr.source,
		Line:       fe.Line(),
	}
	b.tr.mod.Add(fn)

	sources := make([]ir.UpvalSource, len(child.upvarList))
	for i, uv := range child.upvarList {
		sources[i] = ir.UpvalSource{Var: uv.OuterVar, Outer: uv.OuterUpVar}
	}
	dst := ir.NewVal(b.gen, fe.Name)
	b.emit(&ir.MakeClosure{Dst: dst, Target: id, Sources: sources})
	return dst
}
