// Package fixture decodes a resolved-AST JSON fixture into an
// internal/ast.Chunk. There is no lexer/parser in this module (spec.md 6.1:
// the translator's input is already a resolved AST); fixture is the thin
// substitute a test or the CLI uses to get one onto disk and back, grounded
// on go-dws/internal/bytecode/compiler_test_helpers_test.go's pattern of
// building a chunk by hand rather than through a front end. encoding/json is
// used rather than gjson/sjson (SPEC_FULL.md §4's domain-stack deps) because
// those two are reserved for the runtime's saved-state interchange format;
// a tagged-variant recursive-descent decode like this one gets no benefit
// from gjson's path queries and every benefit from json.Unmarshal's struct
// tag based decoding (DESIGN.md).
package fixture

import (
	"encoding/json"
	"fmt"

	"github.com/lua53go/engine/internal/ast"
)

// wireChunk is the on-disk shape of a whole fixture file.
type wireChunk struct {
	SourceName string          `json:"source_name"`
	Body       []wireStmt `json:"body"`
}

type wireDecl struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

type wireRef struct {
	Kind string `json:"kind"` // "local", "upvalue", "global"
	Decl string `json:"decl"`
	Name string `json:"name"`
}

type wireExpr struct {
	Kind string `json:"kind"`
	Line int    `json:"line"`

	Value json.RawMessage `json:"value"` // int/float/string literal payload

	Var *wireRef `json:"var"`

	Obj *wireExpr `json:"obj"`
	Key *wireExpr `json:"key"`

	Fn   *wireExpr  `json:"fn"`
	Args []wireExpr `json:"args"`

	Params   []wireDecl `json:"params"`
	Vararg   bool       `json:"vararg"`
	Body     []wireStmt `json:"body"`
	Captures []string   `json:"captures"`
	Name     string     `json:"name"`

	Op    string    `json:"op"`
	Left  *wireExpr `json:"left"`
	Right *wireExpr `json:"right"`
	Src   *wireExpr `json:"src"`

	Fields []wireField `json:"fields"`
	Inner  *wireExpr   `json:"inner"`
}

type wireField struct {
	Key   *wireExpr `json:"key"`
	Value wireExpr  `json:"value"`
}

type wireTarget struct {
	Var   *wireRef  `json:"var"`
	Index *wireExpr `json:"index"`
}

type wireClause struct {
	Cond wireExpr   `json:"cond"`
	Body []wireStmt `json:"body"`
}

type wireStmt struct {
	Kind string `json:"kind"`
	Line int    `json:"line"`

	Decls []wireDecl `json:"decls"`
	Exprs []wireExpr `json:"exprs"`

	Targets []wireTarget `json:"targets"`

	Call *wireExpr `json:"call"`

	Body []wireStmt `json:"body"`

	Cond wireExpr `json:"cond"`

	Clauses []wireClause `json:"clauses"`
	Else    []wireStmt   `json:"else"`

	Control *wireDecl `json:"control"`
	Init    *wireExpr `json:"init"`
	Limit   *wireExpr `json:"limit"`
	Step    *wireExpr `json:"step"`

	Names []wireDecl `json:"names"`

	Label string `json:"label"`
}

// Decode parses a resolved-AST fixture document into an *ast.Chunk.
func Decode(data []byte) (*ast.Chunk, error) {
	var wc wireChunk
	if err := json.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	d := &decoder{decls: make(map[string]*ast.Decl)}
	stmts, err := d.stmts(wc.Body)
	if err != nil {
		return nil, err
	}
	return &ast.Chunk{Body: &ast.Block{Stmts: stmts}, SourceName: wc.SourceName}, nil
}

type decoder struct {
	decls map[string]*ast.Decl
}

func (d *decoder) declare(w wireDecl) *ast.Decl {
	decl := &ast.Decl{Name: w.Name, Line: w.Line}
	d.decls[w.ID] = decl
	return decl
}

func (d *decoder) declareParam(w wireDecl) *ast.Decl {
	decl := &ast.Decl{Name: w.Name, Line: w.Line, IsParam: true}
	d.decls[w.ID] = decl
	return decl
}

func (d *decoder) lookup(id string) (*ast.Decl, error) {
	decl, ok := d.decls[id]
	if !ok {
		return nil, fmt.Errorf("fixture: reference to undeclared id %q", id)
	}
	return decl, nil
}

func (d *decoder) ref(w *wireRef) (*ast.ResolvedVariable, error) {
	switch w.Kind {
	case "local":
		decl, err := d.lookup(w.Decl)
		if err != nil {
			return nil, err
		}
		return &ast.ResolvedVariable{Kind: ast.VarLocal, Decl: decl}, nil
	case "upvalue":
		decl, err := d.lookup(w.Decl)
		if err != nil {
			return nil, err
		}
		return &ast.ResolvedVariable{Kind: ast.VarUpvalue, Decl: decl}, nil
	case "global":
		return &ast.ResolvedVariable{Kind: ast.VarGlobal, Name: w.Name}, nil
	}
	return nil, fmt.Errorf("fixture: unknown variable kind %q", w.Kind)
}

func (d *decoder) expr(w *wireExpr) (ast.Expression, error) {
	if w == nil {
		return nil, fmt.Errorf("fixture: nil expression")
	}
	switch w.Kind {
	case "nil":
		return ast.NewNilExpr(w.Line), nil
	case "true":
		return ast.NewTrueExpr(w.Line), nil
	case "false":
		return ast.NewFalseExpr(w.Line), nil
	case "int":
		var v int64
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return nil, fmt.Errorf("fixture: int literal: %w", err)
		}
		return ast.NewIntExpr(w.Line, v), nil
	case "float":
		var v float64
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return nil, fmt.Errorf("fixture: float literal: %w", err)
		}
		return ast.NewFloatExpr(w.Line, v), nil
	case "string":
		var v string
		if err := json.Unmarshal(w.Value, &v); err != nil {
			return nil, fmt.Errorf("fixture: string literal: %w", err)
		}
		return ast.NewStringExpr(w.Line, v), nil
	case "vararg":
		return ast.NewVarargExpr(w.Line), nil
	case "name":
		ref, err := d.ref(w.Var)
		if err != nil {
			return nil, err
		}
		return ast.NewNameExpr(w.Line, ref), nil
	case "index":
		obj, err := d.expr(w.Obj)
		if err != nil {
			return nil, err
		}
		key, err := d.expr(w.Key)
		if err != nil {
			return nil, err
		}
		return ast.NewIndexExpr(w.Line, obj, key), nil
	case "call":
		fn, err := d.expr(w.Fn)
		if err != nil {
			return nil, err
		}
		args, err := d.exprs(w.Args)
		if err != nil {
			return nil, err
		}
		return ast.NewCallExpr(w.Line, fn, args), nil
	case "function":
		params := make([]*ast.Decl, len(w.Params))
		for i, p := range w.Params {
			params[i] = d.declareParam(p)
		}
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		captures := make([]*ast.Decl, 0, len(w.Captures))
		for _, id := range w.Captures {
			decl, err := d.lookup(id)
			if err != nil {
				return nil, err
			}
			captures = append(captures, decl)
		}
		return ast.NewFunctionExpr(w.Line, params, w.Vararg, &ast.Block{Stmts: body}, captures, w.Name), nil
	case "binary":
		left, err := d.expr(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.expr(w.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpr(w.Line, w.Op, left, right), nil
	case "unary":
		src, err := d.expr(w.Src)
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(w.Line, w.Op, src), nil
	case "and":
		left, err := d.expr(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.expr(w.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewAndExpr(w.Line, left, right), nil
	case "or":
		left, err := d.expr(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.expr(w.Right)
		if err != nil {
			return nil, err
		}
		return ast.NewOrExpr(w.Line, left, right), nil
	case "table":
		fields := make([]ast.TableField, len(w.Fields))
		for i, f := range w.Fields {
			var key ast.Expression
			if f.Key != nil {
				var err error
				key, err = d.expr(f.Key)
				if err != nil {
					return nil, err
				}
			}
			val, err := d.expr(&f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = ast.TableField{Key: key, Value: val}
		}
		return ast.NewTableExpr(w.Line, fields), nil
	case "paren":
		inner, err := d.expr(w.Inner)
		if err != nil {
			return nil, err
		}
		return ast.NewParenExpr(w.Line, inner), nil
	}
	return nil, fmt.Errorf("fixture: unknown expression kind %q", w.Kind)
}

func (d *decoder) exprs(ws []wireExpr) ([]ast.Expression, error) {
	out := make([]ast.Expression, len(ws))
	for i := range ws {
		e, err := d.expr(&ws[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) stmt(w *wireStmt) (ast.Statement, error) {
	switch w.Kind {
	case "local":
		decls := make([]*ast.Decl, len(w.Decls))
		for i, wd := range w.Decls {
			decls[i] = d.declare(wd)
		}
		exprs, err := d.exprs(w.Exprs)
		if err != nil {
			return nil, err
		}
		return ast.NewLocalStmt(w.Line, decls, exprs), nil
	case "assign":
		targets := make([]ast.AssignTarget, len(w.Targets))
		for i, t := range w.Targets {
			var at ast.AssignTarget
			switch {
			case t.Var != nil:
				ref, err := d.ref(t.Var)
				if err != nil {
					return nil, err
				}
				at.Var = ref
			case t.Index != nil:
				ie, err := d.expr(t.Index)
				if err != nil {
					return nil, err
				}
				idx, ok := ie.(*ast.IndexExpr)
				if !ok {
					return nil, fmt.Errorf("fixture: assign target index must decode to an IndexExpr")
				}
				at.Index = idx
			default:
				return nil, fmt.Errorf("fixture: assign target needs var or index")
			}
			targets[i] = at
		}
		exprs, err := d.exprs(w.Exprs)
		if err != nil {
			return nil, err
		}
		return ast.NewAssignStmt(w.Line, targets, exprs), nil
	case "expr":
		ce, err := d.expr(w.Call)
		if err != nil {
			return nil, err
		}
		call, ok := ce.(*ast.CallExpr)
		if !ok {
			return nil, fmt.Errorf("fixture: expr statement's call must decode to a CallExpr")
		}
		return ast.NewExprStmt(w.Line, call), nil
	case "do":
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewDoStmt(w.Line, &ast.Block{Stmts: body}), nil
	case "while":
		cond, err := d.expr(&w.Cond)
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewWhileStmt(w.Line, cond, &ast.Block{Stmts: body}), nil
	case "repeat":
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		cond, err := d.expr(&w.Cond)
		if err != nil {
			return nil, err
		}
		return ast.NewRepeatStmt(w.Line, &ast.Block{Stmts: body}, cond), nil
	case "if":
		clauses := make([]ast.IfClause, len(w.Clauses))
		for i, c := range w.Clauses {
			cond, err := d.expr(&c.Cond)
			if err != nil {
				return nil, err
			}
			body, err := d.stmts(c.Body)
			if err != nil {
				return nil, err
			}
			clauses[i] = ast.IfClause{Cond: cond, Body: &ast.Block{Stmts: body}}
		}
		var els *ast.Block
		if w.Else != nil {
			body, err := d.stmts(w.Else)
			if err != nil {
				return nil, err
			}
			els = &ast.Block{Stmts: body}
		}
		return ast.NewIfStmt(w.Line, clauses, els), nil
	case "numericfor":
		control := d.declare(*w.Control)
		init, err := d.expr(w.Init)
		if err != nil {
			return nil, err
		}
		limit, err := d.expr(w.Limit)
		if err != nil {
			return nil, err
		}
		var step ast.Expression
		if w.Step != nil {
			step, err = d.expr(w.Step)
			if err != nil {
				return nil, err
			}
		}
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewNumericForStmt(w.Line, control, init, limit, step, &ast.Block{Stmts: body}), nil
	case "genericfor":
		names := make([]*ast.Decl, len(w.Names))
		for i, n := range w.Names {
			names[i] = d.declare(n)
		}
		exprs, err := d.exprs(w.Exprs)
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(w.Body)
		if err != nil {
			return nil, err
		}
		return ast.NewGenericForStmt(w.Line, names, exprs, &ast.Block{Stmts: body}), nil
	case "return":
		exprs, err := d.exprs(w.Exprs)
		if err != nil {
			return nil, err
		}
		return ast.NewReturnStmt(w.Line, exprs), nil
	case "break":
		return ast.NewBreakStmt(w.Line), nil
	case "goto":
		return ast.NewGotoStmt(w.Line, w.Label), nil
	case "label":
		return ast.NewLabelStmt(w.Line, w.Label), nil
	}
	return nil, fmt.Errorf("fixture: unknown statement kind %q", w.Kind)
}

func (d *decoder) stmts(ws []wireStmt) ([]ast.Statement, error) {
	out := make([]ast.Statement, len(ws))
	for i := range ws {
		s, err := d.stmt(&ws[i])
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
