package ast

import "fmt"

type baseExpr struct{ line int }

func (b baseExpr) Line() int { return b.line }
func (baseExpr) exprNode()   {}

// NilExpr, TrueExpr, FalseExpr are the boolean/nil literals.
type NilExpr struct{ baseExpr }
type TrueExpr struct{ baseExpr }
type FalseExpr struct{ baseExpr }

func (NilExpr) String() string   { return "nil" }
func (TrueExpr) String() string  { return "true" }
func (FalseExpr) String() string { return "false" }

func NewNilExpr(line int) *NilExpr     { return &NilExpr{baseExpr{line}} }
func NewTrueExpr(line int) *TrueExpr   { return &TrueExpr{baseExpr{line}} }
func NewFalseExpr(line int) *FalseExpr { return &FalseExpr{baseExpr{line}} }

// IntExpr and FloatExpr are Lua's two numeral subtypes.
type IntExpr struct {
	baseExpr
	Value int64
}

func (e *IntExpr) String() string { return fmt.Sprintf("%d", e.Value) }

func NewIntExpr(line int, v int64) *IntExpr { return &IntExpr{baseExpr{line}, v} }

type FloatExpr struct {
	baseExpr
	Value float64
}

func (e *FloatExpr) String() string { return fmt.Sprintf("%g", e.Value) }

func NewFloatExpr(line int, v float64) *FloatExpr { return &FloatExpr{baseExpr{line}, v} }

// StringExpr is a literal byte string.
type StringExpr struct {
	baseExpr
	Value string
}

func (e *StringExpr) String() string { return fmt.Sprintf("%q", e.Value) }

func NewStringExpr(line int, v string) *StringExpr { return &StringExpr{baseExpr{line}, v} }

// VarargExpr is `...`, legal only inside a vararg function.
type VarargExpr struct{ baseExpr }

func (VarargExpr) String() string { return "..." }

func NewVarargExpr(line int) *VarargExpr { return &VarargExpr{baseExpr{line}} }

// NameExpr reads a resolved variable: a local, an upvalue, or — rewritten
// by the resolver — `_ENV[name]` for a global.
type NameExpr struct {
	baseExpr
	Ref *ResolvedVariable
}

func NewNameExpr(line int, ref *ResolvedVariable) *NameExpr {
	return &NameExpr{baseExpr{line}, ref}
}

func (e *NameExpr) String() string {
	switch e.Ref.Kind {
	case VarGlobal:
		return e.Ref.Name
	default:
		return e.Ref.Decl.Name
	}
}

// IndexExpr is `obj[key]` (dot-field access is pre-lowered to a StringExpr
// key by the resolver, per spec.md's "resolved AST" contract).
type IndexExpr struct {
	baseExpr
	Obj Expression
	Key Expression
}

func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Obj, e.Key) }

func NewIndexExpr(line int, obj, key Expression) *IndexExpr {
	return &IndexExpr{baseExpr{line}, obj, key}
}

// CallExpr invokes Fn with Args; when the last element of Args is itself a
// CallExpr or VarargExpr, its full result list splices in rather than
// truncating to one value (Lua's "last expression in a list expands" rule).
// Method calls (`obj:m(...)`) are pre-desugared: Fn is the resolved method
// value and Args[0] is the receiver.
type CallExpr struct {
	baseExpr
	Fn   Expression
	Args []Expression
}

func (e *CallExpr) String() string { return fmt.Sprintf("%s(...)", e.Fn) }

func NewCallExpr(line int, fn Expression, args []Expression) *CallExpr {
	return &CallExpr{baseExpr{line}, fn, args}
}

// FunctionExpr is a function literal. Captures lists, in the resolver's
// determined order, every outer Decl the body (including nested function
// literals inside it) reaches through a VarUpvalue NameExpr — the
// translator uses this to decide, function by function, which Vars need to
// be reified and to build each IRFunc's own Upvars list (spec.md 4.1, 4.6).
type FunctionExpr struct {
	baseExpr
	Params   []*Decl
	Vararg   bool
	Body     *Block
	Captures []*Decl
	Name     string // for error messages/disassembly only
}

func (e *FunctionExpr) String() string { return fmt.Sprintf("function %s(...)", e.Name) }

func NewFunctionExpr(line int, params []*Decl, vararg bool, body *Block, captures []*Decl, name string) *FunctionExpr {
	return &FunctionExpr{baseExpr{line}, params, vararg, body, captures, name}
}

// BinaryExpr covers every binary operator except AND/OR, which lower to
// control flow rather than a single IR node (spec.md 4.1).
type BinaryExpr struct {
	baseExpr
	Op          string // ADD, SUB, ..., EQ, LT, LE, CONCAT, ...
	Left, Right Expression
}

func (e *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right) }

func NewBinaryExpr(line int, op string, left, right Expression) *BinaryExpr {
	return &BinaryExpr{baseExpr{line}, op, left, right}
}

// UnaryExpr covers UNM, BNOT, LEN, NOT.
type UnaryExpr struct {
	baseExpr
	Op  string
	Src Expression
}

func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", e.Op, e.Src) }

func NewUnaryExpr(line int, op string, src Expression) *UnaryExpr {
	return &UnaryExpr{baseExpr{line}, op, src}
}

// AndExpr / OrExpr are Lua's short-circuit operators, kept distinct from
// BinaryExpr because they lower to branches, not a BinOp node.
type AndExpr struct {
	baseExpr
	Left, Right Expression
}

func (e *AndExpr) String() string { return fmt.Sprintf("(%s and %s)", e.Left, e.Right) }

func NewAndExpr(line int, left, right Expression) *AndExpr {
	return &AndExpr{baseExpr{line}, left, right}
}

type OrExpr struct {
	baseExpr
	Left, Right Expression
}

func (e *OrExpr) String() string { return fmt.Sprintf("(%s or %s)", e.Left, e.Right) }

func NewOrExpr(line int, left, right Expression) *OrExpr {
	return &OrExpr{baseExpr{line}, left, right}
}

// TableField is one entry of a TableExpr: either a positional array entry
// (Key == nil) or a keyed entry.
type TableField struct {
	Key   Expression // nil for a positional entry
	Value Expression
}

// TableExpr is a table constructor `{...}`.
type TableExpr struct {
	baseExpr
	Fields []TableField
}

func (e *TableExpr) String() string { return fmt.Sprintf("{...%d fields}", len(e.Fields)) }

func NewTableExpr(line int, fields []TableField) *TableExpr {
	return &TableExpr{baseExpr{line}, fields}
}

// ParenExpr truncates a multi-value expression (a call or `...`) to exactly
// one value, per Lua's `(f())` rule.
type ParenExpr struct {
	baseExpr
	Inner Expression
}

func (e *ParenExpr) String() string { return fmt.Sprintf("(%s)", e.Inner) }

func NewParenExpr(line int, inner Expression) *ParenExpr {
	return &ParenExpr{baseExpr{line}, inner}
}
