package ast

import "fmt"

type baseStmt struct{ line int }

func (b baseStmt) Line() int { return b.line }
func (baseStmt) stmtNode()   {}

// AssignTarget is the left-hand side of one slot of an AssignStmt: either a
// resolved variable or an index expression (`t.k = v` / `t[k] = v`).
type AssignTarget struct {
	Var   *ResolvedVariable // non-nil for a plain name target
	Index *IndexExpr        // non-nil for an index target
}

// LocalStmt declares one or more locals, binding Decls[i] to the i-th
// expression (Lua pads missing initializers with nil and discards extras,
// except the last expression in Exprs may itself expand — see CallExpr).
type LocalStmt struct {
	baseStmt
	Decls []*Decl
	Exprs []Expression
}

func NewLocalStmt(line int, decls []*Decl, exprs []Expression) *LocalStmt {
	return &LocalStmt{baseStmt{line}, decls, exprs}
}

func (s *LocalStmt) String() string { return fmt.Sprintf("local ...(%d)", len(s.Decls)) }

// AssignStmt assigns Exprs into Targets, parallel-style (Lua evaluates all
// right-hand sides before performing any assignment).
type AssignStmt struct {
	baseStmt
	Targets []AssignTarget
	Exprs   []Expression
}

func NewAssignStmt(line int, targets []AssignTarget, exprs []Expression) *AssignStmt {
	return &AssignStmt{baseStmt{line}, targets, exprs}
}

func (s *AssignStmt) String() string { return fmt.Sprintf("assign ...(%d)", len(s.Targets)) }

// ExprStmt is a call used as a statement, its results discarded.
type ExprStmt struct {
	baseStmt
	Call *CallExpr
}

func NewExprStmt(line int, call *CallExpr) *ExprStmt { return &ExprStmt{baseStmt{line}, call} }

func (s *ExprStmt) String() string { return s.Call.String() }

// DoStmt is a `do ... end` block, introducing a fresh lexical scope with no
// other control-flow effect.
type DoStmt struct {
	baseStmt
	Body *Block
}

func NewDoStmt(line int, body *Block) *DoStmt { return &DoStmt{baseStmt{line}, body} }
func (s *DoStmt) String() string              { return "do ... end" }

// WhileStmt is `while Cond do Body end`.
type WhileStmt struct {
	baseStmt
	Cond Expression
	Body *Block
}

func NewWhileStmt(line int, cond Expression, body *Block) *WhileStmt {
	return &WhileStmt{baseStmt{line}, cond, body}
}
func (s *WhileStmt) String() string { return "while ... do ... end" }

// RepeatStmt is `repeat Body until Cond` — Cond may read locals declared in
// Body, unlike While's condition.
type RepeatStmt struct {
	baseStmt
	Body *Block
	Cond Expression
}

func NewRepeatStmt(line int, body *Block, cond Expression) *RepeatStmt {
	return &RepeatStmt{baseStmt{line}, body, cond}
}
func (s *RepeatStmt) String() string { return "repeat ... until ..." }

// IfClause is one `if`/`elseif` arm.
type IfClause struct {
	Cond Expression
	Body *Block
}

// IfStmt is `if ... elseif ... else ... end`; Else is nil when absent.
type IfStmt struct {
	baseStmt
	Clauses []IfClause
	Else    *Block
}

func NewIfStmt(line int, clauses []IfClause, els *Block) *IfStmt {
	return &IfStmt{baseStmt{line}, clauses, els}
}
func (s *IfStmt) String() string { return "if ... end" }

// NumericForStmt is `for Control = Init, Limit[, Step] do Body end`
// (spec.md 4.1's "three-test header").
type NumericForStmt struct {
	baseStmt
	Control            *Decl
	Init, Limit, Step  Expression // Step is nil when the source omits it (implies 1)
	Body               *Block
}

func NewNumericForStmt(line int, control *Decl, init, limit, step Expression, body *Block) *NumericForStmt {
	return &NumericForStmt{baseStmt{line}, control, init, limit, step, body}
}
func (s *NumericForStmt) String() string { return "for ... = ... do ... end" }

// GenericForStmt is `for Names in Exprs do Body end`, lowering to Lua's
// iterator protocol (spec.md 4.1).
type GenericForStmt struct {
	baseStmt
	Names []*Decl
	Exprs []Expression
	Body  *Block
}

func NewGenericForStmt(line int, names []*Decl, exprs []Expression, body *Block) *GenericForStmt {
	return &GenericForStmt{baseStmt{line}, names, exprs, body}
}
func (s *GenericForStmt) String() string { return "for ... in ... do ... end" }

// ReturnStmt returns Exprs from the enclosing function.
type ReturnStmt struct {
	baseStmt
	Exprs []Expression
}

func NewReturnStmt(line int, exprs []Expression) *ReturnStmt {
	return &ReturnStmt{baseStmt{line}, exprs}
}
func (s *ReturnStmt) String() string { return "return ..." }

// BreakStmt exits the innermost enclosing loop.
type BreakStmt struct{ baseStmt }

func NewBreakStmt(line int) *BreakStmt { return &BreakStmt{baseStmt{line}} }
func (s *BreakStmt) String() string    { return "break" }

// GotoStmt transfers control to the statement tagged with the matching
// LabelStmt in the same or an enclosing block.
type GotoStmt struct {
	baseStmt
	Label string
}

func NewGotoStmt(line int, label string) *GotoStmt { return &GotoStmt{baseStmt{line}, label} }
func (s *GotoStmt) String() string                  { return "goto " + s.Label }

// LabelStmt is a `::name::` goto target.
type LabelStmt struct {
	baseStmt
	Name string
}

func NewLabelStmt(line int, name string) *LabelStmt { return &LabelStmt{baseStmt{line}, name} }
func (s *LabelStmt) String() string                 { return "::" + s.Name + "::" }
