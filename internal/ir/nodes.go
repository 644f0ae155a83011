package ir

// Node is one body instruction inside a BasicBlock. The taxonomy is a
// closed set of tagged variants (one Go struct per kind) rather than an
// open class hierarchy with double-dispatch visitors — spec.md section 9
// explicitly asks for "tagged variants and match" in place of the source's
// visitor pattern, and every internal/analysis and internal/transform pass
// is written as a type switch over Node.
type Node interface {
	// Defs returns the entities (Val/PhiVal/MultiVal/Var) this node defines,
	// in the SSA sense: written exactly once, here.
	Defs() []any
	// Uses returns the entities this node reads.
	Uses() []any
	nodeTag()
}

// BinOpKind enumerates Lua's binary operators (spec.md 4.1).
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpIDiv
	OpPow
	OpConcat
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpEq
	OpNeq
	OpLt
	OpLe
)

func (k BinOpKind) String() string {
	names := [...]string{"ADD", "SUB", "MUL", "DIV", "MOD", "IDIV", "POW", "CONCAT",
		"BAND", "BOR", "BXOR", "SHL", "SHR", "EQ", "NEQ", "LT", "LE"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// IsArithmetic reports whether k is a numeric operator subject to the
// ternary Integer/Float/Number/Any type lattice (internal/analysis).
func (k BinOpKind) IsArithmetic() bool {
	switch k {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpIDiv, OpPow:
		return true
	}
	return false
}

// IsBitwise reports whether k requires integer representations at runtime.
func (k BinOpKind) IsBitwise() bool {
	switch k {
	case OpBAnd, OpBOr, OpBXor, OpShl, OpShr:
		return true
	}
	return false
}

// IsComparison reports whether k produces a boolean.
func (k BinOpKind) IsComparison() bool {
	switch k {
	case OpEq, OpNeq, OpLt, OpLe:
		return true
	}
	return false
}

// UnOpKind enumerates Lua's unary operators.
type UnOpKind int

const (
	OpUnm UnOpKind = iota
	OpBNot
	OpLen
	OpNot
)

func (k UnOpKind) String() string {
	names := [...]string{"UNM", "BNOT", "LEN", "NOT"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// ConstKind enumerates the LoadConst variants.
type ConstKind int

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstFlt
	ConstStr
)

// LoadConst pushes a literal value, tagged by ConstKind so the type pass
// (internal/analysis) never has to inspect the Go value itself.
type LoadConst struct {
	Dst  *Val
	Kind ConstKind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
}

func (n *LoadConst) nodeTag()      {}
func (n *LoadConst) Defs() []any   { return []any{n.Dst} }
func (n *LoadConst) Uses() []any   { return nil }

// BinOp is a two-operand arithmetic/bitwise/comparison op.
type BinOp struct {
	Dst   *Val
	Op    BinOpKind
	Left  *Val
	Right *Val
}

func (n *BinOp) nodeTag()    {}
func (n *BinOp) Defs() []any { return []any{n.Dst} }
func (n *BinOp) Uses() []any { return []any{n.Left, n.Right} }

// UnOp is a single-operand op, also used for string length (LEN).
type UnOp struct {
	Dst *Val
	Op  UnOpKind
	Src *Val
}

func (n *UnOp) nodeTag()    {}
func (n *UnOp) Defs() []any { return []any{n.Dst} }
func (n *UnOp) Uses() []any { return []any{n.Src} }

// Concat lowers `a .. b .. c` as a single n-ary node (Lua right-associates
// concat and the reference VM batches runs of it); translators fold any run
// of adjacent CONCAT BinOps into one Concat instead.
type Concat struct {
	Dst      *Val
	Operands []*Val
}

func (n *Concat) nodeTag()  {}
func (n *Concat) Defs() []any { return []any{n.Dst} }
func (n *Concat) Uses() []any {
	out := make([]any, len(n.Operands))
	for i, v := range n.Operands {
		out[i] = v
	}
	return out
}

// ToNumber coerces a value to a number the way Lua's arithmetic coercion
// does (e.g. the string "0x10" converts to the integer 16).
type ToNumber struct {
	Dst *Val
	Src *Val
}

func (n *ToNumber) nodeTag()    {}
func (n *ToNumber) Defs() []any { return []any{n.Dst} }
func (n *ToNumber) Uses() []any { return []any{n.Src} }

// TabNew creates a fresh, empty table.
type TabNew struct {
	Dst *Val
}

func (n *TabNew) nodeTag()    {}
func (n *TabNew) Defs() []any { return []any{n.Dst} }
func (n *TabNew) Uses() []any { return nil }

// TabGet performs `dst = tab[key]` without metamethod dispatch (raw get is
// a translator-level optimization only when the table is known fresh; the
// general case goes through Dispatch at runtime, not through IR).
type TabGet struct {
	Dst *Val
	Tab *Val
	Key *Val
}

func (n *TabGet) nodeTag()    {}
func (n *TabGet) Defs() []any { return []any{n.Dst} }
func (n *TabGet) Uses() []any { return []any{n.Tab, n.Key} }

// TabSet performs `tab[key] = val`.
type TabSet struct {
	Tab *Val
	Key *Val
	Val *Val
}

func (n *TabSet) nodeTag()    {}
func (n *TabSet) Defs() []any { return nil }
func (n *TabSet) Uses() []any { return []any{n.Tab, n.Key, n.Val} }

// TabRawSetInt performs `tab[index] = val` for a constant integer index,
// the fast path table constructors use for positional array entries.
type TabRawSetInt struct {
	Tab   *Val
	Index int64
	Val   *Val
}

func (n *TabRawSetInt) nodeTag()    {}
func (n *TabRawSetInt) Defs() []any { return nil }
func (n *TabRawSetInt) Uses() []any { return []any{n.Tab, n.Val} }

// TabStackAppend appends the full contents of a MultiVal to the end of a
// table's array part, used for the trailing `...`/call expression in a
// table constructor (`{a, b, f()}`).
type TabStackAppend struct {
	Tab   *Val
	Multi *MultiVal
}

func (n *TabStackAppend) nodeTag()    {}
func (n *TabStackAppend) Defs() []any { return nil }
func (n *TabStackAppend) Uses() []any { return []any{n.Tab, n.Multi} }

// VarInit declares a Var and gives it its initial value in one step (the
// point at which the Var starts existing for liveness purposes).
type VarInit struct {
	Dst *Var
	Src *Val
}

func (n *VarInit) nodeTag()    {}
func (n *VarInit) Defs() []any { return []any{n.Dst} }
func (n *VarInit) Uses() []any { return []any{n.Src} }

// VarLoad reads a Var into a fresh Val.
type VarLoad struct {
	Dst *Val
	Src *Var
}

func (n *VarLoad) nodeTag()    {}
func (n *VarLoad) Defs() []any { return []any{n.Dst} }
func (n *VarLoad) Uses() []any { return []any{n.Src} }

// VarStore writes a Val into an existing Var.
//
// Liveness special case (spec.md 4.2): VarStore USES both Src and Dst — the
// assignment reads the variable's identity (its Cell, if reified) even
// though it overwrites the value — so internal/analysis's liveness pass
// must not treat Dst as a def here.
type VarStore struct {
	Dst *Var
	Src *Val
}

func (n *VarStore) nodeTag()    {}
func (n *VarStore) Defs() []any { return nil }
func (n *VarStore) Uses() []any { return []any{n.Dst, n.Src} }

// UpLoad reads a captured outer variable through its UpVar cell.
type UpLoad struct {
	Dst *Val
	Src *UpVar
}

func (n *UpLoad) nodeTag()    {}
func (n *UpLoad) Defs() []any { return []any{n.Dst} }
func (n *UpLoad) Uses() []any { return []any{n.Src} }

// UpStore writes through an UpVar cell, visible to the enclosing function.
type UpStore struct {
	Dst *UpVar
	Src *Val
}

func (n *UpStore) nodeTag()    {}
func (n *UpStore) Defs() []any { return nil }
func (n *UpStore) Uses() []any { return []any{n.Dst, n.Src} }

// PhiLoad reads a PhiVal defined by a join (internal/translate emits one
// per short-circuit/comparison result and per loop-carried value).
type PhiLoad struct {
	Dst *Val
	Src *PhiVal
}

func (n *PhiLoad) nodeTag()    {}
func (n *PhiLoad) Defs() []any { return []any{n.Dst} }
func (n *PhiLoad) Uses() []any { return []any{n.Src} }

// PhiStore defines a PhiVal along one predecessor edge.
type PhiStore struct {
	Dst *PhiVal
	Src *Val
}

func (n *PhiStore) nodeTag()    {}
func (n *PhiStore) Defs() []any { return []any{n.Dst} }
func (n *PhiStore) Uses() []any { return []any{n.Src} }

// MultiGet projects one element (Index >= 0) or, when Index < 0, the
// entire remaining tail, out of a MultiVal.
type MultiGet struct {
	Dst   *Val
	Src   *MultiVal
	Index int
}

func (n *MultiGet) nodeTag()    {}
func (n *MultiGet) Defs() []any { return []any{n.Dst} }
func (n *MultiGet) Uses() []any { return []any{n.Src} }

// Vararg reads the function's `...` into a fresh MultiVal. Only legal when
// IRFunc.Vararg is true (spec.md 3.2 invariant iii).
type Vararg struct {
	Dst *MultiVal
}

func (n *Vararg) nodeTag()    {}
func (n *Vararg) Defs() []any { return []any{n.Dst} }
func (n *Vararg) Uses() []any { return nil }

// Bundle packages zero or more Vals, plus an optional trailing MultiVal
// splice, into a fresh MultiVal — the same packaging Call does for its
// Args, made available as its own node for the other place a Lua construct
// needs a MultiVal out of ordinary Vals: a `return` statement's expression
// list (`return a, b, f()`, or `return a+1`, which needs a one-element
// Bundle even though no call is involved).
type Bundle struct {
	Dst  *MultiVal
	Vals []*Val
	Tail *MultiVal
}

func (n *Bundle) nodeTag()  {}
func (n *Bundle) Defs() []any { return []any{n.Dst} }
func (n *Bundle) Uses() []any {
	out := make([]any, 0, len(n.Vals)+1)
	for _, v := range n.Vals {
		out = append(out, v)
	}
	if n.Tail != nil {
		out = append(out, n.Tail)
	}
	return out
}

// Call invokes Target with Args (the last of which may itself be a
// MultiVal splice, e.g. `f(a, g())`), producing a MultiVal of results. This
// is a body node, not a terminator: a non-tail call returns control to the
// same block. A suspend can still happen here (spec.md 4.5); the emitter
// is responsible for treating every Call as a resumption point.
type Call struct {
	Dst      *MultiVal
	Target   *Val
	Args     []*Val
	ArgsTail *MultiVal // non-nil when the last argument is a splice
	Line     int
}

func (n *Call) nodeTag()  {}
func (n *Call) Defs() []any { return []any{n.Dst} }
func (n *Call) Uses() []any {
	out := make([]any, 0, len(n.Args)+2)
	out = append(out, n.Target)
	for _, a := range n.Args {
		out = append(out, a)
	}
	if n.ArgsTail != nil {
		out = append(out, n.ArgsTail)
	}
	return out
}

// UpvalSource names where one of a closure's captured cells comes from in
// the enclosing function's own frame: exactly one of Var/Outer is set. The
// translator already knows this at the point a nested function literal is
// compiled (scope resolution has run), so it bakes the binding directly
// into the MakeClosure node rather than leaving the emitter to rediscover
// it from the target function's declared Upvars.
type UpvalSource struct {
	Var   *Var
	Outer *UpVar
}

// MakeClosure materializes a nested function as a callable Value (spec.md's
// "closure-creating nodes"): the one place in the IR where a FunctionId
// becomes a first-class value that can be stored in a Var, passed as a Call
// argument, or returned. Sources[i] supplies the cell for Target.Upvars[i],
// in order. A Target with no Upvars lowers to a shared singleton instead of
// a fresh allocation (internal/loader).
type MakeClosure struct {
	Dst     *Val
	Target  FunctionId
	Sources []UpvalSource
}

func (n *MakeClosure) nodeTag()    {}
func (n *MakeClosure) Defs() []any { return []any{n.Dst} }
func (n *MakeClosure) Uses() []any {
	out := make([]any, 0, len(n.Sources))
	for _, s := range n.Sources {
		if s.Var != nil {
			out = append(out, s.Var)
		}
		// an Outer source reads this function's own UpVar cell, which is
		// never slotted (see slots.keyOf) and so contributes no use entity
		// the allocator or liveness pass needs to track.
	}
	return out
}

// Line annotates the following nodes with a source line, carried forward
// by the segmenter when it splits a block (spec.md 4.3).
type Line struct {
	Num int
}

func (n *Line) nodeTag()    {}
func (n *Line) Defs() []any { return nil }
func (n *Line) Uses() []any { return nil }

// CpuWithdraw registers a tick cost with the scheduler (internal/runtime);
// the translator inserts one per basic-block entry and per backward edge
// in the default accounting mode (spec.md 4.9).
type CpuWithdraw struct {
	Ticks int
}

func (n *CpuWithdraw) nodeTag()    {}
func (n *CpuWithdraw) Defs() []any { return nil }
func (n *CpuWithdraw) Uses() []any { return nil }
