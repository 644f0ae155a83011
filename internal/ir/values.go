package ir

// Val is an SSA value: produced by exactly one defining instruction,
// consumed by zero or more. Vals are never mutated in place; a transformer
// that wants a "different" value constructs a new one and rewrites uses.
type Val struct {
	id   int
	Name string // optional, for IR dumps only
}

// PhiVal is a join value at a block merge: its definition is contributed by
// each predecessor edge via a PhiStore, and read once per use via PhiLoad.
type PhiVal struct {
	id   int
	Name string
}

// MultiVal holds a variadic result: a function's return list, or the
// function's own varargs. It flows through MultiGet to project a single
// element or the whole tail.
type MultiVal struct {
	id   int
	Name string
}

// idGen hands out unique, increasing ids for Val/PhiVal/MultiVal/Var/UpVar
// within one IRFunc under construction. The translator owns one per
// function; transformers that synthesize new entities take one from the
// function they're rewriting.
type idGen struct{ next int }

func (g *idGen) take() int {
	id := g.next
	g.next++
	return id
}

// NewVal mints a fresh Val from gen.
func NewVal(gen *IDGen, name string) *Val { return &Val{id: gen.g.take(), Name: name} }

// NewPhiVal mints a fresh PhiVal from gen.
func NewPhiVal(gen *IDGen, name string) *PhiVal { return &PhiVal{id: gen.g.take(), Name: name} }

// NewMultiVal mints a fresh MultiVal from gen.
func NewMultiVal(gen *IDGen, name string) *MultiVal { return &MultiVal{id: gen.g.take(), Name: name} }

// ID returns a stable, per-function-unique integer for use as a map key.
func (v *Val) ID() int      { return v.id }
func (v *PhiVal) ID() int   { return v.id }
func (v *MultiVal) ID() int { return v.id }

// IDGen is the exported handle a translator or transformer threads through
// construction of one IRFunc so that every Val/PhiVal/MultiVal/Var/UpVar it
// creates gets a unique id. Zero value is not usable; use NewIDGen.
type IDGen struct{ g idGen }

// NewIDGen returns a fresh generator, numbering from 0.
func NewIDGen() *IDGen { return &IDGen{} }

// VarKind distinguishes how a Var came to exist, which matters to the
// emitter (parameters occupy slots 0..n-1 before anything else is
// allocated) and to the translator (locals vs. for-loop control variables
// are both plain Vars, but declared at different points).
type VarKind int

const (
	VarKindLocal VarKind = iota
	VarKindParam
)

// Var is a user-visible variable slot: may be read and written many times
// across its lexical scope and, if a nested function closes over it, is
// reified — its storage moves into a heap-allocated Cell so the nested
// function can share mutations with the enclosing one.
type Var struct {
	id       int
	Name     string
	Kind     VarKind
	Reified  bool // set by analysis.MarkReified, not the translator
	DeclLine int
}

// NewVar mints a fresh Var from gen.
func NewVar(gen *IDGen, name string, kind VarKind) *Var {
	return &Var{id: gen.g.take(), Name: name, Kind: kind}
}

// ID returns a stable, per-function-unique integer for use as a map key.
func (v *Var) ID() int { return v.id }

// UpVar is a reference, from inside a nested IRFunc, to a Var owned by an
// enclosing function (or, transitively, to another UpVar one level further
// out — the translator flattens this so each IRFunc's Upvars list only ever
// names entities in its immediate lexical parent).
type UpVar struct {
	id   int
	Name string
	// Outer is the enclosing function's Var or UpVar this one refers to.
	// Exactly one of OuterVar/OuterUpVar is non-nil.
	OuterVar   *Var
	OuterUpVar *UpVar
}

// NewUpVar mints a fresh UpVar from gen, capturing an enclosing local.
func NewUpVar(gen *IDGen, name string, outer *Var) *UpVar {
	return &UpVar{id: gen.g.take(), Name: name, OuterVar: outer}
}

// NewTransitiveUpVar mints a fresh UpVar from gen, capturing an enclosing
// function's own upvalue (capture-through-capture).
func NewTransitiveUpVar(gen *IDGen, name string, outer *UpVar) *UpVar {
	return &UpVar{id: gen.g.take(), Name: name, OuterUpVar: outer}
}

// ID returns a stable, per-function-unique integer for use as a map key.
func (u *UpVar) ID() int { return u.id }
