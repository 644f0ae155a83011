// Package emit is the code emitter (C6, spec.md 4.5/4.6): it turns one
// internal/ir.IRFunc, already typed (internal/analysis) and slotted
// (internal/slots), into a runtime.Callable. There is no bytecode and no
// generated Go source: emitted code is a closure — a *Closure value plus a
// tree-walking frame that interprets the IR directly against a register
// array sized by the slot allocator, suspending through internal/runtime's
// panic/recover Signal protocol at every Call node exactly as a fully
// compiled target would.
//
// spec.md section 9's "no nested classes" REDESIGN FLAG asks for a flat
// FunctionId -> CompiledFunction dictionary with an explicit parent pointer
// and a singleton for no-upvalue functions in place of the source's
// JVM-style inner classes; FuncTemplate/Closure/Resolver here are that
// shape, grounded on internal/bytecode/vm.go's central dispatch loop
// restructured into a segment-at-a-time resumable the way internal/runtime's
// Call already was.
package emit

import (
	"fmt"

	"github.com/lua53go/engine/internal/analysis"
	"github.com/lua53go/engine/internal/ir"
	"github.com/lua53go/engine/internal/runtime"
	"github.com/lua53go/engine/internal/slots"
)

// Cell is a captured variable's shared storage: a Var the type pass marked
// Reified (internal/analysis.MarkReified) gets one of these instead of a
// plain register slot, so nested closures and the frame that declared the
// Var observe the same mutations.
type Cell struct {
	V runtime.Value
}

// Resolver materializes a nested function as a runtime.Value, given the
// cells its own Upvars need (already resolved against the calling frame).
// internal/loader is the only implementation: it owns the flat
// FunctionId -> FuncTemplate dictionary and decides singleton reuse.
type Resolver interface {
	Closure(target ir.FunctionId, upvals []*Cell) runtime.Value
}

// FuncTemplate is the immutable, shared-per-FunctionId compiled shape.
// internal/loader keeps exactly one per FunctionId; every invocation of a
// function with no upvalues shares one runtime.Value wrapping one Closure,
// while a function with upvalues gets a fresh Closure per instantiation,
// all pointing at the same FuncTemplate.
type FuncTemplate struct {
	Fn       *ir.IRFunc
	Slots    *slots.SlotAllocInfo
	Types    *analysis.TypeInfo
	Resolve  Resolver
	upvarIdx map[*ir.UpVar]int
}

// NewFuncTemplate builds the immutable per-function compiled shape.
func NewFuncTemplate(fn *ir.IRFunc, slotInfo *slots.SlotAllocInfo, types *analysis.TypeInfo, resolve Resolver) *FuncTemplate {
	idx := make(map[*ir.UpVar]int, len(fn.Upvars))
	for i, uv := range fn.Upvars {
		idx[uv] = i
	}
	return &FuncTemplate{Fn: fn, Slots: slotInfo, Types: types, Resolve: resolve, upvarIdx: idx}
}

// Closure is one instantiation of a FuncTemplate bound to a specific set of
// captured cells. It implements runtime.Callable: every fresh invocation
// builds its own frame so concurrent/recursive calls never share registers.
type Closure struct {
	tmpl   *FuncTemplate
	upvals []*Cell
}

// NewClosure binds tmpl to upvals (nil/empty for a function with no
// upvalues — internal/loader reuses one Closure as the shared singleton in
// that case, per spec.md's C6 redesign).
func NewClosure(tmpl *FuncTemplate, upvals []*Cell) *Closure {
	return &Closure{tmpl: tmpl, upvals: upvals}
}

// Name identifies the closure by its FunctionId, for error messages and
// stack traces.
func (c *Closure) Name() string { return c.tmpl.Fn.ID.String() }

// Invoke starts a fresh call to this closure; results come back directly
// when the call never suspends, or propagate up through a chain of
// Propagate'd Signals when it does — internal/runtime.Call.Resume drives
// the rest from the paused frame it receives.
func (c *Closure) Invoke(call *runtime.Call, args []runtime.Value) ([]runtime.Value, error) {
	fr := newFrame(c, args)
	return fr.Run(call, nil)
}

// point is a saved resumption point: which block, and how far into its
// body execution had gotten.
type point struct {
	block ir.Label
	idx   int
}

// frame is one activation of a Closure: its register file, any reified
// Vars' cells, and where execution paused, if it did. frame implements
// runtime.Resumable so it can sit on a coroutine's paused stack like any
// other frame.
type frame struct {
	cl     *Closure
	regs   []runtime.Value
	cells  map[int]*Cell        // slot -> cell, for reified Vars only
	multi  map[int][]runtime.Value // MultiVal id -> its current contents
	vararg []runtime.Value

	at point

	// awaiting records that this frame suspended mid-Call (body node): on
	// the next Run, the callee's result comes from call.PendingResult()
	// instead of invoking again. A TCallTerm never suspends by itself — it
	// only records a pending tail call on the coroutine's return buffer for
	// Call.Resume's drive loop to honor, so it needs no equivalent flag.
	awaiting *ir.MultiVal
}

func newFrame(cl *Closure, args []runtime.Value) *frame {
	fn := cl.tmpl.Fn
	fr := &frame{
		cl:   cl,
		regs: make([]runtime.Value, cl.tmpl.Slots.NumSlots()),
		at:   point{block: fn.Code.Entry().Label},
	}
	for i, p := range fn.Params {
		v := runtime.Nil
		if i < len(args) {
			v = args[i]
		}
		fr.bind(p, v)
	}
	if fn.Vararg && len(args) > len(fn.Params) {
		fr.vararg = append([]runtime.Value(nil), args[len(fn.Params):]...)
	}
	return fr
}

// bind stores v for a freshly-declared Var or Param, creating its Cell if
// it is reified.
func (fr *frame) bind(v *ir.Var, val runtime.Value) {
	slot := fr.cl.tmpl.Slots.Slot(v)
	if v.Reified {
		if fr.cells == nil {
			fr.cells = make(map[int]*Cell)
		}
		fr.cells[slot] = &Cell{V: val}
		return
	}
	fr.regs[slot] = val
}

// get reads any slotted entity (Val, PhiVal, or an already-declared Var).
func (fr *frame) get(e any) runtime.Value {
	slot := fr.cl.tmpl.Slots.Slot(e)
	if c, ok := fr.cells[slot]; ok {
		return c.V
	}
	return fr.regs[slot]
}

// set writes any slotted entity that is not a fresh Var declaration (those
// go through bind, so a reified Var's Cell gets created exactly once).
func (fr *frame) set(e any, val runtime.Value) {
	slot := fr.cl.tmpl.Slots.Slot(e)
	if c, ok := fr.cells[slot]; ok {
		c.V = val
		return
	}
	fr.regs[slot] = val
}

func (fr *frame) setMulti(m *ir.MultiVal, vs []runtime.Value) {
	if fr.multi == nil {
		fr.multi = make(map[int][]runtime.Value)
	}
	fr.multi[m.ID()] = vs
}

func (fr *frame) getMulti(m *ir.MultiVal) []runtime.Value {
	if m == nil || fr.multi == nil {
		return nil
	}
	return fr.multi[m.ID()]
}

func (fr *frame) cellForVar(v *ir.Var) *Cell {
	slot := fr.cl.tmpl.Slots.Slot(v)
	c, ok := fr.cells[slot]
	if !ok {
		panic(fmt.Sprintf("emit: %s: Var %q captured by a closure but never reified", fr.cl.Name(), v.Name))
	}
	return c
}

func (fr *frame) cellForUpVar(uv *ir.UpVar) *Cell {
	idx, ok := fr.cl.tmpl.upvarIdx[uv]
	if !ok {
		panic(fmt.Sprintf("emit: %s: UpVar %q not declared on this function", fr.cl.Name(), uv.Name))
	}
	return fr.cl.upvals[idx]
}

func (fr *frame) cellFor(src ir.UpvalSource) *Cell {
	if src.Var != nil {
		return fr.cellForVar(src.Var)
	}
	return fr.cellForUpVar(src.Outer)
}

func (fr *frame) evalArgs(args []*ir.Val, tail *ir.MultiVal) []runtime.Value {
	out := make([]runtime.Value, 0, len(args)+1)
	for _, a := range args {
		out = append(out, fr.get(a))
	}
	if tail != nil {
		out = append(out, fr.getMulti(tail)...)
	}
	return out
}

// IsErrorHandler is always false: error-handler boundaries are pcall/xpcall
// frames (internal/runtime's own pcallFrame), not compiled-function
// activations.
func (fr *frame) IsErrorHandler() bool { return false }

// Run executes fr from its saved resumption point until it returns, errors,
// or suspends. A Signal panicking out of exec is caught here and
// re-propagated with fr's own continuation appended, so Call.Resume's
// eventual recover carries the whole paused chain, innermost first.
func (fr *frame) Run(call *runtime.Call, pendingErr error) (results []runtime.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.Propagate(r, &runtime.ResumeInfo{Frame: fr})
		}
	}()
	return fr.exec(call, pendingErr)
}
