package runtime

import lerr "github.com/lua53go/engine/errors"

// HostFunc adapts a plain Go function into a Callable so a host embedding
// the engine can register native functions as Lua values (spec.md 6.1
// treats the standard library as an external collaborator; this is the
// seam it would plug into). Every HostFunc is non-suspendable: it must run
// to completion or return an ordinary error without panicking a Signal.
// That matches spec.md 4.5's "resume raises 'non-suspendable function'
// unconditionally" for a host function that never opted into suspension —
// this module defines no suspendable host function (no stdlib bodies are
// in scope), so HostFunc's Run, the only way one could end up on a
// coroutine's paused stack, always refuses.
type HostFunc struct {
	FuncName string
	Fn       func(call *Call, args []Value) ([]Value, error)
}

func (h *HostFunc) Name() string { return h.FuncName }

func (h *HostFunc) Invoke(call *Call, args []Value) ([]Value, error) {
	return h.Fn(call, args)
}

// Run exists only so HostFunc satisfies Resumable; nothing in this module
// ever constructs a ResumeInfo pointing at one (Invoke never panics a
// Signal), so reaching this body means a host embedder tried to resume a
// native function directly.
func (h *HostFunc) Run(call *Call, pendingErr error) ([]Value, error) {
	return nil, lerr.New(lerr.NonSuspendableFunction, "attempt to resume non-suspendable host function %q", h.FuncName)
}

// IsErrorHandler is always false: a HostFunc is a leaf native call, never a
// pcall/xpcall boundary.
func (h *HostFunc) IsErrorHandler() bool { return false }

// TableFactory, MetatableAccessor, and StringInterner are the host
// contracts a StateContext provides (spec.md 5, "Shared resources"): a
// stateless table factory, a shared metatable accessor mutated only by
// calls, and a process-wide interned-string registry. pkg/engine wires
// the default implementation (NewDefaultStateContext); a host embedding the engine may supply
// its own (e.g. to back tables with a persistent store).
type TableFactory interface {
	NewTable() *LuaTable
}

// MetatableAccessor looks up and installs metatables, and resolves
// metamethods by name — the single seam Dispatch goes through so every
// arithmetic/index/call operation can honor __index, __add, __call, etc.
// without Dispatch itself knowing how metatables are stored.
type MetatableAccessor interface {
	Metatable(v Value) *LuaTable
	SetMetatable(v Value, meta *LuaTable) error
	// Metamethod looks up event (e.g. "__index") on v's metatable, if any.
	Metamethod(v Value, event string) (Value, bool)
}

// StringInterner deduplicates Lua strings so that RawEqual's identity
// fallback and table hashing stay cheap; spec.md 5 calls for "a
// process-wide weak-keyed registry protected by a single lock on
// mutation" — internal/runtime's Value already compares Go strings by
// value, so interning here is a memory optimization rather than a
// correctness requirement, wired in for parity with the host contract
// shape rather than because Dispatch depends on identity for strings.
type StringInterner interface {
	Intern(s string) string
}

// StateContext bundles the three shared resources a Call's Dispatch uses.
type StateContext struct {
	Tables   TableFactory
	Metas    MetatableAccessor
	Interner StringInterner
}

type defaultTableFactory struct{}

func (defaultTableFactory) NewTable() *LuaTable { return NewTable() }

// defaultMetas stores each table's metatable on the table itself (the
// common case) and keeps a side table for non-table types (strings share
// one metatable by convention, set via SetMetatable(Value{}, meta) with a
// matching Type).
type defaultMetas struct {
	byType map[ValueType]*LuaTable
}

func newDefaultMetas() *defaultMetas {
	return &defaultMetas{byType: make(map[ValueType]*LuaTable)}
}

func (d *defaultMetas) Metatable(v Value) *LuaTable {
	if v.Type == TypeTable {
		return v.AsTable().Metatable()
	}
	return d.byType[v.Type]
}

func (d *defaultMetas) SetMetatable(v Value, meta *LuaTable) error {
	if v.Type == TypeTable {
		v.AsTable().SetMetatable(meta)
		return nil
	}
	d.byType[v.Type] = meta
	return nil
}

func (d *defaultMetas) Metamethod(v Value, event string) (Value, bool) {
	mt := d.Metatable(v)
	if mt == nil {
		return Nil, false
	}
	mm := mt.Get(Str(event))
	if mm.IsNil() {
		return Nil, false
	}
	return mm, true
}

// NewDefaultStateContext builds the in-process StateContext pkg/engine's
// Compile gives every Program.
func NewDefaultStateContext() *StateContext {
	return &StateContext{
		Tables:   defaultTableFactory{},
		Metas:    newDefaultMetas(),
		Interner: NewInterner(),
	}
}
