// Package ir defines the typed, SSA-style intermediate representation that
// sits between the resolved Lua AST and the code emitter: function modules,
// basic blocks, and the value/variable entities analyses run over.
//
// The shapes here follow github.com/cwbudde/go-dws/internal/bytecode's
// Chunk/FunctionObject split, generalized from a flat instruction stream to
// a block-structured SSA form: one Code per IRFunc, one Module per
// compilation unit.
package ir

import (
	"sort"
	"strconv"
	"strings"
)

// FunctionId identifies a function by its path of nesting from the module
// root. The root chunk is always "main"; a function declared inside it is
// "main/1" (its ordinal among sibling function literals), and so on. Ids
// are lexicographically ordered so that a Module's functions can be walked
// in a stable, deterministic order regardless of map iteration.
type FunctionId struct {
	path string
}

// MainFunctionId is the id of a module's chunk-body function.
var MainFunctionId = FunctionId{path: "main"}

// NewFunctionId builds a FunctionId from path segments. Passing no segments
// returns MainFunctionId.
func NewFunctionId(segments ...string) FunctionId {
	if len(segments) == 0 {
		return MainFunctionId
	}
	return FunctionId{path: strings.Join(segments, "/")}
}

// Child derives the id of the nth (0-based) function literal lexically
// nested directly inside f.
func (f FunctionId) Child(ordinal int) FunctionId {
	return FunctionId{path: f.path + "/" + strconv.Itoa(ordinal)}
}

// IsMain reports whether f is the module root.
func (f FunctionId) IsMain() bool {
	return f.path == "main"
}

// Depth is the nesting depth; main is depth 0.
func (f FunctionId) Depth() int { return strings.Count(f.path, "/") }

// String renders the id as a slash-separated path, e.g. "main/1/0".
func (f FunctionId) String() string {
	return f.path
}

// Less gives the lexicographic order used to keep Module.Funcs stable.
func (f FunctionId) Less(other FunctionId) bool {
	a, b := strings.Split(f.path, "/"), strings.Split(other.path, "/")
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Label identifies a basic block within one IRFunc. Labels are integers,
// distinct within a function; the segmenter (internal/transform) mints
// negative labels for synthetic split blocks so they never collide with a
// translator-assigned label.
type Label int

// Module is an ordered collection of IRFuncs, exactly one of which
// (Func(MainFunctionId), also returned by Main) is the chunk body. Every
// nested reference made by any function in the module must resolve to
// another function in the same module (analysis.VerifyClosure checks this).
type Module struct {
	funcs map[FunctionId]*IRFunc
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{funcs: make(map[FunctionId]*IRFunc)}
}

// Add inserts fn, keyed by its own Id. It is a programmer error to add two
// functions with the same Id; Add panics in that case, mirroring the
// "unique id" invariant in the spec rather than silently overwriting.
func (m *Module) Add(fn *IRFunc) {
	if _, exists := m.funcs[fn.ID]; exists {
		panic("ir: duplicate FunctionId " + fn.ID.String())
	}
	m.funcs[fn.ID] = fn
}

// Func looks up a function by id.
func (m *Module) Func(id FunctionId) (*IRFunc, bool) {
	fn, ok := m.funcs[id]
	return fn, ok
}

// Main returns the module's root function. It panics if the module was
// never given one, which would itself be a translator bug.
func (m *Module) Main() *IRFunc {
	fn, ok := m.funcs[MainFunctionId]
	if !ok {
		panic("ir: module has no main function")
	}
	return fn
}

// Funcs returns every function in the module, ordered by FunctionId so that
// iteration is deterministic (tests and the disassembler rely on this).
func (m *Module) Funcs() []*IRFunc {
	out := make([]*IRFunc, 0, len(m.funcs))
	for _, fn := range m.funcs {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// Len reports how many functions the module contains.
func (m *Module) Len() int { return len(m.funcs) }

// IRFunc is one compiled Lua function: its identity, formal parameters, the
// set of outer variables it captures, whether it accepts varargs, and its
// code. Immutable once the transform pipeline (internal/transform) has run.
type IRFunc struct {
	ID         FunctionId
	Params     []*Var
	Upvars     []*UpVar
	Vararg     bool
	Code       *Code
	SourceName string // chunk/file name, for error messages only
	Line       int    // declaration line, for error messages only
}

// NumParams returns len(Params), the formal parameter count used by the
// emitter to pick an invoke "kind" (spec.md 4.5).
func (fn *IRFunc) NumParams() int { return len(fn.Params) }

// HasUpvalues reports whether the emitted function needs a per-instance
// upvalue slice (and therefore cannot be the loader's shared singleton).
func (fn *IRFunc) HasUpvalues() bool { return len(fn.Upvars) > 0 }
