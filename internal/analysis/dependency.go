package analysis

import "github.com/lua53go/engine/internal/ir"

// DependencyInfo is the set of FunctionIds a function references (spec.md
// 3.3). ComputeDependencies fills it from two sources: every function in
// the module whose id nests directly under the function's own id, and the
// Target of every ir.MakeClosure node in the function's body.
type DependencyInfo struct {
	deps map[ir.FunctionId]bool
}

// Contains reports whether id is a recorded dependency.
func (d *DependencyInfo) Contains(id ir.FunctionId) bool {
	return d.deps[id]
}

// IDs returns the dependency set as a slice, unordered.
func (d *DependencyInfo) IDs() []ir.FunctionId {
	out := make([]ir.FunctionId, 0, len(d.deps))
	for id := range d.deps {
		out = append(out, id)
	}
	return out
}

// ComputeDependencies collects the FunctionIds of every function nested
// directly inside fn, by FunctionId path structure: any function in m whose
// id is exactly one segment longer than fn's and shares fn's prefix is a
// direct nested closure of fn.
func ComputeDependencies(m *ir.Module, fn *ir.IRFunc) *DependencyInfo {
	info := &DependencyInfo{deps: make(map[ir.FunctionId]bool)}
	prefix := fn.ID.String()
	for _, candidate := range m.Funcs() {
		if candidate.ID == fn.ID {
			continue
		}
		if isDirectChild(prefix, candidate.ID.String()) {
			info.deps[candidate.ID] = true
		}
	}
	// A MakeClosure node is authoritative regardless of path structure: the
	// translator emits one wherever fn's body actually instantiates a
	// nested function, so a closure built for a function the path heuristic
	// didn't catch (or one reused across lexically distinct call sites)
	// still counts as a dependency.
	fn.Code.Walk(func(_ *ir.BasicBlock, n ir.Node) {
		if mc, ok := n.(*ir.MakeClosure); ok {
			info.deps[mc.Target] = true
		}
	}, nil)
	return info
}

func isDirectChild(parent, candidate string) bool {
	if len(candidate) <= len(parent) || candidate[:len(parent)] != parent {
		return false
	}
	rest := candidate[len(parent):]
	if len(rest) == 0 || rest[0] != '/' {
		return false
	}
	rest = rest[1:]
	for _, c := range rest {
		if c == '/' {
			return false
		}
	}
	return true
}

// VerifyClosure checks the module invariant from spec.md 3.1: every nested
// reference made by any included function resolves to an IRFunc contained
// in the same module. Returns the first missing FunctionId found, or the
// zero FunctionId and ok=true if all dependencies resolve.
func VerifyClosure(m *ir.Module) (missing ir.FunctionId, ok bool) {
	for _, fn := range m.Funcs() {
		dep := ComputeDependencies(m, fn)
		for _, id := range dep.IDs() {
			if _, present := m.Func(id); !present {
				return id, false
			}
		}
	}
	return ir.FunctionId{}, true
}

// MarkReified sets Var.Reified for every Var in the module that some other
// function captures through an UpVar, resolving transitive capture (an
// UpVar whose OuterUpVar is itself captured one level further out) all the
// way back to the owning Var. spec.md 3.2 invariant (iv): "If a Var is
// captured by a nested function, it is reified."
func MarkReified(m *ir.Module) {
	for _, fn := range m.Funcs() {
		for _, uv := range fn.Upvars {
			markChain(uv)
		}
	}
}

func markChain(uv *ir.UpVar) {
	switch {
	case uv.OuterVar != nil:
		uv.OuterVar.Reified = true
	case uv.OuterUpVar != nil:
		markChain(uv.OuterUpVar)
	}
}
