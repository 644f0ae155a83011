// Package translate implements the IR translator (C2, spec.md 4.1): it
// walks a resolved internal/ast.Chunk and lowers it into an internal/ir
// Module of IRFuncs, one per function literal plus the chunk body as
// "main". Grounded on go-dws/internal/bytecode's Compiler (a recursive
// descent over its own AST emitting into a flat instruction stream),
// restructured here to emit into block-structured SSA IR instead.
package translate

import (
	"fmt"

	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/ir"
)

// Translate lowers a resolved chunk into a Module whose "main" function is
// the chunk body, vararg, taking the global environment table as its sole
// formal parameter (spec.md 6.1's "a global rewritten to _ENV[name]":
// _ENV is modeled as main's Params[0], the same way a real Lua compiler
// treats _ENV as the chunk's first upvalue — Go has no ambient upvalue
// without an enclosing call, so the host supplies it as an ordinary
// argument at invocation instead, as pkg/engine's Program.NewCall does).
func Translate(chunk *ast.Chunk) (mod *ir.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(translateError); ok {
				err = fmt.Errorf("translate: %s", string(e))
				return
			}
			panic(r)
		}
	}()

	mod = ir.NewModule()
	tr := &translator{mod: mod, envDecl: &ast.Decl{Name: "_ENV"}, source: chunk.SourceName}

	b := newBuilder(tr, nil, ir.MainFunctionId)
	envVar := ir.NewVar(b.gen, "_ENV", ir.VarKindParam)
	b.vars[tr.envDecl] = envVar
	b.startBlock(b.freshLabel())
	b.translateStmts(chunk.Body.Stmts)
	b.finish()
	b.resolveGotos()

	mainFn := &ir.IRFunc{
		ID:         ir.MainFunctionId,
		Params:     []*ir.Var{envVar},
		Upvars:     b.upvarList,
		Vararg:     true,
		Code:       ir.NewCode(b.blocks),
		SourceName: chunk.SourceName,
	}
	mod.Add(mainFn)
	return mod, nil
}

// translateError is panicked by builder helpers on a malformed input tree
// (e.g. an unresolved goto, a free variable with no enclosing scope) and
// recovered at the Translate boundary into a plain error — these are
// translator-input bugs (a resolver defect), not runtime Lua errors.
type translateError string

func fail(format string, args ...any) {
	panic(translateError(fmt.Sprintf(format, args...)))
}

// translator is the module-wide state shared by every builder: the Module
// under construction and the synthetic _ENV declaration every function's
// global accesses resolve against via the ordinary upvalue-capture chain.
type translator struct {
	mod     *ir.Module
	envDecl *ast.Decl
	source  string
}
