package translate

import (
	"github.com/lua53go/engine/internal/ast"
	"github.com/lua53go/engine/internal/ir"
)

// loopCtx records where `break` should jump for the loop currently being
// translated.
type loopCtx struct {
	breakLabel ir.Label
}

// pendingGoto is a goto whose target label hadn't been seen yet when the
// ToNextTerm was created; builder.resolveGotos patches term.Target once the
// whole function body has been walked.
type pendingGoto struct {
	term *ir.ToNextTerm
	name string
	line int
}

// builder accumulates one IRFunc's worth of blocks. Exactly one exists per
// function (main or a nested literal) being translated; nested function
// literals get their own builder linked via parent, the same nesting
// builder.resolveUpvar walks to mint UpVar chains (spec.md 4.1).
type builder struct {
	tr     *translator
	parent *builder
	fnID   ir.FunctionId
	gen    *ir.IDGen

	vars   map[*ast.Decl]*ir.Var
	upvars map[*ast.Decl]*ir.UpVar
	// upvarList preserves the order UpVars were first minted: this order is
	// exactly the Upvars slice the finished IRFunc carries, and the order
	// MakeClosure.Sources must supply them in (spec.md 4.5).
	upvarList []*ir.UpVar

	blocks  []*ir.BasicBlock
	curLbl  ir.Label
	curBody []ir.Node
	nextLbl int

	loops        []loopCtx
	labelsByName map[string]ir.Label
	pendingGotos []pendingGoto

	childCount int
}

func newBuilder(tr *translator, parent *builder, id ir.FunctionId) *builder {
	return &builder{
		tr:           tr,
		parent:       parent,
		fnID:         id,
		gen:          ir.NewIDGen(),
		vars:         make(map[*ast.Decl]*ir.Var),
		upvars:       make(map[*ast.Decl]*ir.UpVar),
		labelsByName: make(map[string]ir.Label),
	}
}

func (b *builder) freshLabel() ir.Label {
	l := ir.Label(b.nextLbl)
	b.nextLbl++
	return l
}

// blockTickCost is what every basic block's entry withdraws from the
// scheduler (spec.md 4.9: "one per basic-block entry or per backward edge
// in the default accounting mode"). Entering any block, including a loop
// header reached by its step-back edge, already covers the backward-edge
// case, so a single withdrawal at block start suffices without a separate
// one on the edge itself.
const blockTickCost = 1

func (b *builder) startBlock(l ir.Label) {
	b.curLbl = l
	b.curBody = []ir.Node{&ir.CpuWithdraw{Ticks: blockTickCost}}
}

func (b *builder) emit(n ir.Node) {
	b.curBody = append(b.curBody, n)
}

// terminate closes the currently open block with term and pushes it. The
// caller is responsible for calling startBlock again before emitting
// anything further (translateStmts always leaves an open block behind a
// terminating construct, even if nothing can reach it — internal/transform's
// unreachable pruner removes it).
func (b *builder) terminate(term ir.Terminator) {
	b.blocks = append(b.blocks, &ir.BasicBlock{Label: b.curLbl, Body: b.curBody, Term: term})
}

// finish closes a function body that fell off the end without an explicit
// return, per Lua's implicit `return` at the end of any block.
func (b *builder) finish() {
	b.terminate(&ir.RetTerm{Multi: nil})
}

func (b *builder) pushLoop(breakLabel ir.Label) {
	b.loops = append(b.loops, loopCtx{breakLabel: breakLabel})
}

func (b *builder) popLoop() {
	b.loops = b.loops[:len(b.loops)-1]
}

func (b *builder) currentLoop() loopCtx {
	if len(b.loops) == 0 {
		fail("break outside a loop")
	}
	return b.loops[len(b.loops)-1]
}

func (b *builder) resolveGotos() {
	for _, g := range b.pendingGotos {
		l, ok := b.labelsByName[g.name]
		if !ok {
			fail("no visible label %q for goto at line %d", g.name, g.line)
		}
		g.term.Target = l
	}
}

// resolveUpvar returns b's own UpVar for decl, minting the whole chain of
// UpVars from the nearest enclosing function that owns decl as a plain Var
// down to b, exactly as spec.md 4.1 describes: "the translator flattens
// this so each IRFunc's Upvars list only ever names entities in its
// immediate lexical parent".
func (b *builder) resolveUpvar(decl *ast.Decl) *ir.UpVar {
	if uv, ok := b.upvars[decl]; ok {
		return uv
	}
	if b.parent == nil {
		fail("free variable %q has no enclosing scope", decl.Name)
	}
	var uv *ir.UpVar
	if pv, ok := b.parent.vars[decl]; ok {
		uv = ir.NewUpVar(b.gen, decl.Name, pv)
	} else {
		puv := b.parent.resolveUpvar(decl)
		uv = ir.NewTransitiveUpVar(b.gen, decl.Name, puv)
	}
	b.upvars[decl] = uv
	b.upvarList = append(b.upvarList, uv)
	return uv
}

// readVar loads decl's current value into a fresh Val, dispatching on how
// the resolver classified the reference (spec.md 6.1).
func (b *builder) readVar(ref *ast.ResolvedVariable) *ir.Val {
	switch ref.Kind {
	case ast.VarLocal:
		v, ok := b.vars[ref.Decl]
		if !ok {
			fail("local %q read before declaration", ref.Decl.Name)
		}
		dst := ir.NewVal(b.gen, ref.Decl.Name)
		b.emit(&ir.VarLoad{Dst: dst, Src: v})
		return dst
	case ast.VarUpvalue:
		uv := b.resolveUpvar(ref.Decl)
		dst := ir.NewVal(b.gen, ref.Decl.Name)
		b.emit(&ir.UpLoad{Dst: dst, Src: uv})
		return dst
	default: // VarGlobal
		return b.readGlobal(ref.Name)
	}
}

// writeVar stores src into decl, mirroring readVar's dispatch.
func (b *builder) writeVar(ref *ast.ResolvedVariable, src *ir.Val) {
	switch ref.Kind {
	case ast.VarLocal:
		v, ok := b.vars[ref.Decl]
		if !ok {
			fail("local %q assigned before declaration", ref.Decl.Name)
		}
		b.emit(&ir.VarStore{Dst: v, Src: src})
	case ast.VarUpvalue:
		uv := b.resolveUpvar(ref.Decl)
		b.emit(&ir.UpStore{Dst: uv, Src: src})
	default:
		b.writeGlobal(ref.Name, src)
	}
}

// envVal loads the current function's view of _ENV (spec.md 6.1).
func (b *builder) envVal() *ir.Val {
	if v, ok := b.vars[b.tr.envDecl]; ok {
		dst := ir.NewVal(b.gen, "_ENV")
		b.emit(&ir.VarLoad{Dst: dst, Src: v})
		return dst
	}
	uv := b.resolveUpvar(b.tr.envDecl)
	dst := ir.NewVal(b.gen, "_ENV")
	b.emit(&ir.UpLoad{Dst: dst, Src: uv})
	return dst
}

func (b *builder) readGlobal(name string) *ir.Val {
	env := b.envVal()
	key := ir.NewVal(b.gen, "")
	b.emit(&ir.LoadConst{Dst: key, Kind: ir.ConstStr, Str: name})
	dst := ir.NewVal(b.gen, name)
	b.emit(&ir.TabGet{Dst: dst, Tab: env, Key: key})
	return dst
}

func (b *builder) writeGlobal(name string, src *ir.Val) {
	env := b.envVal()
	key := ir.NewVal(b.gen, "")
	b.emit(&ir.LoadConst{Dst: key, Kind: ir.ConstStr, Str: name})
	b.emit(&ir.TabSet{Tab: env, Key: key, Val: src})
}

// declareLocal registers a freshly declared Var for decl, binding it to an
// initial value (VarInit is the node that starts decl's liveness range,
// spec.md 3.2).
func (b *builder) declareLocal(decl *ast.Decl, init *ir.Val) *ir.Var {
	kind := ir.VarKindLocal
	if decl.IsParam {
		kind = ir.VarKindParam
	}
	v := ir.NewVar(b.gen, decl.Name, kind)
	b.vars[decl] = v
	b.emit(&ir.VarInit{Dst: v, Src: init})
	return v
}
