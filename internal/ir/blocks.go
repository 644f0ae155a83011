package ir

// Terminator ends a BasicBlock and names the labels control can transfer
// to. Every label a Terminator names must be defined by some block in the
// same Code (spec.md 3.2 invariant i). Nothing checks this up front; the
// executor in internal/emit fails when it reaches a label no block defines.
type Terminator interface {
	Successors() []Label
	termTag()
}

// ToNextTerm is an unconditional jump (also used for plain fallthrough,
// `break`, and `goto`, all of which lower to a jump to the target block's
// label).
type ToNextTerm struct {
	Target Label
}

func (t *ToNextTerm) termTag()          {}
func (t *ToNextTerm) Successors() []Label { return []Label{t.Target} }

// BranchTerm is a two-way conditional jump.
type BranchTerm struct {
	Cond *Val
	Then Label
	Else Label
}

func (t *BranchTerm) termTag() {}
func (t *BranchTerm) Successors() []Label {
	return []Label{t.Then, t.Else}
}

// ForTestTerm is the three-test numeric-for header (spec.md 4.1: "numeric
// for loops lower to a three-test header plus a body block with a
// step-back edge"). It evaluates, in order: (1) Step ~= 0, (2) the
// direction-correct comparison of Init against Limit using Step's sign,
// and transfers to Body when the loop should execute at least once, or to
// Exit otherwise. The body block's own terminator is a ToNextTerm back to
// this same label, re-running the test with the updated control variable —
// that back edge is the "step-back edge".
type ForTestTerm struct {
	Init  *Val
	Limit *Val
	Step  *Val
	Body  Label
	Exit  Label
}

func (t *ForTestTerm) termTag() {}
func (t *ForTestTerm) Successors() []Label {
	return []Label{t.Body, t.Exit}
}

// RetTerm returns from the function with the contents of Multi (nil means
// a bare `return` with no values — the emitter treats that as an empty
// return list, not as "no MultiVal").
type RetTerm struct {
	Multi *MultiVal
}

func (t *RetTerm) termTag()            {}
func (t *RetTerm) Successors() []Label { return nil }

// TCallTerm is a tail call: `return f(...)`. internal/emit lowers this to
// recording Target/Args as a pending call on the current coroutine's return
// buffer rather than invoking it directly; runtime.Call.Resume's drive loop
// replaces the current frame with the callee, so a chain of tail calls
// grows the buffer, not the Go stack.
type TCallTerm struct {
	Target   *Val
	Args     []*Val
	ArgsTail *MultiVal
	Line     int
}

func (t *TCallTerm) termTag()            {}
func (t *TCallTerm) Successors() []Label { return nil }

// BasicBlock is a label, an ordered body of Nodes, and exactly one
// Terminator. Immutable once a transformer has finished constructing it —
// transformers build a new slice of blocks rather than mutating one in
// place (spec.md section 9's "immutable-then-replace style").
type BasicBlock struct {
	Label Label
	Body  []Node
	Term  Terminator
}

// Len is the node count the segmenter (internal/transform) bounds: the
// body plus one for the terminator, matching spec.md 4.3's "|body|+1".
func (b *BasicBlock) Len() int { return len(b.Body) + 1 }

// Code is an ordered, non-empty list of basic blocks; the first block is
// the function's entry point.
type Code struct {
	Blocks []*BasicBlock
}

// NewCode wraps blocks as a Code, asserting the non-empty invariant.
func NewCode(blocks []*BasicBlock) *Code {
	if len(blocks) == 0 {
		panic("ir: Code must have at least one block")
	}
	return &Code{Blocks: blocks}
}

// Entry returns the first block, the function's entry point.
func (c *Code) Entry() *BasicBlock { return c.Blocks[0] }

// ByLabel finds a block by label, or nil if none matches.
func (c *Code) ByLabel(l Label) *BasicBlock {
	for _, b := range c.Blocks {
		if b.Label == l {
			return b
		}
	}
	return nil
}

// NodeCount sums Len() over every block — the quantity the segmenter's
// node-count limit bounds per segment, and the quantity the "segmenter
// conservation" testable property (spec.md 8) checks across a split.
func (c *Code) NodeCount() int {
	total := 0
	for _, b := range c.Blocks {
		total += b.Len()
	}
	return total
}

// Walk visits every node and terminator across every block, in block then
// body order. internal/analysis's type and dependency passes visit nodes
// through it; liveness keeps its own breadth-first label order.
func (c *Code) Walk(visitNode func(b *BasicBlock, n Node), visitTerm func(b *BasicBlock, t Terminator)) {
	for _, b := range c.Blocks {
		for _, n := range b.Body {
			if visitNode != nil {
				visitNode(b, n)
			}
		}
		if visitTerm != nil {
			visitTerm(b, b.Term)
		}
	}
}
