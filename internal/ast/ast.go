// Package ast defines the resolved Lua AST: the input to internal/translate
// (spec.md 6.1). The lexer/parser that produces this tree is explicitly out
// of scope (spec.md 1, "we take a resolved AST as input") — every name here
// already carries its ResolvedVariable attribute rather than a bare string,
// matching go-dws/internal/ast's Node/Expression/Statement split, narrowed
// to Lua 5.3's grammar and pre-resolved the way the spec describes.
package ast

// Node is the base interface every AST node implements.
type Node interface {
	// Line reports the source line the node started on, 0 if synthetic.
	Line() int
	String() string
}

// Expression is any node that produces a value.
type Expression interface {
	Node
	exprNode()
}

// Statement is any node that performs an action without itself producing a
// value.
type Statement interface {
	Node
	stmtNode()
}

// Block is an ordered list of statements sharing one lexical scope.
type Block struct {
	Stmts []Statement
}

// Chunk is the root of a resolved program: its Body is the "main" function
// (spec.md 3.1), always vararg (top-level Lua chunks receive the script's
// command-line arguments as `...`).
type Chunk struct {
	Body       *Block
	SourceName string
}
