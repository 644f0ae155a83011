package ast

// Decl is a local-variable declaration's identity: the thing a
// ResolvedVariable points at. Two uses of the same surface name in
// different scopes are different *Decl values; the same *Decl seen from a
// nested FunctionExpr is what internal/translate recognizes as a capture.
type Decl struct {
	Name     string
	Line     int
	IsParam  bool
}

// VarKind distinguishes how a name was resolved, mirroring spec.md 6.1:
// "every variable use carries a ResolvedVariable attribute pointing at a
// declaration (local, upvalue, or a global rewritten to _ENV[name])".
type VarKind int

const (
	VarLocal VarKind = iota
	VarUpvalue
	VarGlobal
)

// ResolvedVariable is the attribute every name-producing node (NameExpr,
// and the declaration/assignment targets that bind one) carries.
type ResolvedVariable struct {
	Kind VarKind
	Decl *Decl  // non-nil for VarLocal/VarUpvalue
	Name string // global name, set only for VarGlobal
}
