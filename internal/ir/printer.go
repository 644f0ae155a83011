package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders a Module or IRFunc as human-readable IR text, grounded on
// internal/bytecode's Disassembler: one line per node, a block header per
// label, and the terminator last. Used by the `luavm disasm` command and by
// golden-file tests.
type Printer struct {
	w io.Writer
}

// NewPrinter wraps w for IR dumping.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// PrintModule dumps every function in the module, in FunctionId order.
func (p *Printer) PrintModule(m *Module) {
	for _, fn := range m.Funcs() {
		p.PrintFunc(fn)
		fmt.Fprintln(p.w)
	}
}

// PrintFunc dumps one function's blocks.
func (p *Printer) PrintFunc(fn *IRFunc) {
	kind := "function"
	if fn.Vararg {
		kind = "vararg function"
	}
	fmt.Fprintf(p.w, "== %s (%s, %d param(s), %d upvalue(s)) ==\n", fn.ID, kind, len(fn.Params), len(fn.Upvars))
	for _, b := range fn.Code.Blocks {
		p.printBlock(b)
	}
}

func (p *Printer) printBlock(b *BasicBlock) {
	fmt.Fprintf(p.w, "L%d:\n", b.Label)
	for _, n := range b.Body {
		fmt.Fprintf(p.w, "    %s\n", describeNode(n))
	}
	fmt.Fprintf(p.w, "    %s\n", describeTerm(b.Term))
}

func describeNode(n Node) string {
	switch v := n.(type) {
	case *LoadConst:
		switch v.Kind {
		case ConstNil:
			return fmt.Sprintf("%s = const nil", name(v.Dst))
		case ConstBool:
			return fmt.Sprintf("%s = const %v", name(v.Dst), v.Bool)
		case ConstInt:
			return fmt.Sprintf("%s = const %d", name(v.Dst), v.Int)
		case ConstFlt:
			return fmt.Sprintf("%s = const %g", name(v.Dst), v.Flt)
		case ConstStr:
			return fmt.Sprintf("%s = const %q", name(v.Dst), v.Str)
		}
	case *BinOp:
		return fmt.Sprintf("%s = %s %s, %s", name(v.Dst), v.Op, name(v.Left), name(v.Right))
	case *UnOp:
		return fmt.Sprintf("%s = %s %s", name(v.Dst), v.Op, name(v.Src))
	case *Concat:
		parts := make([]string, len(v.Operands))
		for i, o := range v.Operands {
			parts[i] = name(o)
		}
		return fmt.Sprintf("%s = CONCAT %s", name(v.Dst), strings.Join(parts, ", "))
	case *ToNumber:
		return fmt.Sprintf("%s = tonumber %s", name(v.Dst), name(v.Src))
	case *TabNew:
		return fmt.Sprintf("%s = newtable", name(v.Dst))
	case *TabGet:
		return fmt.Sprintf("%s = %s[%s]", name(v.Dst), name(v.Tab), name(v.Key))
	case *TabSet:
		return fmt.Sprintf("%s[%s] = %s", name(v.Tab), name(v.Key), name(v.Val))
	case *TabRawSetInt:
		return fmt.Sprintf("%s[%d] = %s", name(v.Tab), v.Index, name(v.Val))
	case *TabStackAppend:
		return fmt.Sprintf("append %s <- %s", name(v.Tab), name(v.Multi))
	case *VarInit:
		return fmt.Sprintf("var %s := %s", name(v.Dst), name(v.Src))
	case *VarLoad:
		return fmt.Sprintf("%s = %s", name(v.Dst), name(v.Src))
	case *VarStore:
		return fmt.Sprintf("%s := %s", name(v.Dst), name(v.Src))
	case *UpLoad:
		return fmt.Sprintf("%s = up(%s)", name(v.Dst), name(v.Src))
	case *UpStore:
		return fmt.Sprintf("up(%s) := %s", name(v.Dst), name(v.Src))
	case *PhiLoad:
		return fmt.Sprintf("%s = %s", name(v.Dst), name(v.Src))
	case *PhiStore:
		return fmt.Sprintf("%s := %s", name(v.Dst), name(v.Src))
	case *MultiGet:
		if v.Index < 0 {
			return fmt.Sprintf("%s = %s[%d:]", name(v.Dst), name(v.Src), -v.Index-1)
		}
		return fmt.Sprintf("%s = %s[%d]", name(v.Dst), name(v.Src), v.Index)
	case *Vararg:
		return fmt.Sprintf("%s = ...", name(v.Dst))
	case *MakeClosure:
		return fmt.Sprintf("%s = closure %s", name(v.Dst), v.Target)
	case *Bundle:
		vals := make([]string, len(v.Vals))
		for i, e := range v.Vals {
			vals[i] = name(e)
		}
		tail := ""
		if v.Tail != nil {
			tail = ", " + name(v.Tail) + "..."
		}
		return fmt.Sprintf("%s = bundle(%s%s)", name(v.Dst), strings.Join(vals, ", "), tail)
	case *Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = name(a)
		}
		tail := ""
		if v.ArgsTail != nil {
			tail = ", " + name(v.ArgsTail) + "..."
		}
		return fmt.Sprintf("%s = call %s(%s%s)", name(v.Dst), name(v.Target), strings.Join(args, ", "), tail)
	case *Line:
		return fmt.Sprintf("; line %d", v.Num)
	case *CpuWithdraw:
		return fmt.Sprintf("cpu.withdraw %d", v.Ticks)
	}
	return "<?>"
}

func describeTerm(t Terminator) string {
	switch v := t.(type) {
	case *ToNextTerm:
		return fmt.Sprintf("goto L%d", v.Target)
	case *BranchTerm:
		return fmt.Sprintf("if %s then L%d else L%d", name(v.Cond), v.Then, v.Else)
	case *ForTestTerm:
		return fmt.Sprintf("fortest %s,%s,%s then L%d else L%d",
			name(v.Init), name(v.Limit), name(v.Step), v.Body, v.Exit)
	case *RetTerm:
		return fmt.Sprintf("return %s", name(v.Multi))
	case *TCallTerm:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = name(a)
		}
		return fmt.Sprintf("tailcall %s(%s)", name(v.Target), strings.Join(args, ", "))
	}
	return "<?term>"
}

// name renders any IR entity (or nil) for diagnostics; anonymous entities
// get a %<kind><id> placeholder the way an unnamed SSA value does in most
// compiler IR dumps.
func name(e any) string {
	switch v := e.(type) {
	case nil:
		return "<nil>"
	case *Val:
		if v == nil {
			return "<nil>"
		}
		if v.Name != "" {
			return v.Name
		}
		return fmt.Sprintf("%%v%d", v.id)
	case *PhiVal:
		if v.Name != "" {
			return v.Name
		}
		return fmt.Sprintf("%%p%d", v.id)
	case *MultiVal:
		if v.Name != "" {
			return v.Name
		}
		return fmt.Sprintf("%%m%d", v.id)
	case *Var:
		return v.Name
	case *UpVar:
		return "^" + v.Name
	}
	return fmt.Sprintf("%v", e)
}
