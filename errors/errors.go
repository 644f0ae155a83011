// Package errors defines the runtime error kinds the call executor
// (internal/runtime) raises and catches, formatted the way a host embedding
// the engine would want to log or surface them.
package errors

import (
	"fmt"
	"strings"
)

// Kind tags one of the runtime error categories the executor distinguishes
// (spec.md 4.10's table): most are ordinary Lua errors a pcall/xpcall
// handler can catch; InvalidContinuation is a host-level invariant
// violation that bypasses Lua handlers entirely.
type Kind int

const (
	// ConversionFailure covers a failed numeric coercion: a for-loop bound
	// or arithmetic operand that could not convert to a number.
	ConversionFailure Kind = iota
	// IllegalOperationAttempt covers arithmetic, indexing, or length on a
	// value whose type does not support the operation and has no
	// applicable metamethod.
	IllegalOperationAttempt
	// LuaRuntimeError wraps the value passed to error() or a failed
	// assert(), carrying that value as-is rather than a formatted string.
	LuaRuntimeError
	// IllegalCoroutineState covers a resume or yield attempted while the
	// target coroutine is in a status that forbids it.
	IllegalCoroutineState
	// NonSuspendableFunction covers resuming a host-provided function that
	// never opted into suspension.
	NonSuspendableFunction
	// InvalidContinuation covers a version mismatch on Call.Resume: the
	// continuation token does not match the call's current paused version.
	InvalidContinuation
)

func (k Kind) String() string {
	switch k {
	case ConversionFailure:
		return "conversion failure"
	case IllegalOperationAttempt:
		return "illegal operation"
	case LuaRuntimeError:
		return "runtime error"
	case IllegalCoroutineState:
		return "illegal coroutine state"
	case NonSuspendableFunction:
		return "non-suspendable function"
	case InvalidContinuation:
		return "invalid continuation"
	}
	return "unknown error"
}

// RuntimeError is the error type the executor raises for every Kind. For
// LuaRuntimeError it carries the thrown Lua value in Value, and pcall/xpcall
// hand that value (any Lua value, not only a string) to their caller or
// message handler.
type RuntimeError struct {
	Kind    Kind
	Message string
	// Line is the source line the failing IR node carried, 0 if unknown.
	Line int
	// Value holds the original Lua value for LuaRuntimeError (the argument
	// to error() or assert()); nil for every other Kind.
	Value any
	// Cause chains an underlying Go error, if the failure originated
	// outside the interpreted program (e.g. a host callback panic).
	Cause error
}

func New(kind Kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAtLine is New with a source line attached, for errors raised while
// executing a specific IR node.
func NewAtLine(kind Kind, line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// NewLuaError wraps a value thrown via error() or a failed assert(); value
// may be any Lua value, not only a string, matching Lua 5.3 semantics.
func NewLuaError(value any) *RuntimeError {
	msg := ""
	if s, ok := value.(string); ok {
		msg = s
	} else {
		msg = fmt.Sprintf("%v", value)
	}
	return &RuntimeError{Kind: LuaRuntimeError, Message: msg, Value: value}
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// Is reports whether target is a *RuntimeError of the same Kind, so callers
// can use errors.Is(err, errors.New(errors.IllegalOperationAttempt, "")) …
// style checks against a sentinel built with the Kind they care about.
func (e *RuntimeError) Is(target error) bool {
	other, ok := target.(*RuntimeError)
	return ok && other.Kind == e.Kind
}

// CatchableByPcall reports whether a pcall/xpcall handler may intercept
// this error, per spec.md 4.10's propagation policy: every Kind except
// InvalidContinuation is an ordinary Lua-level error and is catchable;
// InvalidContinuation is a host-level invariant violation and always
// escapes to the host.
func (e *RuntimeError) CatchableByPcall() bool {
	return e.Kind != InvalidContinuation
}

// CompilerError formats a failure from the translator or loader with source
// position and a caret, the way a host embedding the engine would want to
// print a bad resolved-AST fixture. There is no lexer in this module (input
// is a resolved AST, not source text — see SPEC_FULL.md §1–2), so Line/Column
// are supplied directly by the caller instead of coming from a token
// position.
type CompilerError struct {
	Message string
	Source  string
	File    string
	Line    int
	Column  int
}

// NewCompilerError builds a CompilerError; source may be empty when no
// original text is available (the common case, since most CompilerErrors
// originate from a malformed resolved-AST fixture rather than parsed text).
func NewCompilerError(line, column int, message, source, file string) *CompilerError {
	return &CompilerError{Message: message, Source: source, File: file, Line: line, Column: column}
}

func (e *CompilerError) Error() string { return e.Format(false) }

// Format renders the error with a source line and caret when Source is
// available, or a bare position header otherwise. color wraps the caret and
// message in ANSI codes for terminal output.
func (e *CompilerError) Format(color bool) string {
	var sb strings.Builder

	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Line, e.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Line, e.Column)
	}

	if line := e.sourceLine(e.Line); line != "" {
		prefix := fmt.Sprintf("%4d | ", e.Line)
		sb.WriteString(prefix)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (e *CompilerError) sourceLine(n int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// FormatErrors renders a batch of CompilerErrors, numbering each when there
// is more than one.
func FormatErrors(errs []*CompilerError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compilation failed with %d error(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[Error %d of %d]\n", i+1, len(errs))
		sb.WriteString(e.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
