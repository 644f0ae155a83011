// Package runtime implements the call executor (C7), coroutines (C8), the
// scheduler (C9), and the return buffer and dispatch layer (C10): the
// pieces that turn the emitted callables from internal/emit into running
// Lua programs. The value representation here is grounded on
// internal/bytecode's Value{Data, Type} tagged union, narrowed from
// DWScript's richer type set down to Lua 5.3's eight basic types.
package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType tags the eight Lua 5.3 basic types (reference manual 3.1).
type ValueType byte

const (
	TypeNil ValueType = iota
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeString
	TypeTable
	TypeFunction
	TypeUserdata
	TypeThread
)

var typeNames = [...]string{
	TypeNil:      "nil",
	TypeBoolean:  "boolean",
	TypeInteger:  "number",
	TypeFloat:    "number",
	TypeString:   "string",
	TypeTable:    "table",
	TypeFunction: "function",
	TypeUserdata: "userdata",
	TypeThread:   "thread",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Value is a Lua value: the Data field holds a bool, int64, float64,
// string, *LuaTable, Callable, *Coroutine, or any host userdata payload,
// tagged explicitly by Type rather than relying on a Go type switch alone —
// Lua distinguishes integer and float subtypes of "number" that a bare Go
// type switch on int64/float64 would conflate with host-provided userdata
// wrapping the same Go types.
type Value struct {
	Data interface{}
	Type ValueType
}

var Nil = Value{Type: TypeNil}

func Bool(b bool) Value   { return Value{Type: TypeBoolean, Data: b} }
func Int(i int64) Value   { return Value{Type: TypeInteger, Data: i} }
func Float(f float64) Value { return Value{Type: TypeFloat, Data: f} }
func Str(s string) Value  { return Value{Type: TypeString, Data: s} }

func Table(t *LuaTable) Value      { return Value{Type: TypeTable, Data: t} }
func Function(c Callable) Value    { return Value{Type: TypeFunction, Data: c} }
func Thread(c *Coroutine) Value    { return Value{Type: TypeThread, Data: c} }
func Userdata(v interface{}) Value { return Value{Type: TypeUserdata, Data: v} }

func (v Value) IsNil() bool    { return v.Type == TypeNil }
func (v Value) AsBool() bool   { return v.Data.(bool) }
func (v Value) AsInt() int64   { return v.Data.(int64) }
func (v Value) AsFloat() float64 {
	if v.Type == TypeInteger {
		return float64(v.Data.(int64))
	}
	return v.Data.(float64)
}
func (v Value) AsString() string       { return v.Data.(string) }
func (v Value) AsTable() *LuaTable     { return v.Data.(*LuaTable) }
func (v Value) AsFunction() Callable   { return v.Data.(Callable) }
func (v Value) AsThread() *Coroutine   { return v.Data.(*Coroutine) }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool { return v.Type == TypeInteger || v.Type == TypeFloat }

// Truthy implements Lua's truthiness rule: everything is truthy except nil
// and false.
func (v Value) Truthy() bool {
	return v.Type != TypeNil && !(v.Type == TypeBoolean && !v.Data.(bool))
}

// RawEqual implements Lua's primitive equality (no __eq dispatch): numbers
// compare by mathematical value across the int/float subtypes, everything
// else by identity or by-value for strings/booleans.
func RawEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Type == TypeInteger && b.Type == TypeInteger {
			return a.Data.(int64) == b.Data.(int64)
		}
		return a.AsFloat() == b.AsFloat()
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNil:
		return true
	case TypeBoolean:
		return a.Data.(bool) == b.Data.(bool)
	case TypeString:
		return a.Data.(string) == b.Data.(string)
	default:
		return a.Data == b.Data // identity comparison for tables/functions/threads/userdata
	}
}

func (v Value) String() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return fmt.Sprintf("%v", v.Data)
	case TypeInteger:
		return fmt.Sprintf("%d", v.Data)
	case TypeFloat:
		return fmt.Sprintf("%g", v.Data)
	case TypeString:
		return v.Data.(string)
	default:
		return fmt.Sprintf("%s: %p", v.Type, v.Data)
	}
}

// CoerceToNumber implements Lua's arithmetic string coercion (reference
// manual 3.4.3): a number converts to itself; a string converts if it looks
// like a numeral, including hex integers like "0x10", trimming surrounding
// whitespace first. Anything else fails.
func CoerceToNumber(v Value) (Value, bool) {
	if v.IsNumber() {
		return v, true
	}
	if v.Type != TypeString {
		return Nil, false
	}
	s := strings.TrimSpace(v.AsString())
	if s == "" {
		return Nil, false
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return Int(i), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Float(f), true
	}
	return Nil, false
}

// Callable is anything Dispatch.Call can invoke: both the closures
// internal/emit produces and host-provided Go functions implement it.
type Callable interface {
	// Invoke runs the callable to completion or to its first suspension
	// point, returning results or a control signal/error.
	Invoke(exec *Call, args []Value) ([]Value, error)
	// Name is used in error messages and stack traces.
	Name() string
}
