// Dispatch-level operations are the single channel emitted code uses to
// interact with Lua semantics, including metamethod handling (spec.md
// 4.10); they may suspend when a metamethod itself suspends (a __index
// implemented as a Lua function that yields, for instance), so every
// Dispatch method takes the current *Call and may panic with a Signal like
// any other Resumable.
//
// Grounded on internal/bytecode/vm_ops.go's binaryIntOp/binaryFloatOp/
// compare/valuesEqual family, generalized from DWScript's static numeric
// types to Lua's dynamic metamethod-driven dispatch.
package runtime

import (
	"math"

	lerr "github.com/lua53go/engine/errors"
)

// Dispatch bundles the StateContext a Call's operations need to resolve
// metamethods and allocate tables.
type Dispatch struct {
	State *StateContext
}

func NewDispatch(state *StateContext) *Dispatch { return &Dispatch{State: state} }

// Arith performs one of Lua's arithmetic/bitwise/concat binary operators,
// coercing a string operand that looks like a numeral first (reference
// manual 3.4.3: "0x10" + 1 == 17.0 — see coerceArithOperand), then falling
// back to the matching metamethod when either operand's type still doesn't
// support the raw operation.
func (d *Dispatch) Arith(call *Call, event string, a, b Value) (Value, error) {
	ca, aok := coerceArithOperand(a)
	cb, bok := coerceArithOperand(b)
	switch event {
	case MetaAdd, MetaSub, MetaMul, MetaMod, MetaIDiv:
		if aok && bok {
			return rawArith(event, ca, cb)
		}
	case MetaDiv, MetaPow:
		if aok && bok {
			return Float(floatArith(event, ca.AsFloat(), cb.AsFloat())), nil
		}
	case MetaBAnd, MetaBOr, MetaBXor, MetaShl, MetaShr:
		if aok {
			if ai, aiok := asInteger(ca); aiok {
				if bok {
					if bi, biok := asInteger(cb); biok {
						return Int(intBitwise(event, ai, bi)), nil
					}
				}
			}
		}
	case MetaConcat:
		if (a.Type == TypeString || a.IsNumber()) && (b.Type == TypeString || b.IsNumber()) {
			return Str(a.String() + b.String()), nil
		}
	}
	if mm, ok := d.State.Metas.Metamethod(a, event); ok {
		return d.callMeta1(call, mm, a, b)
	}
	if mm, ok := d.State.Metas.Metamethod(b, event); ok {
		return d.callMeta1(call, mm, a, b)
	}
	return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to perform arithmetic on a %s value", badOperand(a, b).Type)
}

// Unm performs unary minus, honoring __unm. A coercible string operand
// always yields a float result, per coerceArithOperand.
func (d *Dispatch) Unm(call *Call, v Value) (Value, error) {
	if v.Type == TypeInteger {
		return Int(-v.AsInt()), nil
	}
	if v.Type == TypeFloat {
		return Float(-v.AsFloat()), nil
	}
	if cv, ok := coerceArithOperand(v); ok {
		return Float(-cv.AsFloat()), nil
	}
	if mm, ok := d.State.Metas.Metamethod(v, MetaUnm); ok {
		return d.callMeta1(call, mm, v, v)
	}
	return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to perform arithmetic on a %s value", v.Type)
}

// BNot performs unary bitwise-not, honoring __bnot. Lua 5.3 requires the
// operand to have an exact integer representation (reference manual 3.4.2);
// a coercible numeral string is converted first, same as the binary bitwise
// operators; a float with a fractional part falls straight to the
// metamethod, same as any other non-integer-representable operand.
func (d *Dispatch) BNot(call *Call, v Value) (Value, error) {
	if cv, ok := coerceArithOperand(v); ok {
		if i, iok := asInteger(cv); iok {
			return Int(^i), nil
		}
	}
	if mm, ok := d.State.Metas.Metamethod(v, MetaBNot); ok {
		return d.callMeta1(call, mm, v, v)
	}
	return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to perform bitwise operation on a %s value", v.Type)
}

// Len implements `#v`, honoring __len for tables and any other type.
func (d *Dispatch) Len(call *Call, v Value) (Value, error) {
	if v.Type == TypeString {
		return Int(int64(len(v.AsString()))), nil
	}
	if mm, ok := d.State.Metas.Metamethod(v, MetaLen); ok {
		return d.callMeta1(call, mm, v, Nil)
	}
	if v.Type == TypeTable {
		return Int(v.AsTable().Len()), nil
	}
	return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to get length of a %s value", v.Type)
}

// Index implements `tab[key]`, trying a raw get first, then chaining
// through __index (a table or a callable) per Lua's rules.
func (d *Dispatch) Index(call *Call, tab, key Value) (Value, error) {
	if tab.Type == TypeTable {
		v := tab.AsTable().Get(key)
		if !v.IsNil() {
			return v, nil
		}
	} else if tab.Type != TypeString {
		mm, ok := d.State.Metas.Metamethod(tab, MetaIndex)
		if !ok {
			return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to index a %s value", tab.Type)
		}
		return d.chainIndex(call, mm, tab, key)
	}
	mm, ok := d.State.Metas.Metamethod(tab, MetaIndex)
	if !ok {
		return Nil, nil
	}
	return d.chainIndex(call, mm, tab, key)
}

func (d *Dispatch) chainIndex(call *Call, mm, tab, key Value) (Value, error) {
	if mm.Type == TypeFunction {
		return d.callMeta1(call, mm, tab, key)
	}
	return d.Index(call, mm, key) // __index is itself a table: chain
}

// SetIndex implements `tab[key] = val`, honoring __newindex.
func (d *Dispatch) SetIndex(call *Call, tab, key, val Value) error {
	if tab.Type == TypeTable {
		if !tab.AsTable().Get(key).IsNil() {
			tab.AsTable().Set(key, val)
			return nil
		}
		mm, ok := d.State.Metas.Metamethod(tab, MetaNewIndex)
		if !ok {
			tab.AsTable().Set(key, val)
			return nil
		}
		if mm.Type == TypeFunction {
			return d.callMetaSet(call, mm, tab, key, val)
		}
		return d.SetIndex(call, mm, key, val)
	}
	mm, ok := d.State.Metas.Metamethod(tab, MetaNewIndex)
	if !ok {
		return lerr.New(lerr.IllegalOperationAttempt, "attempt to index a %s value", tab.Type)
	}
	if mm.Type == TypeFunction {
		return d.callMetaSet(call, mm, tab, key, val)
	}
	return d.SetIndex(call, mm, key, val)
}

// Eq implements `==`, which only consults __eq when both raw values are
// tables or both are userdata and RawEqual already said false.
func (d *Dispatch) Eq(call *Call, a, b Value) (bool, error) {
	if RawEqual(a, b) {
		return true, nil
	}
	if (a.Type == TypeTable && b.Type == TypeTable) || (a.Type == TypeUserdata && b.Type == TypeUserdata) {
		mm, ok := d.State.Metas.Metamethod(a, MetaEq)
		if !ok {
			mm, ok = d.State.Metas.Metamethod(b, MetaEq)
		}
		if ok {
			v, err := d.callMeta1(call, mm, a, b)
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		}
	}
	return false, nil
}

// Lt implements `<`, honoring __lt.
func (d *Dispatch) Lt(call *Call, a, b Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat() < b.AsFloat(), nil
	}
	if a.Type == TypeString && b.Type == TypeString {
		return a.AsString() < b.AsString(), nil
	}
	if mm, ok := d.State.Metas.Metamethod(a, MetaLt); ok {
		v, err := d.callMeta1(call, mm, a, b)
		return v.Truthy(), err
	}
	if mm, ok := d.State.Metas.Metamethod(b, MetaLt); ok {
		v, err := d.callMeta1(call, mm, a, b)
		return v.Truthy(), err
	}
	return false, lerr.New(lerr.IllegalOperationAttempt, "attempt to compare %s with %s", a.Type, b.Type)
}

// Le implements `<=`, honoring __le.
func (d *Dispatch) Le(call *Call, a, b Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat() <= b.AsFloat(), nil
	}
	if a.Type == TypeString && b.Type == TypeString {
		return a.AsString() <= b.AsString(), nil
	}
	if mm, ok := d.State.Metas.Metamethod(a, MetaLe); ok {
		v, err := d.callMeta1(call, mm, a, b)
		return v.Truthy(), err
	}
	if mm, ok := d.State.Metas.Metamethod(b, MetaLe); ok {
		v, err := d.callMeta1(call, mm, a, b)
		return v.Truthy(), err
	}
	return false, lerr.New(lerr.IllegalOperationAttempt, "attempt to compare %s with %s", a.Type, b.Type)
}

// Call invokes target with args, honoring __call when target isn't
// directly callable. This may suspend (target's Invoke may panic with a
// Signal); the panic propagates through this call naturally.
func (d *Dispatch) Call(call *Call, target Value, args []Value) ([]Value, error) {
	if target.Type == TypeFunction {
		return target.AsFunction().Invoke(call, args)
	}
	if mm, ok := d.State.Metas.Metamethod(target, MetaCall); ok && mm.Type == TypeFunction {
		return mm.AsFunction().Invoke(call, append([]Value{target}, args...))
	}
	return nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to call a %s value", target.Type)
}

func (d *Dispatch) callMeta1(call *Call, mm, a, b Value) (Value, error) {
	results, err := d.Call(call, mm, []Value{a, b})
	if err != nil {
		return Nil, err
	}
	if len(results) == 0 {
		return Nil, nil
	}
	return results[0], nil
}

func (d *Dispatch) callMetaSet(call *Call, mm, tab, key, val Value) error {
	_, err := d.Call(call, mm, []Value{tab, key, val})
	return err
}

func badOperand(a, b Value) Value {
	if !a.IsNumber() {
		return a
	}
	return b
}

// coerceArithOperand implements Lua 5.3's automatic string-to-number
// coercion for arithmetic/bitwise operators (reference manual 3.4.3): a
// string that looks like a numeral always coerces to a float, even one that
// looks like an integer ("0x10" + 1 == 17.0), unlike the general-purpose
// tonumber-style CoerceToNumber used for for-loop bounds, which preserves
// the string's own int/float subtype.
func coerceArithOperand(v Value) (Value, bool) {
	if v.IsNumber() {
		return v, true
	}
	if v.Type != TypeString {
		return v, false
	}
	n, ok := CoerceToNumber(v)
	if !ok {
		return v, false
	}
	return Float(n.AsFloat()), true
}

func asInteger(v Value) (int64, bool) {
	switch v.Type {
	case TypeInteger:
		return v.AsInt(), true
	case TypeFloat:
		f := v.AsFloat()
		if i := int64(f); float64(i) == f {
			return i, true
		}
	}
	return 0, false
}

func rawArith(event string, a, b Value) (Value, error) {
	if a.Type == TypeInteger && b.Type == TypeInteger {
		x, y := a.AsInt(), b.AsInt()
		switch event {
		case MetaAdd:
			return Int(x + y), nil
		case MetaSub:
			return Int(x - y), nil
		case MetaMul:
			return Int(x * y), nil
		case MetaMod:
			if y == 0 {
				return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to perform 'n%%0'")
			}
			m := x % y
			if m != 0 && (m^y) < 0 {
				m += y
			}
			return Int(m), nil
		case MetaIDiv:
			if y == 0 {
				return Nil, lerr.New(lerr.IllegalOperationAttempt, "attempt to perform 'n//0'")
			}
			q := x / y
			if (x%y != 0) && ((x < 0) != (y < 0)) {
				q--
			}
			return Int(q), nil
		}
	}
	return Float(floatArith(event, a.AsFloat(), b.AsFloat())), nil
}

func floatArith(event string, x, y float64) float64 {
	switch event {
	case MetaAdd:
		return x + y
	case MetaSub:
		return x - y
	case MetaMul:
		return x * y
	case MetaDiv:
		return x / y
	case MetaPow:
		return math.Pow(x, y)
	case MetaMod:
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m
	case MetaIDiv:
		return math.Floor(x / y)
	}
	return math.NaN()
}

func intBitwise(event string, x, y int64) int64 {
	switch event {
	case MetaBAnd:
		return x & y
	case MetaBOr:
		return x | y
	case MetaBXor:
		return x ^ y
	case MetaShl:
		return shiftLeft(x, y)
	case MetaShr:
		return shiftLeft(x, -y)
	}
	return 0
}

// shiftLeft implements Lua 5.3's shift semantics: negative shift amounts
// shift the other way, and amounts >= 64 produce 0 (reference manual 3.4.2).
func shiftLeft(x, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(x) << uint(n))
	}
	return int64(uint64(x) >> uint(-n))
}
