package runtime

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EncodeRegisters serializes a saved-state register array (spec.md 4.5:
// "resumption-point index, varargs array, register array") to JSON, for a
// host that wants to persist a paused call across a process boundary
// rather than just holding the continuation token in memory. Only the
// primitive Lua subtype (nil/bool/integer/float/string) round-trips;
// tables, functions, and threads are host-local references that cannot
// outlive the process, so encoding one returns an error rather than
// silently losing identity.
func EncodeRegisters(resumptionPoint int, registers []Value) (string, error) {
	doc := "{}"
	var err error
	doc, err = sjson.Set(doc, "point", resumptionPoint)
	if err != nil {
		return "", err
	}
	for i, v := range registers {
		path := fmt.Sprintf("registers.%d", i)
		enc, encErr := encodeValue(v)
		if encErr != nil {
			return "", fmt.Errorf("runtime: register %d: %w", i, encErr)
		}
		doc, err = sjson.SetRaw(doc, path, enc)
		if err != nil {
			return "", err
		}
	}
	return doc, nil
}

// DecodeRegisters is EncodeRegisters' inverse.
func DecodeRegisters(doc string) (resumptionPoint int, registers []Value, err error) {
	parsed := gjson.Parse(doc)
	if !parsed.Exists() {
		return 0, nil, fmt.Errorf("runtime: invalid saved-state document")
	}
	resumptionPoint = int(parsed.Get("point").Int())
	regs := parsed.Get("registers").Array()
	registers = make([]Value, len(regs))
	for i, r := range regs {
		v, decErr := decodeValue(r)
		if decErr != nil {
			return 0, nil, fmt.Errorf("runtime: register %d: %w", i, decErr)
		}
		registers[i] = v
	}
	return resumptionPoint, registers, nil
}

// DumpSavedState renders an EncodeRegisters document as human-readable
// text: the resumption point followed by one line per register, for the
// CLI's `luavm disasm --saved-state` path.
func DumpSavedState(doc string) (string, error) {
	point, registers, err := DecodeRegisters(doc)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "resumption point: %d\n", point)
	for i, v := range registers {
		fmt.Fprintf(&sb, "  r%d = %s\n", i, v.String())
	}
	return sb.String(), nil
}

func encodeValue(v Value) (string, error) {
	switch v.Type {
	case TypeNil:
		return `{"t":"nil"}`, nil
	case TypeBoolean:
		return sjson.Set(`{"t":"bool"}`, "v", v.AsBool())
	case TypeInteger:
		return sjson.Set(`{"t":"int"}`, "v", v.AsInt())
	case TypeFloat:
		return sjson.Set(`{"t":"float"}`, "v", v.AsFloat())
	case TypeString:
		return sjson.Set(`{"t":"string"}`, "v", v.AsString())
	default:
		return "", fmt.Errorf("value of type %s is not serializable (host-local reference)", v.Type)
	}
}

func decodeValue(r gjson.Result) (Value, error) {
	switch r.Get("t").String() {
	case "nil":
		return Nil, nil
	case "bool":
		return Bool(r.Get("v").Bool()), nil
	case "int":
		return Int(r.Get("v").Int()), nil
	case "float":
		return Float(r.Get("v").Float()), nil
	case "string":
		return Str(r.Get("v").String()), nil
	default:
		return Nil, fmt.Errorf("unknown saved-state value tag %q", r.Get("t").String())
	}
}
