package runtime

import "testing"

func TestEncodeDecodeRegistersRoundTrip(t *testing.T) {
	regs := []Value{Nil, Bool(true), Int(42), Float(3.5), Str("hi")}
	doc, err := EncodeRegisters(7, regs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	point, decoded, err := DecodeRegisters(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if point != 7 {
		t.Fatalf("got resumption point %d, want 7", point)
	}
	if len(decoded) != len(regs) {
		t.Fatalf("got %d registers, want %d", len(decoded), len(regs))
	}
	for i, want := range regs {
		got := decoded[i]
		if got.Type != want.Type {
			t.Fatalf("register %d: type %v, want %v", i, got.Type, want.Type)
		}
		if !RawEqual(got, want) && want.Type != TypeNil {
			t.Fatalf("register %d: got %v, want %v", i, got, want)
		}
	}
}

func TestEncodeRegistersRejectsHostLocalValues(t *testing.T) {
	tab := NewTable()
	_, err := EncodeRegisters(0, []Value{Table(tab)})
	if err == nil {
		t.Fatal("expected an error encoding a table register")
	}
}
