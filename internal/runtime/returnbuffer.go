package runtime

// ReturnBuffer carries a callable's results (or, when IsCall is set, a
// pending tail call) between frames without allocating a slice for the
// overwhelmingly common case of a handful of return values (spec.md 4.10).
// Five inline slots cover almost every real call; anything beyond spills
// into Overflow.
type ReturnBuffer struct {
	n        int
	v1, v2, v3, v4, v5 Value
	overflow []Value

	// IsCall, when true, means this buffer does not hold results: it holds
	// a pending tail call (Target, Args) the executor must honor by
	// replacing the current frame rather than returning normally.
	IsCall bool
	Target Value
	Args   []Value
}

const inlineSlots = 5

// SetTo stores up to five values inline, clearing any previous overflow and
// the IsCall flag.
func (b *ReturnBuffer) SetTo(values ...Value) {
	b.IsCall = false
	b.overflow = nil
	b.n = len(values)
	slots := [inlineSlots]*Value{&b.v1, &b.v2, &b.v3, &b.v4, &b.v5}
	for i := 0; i < inlineSlots; i++ {
		if i < len(values) {
			*slots[i] = values[i]
		} else {
			*slots[i] = Nil
		}
	}
	if len(values) > inlineSlots {
		b.overflow = append([]Value(nil), values[inlineSlots:]...)
	}
}

// SetToContentsOf is SetTo for a slice already in hand.
func (b *ReturnBuffer) SetToContentsOf(values []Value) {
	b.SetTo(values...)
}

// SetToCall marks the buffer as a pending tail call to target with args;
// Args holds the given slice, however long.
func (b *ReturnBuffer) SetToCall(target Value, args ...Value) {
	b.IsCall = true
	b.Target = target
	b.Args = args
	b.n = 0
	b.overflow = nil
}

// SetToCallWithContentsOf is SetToCall for an existing argument slice.
func (b *ReturnBuffer) SetToCallWithContentsOf(target Value, args []Value) {
	b.SetToCall(target, args...)
}

// Size returns the number of result values held (meaningless when IsCall).
func (b *ReturnBuffer) Size() int { return b.n }

// Get returns the i'th value (0-indexed), or Nil if out of range.
func (b *ReturnBuffer) Get(i int) Value {
	if i < 0 || i >= b.n {
		return Nil
	}
	switch i {
	case 0:
		return b.v1
	case 1:
		return b.v2
	case 2:
		return b.v3
	case 3:
		return b.v4
	case 4:
		return b.v5
	default:
		return b.overflow[i-inlineSlots]
	}
}

// GetAsArray materializes the buffer's contents as a slice.
func (b *ReturnBuffer) GetAsArray() []Value {
	out := make([]Value, b.n)
	for i := range out {
		out[i] = b.Get(i)
	}
	return out
}
