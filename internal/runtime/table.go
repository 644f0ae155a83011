package runtime

import "sync"

// LuaTable is the engine's table implementation: a dense array part for
// contiguous positive-integer keys plus a hash part for everything else,
// mirroring the split every production Lua implementation uses so that
// `ipairs`/array-style access stays O(1).
type LuaTable struct {
	mu   sync.Mutex
	arr  []Value // arr[i] holds the value for key i+1
	hash map[Value]Value
	meta *LuaTable
}

func NewTable() *LuaTable {
	return &LuaTable{}
}

// Get performs a raw (non-metamethod) read.
func (t *LuaTable) Get(key Value) Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := arrayIndex(key); ok && idx >= 1 && idx <= len(t.arr) {
		return t.arr[idx-1]
	}
	if t.hash == nil {
		return Nil
	}
	if v, ok := t.hash[normalizeKey(key)]; ok {
		return v
	}
	return Nil
}

// Set performs a raw (non-metamethod) write. Setting a key to Nil deletes
// it; extending the array part by exactly one slot keeps it contiguous and
// migrates any hash-part entry that now fits.
func (t *LuaTable) Set(key Value, val Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := arrayIndex(key); ok {
		switch {
		case idx >= 1 && idx <= len(t.arr):
			t.arr[idx-1] = val
			if val.IsNil() && idx == len(t.arr) {
				for len(t.arr) > 0 && t.arr[len(t.arr)-1].IsNil() {
					t.arr = t.arr[:len(t.arr)-1]
				}
			}
			return
		case idx == len(t.arr)+1 && !val.IsNil():
			t.arr = append(t.arr, val)
			t.absorbFromHash()
			return
		}
	}
	key = normalizeKey(key)
	if val.IsNil() {
		delete(t.hash, key)
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = val
}

// absorbFromHash pulls any hash-part entries that now extend the array part
// contiguously, after Set grew arr by one.
func (t *LuaTable) absorbFromHash() {
	for {
		next := Int(int64(len(t.arr) + 1))
		v, ok := t.hash[next]
		if !ok {
			return
		}
		t.arr = append(t.arr, v)
		delete(t.hash, next)
	}
}

// Len implements the `#` border rule: any n such that t[n]~=nil and
// t[n+1]==nil (or n==0 and t[1]==nil). The array part's length is always
// such a border when it doesn't end on a nil (Set never leaves one).
func (t *LuaTable) Len() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.arr))
}

// Metatable returns the table's metatable, or nil.
func (t *LuaTable) Metatable() *LuaTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meta
}

// SetMetatable installs meta as the table's metatable.
func (t *LuaTable) SetMetatable(meta *LuaTable) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.meta = meta
}

// Next supports `pairs`/`next`: iterates the array part then the hash part.
// key==Nil starts iteration. Returns ok=false when iteration is exhausted.
func (t *LuaTable) Next(key Value) (k, v Value, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startArr := 0
	if !key.IsNil() {
		if idx, isArr := arrayIndex(key); isArr && idx >= 1 && idx <= len(t.arr) {
			startArr = idx
		} else {
			return t.nextHash(normalizeKey(key))
		}
	}
	for i := startArr; i < len(t.arr); i++ {
		if !t.arr[i].IsNil() {
			return Int(int64(i + 1)), t.arr[i], true
		}
	}
	return t.nextHash(Nil)
}

// nextHash walks the hash part's keys in map order (undefined across
// mutation, same contract Lua gives `next`), returning the first entry
// strictly after after, or after==Nil for the first entry.
func (t *LuaTable) nextHash(after Value) (Value, Value, bool) {
	found := after.IsNil()
	for k, v := range t.hash {
		if found {
			return k, v, true
		}
		if k == after {
			found = true
		}
	}
	if !found {
		return Nil, Nil, false // after was the last array key handed out, or unknown key
	}
	return Nil, Nil, false
}

func arrayIndex(key Value) (int, bool) {
	switch key.Type {
	case TypeInteger:
		return int(key.Data.(int64)), true
	case TypeFloat:
		f := key.Data.(float64)
		if i := int64(f); float64(i) == f {
			return int(i), true
		}
	}
	return 0, false
}

// normalizeKey folds float keys with integral value to the equivalent
// integer key, per Lua 5.3's "a float key with an integral value is
// converted to an integer" rule (reference manual 3.4.5).
func normalizeKey(key Value) Value {
	if key.Type == TypeFloat {
		f := key.Data.(float64)
		if i := int64(f); float64(i) == f {
			return Int(i)
		}
	}
	return key
}
