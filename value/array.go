// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package value

// ArrayKey is a PHP array key: either an Int or a Str. Numeric strings that
// parse exactly as canonical decimal integers are coerced to Int on
// insertion (NormalizeKey below), matching Zend's HashTable semantics.
type ArrayKey struct {
	IsInt bool
	Int   int64
	Str   string
}

// IntKey builds an integer ArrayKey.
func IntKey(i int64) ArrayKey { return ArrayKey{IsInt: true, Int: i} }

// StrKey builds a string ArrayKey.
func StrKey(s string) ArrayKey { return ArrayKey{Str: s} }

// NormalizeKey applies PHP's canonical-integer-string coercion: a string key
// that is exactly the decimal representation of an int64 (no leading zero
// unless the value is literally "0", optional leading "-", no leading "+",
// within int64 range) becomes an Int key instead.
func NormalizeKey(k ArrayKey) ArrayKey {
	if k.IsInt {
		return k
	}
	if i, ok := canonicalIntString(k.Str); ok {
		return IntKey(i)
	}
	return k
}

func canonicalIntString(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	i := 0
	neg := false
	if s[0] == '-' {
		neg = true
		i = 1
		if i >= len(s) {
			return 0, false
		}
	}
	if s[i] == '0' && len(s)-i > 1 {
		return 0, false // leading zero, e.g. "01"
	}
	if s[i] == '0' && neg {
		return 0, false // "-0" is not canonical
	}
	var n int64
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int64(c - '0')
		if n > (1<<63-1-d)/10 {
			return 0, false // overflow guard
		}
		n = n*10 + d
	}
	if neg {
		n = -n
	}
	return n, true
}

// orderedEntry is one live (key, handle) pair in insertion order.
type orderedEntry struct {
	key    ArrayKey
	handle Handle
}

// ArrayData is an ordered map from ArrayKey to Handle, preserving insertion
// order, with a cached next_free auto-increment index. Invariant: next_free
// is always one greater than the maximum integer key ever inserted (never
// decreases on removal).
type ArrayData struct {
	entries []orderedEntry
	index   map[ArrayKey]int // key -> position in entries; Delete removes the key and shifts later positions
	NextFree int64
}

// NewArrayData returns an empty, ready-to-use ArrayData.
func NewArrayData() *ArrayData {
	return &ArrayData{index: make(map[ArrayKey]int)}
}

// Clone returns a deep-enough copy suitable for copy-on-write: a fresh
// ArrayData with the same entries and NextFree, sharing Handles (not the
// values they point to — the VM is responsible for value-level COW when a
// write actually lands on a shared handle's target).
func (a *ArrayData) Clone() *ArrayData {
	out := &ArrayData{
		entries:  make([]orderedEntry, len(a.entries)),
		index:    make(map[ArrayKey]int, len(a.index)),
		NextFree: a.NextFree,
	}
	copy(out.entries, a.entries)
	for k, v := range a.index {
		out.index[k] = v
	}
	return out
}

// Insert sets key -> h, updating NextFree per the spec invariant. Returns
// the previous Handle and true if key already existed.
func (a *ArrayData) Insert(key ArrayKey, h Handle) (Handle, bool) {
	key = NormalizeKey(key)
	if key.IsInt && key.Int >= a.NextFree {
		a.NextFree = key.Int + 1
	}
	if pos, ok := a.index[key]; ok {
		prev := a.entries[pos].handle
		a.entries[pos].handle = h
		return prev, true
	}
	a.index[key] = len(a.entries)
	a.entries = append(a.entries, orderedEntry{key: key, handle: h})
	return NoHandle, false
}

// Push appends a value with an auto-incremented integer key (the `$a[] = v`
// form), returning the key used.
func (a *ArrayData) Push(h Handle) int64 {
	key := a.NextFree
	a.Insert(IntKey(key), h)
	return key
}

// Get returns the Handle stored at key, if present.
func (a *ArrayData) Get(key ArrayKey) (Handle, bool) {
	key = NormalizeKey(key)
	pos, ok := a.index[key]
	if !ok {
		return NoHandle, false
	}
	return a.entries[pos].handle, true
}

// Delete removes key if present. NextFree is never decreased (spec
// invariant: next_free never decreases on removal).
func (a *ArrayData) Delete(key ArrayKey) bool {
	key = NormalizeKey(key)
	pos, ok := a.index[key]
	if !ok {
		return false
	}
	delete(a.index, key)
	a.entries = append(a.entries[:pos], a.entries[pos+1:]...)
	for i := pos; i < len(a.entries); i++ {
		a.index[a.entries[i].key] = i
	}
	return true
}

// Len returns the number of live entries.
func (a *ArrayData) Len() int { return len(a.entries) }

// Keys returns the ordered live keys, a snapshot safe to range over even if
// the caller subsequently mutates the array (spec §9 Open Question (b):
// foreach-during-mutation is implementation-defined; this engine iterates a
// keys-at-loop-start snapshot).
func (a *ArrayData) Keys() []ArrayKey {
	out := make([]ArrayKey, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.key
	}
	return out
}

// Each calls fn(key, handle) for every live entry in insertion order.
func (a *ArrayData) Each(fn func(ArrayKey, Handle) bool) {
	for _, e := range a.entries {
		if !fn(e.key, e.handle) {
			return
		}
	}
}

// Union computes the PHP `Add`-only array union: for each key of b not
// already present in a's result, add it; a's own entries always win on
// conflict ("left entries win").
func Union(a, b *ArrayData) *ArrayData {
	result := a.Clone()
	b.Each(func(k ArrayKey, h Handle) bool {
		if _, exists := result.Get(k); !exists {
			result.Insert(k, h)
		}
		return true
	})
	return result
}

func arrayDeepEqual(a, b *ArrayData, _ bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Each(func(k ArrayKey, h Handle) bool {
		bh, ok := b.Get(k)
		if !ok || bh != h {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// ConstArray is a compile-time-constant array template used for property
// default values; it is never copy-on-write and holds Values directly
// instead of Handles (it has no arena backing).
type ConstArray struct {
	Keys   []ArrayKey
	Values []Value
}

// Len returns the number of entries in the constant array.
func (c *ConstArray) Len() int { return len(c.Keys) }
