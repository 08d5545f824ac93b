// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package value implements the engine's tagged-union runtime value model:
// Handle, Value, ArrayKey, ArrayData, ObjectData and Zval, plus the
// juggling/coercion rules fixed by the language core.
package value

import (
	"github.com/probechain/gophp/symbol"
)

// Handle is a 32-bit index into the value arena (see package gc). All
// references to values from frames, stacks, arrays and objects are Handles.
type Handle uint32

// NoHandle is the zero Handle; arena slot 0 is never allocated so this can
// safely mean "absent" in optional fields.
const NoHandle Handle = 0

// Kind tags which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject    // indirection: Handle to an ObjPayload slot
	KindObjPayload
	KindConstArray
	KindResource
	KindAppendPlaceholder
	KindUninitialized
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray, KindConstArray:
		return "array"
	case KindObject, KindObjPayload:
		return "object"
	case KindResource:
		return "resource"
	case KindAppendPlaceholder:
		return "append_placeholder"
	case KindUninitialized:
		return "uninitialized"
	default:
		return "unknown"
	}
}

// Value is the tagged union of all runtime PHP values. Only the field
// matching Kind is meaningful; the rest are zero. Arrays and strings are
// shared (copy-on-write) via the Arr/Str pointer fields.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64

	// Str holds the byte content of a String value. PHP strings are not
	// guaranteed UTF-8. Shared (COW) — never mutate in place; see CloneForWrite.
	Str *[]byte

	// Arr holds the backing ArrayData for an Array value. Shared (COW).
	Arr *ArrayData

	// ConstArr holds a compile-time-constant array template (property
	// defaults); immutable, never copy-on-write.
	ConstArr *ConstArray

	// Obj is the Handle indirection target for KindObject.
	Obj Handle

	// Payload holds the actual storage for KindObjPayload, only ever
	// referenced indirectly via a KindObject Handle.
	Payload *ObjectData

	// Resource holds an opaque host-owned handle for KindResource.
	Resource *SharedResource
}

// Null returns the Null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a Bool value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns an Int value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns a Float value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String returns a String value holding a copy of b, so later changes to b
// do not affect it.
func String(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{Kind: KindString, Str: &cp}
}

// Array returns an Array value wrapping the given ArrayData.
func Array(a *ArrayData) Value { return Value{Kind: KindArray, Arr: a} }

// Object returns the indirection Value pointing at an ObjPayload slot.
func Object(h Handle) Value { return Value{Kind: KindObject, Obj: h} }

// ObjPayload returns a Value wrapping object storage directly; only ever
// valid when stored at the slot an Object(h) Value points to.
func ObjPayload(o *ObjectData) Value { return Value{Kind: KindObjPayload, Payload: o} }

// AppendPlaceholder is the internal sentinel used for `$a[]` write targets
// before the real key is known.
func AppendPlaceholder() Value { return Value{Kind: KindAppendPlaceholder} }

// Uninitialized is the internal sentinel for a declared-but-unbound slot.
func Uninitialized() Value { return Value{Kind: KindUninitialized} }

// TypeName returns the PHP-visible type name ("null","bool","int","float",
// "string","array","object","resource").
func (v Value) TypeName() string { return v.Kind.String() }

// Zval is one arena slot: a Value plus the is_ref flag. Non-ref slots follow
// copy-on-write semantics on assignment; ref slots are aliased in place.
type Zval struct {
	Value Value
	IsRef bool
}

// SharedResource is the reference-counted host-owned handle backing a
// KindResource Value. The release hook runs once, when Release brings the
// reference count to zero; package resource calls Release from Remove and
// Teardown, and the gc sweep does not call it.
type SharedResource struct {
	ID      uint64
	Payload interface{}
	release func()
	refs    int32
}

// NewSharedResource wraps payload with an explicit release hook, invoked
// exactly once by Release when the reference count reaches zero.
func NewSharedResource(id uint64, payload interface{}, release func()) *SharedResource {
	return &SharedResource{ID: id, Payload: payload, release: release, refs: 1}
}

// Retain increments the reference count. Copying a Resource Value into a
// second Zval slot does not call it.
func (r *SharedResource) Retain() {
	r.refs++
}

// Release decrements the reference count and fires the drop hook exactly
// once when it reaches zero.
func (r *SharedResource) Release() {
	r.refs--
	if r.refs <= 0 && r.release != nil {
		r.release()
		r.release = nil
	}
}

// Equal implements PHP's strict-equality ("===") comparison: same Kind and
// same underlying value, without numeric cross-type coercion.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull, KindAppendPlaceholder, KindUninitialized:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString:
		return bytesEqual(*a.Str, *b.Str)
	case KindArray:
		return a.Arr == b.Arr || arrayDeepEqual(a.Arr, b.Arr, true)
	case KindConstArray:
		return a.ConstArr == b.ConstArr
	case KindObject, KindObjPayload:
		return a.Obj == b.Obj && a.Payload == b.Payload
	case KindResource:
		return a.Resource == b.Resource
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// classSymbolOf returns o's class symbol, or symbol.Invalid for a nil o.
// Nothing in the module calls it.
func classSymbolOf(o *ObjectData) symbol.Symbol {
	if o == nil {
		return symbol.Invalid
	}
	return o.Class
}
