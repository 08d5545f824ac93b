// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"github.com/probechain/gophp/errs"
	"github.com/probechain/gophp/value"
)

// arrayKeyOf converts a PHP value used as an array subscript into the
// canonical ArrayKey, applying the numeric-string-becomes-int rule via
// value.NormalizeKey.
func arrayKeyOf(v value.Value) value.ArrayKey {
	switch v.Kind {
	case value.KindInt:
		return value.NormalizeKey(value.IntKey(v.Int))
	case value.KindString:
		return value.NormalizeKey(value.StrKey(string(*v.Str)))
	case value.KindBool:
		if v.Bool {
			return value.IntKey(1)
		}
		return value.IntKey(0)
	case value.KindFloat:
		return value.IntKey(int64(v.Float))
	case value.KindNull:
		return value.StrKey("")
	default:
		return value.StrKey(string(v.ToPHPString()))
	}
}

func (m *Machine) arrayAppend(arrVal, v value.Value) value.Value {
	src := arrVal.Arr
	if src == nil {
		src = value.NewArrayData()
	}
	arr := src.Clone()
	h := m.Heap.Alloc(v)
	arr.Push(h)
	return value.Array(arr)
}

func (m *Machine) arraySet(arrVal, keyVal, v value.Value) value.Value {
	src := arrVal.Arr
	if src == nil {
		src = value.NewArrayData()
	}
	arr := src.Clone()
	h := m.Heap.Alloc(v)
	arr.Insert(arrayKeyOf(keyVal), h)
	return value.Array(arr)
}

func (m *Machine) arrayGet(arrVal, keyVal value.Value) value.Value {
	if arrVal.Kind != value.KindArray || arrVal.Arr == nil {
		return value.Null()
	}
	h, ok := arrVal.Arr.Get(arrayKeyOf(keyVal))
	if !ok {
		m.report(errs.Warning, "Undefined array key %s", keyVal.ToPHPString())
		return value.Null()
	}
	z, ok := m.Heap.TryGet(h)
	if !ok {
		return value.Null()
	}
	return z.Value
}

// arrayUnset returns a copy of arrVal with keyVal's entry removed, cloning
// before deleting (matching arrayAppend/arraySet) so a COW-shared array
// aliased elsewhere (e.g. `$b = $a;`) is left untouched.
func (m *Machine) arrayUnset(arrVal, keyVal value.Value) value.Value {
	if arrVal.Kind != value.KindArray || arrVal.Arr == nil {
		return arrVal
	}
	arr := arrVal.Arr.Clone()
	arr.Delete(arrayKeyOf(keyVal))
	return value.Array(arr)
}

func (m *Machine) arrayIsset(arrVal, keyVal value.Value) bool {
	if arrVal.Kind != value.KindArray || arrVal.Arr == nil {
		return false
	}
	h, ok := arrVal.Arr.Get(arrayKeyOf(keyVal))
	if !ok {
		return false
	}
	z, ok := m.Heap.TryGet(h)
	return ok && z.Value.Kind != value.KindNull
}
