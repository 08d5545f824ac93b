// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// arrayIterator is the hidden state behind a foreach-over-array iterator
// Value: a snapshot of the array's keys taken at OpIterInit time (PHP
// foreach iterates a copy, immune to mutation of the source mid-loop) plus
// the array itself to fetch current values from.
type arrayIterator struct {
	arr  *value.ArrayData
	keys []value.ArrayKey
	pos  int
}

// objectIterator drives a user Iterator (or IteratorAggregate-unwrapped
// inner Iterator) by calling its current()/key()/next()/valid()/rewind()
// methods, duck-typed rather than requiring a registered interface list.
type objectIterator struct {
	receiver value.Value
	started  bool
}

// newIterator builds the hidden iterator state for v and wraps it as a
// Resource Value so it can travel on the operand stack like any other.
func (m *Machine) newIterator(v value.Value) value.Value {
	if v.Kind == value.KindArray {
		arr := v.Arr
		if arr == nil {
			arr = value.NewArrayData()
		}
		it := &arrayIterator{arr: arr, keys: arr.Keys(), pos: -1}
		return value.Value{Kind: value.KindResource, Resource: value.NewSharedResource(0, it, nil)}
	}
	if v.Kind == value.KindObject {
		if agg, class, ok := m.resolveInstance(v); ok && class != nil {
			if chunk, owner := m.lookupMethodCached(class, "getiterator"); chunk != nil {
				frame := newFrame(chunk)
				frame.This = agg
				frame.ThisHandle = v.Obj
				frame.Class = owner
				frame.StaticClass = class
				if inner, err := m.runFrame(frame); err == nil {
					return m.newIterator(inner)
				}
			}
		}
		it := &objectIterator{receiver: v}
		m.callMethod(v, "rewind", nil)
		return value.Value{Kind: value.KindResource, Resource: value.NewSharedResource(0, it, nil)}
	}
	return value.Value{Kind: value.KindResource, Resource: value.NewSharedResource(0, &arrayIterator{arr: value.NewArrayData()}, nil)}
}

func iterState(it value.Value) interface{} {
	if it.Kind != value.KindResource || it.Resource == nil {
		return nil
	}
	return it.Resource.Payload
}

// iterAdvance moves it forward and reports whether a live element remains.
func (m *Machine) iterAdvance(it value.Value) bool {
	switch st := iterState(it).(type) {
	case *arrayIterator:
		if st.pos >= len(st.keys) {
			return false
		}
		st.pos++
		return st.pos < len(st.keys)
	case *objectIterator:
		if !st.started {
			st.started = true
			return m.truthyMethodCall(st.receiver, "valid")
		}
		m.callMethod(st.receiver, "next", nil)
		return m.truthyMethodCall(st.receiver, "valid")
	}
	return false
}

// iterKey returns the current key without advancing.
func (m *Machine) iterKey(it value.Value) value.Value {
	switch st := iterState(it).(type) {
	case *arrayIterator:
		if st.pos >= len(st.keys) {
			return value.Null()
		}
		k := st.keys[st.pos]
		if k.IsInt {
			return value.Int(k.Int)
		}
		return value.String([]byte(k.Str))
	case *objectIterator:
		v, _ := m.callMethod(st.receiver, "key", nil)
		return v
	}
	return value.Null()
}

// iterValue returns the current value without advancing.
func (m *Machine) iterValue(it value.Value) value.Value {
	switch st := iterState(it).(type) {
	case *arrayIterator:
		if st.pos >= len(st.keys) {
			return value.Null()
		}
		h, ok := st.arr.Get(st.keys[st.pos])
		if !ok {
			return value.Null()
		}
		z, ok := m.Heap.TryGet(h)
		if !ok {
			return value.Null()
		}
		return z.Value
	case *objectIterator:
		v, _ := m.callMethod(st.receiver, "current", nil)
		return v
	}
	return value.Null()
}

func (m *Machine) truthyMethodCall(receiver value.Value, method string) bool {
	v, err := m.callMethod(receiver, method, nil)
	if err != nil {
		return false
	}
	return v.ToBool()
}
