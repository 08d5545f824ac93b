// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// closureInstance is the hidden internal state of a Closure object: its
// compiled body plus the upvalues it captured at creation time. By-value
// captures are snapshotted once; by-ref captures alias the capturing
// frame's local slot through a Handle so writes on either side are visible
// to the other, matching `use (&$x)`.
type closureInstance struct {
	Chunk   *CodeChunk
	Bound   map[string]value.Value
	ByRef   map[string]value.Handle
	This    *value.ObjectData
	ThisH   value.Handle
	BoundClass *ClassRuntime
}

// closureClassName is the symbol under which every closure's ObjectData is
// classed, mirroring PHP's built-in Closure class.
const closureClassName = "closure"

// makeClosure binds tmpl to the current frame: each Uses entry is pulled out
// of f's locals either by value or, for &$x captures, by boxing the local
// into a shared heap handle so both sides observe later writes.
func (m *Machine) makeClosure(f *Frame, tmpl *ClosureTemplate) value.Value {
	inst := &closureInstance{Chunk: tmpl.Chunk, Bound: make(map[string]value.Value), ByRef: make(map[string]value.Handle)}
	if f.This != nil {
		inst.This = f.This
		inst.ThisH = f.ThisHandle
	}
	inst.BoundClass = f.Class
	for _, use := range tmpl.Uses {
		idx := f.Chunk.LocalIndex(use.Name)
		cur := f.local(idx)
		if use.ByRef {
			h := m.Heap.Alloc(cur)
			inst.ByRef[use.Name] = h
			f.setLocal(idx, cur)
		} else {
			inst.Bound[use.Name] = cur
		}
	}

	classSym := m.Symbols.InternFoldedString(closureClassName)
	obj := value.NewObjectData(classSym)
	obj.Internal = inst
	h := m.Heap.Alloc(value.ObjPayload(obj))
	return value.Object(h)
}

// closureFromValue unwraps v's hidden closureInstance, if v is a Closure.
func closureFromValue(v value.Value, heap interface {
	TryGet(value.Handle) (*value.Zval, bool)
}) (*closureInstance, bool) {
	if v.Kind != value.KindObject {
		return nil, false
	}
	z, ok := heap.TryGet(v.Obj)
	if !ok || z.Value.Kind != value.KindObjPayload || z.Value.Payload == nil {
		return nil, false
	}
	inst, ok := z.Value.Payload.Internal.(*closureInstance)
	return inst, ok
}

// callClosureValue invokes the Closure object v with args, restoring its
// captured upvalues into the new frame's locals before running its body.
func (m *Machine) callClosureValue(v value.Value, args []value.Value) (value.Value, error) {
	inst, ok := closureFromValue(v, m.Heap)
	if !ok {
		// Not a Closure: an ordinary object with __invoke is callable too
		// (`$obj(...)` dispatches to $obj->__invoke(...)).
		if _, class, ok := m.resolveInstance(v); ok && class != nil && hasMethod(class, "__invoke") {
			return m.callMethod(v, "__invoke", args)
		}
		return value.Value{}, m.fatalf("Value is not callable")
	}
	frame := newFrame(inst.Chunk)
	frame.This = inst.This
	frame.ThisHandle = inst.ThisH
	frame.Class = inst.BoundClass
	frame.StaticClass = inst.BoundClass
	for name, val := range inst.Bound {
		frame.setLocal(inst.Chunk.LocalIndex(name), val)
	}
	for name, h := range inst.ByRef {
		if z, ok := m.Heap.TryGet(h); ok {
			frame.setLocal(inst.Chunk.LocalIndex(name), z.Value)
		}
	}
	m.bindParams(frame, inst.Chunk, args)
	return m.runFrame(frame)
}
