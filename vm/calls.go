// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"strings"

	"github.com/probechain/gophp/value"
)

// runFrame pushes frame onto the call stack, runs it to completion, and
// pops it back off regardless of outcome, enforcing MaxCallDepth against
// runaway recursion.
func (m *Machine) runFrame(frame *Frame) (value.Value, error) {
	if frame.Chunk.IsGenerator {
		// A generator's body doesn't execute at call time; calling it only
		// builds the Generator object, matching PHP (the body runs lazily,
		// driven by current()/next()/valid()/foreach).
		return m.newGenerator(frame), nil
	}
	if len(m.frames) >= m.MaxCallDepth {
		return value.Value{}, m.fatalf("Allowed call stack depth exhausted")
	}
	m.frames = append(m.frames, frame)
	result, err := m.exec(frame)
	m.frames = m.frames[:len(m.frames)-1]
	return result, err
}

// bindParams binds args into frame's locals according to chunk.Params:
// positional matching, literal defaults for missing trailing args, and a
// final variadic parameter collecting the remainder into an array.
func (m *Machine) bindParams(frame *Frame, chunk *CodeChunk, args []value.Value) {
	i := 0
	for pi, p := range chunk.Params {
		idx := chunk.LocalIndex(p.Name)
		if p.Variadic {
			arr := value.NewArrayData()
			for ; i < len(args); i++ {
				h := m.Heap.Alloc(args[i])
				arr.Push(h)
			}
			frame.setLocal(idx, value.Array(arr))
			continue
		}
		if i < len(args) {
			frame.setLocal(idx, args[i])
			i++
			continue
		}
		if p.HasDefault && p.DefaultConstIdx >= 0 && p.DefaultConstIdx < len(chunk.Constants) {
			frame.setLocal(idx, chunk.Constants[p.DefaultConstIdx])
		} else {
			frame.setLocal(idx, value.Null())
		}
		_ = pi
	}
}

// callFunction dispatches a user-defined function call by name, falling
// back to a registered native (Go-implemented) function when no compiled
// chunk exists for it.
func (m *Machine) callFunction(name string, args []value.Value) (value.Value, error) {
	chunk, ok := m.Functions[strings.ToLower(name)]
	if !ok {
		if native, ok := m.NativeFunctions[strings.ToLower(name)]; ok {
			return native(m, args)
		}
		return value.Value{}, m.fatalf("Call to undefined function %s()", name)
	}
	frame := newFrame(chunk)
	m.bindParams(frame, chunk, args)
	return m.runFrame(frame)
}

// callMethod dispatches an instance method call, resolving through the
// receiver's class (and its ancestors) via the method cache.
func (m *Machine) callMethod(receiver value.Value, method string, args []value.Value) (value.Value, error) {
	obj, class, ok := m.resolveInstance(receiver)
	if !ok {
		return value.Value{}, m.fatalf("Call to a member function %s() on %s", method, receiver.TypeName())
	}
	chunk, owner := m.lookupMethodCached(class, method)
	if chunk == nil {
		if native, _ := class.LookupNative(strings.ToLower(method)); native != nil {
			return native(m, receiver, args)
		}
		if hasMethod(class, "__call") {
			return m.callMethod(receiver, "__call", []value.Value{value.String([]byte(method)), m.newArgsArray(args)})
		}
		return value.Value{}, m.fatalf("Call to undefined method %s::%s()", class.Name, method)
	}
	frame := newFrame(chunk)
	frame.This = obj
	frame.ThisHandle = receiver.Obj
	frame.Class = owner
	frame.StaticClass = class
	m.bindParams(frame, chunk, args)
	return m.runFrame(frame)
}

// callStatic dispatches Class::method(...), used both for genuinely static
// methods and for parent::/self:: forwarding calls compiled the same way.
func (m *Machine) callStatic(caller *Frame, className, method string, args []value.Value) (value.Value, error) {
	class := m.resolveClassRef(caller, className)
	if class == nil {
		return value.Value{}, m.fatalf("Class \"%s\" not found", className)
	}
	chunk, owner := m.lookupMethodCached(class, method)
	if chunk == nil {
		if native, _ := class.LookupNative(strings.ToLower(method)); native != nil {
			var this value.Value
			if caller != nil && caller.This != nil {
				this = value.Object(caller.ThisHandle)
			}
			return native(m, this, args)
		}
		if hasMethod(class, "__callStatic") {
			return m.callStatic(caller, className, "__callStatic", []value.Value{value.String([]byte(method)), m.newArgsArray(args)})
		}
		return value.Value{}, m.fatalf("Call to undefined method %s::%s()", class.Name, method)
	}
	frame := newFrame(chunk)
	frame.Class = owner
	if caller != nil && caller.This != nil {
		frame.This = caller.This
		frame.ThisHandle = caller.ThisHandle
		frame.StaticClass = caller.StaticClass
	} else {
		frame.StaticClass = class
	}
	m.bindParams(frame, chunk, args)
	return m.runFrame(frame)
}

// newArgsArray packs args into a plain PHP array, the shape __call/
// __callStatic's second parameter takes.
func (m *Machine) newArgsArray(args []value.Value) value.Value {
	arr := value.NewArrayData()
	for _, a := range args {
		arr.Push(m.Heap.Alloc(a))
	}
	return value.Array(arr)
}

// resolveClassRef maps self/parent/static/a literal class name to its
// ClassRuntime, relative to the frame currently making the call.
func (m *Machine) resolveClassRef(caller *Frame, name string) *ClassRuntime {
	switch strings.ToLower(name) {
	case "self":
		if caller != nil {
			return caller.Class
		}
	case "parent":
		if caller != nil && caller.Class != nil {
			return caller.Class.Parent
		}
	case "static":
		if caller != nil {
			return caller.StaticClass
		}
	}
	return m.Classes[strings.ToLower(name)]
}

// lookupMethodCached resolves (class, method) through the LRU method
// cache before falling back to the inheritance walk.
func (m *Machine) lookupMethodCached(class *ClassRuntime, method string) (*CodeChunk, *ClassRuntime) {
	method = strings.ToLower(method)
	key := class.Name + "::" + method
	if v, ok := m.MethodCache.Get(key); ok {
		entry := v.(methodCacheEntry)
		return entry.chunk, entry.owner
	}
	chunk, owner := class.LookupMethod(method)
	if chunk != nil {
		m.MethodCache.Add(key, methodCacheEntry{chunk: chunk, owner: owner})
	}
	return chunk, owner
}

type methodCacheEntry struct {
	chunk *CodeChunk
	owner *ClassRuntime
}

// resolveInstance dereferences an Object value down to its ObjectData and
// the ClassRuntime that was registered for its class.
func (m *Machine) resolveInstance(v value.Value) (*value.ObjectData, *ClassRuntime, bool) {
	if v.Kind != value.KindObject {
		return nil, nil, false
	}
	z, ok := m.Heap.TryGet(v.Obj)
	if !ok || z.Value.Kind != value.KindObjPayload || z.Value.Payload == nil {
		return nil, nil, false
	}
	obj := z.Value.Payload
	name, _ := m.Symbols.Lookup(obj.Class)
	class, ok := m.Classes[strings.ToLower(string(name))]
	if !ok {
		return obj, nil, true
	}
	return obj, class, true
}
