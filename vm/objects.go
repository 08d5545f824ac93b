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

	"github.com/probechain/gophp/errs"
	"github.com/probechain/gophp/value"
)

// instantiate allocates a new instance of className, seeds its declared
// property defaults, and runs __construct with args when the class (or an
// ancestor) defines one.
func (m *Machine) instantiate(className string, args []value.Value) (value.Value, error) {
	class, ok := m.Classes[strings.ToLower(className)]
	if !ok {
		return value.Value{}, m.fatalf("Class \"%s\" not found", className)
	}
	if class.IsAbstract {
		return value.Value{}, m.fatalf("Cannot instantiate abstract class %s", class.Name)
	}

	classSym := m.Symbols.InternFoldedString(class.Name)
	obj := value.NewObjectData(classSym)
	for c := class; c != nil; c = c.Parent {
		for name, def := range c.PropDefaults {
			obj.SetProperty(m.Symbols.InternString(name), m.Heap.Alloc(def), false)
		}
	}
	h := m.Heap.Alloc(value.ObjPayload(obj))
	result := value.Object(h)

	if ctor, owner := m.lookupMethodCached(class, "__construct"); ctor != nil {
		frame := newFrame(ctor)
		frame.This = obj
		frame.ThisHandle = h
		frame.Class = owner
		frame.StaticClass = class
		m.bindParams(frame, ctor, args)
		if _, err := m.runFrame(frame); err != nil {
			return value.Value{}, err
		}
	} else if native, _ := class.LookupNative("__construct"); native != nil {
		if _, err := native(m, result, args); err != nil {
			return value.Value{}, err
		}
	}
	return result, nil
}

// cloneObject implements `clone $obj`: a shallow copy of the object's
// property map under a fresh handle, after which __clone, when the class
// (or an ancestor) defines it, is called on the copy with no arguments.
// An error returned by __clone is discarded.
func (m *Machine) cloneObject(v value.Value) value.Value {
	obj, class, ok := m.resolveInstance(v)
	if !ok {
		return v
	}
	clone := value.NewObjectData(obj.Class)
	for _, prop := range obj.PropOrder {
		h := obj.Properties[prop]
		if z, ok := m.Heap.TryGet(h); ok {
			clone.SetProperty(prop, m.Heap.Alloc(z.Value), obj.Dynamic[prop])
		}
	}
	nh := m.Heap.Alloc(value.ObjPayload(clone))
	result := value.Object(nh)
	if class != nil && hasMethod(class, "__clone") {
		m.callMethod(result, "__clone", nil)
	}
	return result
}

// isInstanceOf reports whether v is an object whose class is className or a
// descendant of it.
func (m *Machine) isInstanceOf(v value.Value, className string) bool {
	_, class, ok := m.resolveInstance(v)
	if !ok || class == nil {
		return false
	}
	target := strings.ToLower(className)
	for c := class; c != nil; c = c.Parent {
		if strings.ToLower(c.Name) == target {
			return true
		}
	}
	return false
}

// SetObjectProperty is the exported form of setProperty, used by native
// (Go-implemented) methods registered through the extension registry,
// which hold a *Machine only behind an interface (to avoid package ext
// importing package vm's internals).
func (m *Machine) SetObjectProperty(objVal value.Value, prop string, v value.Value) {
	m.setProperty(objVal, prop, v)
}

// GetObjectProperty is the exported form of getProperty, see
// SetObjectProperty.
func (m *Machine) GetObjectProperty(objVal value.Value, prop string) value.Value {
	return m.getProperty(objVal, prop)
}

// Alloc exposes the heap allocator to native extension methods.
func (m *Machine) Alloc(v value.Value) value.Handle {
	return m.Heap.Alloc(v)
}

// getProperty reads obj->prop. A missing property falls back to __get
// (PHP's property-access interception, spec'd magic methods) before
// reporting a Notice and returning null, matching ordinary PHP behavior for
// an undeclared/unset property with no __get defined.
func (m *Machine) getProperty(objVal value.Value, prop string) value.Value {
	obj, class, ok := m.resolveInstance(objVal)
	if !ok {
		return value.Null()
	}
	h, ok := obj.GetProperty(m.Symbols.InternString(prop))
	if ok {
		z, ok := m.Heap.TryGet(h)
		if !ok {
			return value.Null()
		}
		return z.Value
	}
	if class != nil && hasMethod(class, "__get") {
		v, _ := m.callMethod(objVal, "__get", []value.Value{value.String([]byte(prop))})
		return v
	}
	m.report(errs.Notice, "Undefined property: %s::$%s", objVal.TypeName(), prop)
	return value.Null()
}

// hasMethod reports whether class (or an ancestor) defines method, either
// as compiled PHP or a native Go implementation.
func hasMethod(class *ClassRuntime, method string) bool {
	if chunk, _ := class.LookupMethod(method); chunk != nil {
		return true
	}
	native, _ := class.LookupNative(method)
	return native != nil
}

// toPHPString is ToPHPString's VM-aware counterpart: an object with a
// __toString method is stringified by calling it, matching PHP's string
// coercion of objects; everything else defers to value.Value.ToPHPString.
func (m *Machine) toPHPString(v value.Value) []byte {
	if v.Kind != value.KindObject {
		return v.ToPHPString()
	}
	_, class, ok := m.resolveInstance(v)
	if !ok || class == nil || !hasMethod(class, "__toString") {
		return v.ToPHPString()
	}
	result, err := m.callMethod(v, "__toString", nil)
	if err != nil {
		return v.ToPHPString()
	}
	return result.ToPHPString()
}

// setProperty assigns obj->prop = v, marking newly introduced properties
// dynamic, unless the class declares __set and prop is not already a real
// property on this instance (PHP only routes through __set for properties
// that are inaccessible/undeclared, not for overwriting an existing one).
func (m *Machine) setProperty(objVal value.Value, prop string, v value.Value) {
	obj, class, ok := m.resolveInstance(objVal)
	if !ok {
		return
	}
	sym := m.Symbols.InternString(prop)
	_, existed := obj.GetProperty(sym)
	if !existed && class != nil && hasMethod(class, "__set") {
		m.callMethod(objVal, "__set", []value.Value{value.String([]byte(prop)), v})
		return
	}
	h := m.Heap.Alloc(v)
	obj.SetProperty(sym, h, !existed)
}

// unsetProperty implements unset($obj->prop), falling back to __unset when
// the property isn't a real declared/dynamic property on this instance.
func (m *Machine) unsetProperty(objVal value.Value, prop string) {
	obj, class, ok := m.resolveInstance(objVal)
	if !ok {
		return
	}
	sym := m.Symbols.InternString(prop)
	if _, existed := obj.GetProperty(sym); existed {
		obj.UnsetProperty(sym)
		return
	}
	if class != nil && hasMethod(class, "__unset") {
		m.callMethod(objVal, "__unset", []value.Value{value.String([]byte(prop))})
	}
}

// issetProperty implements isset($obj->prop)/empty(), falling back to
// __isset when the property isn't real.
func (m *Machine) issetProperty(objVal value.Value, prop string) bool {
	obj, class, ok := m.resolveInstance(objVal)
	if !ok {
		return false
	}
	sym := m.Symbols.InternString(prop)
	if h, existed := obj.GetProperty(sym); existed {
		z, ok := m.Heap.TryGet(h)
		return ok && z.Value.Kind != value.KindNull
	}
	if class != nil && hasMethod(class, "__isset") {
		v, _ := m.callMethod(objVal, "__isset", []value.Value{value.String([]byte(prop))})
		return v.ToBool()
	}
	return false
}

// getStaticProperty reads Class::$prop, walking ancestors for inherited
// static storage.
func (m *Machine) getStaticProperty(className, prop string) value.Value {
	class, ok := m.Classes[strings.ToLower(className)]
	if !ok {
		return value.Null()
	}
	for c := class; c != nil; c = c.Parent {
		if v, ok := c.StaticProps[prop]; ok {
			return v
		}
	}
	return value.Null()
}

// setStaticProperty assigns Class::$prop = v on the class that originally
// declared it, falling back to the named class itself for a new entry.
func (m *Machine) setStaticProperty(className, prop string, v value.Value) {
	class, ok := m.Classes[strings.ToLower(className)]
	if !ok {
		return
	}
	for c := class; c != nil; c = c.Parent {
		if _, ok := c.StaticProps[prop]; ok {
			c.StaticProps[prop] = v
			return
		}
	}
	class.StaticProps[prop] = v
}

// getClassConst resolves Class::CONST, walking ancestors.
func (m *Machine) getClassConst(className, name string) value.Value {
	class, ok := m.Classes[strings.ToLower(className)]
	if !ok {
		return value.Null()
	}
	for c := class; c != nil; c = c.Parent {
		if v, ok := c.Consts[name]; ok {
			return v
		}
	}
	return value.Null()
}
