// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package value

import "github.com/probechain/gophp/symbol"

// Visibility is a class member's declared accessibility.
type Visibility uint8

const (
	Public Visibility = iota
	Protected
	Private
)

// ObjectData is the actual storage for an object instance, referenced only
// indirectly via a KindObject Handle (spec §3: "Object(Handle) — indirection
// to the object payload slot; enables shared-object semantics").
type ObjectData struct {
	Class      symbol.Symbol
	Properties map[symbol.Symbol]Handle
	// PropOrder preserves declaration/insertion order for iteration and
	// var_dump-style introspection.
	PropOrder []symbol.Symbol
	// Dynamic marks which properties were added at runtime rather than
	// declared on the class.
	Dynamic map[symbol.Symbol]bool
	// Internal holds opaque hidden state for objects with VM-recognized
	// internals (closures, generators) or host-registered internal types.
	Internal interface{}
}

// NewObjectData allocates empty object storage for an instance of class.
func NewObjectData(class symbol.Symbol) *ObjectData {
	return &ObjectData{
		Class:      class,
		Properties: make(map[symbol.Symbol]Handle),
		Dynamic:    make(map[symbol.Symbol]bool),
	}
}

// SetProperty assigns h to prop, recording declaration order on first write
// and marking it dynamic if requested.
func (o *ObjectData) SetProperty(prop symbol.Symbol, h Handle, dynamic bool) {
	if _, exists := o.Properties[prop]; !exists {
		o.PropOrder = append(o.PropOrder, prop)
		if dynamic {
			o.Dynamic[prop] = true
		}
	}
	o.Properties[prop] = h
}

// GetProperty returns the Handle stored for prop, if any.
func (o *ObjectData) GetProperty(prop symbol.Symbol) (Handle, bool) {
	h, ok := o.Properties[prop]
	return h, ok
}

// UnsetProperty removes prop from the instance.
func (o *ObjectData) UnsetProperty(prop symbol.Symbol) {
	if _, ok := o.Properties[prop]; !ok {
		return
	}
	delete(o.Properties, prop)
	delete(o.Dynamic, prop)
	for i, p := range o.PropOrder {
		if p == prop {
			o.PropOrder = append(o.PropOrder[:i], o.PropOrder[i+1:]...)
			break
		}
	}
}

// ShallowClone returns a new ObjectData with the same class and a copy of
// the property map (sharing Handles, not cloning referenced values) —
// the storage form `clone $o` needs before `__clone` runs (spec §4.6.7
// supplemented, see SPEC_FULL.md §4).
func (o *ObjectData) ShallowClone() *ObjectData {
	out := &ObjectData{
		Class:      o.Class,
		Properties: make(map[symbol.Symbol]Handle, len(o.Properties)),
		Dynamic:    make(map[symbol.Symbol]bool, len(o.Dynamic)),
		PropOrder:  append([]symbol.Symbol(nil), o.PropOrder...),
	}
	for k, v := range o.Properties {
		out.Properties[k] = v
	}
	for k, v := range o.Dynamic {
		out.Dynamic[k] = v
	}
	return out
}
