// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ext implements the engine's extension registry: the surface
// native (Go-implemented) functions and classes register themselves
// through at engine-build time, presented to the VM as plain lookup tables
// once the engine is built.
package ext

import (
	"strings"

	"github.com/probechain/gophp/value"
)

// NativeFunction is a Go-implemented PHP function. vm is passed as
// interface{} rather than *vm.Machine so package ext does not import
// package vm (package engine wires the two together); extensions
// type-assert it to the concrete machine type they were built against.
type NativeFunction func(vm interface{}, args []value.Value) (value.Value, error)

// NativeMethod is a Go-implemented PHP method; vm is passed as interface{}
// for the same reason as NativeFunction, this is the bound receiver.
type NativeMethod func(vm interface{}, this value.Value, args []value.Value) (value.Value, error)

// NativeMethodEntry describes one native method of a NativeClassDef.
type NativeMethodEntry struct {
	Handler        NativeMethod
	Visibility     value.Visibility
	DeclaringClass string
	Static         bool
}

// NativeClassDef describes a class implemented natively in Go rather than
// compiled from PHP source, e.g. the builtin Throwable hierarchy.
type NativeClassDef struct {
	Name        string
	Parent      string
	Interfaces  []string
	Methods     map[string]*NativeMethodEntry
	Constants   map[string]value.Value
	Constructor *NativeMethodEntry
	Abstract    bool
}

// FunctionEntry pairs a registered native function with the parameter
// indices (0-based) the VM must pass by reference rather than by value,
// matching the spec's "by_ref_param_indices" registration parameter.
type FunctionEntry struct {
	Handler     NativeFunction
	ByRefParams []int
}

// Registry is the table of native functions/classes/constants an engine
// presents to the VM once built. Registration is append-only: extensions
// call Register* during the EngineBuilder phase; the VM only reads from it
// afterward.
type Registry struct {
	Functions map[string]*FunctionEntry
	Classes   map[string]*NativeClassDef
	Constants map[string]value.Value
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		Functions: make(map[string]*FunctionEntry),
		Classes:   make(map[string]*NativeClassDef),
		Constants: make(map[string]value.Value),
	}
}

// RegisterFunction registers name (case-insensitively, matching PHP
// function-name lookup) to handler, with optional by-ref parameter indices.
func (r *Registry) RegisterFunction(name string, handler NativeFunction, byRefParams ...int) {
	r.Functions[strings.ToLower(name)] = &FunctionEntry{Handler: handler, ByRefParams: byRefParams}
}

// RegisterClass registers a native class definition, keyed case-
// insensitively like every other class lookup in the engine.
func (r *Registry) RegisterClass(def *NativeClassDef) {
	r.Classes[strings.ToLower(def.Name)] = def
}

// RegisterConstant registers a global constant value (e.g. PHP_EOL,
// PHP_OUTPUT_HANDLER_CLEANABLE).
func (r *Registry) RegisterConstant(name string, v value.Value) {
	r.Constants[name] = v
}

// LookupFunction resolves a case-insensitive function name.
func (r *Registry) LookupFunction(name string) (*FunctionEntry, bool) {
	e, ok := r.Functions[strings.ToLower(name)]
	return e, ok
}

// LookupClass resolves a case-insensitive class name.
func (r *Registry) LookupClass(name string) (*NativeClassDef, bool) {
	c, ok := r.Classes[strings.ToLower(name)]
	return c, ok
}

// IsByRefParam reports whether the idx'th (0-based) parameter of the named
// native function is a by-reference parameter.
func (e *FunctionEntry) IsByRefParam(idx int) bool {
	for _, i := range e.ByRefParams {
		if i == idx {
			return true
		}
	}
	return false
}
