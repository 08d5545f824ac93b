// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/gophp/errs"
	"github.com/probechain/gophp/gc"
	"github.com/probechain/gophp/symbol"
	"github.com/probechain/gophp/value"
)

// OutputWriter is the sink for echo/print output; package output supplies
// the layered-buffer implementation used in production, tests can swap in
// a plain bytes.Buffer wrapper.
type OutputWriter interface {
	Write(p []byte) (int, error)
}

// NativeHandler is a method implemented in Go rather than compiled PHP
// bytecode, registered by an ext.NativeClassDef and adapted onto a
// ClassRuntime by the engine builder (package vm never imports package ext
// directly, to avoid a cycle).
type NativeHandler func(m *Machine, this value.Value, args []value.Value) (value.Value, error)

// NativeHandlerFunc is a Go-implemented free function (not a method),
// registered by the extension registry.
type NativeHandlerFunc func(m *Machine, args []value.Value) (value.Value, error)

// ClassRuntime is a class's resolved runtime shape: its method chunks (own
// plus inherited, already flattened so dispatch is a single map lookup),
// static property storage, and declared instance-property defaults.
type ClassRuntime struct {
	Name         string
	Parent       *ClassRuntime
	Methods      map[string]*CodeChunk
	Natives      map[string]NativeHandler
	StaticProps  map[string]value.Value
	Consts       map[string]value.Value
	PropDefaults map[string]value.Value
	IsAbstract   bool
	IsInterface  bool
}

// LookupMethod resolves a method by case-folded name, walking the
// inheritance chain (single inheritance, matching PHP classes).
func (cr *ClassRuntime) LookupMethod(name string) (*CodeChunk, *ClassRuntime) {
	for c := cr; c != nil; c = c.Parent {
		if m, ok := c.Methods[name]; ok {
			return m, c
		}
	}
	return nil, nil
}

// LookupNative resolves a native (Go-implemented) method by case-folded
// name, walking the same inheritance chain as LookupMethod.
func (cr *ClassRuntime) LookupNative(name string) (NativeHandler, *ClassRuntime) {
	for c := cr; c != nil; c = c.Parent {
		if h, ok := c.Natives[name]; ok {
			return h, c
		}
	}
	return nil, nil
}

// Machine is one instance of the engine's bytecode interpreter: the heap,
// global symbol table, function/class registries, and the active call
// stack for a single top-level Run.
type Machine struct {
	Heap    *gc.Heap
	Symbols *symbol.Table

	Globals   map[string]value.Value
	Functions map[string]*CodeChunk
	Classes   map[string]*ClassRuntime

	// NativeFunctions holds Go-implemented functions registered by the
	// extension registry at engine-build time, consulted by callFunction
	// when a name has no compiled PHP chunk.
	NativeFunctions map[string]NativeHandlerFunc

	Output OutputWriter

	// MethodCache memoizes (class, method-name) -> resolved CodeChunk
	// lookups across repeated calls in a hot loop.
	MethodCache *lru.Cache

	// MaxCallDepth bounds the active frame stack; callFunction/callMethod/
	// callStatic raise a fatal once len(frames) reaches it. Defaults to
	// maxCallDepth but overridable by a host via config.StackConfig.
	MaxCallDepth int

	// Reporter receives Notice/Warning/Deprecated diagnostics raised by the
	// exec loop (undefined property/array-key reads, division by zero,
	// ...). Nil is valid and simply discards them; engine.Builder attaches
	// one by default.
	Reporter *errs.Reporter

	frames []*Frame

	errorSuppressDepth int
}

// report raises a diagnostic against m.Reporter at the current frame's
// source line as given by LineForPC (0 when the chunk's line table is
// empty, as it is for compiler output), a no-op if no Reporter is attached.
func (m *Machine) report(level errs.Level, format string, args ...interface{}) {
	if m.Reporter == nil {
		return
	}
	line := 0
	if f := m.currentFrame(); f != nil && f.Chunk != nil {
		line = f.Chunk.LineForPC(f.PC)
	}
	m.Reporter.Report(level, line, format, args...)
}

// NewMachine builds an interpreter ready to Run compiled chunks. cache
// sizes the method-resolution cache; 0 selects a sensible default.
func NewMachine(cacheSize int) *Machine {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, _ := lru.New(cacheSize)
	m := &Machine{
		Heap:            gc.New(),
		Symbols:         symbol.New(),
		Globals:         make(map[string]value.Value),
		Functions:       make(map[string]*CodeChunk),
		Classes:         make(map[string]*ClassRuntime),
		NativeFunctions: make(map[string]NativeHandlerFunc),
		MethodCache:     cache,
		MaxCallDepth:    maxCallDepth,
	}
	registerGeneratorClass(m)
	return m
}

// RuntimeError is returned by Run for a PHP-level uncaught exception, or a
// VM-detected fatal condition (stack overflow, undefined function, etc.).
type RuntimeError struct {
	Message string
	Thrown  *value.Value // non-nil when this wraps an uncaught PHP exception object
}

func (e *RuntimeError) Error() string { return e.Message }

func (m *Machine) fatalf(format string, args ...interface{}) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

func (m *Machine) echo(b []byte) {
	if m.Output != nil {
		m.Output.Write(b)
	}
}

func (m *Machine) currentFrame() *Frame {
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}
