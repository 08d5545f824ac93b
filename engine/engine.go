// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package engine assembles the interner, compiled function/class tables,
// globals, constants, resource manager, and extension registry into a
// single lifecycle-managed context, the way the spec's "EngineBuilder"
// two-phase initialization is described: extensions register during the
// builder phase, Build freezes the result into a Context ready to run
// compiled units, and Teardown drops registered resources in reverse
// registration order.
package engine

import (
	"fmt"
	"strings"

	"github.com/probechain/gophp/compiler"
	"github.com/probechain/gophp/config"
	"github.com/probechain/gophp/errs"
	"github.com/probechain/gophp/ext"
	"github.com/probechain/gophp/internal/xlog"
	"github.com/probechain/gophp/lang/parser"
	"github.com/probechain/gophp/output"
	"github.com/probechain/gophp/resource"
	"github.com/probechain/gophp/value"
	"github.com/probechain/gophp/vm"
)

// Builder collects extensions and host configuration before Build freezes
// them into a Context. Registration methods are only valid before Build is
// called; the spec's two-phase contract ("EngineBuilder registers
// extensions; build() freezes and yields a context handle").
type Builder struct {
	registry    *ext.Registry
	methodCache int
	registerExc bool
	config      config.EngineConfig
}

// NewBuilder creates an empty builder using config.Default() tunables. The
// builtin Throwable/Exception hierarchy is registered by default, matching
// the spec's supplemented exception-hierarchy feature; pass
// WithoutBuiltinExceptions to omit it (e.g. a host supplying its own).
func NewBuilder() *Builder {
	b := &Builder{registry: ext.New(), methodCache: 512, registerExc: true, config: config.Default()}
	return b
}

// WithConfig overrides the builder's tunables, typically loaded from a
// TOML file via config.Load. Build copies GC.InitialThreshold into the
// built Machine's heap threshold and Stack.MaxCallDepth into
// Machine.MaxCallDepth (each only when positive); no other field is read.
func (b *Builder) WithConfig(cfg config.EngineConfig) *Builder {
	b.config = cfg
	return b
}

// Registry exposes the extension registry for RegisterFunction/
// RegisterClass/RegisterConstant calls during the builder phase.
func (b *Builder) Registry() *ext.Registry { return b.registry }

// WithMethodCacheSize overrides the VM's method-resolution LRU cache size.
func (b *Builder) WithMethodCacheSize(n int) *Builder {
	b.methodCache = n
	return b
}

// WithoutBuiltinExceptions skips registering the default Throwable
// hierarchy, for a host that wants to supply its own.
func (b *Builder) WithoutBuiltinExceptions() *Builder {
	b.registerExc = false
	return b
}

// Context is a built, ready-to-run engine: a Machine plus the resource
// manager and output stack a host drives a script through.
type Context struct {
	Machine   *vm.Machine
	Resources *resource.Manager
	Output    *output.Stack
	Registry  *ext.Registry
}

// Build freezes b into a Context: native extensions are installed onto a
// fresh vm.Machine, the output stack and resource manager are created, and
// the result is ready to Compile/Run source.
func (b *Builder) Build(sink sinkWriter) *Context {
	if b.registerExc {
		for _, def := range ext.BuildThrowableHierarchy() {
			b.registry.RegisterClass(def)
		}
	}

	m := vm.NewMachine(b.methodCache)
	if b.config.GC.InitialThreshold > 0 {
		m.Heap.SetThreshold(b.config.GC.InitialThreshold)
	}
	if b.config.Stack.MaxCallDepth > 0 {
		m.MaxCallDepth = b.config.Stack.MaxCallDepth
	}
	m.Reporter = errs.New("")
	m.Reporter.Sink = xlogSink{}
	ob := output.New(sink)
	m.Output = ob
	res := resource.NewManager()

	installNativeFunctions(m, b.registry)
	installNativeClasses(m, b.registry)

	return &Context{Machine: m, Resources: res, Output: ob, Registry: b.registry}
}

// sinkWriter is the minimal writer interface Build needs for the default
// output sink, matching io.Writer without importing it for one method.
type sinkWriter interface {
	Write(p []byte) (int, error)
}

// xlogSink forwards PHP-visible diagnostics to the engine-internal logger by
// default; a host embedding the engine can replace Machine.Reporter.Sink
// with its own to capture them instead (e.g. to surface in a web response).
type xlogSink struct{}

var xlogDiag = xlog.For("php")

func (xlogSink) Report(d *errs.Diagnostic) {
	switch {
	case d.Level >= errs.Error:
		xlogDiag.Error(d.Error())
	case d.Level == errs.Deprecated || d.Level == errs.Warning:
		xlogDiag.Warn(d.Error())
	default:
		xlogDiag.Info(d.Error())
	}
}

// installNativeFunctions adapts every ext.Registry function entry into a
// vm.NativeHandlerFunc bound to this machine.
func installNativeFunctions(m *vm.Machine, reg *ext.Registry) {
	for name, entry := range reg.Functions {
		handler := entry.Handler
		m.NativeFunctions[name] = func(mm *vm.Machine, args []value.Value) (value.Value, error) {
			return handler(mm, args)
		}
	}
}

// installNativeClasses links every ext.Registry class definition into the
// Machine's class table as a vm.ClassRuntime, resolving Parent references
// (native classes only reference other native classes or are later
// extended by compiled PHP classes via LinkUnit).
func installNativeClasses(m *vm.Machine, reg *ext.Registry) {
	for name, def := range reg.Classes {
		m.Classes[name] = &vm.ClassRuntime{
			Name:         def.Name,
			IsAbstract:   def.Abstract,
			Methods:      map[string]*vm.CodeChunk{},
			Natives:      map[string]vm.NativeHandler{},
			StaticProps:  map[string]value.Value{},
			Consts:       map[string]value.Value{},
			PropDefaults: map[string]value.Value{},
		}
	}
	for name, def := range reg.Classes {
		cr := m.Classes[name]
		if def.Parent != "" {
			cr.Parent = m.Classes[strings.ToLower(def.Parent)]
		}
		for mname, entry := range def.Methods {
			handler := entry.Handler
			cr.Natives[mname] = func(mm *vm.Machine, this value.Value, args []value.Value) (value.Value, error) {
				return handler(mm, this, args)
			}
		}
		for cname, v := range def.Constants {
			cr.Consts[cname] = v
		}
	}
}

// CompileSource parses and compiles src into a compiler.Unit, returning the
// first syntax or compile error it collected, if any.
func CompileSource(filename string, src []byte) (*compiler.Unit, error) {
	prog, parseErrs := parser.Parse(filename, string(src))
	if len(parseErrs) > 0 {
		return nil, fmt.Errorf("parse error: %s", parseErrs[0].Error())
	}
	unit, compileErrs := compiler.Compile(prog)
	if len(compileErrs) > 0 {
		return nil, fmt.Errorf("compile error: %s", compileErrs[0].Error())
	}
	return unit, nil
}
