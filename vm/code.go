// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// LineEntry maps a byte offset in Code to a source line, run-length encoded:
// every instruction between [PC, next entry's PC) belongs to Line.
type LineEntry struct {
	PC   int
	Line int
}

// ExceptionRange describes a try region: instructions in [Start,End) that
// throw transfer control to Handler if the thrown value matches one of
// CatchTypes (empty CatchTypes catches everything the VM represents as
// Throwable). Handler is -1 for a range that exists only to carry FinallyPC
// (a bare try/finally, or a catch body's own range) with no catch arm of
// its own. FinallyPC, when >= 0, is where an exception that reaches this
// range without matching any catch arm anywhere in it is redirected: that
// code runs the try's finally block once more and rethrows. Normal
// completion and caught exceptions reach the finally block by straight-line
// fallthrough in the compiled code, and return/break/continue compile an
// inline copy of the finally block before leaving the protected range, so
// FinallyPC exists solely for the uncaught-exception path.
type ExceptionRange struct {
	Start, End int
	CatchTypes []string
	Handler    int
	CatchVar   string
	FinallyPC  int
}

// LocalSlot describes one entry of a CodeChunk's local variable table.
type LocalSlot struct {
	Name string
}

// Param mirrors ast.Param but resolved to the compiled form the VM enforces
// at call time.
type Param struct {
	Name       string
	TypeHint   string
	HasDefault bool
	// DefaultConstIdx indexes the owning CodeChunk's Constants pool for a
	// literal default value; -1 when the parameter has no default, or when
	// its default is a non-literal expression (PHP restricts defaults to
	// compile-time-constant expressions in practice, so this covers the
	// common case; the rare const-expression default evaluates to null).
	DefaultConstIdx int
	ByRef           bool
	Variadic        bool
	PromoteVis      string
}

// CodeChunk is one compiled unit: a top-level script, function, method, or
// closure body.
type CodeChunk struct {
	Name         string
	Code         []byte
	Constants    []value.Value
	Lines        []LineEntry
	Exceptions   []ExceptionRange
	Locals       []LocalSlot
	Params       []Param
	Closures     []*ClosureTemplate
	ReturnType   string
	ByRefReturn  bool
	IsGenerator  bool
	IsStatic     bool
	StrictTypes  bool
	UpvalueNames []string // captured variable names, for closures
}

// ClosureTemplate is the compiled body of one closure/arrow-function
// literal plus the names it captures from its enclosing scope; OpMakeClosure
// binds a template to a live callable Value by copying (or ref-linking) each
// Uses entry out of the current frame's locals.
type ClosureTemplate struct {
	Chunk *CodeChunk
	Uses  []ClosureCapture
}

// ClosureCapture is one `use ($name)` / `use (&$name)` entry.
type ClosureCapture struct {
	Name  string
	ByRef bool
}

// LineForPC returns the source line associated with the instruction at pc,
// via the run-length encoded Lines table.
func (c *CodeChunk) LineForPC(pc int) int {
	line := 0
	for _, e := range c.Lines {
		if e.PC > pc {
			break
		}
		line = e.Line
	}
	return line
}

// LocalIndex returns the slot index of name, allocating one if unseen.
func (c *CodeChunk) LocalIndex(name string) int {
	for i, l := range c.Locals {
		if l.Name == name {
			return i
		}
	}
	c.Locals = append(c.Locals, LocalSlot{Name: name})
	return len(c.Locals) - 1
}
