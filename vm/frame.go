// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// Frame is one activation record: its compiled chunk, local variable
// slots, operand stack, and program counter. Frames are pushed on call and
// popped on return/uncaught-throw unwind.
type Frame struct {
	Chunk  *CodeChunk
	Locals []value.Value
	Stack  []value.Value
	PC     int

	This      *value.ObjectData
	ThisHandle value.Handle
	Class     *ClassRuntime // the class a method body is executing against, for self::/parent::/static::
	StaticClass *ClassRuntime // late static binding target

	// gen is set when this frame is a generator body's frame, running on
	// its own goroutine; OpYield/OpYieldFrom use it to suspend instead of
	// returning. Nil for every ordinary frame.
	gen *generatorInstance
}

func newFrame(chunk *CodeChunk) *Frame {
	return &Frame{
		Chunk:  chunk,
		Locals: make([]value.Value, len(chunk.Locals)),
		Stack:  make([]value.Value, 0, 16),
	}
}

func (f *Frame) push(v value.Value) {
	f.Stack = append(f.Stack, v)
}

func (f *Frame) pop() value.Value {
	n := len(f.Stack) - 1
	v := f.Stack[n]
	f.Stack = f.Stack[:n]
	return v
}

func (f *Frame) peek() value.Value {
	return f.Stack[len(f.Stack)-1]
}

func (f *Frame) local(idx int) value.Value {
	if idx < 0 || idx >= len(f.Locals) {
		return value.Null()
	}
	return f.Locals[idx]
}

func (f *Frame) setLocal(idx int, v value.Value) {
	if idx < 0 {
		return
	}
	for idx >= len(f.Locals) {
		f.Locals = append(f.Locals, value.Null())
	}
	f.Locals[idx] = v
}
