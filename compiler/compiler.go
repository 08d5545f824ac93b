// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package compiler lowers a parsed lang/ast.Program into vm.CodeChunk
// bytecode: one chunk per script/function/method/closure body, with a
// constant pool and exception-handler ranges. The chunks' line tables
// (CodeChunk.Lines) stay empty: markLine exists but nothing calls it, so
// vm.CodeChunk.LineForPC reports line 0 for compiled code.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/value"
	"github.com/probechain/gophp/vm"
)

// Unit is the compiled output for a whole source file: the top-level
// chunk plus every function/method/closure body reachable from it.
type Unit struct {
	Main      *vm.CodeChunk
	Functions map[string]*vm.CodeChunk
	Classes   map[string]*ClassInfo
}

// ClassInfo carries compiled method bodies and static layout for one class.
type ClassInfo struct {
	Decl    *ast.ClassDecl
	Methods map[string]*vm.CodeChunk
}

// CompileError reports a problem discovered during lowering (as opposed to
// parsing) such as break/continue outside a loop or an unsupported
// statement or assignment target.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

// compiler holds the mutable state for lowering one CodeChunk body. A new
// compiler is created per function/method/closure; nested bodies get their
// own instance whose parent points at the enclosing compiler. Closure
// captures are resolved by name through the chunk's UpvalueNames, not
// through parent.
type compiler struct {
	chunk  *vm.CodeChunk
	parent *compiler
	unit   *Unit

	loopBreaks    [][]int // patch list stack: pending jumps to loop end, per nesting level
	loopContinues [][]int
	loopTryDepth  []int // len(tryFinally) at each loop's pushLoop, so break/continue only runs trys entered since that loop started
	tryFinally    []*ast.BlockStmt // open try/finally bodies, innermost last; inlined before return/break/continue leaves their range
	lastLine      int

	errors []*CompileError
}

// Compile lowers an entire parsed program into a Unit. Functions and
// classes are discovered by a first pass over top-level declarations so
// forward references (calling a function defined later in the file) work.
func Compile(prog *ast.Program) (*Unit, []*CompileError) {
	u := &Unit{
		Functions: make(map[string]*vm.CodeChunk),
		Classes:   make(map[string]*ClassInfo),
	}
	c := &compiler{chunk: &vm.CodeChunk{Name: "{main}"}, unit: u}

	hoistDecls(prog.Statements, c)

	for _, stmt := range prog.Statements {
		c.compileStmt(stmt)
	}
	c.emit(vm.OpHalt)

	u.Main = c.chunk
	return u, c.errors
}

// hoistDecls walks top-level (and namespace-block) statements registering
// function/class declarations before any statement executes, matching
// PHP's hoisting of unconditional top-level declarations.
func hoistDecls(stmts []ast.Statement, c *compiler) {
	for _, stmt := range stmts {
		ds, ok := stmt.(*ast.DeclStmt)
		if !ok {
			continue
		}
		switch d := ds.Decl.(type) {
		case *ast.FunctionDecl:
			c.compileFunction(d)
		case *ast.ClassDecl:
			c.compileClass(d)
		}
	}
}

func (c *compiler) errorf(line int, format string, args ...interface{}) {
	c.errors = append(c.errors, &CompileError{Line: line, Message: fmt.Sprintf(format, args...)})
}

// ---- instruction emission --------------------------------------------------

func (c *compiler) emit(op vm.Opcode) int {
	pos := len(c.chunk.Code)
	c.chunk.Code = append(c.chunk.Code, byte(op))
	return pos
}

func (c *compiler) emitU8(op vm.Opcode, b byte) int {
	pos := c.emit(op)
	c.chunk.Code = append(c.chunk.Code, b)
	return pos
}

func (c *compiler) emitU16(op vm.Opcode, v uint16) int {
	pos := c.emit(op)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.chunk.Code = append(c.chunk.Code, buf[:]...)
	return pos
}

func (c *compiler) emitU32(op vm.Opcode, v uint32) int {
	pos := c.emit(op)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	c.chunk.Code = append(c.chunk.Code, buf[:]...)
	return pos
}

func (c *compiler) emitU16U32(op vm.Opcode, a uint16, b uint32) int {
	pos := c.emit(op)
	var buf16 [2]byte
	binary.LittleEndian.PutUint16(buf16[:], a)
	c.chunk.Code = append(c.chunk.Code, buf16[:]...)
	var buf32 [4]byte
	binary.LittleEndian.PutUint32(buf32[:], b)
	c.chunk.Code = append(c.chunk.Code, buf32[:]...)
	return pos
}

func (c *compiler) emitU16U32U32(op vm.Opcode, a uint16, b, cc uint32) int {
	pos := c.emitU16U32(op, a, b)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], cc)
	c.chunk.Code = append(c.chunk.Code, buf[:]...)
	return pos
}

func (c *compiler) emitU32U32(op vm.Opcode, a, b uint32) int {
	pos := c.emitU32(op, a)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], b)
	c.chunk.Code = append(c.chunk.Code, buf[:]...)
	return pos
}

// emitJump emits a jump opcode with a placeholder target, returning the
// byte offset of the operand to be patched once the real target is known.
func (c *compiler) emitJump(op vm.Opcode) int {
	c.emit(op)
	pos := len(c.chunk.Code)
	c.chunk.Code = append(c.chunk.Code, 0, 0, 0, 0)
	return pos
}

func (c *compiler) patchJump(operandPos int) {
	target := uint32(len(c.chunk.Code))
	binary.LittleEndian.PutUint32(c.chunk.Code[operandPos:operandPos+4], target)
}

func (c *compiler) patchJumpTo(operandPos, target int) {
	binary.LittleEndian.PutUint32(c.chunk.Code[operandPos:operandPos+4], uint32(target))
}

func (c *compiler) here() int { return len(c.chunk.Code) }

func (c *compiler) markLine(line int) {
	if line == c.lastLine {
		return
	}
	c.lastLine = line
	c.chunk.Lines = append(c.chunk.Lines, vm.LineEntry{PC: len(c.chunk.Code), Line: line})
}

// addConstant interns v into the chunk's constant pool, deduplicating
// scalar constants (int/float/string/bool/null) by value.
func (c *compiler) addConstant(v value.Value) uint32 {
	for i, existing := range c.chunk.Constants {
		if constantEqual(existing, v) {
			return uint32(i)
		}
	}
	c.chunk.Constants = append(c.chunk.Constants, v)
	return uint32(len(c.chunk.Constants) - 1)
}

// strConst builds a string Value from a Go string; value.String takes the
// raw byte content since PHP strings are not guaranteed UTF-8.
func strConst(s string) value.Value {
	return value.String([]byte(s))
}

func constantEqual(a, b value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.KindNull:
		return true
	case value.KindBool:
		return a.Bool == b.Bool
	case value.KindInt:
		return a.Int == b.Int
	case value.KindFloat:
		return a.Float == b.Float
	case value.KindString:
		return string(*a.Str) == string(*b.Str)
	default:
		return false
	}
}
