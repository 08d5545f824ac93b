// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instruction is one decoded bytecode instruction, as produced by
// Disassemble for cmd/phpc's -emit=bytecode output.
type Instruction struct {
	PC       int
	Op       Opcode
	Operands []uint32
	Line     int
}

// Disassemble decodes chunk's entire code stream into a flat instruction
// list, annotating each with its source line via chunk.LineForPC.
func Disassemble(chunk *CodeChunk) []Instruction {
	var out []Instruction
	code := chunk.Code
	pc := 0
	for pc < len(code) {
		start := pc
		op := Opcode(code[pc])
		pc++
		width := OperandWidth(op)
		var ops []uint32
		switch {
		case op == OpLoadLocal || op == OpStoreLocal || op == OpIncLocal || op == OpDecLocal ||
			op == OpPostIncLocal || op == OpPostDecLocal || op == OpIsset:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			pc += 2
		case op == OpNewArray:
			ops = append(ops, binary.LittleEndian.Uint32(code[pc:]))
			ops = append(ops, uint32(code[pc+4]))
			pc += 5
		case op == OpCallFunction || op == OpCallMethod:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			ops = append(ops, binary.LittleEndian.Uint32(code[pc+2:]))
			pc += 6
		case op == OpCallStatic:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			ops = append(ops, binary.LittleEndian.Uint32(code[pc+2:]))
			ops = append(ops, binary.LittleEndian.Uint32(code[pc+6:]))
			pc += 10
		case op == OpCallClosure:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			pc += 2
		case op == OpNewObject:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			ops = append(ops, binary.LittleEndian.Uint32(code[pc+2:]))
			pc += 6
		case op == OpGetStaticProp || op == OpSetStaticProp || op == OpGetClassConst:
			ops = append(ops, binary.LittleEndian.Uint32(code[pc:]))
			ops = append(ops, binary.LittleEndian.Uint32(code[pc+4:]))
			pc += 8
		case width == 4:
			ops = append(ops, binary.LittleEndian.Uint32(code[pc:]))
			pc += 4
		case width == 2:
			ops = append(ops, uint32(binary.LittleEndian.Uint16(code[pc:])))
			pc += 2
		case width == 1:
			ops = append(ops, uint32(code[pc]))
			pc += 1
		}
		out = append(out, Instruction{PC: start, Op: op, Operands: ops, Line: chunk.LineForPC(start)})
	}
	return out
}

// Text renders one decoded instruction as a single disassembly line.
func (ins Instruction) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d  %-22s", ins.PC, ins.Op.String())
	for _, o := range ins.Operands {
		fmt.Fprintf(&b, " %d", o)
	}
	return b.String()
}
