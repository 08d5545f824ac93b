// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vm implements the engine's frame-based bytecode interpreter: an
// operand stack plus a call-frame stack, executing the CodeChunk produced
// by package compiler.
package vm

// Opcode is an 8-bit instruction code. Each instruction is one opcode byte
// followed by a fixed number of operand bytes depending on its class (see
// OperandWidth); wide operands (jump targets, constant indices) are
// 4-byte little-endian.
type Opcode uint8

const (
	// ---- Constants / locals -------------------------------------------------
	OpConstant  Opcode = iota // push Constants[u32]
	OpNull                    // push null
	OpTrue                    // push true
	OpFalse                   // push false
	OpLoadLocal               // push Locals[u16]
	OpStoreLocal              // Locals[u16] = peek() (does not pop, per PHP assignment-is-an-expression)
	OpLoadGlobal              // push Globals[symbol u32]
	OpStoreGlobal             // Globals[symbol u32] = peek()
	OpPop                     // discard top of stack
	OpDup                     // duplicate top of stack
	OpLoadLocalDynamic        // pop name string, push the named local's value ($$name / ${expr})
	OpStoreLocalDynamic       // pop name string, peek value; store into the named local

	// ---- Arithmetic ----------------------------------------------------------
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpNeg
	OpConcat // string "." operator

	// ---- Bitwise --------------------------------------------------------------
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	// ---- Comparison -------------------------------------------------------------
	OpEqual        // loose ==
	OpNotEqual     // loose !=
	OpIdentical    // strict ===
	OpNotIdentical // strict !==
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpSpaceship // <=> returns -1/0/1

	// ---- Logical ----------------------------------------------------------------
	OpNot

	// ---- String / array -----------------------------------------------------------
	OpNewArray      // push an empty array (u32 element count and keyed-flag byte are read but unused); elements follow as OpArraySet/OpArrayAppend
	OpArrayAppend   // arr=peek below top; push value -> arr[] = value
	OpArrayGet      // pop key, pop array, push array[key]
	OpArraySet      // pop value, pop key, pop array; array[key] = value; push array
	OpArrayUnset    // pop key, pop array; unset(array[key])
	OpArrayIsset    // pop key, pop array; push bool
	OpIterInit      // pop array/object, push iterator handle
	OpIterNext      // advance iterator; push bool hasMore
	OpIterKey       // push current iterator key
	OpIterValue     // push current iterator value (honors by-ref foreach)

	// ---- Inc/dec --------------------------------------------------------------------
	OpIncLocal // Locals[u16]++ (pre); pushes new value
	OpDecLocal
	OpPostIncLocal // pushes old value, then increments
	OpPostDecLocal

	// ---- Control flow -------------------------------------------------------------
	OpJump       // PC = u32
	OpJumpIfFalse // pop; if falsy, PC = u32
	OpJumpIfTrue  // pop; if truthy, PC = u32
	OpJumpIfFalseKeep // peek; if falsy, PC = u32 (does not pop) — used for ?? / && / || short-circuit
	OpJumpIfTrueKeep

	// ---- Calls ------------------------------------------------------------------------
	OpCallFunction // pop argc(u16 operand) args + callee name symbol(u32); push return value
	OpCallMethod   // pop argc args + receiver + method symbol(u32); push return value
	OpCallStatic   // pop argc args + class symbol(u32) + method symbol(u32); push return value
	OpCallClosure  // pop argc args + closure value; push return value
	OpNewObject    // pop argc ctor args + class symbol(u32); push new object
	OpClone        // pop object; push clone
	OpInstanceOf   // pop value; push whether it is an instance of the class named by the u32 operand
	OpReturn       // pop value; unwind current frame
	OpReturnNull

	// ---- Objects ------------------------------------------------------------------------
	OpGetProperty    // pop object, push object.prop (symbol u32 operand); consults __get when undeclared
	OpSetProperty    // pop value, pop object; object.prop = value (symbol u32 operand); push value; consults __set when undeclared
	OpUnsetProperty  // pop object; unset(object.prop) (symbol u32 operand); consults __unset when undeclared
	OpPropertyIsset  // pop object; push isset(object.prop) as bool (symbol u32 operand); consults __isset when undeclared
	OpGetStaticProp  // push Class::$prop (two symbol u32 operands: class, prop)
	OpSetStaticProp  // pop value; Class::$prop = value
	OpGetClassConst  // push Class::CONST (two symbol u32 operands)

	// ---- Exceptions -----------------------------------------------------------------
	OpThrow     // pop value; raise as exception
	OpPushCatch // push an exception-table frame entry (used by the compiler's emitted ranges, not directly encoded)

	// ---- Generators ------------------------------------------------------------------
	OpYield     // pop value; suspend, yielding it to the caller; resume pushes the sent value
	OpYieldFrom // pop iterable; delegate

	// ---- Closures ---------------------------------------------------------------------
	OpMakeClosure // push a closure Value bound to CodeChunk.Closures[u32], capturing the named upvalues from the current frame

	// ---- Typing / misc --------------------------------------------------------------
	OpCastInt
	OpCastFloat
	OpCastString
	OpCastBool
	OpCastArray
	OpCheckType  // verify top-of-stack matches a declared type hint (symbol/string operand); the compiler never emits it, so return values are not type-checked
	OpCoerceType // like OpCheckType, but on a mismatch attempts PHP's weak-mode scalar coercion before failing (symbol/string operand)
	OpIsset     // pop N (u16 operand) candidate slots' presence check, push bool
	OpEcho      // pop value; write its string form to the active output buffer
	OpSuppressErrorsEnter // '@' prefix: push current error-reporting level and silence it
	OpSuppressErrorsExit  // restore previously pushed level
	OpHalt
)

// operandWidths gives, for each opcode, the number of operand bytes that
// follow it in a CodeChunk — 0 for fixed-arity-only ops, 1/2/4 for
// u8/u16/u32 immediates. Multi-operand instructions (e.g. OpNewArray,
// OpGetStaticProp) list their total combined width.
var operandWidths = map[Opcode]int{
	OpConstant: 4, OpLoadLocal: 2, OpStoreLocal: 2,
	OpLoadGlobal: 4, OpStoreGlobal: 4,
	OpNewArray: 5, // u32 count + u8 keyed-flag
	OpIncLocal: 2, OpDecLocal: 2, OpPostIncLocal: 2, OpPostDecLocal: 2,
	OpJump: 4, OpJumpIfFalse: 4, OpJumpIfTrue: 4, OpJumpIfFalseKeep: 4, OpJumpIfTrueKeep: 4,
	OpCallFunction: 6, // u16 argc + u32 symbol
	OpCallMethod:   6, // u16 argc + u32 method symbol
	OpCallStatic:   10, // u16 argc + u32 class symbol + u32 method symbol
	OpCallClosure:  2, // u16 argc
	OpNewObject:    6, // u16 argc + u32 class symbol
	OpInstanceOf:   4,
	OpMakeClosure:  4,
	OpGetProperty:  4, OpSetProperty: 4, OpUnsetProperty: 4, OpPropertyIsset: 4,
	OpGetStaticProp: 8, OpSetStaticProp: 8, OpGetClassConst: 8,
	OpCheckType: 4, OpCoerceType: 4,
	OpIsset:     2,
}

// OperandWidth returns the number of operand bytes following op in the
// instruction stream.
func OperandWidth(op Opcode) int {
	return operandWidths[op]
}

var opcodeNames = map[Opcode]string{
	OpConstant: "CONSTANT", OpNull: "NULL", OpTrue: "TRUE", OpFalse: "FALSE",
	OpLoadLocal: "LOAD_LOCAL", OpStoreLocal: "STORE_LOCAL",
	OpLoadGlobal: "LOAD_GLOBAL", OpStoreGlobal: "STORE_GLOBAL",
	OpPop: "POP", OpDup: "DUP",
	OpLoadLocalDynamic: "LOAD_LOCAL_DYNAMIC", OpStoreLocalDynamic: "STORE_LOCAL_DYNAMIC",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpPow: "POW",
	OpNeg: "NEG", OpConcat: "CONCAT",
	OpBitAnd: "BIT_AND", OpBitOr: "BIT_OR", OpBitXor: "BIT_XOR", OpBitNot: "BIT_NOT",
	OpShl: "SHL", OpShr: "SHR",
	OpEqual: "EQUAL", OpNotEqual: "NOT_EQUAL", OpIdentical: "IDENTICAL", OpNotIdentical: "NOT_IDENTICAL",
	OpLess: "LESS", OpLessEqual: "LESS_EQUAL", OpGreater: "GREATER", OpGreaterEqual: "GREATER_EQUAL",
	OpSpaceship: "SPACESHIP", OpNot: "NOT",
	OpNewArray: "NEW_ARRAY", OpArrayAppend: "ARRAY_APPEND", OpArrayGet: "ARRAY_GET",
	OpArraySet: "ARRAY_SET", OpArrayUnset: "ARRAY_UNSET", OpArrayIsset: "ARRAY_ISSET",
	OpIterInit: "ITER_INIT", OpIterNext: "ITER_NEXT", OpIterKey: "ITER_KEY", OpIterValue: "ITER_VALUE",
	OpIncLocal: "INC_LOCAL", OpDecLocal: "DEC_LOCAL",
	OpPostIncLocal: "POST_INC_LOCAL", OpPostDecLocal: "POST_DEC_LOCAL",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE",
	OpJumpIfFalseKeep: "JUMP_IF_FALSE_KEEP", OpJumpIfTrueKeep: "JUMP_IF_TRUE_KEEP",
	OpCallFunction: "CALL_FUNCTION", OpCallMethod: "CALL_METHOD", OpCallStatic: "CALL_STATIC",
	OpCallClosure: "CALL_CLOSURE", OpNewObject: "NEW_OBJECT", OpClone: "CLONE",
	OpInstanceOf: "INSTANCEOF", OpReturn: "RETURN", OpReturnNull: "RETURN_NULL",
	OpGetProperty: "GET_PROPERTY", OpSetProperty: "SET_PROPERTY",
	OpUnsetProperty: "UNSET_PROPERTY", OpPropertyIsset: "PROPERTY_ISSET",
	OpGetStaticProp: "GET_STATIC_PROP", OpSetStaticProp: "SET_STATIC_PROP", OpGetClassConst: "GET_CLASS_CONST",
	OpThrow: "THROW", OpPushCatch: "PUSH_CATCH",
	OpYield: "YIELD", OpYieldFrom: "YIELD_FROM",
	OpMakeClosure: "MAKE_CLOSURE",
	OpCastInt: "CAST_INT", OpCastFloat: "CAST_FLOAT", OpCastString: "CAST_STRING",
	OpCastBool: "CAST_BOOL", OpCastArray: "CAST_ARRAY",
	OpCheckType: "CHECK_TYPE", OpCoerceType: "COERCE_TYPE", OpIsset: "ISSET", OpEcho: "ECHO",
	OpSuppressErrorsEnter: "SUPPRESS_ENTER", OpSuppressErrorsExit: "SUPPRESS_EXIT",
	OpHalt: "HALT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}
