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

	"github.com/probechain/gophp/value"
)

const maxCallDepth = 2048

// Run executes chunk as a fresh top-level program (or a standalone function
// body for testing) and returns its final popped value, if any.
func (m *Machine) Run(chunk *CodeChunk) (value.Value, error) {
	frame := newFrame(chunk)
	m.frames = append(m.frames, frame)
	defer func() { m.frames = m.frames[:len(m.frames)-1] }()
	return m.exec(frame)
}

// exec runs frame's bytecode to completion: a normal fall-off (OpHalt), an
// explicit OpReturn/OpReturnNull, or an uncaught throw that the caller
// needs to propagate further.
func (m *Machine) exec(f *Frame) (value.Value, error) {
	code := f.Chunk.Code
	for f.PC < len(code) {
		op := Opcode(code[f.PC])
		f.PC++

		switch op {
		case OpHalt:
			return value.Null(), nil

		case OpReturn:
			v := f.pop()
			return v, nil
		case OpReturnNull:
			return value.Null(), nil

		case OpConstant:
			idx := f.readU32()
			f.push(f.Chunk.Constants[idx])
		case OpNull:
			f.push(value.Null())
		case OpTrue:
			f.push(value.Bool(true))
		case OpFalse:
			f.push(value.Bool(false))

		case OpLoadLocal:
			idx := f.readU16()
			f.push(f.local(int(idx)))
		case OpStoreLocal:
			idx := f.readU16()
			f.setLocal(int(idx), f.peek())
		case OpLoadGlobal:
			idx := f.readU32()
			name := constString(f.Chunk, idx)
			f.push(m.Globals[name])
		case OpStoreGlobal:
			idx := f.readU32()
			name := constString(f.Chunk, idx)
			m.Globals[name] = f.peek()
		case OpLoadLocalDynamic:
			name := string(f.pop().ToPHPString())
			f.push(f.local(f.Chunk.LocalIndex(name)))
		case OpStoreLocalDynamic:
			name := string(f.pop().ToPHPString())
			f.setLocal(f.Chunk.LocalIndex(name), f.peek())

		case OpPop:
			f.pop()
		case OpDup:
			f.push(f.peek())

		case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow, OpConcat,
			OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
			rhs := f.pop()
			lhs := f.pop()
			result, err := m.binaryOp(op, lhs, rhs)
			if err != nil {
				return value.Value{}, err
			}
			f.push(result)
		case OpNeg:
			v := f.pop()
			f.push(negate(v))
		case OpBitNot:
			v := f.pop()
			f.push(value.Int(^v.ToInt()))
		case OpNot:
			v := f.pop()
			f.push(value.Bool(!v.ToBool()))

		case OpEqual, OpNotEqual, OpIdentical, OpNotIdentical,
			OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpSpaceship:
			rhs := f.pop()
			lhs := f.pop()
			f.push(m.compareOp(op, lhs, rhs))

		case OpJump:
			target := f.readU32()
			f.PC = int(target)
		case OpJumpIfFalse:
			target := f.readU32()
			if !f.pop().ToBool() {
				f.PC = int(target)
			}
		case OpJumpIfTrue:
			target := f.readU32()
			if f.pop().ToBool() {
				f.PC = int(target)
			}
		case OpJumpIfFalseKeep:
			target := f.readU32()
			if !f.peek().ToBool() {
				f.PC = int(target)
			}
		case OpJumpIfTrueKeep:
			target := f.readU32()
			if f.peek().ToBool() {
				f.PC = int(target)
			}

		case OpNewArray:
			f.readU32() // element-count hint, unused by the map-backed array
			f.readU8()  // keyed flag, informational only
			f.push(value.Array(value.NewArrayData()))
		case OpArrayAppend:
			v := f.pop()
			arrV := f.pop()
			f.push(m.arrayAppend(arrV, v))
		case OpArraySet:
			v := f.pop()
			key := f.pop()
			arrV := f.pop()
			f.push(m.arraySet(arrV, key, v))
		case OpArrayGet:
			key := f.pop()
			arrV := f.pop()
			f.push(m.arrayGet(arrV, key))
		case OpArrayUnset:
			key := f.pop()
			arrV := f.pop()
			f.push(m.arrayUnset(arrV, key))
		case OpArrayIsset:
			key := f.pop()
			arrV := f.pop()
			f.push(value.Bool(m.arrayIsset(arrV, key)))

		case OpIterInit:
			v := f.pop()
			f.push(m.newIterator(v))
		case OpIterNext:
			it := f.pop()
			f.push(value.Bool(m.iterAdvance(it)))
		case OpIterKey:
			it := f.pop()
			f.push(m.iterKey(it))
		case OpIterValue:
			it := f.pop()
			f.push(m.iterValue(it))

		case OpIncLocal:
			idx := f.readU16()
			nv := addOne(f.local(int(idx)), 1)
			f.setLocal(int(idx), nv)
			f.push(nv)
		case OpDecLocal:
			idx := f.readU16()
			nv := addOne(f.local(int(idx)), -1)
			f.setLocal(int(idx), nv)
			f.push(nv)
		case OpPostIncLocal:
			idx := f.readU16()
			old := f.local(int(idx))
			f.setLocal(int(idx), addOne(old, 1))
			f.push(old)
		case OpPostDecLocal:
			idx := f.readU16()
			old := f.local(int(idx))
			f.setLocal(int(idx), addOne(old, -1))
			f.push(old)

		case OpCallFunction:
			argc := f.readU16()
			sym := f.readU32()
			name := constString(f.Chunk, sym)
			result, err := m.callFunction(name, f.popN(int(argc)))
			if err != nil {
				if handled, err2 := m.propagateOrCatch(f, err); handled {
					continue
				} else {
					return value.Value{}, err2
				}
			}
			f.push(result)

		case OpCallMethod:
			argc := f.readU16()
			sym := f.readU32()
			method := constString(f.Chunk, sym)
			args := f.popN(int(argc))
			receiver := f.pop()
			result, err := m.callMethod(receiver, method, args)
			if err != nil {
				if handled, err2 := m.propagateOrCatch(f, err); handled {
					continue
				} else {
					return value.Value{}, err2
				}
			}
			f.push(result)

		case OpCallStatic:
			argc := f.readU16()
			classSym := f.readU32()
			methodSym := f.readU32()
			className := constString(f.Chunk, classSym)
			method := constString(f.Chunk, methodSym)
			args := f.popN(int(argc))
			result, err := m.callStatic(f, className, method, args)
			if err != nil {
				if handled, err2 := m.propagateOrCatch(f, err); handled {
					continue
				} else {
					return value.Value{}, err2
				}
			}
			f.push(result)

		case OpCallClosure:
			argc := f.readU16()
			args := f.popN(int(argc))
			closure := f.pop()
			result, err := m.callClosureValue(closure, args)
			if err != nil {
				if handled, err2 := m.propagateOrCatch(f, err); handled {
					continue
				} else {
					return value.Value{}, err2
				}
			}
			f.push(result)

		case OpMakeClosure:
			idx := f.readU32()
			tmpl := f.Chunk.Closures[idx]
			f.push(m.makeClosure(f, tmpl))

		case OpNewObject:
			argc := f.readU16()
			sym := f.readU32()
			className := constString(f.Chunk, sym)
			args := f.popN(int(argc))
			obj, err := m.instantiate(className, args)
			if err != nil {
				if handled, err2 := m.propagateOrCatch(f, err); handled {
					continue
				} else {
					return value.Value{}, err2
				}
			}
			f.push(obj)
		case OpClone:
			v := f.pop()
			f.push(m.cloneObject(v))
		case OpInstanceOf:
			sym := f.readU32()
			className := constString(f.Chunk, sym)
			v := f.pop()
			f.push(value.Bool(m.isInstanceOf(v, className)))

		case OpGetProperty:
			sym := f.readU32()
			prop := constString(f.Chunk, sym)
			obj := f.pop()
			f.push(m.getProperty(obj, prop))
		case OpSetProperty:
			sym := f.readU32()
			prop := constString(f.Chunk, sym)
			v := f.pop()
			obj := f.pop()
			m.setProperty(obj, prop, v)
			f.push(v)
		case OpUnsetProperty:
			sym := f.readU32()
			prop := constString(f.Chunk, sym)
			obj := f.pop()
			m.unsetProperty(obj, prop)
		case OpPropertyIsset:
			sym := f.readU32()
			prop := constString(f.Chunk, sym)
			obj := f.pop()
			f.push(value.Bool(m.issetProperty(obj, prop)))
		case OpGetStaticProp:
			classSym := f.readU32()
			propSym := f.readU32()
			className := constString(f.Chunk, classSym)
			prop := constString(f.Chunk, propSym)
			f.push(m.getStaticProperty(className, prop))
		case OpSetStaticProp:
			classSym := f.readU32()
			propSym := f.readU32()
			className := constString(f.Chunk, classSym)
			prop := constString(f.Chunk, propSym)
			v := f.pop()
			m.setStaticProperty(className, prop, v)
			f.push(v)
		case OpGetClassConst:
			classSym := f.readU32()
			nameSym := f.readU32()
			className := constString(f.Chunk, classSym)
			name := constString(f.Chunk, nameSym)
			f.push(m.getClassConst(className, name))

		case OpThrow:
			v := f.pop()
			if m.handleThrow(f, v) {
				continue
			}
			return value.Value{}, &RuntimeError{Message: "uncaught exception", Thrown: &v}

		case OpYield:
			v := f.pop()
			if f.gen == nil {
				// Unreachable in practice: only a chunk compiled with
				// IsGenerator emits OpYield, and runFrame always wraps such
				// a chunk's frame in a Generator before it ever executes.
				return v, &yieldSignal{Value: v}
			}
			key := value.Int(f.gen.autoKey)
			f.gen.autoKey++
			f.push(f.gen.yieldOne(key, v))

		case OpYieldFrom:
			v := f.pop()
			if f.gen == nil {
				f.push(v)
				continue
			}
			it := m.newIterator(v)
			for m.iterAdvance(it) {
				f.gen.yieldOne(m.iterKey(it), m.iterValue(it))
			}
			ret := value.Null()
			if inner, ok := generatorFromValue(v, m.Heap); ok {
				ret = inner.retVal
			}
			f.push(ret)

		case OpCastInt:
			f.push(value.Int(f.pop().ToInt()))
		case OpCastFloat:
			f.push(value.Float(f.pop().ToFloat()))
		case OpCastString:
			f.push(value.String(m.toPHPString(f.pop())))
		case OpCastBool:
			f.push(value.Bool(f.pop().ToBool()))
		case OpCastArray:
			v := f.pop()
			if v.Kind == value.KindArray {
				f.push(v)
			} else {
				arr := value.NewArrayData()
				h := m.Heap.Alloc(v)
				arr.Push(h)
				f.push(value.Array(arr))
			}

		case OpCheckType:
			sym := f.readU32()
			typeHint := constString(f.Chunk, sym)
			v := f.pop()
			if err := m.checkType(v, typeHint); err != nil {
				return value.Value{}, err
			}
			f.push(v)
		case OpCoerceType:
			sym := f.readU32()
			typeHint := constString(f.Chunk, sym)
			v := f.pop()
			coerced, err := m.coerceType(v, typeHint)
			if err != nil {
				return value.Value{}, err
			}
			f.push(coerced)
		case OpIsset:
			n := f.readU16()
			args := f.popN(int(n))
			ok := true
			for _, a := range args {
				if a.Kind == value.KindNull {
					ok = false
				}
			}
			f.push(value.Bool(ok))
		case OpEcho:
			v := f.pop()
			m.echo(m.toPHPString(v))

		case OpSuppressErrorsEnter:
			m.errorSuppressDepth++
			if m.Reporter != nil {
				m.Reporter.EnterSuppress()
			}
		case OpSuppressErrorsExit:
			if m.errorSuppressDepth > 0 {
				m.errorSuppressDepth--
			}
			if m.Reporter != nil {
				m.Reporter.ExitSuppress()
			}

		default:
			return value.Value{}, m.fatalf("vm: unimplemented opcode %s", op)
		}
	}
	if len(f.Stack) > 0 {
		return f.pop(), nil
	}
	return value.Null(), nil
}

// yieldSignal is a sentinel "error" carrying a yielded value back through
// exec's normal return path; generator.go's driver recognizes and consumes
// it rather than surfacing it as a real failure.
type yieldSignal struct {
	Value value.Value
}

func (y *yieldSignal) Error() string { return "unhandled generator yield" }

func (f *Frame) readU8() byte {
	b := f.Chunk.Code[f.PC]
	f.PC++
	return b
}

func (f *Frame) readU16() uint16 {
	v := binary.LittleEndian.Uint16(f.Chunk.Code[f.PC:])
	f.PC += 2
	return v
}

func (f *Frame) readU32() uint32 {
	v := binary.LittleEndian.Uint32(f.Chunk.Code[f.PC:])
	f.PC += 4
	return v
}

func (f *Frame) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	start := len(f.Stack) - n
	args := append([]value.Value(nil), f.Stack[start:]...)
	f.Stack = f.Stack[:start]
	return args
}

func constString(chunk *CodeChunk, idx uint32) string {
	v := chunk.Constants[idx]
	if v.Kind != value.KindString {
		return ""
	}
	return string(*v.Str)
}

func negate(v value.Value) value.Value {
	if v.Kind == value.KindFloat {
		return value.Float(-v.Float)
	}
	if v.Kind == value.KindInt {
		return value.Int(-v.Int)
	}
	if v.Kind == value.KindString {
		if _, isFloat, ok := value.LeadingNumericPrefix(*v.Str); ok && isFloat {
			return value.Float(-v.ToFloat())
		}
	}
	return value.Int(-v.ToInt())
}

func addOne(v value.Value, delta int64) value.Value {
	if v.Kind == value.KindFloat {
		return value.Float(v.Float + float64(delta))
	}
	if v.Kind == value.KindNull && delta > 0 {
		return value.Int(1)
	}
	return value.Int(v.ToInt() + delta)
}
