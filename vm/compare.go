// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// compareOp evaluates one of the comparison opcodes, dispatching strict
// (===, !==) comparisons to value.Equal and everything else to the
// loose-equality/ordering rules below.
func (m *Machine) compareOp(op Opcode, lhs, rhs value.Value) value.Value {
	switch op {
	case OpIdentical:
		return value.Bool(value.Equal(lhs, rhs))
	case OpNotIdentical:
		return value.Bool(!value.Equal(lhs, rhs))
	case OpEqual:
		return value.Bool(looseEquals(lhs, rhs))
	case OpNotEqual:
		return value.Bool(!looseEquals(lhs, rhs))
	case OpSpaceship:
		return value.Int(compareOrder(lhs, rhs))
	case OpLess:
		return value.Bool(compareOrder(lhs, rhs) < 0)
	case OpLessEqual:
		return value.Bool(compareOrder(lhs, rhs) <= 0)
	case OpGreater:
		return value.Bool(compareOrder(lhs, rhs) > 0)
	case OpGreaterEqual:
		return value.Bool(compareOrder(lhs, rhs) >= 0)
	default:
		return value.Bool(false)
	}
}

// looseEquals implements PHP's "==" type-juggling equality.
func looseEquals(a, b value.Value) bool {
	switch {
	case a.Kind == value.KindNull && b.Kind == value.KindNull:
		return true
	case a.Kind == value.KindBool || b.Kind == value.KindBool:
		return a.ToBool() == b.ToBool()
	case a.Kind == value.KindNull:
		return !b.ToBool()
	case b.Kind == value.KindNull:
		return !a.ToBool()
	case a.Kind == value.KindArray && b.Kind == value.KindArray:
		return arraysLooseEqual(a.Arr, b.Arr)
	case a.Kind == value.KindArray || b.Kind == value.KindArray:
		return false
	case a.Kind == value.KindString && b.Kind == value.KindString:
		return string(*a.Str) == string(*b.Str)
	case isNumeric(a) && isNumeric(b):
		return a.ToFloat() == b.ToFloat()
	default:
		return a.ToFloat() == b.ToFloat()
	}
}

func isNumeric(v value.Value) bool {
	return v.Kind == value.KindInt || v.Kind == value.KindFloat
}

func arraysLooseEqual(a, b *value.ArrayData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Each(func(k value.ArrayKey, ah value.Handle) bool {
		_ = ah
		if _, ok := b.Get(k); !ok {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// compareOrder implements PHP's "<=>" three-way ordering used by all the
// relational opcodes.
func compareOrder(a, b value.Value) int64 {
	switch {
	case a.Kind == value.KindInt && b.Kind == value.KindInt:
		return orderInt(a.Int, b.Int)
	case isNumeric(a) && isNumeric(b):
		return orderFloat(a.ToFloat(), b.ToFloat())
	case a.Kind == value.KindString && b.Kind == value.KindString:
		return orderBytes(*a.Str, *b.Str)
	case a.Kind == value.KindNull && b.Kind == value.KindNull:
		return 0
	case a.Kind == value.KindBool || b.Kind == value.KindBool || a.Kind == value.KindNull || b.Kind == value.KindNull:
		return orderBool(a.ToBool(), b.ToBool())
	case a.Kind == value.KindArray && b.Kind == value.KindArray:
		return orderInt(int64(a.Arr.Len()), int64(b.Arr.Len()))
	default:
		return orderFloat(a.ToFloat(), b.ToFloat())
	}
}

func orderInt(a, b int64) int64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderFloat(a, b float64) int64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderBool(a, b bool) int64 {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func orderBytes(a, b []byte) int64 {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}
