// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"math"

	"github.com/probechain/gophp/errs"
	"github.com/probechain/gophp/value"
)

// binaryOp evaluates one of the arithmetic/bitwise/concat opcodes against
// two already-popped operands, applying PHP's numeric type-juggling rules:
// numeric strings participate as numbers, bool/null coerce, and the result
// is int unless either operand is float or the operation always produces
// one (division, exponentiation). Modulo always converts both operands to
// int and produces an int.
func (m *Machine) binaryOp(op Opcode, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case OpConcat:
		return value.String(append(append([]byte{}, m.toPHPString(lhs)...), m.toPHPString(rhs)...)), nil

	case OpBitAnd:
		return value.Int(lhs.ToInt() & rhs.ToInt()), nil
	case OpBitOr:
		return value.Int(lhs.ToInt() | rhs.ToInt()), nil
	case OpBitXor:
		return value.Int(lhs.ToInt() ^ rhs.ToInt()), nil
	case OpShl:
		return value.Int(lhs.ToInt() << uint(rhs.ToInt())), nil
	case OpShr:
		return value.Int(lhs.ToInt() >> uint(rhs.ToInt())), nil
	}

	// $a + $b on two arrays is a key-preserving union, not numeric addition.
	if op == OpAdd && lhs.Kind == value.KindArray && rhs.Kind == value.KindArray {
		return value.Array(value.Union(lhs.Arr, rhs.Arr)), nil
	}

	if op == OpDiv && rhs.ToFloat() == 0 {
		m.report(errs.Warning, "Division by zero")
		return value.Float(math.Inf(1)), nil
	}
	if op == OpMod && rhs.ToInt() == 0 {
		m.report(errs.Warning, "Modulo by zero")
		return value.Bool(false), nil
	}

	alwaysFloat := op == OpDiv || op == OpPow
	needsFloat := alwaysFloat || lhs.Kind == value.KindFloat || rhs.Kind == value.KindFloat

	if !needsFloat {
		a, b := lhs.ToInt(), rhs.ToInt()
		switch op {
		case OpAdd:
			if r, ok := addOverflows(a, b); ok {
				return value.Int(r), nil
			}
			needsFloat = true
		case OpSub:
			if r, ok := subOverflows(a, b); ok {
				return value.Int(r), nil
			}
			needsFloat = true
		case OpMul:
			if r, ok := mulOverflows(a, b); ok {
				return value.Int(r), nil
			}
			needsFloat = true
		case OpMod:
			return value.Int(a % b), nil
		}
	}

	af, bf := lhs.ToFloat(), rhs.ToFloat()
	switch op {
	case OpAdd:
		return value.Float(af + bf), nil
	case OpSub:
		return value.Float(af - bf), nil
	case OpMul:
		return value.Float(af * bf), nil
	case OpDiv:
		return value.Float(af / bf), nil
	case OpPow:
		return value.Float(math.Pow(af, bf)), nil
	case OpMod:
		return value.Int(lhs.ToInt() % rhs.ToInt()), nil
	default:
		return value.Value{}, m.fatalf("vm: unhandled arithmetic opcode %s", op)
	}
}

// mulOverflows reports whether a*b fits in an int64, returning the product
// when it does. PHP silently promotes an overflowing int multiply to float.
func mulOverflows(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

// addOverflows reports whether a+b fits in an int64, returning the sum when
// it does. PHP silently promotes an overflowing int add to float.
func addOverflows(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

// subOverflows reports whether a-b fits in an int64, returning the
// difference when it does. PHP silently promotes an overflowing int
// subtract to float.
func subOverflows(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}
