// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"strings"

	"github.com/probechain/gophp/value"
)

// checkType enforces a declared parameter or return type hint against v,
// honoring a leading "?" nullable marker and "|"-separated unions. An empty
// hint (no declaration) always passes. Never coerces; callers that want
// weak-mode scalar coercion use coerceType instead.
func (m *Machine) checkType(v value.Value, hint string) error {
	if hint == "" {
		return nil
	}
	nullable := strings.HasPrefix(hint, "?")
	hint = strings.TrimPrefix(hint, "?")
	if nullable && v.Kind == value.KindNull {
		return nil
	}
	for _, alt := range strings.Split(hint, "|") {
		if m.matchesType(v, strings.TrimSpace(alt)) {
			return nil
		}
	}
	return m.fatalf("must be of type %s, %s given", hint, v.TypeName())
}

// coerceType is checkType's weak-mode counterpart (spec's CheckType/
// CoerceType opcode pair): if v already matches hint it is returned
// unchanged; otherwise, unless the *calling* frame's file declared
// strict_types=1 (PHP's strict-mode flag is evaluated at the call site, not
// the callee's declaration), a scalar coercion is attempted before failing.
func (m *Machine) coerceType(v value.Value, hint string) (value.Value, error) {
	if hint == "" {
		return v, nil
	}
	nullable := strings.HasPrefix(hint, "?")
	bare := strings.TrimPrefix(hint, "?")
	if nullable && v.Kind == value.KindNull {
		return v, nil
	}
	alts := strings.Split(bare, "|")
	for _, alt := range alts {
		if m.matchesType(v, strings.TrimSpace(alt)) {
			return v, nil
		}
	}
	if !m.callerIsStrict() {
		for _, alt := range alts {
			if cv, ok := coerceScalar(v, strings.TrimSpace(alt)); ok {
				return cv, nil
			}
		}
	}
	return value.Value{}, m.fatalf("must be of type %s, %s given", hint, v.TypeName())
}

// callerIsStrict reports whether the frame that called into the currently
// executing one belongs to a file compiled under declare(strict_types=1).
// With no caller (top-level script) weak coercion applies, matching PHP's
// default.
func (m *Machine) callerIsStrict() bool {
	if len(m.frames) < 2 {
		return false
	}
	caller := m.frames[len(m.frames)-2]
	return caller.Chunk != nil && caller.Chunk.StrictTypes
}

// coerceScalar attempts PHP's weak-mode parameter coercions: numeric
// strings and bools convert to int/float, ints/floats/bools convert to
// string, and scalars convert to bool. Arrays, objects, and resources never
// coerce into a scalar hint.
func coerceScalar(v value.Value, t string) (value.Value, bool) {
	switch strings.ToLower(t) {
	case "int":
		switch v.Kind {
		case value.KindFloat:
			return value.Int(int64(v.Float)), true
		case value.KindBool:
			return value.Int(v.ToInt()), true
		case value.KindString:
			if _, _, ok := value.LeadingNumericPrefix(*v.Str); ok {
				return value.Int(v.ToInt()), true
			}
		}
	case "float":
		switch v.Kind {
		case value.KindInt, value.KindBool:
			return value.Float(v.ToFloat()), true
		case value.KindString:
			if _, _, ok := value.LeadingNumericPrefix(*v.Str); ok {
				return value.Float(v.ToFloat()), true
			}
		}
	case "string":
		switch v.Kind {
		case value.KindInt, value.KindFloat, value.KindBool:
			return value.String(v.ToPHPString()), true
		}
	case "bool":
		switch v.Kind {
		case value.KindInt, value.KindFloat, value.KindString:
			return value.Bool(v.ToBool()), true
		}
	}
	return value.Value{}, false
}

func (m *Machine) matchesType(v value.Value, t string) bool {
	switch strings.ToLower(t) {
	case "", "mixed":
		return true
	case "int":
		return v.Kind == value.KindInt
	case "float":
		return v.Kind == value.KindFloat || v.Kind == value.KindInt
	case "string":
		return v.Kind == value.KindString
	case "bool":
		return v.Kind == value.KindBool
	case "array":
		return v.Kind == value.KindArray || v.Kind == value.KindConstArray
	case "object":
		return v.Kind == value.KindObject
	case "null":
		return v.Kind == value.KindNull
	case "callable":
		return v.Kind == value.KindObject || v.Kind == value.KindString
	case "iterable":
		return v.Kind == value.KindArray || v.Kind == value.KindConstArray || v.Kind == value.KindObject
	case "self", "static":
		return v.Kind == value.KindObject
	default:
		return m.isInstanceOf(v, t)
	}
}
