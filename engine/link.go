// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package engine

import (
	"strings"

	"github.com/probechain/gophp/compiler"
	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/value"
	"github.com/probechain/gophp/vm"
)

// Run compiles src under name, links its declarations into ctx, and
// executes its top-level chunk. Flushes the output stack to Sink before
// returning, matching a PHP script's implicit end-of-request flush.
func (c *Context) Run(name string, src []byte) (value.Value, error) {
	unit, err := CompileSource(name, src)
	if err != nil {
		return value.Value{}, err
	}
	c.LinkUnit(unit)
	if c.Machine.Reporter != nil {
		c.Machine.Reporter.File = name
	}
	result, runErr := c.Machine.Run(unit.Main)
	c.Output.FlushAll()
	c.Resources.Teardown()
	return result, runErr
}

// LinkUnit merges a compiled unit's functions and classes into ctx's
// Machine, resolving each class's Parent/Consts/PropDefaults/StaticProps
// from its ast.ClassDecl. Classes may be linked in any order: Parent
// pointers are resolved in a second pass once every ClassRuntime shell
// exists, so forward references to a class declared later in the same
// unit (or extending a native class registered earlier) both work.
func (c *Context) LinkUnit(unit *compiler.Unit) {
	for name, chunk := range unit.Functions {
		c.Machine.Functions[name] = chunk
	}

	for name, info := range unit.Classes {
		if _, exists := c.Machine.Classes[name]; exists {
			continue
		}
		c.Machine.Classes[name] = &vm.ClassRuntime{
			Name:         info.Decl.Name,
			Methods:      map[string]*vm.CodeChunk{},
			Natives:      map[string]vm.NativeHandler{},
			StaticProps:  map[string]value.Value{},
			Consts:       map[string]value.Value{},
			PropDefaults: map[string]value.Value{},
			IsAbstract:   info.Decl.Abstract,
			IsInterface:  info.Decl.Kind == "interface",
		}
	}

	for name, info := range unit.Classes {
		cr := c.Machine.Classes[name]
		for mname, chunk := range info.Methods {
			cr.Methods[mname] = chunk
		}
		if info.Decl.Extends != "" {
			cr.Parent = c.Machine.Classes[strings.ToLower(info.Decl.Extends)]
		}
		for _, prop := range info.Decl.Properties {
			v := evalConstExpr(prop.Default)
			if prop.Static {
				cr.StaticProps[prop.Name] = v
			} else {
				cr.PropDefaults[prop.Name] = v
			}
		}
		for _, cst := range info.Decl.Consts {
			cr.Consts[cst.Name] = evalConstExpr(cst.Value)
		}
	}
}

// evalConstExpr evaluates the small subset of expressions legal in a
// property default or class constant initializer without full engine
// evaluation: scalar literals and negation of one. Anything more dynamic
// (an expression referencing another constant, a binary operation)
// resolves to null; PHP permits richer constant expressions here, but the
// engine doesn't special-case compile-time constant folding beyond this.
func evalConstExpr(e ast.Expression) value.Value {
	switch n := e.(type) {
	case nil:
		return value.Null()
	case *ast.IntLiteral:
		return value.Int(n.Value)
	case *ast.FloatLiteral:
		return value.Float(n.Value)
	case *ast.StringLiteral:
		return value.String(n.Value)
	case *ast.BoolLiteral:
		return value.Bool(n.Value)
	case *ast.NullLiteral:
		return value.Null()
	case *ast.PrefixExpr:
		if n.Operator == "-" {
			inner := evalConstExpr(n.Right)
			if inner.Kind == value.KindInt {
				return value.Int(-inner.Int)
			}
			if inner.Kind == value.KindFloat {
				return value.Float(-inner.Float)
			}
		}
		return value.Null()
	default:
		return value.Null()
	}
}
