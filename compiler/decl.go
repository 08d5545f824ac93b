// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/value"
	"github.com/probechain/gophp/vm"
)

func (c *compiler) compileFunction(d *ast.FunctionDecl) *vm.CodeChunk {
	fc := &compiler{chunk: &vm.CodeChunk{Name: d.Name}, parent: c, unit: c.unit}
	fc.chunk.ReturnType = d.ReturnType
	fc.chunk.ByRefReturn = d.ByRefReturn
	fc.compileParams(d.Params)
	if d.Body != nil {
		fc.compileStmt(d.Body)
	}
	fc.emit(vm.OpReturnNull)
	c.unit.Functions[lowerASCII(d.Name)] = fc.chunk
	c.errors = append(c.errors, fc.errors...)
	return fc.chunk
}

func (c *compiler) compileParams(params []ast.Param) {
	for _, p := range params {
		idx := c.chunk.LocalIndex(p.Name)
		compiled := vm.Param{
			Name:            p.Name,
			TypeHint:        p.TypeHint,
			HasDefault:      p.Default != nil,
			DefaultConstIdx: -1,
			ByRef:           p.ByRef,
			Variadic:        p.Variadic,
			PromoteVis:      p.PromoteVis,
		}
		if p.Default != nil {
			compiled.DefaultConstIdx = int(c.addConstant(literalValue(p.Default)))
		}
		c.chunk.Params = append(c.chunk.Params, compiled)

		if p.TypeHint != "" && !p.Variadic {
			// OpCoerceType enforces the hint, applying PHP's weak-mode scalar
			// coercions (numeric-string/int/float/bool) unless the calling
			// file (not this one) declared strict_types=1 — see
			// Machine.coerceType. The possibly-coerced value is stored back.
			sym := c.addConstant(strConst(p.TypeHint))
			c.emitU16(vm.OpLoadLocal, uint16(idx))
			c.emitU32(vm.OpCoerceType, sym)
			c.emitU16(vm.OpStoreLocal, uint16(idx))
			c.emit(vm.OpPop)
		}

		if p.PromoteVis != "" {
			thisIdx := c.chunk.LocalIndex("this")
			propSym := c.addConstant(strConst(p.Name))
			c.emitU16(vm.OpLoadLocal, uint16(thisIdx))
			c.emitU16(vm.OpLoadLocal, uint16(idx))
			c.emitU32(vm.OpSetProperty, propSym)
			c.emit(vm.OpPop)
		}
	}
}

func literalValue(e ast.Expression) value.Value {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return value.Int(n.Value)
	case *ast.FloatLiteral:
		return value.Float(n.Value)
	case *ast.StringLiteral:
		return value.String(n.Value)
	case *ast.BoolLiteral:
		return value.Bool(n.Value)
	default:
		return value.Null()
	}
}

func (c *compiler) compileClass(d *ast.ClassDecl) {
	info := &ClassInfo{Decl: d, Methods: make(map[string]*vm.CodeChunk)}
	for _, m := range d.Methods {
		mc := &compiler{chunk: &vm.CodeChunk{Name: d.Name + "::" + m.Name}, parent: c, unit: c.unit}
		mc.chunk.IsStatic = m.Static
		mc.chunk.ReturnType = m.ReturnType
		mc.chunk.ByRefReturn = m.ByRefReturn
		if !m.Static {
			mc.chunk.LocalIndex("this")
		}
		mc.compileParams(m.Params)
		if m.Body != nil {
			mc.compileStmt(m.Body)
		}
		mc.emit(vm.OpReturnNull)
		info.Methods[lowerASCII(m.Name)] = mc.chunk
		c.errors = append(c.errors, mc.errors...)
	}
	c.unit.Classes[lowerASCII(d.Name)] = info
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'A' && ch <= 'Z' {
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}

func (c *compiler) compileClosure(e *ast.ClosureExpr) {
	cc := &compiler{chunk: &vm.CodeChunk{Name: "{closure}"}, parent: c, unit: c.unit}
	cc.chunk.ByRefReturn = e.ByRefReturn
	cc.chunk.ReturnType = e.ReturnType
	cc.chunk.IsStatic = e.Static
	for _, u := range e.Uses {
		cc.chunk.UpvalueNames = append(cc.chunk.UpvalueNames, u.Name)
		cc.chunk.LocalIndex(u.Name)
	}
	cc.compileParams(e.Params)
	if e.Body != nil {
		cc.compileStmt(e.Body)
	}
	cc.emit(vm.OpReturnNull)
	c.errors = append(c.errors, cc.errors...)

	tmpl := &vm.ClosureTemplate{Chunk: cc.chunk}
	for _, u := range e.Uses {
		tmpl.Uses = append(tmpl.Uses, vm.ClosureCapture{Name: u.Name, ByRef: u.ByRef})
	}
	idx := uint32(len(c.chunk.Closures))
	c.chunk.Closures = append(c.chunk.Closures, tmpl)
	c.emitU32(vm.OpMakeClosure, idx)
}
