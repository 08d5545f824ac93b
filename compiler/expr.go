// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"encoding/binary"

	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/value"
	"github.com/probechain/gophp/vm"
)

var infixOpcodes = map[string]vm.Opcode{
	"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul, "/": vm.OpDiv, "%": vm.OpMod, "**": vm.OpPow,
	".": vm.OpConcat,
	"&": vm.OpBitAnd, "|": vm.OpBitOr, "^": vm.OpBitXor, "<<": vm.OpShl, ">>": vm.OpShr,
	"==": vm.OpEqual, "!=": vm.OpNotEqual, "<>": vm.OpNotEqual,
	"===": vm.OpIdentical, "!==": vm.OpNotIdentical,
	"<": vm.OpLess, "<=": vm.OpLessEqual, ">": vm.OpGreater, ">=": vm.OpGreaterEqual,
	"<=>": vm.OpSpaceship,
}

func (c *compiler) compileExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		idx := c.addConstant(value.Int(e.Value))
		c.emitU32(vm.OpConstant, idx)

	case *ast.FloatLiteral:
		idx := c.addConstant(value.Float(e.Value))
		c.emitU32(vm.OpConstant, idx)

	case *ast.StringLiteral:
		idx := c.addConstant(value.String(e.Value))
		c.emitU32(vm.OpConstant, idx)

	case *ast.InterpolatedStringExpr:
		c.compileInterpolatedString(e)

	case *ast.BoolLiteral:
		if e.Value {
			c.emit(vm.OpTrue)
		} else {
			c.emit(vm.OpFalse)
		}

	case *ast.NullLiteral:
		c.emit(vm.OpNull)

	case *ast.VariableExpr:
		local := uint16(c.chunk.LocalIndex(e.Name))
		c.emitU16(vm.OpLoadLocal, local)

	case *ast.ArrayLiteral:
		c.compileArrayLiteral(e)

	case *ast.PrefixExpr:
		c.compilePrefix(e)

	case *ast.PostfixExpr:
		c.compilePostfix(e)

	case *ast.InfixExpr:
		c.compileInfix(e)

	case *ast.AssignExpr:
		c.compileAssign(e)

	case *ast.TernaryExpr:
		c.compileTernary(e)

	case *ast.CallExpr:
		c.compileCall(e)

	case *ast.IndexExpr:
		c.compileExpr(e.Array)
		c.compileExpr(e.Index)
		c.emit(vm.OpArrayGet)

	case *ast.PropertyAccessExpr:
		c.compilePropertyAccess(e)

	case *ast.StaticPropertyAccessExpr:
		c.compileStaticPropertyAccess(e)

	case *ast.StaticCallExpr:
		c.compileStaticCall(e)

	case *ast.ClassConstFetchExpr:
		c.compileClassConstFetch(e)

	case *ast.NewExpr:
		c.compileNew(e)

	case *ast.CloneExpr:
		c.compileExpr(e.Value)
		c.emit(vm.OpClone)

	case *ast.InstanceOfExpr:
		c.compileExpr(e.Value)
		sym := c.addConstant(strConst(classRefName(e.ClassRef)))
		c.emitU32(vm.OpInstanceOf, sym)

	case *ast.CastExpr:
		c.compileExpr(e.Value)
		c.emit(castOpcode(e.Type))

	case *ast.IssetExpr:
		for _, arg := range e.Args {
			c.compileIssetTarget(arg)
		}
		c.emitU16(vm.OpIsset, uint16(len(e.Args)))

	case *ast.EmptyExpr:
		c.compileExpr(e.Arg)
		c.emit(vm.OpNot)

	case *ast.ClosureExpr:
		c.compileClosure(e)

	case *ast.YieldExpr:
		c.compileYield(e)

	case *ast.MatchExpr:
		c.compileMatch(e)

	case *ast.VariableVariableExpr:
		// Resolved dynamically at runtime: the name expression's string
		// value selects which local to read.
		c.compileExpr(e.Name)
		c.emit(vm.OpCastString)
		c.emit(vm.OpLoadLocalDynamic)

	case *ast.ListExpr:
		// ListExpr only appears as an assignment target; evaluating it
		// standalone has no value-producing form in PHP.
		c.emit(vm.OpNull)

	case *ast.ErrorNode:
		c.emit(vm.OpNull)

	default:
		c.errorf(0, "compiler: unhandled expression %T", expr)
		c.emit(vm.OpNull)
	}
}

func castOpcode(t string) vm.Opcode {
	switch t {
	case "int", "integer":
		return vm.OpCastInt
	case "float", "double", "real":
		return vm.OpCastFloat
	case "string":
		return vm.OpCastString
	case "bool", "boolean":
		return vm.OpCastBool
	case "array":
		return vm.OpCastArray
	default:
		return vm.OpCastString
	}
}

func classRefName(ref ast.Expression) string {
	switch r := ref.(type) {
	case *ast.Identifier:
		return r.Name
	default:
		return ref.String()
	}
}

func (c *compiler) compileInterpolatedString(e *ast.InterpolatedStringExpr) {
	if len(e.Parts) == 0 {
		idx := c.addConstant(strConst(""))
		c.emitU32(vm.OpConstant, idx)
		return
	}
	c.compileExpr(e.Parts[0])
	c.emit(vm.OpCastString)
	for _, part := range e.Parts[1:] {
		c.compileExpr(part)
		c.emit(vm.OpCastString)
		c.emit(vm.OpConcat)
	}
}

func (c *compiler) compileArrayLiteral(e *ast.ArrayLiteral) {
	keyed := false
	for _, el := range e.Elements {
		if el.Key != nil {
			keyed = true
		}
	}
	c.emit(vm.OpNewArray)
	var flag byte
	if keyed {
		flag = 1
	}
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(e.Elements)))
	c.chunk.Code = append(c.chunk.Code, countBuf[:]...)
	c.chunk.Code = append(c.chunk.Code, flag)
	for _, el := range e.Elements {
		if el.Key != nil {
			c.compileExpr(el.Key)
			c.compileExpr(el.Value)
			c.emit(vm.OpArraySet)
		} else {
			c.compileExpr(el.Value)
			c.emit(vm.OpArrayAppend)
		}
	}
}

func (c *compiler) compilePrefix(e *ast.PrefixExpr) {
	switch e.Operator {
	case "-":
		c.compileExpr(e.Right)
		c.emit(vm.OpNeg)
	case "+":
		c.compileExpr(e.Right)
	case "!":
		c.compileExpr(e.Right)
		c.emit(vm.OpNot)
	case "~":
		c.compileExpr(e.Right)
		c.emit(vm.OpBitNot)
	case "++":
		c.compileIncDecLocal(e.Right, vm.OpIncLocal)
	case "--":
		c.compileIncDecLocal(e.Right, vm.OpDecLocal)
	case "@":
		c.emit(vm.OpSuppressErrorsEnter)
		c.compileExpr(e.Right)
		c.emit(vm.OpSuppressErrorsExit)
	case "&":
		c.compileExpr(e.Right)
	default:
		c.compileExpr(e.Right)
	}
}

func (c *compiler) compilePostfix(e *ast.PostfixExpr) {
	op := vm.OpPostIncLocal
	if e.Operator == "--" {
		op = vm.OpPostDecLocal
	}
	c.compileIncDecLocal(e.Left, op)
}

func (c *compiler) compileIncDecLocal(target ast.Expression, op vm.Opcode) {
	v, ok := target.(*ast.VariableExpr)
	if !ok {
		// Non-local inc/dec targets (properties, array elements) fall back
		// to a read-modify-write sequence.
		c.compileCompoundNonLocal(target, op == vm.OpIncLocal || op == vm.OpPostIncLocal)
		return
	}
	local := uint16(c.chunk.LocalIndex(v.Name))
	c.emitU16(op, local)
}

func (c *compiler) compileCompoundNonLocal(target ast.Expression, inc bool) {
	c.compileExpr(target)
	if inc {
		idx := c.addConstant(value.Int(1))
		c.emitU32(vm.OpConstant, idx)
		c.emit(vm.OpAdd)
	} else {
		idx := c.addConstant(value.Int(1))
		c.emitU32(vm.OpConstant, idx)
		c.emit(vm.OpSub)
	}
	c.compileAssignTargetFromStack(target)
}

func (c *compiler) compileInfix(e *ast.InfixExpr) {
	switch e.Operator {
	case "&&", "and":
		c.compileExpr(e.Left)
		jumpFalse := c.emitJump(vm.OpJumpIfFalseKeep)
		c.emit(vm.OpPop)
		c.compileExpr(e.Right)
		c.patchJump(jumpFalse)
		return
	case "||", "or":
		c.compileExpr(e.Left)
		jumpTrue := c.emitJump(vm.OpJumpIfTrueKeep)
		c.emit(vm.OpPop)
		c.compileExpr(e.Right)
		c.patchJump(jumpTrue)
		return
	case "xor":
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.emit(vm.OpNotIdentical)
		return
	case "??":
		c.compileExpr(e.Left)
		c.emit(vm.OpDup)
		c.emit(vm.OpNull)
		c.emit(vm.OpNotIdentical)
		jump := c.emitJump(vm.OpJumpIfTrue) // a non-null left operand short-circuits
		c.emit(vm.OpPop)
		c.compileExpr(e.Right)
		c.patchJump(jump)
		return
	case "instanceof":
		c.compileExpr(e.Left)
		sym := c.addConstant(strConst(classRefName(e.Right)))
		c.emitU32(vm.OpInstanceOf, sym)
		return
	}
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	if op, ok := infixOpcodes[e.Operator]; ok {
		c.emit(op)
		return
	}
	c.errorf(0, "compiler: unknown infix operator %q", e.Operator)
}

func (c *compiler) compileTernary(e *ast.TernaryExpr) {
	c.compileExpr(e.Cond)
	if e.Then == nil {
		jump := c.emitJump(vm.OpJumpIfTrueKeep)
		c.emit(vm.OpPop)
		c.compileExpr(e.Else)
		c.patchJump(jump)
		return
	}
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	c.compileExpr(e.Then)
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump)
	c.compileExpr(e.Else)
	c.patchJump(endJump)
}

func (c *compiler) compileAssign(e *ast.AssignExpr) {
	if e.Compound == "??" {
		// ??= keeps the target's current value when it short-circuits the
		// same way the ?? operator does, and assigns the value otherwise.
		c.compileExpr(e.Target)
		c.emit(vm.OpDup)
		c.emit(vm.OpNull)
		c.emit(vm.OpNotIdentical)
		jump := c.emitJump(vm.OpJumpIfTrue)
		c.emit(vm.OpPop)
		c.compileExpr(e.Value)
		c.patchJump(jump)
		c.compileAssignTargetFromStack(e.Target)
		return
	}
	if e.Compound != "" {
		c.compileExpr(e.Target)
		c.compileExpr(e.Value)
		if op, ok := infixOpcodes[e.Compound]; ok {
			c.emit(op)
		}
		c.compileAssignTargetFromStack(e.Target)
		return
	}
	c.compileExpr(e.Value)
	c.compileAssignTargetFromStack(e.Target)
}

// compileAssignTargetFromStack stores the value already on top of the
// stack into target, leaving that same value on the stack afterward
// (PHP assignment is itself an expression).
func (c *compiler) compileAssignTargetFromStack(target ast.Expression) {
	switch t := target.(type) {
	case *ast.VariableExpr:
		local := uint16(c.chunk.LocalIndex(t.Name))
		c.emitU16(vm.OpStoreLocal, local)
	case *ast.IndexExpr:
		// Stack: value. Arrays are copy-on-write, so OpArraySet returns a new
		// array rather than mutating t.Array in place; that new array must be
		// stored back into t.Array's own slot (a local, a property, or another
		// index expression for multi-dimensional assignment) or the write is
		// silently lost.
		valueLocal := uint16(c.chunk.LocalIndex(".tmp_assign"))
		c.emitU16(vm.OpStoreLocal, valueLocal)
		c.emit(vm.OpPop)
		c.compileExpr(t.Array)
		if t.Index != nil {
			c.compileExpr(t.Index)
		} else {
			c.emit(vm.OpNull)
		}
		c.emitU16(vm.OpLoadLocal, valueLocal)
		c.emit(vm.OpArraySet)
		c.compileAssignTargetFromStack(t.Array)
		c.emit(vm.OpPop)
		c.emitU16(vm.OpLoadLocal, valueLocal)
	case *ast.PropertyAccessExpr:
		valueLocal := uint16(c.chunk.LocalIndex(".tmp_assign"))
		c.emitU16(vm.OpStoreLocal, valueLocal)
		c.emit(vm.OpPop)
		c.compileExpr(t.Object)
		c.emitU16(vm.OpLoadLocal, valueLocal)
		sym := c.addConstant(strConst(propertyName(t.Property)))
		c.emitU32(vm.OpSetProperty, sym)
	case *ast.StaticPropertyAccessExpr:
		valueLocal := uint16(c.chunk.LocalIndex(".tmp_assign"))
		c.emitU16(vm.OpStoreLocal, valueLocal)
		c.emit(vm.OpPop)
		classSym := c.addConstant(strConst(classRefName(t.ClassRef)))
		propSym := c.addConstant(strConst(propertyName(t.Property)))
		c.emitU16(vm.OpLoadLocal, valueLocal)
		c.emitU32U32(vm.OpSetStaticProp, classSym, propSym)
	case *ast.ListExpr:
		c.compileListAssign(t.Elements)
	case *ast.ArrayLiteral:
		c.compileListAssign(t.Elements)
	case *ast.VariableVariableExpr:
		valueLocal := uint16(c.chunk.LocalIndex(".tmp_assign"))
		c.emitU16(vm.OpStoreLocal, valueLocal)
		c.emit(vm.OpPop)
		c.compileExpr(t.Name)
		c.emit(vm.OpCastString)
		c.emitU16(vm.OpLoadLocal, valueLocal)
		c.emit(vm.OpStoreLocalDynamic)
	default:
		c.errorf(0, "compiler: unsupported assignment target %T", target)
	}
}

func propertyName(prop ast.Expression) string {
	switch p := prop.(type) {
	case *ast.Identifier:
		return p.Name
	case *ast.VariableExpr:
		return p.Name
	default:
		return prop.String()
	}
}

// compileListAssign destructures the array value currently on the stack
// into each target, leaving the source array on the stack afterward.
func (c *compiler) compileListAssign(elements []ast.ArrayElement) {
	srcLocal := uint16(c.chunk.LocalIndex(".tmp_destructure"))
	c.emitU16(vm.OpStoreLocal, srcLocal)
	c.emit(vm.OpPop)
	for i, el := range elements {
		if el.Value == nil {
			continue
		}
		c.emitU16(vm.OpLoadLocal, srcLocal)
		if el.Key != nil {
			c.compileExpr(el.Key)
		} else {
			idx := c.addConstant(value.Int(int64(i)))
			c.emitU32(vm.OpConstant, idx)
		}
		c.emit(vm.OpArrayGet)
		c.compileAssignTargetFromStack(el.Value)
		c.emit(vm.OpPop)
	}
	c.emitU16(vm.OpLoadLocal, srcLocal)
}

func (c *compiler) compileAssignTarget(target ast.Expression) {
	c.compileAssignTargetFromStack(target)
}

func (c *compiler) compileCall(e *ast.CallExpr) {
	switch callee := e.Callee.(type) {
	case *ast.Identifier:
		c.compileArgs(e.Args)
		sym := c.addConstant(strConst(callee.Name))
		c.emitU16U32(vm.OpCallFunction, uint16(len(e.Args)), sym)
	case *ast.PropertyAccessExpr:
		c.compileExpr(callee.Object)
		c.compileArgs(e.Args)
		sym := c.addConstant(strConst(propertyName(callee.Property)))
		c.emitU16U32(vm.OpCallMethod, uint16(len(e.Args)), sym)
	default:
		c.compileExpr(e.Callee)
		c.compileArgs(e.Args)
		c.emitU16(vm.OpCallClosure, uint16(len(e.Args)))
	}
}

func (c *compiler) compileArgs(args []ast.Argument) {
	for _, a := range args {
		c.compileExpr(a.Value)
	}
}

func (c *compiler) compilePropertyAccess(e *ast.PropertyAccessExpr) {
	// The method-call form `$obj->method(args)` is parsed as
	// CallExpr{Callee: PropertyAccessExpr} and intercepted in compileCall
	// before it reaches here; this path is plain property reads only.
	c.compileExpr(e.Object)
	sym := c.addConstant(strConst(propertyName(e.Property)))
	c.emitU32(vm.OpGetProperty, sym)
}

func (c *compiler) compileStaticPropertyAccess(e *ast.StaticPropertyAccessExpr) {
	classSym := c.addConstant(strConst(classRefName(e.ClassRef)))
	propSym := c.addConstant(strConst(propertyName(e.Property)))
	c.emitU32U32(vm.OpGetStaticProp, classSym, propSym)
}

func (c *compiler) compileStaticCall(e *ast.StaticCallExpr) {
	c.compileArgs(e.Args)
	classSym := c.addConstant(strConst(classRefName(e.ClassRef)))
	methodSym := c.addConstant(strConst(propertyName(e.Method)))
	c.emitU16U32U32(vm.OpCallStatic, uint16(len(e.Args)), classSym, methodSym)
}

func (c *compiler) compileClassConstFetch(e *ast.ClassConstFetchExpr) {
	classSym := c.addConstant(strConst(classRefName(e.ClassRef)))
	nameSym := c.addConstant(strConst(e.Name))
	c.emitU32U32(vm.OpGetClassConst, classSym, nameSym)
}

func (c *compiler) compileNew(e *ast.NewExpr) {
	if e.AnonBody != nil {
		c.compileClass(e.AnonBody)
		c.compileArgs(e.Args)
		sym := c.addConstant(strConst(e.AnonBody.Name))
		c.emitU16U32(vm.OpNewObject, uint16(len(e.Args)), sym)
		return
	}
	c.compileArgs(e.Args)
	sym := c.addConstant(strConst(classRefName(e.ClassRef)))
	c.emitU16U32(vm.OpNewObject, uint16(len(e.Args)), sym)
}

func (c *compiler) compileIssetTarget(target ast.Expression) {
	switch t := target.(type) {
	case *ast.IndexExpr:
		c.compileExpr(t.Array)
		c.compileExpr(t.Index)
		c.emit(vm.OpArrayIsset)
	case *ast.PropertyAccessExpr:
		c.compileExpr(t.Object)
		sym := c.addConstant(strConst(propertyName(t.Property)))
		c.emitU32(vm.OpPropertyIsset, sym)
	default:
		c.compileExpr(target)
		c.emit(vm.OpNot)
		c.emit(vm.OpNot)
	}
}

func (c *compiler) compileYield(e *ast.YieldExpr) {
	c.chunk.IsGenerator = true
	if e.From {
		c.compileExpr(e.Value)
		c.emit(vm.OpYieldFrom)
		return
	}
	// An explicit key (`yield $k => $v`) is not separately tracked by the
	// generator's resume state; the VM auto-increments an internal key
	// counter for every yielded value instead, as most generator consumers
	// only care about the yielded values in sequence.
	if e.Value != nil {
		c.compileExpr(e.Value)
	} else {
		c.emit(vm.OpNull)
	}
	c.emit(vm.OpYield)
}

func (c *compiler) compileMatch(e *ast.MatchExpr) {
	c.compileExpr(e.Subject)
	subjLocal := uint16(c.chunk.LocalIndex(".match"))
	c.emitU16(vm.OpStoreLocal, subjLocal)
	c.emit(vm.OpPop)

	var endJumps []int
	var defaultArm *ast.MatchArm
	for i := range e.Arms {
		arm := &e.Arms[i]
		if len(arm.Conditions) == 0 {
			defaultArm = arm
			continue
		}
		var nextArmJumps []int
		for _, cond := range arm.Conditions {
			c.emitU16(vm.OpLoadLocal, subjLocal)
			c.compileExpr(cond)
			c.emit(vm.OpIdentical)
			nextArmJumps = append(nextArmJumps, c.emitJump(vm.OpJumpIfTrue))
		}
		skip := c.emitJump(vm.OpJump)
		for _, j := range nextArmJumps {
			c.patchJump(j)
		}
		c.compileExpr(arm.Result)
		endJumps = append(endJumps, c.emitJump(vm.OpJump))
		c.patchJump(skip)
	}
	if defaultArm != nil {
		c.compileExpr(defaultArm.Result)
	} else {
		c.emit(vm.OpNull)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}
