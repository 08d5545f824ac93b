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
	"github.com/probechain/gophp/vm"
)

func (c *compiler) compileStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStmt:
		c.compileExpr(s.Expr)
		c.emit(vm.OpPop)

	case *ast.BlockStmt:
		for _, inner := range s.Statements {
			c.compileStmt(inner)
		}

	case *ast.EchoStmt:
		for _, arg := range s.Args {
			c.compileExpr(arg)
			c.emit(vm.OpEcho)
		}

	case *ast.InlineHTMLStmt:
		idx := c.addConstant(strConst(s.Text))
		c.emitU32(vm.OpConstant, idx)
		c.emit(vm.OpEcho)

	case *ast.IfStmt:
		c.compileIf(s)

	case *ast.WhileStmt:
		c.compileWhile(s)

	case *ast.DoWhileStmt:
		c.compileDoWhile(s)

	case *ast.ForStmt:
		c.compileFor(s)

	case *ast.ForeachStmt:
		c.compileForeach(s)

	case *ast.SwitchStmt:
		c.compileSwitch(s)

	case *ast.BreakStmt:
		c.compileBreak(s)

	case *ast.ContinueStmt:
		c.compileContinue(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			c.compileExpr(s.Value)
			if len(c.tryFinally) > 0 {
				retLocal := uint16(c.chunk.LocalIndex(".try_ret"))
				c.emitU16(vm.OpStoreLocal, retLocal)
				c.emit(vm.OpPop)
				c.emitFinallyDownTo(0)
				c.emitU16(vm.OpLoadLocal, retLocal)
			}
			c.emit(vm.OpReturn)
		} else {
			if len(c.tryFinally) > 0 {
				c.emitFinallyDownTo(0)
			}
			c.emit(vm.OpReturnNull)
		}

	case *ast.ThrowStmt:
		c.compileExpr(s.Value)
		c.emit(vm.OpThrow)

	case *ast.TryStmt:
		c.compileTry(s)

	case *ast.GlobalStmt:
		for _, name := range s.Names {
			sym := c.addConstant(strConst(name))
			c.emitU32(vm.OpLoadGlobal, sym)
			local := uint16(c.chunk.LocalIndex(name))
			c.emitU16(vm.OpStoreLocal, local)
			c.emit(vm.OpPop)
		}

	case *ast.StaticVarStmt:
		c.compileStaticVar(s)

	case *ast.UnsetStmt:
		for _, target := range s.Args {
			c.compileUnsetTarget(target)
		}

	case *ast.DeclareStmt:
		if v, ok := s.Directives["strict_types"]; ok {
			if lit, ok := v.(*ast.IntLiteral); ok && lit.Value == 1 {
				c.chunk.StrictTypes = true
			}
		}
		if s.Body != nil {
			c.compileStmt(s.Body)
		}

	case *ast.GotoStmt, *ast.LabelStmt:
		// goto/label are rare in idiomatic PHP; the bytecode form supports
		// only straight-line and structured control flow today.
		c.errorf(0, "goto/label statements are not yet lowered by the compiler")

	case *ast.DeclStmt:
		c.compileNestedDecl(s.Decl)

	case *ast.ErrorNode:
		// Parser already recorded the syntax error; nothing to emit.

	default:
		c.errorf(0, "compiler: unhandled statement %T", stmt)
	}
}

func (c *compiler) compileNestedDecl(decl ast.Declaration) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		c.compileFunction(d)
	case *ast.ClassDecl:
		c.compileClass(d)
	case *ast.ConstDecl:
		c.compileExpr(d.Value)
		sym := c.addConstant(strConst(d.Name))
		c.emitU32(vm.OpStoreGlobal, sym)
		c.emit(vm.OpPop)
	}
}

func (c *compiler) compileIf(s *ast.IfStmt) {
	c.compileExpr(s.Cond)
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	c.compileStmt(s.Then)
	endJumps := []int{c.emitJump(vm.OpJump)}
	c.patchJump(elseJump)

	for _, ei := range s.ElseIfs {
		c.compileExpr(ei.Cond)
		nextJump := c.emitJump(vm.OpJumpIfFalse)
		c.compileStmt(ei.Then)
		endJumps = append(endJumps, c.emitJump(vm.OpJump))
		c.patchJump(nextJump)
	}

	if s.Else != nil {
		c.compileStmt(s.Else)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

func (c *compiler) pushLoop() {
	c.loopBreaks = append(c.loopBreaks, nil)
	c.loopContinues = append(c.loopContinues, nil)
	c.loopTryDepth = append(c.loopTryDepth, len(c.tryFinally))
}

func (c *compiler) popLoop() ([]int, []int) {
	n := len(c.loopBreaks) - 1
	breaks := c.loopBreaks[n]
	continues := c.loopContinues[n]
	c.loopBreaks = c.loopBreaks[:n]
	c.loopContinues = c.loopContinues[:n]
	c.loopTryDepth = c.loopTryDepth[:n]
	return breaks, continues
}

// emitFinallyDownTo compiles an inline copy of every open try's finally
// block at stack depth >= depth, innermost first, so a return/break/continue
// about to leave those ranges runs them first. Each finally entry is popped
// before it is compiled and restored after, so a return/break/continue
// inside the finally body itself only sees the trys still enclosing it, not
// the one currently running.
func (c *compiler) emitFinallyDownTo(depth int) {
	for len(c.tryFinally) > depth {
		n := len(c.tryFinally) - 1
		fin := c.tryFinally[n]
		c.tryFinally = c.tryFinally[:n]
		c.compileStmt(fin)
		c.tryFinally = append(c.tryFinally, fin)
	}
}

func (c *compiler) addBreak(pos int) {
	n := len(c.loopBreaks) - 1
	c.loopBreaks[n] = append(c.loopBreaks[n], pos)
}

func (c *compiler) addContinue(pos int) {
	n := len(c.loopContinues) - 1
	c.loopContinues[n] = append(c.loopContinues[n], pos)
}

func (c *compiler) compileWhile(s *ast.WhileStmt) {
	c.pushLoop()
	loopStart := c.here()
	c.compileExpr(s.Cond)
	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.compileStmt(s.Body)
	c.emitJumpBack(loopStart)
	c.patchJump(exitJump)
	breaks, continues := c.popLoop()
	for _, j := range breaks {
		c.patchJump(j)
	}
	for _, j := range continues {
		c.patchJumpTo(j, loopStart)
	}
}

// emitJumpBack emits an unconditional jump to an already-known target
// (backward edges, unlike emitJump's forward placeholder).
func (c *compiler) emitJumpBack(target int) {
	c.emitU32(vm.OpJump, uint32(target))
}

func (c *compiler) compileDoWhile(s *ast.DoWhileStmt) {
	c.pushLoop()
	loopStart := c.here()
	c.compileStmt(s.Body)
	continueTarget := c.here()
	c.compileExpr(s.Cond)
	c.emitU32(vm.OpJumpIfTrue, uint32(loopStart))
	breaks, continues := c.popLoop()
	for _, j := range breaks {
		c.patchJump(j)
	}
	for _, j := range continues {
		c.patchJumpTo(j, continueTarget)
	}
}

func (c *compiler) compileFor(s *ast.ForStmt) {
	for _, init := range s.Init {
		c.compileExpr(init)
		c.emit(vm.OpPop)
	}
	c.pushLoop()
	loopStart := c.here()
	var exitJump int
	hasExit := len(s.Cond) > 0
	if hasExit {
		for i, cond := range s.Cond {
			c.compileExpr(cond)
			if i < len(s.Cond)-1 {
				c.emit(vm.OpPop)
			}
		}
		exitJump = c.emitJump(vm.OpJumpIfFalse)
	}
	c.compileStmt(s.Body)
	continueTarget := c.here()
	for _, post := range s.Post {
		c.compileExpr(post)
		c.emit(vm.OpPop)
	}
	c.emitJumpBack(loopStart)
	if hasExit {
		c.patchJump(exitJump)
	}
	breaks, continues := c.popLoop()
	for _, j := range breaks {
		c.patchJump(j)
	}
	for _, j := range continues {
		c.patchJumpTo(j, continueTarget)
	}
}

func (c *compiler) compileForeach(s *ast.ForeachStmt) {
	c.compileExpr(s.Subject)
	c.emit(vm.OpIterInit)
	iterLocal := uint16(c.chunk.LocalIndex(".iter"))
	c.emitU16(vm.OpStoreLocal, iterLocal)
	c.emit(vm.OpPop)

	c.pushLoop()
	loopStart := c.here()
	c.emitU16(vm.OpLoadLocal, iterLocal)
	c.emit(vm.OpIterNext)
	exitJump := c.emitJump(vm.OpJumpIfFalse)

	if s.KeyVar != nil {
		c.emitU16(vm.OpLoadLocal, iterLocal)
		c.emit(vm.OpIterKey)
		c.compileAssignTarget(s.KeyVar)
		c.emit(vm.OpPop)
	}
	c.emitU16(vm.OpLoadLocal, iterLocal)
	c.emit(vm.OpIterValue)
	c.compileAssignTarget(s.ValueVar)
	c.emit(vm.OpPop)

	c.compileStmt(s.Body)
	continueTarget := c.here()
	c.emitJumpBack(loopStart)
	c.patchJump(exitJump)

	breaks, continues := c.popLoop()
	for _, j := range breaks {
		c.patchJump(j)
	}
	for _, j := range continues {
		c.patchJumpTo(j, continueTarget)
	}
}

func (c *compiler) compileSwitch(s *ast.SwitchStmt) {
	c.compileExpr(s.Subject)
	subjLocal := uint16(c.chunk.LocalIndex(".switch"))
	c.emitU16(vm.OpStoreLocal, subjLocal)
	c.emit(vm.OpPop)

	c.pushLoop()
	var caseJumps []int
	defaultIdx := -1
	for i, cs := range s.Cases {
		if cs.Test == nil {
			defaultIdx = i
			caseJumps = append(caseJumps, -1)
			continue
		}
		c.emitU16(vm.OpLoadLocal, subjLocal)
		c.compileExpr(cs.Test)
		c.emit(vm.OpEqual)
		caseJumps = append(caseJumps, c.emitJump(vm.OpJumpIfTrue))
	}
	afterTests := c.emitJump(vm.OpJump)

	bodyStarts := make([]int, len(s.Cases))
	for i, cs := range s.Cases {
		bodyStarts[i] = c.here()
		if caseJumps[i] >= 0 {
			c.patchJump(caseJumps[i])
		}
		for _, st := range cs.Statements {
			c.compileStmt(st)
		}
	}
	endSwitch := c.here()
	if defaultIdx >= 0 {
		c.patchJumpTo(afterTests, bodyStarts[defaultIdx])
	} else {
		c.patchJumpTo(afterTests, endSwitch)
	}

	breaks, continues := c.popLoop()
	for _, j := range breaks {
		c.patchJump(j)
	}
	// continue inside switch falls through to the enclosing loop; here we
	// conservatively treat it the same as break since switch has no loop
	// variable to advance.
	for _, j := range continues {
		c.patchJump(j)
	}
}

func (c *compiler) compileBreak(s *ast.BreakStmt) {
	if len(c.loopBreaks) == 0 {
		c.errorf(0, "'break' not in the 'loop' or 'switch' context")
		return
	}
	level := 1
	if s.Level != nil {
		if lit, ok := s.Level.(*ast.IntLiteral); ok {
			level = int(lit.Value)
		}
	}
	idx := len(c.loopBreaks) - level
	if idx < 0 {
		idx = 0
	}
	if idx >= 0 && idx < len(c.loopTryDepth) {
		c.emitFinallyDownTo(c.loopTryDepth[idx])
	}
	pos := c.emitJump(vm.OpJump)
	c.loopBreaks[idx] = append(c.loopBreaks[idx], pos)
}

func (c *compiler) compileContinue(s *ast.ContinueStmt) {
	if len(c.loopContinues) == 0 {
		c.errorf(0, "'continue' not in the 'loop' or 'switch' context")
		return
	}
	level := 1
	if s.Level != nil {
		if lit, ok := s.Level.(*ast.IntLiteral); ok {
			level = int(lit.Value)
		}
	}
	idx := len(c.loopContinues) - level
	if idx < 0 {
		idx = 0
	}
	if idx >= 0 && idx < len(c.loopTryDepth) {
		c.emitFinallyDownTo(c.loopTryDepth[idx])
	}
	pos := c.emitJump(vm.OpJump)
	c.loopContinues[idx] = append(c.loopContinues[idx], pos)
}

func (c *compiler) compileTry(s *ast.TryStmt) {
	hasFinally := s.Finally != nil
	if hasFinally {
		c.tryFinally = append(c.tryFinally, s.Finally)
	}

	start := c.here()
	c.compileStmt(s.Body)
	endJump := c.emitJump(vm.OpJump)

	type span struct{ start, end int }
	var catchRangeIdx []int
	var catchBodySpans []span

	for _, catch := range s.Catches {
		handler := c.here()
		if catch.VarName != "" {
			local := uint16(c.chunk.LocalIndex(catch.VarName))
			c.emitU16(vm.OpStoreLocal, local)
			c.emit(vm.OpPop)
		} else {
			c.emit(vm.OpPop)
		}
		bodyStart := c.here()
		c.compileStmt(catch.Body)
		jumpEnd := c.emitJump(vm.OpJump)
		bodyEnd := c.here()
		catchRangeIdx = append(catchRangeIdx, len(c.chunk.Exceptions))
		c.chunk.Exceptions = append(c.chunk.Exceptions, vm.ExceptionRange{
			Start: start, End: endJump, CatchTypes: catch.Types, Handler: handler, CatchVar: catch.VarName, FinallyPC: -1,
		})
		catchBodySpans = append(catchBodySpans, span{bodyStart, bodyEnd})
		c.patchJump(jumpEnd)
	}
	c.patchJump(endJump)

	if !hasFinally {
		return
	}
	c.tryFinally = c.tryFinally[:len(c.tryFinally)-1]

	// Normal completion and caught exceptions reach here by fallthrough.
	c.compileStmt(s.Finally)
	skipRethrow := c.emitJump(vm.OpJump)

	// An exception that reached this try without matching any catch arm is
	// redirected here by handleThrow: run finally once more, then rethrow.
	rethrowPC := c.here()
	excLocal := uint16(c.chunk.LocalIndex(".try_exc"))
	c.emitU16(vm.OpStoreLocal, excLocal)
	c.emit(vm.OpPop)
	c.compileStmt(s.Finally)
	c.emitU16(vm.OpLoadLocal, excLocal)
	c.emit(vm.OpThrow)

	c.patchJump(skipRethrow)

	for _, idx := range catchRangeIdx {
		c.chunk.Exceptions[idx].FinallyPC = rethrowPC
	}
	if len(s.Catches) == 0 {
		c.chunk.Exceptions = append(c.chunk.Exceptions, vm.ExceptionRange{
			Start: start, End: endJump, Handler: -1, FinallyPC: rethrowPC,
		})
	}
	for _, sp := range catchBodySpans {
		c.chunk.Exceptions = append(c.chunk.Exceptions, vm.ExceptionRange{
			Start: sp.start, End: sp.end, Handler: -1, FinallyPC: rethrowPC,
		})
	}
}

func (c *compiler) compileStaticVar(s *ast.StaticVarStmt) {
	local := uint16(c.chunk.LocalIndex(s.Name))
	if s.Init != nil {
		c.compileExpr(s.Init)
	} else {
		c.emit(vm.OpNull)
	}
	c.emitU16(vm.OpStoreLocal, local)
	c.emit(vm.OpPop)
}

func (c *compiler) compileUnsetTarget(target ast.Expression) {
	switch t := target.(type) {
	case *ast.IndexExpr:
		// OpArrayUnset clones before deleting (copy-on-write), so the
		// resulting array must be written back into t.Array the same way an
		// index assignment does, or the unset is invisible through t.Array.
		c.compileExpr(t.Array)
		c.compileExpr(t.Index)
		c.emit(vm.OpArrayUnset)
		c.compileAssignTargetFromStack(t.Array)
		c.emit(vm.OpPop)
	case *ast.VariableExpr:
		local := uint16(c.chunk.LocalIndex(t.Name))
		c.emit(vm.OpNull)
		c.emitU16(vm.OpStoreLocal, local)
		c.emit(vm.OpPop)
	case *ast.PropertyAccessExpr:
		c.compileExpr(t.Object)
		sym := c.addConstant(strConst(propertyName(t.Property)))
		c.emitU32(vm.OpUnsetProperty, sym)
	}
}
