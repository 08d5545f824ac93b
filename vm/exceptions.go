// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "github.com/probechain/gophp/value"

// handleThrow looks for a catch clause in f.Chunk covering the instruction
// that just threw thrown. On a match it pushes thrown back onto f's stack
// (the compiled handler starts with an OpStoreLocal into the catch
// variable, which peeks, then an OpPop; a catch without a variable starts
// with the OpPop alone) and redirects f.PC to
// the handler, returning true. Failing a catch match, it falls back to the
// nearest enclosing range's FinallyPC (if any): the exception still pushed,
// PC redirected to code that runs the finally block and rethrows, so a
// bare try/finally or an unmatched exception type still runs finally before
// the throw continues propagating. Returns false only when nothing in this
// frame catches or finally-guards it, leaving the caller to propagate the
// throw further up the Go call stack to the frame that invoked this one.
func (m *Machine) handleThrow(f *Frame, thrown value.Value) bool {
	pc := f.PC - 1
	finallyPC := -1
	for _, er := range f.Chunk.Exceptions {
		if pc < er.Start || pc >= er.End {
			continue
		}
		if er.Handler >= 0 && m.exceptionMatches(thrown, er.CatchTypes) {
			f.push(thrown)
			f.PC = er.Handler
			return true
		}
		if finallyPC < 0 && er.FinallyPC >= 0 {
			finallyPC = er.FinallyPC
		}
	}
	if finallyPC >= 0 {
		f.push(thrown)
		f.PC = finallyPC
		return true
	}
	return false
}

func (m *Machine) exceptionMatches(thrown value.Value, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if m.isInstanceOf(thrown, t) {
			return true
		}
	}
	return false
}

// propagateOrCatch inspects an error returned by a completed call for a
// wrapped PHP-level throw and, if one is present, offers it to f's own
// catch clauses before the caller gives up and returns the error further.
func (m *Machine) propagateOrCatch(f *Frame, err error) (bool, error) {
	re, ok := err.(*RuntimeError)
	if !ok || re.Thrown == nil {
		return false, err
	}
	if m.handleThrow(f, *re.Thrown) {
		return true, nil
	}
	return false, err
}
