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

// generatorClassName is the symbol under which every generator's
// ObjectData is classed, mirroring PHP's built-in Generator class.
const generatorClassName = "generator"

// genState is a generator's lifecycle stage, matching the Created /
// Suspended / Running / Finished states PHP generators expose indirectly
// through valid()/current().
type genState int

const (
	genCreated genState = iota
	genSuspended
	genRunning
	genFinished
)

// genResult is what the generator's goroutine hands back across yieldCh:
// either a suspended (key, val) pair, or, with done set, the body's final
// return value (possibly an error if it threw uncaught).
type genResult struct {
	key, val value.Value
	done     bool
	err      error
}

// generatorInstance is the hidden internal state of a Generator object.
// The body runs on its own goroutine, a classic Go coroutine built from two
// unbuffered channels: at most one of {the caller, the generator's
// goroutine} is ever running at a time, so both sides touch the Machine's
// shared call-stack bookkeeping (m.frames) safely despite never holding a
// lock around it.
type generatorInstance struct {
	m     *Machine
	frame *Frame

	resumeCh chan value.Value // value to inject as the `yield` expression's result
	yieldCh  chan genResult

	state   genState
	curKey  value.Value
	curVal  value.Value
	retVal  value.Value
	err     error
	autoKey int64
}

// newGenerator wraps frame (already bound with its arguments, not yet
// executed) as a fresh, not-yet-started Generator object.
func (m *Machine) newGenerator(frame *Frame) value.Value {
	g := &generatorInstance{
		m:        m,
		frame:    frame,
		resumeCh: make(chan value.Value),
		yieldCh:  make(chan genResult),
		state:    genCreated,
		curKey:   value.Null(),
		curVal:   value.Null(),
		retVal:   value.Null(),
	}
	classSym := m.Symbols.InternFoldedString(generatorClassName)
	obj := value.NewObjectData(classSym)
	obj.Internal = g
	h := m.Heap.Alloc(value.ObjPayload(obj))
	return value.Object(h)
}

// generatorFromValue unwraps v's hidden generatorInstance, if v is a
// Generator.
func generatorFromValue(v value.Value, heap interface {
	TryGet(value.Handle) (*value.Zval, bool)
}) (*generatorInstance, bool) {
	if v.Kind != value.KindObject {
		return nil, false
	}
	z, ok := heap.TryGet(v.Obj)
	if !ok || z.Value.Kind != value.KindObjPayload || z.Value.Payload == nil {
		return nil, false
	}
	inst, ok := z.Value.Payload.Internal.(*generatorInstance)
	return inst, ok
}

// registerGeneratorClass installs the Generator class's native method
// surface directly (not through the ext.Registry, since these methods need
// the real *Machine and a generatorInstance, not the Go-extension-facing
// interface ext built-ins go through) so `$gen->current()` and friends
// dispatch the ordinary callMethod path, and so foreach's objectIterator
// drives a generator exactly like any other user Iterator.
func registerGeneratorClass(m *Machine) {
	cr := &ClassRuntime{
		Name:         "Generator",
		Methods:      map[string]*CodeChunk{},
		Natives:      map[string]NativeHandler{},
		StaticProps:  map[string]value.Value{},
		Consts:       map[string]value.Value{},
		PropDefaults: map[string]value.Value{},
	}
	cr.Natives["current"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		g.ensureStarted()
		return g.curVal, g.takeErr()
	}
	cr.Natives["key"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		g.ensureStarted()
		return g.curKey, g.takeErr()
	}
	cr.Natives["valid"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Bool(false), nil
		}
		g.ensureStarted()
		return value.Bool(g.state != genFinished), g.takeErr()
	}
	cr.Natives["rewind"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		g.ensureStarted()
		return value.Null(), g.takeErr()
	}
	cr.Natives["next"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		g.ensureStarted()
		if g.state != genFinished {
			g.resume(value.Null())
		}
		return value.Null(), g.takeErr()
	}
	cr.Natives["send"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		var sendVal value.Value
		if len(args) > 0 {
			sendVal = args[0]
		} else {
			sendVal = value.Null()
		}
		if g.state == genCreated {
			// Sending into a fresh generator implicitly runs it to its
			// first yield first, discarding sendVal (matching PHP), then
			// resumes with it.
			g.ensureStarted()
		}
		if g.state != genFinished {
			g.resume(sendVal)
		}
		return g.curVal, g.takeErr()
	}
	cr.Natives["getreturn"] = func(mm *Machine, this value.Value, args []value.Value) (value.Value, error) {
		g, ok := generatorFromValue(this, mm.Heap)
		if !ok {
			return value.Null(), nil
		}
		return g.retVal, nil
	}
	m.Classes[strings.ToLower(generatorClassName)] = cr
}

// ensureStarted runs the generator body up to its first yield or
// completion, a no-op once it has already started.
func (g *generatorInstance) ensureStarted() {
	if g.state != genCreated {
		return
	}
	g.step(value.Null())
}

// resume sends sendVal in as the current yield expression's result and
// runs until the next yield or completion.
func (g *generatorInstance) resume(sendVal value.Value) {
	g.step(sendVal)
}

// step hands control to the generator's goroutine (starting it the first
// time) and blocks until it suspends at a yield or finishes, updating g's
// observable state before returning.
func (g *generatorInstance) step(sendVal value.Value) {
	if g.state == genFinished {
		return
	}
	m := g.m
	m.frames = append(m.frames, g.frame)
	if g.state == genCreated {
		g.state = genRunning
		go g.body()
	} else {
		g.state = genRunning
		g.resumeCh <- sendVal
	}
	res := <-g.yieldCh
	m.frames = m.frames[:len(m.frames)-1]
	if res.done {
		g.state = genFinished
		g.retVal = res.val
		g.err = res.err
		g.curKey, g.curVal = value.Null(), value.Null()
		return
	}
	g.state = genSuspended
	g.curKey, g.curVal = res.key, res.val
}

// body runs on the generator's own goroutine: the frame's bytecode, with
// OpYield/OpYieldFrom routed through g.yieldOne instead of returning.
func (g *generatorInstance) body() {
	g.frame.gen = g
	result, err := g.m.exec(g.frame)
	g.yieldCh <- genResult{val: result, err: err, done: true}
}

// yieldOne is called from the generator's own goroutine by OpYield: it
// publishes (key, val) to whichever side is blocked reading g.yieldCh, then
// blocks until the consumer calls next()/send(), whose argument becomes the
// `yield` expression's value.
func (g *generatorInstance) yieldOne(key, val value.Value) value.Value {
	g.yieldCh <- genResult{key: key, val: val}
	return <-g.resumeCh
}

// takeErr surfaces an uncaught exception from the generator body once, the
// same shape callMethod/callFunction callers already expect from a
// RuntimeError-wrapped throw.
func (g *generatorInstance) takeErr() error {
	err := g.err
	g.err = nil
	return err
}
