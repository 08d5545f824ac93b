// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package errs implements the engine's diagnostic reporter: PHP's
// notice/warning/deprecated/error/fatal severity ladder, with a captured
// call stack on every report so a host embedding the engine can log where
// a diagnostic actually originated.
package errs

import (
	"fmt"

	"github.com/go-stack/stack"
)

// Level is a PHP error-reporting severity, ordered least to most severe.
type Level uint8

const (
	Notice Level = iota
	Warning
	Deprecated
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Notice:
		return "Notice"
	case Warning:
		return "Warning"
	case Deprecated:
		return "Deprecated"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal error"
	default:
		return "Unknown"
	}
}

// Diagnostic is one reported condition: its severity, rendered message,
// source location (when known from the compiled chunk) and the Go call
// stack at the point it was raised.
type Diagnostic struct {
	Level   Level
	Message string
	File    string
	Line    int
	Stack   stack.CallStack
}

func (d *Diagnostic) Error() string {
	if d.File != "" {
		return fmt.Sprintf("%s: %s in %s on line %d", d.Level, d.Message, d.File, d.Line)
	}
	return fmt.Sprintf("%s: %s", d.Level, d.Message)
}

// Sink receives diagnostics as they are reported; package engine's
// xlogSink is the implementation installed by default.
type Sink interface {
	Report(*Diagnostic)
}

// Reporter accumulates diagnostics for a single execution and forwards them
// to an optional Sink (a host's logger, or nil to only track FatalHit).
type Reporter struct {
	File     string
	Sink     Sink
	Reported []*Diagnostic

	// FatalHit is set once a Fatal-level diagnostic is reported, for a host
	// to inspect; Report itself does not halt execution and nothing in the
	// engine or VM reads this flag.
	FatalHit bool

	// suppressDepth mirrors the VM's '@' operator nesting; Report still
	// records suppressed diagnostics (for error_get_last) but does not
	// forward them to Sink, and Warning/Notice-level suppressed
	// diagnostics never set FatalHit (Fatal always does regardless).
	suppressDepth int
}

// New creates a Reporter tagging diagnostics with file as their source.
func New(file string) *Reporter {
	return &Reporter{File: file}
}

// EnterSuppress/ExitSuppress bracket a PHP '@' expression.
func (r *Reporter) EnterSuppress() { r.suppressDepth++ }
func (r *Reporter) ExitSuppress() {
	if r.suppressDepth > 0 {
		r.suppressDepth--
	}
}

// Report records a diagnostic at the given severity and source line,
// capturing the reporting Go call stack for host-side logging.
func (r *Reporter) Report(level Level, line int, format string, args ...interface{}) *Diagnostic {
	d := &Diagnostic{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		File:    r.File,
		Line:    line,
		Stack:   stack.Trace().TrimRuntime(),
	}
	r.Reported = append(r.Reported, d)
	if level == Fatal {
		r.FatalHit = true
	}
	if r.suppressDepth > 0 && level != Fatal {
		return d
	}
	if r.Sink != nil {
		r.Sink.Report(d)
	}
	return d
}

// Last returns the most recently reported diagnostic, or nil.
func (r *Reporter) Last() *Diagnostic {
	if len(r.Reported) == 0 {
		return nil
	}
	return r.Reported[len(r.Reported)-1]
}
