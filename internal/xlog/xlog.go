// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package xlog is a thin component-tagged wrapper over log/slog, used for
// engine-internal diagnostics (startup, extension registration, resource
// teardown, GC telemetry) that are not part of the PHP-visible
// error-reporting contract implemented by package errs.
package xlog

import (
	"log/slog"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var base = slog.New(slog.NewTextHandler(defaultWriter(), nil))

func defaultWriter() *os.File {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return os.Stderr
	}
	return os.Stderr
}

// Logger is a component-scoped handle onto the shared base logger.
type Logger struct {
	l *slog.Logger
}

// For returns a Logger tagging every record with component=name.
func For(component string) Logger {
	return Logger{l: base.With("component", component)}
}

// SetOutput redirects every future For() logger to w, always wrapping w in
// go-colorable so ANSI sequences render on Windows too.
func SetOutput(w *os.File) {
	cw := colorable.NewColorable(w)
	base = slog.New(slog.NewTextHandler(cw, nil))
}

func (l Logger) Debug(msg string, args ...any) { l.l.Debug(msg, args...) }
func (l Logger) Info(msg string, args ...any)  { l.l.Info(msg, args...) }
func (l Logger) Warn(msg string, args ...any)  { l.l.Warn(msg, args...) }
func (l Logger) Error(msg string, args ...any) { l.l.Error(msg, args...) }
