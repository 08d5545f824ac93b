// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package config loads host-level engine tunables from a TOML file, the
// way the teacher's node loads its own TOML configuration distinctly from
// PHP-level ".ini" configuration (explicitly out of scope for this
// engine's own interpreted language, per spec.md's Non-goals).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
)

// tomlSettings mirrors the teacher's gprobeConfig loader: TOML keys match
// Go struct field names exactly (no snake_case folding), and an unknown
// field is a hard error rather than silently ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see godoc for %s#%s", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// GCConfig tunes the value arena's garbage collector.
type GCConfig struct {
	// InitialThreshold is the live-handle count at which the first
	// automatic collection triggers (gc.Heap.Threshold).
	InitialThreshold int `toml:",omitempty"`
	// GrowthFactor is loaded but not read by engine.Builder: gc.Heap.Collect
	// always doubles the threshold after a collection that frees less than
	// a quarter of it and halves it after one that frees more than half.
	GrowthFactor float64 `toml:",omitempty"`
}

// StackConfig bounds the VM's call-frame stack. engine.Builder copies
// MaxCallDepth into vm.Machine.MaxCallDepth; MaxOperandLen is loaded but
// not read, so the operand stack has no configured bound.
type StackConfig struct {
	MaxCallDepth  int `toml:",omitempty"`
	MaxOperandLen int `toml:",omitempty"`
}

// ResourceConfig seeds resource.Manager defaults.
type ResourceConfig struct {
	// MaxResources is loaded but not read: resource.NewManager takes no
	// configuration and registers resources without a cap.
	MaxResources int `toml:",omitempty"`
}

// OutputConfig controls cmd/phpc's terminal output.
type OutputConfig struct {
	// ForceColor is loaded but not read: neither internal/xlog nor
	// cmd/phpc consults an EngineConfig when choosing its output writer.
	ForceColor bool `toml:",omitempty"`
}

// EngineConfig is the full set of host-level tunables, loaded from a TOML
// file via Load or used as-is via Default.
type EngineConfig struct {
	GC       GCConfig
	Stack    StackConfig
	Resource ResourceConfig
	Output   OutputConfig
}

// Default returns the engine's built-in tunable defaults.
func Default() EngineConfig {
	return EngineConfig{
		GC:       GCConfig{InitialThreshold: 10000, GrowthFactor: 2.0},
		Stack:    StackConfig{MaxCallDepth: 2048, MaxOperandLen: 1 << 16},
		Resource: ResourceConfig{MaxResources: 0},
		Output:   OutputConfig{ForceColor: false},
	}
}

// Load reads and decodes a TOML file at path over top of Default(),
// overriding only the fields the file sets.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return cfg, err
}
