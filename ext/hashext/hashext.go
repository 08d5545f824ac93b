// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package hashext is the extension registry's example native extension: a
// "hash" function family backed by SHA-3/SHAKE, replacing the teacher's
// stubbed-out stdlib/crypto package (left as // TODO wiring) with an
// actually-wired implementation.
package hashext

import (
	"encoding/hex"
	"fmt"

	"github.com/probechain/gophp/ext"
	"github.com/probechain/gophp/value"
	"golang.org/x/crypto/sha3"
)

// Register adds the hash/shake256 native functions to r.
func Register(r *ext.Registry) {
	r.RegisterFunction("hash", hashFunc)
	r.RegisterFunction("shake256", shake256Func)
}

// hashFunc implements hash(string $algo, string $data, bool $binary = false).
func hashFunc(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Value{}, fmt.Errorf("hash() expects at least 2 arguments, %d given", len(args))
	}
	algo := string(args[0].ToPHPString())
	data := args[1].ToPHPString()
	binary := len(args) > 2 && args[2].ToBool()

	var sum []byte
	switch algo {
	case "sha3-256":
		h := sha3.Sum256(data)
		sum = h[:]
	case "sha3-512":
		h := sha3.Sum512(data)
		sum = h[:]
	case "keccak256":
		h := sha3.NewLegacyKeccak256()
		h.Write(data)
		sum = h.Sum(nil)
	default:
		return value.Bool(false), nil
	}
	if binary {
		return value.String(sum), nil
	}
	return value.String([]byte(hex.EncodeToString(sum))), nil
}

// shake256Func implements shake256(string $data, int $outputLen): string,
// a variable-length extendable-output hash.
func shake256Func(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Value{}, fmt.Errorf("shake256() expects exactly 2 arguments, %d given", len(args))
	}
	data := args[0].ToPHPString()
	outLen := int(args[1].ToInt())
	if outLen < 0 {
		return value.Value{}, fmt.Errorf("shake256(): Argument #2 must be greater than or equal to 0")
	}
	out := make([]byte, outLen)
	h := sha3.NewShake256()
	h.Write(data)
	h.Read(out)
	return value.String(out), nil
}
