// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package symbol implements the engine's interner: a bidirectional map from
// byte-string identifiers to compact 32-bit Symbol handles.
package symbol

import "strings"

// Symbol is a 32-bit handle into the interner's string table. Interned once,
// compared as integers thereafter.
type Symbol uint32

// Invalid is the zero Symbol; no intern call ever returns it.
const Invalid Symbol = 0

// Table is a bidirectional byte-string <-> Symbol interner. Never shrinks:
// once a string is interned its Symbol remains valid for the lifetime of the
// Table. The zero Table is not usable; use New.
type Table struct {
	byBytes map[string]Symbol
	byID    [][]byte
}

// New creates an empty interner. Slot 0 is reserved for Invalid so that a
// zero-valued Symbol is never confused with a real interned string.
func New() *Table {
	t := &Table{
		byBytes: make(map[string]Symbol, 256),
		byID:    make([][]byte, 1),
	}
	t.byID[0] = nil
	return t
}

// Intern returns the Symbol for bytes, interning it if this is the first
// occurrence. Interning is idempotent: Intern(x) == Intern(y) iff x and y are
// byte-for-byte identical.
func (t *Table) Intern(b []byte) Symbol {
	if sym, ok := t.byBytes[string(b)]; ok {
		return sym
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	sym := Symbol(len(t.byID))
	t.byID = append(t.byID, cp)
	t.byBytes[string(cp)] = sym
	return sym
}

// InternString is a convenience wrapper for Intern([]byte(s)).
func (t *Table) InternString(s string) Symbol {
	return t.Intern([]byte(s))
}

// Lookup returns the original bytes for sym, or nil, false if sym was never
// interned by this table.
func (t *Table) Lookup(sym Symbol) ([]byte, bool) {
	idx := int(sym)
	if idx <= 0 || idx >= len(t.byID) {
		return nil, false
	}
	return t.byID[idx], true
}

// MustLookup is Lookup but panics on an unknown Symbol; used where the
// caller already knows sym was interned by this table (e.g. disassembly of
// a chunk compiled against it).
func (t *Table) MustLookup(sym Symbol) []byte {
	b, ok := t.Lookup(sym)
	if !ok {
		panic("symbol: lookup of never-interned symbol")
	}
	return b
}

// Len reports the number of interned symbols (excluding the reserved zero
// slot).
func (t *Table) Len() int {
	return len(t.byID) - 1
}

// InternFoldedString interns the lowercase form of s. Class and function
// names are stored case-sensitively but looked up case-insensitively by
// canonicalizing to lowercase at lookup time (spec §3 Symbol); callers doing
// a class/function lookup should intern/canonicalize through this helper
// instead of InternString.
func (t *Table) InternFoldedString(s string) Symbol {
	return t.InternString(strings.ToLower(s))
}
