// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

// Package ast defines the Abstract Syntax Tree for the engine's PHP-like
// source language. The parser allocates nodes as ordinary Go values; it
// does not use the Arena type below.
package ast

// Arena is a simple bump allocator: its keep helpers append a node to an
// internal slab and return it, so the node stays reachable for the arena's
// lifetime. No node constructor takes an *Arena.
type Arena struct {
	exprs  []Expression
	stmts  []Statement
	decls  []Declaration
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) keepExpr(e Expression) Expression {
	a.exprs = append(a.exprs, e)
	return e
}

func (a *Arena) keepStmt(s Statement) Statement {
	a.stmts = append(a.stmts, s)
	return s
}

func (a *Arena) keepDecl(d Declaration) Declaration {
	a.decls = append(a.decls, d)
	return d
}

// Len reports how many nodes of each kind the arena currently holds, mostly
// useful for test assertions and parser diagnostics about tree size.
func (a *Arena) Len() (exprs, stmts, decls int) {
	return len(a.exprs), len(a.stmts), len(a.decls)
}
