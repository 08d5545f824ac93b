// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package parser_test

import (
	"testing"

	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/lang/parser"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse("test.php", src)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return prog
}

func TestParseSimpleFunction(t *testing.T) {
	prog := parseOK(t, `<?php
function add($a, $b) {
	return $a + $b;
}
`)
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d top-level statements, want 1", len(prog.Statements))
	}
	ds, ok := prog.Statements[0].(*ast.DeclStmt)
	if !ok {
		t.Fatalf("statement is %T, want *ast.DeclStmt", prog.Statements[0])
	}
	fn, ok := ds.Decl.(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("decl is %T, want *ast.FunctionDecl", ds.Decl)
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("fn = %+v", fn)
	}
}

func TestParseClassWithConstructorPromotion(t *testing.T) {
	prog := parseOK(t, `<?php
class Point {
	public function __construct(private int $x, private int $y) {}
}
`)
	ds := prog.Statements[0].(*ast.DeclStmt)
	cls := ds.Decl.(*ast.ClassDecl)
	if cls.Name != "Point" || len(cls.Methods) != 1 {
		t.Fatalf("cls = %+v", cls)
	}
	ctor := cls.Methods[0]
	if ctor.Name != "__construct" || len(ctor.Params) != 2 {
		t.Fatalf("ctor = %+v", ctor)
	}
	if ctor.Params[0].PromoteVis != "private" {
		t.Fatalf("param[0].PromoteVis = %q, want private", ctor.Params[0].PromoteVis)
	}
}

func TestParseIfElseIfElse(t *testing.T) {
	prog := parseOK(t, `<?php
if ($a) { echo 1; } elseif ($b) { echo 2; } else { echo 3; }
`)
	stmt := prog.Statements[0].(*ast.IfStmt)
	if len(stmt.ElseIfs) != 1 || stmt.Else == nil {
		t.Fatalf("stmt = %+v", stmt)
	}
}

func TestParseForeachWithKeyAndRef(t *testing.T) {
	prog := parseOK(t, `<?php
foreach ($items as $k => &$v) { $v = $k; }
`)
	stmt := prog.Statements[0].(*ast.ForeachStmt)
	if stmt.KeyVar == nil || !stmt.ByRef {
		t.Fatalf("stmt = %+v", stmt)
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := parseOK(t, `<?php
try { foo(); } catch (TypeError | ValueError $e) { bar(); } finally { baz(); }
`)
	stmt := prog.Statements[0].(*ast.TryStmt)
	if len(stmt.Catches) != 1 || len(stmt.Catches[0].Types) != 2 || stmt.Finally == nil {
		t.Fatalf("stmt = %+v", stmt)
	}
}

func TestParseMatchExpression(t *testing.T) {
	prog := parseOK(t, `<?php
$x = match($v) { 1, 2 => "low", default => "high" };
`)
	exprStmt := prog.Statements[0].(*ast.ExpressionStmt)
	assign := exprStmt.Expr.(*ast.AssignExpr)
	m := assign.Value.(*ast.MatchExpr)
	if len(m.Arms) != 2 || len(m.Arms[0].Conditions) != 2 {
		t.Fatalf("match = %+v", m)
	}
}

func TestParseArrowFunction(t *testing.T) {
	prog := parseOK(t, `<?php
$f = fn($x) => $x + 1;
`)
	exprStmt := prog.Statements[0].(*ast.ExpressionStmt)
	assign := exprStmt.Expr.(*ast.AssignExpr)
	closure := assign.Value.(*ast.ClosureExpr)
	if !closure.Arrow || len(closure.Params) != 1 {
		t.Fatalf("closure = %+v", closure)
	}
}

func TestParseErrorRecoveryContinuesToNextStatement(t *testing.T) {
	prog, errs := parser.Parse("test.php", `<?php
$a = ;
$b = 2;
`)
	if len(errs) == 0 {
		t.Fatal("expected at least one parse error")
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2 (parser should recover)", len(prog.Statements))
	}
}

func TestParseYieldFrom(t *testing.T) {
	prog := parseOK(t, `<?php
function gen() { yield from $other; }
`)
	ds := prog.Statements[0].(*ast.DeclStmt)
	fn := ds.Decl.(*ast.FunctionDecl)
	exprStmt := fn.Body.Statements[0].(*ast.ExpressionStmt)
	y := exprStmt.Expr.(*ast.YieldExpr)
	if !y.From {
		t.Fatalf("yield = %+v", y)
	}
}
