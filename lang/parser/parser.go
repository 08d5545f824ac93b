// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package parser implements a recursive-descent, Pratt-expression parser
// for the engine's PHP-like source language. Parse errors are collected
// rather than fatal: the parser resynchronizes at the next statement
// boundary and keeps going, so a single file can report every syntax error
// it contains in one pass instead of stopping at the first.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/lang/lexer"
	"github.com/probechain/gophp/lang/token"
)

// ParseError is one collected syntax error.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Message) }

type precedence int

const (
	precLowest precedence = iota
	precWordLogic   // and, or, xor
	precAssign      // = += -= ... (right-assoc)
	precTernary     // ?: ? :
	precCoalesce    // ??  (right-assoc)
	precLogicalOr   // ||
	precLogicalAnd  // &&
	precBitOr       // |
	precBitXor      // ^
	precBitAnd      // &
	precEquality    // == != === !== <>
	precRelational  // < > <= >= <=>
	precShift       // << >>
	precAdditive    // + - .
	precMultiplicative // * / %
	precInstanceof
	precUnary       // ! ~ unary - + (int) etc, ++/--  prefix
	precPow         // ** (right-assoc)
	precPostfix     // ++ -- (postfix), -> ?-> [ ] ( ) ::
)

var infixPrecedence = map[token.Type]precedence{
	token.K_AND: precWordLogic, token.K_OR: precWordLogic, token.K_XOR: precWordLogic,

	token.ASSIGN: precAssign, token.PLUSEQ: precAssign, token.MINUSEQ: precAssign,
	token.STAREQ: precAssign, token.SLASHEQ: precAssign, token.PERCENTEQ: precAssign,
	token.POWEQ: precAssign, token.DOTEQ: precAssign, token.AMPEQ: precAssign,
	token.PIPEEQ: precAssign, token.CARETEQ: precAssign, token.LSHIFTEQ: precAssign,
	token.RSHIFTEQ: precAssign, token.COALESCEEQ: precAssign, token.REF_ASSIGN: precAssign,

	token.QUESTION: precTernary,
	token.COALESCE: precCoalesce,
	token.OR_OR:    precLogicalOr,
	token.AND_AND:  precLogicalAnd,
	token.PIPE:     precBitOr,
	token.CARET:    precBitXor,
	token.AMP:      precBitAnd,

	token.EQ: precEquality, token.NEQ: precEquality,
	token.IDENTICAL: precEquality, token.NOT_IDENTICAL: precEquality,

	token.LT: precRelational, token.GT: precRelational,
	token.LTE: precRelational, token.GTE: precRelational, token.SPACESHIP: precRelational,

	token.LSHIFT: precShift, token.RSHIFT: precShift,

	token.PLUS: precAdditive, token.MINUS: precAdditive, token.DOT: precAdditive,

	token.STAR: precMultiplicative, token.SLASH: precMultiplicative, token.PERCENT: precMultiplicative,

	token.K_INSTANCEOF: precInstanceof,

	token.POW: precPow,

	token.INC: precPostfix, token.DEC: precPostfix,
	token.ARROW: precPostfix, token.NULLSAFE_ARROW: precPostfix,
	token.LBRACKET: precPostfix, token.LPAREN: precPostfix, token.DOUBLE_COLON: precPostfix,
}

// Parser holds state for a single parse.
type Parser struct {
	filename string
	lex      *lexer.Lexer

	cur  token.Token
	peek token.Token

	errors []ParseError
}

// New creates a Parser for filename/source.
func New(filename, source string) *Parser {
	p := &Parser{filename: filename, lex: lexer.New(filename, source)}
	p.advance()
	p.advance()
	return p
}

// Parse runs New(...).ParseProgram() and returns both the program (always
// non-nil, possibly containing ErrorNode placeholders) and any collected
// errors.
func Parse(filename, source string) (*ast.Program, []ParseError) {
	p := New(filename, source)
	prog := p.ParseProgram()
	return prog, p.errors
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek.Type == t }

func (p *Parser) expect(t token.Type) (token.Token, bool) {
	if p.cur.Type != t {
		p.errorf(p.cur.Pos, "expected %s, got %s %q", t, p.cur.Type, p.cur.Literal)
		return p.cur, false
	}
	tok := p.cur
	p.advance()
	return tok, true
}

func (p *Parser) errorf(pos token.Position, format string, args ...interface{}) {
	p.errors = append(p.errors, ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// skipToStatementBoundary resynchronizes after a parse error by consuming
// tokens until a semicolon, a closing brace, or EOF.
func (p *Parser) skipToStatementBoundary() {
	for !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.advance()
			return
		}
		if p.curIs(token.RBRACE) {
			return
		}
		p.advance()
	}
}

// Errors returns every collected ParseError.
func (p *Parser) Errors() []ParseError { return p.errors }

// ---------------------------------------------------------------------------
// Program / top-level
// ---------------------------------------------------------------------------

func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		stmt := p.parseTopLevel()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog
}

func (p *Parser) parseTopLevel() ast.Statement {
	switch p.cur.Type {
	case token.INLINE_HTML:
		s := &ast.InlineHTMLStmt{Tok: p.cur, Text: p.cur.Literal}
		p.advance()
		return s
	case token.OPEN_TAG:
		p.advance()
		return p.parseTopLevel()
	case token.CLOSE_TAG:
		p.advance()
		return p.parseTopLevel()
	default:
		return p.parseStatement()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.K_IF:
		return p.parseIf()
	case token.K_WHILE:
		return p.parseWhile()
	case token.K_DO:
		return p.parseDoWhile()
	case token.K_FOR:
		return p.parseFor()
	case token.K_FOREACH:
		return p.parseForeach()
	case token.K_SWITCH:
		return p.parseSwitch()
	case token.K_BREAK:
		return p.parseBreak()
	case token.K_CONTINUE:
		return p.parseContinue()
	case token.K_RETURN:
		return p.parseReturn()
	case token.K_ECHO:
		return p.parseEcho()
	case token.K_GLOBAL:
		return p.parseGlobal()
	case token.K_THROW:
		return p.parseThrow()
	case token.K_TRY:
		return p.parseTry()
	case token.K_UNSET:
		return p.parseUnsetStmt()
	case token.K_FUNCTION:
		if p.peekIs(token.IDENT) || p.peekIs(token.AMP) {
			return &ast.DeclStmt{Decl: p.parseFunctionDecl()}
		}
	case token.K_CLASS, token.K_INTERFACE, token.K_TRAIT, token.K_ENUM:
		return &ast.DeclStmt{Decl: p.parseClassLike()}
	case token.K_ABSTRACT, token.K_FINAL:
		return &ast.DeclStmt{Decl: p.parseClassLike()}
	case token.K_NAMESPACE:
		return p.parseNamespace()
	case token.K_USE:
		return &ast.DeclStmt{Decl: p.parseUseImport()}
	case token.K_CONST:
		return &ast.DeclStmt{Decl: p.parseTopLevelConst()}
	case token.K_DECLARE:
		return p.parseDeclare()
	case token.K_GOTO:
		return p.parseGoto()
	case token.SEMICOLON:
		p.advance()
		return nil
	case token.IDENT:
		if p.peekIs(token.COLON) {
			return p.parseLabel()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseBlock() *ast.BlockStmt {
	tok := p.cur
	p.expect(token.LBRACE)
	blk := &ast.BlockStmt{Tok: tok}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		s := p.parseStatement()
		if s != nil {
			blk.Statements = append(blk.Statements, s)
		}
	}
	p.expect(token.RBRACE)
	return blk
}

func (p *Parser) parseStatementOrBlock() ast.Statement {
	if p.curIs(token.LBRACE) {
		return p.parseBlock()
	}
	return p.parseStatement()
}

func (p *Parser) parseIf() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	then := p.parseStatementOrBlock()

	stmt := &ast.IfStmt{Tok: tok, Cond: cond, Then: then}
	for p.curIs(token.K_ELSEIF) {
		p.advance()
		p.expect(token.LPAREN)
		c := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		b := p.parseStatementOrBlock()
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIf{Cond: c, Body: b})
	}
	if p.curIs(token.K_ELSE) {
		p.advance()
		if p.curIs(token.K_IF) {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseStatementOrBlock()
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	body := p.parseStatementOrBlock()
	return &ast.WhileStmt{Tok: tok, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Statement {
	tok := p.cur
	p.advance()
	body := p.parseStatementOrBlock()
	p.expect(token.K_WHILE)
	p.expect(token.LPAREN)
	cond := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	p.expect(token.SEMICOLON)
	return &ast.DoWhileStmt{Tok: tok, Body: body, Cond: cond}
}

func (p *Parser) parseExprList(end token.Type) []ast.Expression {
	var out []ast.Expression
	if p.curIs(end) {
		return out
	}
	out = append(out, p.parseExpression(precLowest))
	for p.curIs(token.COMMA) {
		p.advance()
		out = append(out, p.parseExpression(precLowest))
	}
	return out
}

func (p *Parser) parseFor() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	init := p.parseExprList(token.SEMICOLON)
	p.expect(token.SEMICOLON)
	cond := p.parseExprList(token.SEMICOLON)
	p.expect(token.SEMICOLON)
	post := p.parseExprList(token.RPAREN)
	p.expect(token.RPAREN)
	body := p.parseStatementOrBlock()
	return &ast.ForStmt{Tok: tok, Init: init, Cond: cond, Post: post, Body: body}
}

func (p *Parser) parseForeach() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	subject := p.parseExpression(precLowest)
	p.expect(token.K_AS)

	byRef := false
	if p.curIs(token.AMP) {
		byRef = true
		p.advance()
	}
	first := p.parseForeachTarget()

	stmt := &ast.ForeachStmt{Tok: tok, Subject: subject}
	if p.curIs(token.DOUBLE_ARROW) {
		p.advance()
		stmt.KeyVar = first
		if p.curIs(token.AMP) {
			byRef = true
			p.advance()
		}
		stmt.ValueVar = p.parseForeachTarget()
	} else {
		stmt.ValueVar = first
	}
	stmt.ByRef = byRef
	p.expect(token.RPAREN)
	stmt.Body = p.parseStatementOrBlock()
	return stmt
}

func (p *Parser) parseForeachTarget() ast.Expression {
	if p.curIs(token.LBRACKET) || p.curIs(token.K_LIST) {
		return p.parseExpression(precLowest)
	}
	return p.parseExpression(precPostfix)
}

func (p *Parser) parseSwitch() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	subject := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)

	stmt := &ast.SwitchStmt{Tok: tok, Subject: subject}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		var c ast.SwitchCase
		if p.curIs(token.K_CASE) {
			p.advance()
			c.Test = p.parseExpression(precLowest)
		} else if p.curIs(token.K_DEFAULT) {
			p.advance()
		} else {
			p.errorf(p.cur.Pos, "expected case or default, got %s", p.cur.Type)
			p.skipToStatementBoundary()
			continue
		}
		if p.curIs(token.COLON) || p.curIs(token.SEMICOLON) {
			p.advance()
		}
		for !p.curIs(token.K_CASE) && !p.curIs(token.K_DEFAULT) && !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			s := p.parseStatement()
			if s != nil {
				c.Statements = append(c.Statements, s)
			}
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	p.expect(token.RBRACE)
	return stmt
}

func (p *Parser) parseBreak() ast.Statement {
	tok := p.cur
	p.advance()
	level := 1
	if p.curIs(token.INT) {
		n, _ := strconv.Atoi(p.cur.Literal)
		level = n
		p.advance()
	}
	p.expectSemicolon()
	return &ast.BreakStmt{Tok: tok, Level: level}
}

func (p *Parser) parseContinue() ast.Statement {
	tok := p.cur
	p.advance()
	level := 1
	if p.curIs(token.INT) {
		n, _ := strconv.Atoi(p.cur.Literal)
		level = n
		p.advance()
	}
	p.expectSemicolon()
	return &ast.ContinueStmt{Tok: tok, Level: level}
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.cur
	p.advance()
	if p.curIs(token.SEMICOLON) {
		p.advance()
		return &ast.ReturnStmt{Tok: tok}
	}
	val := p.parseExpression(precLowest)
	p.expectSemicolon()
	return &ast.ReturnStmt{Tok: tok, Value: val}
}

func (p *Parser) parseEcho() ast.Statement {
	tok := p.cur
	p.advance()
	args := p.parseExprList(token.SEMICOLON)
	p.expectSemicolon()
	return &ast.EchoStmt{Tok: tok, Args: args}
}

func (p *Parser) parseGlobal() ast.Statement {
	tok := p.cur
	p.advance()
	stmt := &ast.GlobalStmt{Tok: tok}
	for {
		v, ok := p.expect(token.VARIABLE)
		if ok {
			stmt.Names = append(stmt.Names, v.Literal)
		}
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expectSemicolon()
	return stmt
}

func (p *Parser) parseThrow() ast.Statement {
	tok := p.cur
	p.advance()
	val := p.parseExpression(precLowest)
	p.expectSemicolon()
	return &ast.ThrowStmt{Tok: tok, Value: val}
}

func (p *Parser) parseTry() ast.Statement {
	tok := p.cur
	p.advance()
	body := p.parseBlock()
	stmt := &ast.TryStmt{Tok: tok, Body: body}
	for p.curIs(token.K_CATCH) {
		p.advance()
		p.expect(token.LPAREN)
		var cc ast.CatchClause
		cc.Types = append(cc.Types, p.parseClassRefName())
		for p.curIs(token.PIPE) {
			p.advance()
			cc.Types = append(cc.Types, p.parseClassRefName())
		}
		if p.curIs(token.VARIABLE) {
			cc.VarName = p.cur.Literal
			p.advance()
		}
		p.expect(token.RPAREN)
		cc.Body = p.parseBlock()
		stmt.Catches = append(stmt.Catches, cc)
	}
	if p.curIs(token.K_FINALLY) {
		p.advance()
		stmt.Finally = p.parseBlock()
	}
	return stmt
}

func (p *Parser) parseClassRefName() ast.Expression {
	tok := p.cur
	name := p.parseQualifiedName()
	return &ast.Identifier{Tok: tok, Name: name}
}

func (p *Parser) parseQualifiedName() string {
	var sb strings.Builder
	if p.curIs(token.BACKSLASH) {
		sb.WriteByte('\\')
		p.advance()
	}
	name, _ := p.expect(token.IDENT)
	sb.WriteString(name.Literal)
	for p.curIs(token.BACKSLASH) {
		p.advance()
		sb.WriteByte('\\')
		n, _ := p.expect(token.IDENT)
		sb.WriteString(n.Literal)
	}
	return sb.String()
}

func (p *Parser) parseUnsetStmt() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	args := p.parseExprList(token.RPAREN)
	p.expect(token.RPAREN)
	p.expectSemicolon()
	return &ast.UnsetStmt{Tok: tok, Args: args}
}

func (p *Parser) parseGoto() ast.Statement {
	tok := p.cur
	p.advance()
	name, _ := p.expect(token.IDENT)
	p.expectSemicolon()
	return &ast.GotoStmt{Tok: tok, Label: name.Literal}
}

func (p *Parser) parseLabel() ast.Statement {
	tok := p.cur
	name := p.cur.Literal
	p.advance()
	p.advance() // ':'
	return &ast.LabelStmt{Tok: tok, Label: name}
}

func (p *Parser) parseNamespace() ast.Statement {
	tok := p.cur
	p.advance()
	name := ""
	if p.curIs(token.IDENT) || p.curIs(token.BACKSLASH) {
		name = p.parseQualifiedName()
	}
	decl := &ast.NamespaceDecl{Tok: tok, Name: name}
	if p.curIs(token.LBRACE) {
		decl.Body = p.parseBlock()
	} else {
		p.expectSemicolon()
	}
	return &ast.DeclStmt{Decl: decl}
}

func (p *Parser) parseUseImport() ast.Declaration {
	tok := p.cur
	p.advance()
	kind := "class"
	if p.curIs(token.K_FUNCTION) {
		kind = "function"
		p.advance()
	} else if p.curIs(token.K_CONST) {
		kind = "const"
		p.advance()
	}
	path := p.parseQualifiedName()
	alias := ""
	if p.curIs(token.K_AS) {
		p.advance()
		a, _ := p.expect(token.IDENT)
		alias = a.Literal
	}
	p.expectSemicolon()
	return &ast.UseImportDecl{Tok: tok, Path: path, Alias: alias, Kind: kind}
}

func (p *Parser) parseTopLevelConst() ast.Declaration {
	tok := p.cur
	p.advance()
	name, _ := p.expect(token.IDENT)
	p.expect(token.ASSIGN)
	val := p.parseExpression(precLowest)
	p.expectSemicolon()
	return &ast.ConstDecl{Tok: tok, Name: name.Literal, Value: val}
}

func (p *Parser) parseDeclare() ast.Statement {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	directives := map[string]ast.Expression{}
	for {
		name, _ := p.expect(token.IDENT)
		p.expect(token.ASSIGN)
		directives[name.Literal] = p.parseExpression(precLowest)
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	stmt := &ast.DeclareStmt{Tok: tok, Directives: directives}
	if p.curIs(token.LBRACE) {
		stmt.Body = p.parseBlock()
	} else {
		p.expectSemicolon()
	}
	return stmt
}

func (p *Parser) expectSemicolon() {
	if p.curIs(token.CLOSE_TAG) || p.curIs(token.EOF) {
		return // PHP allows the closing tag to act as an implicit semicolon
	}
	p.expect(token.SEMICOLON)
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.cur
	expr := p.parseExpression(precLowest)
	p.expectSemicolon()
	return &ast.ExpressionStmt{Tok: tok, Expr: expr}
}
