// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package parser

import (
	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/lang/token"
)

func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	tok := p.cur
	p.advance() // 'function'
	byRef := false
	if p.curIs(token.AMP) {
		byRef = true
		p.advance()
	}
	name, _ := p.expect(token.IDENT)
	params := p.parseParamList()
	retType := p.parseOptionalReturnType()
	body := p.parseBlock()
	return &ast.FunctionDecl{Tok: tok, Name: name.Literal, Params: params, ReturnType: retType, ByRefReturn: byRef, Body: body}
}

func (p *Parser) parseOptionalReturnType() string {
	if !p.curIs(token.COLON) {
		return ""
	}
	p.advance()
	return p.parseTypeHint()
}

// parseTypeHint reads a (possibly nullable/union/intersection) type
// annotation and returns its source spelling; the compiler and VM interpret
// the string rather than the parser building a dedicated type AST, keeping
// this grammar corner small relative to its actual runtime impact (spec §7
// typing is enforced at call/return boundaries by the VM, not the parser).
func (p *Parser) parseTypeHint() string {
	var out string
	if p.curIs(token.QUESTION) {
		out += "?"
		p.advance()
	}
	out += p.parseTypeHintAtom()
	for p.curIs(token.PIPE) || p.curIs(token.AMP) {
		sep := p.cur.Type.String()
		p.advance()
		out += sep + p.parseTypeHintAtom()
	}
	return out
}

func (p *Parser) parseTypeHintAtom() string {
	if p.curIs(token.BACKSLASH) || p.curIs(token.IDENT) {
		return p.parseQualifiedName()
	}
	if p.curIs(token.K_ARRAY) {
		p.advance()
		return "array"
	}
	if p.curIs(token.K_STATIC) {
		p.advance()
		return "static"
	}
	if p.curIs(token.LPAREN) {
		p.advance()
		inner := p.parseTypeHint()
		p.expect(token.RPAREN)
		return "(" + inner + ")"
	}
	tok := p.cur
	p.advance()
	return tok.Literal
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(token.LPAREN)
	var params []ast.Param
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		params = append(params, p.parseParam())
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseParam() ast.Param {
	var param ast.Param

	for {
		switch p.cur.Type {
		case token.K_PUBLIC, token.K_PROTECTED, token.K_PRIVATE:
			param.PromoteVis = p.cur.Type.String()
			p.advance()
			continue
		case token.K_READONLY:
			param.Readonly = true
			p.advance()
			continue
		}
		break
	}

	if p.curIs(token.QUESTION) || p.curIs(token.IDENT) || p.curIs(token.BACKSLASH) || p.curIs(token.K_ARRAY) || p.curIs(token.K_STATIC) {
		param.TypeHint = p.parseTypeHint()
	}
	if p.curIs(token.AMP) {
		param.ByRef = true
		p.advance()
	}
	if p.curIs(token.ELLIPSIS) {
		param.Variadic = true
		p.advance()
	}
	name, _ := p.expect(token.VARIABLE)
	param.Name = name.Literal
	if p.curIs(token.ASSIGN) {
		p.advance()
		param.Default = p.parseExpression(precAssign - 1)
	}
	return param
}

func (p *Parser) parseClosureExpr(static bool) ast.Expression {
	tok := p.cur
	p.advance() // 'function'
	byRef := false
	if p.curIs(token.AMP) {
		byRef = true
		p.advance()
	}
	params := p.parseParamList()
	var uses []ast.ClosureUse
	if p.curIs(token.K_USE) {
		p.advance()
		p.expect(token.LPAREN)
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			u := ast.ClosureUse{}
			if p.curIs(token.AMP) {
				u.ByRef = true
				p.advance()
			}
			v, _ := p.expect(token.VARIABLE)
			u.Name = v.Literal
			uses = append(uses, u)
			if !p.curIs(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expect(token.RPAREN)
	}
	retType := p.parseOptionalReturnType()
	body := p.parseBlock()
	return &ast.ClosureExpr{Tok: tok, Params: params, Uses: uses, ByRefReturn: byRef, ReturnType: retType, Body: body, Static: static}
}

func (p *Parser) parseArrowFn(static bool) ast.Expression {
	tok := p.cur
	p.advance() // 'fn'
	if p.curIs(token.AMP) {
		p.advance()
	}
	params := p.parseParamList()
	retType := p.parseOptionalReturnType()
	p.expect(token.DOUBLE_ARROW)
	body := p.parseExpression(precAssign - 1)
	blk := &ast.BlockStmt{Tok: tok, Statements: []ast.Statement{&ast.ReturnStmt{Tok: tok, Value: body}}}
	return &ast.ClosureExpr{Tok: tok, Params: params, ReturnType: retType, Body: blk, Static: static, Arrow: true}
}

// ---------------------------------------------------------------------------
// Classes, interfaces, traits, enums
// ---------------------------------------------------------------------------

func (p *Parser) parseClassLike() ast.Declaration {
	abstract, final := false, false
	for p.curIs(token.K_ABSTRACT) || p.curIs(token.K_FINAL) {
		if p.curIs(token.K_ABSTRACT) {
			abstract = true
		} else {
			final = true
		}
		p.advance()
	}
	kind := p.cur.Type.String() // "class", "interface", "trait", "enum"
	p.advance()

	name, _ := p.expect(token.IDENT)
	return p.parseClassBody(kind, name.Literal, abstract, final)
}

func (p *Parser) parseClassBody(kind, name string, abstract, final bool) *ast.ClassDecl {
	tok := p.cur
	decl := &ast.ClassDecl{Tok: tok, Kind: kind, Name: name, Abstract: abstract, Final: final}

	if p.curIs(token.COLON) { // enum backing type
		p.advance()
		decl.EnumBacking = p.parseTypeHintAtom()
	}
	if p.curIs(token.K_EXTENDS) {
		p.advance()
		decl.Extends = p.parseQualifiedName()
		for p.curIs(token.COMMA) { // interfaces may extend multiple
			p.advance()
			decl.Implements = append(decl.Implements, p.parseQualifiedName())
		}
	}
	if p.curIs(token.K_IMPLEMENTS) {
		p.advance()
		decl.Implements = append(decl.Implements, p.parseQualifiedName())
		for p.curIs(token.COMMA) {
			p.advance()
			decl.Implements = append(decl.Implements, p.parseQualifiedName())
		}
	}

	p.expect(token.LBRACE)
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		p.parseClassMember(decl)
	}
	p.expect(token.RBRACE)
	return decl
}

func (p *Parser) parseClassMember(decl *ast.ClassDecl) {
	if p.curIs(token.K_USE) {
		decl.Traits = append(decl.Traits, p.parseUseTraitDecl())
		return
	}
	if p.curIs(token.K_CASE) {
		p.advance()
		name, _ := p.expect(token.IDENT)
		ec := ast.EnumCase{Name: name.Literal}
		if p.curIs(token.ASSIGN) {
			p.advance()
			ec.Value = p.parseExpression(precLowest)
		}
		p.expectSemicolon()
		decl.EnumCases = append(decl.EnumCases, ec)
		return
	}

	visibility := "public"
	static, abstract, final, readonly := false, false, false, false
	sawModifier := false
	for {
		switch p.cur.Type {
		case token.K_PUBLIC:
			visibility = "public"
			sawModifier = true
		case token.K_PROTECTED:
			visibility = "protected"
			sawModifier = true
		case token.K_PRIVATE:
			visibility = "private"
			sawModifier = true
		case token.K_STATIC:
			static = true
			sawModifier = true
		case token.K_ABSTRACT:
			abstract = true
			sawModifier = true
		case token.K_FINAL:
			final = true
			sawModifier = true
		case token.K_READONLY:
			readonly = true
			sawModifier = true
		case token.K_VAR:
			visibility = "public"
			sawModifier = true
		default:
			goto done
		}
		p.advance()
	}
done:
	_ = sawModifier

	if p.curIs(token.K_CONST) {
		p.advance()
		for {
			name, _ := p.expect(token.IDENT)
			p.expect(token.ASSIGN)
			val := p.parseExpression(precAssign - 1)
			decl.Consts = append(decl.Consts, &ast.ClassConstDecl{Tok: p.cur, Name: name.Literal, Visibility: visibility, Value: val})
			if !p.curIs(token.COMMA) {
				break
			}
			p.advance()
		}
		p.expectSemicolon()
		return
	}

	if p.curIs(token.K_FUNCTION) {
		fnTok := p.cur
		p.advance()
		byRef := false
		if p.curIs(token.AMP) {
			byRef = true
			p.advance()
		}
		name, _ := p.expect(token.IDENT)
		params := p.parseParamList()
		retType := p.parseOptionalReturnType()
		var body *ast.BlockStmt
		if p.curIs(token.LBRACE) {
			body = p.parseBlock()
		} else {
			p.expectSemicolon()
		}
		m := &ast.MethodDecl{
			FunctionDecl: ast.FunctionDecl{Tok: fnTok, Name: name.Literal, Params: params, ReturnType: retType, ByRefReturn: byRef, Body: body},
			Visibility:   visibility,
			Static:       static,
			Abstract:     abstract,
			Final:        final,
		}
		decl.Methods = append(decl.Methods, m)
		return
	}

	// Property declaration: optional type hint, then one or more $name [=
	// default] separated by commas.
	typeHint := ""
	if p.curIs(token.QUESTION) || p.curIs(token.IDENT) || p.curIs(token.BACKSLASH) || p.curIs(token.K_ARRAY) {
		typeHint = p.parseTypeHint()
	}
	for {
		nameTok, ok := p.expect(token.VARIABLE)
		if !ok {
			p.skipToStatementBoundary()
			return
		}
		prop := &ast.PropertyDecl{Tok: nameTok, Name: nameTok.Literal, Visibility: visibility, Static: static, Readonly: readonly, TypeHint: typeHint}
		if p.curIs(token.ASSIGN) {
			p.advance()
			prop.Default = p.parseExpression(precAssign - 1)
		}
		decl.Properties = append(decl.Properties, prop)
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expectSemicolon()
}

func (p *Parser) parseUseTraitDecl() *ast.UseTraitDecl {
	tok := p.cur
	p.advance()
	decl := &ast.UseTraitDecl{Tok: tok}
	decl.Traits = append(decl.Traits, p.parseQualifiedName())
	for p.curIs(token.COMMA) {
		p.advance()
		decl.Traits = append(decl.Traits, p.parseQualifiedName())
	}
	if p.curIs(token.LBRACE) {
		p.advance()
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			decl.Adaptations = append(decl.Adaptations, p.parseTraitAdaptation())
		}
		p.expect(token.RBRACE)
	} else {
		p.expectSemicolon()
	}
	return decl
}

func (p *Parser) parseTraitAdaptation() ast.TraitAdaptation {
	var a ast.TraitAdaptation
	first := p.parseQualifiedName()
	if p.curIs(token.DOUBLE_COLON) {
		p.advance()
		a.Trait = first
		name, _ := p.expect(token.IDENT)
		a.Method = name.Literal
	} else {
		a.Method = first
	}
	if p.curIs(token.IDENT) && p.cur.Literal == "insteadof" {
		p.advance()
		a.InsteadOf = append(a.InsteadOf, p.parseQualifiedName())
		for p.curIs(token.COMMA) {
			p.advance()
			a.InsteadOf = append(a.InsteadOf, p.parseQualifiedName())
		}
	} else if p.curIs(token.K_AS) {
		p.advance()
		switch p.cur.Type {
		case token.K_PUBLIC, token.K_PROTECTED, token.K_PRIVATE:
			a.AsVisibility = p.cur.Type.String()
			p.advance()
			if p.curIs(token.IDENT) {
				a.AsAlias = p.cur.Literal
				p.advance()
			}
		case token.IDENT:
			a.AsAlias = p.cur.Literal
			p.advance()
		}
	}
	p.expectSemicolon()
	return a
}
