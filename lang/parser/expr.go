// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package parser

import (
	"strconv"

	"github.com/probechain/gophp/lang/ast"
	"github.com/probechain/gophp/lang/token"
)

func (p *Parser) peekPrecedence() precedence {
	if prec, ok := infixPrecedence[p.cur.Type]; ok {
		return prec
	}
	return precLowest
}

// parseExpression is the Pratt loop: parse one prefix expression, then keep
// consuming infix/postfix operators whose precedence exceeds prec.
func (p *Parser) parseExpression(prec precedence) ast.Expression {
	left := p.parsePrefix()
	for !p.curIs(token.SEMICOLON) && prec < p.currentPrecedence() {
		next, ok := p.parseInfix(left)
		if !ok {
			break
		}
		left = next
	}
	return left
}

func (p *Parser) currentPrecedence() precedence {
	if prec, ok := infixPrecedence[p.cur.Type]; ok {
		return prec
	}
	return precLowest
}

func isAssignLike(t token.Type) bool {
	switch t {
	case token.ASSIGN, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ,
		token.PERCENTEQ, token.POWEQ, token.DOTEQ, token.AMPEQ, token.PIPEEQ,
		token.CARETEQ, token.LSHIFTEQ, token.RSHIFTEQ, token.COALESCEEQ, token.REF_ASSIGN:
		return true
	}
	return false
}

func compoundOpOf(t token.Type) string {
	switch t {
	case token.PLUSEQ:
		return "+"
	case token.MINUSEQ:
		return "-"
	case token.STAREQ:
		return "*"
	case token.SLASHEQ:
		return "/"
	case token.PERCENTEQ:
		return "%"
	case token.POWEQ:
		return "**"
	case token.DOTEQ:
		return "."
	case token.AMPEQ:
		return "&"
	case token.PIPEEQ:
		return "|"
	case token.CARETEQ:
		return "^"
	case token.LSHIFTEQ:
		return "<<"
	case token.RSHIFTEQ:
		return ">>"
	case token.COALESCEEQ:
		return "??"
	}
	return ""
}

func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, bool) {
	tok := p.cur

	if isAssignLike(tok.Type) {
		p.advance()
		if tok.Type == token.REF_ASSIGN {
			val := p.parseExpression(precAssign - 1)
			return &ast.AssignExpr{Tok: tok, Target: left, ByRef: true, Value: val}, true
		}
		val := p.parseExpression(precAssign - 1)
		return &ast.AssignExpr{Tok: tok, Target: left, Compound: compoundOpOf(tok.Type), Value: val}, true
	}

	switch tok.Type {
	case token.QUESTION:
		p.advance()
		if p.curIs(token.COLON) {
			p.advance()
			elseExpr := p.parseExpression(precTernary)
			return &ast.TernaryExpr{Tok: tok, Cond: left, Else: elseExpr}, true
		}
		then := p.parseExpression(precLowest)
		p.expect(token.COLON)
		elseExpr := p.parseExpression(precTernary)
		return &ast.TernaryExpr{Tok: tok, Cond: left, Then: then, Else: elseExpr}, true

	case token.COALESCE:
		p.advance()
		right := p.parseExpression(precCoalesce - 1) // right-assoc
		return &ast.InfixExpr{Tok: tok, Left: left, Operator: "??", Right: right}, true

	case token.POW:
		p.advance()
		right := p.parseExpression(precPow - 1) // right-assoc
		return &ast.InfixExpr{Tok: tok, Left: left, Operator: "**", Right: right}, true

	case token.K_INSTANCEOF:
		p.advance()
		ref := p.parseClassRefExpr()
		return &ast.InstanceOfExpr{Tok: tok, Value: left, ClassRef: ref}, true

	case token.INC:
		p.advance()
		return &ast.PostfixExpr{Tok: tok, Operator: "++", Left: left}, true
	case token.DEC:
		p.advance()
		return &ast.PostfixExpr{Tok: tok, Operator: "--", Left: left}, true

	case token.ARROW, token.NULLSAFE_ARROW:
		p.advance()
		nullSafe := tok.Type == token.NULLSAFE_ARROW
		var prop ast.Expression
		if p.curIs(token.LBRACE) {
			p.advance()
			prop = p.parseExpression(precLowest)
			p.expect(token.RBRACE)
		} else if p.curIs(token.VARIABLE) {
			prop = &ast.VariableExpr{Tok: p.cur, Name: p.cur.Literal}
			p.advance()
		} else {
			name, _ := p.expect(token.IDENT)
			prop = &ast.Identifier{Tok: name, Name: name.Literal}
		}
		access := ast.Expression(&ast.PropertyAccessExpr{Tok: tok, Object: left, Property: prop, NullSafe: nullSafe})
		if p.curIs(token.LPAREN) {
			args := p.parseArgList()
			return &ast.CallExpr{Tok: tok, Callee: access, Args: args}, true
		}
		return access, true

	case token.DOUBLE_COLON:
		p.advance()
		if p.curIs(token.VARIABLE) {
			v := &ast.VariableExpr{Tok: p.cur, Name: p.cur.Literal}
			p.advance()
			return &ast.StaticPropertyAccessExpr{Tok: tok, ClassRef: left, Property: v}, true
		}
		if p.curIs(token.K_CLASS) {
			p.advance()
			return &ast.ClassConstFetchExpr{Tok: tok, ClassRef: left, Name: "class"}, true
		}
		name, _ := p.expect(token.IDENT)
		if p.curIs(token.LPAREN) {
			args := p.parseArgList()
			return &ast.StaticCallExpr{Tok: tok, ClassRef: left, Method: &ast.Identifier{Tok: name, Name: name.Literal}, Args: args}, true
		}
		return &ast.ClassConstFetchExpr{Tok: tok, ClassRef: left, Name: name.Literal}, true

	case token.LBRACKET:
		p.advance()
		if p.curIs(token.RBRACKET) {
			p.advance()
			return &ast.IndexExpr{Tok: tok, Array: left, Index: nil}, true
		}
		idx := p.parseExpression(precLowest)
		p.expect(token.RBRACKET)
		return &ast.IndexExpr{Tok: tok, Array: left, Index: idx}, true

	case token.LPAREN:
		args := p.parseArgList()
		return &ast.CallExpr{Tok: tok, Callee: left, Args: args}, true
	}

	prec, ok := infixPrecedence[tok.Type]
	if !ok {
		return nil, false
	}
	opLit := tok.Type.String()
	p.advance()
	right := p.parseExpression(prec)
	return &ast.InfixExpr{Tok: tok, Left: left, Operator: opLit, Right: right}, true
}

func (p *Parser) parseArgList() []ast.Argument {
	p.expect(token.LPAREN)
	var args []ast.Argument
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		var a ast.Argument
		if p.curIs(token.ELLIPSIS) {
			p.advance()
			a.Spread = true
			a.Value = p.parseExpression(precAssign - 1)
		} else if p.curIs(token.IDENT) && p.peekIs(token.COLON) {
			a.Name = p.cur.Literal
			p.advance()
			p.advance()
			a.Value = p.parseExpression(precAssign - 1)
		} else {
			a.Value = p.parseExpression(precAssign - 1)
		}
		args = append(args, a)
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return args
}

func (p *Parser) parseClassRefExpr() ast.Expression {
	switch p.cur.Type {
	case token.VARIABLE:
		v := &ast.VariableExpr{Tok: p.cur, Name: p.cur.Literal}
		p.advance()
		return v
	default:
		tok := p.cur
		name := p.parseQualifiedName()
		return &ast.Identifier{Tok: tok, Name: name}
	}
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur

	switch tok.Type {
	case token.INT:
		p.advance()
		v := parseIntLiteral(tok.Literal)
		return &ast.IntLiteral{Tok: tok, Value: v}

	case token.FLOAT:
		p.advance()
		v, _ := strconv.ParseFloat(tok.Literal, 64)
		return &ast.FloatLiteral{Tok: tok, Value: v}

	case token.STRING:
		p.advance()
		return p.stringLiteralOrInterp(tok)

	case token.K_TRUE:
		p.advance()
		return &ast.BoolLiteral{Tok: tok, Value: true}
	case token.K_FALSE:
		p.advance()
		return &ast.BoolLiteral{Tok: tok, Value: false}
	case token.K_NULL:
		p.advance()
		return &ast.NullLiteral{Tok: tok}

	case token.VARIABLE:
		p.advance()
		return &ast.VariableExpr{Tok: tok, Name: tok.Literal}

	case token.DOLLAR:
		p.advance()
		if p.curIs(token.LBRACE) {
			p.advance()
			inner := p.parseExpression(precLowest)
			p.expect(token.RBRACE)
			return &ast.VariableVariableExpr{Tok: tok, Name: inner}
		}
		inner := p.parsePrefix()
		return &ast.VariableVariableExpr{Tok: tok, Name: inner}

	case token.IDENT, token.BACKSLASH:
		name := p.parseQualifiedName()
		return &ast.Identifier{Tok: tok, Name: name}

	case token.K_ARRAY:
		p.advance()
		p.expect(token.LPAREN)
		return p.finishArrayLiteral(tok, token.RPAREN)

	case token.LBRACKET:
		p.advance()
		return p.finishArrayLiteral(tok, token.RBRACKET)

	case token.K_LIST:
		p.advance()
		p.expect(token.LPAREN)
		arr := p.finishArrayLiteral(tok, token.RPAREN)
		return &ast.ListExpr{Tok: tok, Elements: arr.(*ast.ArrayLiteral).Elements}

	case token.LPAREN:
		p.advance()
		inner := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		return inner

	case token.MINUS, token.PLUS, token.BANG, token.TILDE, token.AT:
		p.advance()
		right := p.parseExpression(precUnary)
		return &ast.PrefixExpr{Tok: tok, Operator: tok.Type.String(), Right: right}

	case token.INC, token.DEC:
		p.advance()
		right := p.parseExpression(precUnary)
		return &ast.PrefixExpr{Tok: tok, Operator: tok.Type.String(), Right: right}

	case token.AMP:
		p.advance()
		right := p.parseExpression(precUnary)
		return &ast.PrefixExpr{Tok: tok, Operator: "&", Right: right}

	case token.K_NOT:
		p.advance()
		right := p.parseExpression(precWordLogic)
		return &ast.PrefixExpr{Tok: tok, Operator: "!", Right: right}

	case token.CAST_INT:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "int", Value: p.parseExpression(precUnary)}
	case token.CAST_FLOAT:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "float", Value: p.parseExpression(precUnary)}
	case token.CAST_STRING:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "string", Value: p.parseExpression(precUnary)}
	case token.CAST_BOOL:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "bool", Value: p.parseExpression(precUnary)}
	case token.CAST_ARRAY:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "array", Value: p.parseExpression(precUnary)}
	case token.CAST_OBJECT:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "object", Value: p.parseExpression(precUnary)}
	case token.CAST_UNSET:
		p.advance()
		return &ast.CastExpr{Tok: tok, Type: "unset", Value: p.parseExpression(precUnary)}

	case token.K_NEW:
		return p.parseNewExpr()
	case token.K_CLONE:
		p.advance()
		return &ast.CloneExpr{Tok: tok, Value: p.parseExpression(precUnary)}
	case token.K_ISSET:
		p.advance()
		p.expect(token.LPAREN)
		args := p.parseExprList(token.RPAREN)
		p.expect(token.RPAREN)
		return &ast.IssetExpr{Tok: tok, Args: args}
	case token.K_EMPTY:
		p.advance()
		p.expect(token.LPAREN)
		arg := p.parseExpression(precLowest)
		p.expect(token.RPAREN)
		return &ast.EmptyExpr{Tok: tok, Arg: arg}
	case token.K_FUNCTION:
		return p.parseClosureExpr(false)
	case token.K_STATIC:
		if p.peekIs(token.K_FUNCTION) || p.peekIs(token.K_FN) {
			p.advance()
			if p.curIs(token.K_FN) {
				return p.parseArrowFn(true)
			}
			return p.parseClosureExpr(true)
		}
		p.advance()
		return &ast.Identifier{Tok: tok, Name: "static"}
	case token.K_FN:
		return p.parseArrowFn(false)
	case token.K_YIELD:
		return p.parseYieldExpr()
	case token.K_MATCH:
		return p.parseMatchExpr()
	case token.ELLIPSIS:
		p.advance()
		return &ast.PrefixExpr{Tok: tok, Operator: "...", Right: p.parseExpression(precAssign - 1)}
	}

	p.errorf(tok.Pos, "unexpected token %s %q in expression", tok.Type, tok.Literal)
	p.advance()
	return &ast.ErrorNode{Tok: tok, Message: "unexpected token in expression"}
}

func (p *Parser) finishArrayLiteral(tok token.Token, end token.Type) ast.Expression {
	lit := &ast.ArrayLiteral{Tok: tok}
	for !p.curIs(end) && !p.curIs(token.EOF) {
		var el ast.ArrayElement
		if p.curIs(token.ELLIPSIS) {
			p.advance()
			el.Spread = true
			el.Value = p.parseExpression(precAssign - 1)
		} else {
			if p.curIs(token.AMP) {
				p.advance()
				el.ByRef = true
			}
			first := p.parseExpression(precAssign - 1)
			if p.curIs(token.DOUBLE_ARROW) {
				p.advance()
				el.Key = first
				if p.curIs(token.AMP) {
					p.advance()
					el.ByRef = true
				}
				el.Value = p.parseExpression(precAssign - 1)
			} else {
				el.Value = first
			}
		}
		lit.Elements = append(lit.Elements, el)
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(end)
	return lit
}

func (p *Parser) parseNewExpr() ast.Expression {
	tok := p.cur
	p.advance()
	if p.curIs(token.K_CLASS) {
		p.advance()
		var args []ast.Argument
		if p.curIs(token.LPAREN) {
			args = p.parseArgList()
		}
		anon := p.parseClassBody("class", "", false, false)
		return &ast.NewExpr{Tok: tok, Args: args, AnonBody: anon}
	}
	ref := p.parseClassRefExpr()
	var args []ast.Argument
	if p.curIs(token.LPAREN) {
		args = p.parseArgList()
	}
	return &ast.NewExpr{Tok: tok, ClassRef: ref, Args: args}
}

func (p *Parser) parseYieldExpr() ast.Expression {
	tok := p.cur
	p.advance()
	if p.curIs(token.IDENT) && p.cur.Literal == "from" {
		p.advance()
		val := p.parseExpression(precAssign - 1)
		return &ast.YieldExpr{Tok: tok, Value: val, From: true}
	}
	if p.curIs(token.SEMICOLON) || p.curIs(token.RPAREN) || p.curIs(token.COMMA) {
		return &ast.YieldExpr{Tok: tok}
	}
	first := p.parseExpression(precAssign - 1)
	if p.curIs(token.DOUBLE_ARROW) {
		p.advance()
		val := p.parseExpression(precAssign - 1)
		return &ast.YieldExpr{Tok: tok, Key: first, Value: val}
	}
	return &ast.YieldExpr{Tok: tok, Value: first}
}

func (p *Parser) parseMatchExpr() ast.Expression {
	tok := p.cur
	p.advance()
	p.expect(token.LPAREN)
	subject := p.parseExpression(precLowest)
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)

	expr := &ast.MatchExpr{Tok: tok, Subject: subject}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		var arm ast.MatchArm
		if p.curIs(token.K_DEFAULT) {
			p.advance()
		} else {
			arm.Conditions = append(arm.Conditions, p.parseExpression(precLowest))
			for p.curIs(token.COMMA) && !p.peekIs(token.DOUBLE_ARROW) {
				p.advance()
				arm.Conditions = append(arm.Conditions, p.parseExpression(precLowest))
			}
		}
		p.expect(token.DOUBLE_ARROW)
		arm.Result = p.parseExpression(precAssign - 1)
		expr.Arms = append(expr.Arms, arm)
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RBRACE)
	return expr
}

func (p *Parser) stringLiteralOrInterp(tok token.Token) ast.Expression {
	return &ast.StringLiteral{Tok: tok, Value: []byte(tok.Literal)}
}

func parseIntLiteral(lit string) int64 {
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		n, _ := strconv.ParseInt(lit[2:], 16, 64)
		return n
	}
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'o' || lit[1] == 'O') {
		n, _ := strconv.ParseInt(lit[2:], 8, 64)
		return n
	}
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'b' || lit[1] == 'B') {
		n, _ := strconv.ParseInt(lit[2:], 2, 64)
		return n
	}
	if len(lit) > 1 && lit[0] == '0' {
		if n, err := strconv.ParseInt(lit, 8, 64); err == nil {
			return n
		}
	}
	n, _ := strconv.ParseInt(lit, 10, 64)
	return n
}
