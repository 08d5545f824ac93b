// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lexer

import (
	"strings"

	"github.com/probechain/gophp/lang/token"
)

// readNumberFromFirst scans an integer or float literal starting at the
// already-consumed digit `first`. Supports decimal, 0x/0X hex, 0o/0O and
// legacy 0NNN octal, 0b/0B binary, underscore digit separators, and float
// forms with a fractional part and/or exponent.
func (l *Lexer) readNumberFromFirst(first byte) (token.Type, string) {
	start := l.pos - 2

	if first == '0' && (l.ch == 'x' || l.ch == 'X') {
		l.advance()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.advance()
		}
		return token.INT, cleanUnderscores(string(l.input[start : l.pos-1]))
	}
	if first == '0' && (l.ch == 'o' || l.ch == 'O') {
		l.advance()
		for isOctalDigit(l.ch) || l.ch == '_' {
			l.advance()
		}
		return token.INT, cleanUnderscores(string(l.input[start : l.pos-1]))
	}
	if first == '0' && (l.ch == 'b' || l.ch == 'B') {
		l.advance()
		for l.ch == '0' || l.ch == '1' || l.ch == '_' {
			l.advance()
		}
		return token.INT, cleanUnderscores(string(l.input[start : l.pos-1]))
	}

	for isDigit(l.ch) || l.ch == '_' {
		l.advance()
	}

	isFloat := false
	if l.ch == '.' && isDigit(l.peek()) {
		isFloat = true
		l.advance()
		for isDigit(l.ch) || l.ch == '_' {
			l.advance()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.pos
		saveCh := l.ch
		saveLine, saveCol := l.line, l.col
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			l.advance()
		}
		if isDigit(l.ch) {
			isFloat = true
			for isDigit(l.ch) {
				l.advance()
			}
		} else {
			l.pos, l.ch, l.line, l.col = save, saveCh, saveLine, saveCol
		}
	}

	lit := cleanUnderscores(string(l.input[start : l.pos-1]))
	if isFloat {
		return token.FLOAT, lit
	}
	// A legacy octal literal is any all-decimal-digit run starting with a
	// leading 0 and more than one digit; it stays an INT token with its
	// source text, and the parser's parseIntLiteral reads it as base 8.
	return token.INT, lit
}

// readNumberFromFirst2 handles the case where the lexer has already
// consumed a leading '.' (DOT) and the following character is a digit,
// i.e. a float literal written as ".5".
func (l *Lexer) readNumberFromFirst2(dot byte) (token.Type, string) {
	start := l.pos - 2
	_ = dot
	for isDigit(l.ch) || l.ch == '_' {
		l.advance()
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.advance()
		if l.ch == '+' || l.ch == '-' {
			l.advance()
		}
		for isDigit(l.ch) {
			l.advance()
		}
	}
	return token.FLOAT, cleanUnderscores(string(l.input[start : l.pos-1]))
}

func cleanUnderscores(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isOctalDigit(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

// readSingleQuotedBody scans a '...'-quoted literal body; the opening quote
// has already been consumed. Only \\ and \' are recognized escapes, matching
// PHP's single-quoted string rules — everything else is literal.
func (l *Lexer) readSingleQuotedBody() (string, bool) {
	var sb strings.Builder
	for {
		if l.ch == 0 {
			return "unterminated string literal", false
		}
		if l.ch == '\'' {
			l.advance()
			return sb.String(), true
		}
		if l.ch == '\\' && (l.peek() == '\'' || l.peek() == '\\') {
			l.advance()
			sb.WriteByte(l.ch)
			l.advance()
			continue
		}
		sb.WriteByte(l.ch)
		l.advance()
	}
}

// readDoubleQuotedBody scans a "..."-quoted literal body, resolving the
// standard backslash escapes, and returns the escape-resolved text. No
// variable interpolation is performed: the parser turns every STRING token
// into a plain StringLiteral, so "$name" and "{$expr}" stay literal text.
// ScanInterpolation (see interpolation.go) can split such a body into
// parts, but neither the lexer nor the parser calls it.
func (l *Lexer) readDoubleQuotedBody() (string, bool) {
	var sb strings.Builder
	for {
		if l.ch == 0 {
			return "unterminated string literal", false
		}
		if l.ch == '"' {
			l.advance()
			return sb.String(), true
		}
		if l.ch == '\\' {
			l.advance()
			esc, ok := decodeEscape(l)
			if !ok {
				return "invalid escape sequence", false
			}
			sb.WriteString(esc)
			continue
		}
		sb.WriteByte(l.ch)
		l.advance()
	}
}

func decodeEscape(l *Lexer) (string, bool) {
	ch := l.ch
	switch ch {
	case 'n':
		l.advance()
		return "\n", true
	case 't':
		l.advance()
		return "\t", true
	case 'r':
		l.advance()
		return "\r", true
	case 'v':
		l.advance()
		return "\v", true
	case 'f':
		l.advance()
		return "\f", true
	case 'e':
		l.advance()
		return "\x1b", true
	case '\\', '"', '$':
		l.advance()
		return string(ch), true
	case 'x':
		l.advance()
		start := l.pos - 1
		n := 0
		for n < 2 && isHexDigit(l.ch) {
			l.advance()
			n++
		}
		if n == 0 {
			return "\\x", true
		}
		v, _ := strconvParseHexByte(l.input[start : l.pos-1])
		return string([]byte{v}), true
	case '0', '1', '2', '3', '4', '5', '6', '7':
		start := l.pos - 1
		n := 0
		for n < 3 && isOctalDigit(l.ch) {
			l.advance()
			n++
		}
		v := parseOctalByte(l.input[start : l.pos-1])
		return string([]byte{v}), true
	default:
		l.advance()
		return "\\" + string(ch), true
	}
}

func strconvParseHexByte(digits []byte) (byte, bool) {
	var v int
	for _, d := range digits {
		v *= 16
		switch {
		case d >= '0' && d <= '9':
			v += int(d - '0')
		case d >= 'a' && d <= 'f':
			v += int(d-'a') + 10
		case d >= 'A' && d <= 'F':
			v += int(d-'A') + 10
		}
	}
	return byte(v), true
}

func parseOctalByte(digits []byte) byte {
	var v int
	for _, d := range digits {
		v = v*8 + int(d-'0')
	}
	return byte(v)
}
