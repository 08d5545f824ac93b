// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lexer

import (
	"strings"

	"github.com/probechain/gophp/lang/token"
)

// Tokenize runs NextToken to exhaustion and returns every token produced,
// always ending with exactly one EOF.
func (l *Lexer) Tokenize() []token.Token {
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

// readHeredocOrNowdoc scans a <<<LABEL ... LABEL; body starting just after
// the "<<<" has been consumed. A quoted label ("'LABEL'") marks a nowdoc
// (no interpolation, no escape processing); an unquoted or double-quoted
// label marks a heredoc. The closing label must start a line, optionally
// indented, and that indentation is stripped from every body line (PHP
// 7.3+ flexible heredoc syntax).
func (l *Lexer) readHeredocOrNowdoc() (typ token.Type, body string, ok bool) {
	for l.ch == ' ' || l.ch == '\t' {
		l.advance()
	}
	nowdoc := false
	if l.ch == '\'' {
		nowdoc = true
		l.advance()
	} else if l.ch == '"' {
		l.advance()
	}
	if !isIdentStart(l.ch) {
		return token.ILLEGAL, "malformed heredoc label", false
	}
	label := l.readIdent()
	if nowdoc {
		if l.ch != '\'' {
			return token.ILLEGAL, "unterminated nowdoc label", false
		}
		l.advance()
	} else if l.ch == '"' {
		l.advance()
	}
	for l.ch == '\r' {
		l.advance()
	}
	if l.ch != '\n' {
		return token.ILLEGAL, "expected newline after heredoc label", false
	}
	l.advance()

	start := l.pos - 1
	for {
		if l.ch == 0 {
			return token.ILLEGAL, "unterminated heredoc", false
		}
		lineStart := l.pos - 1
		indent := 0
		for l.ch == ' ' || l.ch == '\t' {
			indent++
			l.advance()
		}
		if matchesLabelHere(l, label) {
			bodyEnd := lineStart
			if bodyEnd > start && l.input[bodyEnd-1] == '\n' {
				bodyEnd--
			}
			raw := string(l.input[start:bodyEnd])
			for i := 0; i < len(label); i++ {
				l.advance()
			}
			stripped := stripIndent(raw, indent)
			if nowdoc {
				return token.STRING, stripped, true
			}
			return token.STRING, resolveHeredocEscapes(stripped), true
		}
		for l.ch != 0 && l.ch != '\n' {
			l.advance()
		}
		if l.ch == '\n' {
			l.advance()
		}
	}
}

func matchesLabelHere(l *Lexer, label string) bool {
	rest := l.input[l.pos-1:]
	if len(rest) < len(label) {
		return false
	}
	if string(rest[:len(label)]) != label {
		return false
	}
	after := byte(0)
	if len(rest) > len(label) {
		after = rest[len(label)]
	}
	return !isIdentPart(after)
}

func stripIndent(body string, indent int) string {
	if indent == 0 {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, ln := range lines {
		cut := 0
		for cut < indent && cut < len(ln) && (ln[cut] == ' ' || ln[cut] == '\t') {
			cut++
		}
		lines[i] = ln[cut:]
	}
	return strings.Join(lines, "\n")
}

// resolveHeredocEscapes applies the same backslash-escape rules as a
// double-quoted string to a heredoc body. Like "..." strings, heredoc
// bodies are not interpolated.
func resolveHeredocEscapes(body string) string {
	var sb strings.Builder
	sub := &Lexer{input: []byte(body), line: 1}
	sub.advance()
	for sub.ch != 0 {
		if sub.ch == '\\' {
			sub.advance()
			esc, ok := decodeEscape(sub)
			if !ok {
				sb.WriteByte('\\')
				continue
			}
			sb.WriteString(esc)
			continue
		}
		sb.WriteByte(sub.ch)
		sub.advance()
	}
	return sb.String()
}
