// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lexer

// InterpPart is one piece of a decoded double-quoted/heredoc string body:
// either a literal run of text, or the source text of an embedded
// expression to be re-lexed and parsed on its own.
type InterpPart struct {
	Literal    string
	Expr       string // expression source text, set only when IsExpr (empty for "${}")
	IsExpr     bool
}

// ScanInterpolation splits the escape-resolved body of a double-quoted or
// heredoc string (as produced by readDoubleQuotedBody) into literal and
// expression parts, recognizing the three PHP embedding forms: a bare
// "$name" or "$name[expr]"/"$name->prop" simple lookup, and the braced
// "{$expr}" / "${expr}" general forms.
func ScanInterpolation(body string) []InterpPart {
	var parts []InterpPart
	var lit []byte
	i := 0
	n := len(body)

	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, InterpPart{Literal: string(lit)})
			lit = nil
		}
	}

	for i < n {
		c := body[i]
		if c == '{' && i+1 < n && body[i+1] == '$' {
			flush()
			depth := 1
			j := i + 1
			for j < n && depth > 0 {
				j++
				if j >= n {
					break
				}
				switch body[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			parts = append(parts, InterpPart{Expr: body[i+1 : j], IsExpr: true})
			i = j + 1
			continue
		}
		if c == '$' && i+1 < n && (isIdentStart(body[i+1])) {
			flush()
			j := i + 1
			for j < n && isIdentPart(body[j]) {
				j++
			}
			if j < n && body[j] == '[' {
				k := j + 1
				for k < n && body[k] != ']' {
					k++
				}
				if k < n {
					j = k + 1
				}
			} else if j+1 < n && body[j] == '-' && body[j+1] == '>' && j+2 < n && isIdentStart(body[j+2]) {
				k := j + 2
				for k < n && isIdentPart(body[k]) {
					k++
				}
				j = k
			}
			parts = append(parts, InterpPart{Expr: "$" + body[i+1:j], IsExpr: true})
			i = j
			continue
		}
		if c == '$' && i+1 < n && body[i+1] == '{' {
			flush()
			depth := 1
			j := i + 2
			for j < n && depth > 0 {
				if body[j] == '{' {
					depth++
				} else if body[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			parts = append(parts, InterpPart{Expr: body[i+2 : j], IsExpr: true})
			i = j + 1
			continue
		}
		lit = append(lit, c)
		i++
	}
	flush()
	return parts
}
