// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lexer_test

import (
	"testing"

	"github.com/probechain/gophp/lang/lexer"
	"github.com/probechain/gophp/lang/token"
)

type tokenCase struct {
	typ     token.Type
	literal string
}

func runTokenize(t *testing.T, name, input string, want []tokenCase) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		l := lexer.New("test.php", input)
		toks := l.Tokenize()

		if len(toks) == 0 {
			t.Fatal("Tokenize returned empty slice")
		}
		last := toks[len(toks)-1]
		if last.Type != token.EOF {
			t.Errorf("last token is %s, want EOF", last.Type)
		}
		body := toks[:len(toks)-1]

		if len(body) != len(want) {
			t.Errorf("got %d tokens (excl. EOF), want %d", len(body), len(want))
			for i, tok := range body {
				t.Logf("  [%d] %s %q", i, tok.Type, tok.Literal)
			}
			return
		}
		for i, w := range want {
			got := body[i]
			if got.Type != w.typ {
				t.Errorf("token[%d]: type = %s, want %s (literal %q)", i, got.Type, w.typ, got.Literal)
			}
			if got.Literal != w.literal {
				t.Errorf("token[%d]: literal = %q, want %q", i, got.Literal, w.literal)
			}
		}
	})
}

func TestInlineHTMLAndOpenTag(t *testing.T) {
	runTokenize(t, "html-then-php", "hi <?php echo 1; ?>bye", []tokenCase{
		{token.INLINE_HTML, "hi "},
		{token.OPEN_TAG, "<?php"},
		{token.K_ECHO, "echo"},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.CLOSE_TAG, "?>"},
		{token.INLINE_HTML, "bye"},
	})
}

func TestVariablesAndKeywords(t *testing.T) {
	runTokenize(t, "var-and-keyword", "<?php if ($x) { return; }", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.K_IF, "if"},
		{token.LPAREN, "("},
		{token.VARIABLE, "x"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.K_RETURN, "return"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
	})
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	runTokenize(t, "case-insensitive-keyword", "<?php IF (TRUE) {}", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.K_IF, "IF"},
		{token.LPAREN, "("},
		{token.K_TRUE, "TRUE"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
	})
}

func TestNumberLiterals(t *testing.T) {
	runTokenize(t, "numbers", "<?php 42 3.14 0x1A 0b101 1_000 1e10", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.INT, "42"},
		{token.FLOAT, "3.14"},
		{token.INT, "0x1A"},
		{token.INT, "0b101"},
		{token.INT, "1000"},
		{token.FLOAT, "1e10"},
	})
}

func TestOperators(t *testing.T) {
	runTokenize(t, "operators", "<?php $a <=> $b ?? $c ?-> $d", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.VARIABLE, "a"},
		{token.SPACESHIP, "<=>"},
		{token.VARIABLE, "b"},
		{token.COALESCE, "??"},
		{token.VARIABLE, "c"},
		{token.NULLSAFE_ARROW, "?->"},
		{token.VARIABLE, "d"},
	})
}

func TestCastTokens(t *testing.T) {
	runTokenize(t, "casts", "<?php (int)$x (float)$y ($z)", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.CAST_INT, ""},
		{token.VARIABLE, "x"},
		{token.CAST_FLOAT, ""},
		{token.VARIABLE, "y"},
		{token.LPAREN, "("},
		{token.VARIABLE, "z"},
		{token.RPAREN, ")"},
	})
}

func TestSingleQuotedString(t *testing.T) {
	runTokenize(t, "single-quoted", `<?php 'it\'s a \\ test'`, []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.STRING, `it's a \ test`},
	})
}

func TestDoubleQuotedEscapes(t *testing.T) {
	runTokenize(t, "double-quoted-escapes", `<?php "a\nb\tc"`, []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.STRING, "a\nb\tc"},
	})
}

func TestLineAndBlockComments(t *testing.T) {
	runTokenize(t, "comments", "<?php 1 // skip\n2 /* block */ 3 # hash\n4", []tokenCase{
		{token.OPEN_TAG, "<?php"},
		{token.INT, "1"},
		{token.INT, "2"},
		{token.INT, "3"},
		{token.INT, "4"},
	})
}

func TestHeredoc(t *testing.T) {
	input := "<?php <<<EOT\nhello\nworld\nEOT;\n"
	l := lexer.New("test.php", input)
	toks := l.Tokenize()
	var found bool
	for _, tok := range toks {
		if tok.Type == token.STRING && tok.Literal == "hello\nworld" {
			found = true
		}
	}
	if !found {
		t.Errorf("did not find expected heredoc body token among: %+v", toks)
	}
}

func TestNowdoc(t *testing.T) {
	input := "<?php <<<'EOT'\nraw $x\nEOT;\n"
	l := lexer.New("test.php", input)
	toks := l.Tokenize()
	var found bool
	for _, tok := range toks {
		if tok.Type == token.STRING && tok.Literal == "raw $x" {
			found = true
		}
	}
	if !found {
		t.Errorf("did not find expected nowdoc body token among: %+v", toks)
	}
}

func TestScanInterpolationSimpleVariable(t *testing.T) {
	parts := lexer.ScanInterpolation("hello $name!")
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3: %+v", len(parts), parts)
	}
	if parts[0].Literal != "hello " || parts[0].IsExpr {
		t.Errorf("part[0] = %+v", parts[0])
	}
	if !parts[1].IsExpr || parts[1].Expr != "$name" {
		t.Errorf("part[1] = %+v", parts[1])
	}
	if parts[2].Literal != "!" || parts[2].IsExpr {
		t.Errorf("part[2] = %+v", parts[2])
	}
}

func TestScanInterpolationBracedExpr(t *testing.T) {
	parts := lexer.ScanInterpolation("sum: {$a + $b}")
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2: %+v", len(parts), parts)
	}
	if !parts[1].IsExpr || parts[1].Expr != "$a + $b" {
		t.Errorf("part[1] = %+v", parts[1])
	}
}
