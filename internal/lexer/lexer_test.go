package lexer

import (
	"testing"

	"github.com/funvibe/stubinfer/internal/token"
)

func types(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func expectTypes(t *testing.T, input string, want ...token.TokenType) []token.Token {
	t.Helper()
	toks := Tokenize(input)
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("token count mismatch for %q:\n got  %v\n want %v", input, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d of %q: got %s, want %s (all: %v)", i, input, got[i], want[i], got)
		}
	}
	return toks
}

func TestSimpleAssignment(t *testing.T) {
	toks := expectTypes(t, "x = 1\n",
		token.IDENT, token.ASSIGN, token.INT, token.NEWLINE, token.EOF)
	if toks[0].Lexeme != "x" || toks[0].Line != 1 || toks[0].Column != 1 {
		t.Errorf("unexpected first token %v", toks[0])
	}
	if toks[2].Literal != "1" {
		t.Errorf("int literal = %v", toks[2].Literal)
	}
}

func TestMissingTrailingNewline(t *testing.T) {
	expectTypes(t, "pass", token.PASS, token.NEWLINE, token.EOF)
}

func TestIndentDedent(t *testing.T) {
	src := "def f():\n    if x:\n        pass\n    return 1\ny\n"
	expectTypes(t, src,
		token.DEF, token.IDENT, token.LPAREN, token.RPAREN, token.COLON, token.NEWLINE,
		token.INDENT, token.IF, token.IDENT, token.COLON, token.NEWLINE,
		token.INDENT, token.PASS, token.NEWLINE,
		token.DEDENT, token.RETURN, token.INT, token.NEWLINE,
		token.DEDENT, token.IDENT, token.NEWLINE, token.EOF)
}

func TestDedentAtEOF(t *testing.T) {
	expectTypes(t, "class A:\n    x: int",
		token.CLASS, token.IDENT, token.COLON, token.NEWLINE,
		token.INDENT, token.IDENT, token.COLON, token.IDENT, token.NEWLINE,
		token.DEDENT, token.EOF)
}

func TestBlankAndCommentLinesIgnored(t *testing.T) {
	src := "# header\n\nif a:\n\n    # inner\n    b\n"
	expectTypes(t, src,
		token.IF, token.IDENT, token.COLON, token.NEWLINE,
		token.INDENT, token.IDENT, token.NEWLINE,
		token.DEDENT, token.EOF)
}

func TestNewlinesInsideBrackets(t *testing.T) {
	expectTypes(t, "f(a,\n  b)\n",
		token.IDENT, token.LPAREN, token.IDENT, token.COMMA, token.IDENT, token.RPAREN, token.NEWLINE, token.EOF)
}

func TestBadDedent(t *testing.T) {
	toks := Tokenize("if a:\n    b\n  c\n")
	found := false
	for _, tok := range toks {
		if tok.Type == token.ILLEGAL {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ILLEGAL token for inconsistent dedent, got %v", types(toks))
	}
}

func TestOperators(t *testing.T) {
	toks := expectTypes(t, "a //= b ** c := d -> ...",
		token.IDENT, token.AUG_ASSIGN, token.IDENT, token.POWER, token.IDENT, token.WALRUS,
		token.IDENT, token.ARROW, token.ELLIPSIS, token.NEWLINE, token.EOF)
	if toks[1].Literal != "//" {
		t.Errorf("augmented assignment literal = %v, want //", toks[1].Literal)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   token.TokenType
		lit   string
	}{
		{"42", token.INT, "42"},
		{"1_000", token.INT, "1000"},
		{"0x1F", token.INT, "0x1F"},
		{"0b101", token.INT, "0b101"},
		{"3.14", token.FLOAT, "3.14"},
		{".5", token.FLOAT, ".5"},
		{"1e10", token.FLOAT, "1e10"},
		{"2j", token.IMAG, "2j"},
		{"1.5J", token.IMAG, "1.5J"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := New(tt.input).NextToken()
			if tok.Type != tt.typ {
				t.Fatalf("type = %s, want %s", tok.Type, tt.typ)
			}
			if tok.Literal != tt.lit {
				t.Errorf("literal = %v, want %s", tok.Literal, tt.lit)
			}
		})
	}
}

func TestBadNumbers(t *testing.T) {
	for _, in := range []string{"0b102", "12abc", "0x"} {
		if tok := New(in).NextToken(); tok.Type != token.ILLEGAL {
			t.Errorf("%q: got %s, want ILLEGAL", in, tok.Type)
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   token.TokenType
		lit   string
	}{
		{`"abc"`, token.STRING, "abc"},
		{`'a\nb'`, token.STRING, "a\nb"},
		{`r'a\nb'`, token.STRING, `a\nb`},
		{`b"xy"`, token.BYTES, "xy"},
		{`"""multi
line"""`, token.STRING, "multi\nline"},
		{`f"{x} and {y!r}"`, token.FSTRING, "{x} and {y!r}"},
		{`"\u00e9"`, token.STRING, "é"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := New(tt.input).NextToken()
			if tok.Type != tt.typ {
				t.Fatalf("type = %s, want %s", tok.Type, tt.typ)
			}
			if tok.Literal != tt.lit {
				t.Errorf("literal = %q, want %q", tok.Literal, tt.lit)
			}
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	if tok := New(`"abc`).NextToken(); tok.Type != token.ILLEGAL {
		t.Fatalf("got %s, want ILLEGAL", tok.Type)
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	toks := expectTypes(t, "переменная = _x1", token.IDENT, token.ASSIGN, token.IDENT, token.NEWLINE, token.EOF)
	if toks[0].Lexeme != "переменная" {
		t.Errorf("lexeme = %q", toks[0].Lexeme)
	}
}

func TestKeywords(t *testing.T) {
	expectTypes(t, "for x in y if not z",
		token.FOR, token.IDENT, token.IN, token.IDENT, token.IF, token.NOT, token.IDENT, token.NEWLINE, token.EOF)
}

func TestLineContinuation(t *testing.T) {
	expectTypes(t, "a = \\\n  b\n", token.IDENT, token.ASSIGN, token.IDENT, token.NEWLINE, token.EOF)
}
