package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/funvibe/stubinfer/internal/token"
)

func isStringPrefix(s string) bool {
	if len(s) > 2 {
		return false
	}
	switch strings.ToLower(s) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

// readString reads a (possibly triple-quoted) string literal starting at the
// opening quote. The token Literal holds the decoded value; for f-strings it
// holds the raw body so the parser can extract replacement fields.
func (l *Lexer) readString(prefix string) token.Token {
	line, col := l.line, l.column
	start := l.position - len(prefix)
	p := strings.ToLower(prefix)
	raw := strings.Contains(p, "r")
	isBytes := strings.Contains(p, "b")
	isF := strings.Contains(p, "f")

	quote := l.ch
	triple := l.peekChar() == quote && l.peekChar2() == quote
	l.readChar()
	if triple {
		l.readChar()
		l.readChar()
	}

	var body strings.Builder
	for {
		if l.ch == 0 {
			return l.illegal(line, col, l.input[start:l.position], "unterminated string literal")
		}
		if l.ch == '\n' && !triple {
			return l.illegal(line, col, l.input[start:l.position], "unterminated string literal")
		}
		if l.ch == quote {
			if !triple {
				l.readChar()
				break
			}
			if l.peekChar() == quote && l.peekChar2() == quote {
				l.readChar()
				l.readChar()
				l.readChar()
				break
			}
		}
		if l.ch == '\\' {
			if raw || isF {
				body.WriteRune(l.ch)
				l.readChar()
				if l.ch != 0 {
					body.WriteRune(l.ch)
					l.readChar()
				}
				continue
			}
			l.readChar()
			l.readEscape(&body)
			continue
		}
		body.WriteRune(l.ch)
		l.readChar()
	}

	lexeme := l.input[start:l.position]
	tt := token.STRING
	switch {
	case isF:
		tt = token.FSTRING
	case isBytes:
		tt = token.BYTES
	}
	return token.Token{Type: tt, Lexeme: lexeme, Literal: body.String(), Line: line, Column: col}
}

// readEscape decodes the escape sequence whose backslash was just consumed.
func (l *Lexer) readEscape(b *strings.Builder) {
	switch l.ch {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '0':
		b.WriteByte(0)
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '\\', '\'', '"':
		b.WriteRune(l.ch)
	case '\n':
		// line continuation inside a string
	case 'x':
		if v, ok := l.readHexEscape(2); ok {
			b.WriteRune(rune(v))
			l.readChar()
			return
		}
		b.WriteString(`\x`)
	case 'u':
		if v, ok := l.readHexEscape(4); ok {
			b.WriteRune(rune(v))
			l.readChar()
			return
		}
		b.WriteString(`\u`)
	case 'U':
		if v, ok := l.readHexEscape(8); ok && utf8.ValidRune(rune(v)) {
			b.WriteRune(rune(v))
			l.readChar()
			return
		}
		b.WriteString(`\U`)
	case 0:
		return
	default:
		// Unknown escape - keep both
		b.WriteByte('\\')
		b.WriteRune(l.ch)
	}
	l.readChar()
}

func (l *Lexer) readHexEscape(n int) (int64, bool) {
	var val int64
	for i := 0; i < n; i++ {
		if !isHexDigit(l.peekChar()) {
			return 0, false
		}
		l.readChar()
		d, _ := strconv.ParseInt(string(l.ch), 16, 64)
		val = val*16 + d
	}
	return val, true
}

// readNumber reads an integer, float or imaginary literal. The Literal is
// the lexeme with digit separators removed.
func (l *Lexer) readNumber() token.Token {
	line, col := l.line, l.column
	start := l.position
	tt := token.INT

	if l.ch == '0' && strings.ContainsRune("xXoObB", l.peekChar()) {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		lexeme := l.input[start:l.position]
		clean := strings.ReplaceAll(lexeme, "_", "")
		if !validPrefixedInt(clean) {
			return l.illegal(line, col, lexeme, "invalid integer literal %q", lexeme)
		}
		return token.Token{Type: tt, Lexeme: lexeme, Literal: clean, Line: line, Column: col}
	}

	l.readDigits()
	if l.ch == '.' && l.peekChar() != '.' {
		tt = token.FLOAT
		l.readChar()
		l.readDigits()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekChar2())) {
			tt = token.FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			l.readDigits()
		}
	}
	if l.ch == 'j' || l.ch == 'J' {
		tt = token.IMAG
		l.readChar()
	}

	lexeme := l.input[start:l.position]
	clean := strings.ReplaceAll(lexeme, "_", "")
	if isLetter(l.ch) {
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		bad := l.input[start:l.position]
		return l.illegal(line, col, bad, "invalid numeric literal %q", bad)
	}
	return token.Token{Type: tt, Lexeme: lexeme, Literal: clean, Line: line, Column: col}
}

func (l *Lexer) readDigits() {
	for isDigit(l.ch) || (l.ch == '_' && isDigit(l.peekChar())) {
		l.readChar()
	}
}

func validPrefixedInt(s string) bool {
	if len(s) <= 2 {
		return false
	}
	base := 16
	switch s[1] {
	case 'o', 'O':
		base = 8
	case 'b', 'B':
		base = 2
	}
	for _, r := range s[2:] {
		d, err := strconv.ParseUint(string(r), 16, 8)
		if err != nil || int(d) >= base {
			return false
		}
	}
	return true
}
