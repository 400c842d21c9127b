package lexer

import (
	"fmt"
	"unicode/utf8"

	"github.com/funvibe/stubinfer/internal/token"
	"github.com/smasher164/xid"
)

const tabSize = 8

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	indents     []int         // indentation stack, always starts with 0
	pending     []token.Token // queued INDENT/DEDENT/NEWLINE tokens
	depth       int           // bracket nesting; newlines are ignored when > 0
	atLineStart bool
	last        token.TokenType
	done        bool
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0, indents: []int{0}, atLineStart: true}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		l.column++
		return
	}
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	pos2 := l.readPosition + w
	if pos2 >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos2:])
	return r
}

// Tokenize runs the lexer to EOF and returns every token, EOF included.
func Tokenize(input string) []token.Token {
	l := New(input)
	var out []token.Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

// NextToken returns the next token, synthesizing NEWLINE, INDENT and DEDENT
// from the physical layout of the source.
func (l *Lexer) NextToken() token.Token {
	tok := l.nextToken()
	l.last = tok.Type
	return tok
}

func (l *Lexer) nextToken() token.Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	if l.done {
		return l.make(token.EOF, "")
	}

	if l.atLineStart && l.depth == 0 {
		if tok, ok := l.readIndentation(); ok {
			return tok
		}
	}

	l.skipWhitespace()

	switch {
	case l.ch == 0:
		return l.finish()
	case l.ch == '\n':
		line, col := l.line, l.column
		l.readChar()
		if l.depth > 0 {
			return l.nextToken()
		}
		l.atLineStart = true
		return token.Token{Type: token.NEWLINE, Lexeme: "\n", Line: line, Column: col}
	case isLetter(l.ch):
		return l.readIdentOrString()
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		return l.readNumber()
	case l.ch == '"' || l.ch == '\'':
		return l.readString("")
	}
	return l.readOperator()
}

// readIndentation measures the indentation of a new logical line and emits
// INDENT or DEDENT tokens when it changes. Blank and comment-only lines are skipped.
func (l *Lexer) readIndentation() (token.Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' {
			if l.ch == '\t' {
				width = (width/tabSize + 1) * tabSize
			} else if l.ch == ' ' {
				width++
			}
			l.readChar()
		}
		switch l.ch {
		case '#':
			l.skipComment()
			continue
		case '\r':
			l.readChar()
			continue
		case '\n':
			l.readChar()
			continue
		case 0:
			l.atLineStart = false
			return token.Token{}, false
		}
		l.atLineStart = false

		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			return token.Token{Type: token.INDENT, Line: l.line, Column: 1}, true
		case width < top:
			for len(l.indents) > 1 && width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.pending = append(l.pending, token.Token{Type: token.DEDENT, Line: l.line, Column: 1})
			}
			if width != l.indents[len(l.indents)-1] {
				l.pending = append(l.pending, token.Token{
					Type:    token.ILLEGAL,
					Literal: "unindent does not match any outer indentation level",
					Line:    l.line,
					Column:  width + 1,
				})
			}
			tok := l.pending[0]
			l.pending = l.pending[1:]
			return tok, true
		}
		return token.Token{}, false
	}
}

// InBrackets reports whether a bracket opened earlier is still unclosed.
func (l *Lexer) InBrackets() bool {
	return l.depth > 0
}

// ResumeAfter abandons an unclosed bracket left by a statement starting on
// line. Lexing restarts at the first later line indented no deeper than
// that one, or at end of input.
func (l *Lexer) ResumeAfter(line int) {
	limit := -1
	offset := len(l.input)
	n, start := 1, 0
	for start <= len(l.input) {
		end := start
		for end < len(l.input) && l.input[end] != '\n' {
			end++
		}
		if width, blank := indentWidth(l.input[start:end]); !blank {
			switch {
			case n == line:
				limit = width
			case n > line && limit >= 0 && width <= limit:
				offset = start
			}
		}
		if offset < len(l.input) {
			break
		}
		n++
		start = end + 1
	}

	l.depth = 0
	l.pending = nil
	l.done = false
	l.atLineStart = true
	l.last = token.NEWLINE
	l.ch = 0
	l.readPosition = offset
	if offset < len(l.input) {
		l.line = n
	}
	l.column = 0
	l.readChar()
}

// indentWidth measures the leading whitespace of a physical line. Blank and
// comment-only lines report blank.
func indentWidth(s string) (int, bool) {
	width := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			width++
		case '\t':
			width = (width/tabSize + 1) * tabSize
		case '\f', '\r':
		case '#':
			return width, true
		default:
			return width, false
		}
	}
	return width, true
}

// finish closes the last logical line and every open block.
func (l *Lexer) finish() token.Token {
	l.done = true
	if l.last != "" && l.last != token.NEWLINE && l.last != token.DEDENT && l.last != token.INDENT {
		l.pending = append(l.pending, l.make(token.NEWLINE, ""))
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, l.make(token.DEDENT, ""))
	}
	l.pending = append(l.pending, l.make(token.EOF, ""))
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '#':
			l.skipComment()
		case l.ch == '\\' && (l.peekChar() == '\n' || (l.peekChar() == '\r' && l.peekChar2() == '\n')):
			// explicit line joining
			l.readChar()
			if l.ch == '\r' {
				l.readChar()
			}
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) make(tt token.TokenType, lexeme string) token.Token {
	return token.Token{Type: tt, Lexeme: lexeme, Literal: lexeme, Line: l.line, Column: l.column}
}

func (l *Lexer) illegal(line, col int, lexeme string, format string, args ...interface{}) token.Token {
	return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: fmt.Sprintf(format, args...), Line: line, Column: col}
}

// readIdentOrString reads an identifier or keyword. A short identifier
// followed by a quote is a string prefix (r, b, f, rb, ...).
func (l *Lexer) readIdentOrString() token.Token {
	line, col := l.line, l.column
	start := l.position
	l.readChar()
	for xid.Continue(l.ch) {
		l.readChar()
	}
	ident := l.input[start:l.position]
	if (l.ch == '"' || l.ch == '\'') && isStringPrefix(ident) {
		tok := l.readString(ident)
		tok.Line, tok.Column = line, col
		return tok
	}
	return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col}
}

var operators = []struct {
	text string
	tt   token.TokenType
}{
	// longest first
	{"**=", token.AUG_ASSIGN}, {"//=", token.AUG_ASSIGN}, {">>=", token.AUG_ASSIGN}, {"<<=", token.AUG_ASSIGN},
	{"...", token.ELLIPSIS},
	{"+=", token.AUG_ASSIGN}, {"-=", token.AUG_ASSIGN}, {"*=", token.AUG_ASSIGN}, {"/=", token.AUG_ASSIGN},
	{"%=", token.AUG_ASSIGN}, {"@=", token.AUG_ASSIGN}, {"&=", token.AUG_ASSIGN}, {"|=", token.AUG_ASSIGN},
	{"^=", token.AUG_ASSIGN},
	{"**", token.POWER}, {"//", token.DOUBLESLASH}, {"<<", token.LSHIFT}, {">>", token.RSHIFT},
	{"<=", token.LTE}, {">=", token.GTE}, {"==", token.EQ}, {"!=", token.NOT_EQ},
	{"->", token.ARROW}, {":=", token.WALRUS},
	{"=", token.ASSIGN}, {"+", token.PLUS}, {"-", token.MINUS}, {"*", token.ASTERISK}, {"/", token.SLASH},
	{"%", token.PERCENT}, {"@", token.AT}, {"&", token.AMPERSAND}, {"|", token.PIPE}, {"^", token.CARET},
	{"~", token.TILDE}, {"<", token.LT}, {">", token.GT},
	{",", token.COMMA}, {":", token.COLON}, {";", token.SEMICOLON}, {".", token.DOT},
	{"(", token.LPAREN}, {")", token.RPAREN}, {"[", token.LBRACKET}, {"]", token.RBRACKET},
	{"{", token.LBRACE}, {"}", token.RBRACE},
}

func (l *Lexer) readOperator() token.Token {
	line, col := l.line, l.column
	rest := l.input[l.position:]
	for _, op := range operators {
		if len(rest) < len(op.text) || rest[:len(op.text)] != op.text {
			continue
		}
		for range op.text {
			l.readChar()
		}
		tok := token.Token{Type: op.tt, Lexeme: op.text, Literal: op.text, Line: line, Column: col}
		switch op.tt {
		case token.AUG_ASSIGN:
			tok.Literal = op.text[:len(op.text)-1]
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			l.depth++
		case token.RPAREN, token.RBRACKET, token.RBRACE:
			if l.depth > 0 {
				l.depth--
			}
		}
		return tok
	}
	ch := l.ch
	l.readChar()
	return l.illegal(line, col, string(ch), "invalid character %q", ch)
}

func isLetter(ch rune) bool {
	return ch == '_' || xid.Start(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}
