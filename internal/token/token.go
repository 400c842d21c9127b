package token

import "fmt"

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// Pos renders the token position as line:column.
func (t Token) Pos() string {
	if t.Line == 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%d", t.Line, t.Column)
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	NEWLINE TokenType = "NEWLINE"
	INDENT  TokenType = "INDENT"
	DEDENT  TokenType = "DEDENT"

	// Identifiers and literals
	IDENT   TokenType = "IDENT"
	INT     TokenType = "INT"
	FLOAT   TokenType = "FLOAT"
	IMAG    TokenType = "IMAG"
	STRING  TokenType = "STRING"
	BYTES   TokenType = "BYTES"
	FSTRING TokenType = "FSTRING"

	// Operators
	ASSIGN      TokenType = "="
	WALRUS      TokenType = ":="
	PLUS        TokenType = "+"
	MINUS       TokenType = "-"
	ASTERISK    TokenType = "*"
	POWER       TokenType = "**"
	SLASH       TokenType = "/"
	DOUBLESLASH TokenType = "//"
	PERCENT     TokenType = "%"
	AT          TokenType = "@"
	LSHIFT      TokenType = "<<"
	RSHIFT      TokenType = ">>"
	AMPERSAND   TokenType = "&"
	PIPE        TokenType = "|"
	CARET       TokenType = "^"
	TILDE       TokenType = "~"
	LT          TokenType = "<"
	GT          TokenType = ">"
	LTE         TokenType = "<="
	GTE         TokenType = ">="
	EQ          TokenType = "=="
	NOT_EQ      TokenType = "!="
	ARROW       TokenType = "->"
	AUG_ASSIGN  TokenType = "AUG_ASSIGN" // +=, -=, ... (Literal holds the binary operator)

	// Delimiters
	COMMA     TokenType = ","
	COLON     TokenType = ":"
	SEMICOLON TokenType = ";"
	DOT       TokenType = "."
	ELLIPSIS  TokenType = "..."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"

	// Keywords
	FALSE    TokenType = "False"
	NONE     TokenType = "None"
	TRUE     TokenType = "True"
	AND      TokenType = "and"
	AS       TokenType = "as"
	ASSERT   TokenType = "assert"
	ASYNC    TokenType = "async"
	AWAIT    TokenType = "await"
	BREAK    TokenType = "break"
	CLASS    TokenType = "class"
	CONTINUE TokenType = "continue"
	DEF      TokenType = "def"
	DEL      TokenType = "del"
	ELIF     TokenType = "elif"
	ELSE     TokenType = "else"
	EXCEPT   TokenType = "except"
	FINALLY  TokenType = "finally"
	FOR      TokenType = "for"
	FROM     TokenType = "from"
	GLOBAL   TokenType = "global"
	IF       TokenType = "if"
	IMPORT   TokenType = "import"
	IN       TokenType = "in"
	IS       TokenType = "is"
	LAMBDA   TokenType = "lambda"
	NONLOCAL TokenType = "nonlocal"
	NOT      TokenType = "not"
	OR       TokenType = "or"
	PASS     TokenType = "pass"
	RAISE    TokenType = "raise"
	RETURN   TokenType = "return"
	TRY      TokenType = "try"
	WHILE    TokenType = "while"
	WITH     TokenType = "with"
	YIELD    TokenType = "yield"
)

var keywords = map[string]TokenType{
	"False":    FALSE,
	"None":     NONE,
	"True":     TRUE,
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"global":   GLOBAL,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"nonlocal": NONLOCAL,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"try":      TRY,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword reports whether ident is a reserved word.
func IsKeyword(ident string) bool {
	_, ok := keywords[ident]
	return ok
}
