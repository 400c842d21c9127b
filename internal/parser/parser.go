package parser

import (
	"fmt"
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/lexer"
	"github.com/funvibe/stubinfer/internal/pipeline"
	"github.com/funvibe/stubinfer/internal/token"
)

const (
	_ int = iota
	LOWEST     // also admits an unparenthesized name := value
	TEST       // lambda, ternary and below
	TERNARY    // x if c else y
	OR         // or
	AND        // and
	NOT        // not x
	COMPARISON // in, not in, is, is not, <, <=, >, >=, !=, ==
	BITOR      // |
	BITXOR     // ^
	BITAND     // &
	SHIFT      // << >>
	SUM        // + -
	PRODUCT    // * @ / // %
	PREFIX     // -x +x ~x
	POWER      // **
	AWAIT      // await x
	CALL       // x(...) x[...] x.attr
)

var precedences = map[token.TokenType]int{
	token.IF:          TERNARY,
	token.OR:          OR,
	token.AND:         AND,
	token.IN:          COMPARISON,
	token.IS:          COMPARISON,
	token.LT:          COMPARISON,
	token.GT:          COMPARISON,
	token.LTE:         COMPARISON,
	token.GTE:         COMPARISON,
	token.EQ:          COMPARISON,
	token.NOT_EQ:      COMPARISON,
	token.PIPE:        BITOR,
	token.CARET:       BITXOR,
	token.AMPERSAND:   BITAND,
	token.LSHIFT:      SHIFT,
	token.RSHIFT:      SHIFT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.AT:          PRODUCT,
	token.SLASH:       PRODUCT,
	token.DOUBLESLASH: PRODUCT,
	token.PERCENT:     PRODUCT,
	token.POWER:       POWER,
	token.LPAREN:      CALL,
	token.LBRACKET:    CALL,
	token.DOT:         CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	stream pipeline.TokenStream
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth int
	// errors reported for the statement being parsed; used to skip cascades
	stmtErrors int
}

func New(stream pipeline.TokenStream, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{stream: stream, ctx: ctx}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseName)
	p.registerPrefix(token.INT, p.parseNumber)
	p.registerPrefix(token.FLOAT, p.parseNumber)
	p.registerPrefix(token.IMAG, p.parseNumber)
	p.registerPrefix(token.STRING, p.parseStrings)
	p.registerPrefix(token.FSTRING, p.parseStrings)
	p.registerPrefix(token.BYTES, p.parseBytes)
	p.registerPrefix(token.TRUE, p.parseKeywordConstant)
	p.registerPrefix(token.FALSE, p.parseKeywordConstant)
	p.registerPrefix(token.NONE, p.parseKeywordConstant)
	p.registerPrefix(token.ELLIPSIS, p.parseKeywordConstant)
	p.registerPrefix(token.LPAREN, p.parseParenthesized)
	p.registerPrefix(token.LBRACKET, p.parseListDisplay)
	p.registerPrefix(token.LBRACE, p.parseBraceDisplay)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.PLUS, p.parseUnaryExpression)
	p.registerPrefix(token.TILDE, p.parseUnaryExpression)
	p.registerPrefix(token.NOT, p.parseNotExpression)
	p.registerPrefix(token.ASTERISK, p.parseStarred)
	p.registerPrefix(token.LAMBDA, p.parseLambda)
	p.registerPrefix(token.AWAIT, p.parseAwait)
	p.registerPrefix(token.YIELD, p.parseYield)
	p.registerPrefix(token.ILLEGAL, p.parseIllegal)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{
		token.PIPE, token.CARET, token.AMPERSAND, token.LSHIFT, token.RSHIFT,
		token.PLUS, token.MINUS, token.ASTERISK, token.AT, token.SLASH,
		token.DOUBLESLASH, token.PERCENT,
	} {
		p.registerInfix(tt, p.parseBinaryExpression)
	}
	p.registerInfix(token.POWER, p.parsePowerExpression)
	p.registerInfix(token.AND, p.parseBoolExpression)
	p.registerInfix(token.OR, p.parseBoolExpression)
	for _, tt := range []token.TokenType{
		token.IN, token.NOT, token.IS, token.LT, token.GT, token.LTE, token.GTE, token.EQ, token.NOT_EQ,
	} {
		p.registerInfix(tt, p.parseCompareExpression)
	}
	p.registerInfix(token.IF, p.parseTernaryExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseSubscriptExpression)
	p.registerInfix(token.DOT, p.parseAttributeExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.stream.Next()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

// peekAfter returns the token following peekToken.
func (p *Parser) peekAfter() token.Token {
	toks := p.stream.Peek(1)
	if len(toks) == 0 {
		return token.Token{Type: token.EOF}
	}
	return toks[0]
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if p.peekToken.Type == token.NOT {
		// only `not in` continues an expression
		if p.peekAfter().Type == token.IN {
			return COMPARISON
		}
		return LOWEST
	}
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.NEWLINE:
		return "end of line"
	case token.EOF:
		return "end of file"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "dedent"
	}
	if tok.Lexeme != "" {
		return fmt.Sprintf("%q", tok.Lexeme)
	}
	return string(tok.Type)
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, format string, args ...interface{}) {
	p.stmtErrors++
	if p.stmtErrors > 1 {
		return
	}
	err := diagnostics.Errorf(code, tok, format, args...)
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
}

func (p *Parser) illegalError(tok token.Token) {
	msg, _ := tok.Literal.(string)
	if msg == "" {
		msg = "illegal token " + describe(tok)
	}
	code := diagnostics.ErrP002
	if strings.Contains(msg, "indent") {
		code = diagnostics.ErrP003
	}
	p.addError(code, tok, "%s", msg)
}

func (p *Parser) peekError(t token.TokenType) {
	if p.peekToken.Type == token.ILLEGAL {
		p.illegalError(p.peekToken)
		return
	}
	p.addError(diagnostics.ErrP001, p.peekToken, "expected %q, got %s", string(t), describe(p.peekToken))
}

func (p *Parser) unexpected(tok token.Token) {
	if tok.Type == token.ILLEGAL {
		p.illegalError(tok)
		return
	}
	p.addError(diagnostics.ErrP001, tok, "unexpected %s", describe(tok))
}

// ParseModule parses a whole file. Statements that fail to parse are
// skipped and reported; the rest of the module is still returned.
func (p *Parser) ParseModule() *ast.Module {
	mod := &ast.Module{File: p.ctx.FilePath}
	for !p.curTokenIs(token.EOF) {
		mod.Body = append(mod.Body, p.parseStatement()...)
		p.nextToken()
	}
	return mod
}

// ParseExpressionOnly parses a single expression followed by end of input.
func (p *Parser) ParseExpressionOnly() ast.Expression {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	expr := p.parseExpressionList(true)
	if expr == nil {
		return nil
	}
	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if !p.peekTokenIs(token.EOF) {
		p.unexpected(p.peekToken)
		return nil
	}
	return expr
}

// ParseFile lexes and parses src as the module stored at path.
func ParseFile(path, src string) (*ast.Module, []*diagnostics.DiagnosticError) {
	ctx := pipeline.NewPipelineContext(src)
	ctx.FilePath = path
	p := New(lexer.NewTokenStream(lexer.New(src)), ctx)
	return p.ParseModule(), ctx.Errors
}

// ParseExpression parses src as a single expression.
func ParseExpression(src string) (ast.Expression, []*diagnostics.DiagnosticError) {
	ctx := pipeline.NewPipelineContext(src)
	p := New(lexer.NewTokenStream(lexer.New(src)), ctx)
	expr := p.ParseExpressionOnly()
	return expr, ctx.Errors
}

func (p *Parser) enter() bool {
	p.depth++
	if p.depth > config.MaxRecursionDepth {
		p.addError(diagnostics.ErrP005, p.curToken, "nesting too deep")
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}
