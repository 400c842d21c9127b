package parser

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// parseExpression is the Pratt loop. On return curToken is the last token of
// the expression. At LOWEST precedence an expression followed by := becomes a
// named expression; only a bare name is a valid target.
func (p *Parser) parseExpression(precedence int) ast.Expression {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			break
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	if precedence == LOWEST && p.peekTokenIs(token.WALRUS) {
		return p.parseNamedExpression(leftExp)
	}
	return leftExp
}

// parseExpressionList parses `a, b, *c`. A single element without a trailing
// comma is returned as is; otherwise the elements form a tuple.
func (p *Parser) parseExpressionList(allowWalrus bool) ast.Expression {
	first := p.curToken
	prec := LOWEST
	if !allowWalrus {
		prec = TEST
	}
	expr := p.parseExpression(prec)
	if expr == nil {
		return nil
	}
	if !p.peekTokenIs(token.COMMA) {
		return expr
	}
	elts := []ast.Expression{expr}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if endsExpressionList(p.peekToken.Type) {
			break
		}
		p.nextToken()
		e := p.parseExpression(prec)
		if e == nil {
			return nil
		}
		elts = append(elts, e)
	}
	return &ast.TupleExpr{Token: first, Elts: elts}
}

// endsExpressionList reports whether t may follow a trailing comma.
func endsExpressionList(t token.TokenType) bool {
	switch t {
	case token.NEWLINE, token.EOF, token.SEMICOLON, token.ASSIGN, token.AUG_ASSIGN,
		token.RPAREN, token.RBRACKET, token.RBRACE, token.COLON, token.IN:
		return true
	}
	return false
}

// startsExpression reports whether t can begin an expression.
func (p *Parser) startsExpression(t token.TokenType) bool {
	_, ok := p.prefixParseFns[t]
	return ok && t != token.ILLEGAL
}

// parseTargetList parses a for-loop or comprehension target, stopping before `in`.
func (p *Parser) parseTargetList() ast.Expression {
	first := p.curToken
	expr := p.parseExpression(COMPARISON)
	if expr == nil {
		return nil
	}
	if p.peekTokenIs(token.COMMA) {
		elts := []ast.Expression{expr}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.IN) {
				break
			}
			p.nextToken()
			e := p.parseExpression(COMPARISON)
			if e == nil {
				return nil
			}
			elts = append(elts, e)
		}
		expr = &ast.TupleExpr{Token: first, Elts: elts}
	}
	if !p.setContext(expr, ast.Store) {
		return nil
	}
	return expr
}

func (p *Parser) parseNamedExpression(left ast.Expression) ast.Expression {
	name, ok := left.(*ast.Name)
	if !ok {
		p.addError(diagnostics.ErrP004, p.peekToken, "cannot use assignment expression with %s", describeTarget(left))
		return nil
	}
	p.nextToken()
	expr := &ast.NamedExpr{Token: p.curToken, Target: &ast.Name{Token: name.Token, Id: name.Id, Ctx: ast.Store}}
	p.nextToken()
	expr.Value = p.parseExpression(TEST)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	expr := &ast.UnaryOp{Token: p.curToken, Op: p.curToken.Lexeme}
	p.nextToken()
	expr.Operand = p.parseExpression(PREFIX)
	if expr.Operand == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseNotExpression() ast.Expression {
	expr := &ast.UnaryOp{Token: p.curToken, Op: "not"}
	p.nextToken()
	expr.Operand = p.parseExpression(NOT)
	if expr.Operand == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseStarred() ast.Expression {
	expr := &ast.Starred{Token: p.curToken}
	p.nextToken()
	expr.Value = p.parseExpression(BITOR - 1)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseAwait() ast.Expression {
	expr := &ast.Await{Token: p.curToken}
	p.nextToken()
	expr.Value = p.parseExpression(AWAIT)
	if expr.Value == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseYield() ast.Expression {
	expr := &ast.Yield{Token: p.curToken}
	if p.peekTokenIs(token.FROM) {
		p.nextToken()
		p.nextToken()
		expr.From = true
		expr.Value = p.parseExpression(LOWEST)
		if expr.Value == nil {
			return nil
		}
		return expr
	}
	if p.startsExpression(p.peekToken.Type) {
		p.nextToken()
		expr.Value = p.parseExpressionList(false)
		if expr.Value == nil {
			return nil
		}
	}
	return expr
}

func (p *Parser) parseIllegal() ast.Expression {
	p.illegalError(p.curToken)
	return nil
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinOp{Token: p.curToken, Left: left, Op: p.curToken.Lexeme}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parsePowerExpression is right associative and lets a unary operator
// start the exponent: 2 ** -1.
func (p *Parser) parsePowerExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinOp{Token: p.curToken, Left: left, Op: "**"}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return expr
}

// parseBoolExpression flattens `a and b and c` into one node.
func (p *Parser) parseBoolExpression(left ast.Expression) ast.Expression {
	opType := p.curToken.Type
	expr := &ast.BoolOp{Token: p.curToken, Op: p.curToken.Lexeme, Values: []ast.Expression{left}}
	precedence := p.curPrecedence()
	for {
		p.nextToken()
		right := p.parseExpression(precedence)
		if right == nil {
			return nil
		}
		expr.Values = append(expr.Values, right)
		if !p.peekTokenIs(opType) {
			return expr
		}
		p.nextToken()
	}
}

// readCompareOp consumes a comparison operator starting at curToken,
// folding `not in` and `is not` into one operator.
func (p *Parser) readCompareOp() (string, bool) {
	switch p.curToken.Type {
	case token.NOT:
		if !p.expectPeek(token.IN) {
			return "", false
		}
		return "not in", true
	case token.IS:
		if p.peekTokenIs(token.NOT) {
			p.nextToken()
			return "is not", true
		}
		return "is", true
	}
	return p.curToken.Lexeme, true
}

func isCompareToken(t token.TokenType) bool {
	switch t {
	case token.IN, token.IS, token.LT, token.GT, token.LTE, token.GTE, token.EQ, token.NOT_EQ:
		return true
	}
	return false
}

// parseCompareExpression builds a whole comparison chain.
func (p *Parser) parseCompareExpression(left ast.Expression) ast.Expression {
	expr := &ast.Compare{Token: p.curToken, Left: left}
	for {
		op, ok := p.readCompareOp()
		if !ok {
			return nil
		}
		p.nextToken()
		right := p.parseExpression(COMPARISON)
		if right == nil {
			return nil
		}
		expr.Ops = append(expr.Ops, op)
		expr.Comparators = append(expr.Comparators, right)

		if isCompareToken(p.peekToken.Type) ||
			(p.peekTokenIs(token.NOT) && p.peekAfter().Type == token.IN) {
			p.nextToken()
			continue
		}
		return expr
	}
}

func (p *Parser) parseTernaryExpression(body ast.Expression) ast.Expression {
	expr := &ast.IfExp{Token: p.curToken, Body: body}
	p.nextToken()
	expr.Test = p.parseExpression(TERNARY)
	if expr.Test == nil {
		return nil
	}
	if !p.expectPeek(token.ELSE) {
		return nil
	}
	p.nextToken()
	expr.OrElse = p.parseExpression(TEST)
	if expr.OrElse == nil {
		return nil
	}
	return expr
}

func (p *Parser) parseLambda() ast.Expression {
	expr := &ast.Lambda{Token: p.curToken}
	args, ok := p.parseParameters(token.COLON, false)
	if !ok {
		return nil
	}
	expr.Args = args
	// curToken is ':'
	p.nextToken()
	expr.Body = p.parseExpression(TEST)
	if expr.Body == nil {
		return nil
	}
	return expr
}
