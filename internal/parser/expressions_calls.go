package parser

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/token"
)

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	call := &ast.Call{Token: p.curToken, Func: function}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return call
	}
	p.nextToken()
	for {
		switch {
		case p.curTokenIs(token.POWER):
			kw := &ast.Keyword{Token: p.curToken}
			p.nextToken()
			kw.Value = p.parseExpression(TEST)
			if kw.Value == nil {
				return nil
			}
			call.Keywords = append(call.Keywords, kw)
		case p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN):
			kw := &ast.Keyword{Token: p.curToken, Arg: p.curToken.Lexeme}
			p.nextToken()
			p.nextToken()
			kw.Value = p.parseExpression(TEST)
			if kw.Value == nil {
				return nil
			}
			call.Keywords = append(call.Keywords, kw)
		default:
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			if p.peeksComprehension() {
				gens := p.parseComprehensions()
				if gens == nil {
					return nil
				}
				arg = &ast.GeneratorExp{Token: arg.GetToken(), Elt: arg, Generators: gens}
			}
			call.Args = append(call.Args, arg)
		}
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if p.peekTokenIs(token.RPAREN) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return call
}

func (p *Parser) parseSubscriptExpression(value ast.Expression) ast.Expression {
	sub := &ast.Subscript{Token: p.curToken, Value: value, Ctx: ast.Load}
	p.nextToken()
	first := p.curToken
	item := p.parseSliceItem()
	if item == nil {
		return nil
	}
	if p.peekTokenIs(token.COMMA) {
		elts := []ast.Expression{item}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RBRACKET) {
				break
			}
			p.nextToken()
			e := p.parseSliceItem()
			if e == nil {
				return nil
			}
			elts = append(elts, e)
		}
		item = &ast.TupleExpr{Token: first, Elts: elts}
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	sub.Slice = item
	return sub
}

// parseSliceItem parses `e` or `[lower]:[upper][:[step]]`.
func (p *Parser) parseSliceItem() ast.Expression {
	var lower ast.Expression
	if !p.curTokenIs(token.COLON) {
		lower = p.parseExpression(LOWEST)
		if lower == nil {
			return nil
		}
		if !p.peekTokenIs(token.COLON) {
			return lower
		}
		p.nextToken()
	}
	sl := &ast.Slice{Token: p.curToken, Lower: lower}
	if p.startsExpression(p.peekToken.Type) {
		p.nextToken()
		if sl.Upper = p.parseExpression(TEST); sl.Upper == nil {
			return nil
		}
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if p.startsExpression(p.peekToken.Type) {
			p.nextToken()
			if sl.Step = p.parseExpression(TEST); sl.Step == nil {
				return nil
			}
		}
	}
	return sl
}

func (p *Parser) parseAttributeExpression(value ast.Expression) ast.Expression {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	return &ast.Attribute{Token: p.curToken, Value: value, Attr: p.curToken.Lexeme, Ctx: ast.Load}
}
