package parser

import (
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// parseDottedName reads `a.b.c` starting at an IDENT curToken.
func (p *Parser) parseDottedName() (string, bool) {
	parts := []string{p.curToken.Lexeme}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return "", false
		}
		parts = append(parts, p.curToken.Lexeme)
	}
	return strings.Join(parts, "."), true
}

func (p *Parser) parseImportStatement() *ast.Import {
	stmt := &ast.Import{Token: p.curToken}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		alias := &ast.Alias{Token: p.curToken}
		name, ok := p.parseDottedName()
		if !ok {
			return nil
		}
		alias.Name = name
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			alias.AsName = p.curToken.Lexeme
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.peekTokenIs(token.COMMA) {
			return stmt
		}
		p.nextToken()
	}
}

func (p *Parser) parseImportFromStatement() *ast.ImportFrom {
	stmt := &ast.ImportFrom{Token: p.curToken}
	for p.peekTokenIs(token.DOT) || p.peekTokenIs(token.ELLIPSIS) {
		p.nextToken()
		stmt.Level += len(p.curToken.Lexeme)
	}
	if p.peekTokenIs(token.IDENT) {
		p.nextToken()
		name, ok := p.parseDottedName()
		if !ok {
			return nil
		}
		stmt.Module = name
	} else if stmt.Level == 0 {
		p.peekError(token.IDENT)
		return nil
	}
	if !p.expectPeek(token.IMPORT) {
		return nil
	}
	if p.peekTokenIs(token.ASTERISK) {
		p.nextToken()
		stmt.Names = []*ast.Alias{{Token: p.curToken, Name: "*"}}
		return stmt
	}
	paren := false
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		paren = true
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		alias := &ast.Alias{Token: p.curToken, Name: p.curToken.Lexeme}
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			alias.AsName = p.curToken.Lexeme
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if paren && p.peekTokenIs(token.RPAREN) {
			break
		}
		if !paren && !p.peekTokenIs(token.IDENT) {
			p.addError(diagnostics.ErrP001, p.peekToken, "trailing comma not allowed without surrounding parentheses")
			return nil
		}
	}
	if paren && !p.expectPeek(token.RPAREN) {
		return nil
	}
	return stmt
}
