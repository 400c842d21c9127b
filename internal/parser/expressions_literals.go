package parser

import (
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/lexer"
	"github.com/funvibe/stubinfer/internal/token"
)

func (p *Parser) parseName() ast.Expression {
	return &ast.Name{Token: p.curToken, Id: p.curToken.Lexeme, Ctx: ast.Load}
}

func (p *Parser) parseNumber() ast.Expression {
	kind := ast.IntConst
	switch p.curToken.Type {
	case token.FLOAT:
		kind = ast.FloatConst
	case token.IMAG:
		kind = ast.ComplexConst
	}
	value, _ := p.curToken.Literal.(string)
	return &ast.Constant{Token: p.curToken, Kind: kind, Value: value}
}

func (p *Parser) parseKeywordConstant() ast.Expression {
	c := &ast.Constant{Token: p.curToken, Value: p.curToken.Lexeme}
	switch p.curToken.Type {
	case token.TRUE, token.FALSE:
		c.Kind = ast.BoolConst
	case token.NONE:
		c.Kind = ast.NoneConst
	case token.ELLIPSIS:
		c.Kind = ast.EllipsisConst
	}
	return c
}

// parseStrings joins adjacent string literals. If any part is an f-string
// the result is a FormattedString holding every replacement field.
func (p *Parser) parseStrings() ast.Expression {
	first := p.curToken
	var sb strings.Builder
	var values []ast.Expression
	formatted := false
	for {
		if p.curTokenIs(token.FSTRING) {
			formatted = true
			values = append(values, p.parseFStringFields(p.curToken)...)
		} else {
			s, _ := p.curToken.Literal.(string)
			sb.WriteString(s)
		}
		if !p.peekTokenIs(token.STRING) && !p.peekTokenIs(token.FSTRING) {
			break
		}
		p.nextToken()
	}
	if formatted {
		return &ast.FormattedString{Token: first, Values: values}
	}
	return &ast.Constant{Token: first, Kind: ast.StrConst, Value: sb.String()}
}

func (p *Parser) parseBytes() ast.Expression {
	first := p.curToken
	var sb strings.Builder
	for {
		s, _ := p.curToken.Literal.(string)
		sb.WriteString(s)
		if !p.peekTokenIs(token.BYTES) {
			break
		}
		p.nextToken()
	}
	return &ast.Constant{Token: first, Kind: ast.BytesConst, Value: sb.String()}
}

// parseFStringFields parses every {expression} of an f-string body.
// Nested fields inside format specs are included.
func (p *Parser) parseFStringFields(tok token.Token) []ast.Expression {
	raw, _ := tok.Literal.(string)
	var out []ast.Expression
	for _, src := range fstringFields(raw) {
		if expr := p.parseEmbeddedExpression(src, tok); expr != nil {
			out = append(out, expr)
		}
	}
	return out
}

// parseEmbeddedExpression parses src with a child parser that shares the
// error list. All tokens are reported at the position of the enclosing string.
func (p *Parser) parseEmbeddedExpression(src string, at token.Token) ast.Expression {
	toks := lexer.Tokenize(src)
	for i := range toks {
		toks[i].Line = at.Line
		toks[i].Column = at.Column
	}
	sub := New(lexer.NewSliceStream(toks), p.ctx)
	sub.depth = p.depth
	return sub.ParseExpressionOnly()
}

// fstringFields returns the source text of each replacement field in raw.
func fstringFields(raw string) []string {
	var out []string
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				i++
				continue
			}
			expr, spec, end := scanField(raw, i+1)
			if strings.TrimSpace(expr) != "" {
				out = append(out, expr)
			}
			if spec != "" {
				out = append(out, fstringFields(spec)...)
			}
			i = end
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				i++
			}
		}
	}
	return out
}

// scanField scans one replacement field starting after '{'. It returns the
// expression text, the format spec and the index of the closing '}'.
func scanField(s string, start int) (expr string, spec string, end int) {
	depth := 0
	var quote byte
	exprEnd := -1
	specStart := -1
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			if specStart < 0 {
				quote = c
			}
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
				continue
			}
			if exprEnd < 0 {
				exprEnd = i
			}
			expr = selfDocumenting(s[start:exprEnd])
			if specStart >= 0 {
				spec = s[specStart:i]
			}
			return expr, spec, i
		case '!':
			if depth == 0 && exprEnd < 0 && i+1 < len(s) && s[i+1] != '=' {
				exprEnd = i
			}
		case ':':
			if depth == 0 && specStart < 0 {
				if exprEnd < 0 {
					exprEnd = i
				}
				specStart = i + 1
			}
		}
	}
	if exprEnd < 0 {
		exprEnd = len(s)
	}
	return selfDocumenting(s[start:exprEnd]), "", len(s)
}

// selfDocumenting strips the trailing '=' of a {expr=} field.
func selfDocumenting(expr string) string {
	t := strings.TrimRight(expr, " ")
	if strings.HasSuffix(t, "=") && !strings.HasSuffix(t, "==") &&
		!strings.HasSuffix(t, "!=") && !strings.HasSuffix(t, "<=") && !strings.HasSuffix(t, ">=") {
		return t[:len(t)-1]
	}
	return expr
}

// parseParenthesized handles (), (x), (x,), (x, y), (x for ...) and (yield x).
func (p *Parser) parseParenthesized() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.TupleExpr{Token: tok}
	}
	p.nextToken()
	if p.curTokenIs(token.YIELD) {
		y := p.parseYield()
		if y == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		return y
	}
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if p.peeksComprehension() {
		gens := p.parseComprehensions()
		if gens == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
		return &ast.GeneratorExp{Token: tok, Elt: first, Generators: gens}
	}
	if !p.peekTokenIs(token.COMMA) {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return first
	}
	elts, ok := p.parseElementsAfterFirst(first, token.RPAREN)
	if !ok {
		return nil
	}
	return &ast.TupleExpr{Token: tok, Elts: elts}
}

func (p *Parser) parseListDisplay() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return &ast.ListExpr{Token: tok}
	}
	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if p.peeksComprehension() {
		gens := p.parseComprehensions()
		if gens == nil || !p.expectPeek(token.RBRACKET) {
			return nil
		}
		return &ast.ListComp{Token: tok, Elt: first, Generators: gens}
	}
	elts, ok := p.parseElementsAfterFirst(first, token.RBRACKET)
	if !ok {
		return nil
	}
	return &ast.ListExpr{Token: tok, Elts: elts}
}

// parseElementsAfterFirst reads `, e2, e3 [,]` and the closing token.
func (p *Parser) parseElementsAfterFirst(first ast.Expression, end token.TokenType) ([]ast.Expression, bool) {
	elts := []ast.Expression{first}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(end) {
			break
		}
		p.nextToken()
		e := p.parseExpression(LOWEST)
		if e == nil {
			return nil, false
		}
		elts = append(elts, e)
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return elts, true
}

// parseBraceDisplay handles dict and set displays and their comprehensions.
func (p *Parser) parseBraceDisplay() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		return &ast.DictExpr{Token: tok}
	}
	p.nextToken()

	if p.curTokenIs(token.POWER) {
		p.nextToken()
		v := p.parseExpression(COMPARISON)
		if v == nil {
			return nil
		}
		return p.parseDictRest(&ast.DictExpr{Token: tok, Keys: []ast.Expression{nil}, Values: []ast.Expression{v}})
	}

	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		value := p.parseExpression(TEST)
		if value == nil {
			return nil
		}
		if p.peeksComprehension() {
			gens := p.parseComprehensions()
			if gens == nil || !p.expectPeek(token.RBRACE) {
				return nil
			}
			return &ast.DictComp{Token: tok, Key: first, Value: value, Generators: gens}
		}
		return p.parseDictRest(&ast.DictExpr{Token: tok, Keys: []ast.Expression{first}, Values: []ast.Expression{value}})
	}

	if p.peeksComprehension() {
		gens := p.parseComprehensions()
		if gens == nil || !p.expectPeek(token.RBRACE) {
			return nil
		}
		return &ast.SetComp{Token: tok, Elt: first, Generators: gens}
	}
	elts, ok := p.parseElementsAfterFirst(first, token.RBRACE)
	if !ok {
		return nil
	}
	return &ast.SetExpr{Token: tok, Elts: elts}
}

func (p *Parser) parseDictRest(dict *ast.DictExpr) ast.Expression {
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if p.peekTokenIs(token.RBRACE) {
			break
		}
		p.nextToken()
		if p.curTokenIs(token.POWER) {
			p.nextToken()
			v := p.parseExpression(COMPARISON)
			if v == nil {
				return nil
			}
			dict.Keys = append(dict.Keys, nil)
			dict.Values = append(dict.Values, v)
			continue
		}
		key := p.parseExpression(TEST)
		if key == nil || !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(TEST)
		if value == nil {
			return nil
		}
		dict.Keys = append(dict.Keys, key)
		dict.Values = append(dict.Values, value)
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return dict
}

func (p *Parser) peeksComprehension() bool {
	return p.peekTokenIs(token.FOR) || (p.peekTokenIs(token.ASYNC) && p.peekAfter().Type == token.FOR)
}

// parseComprehensions reads one or more `for ... in ... if ...` clauses.
// The iterable and conditions stop before a trailing `if`, so they never
// parse as conditional expressions.
func (p *Parser) parseComprehensions() []*ast.Comprehension {
	var gens []*ast.Comprehension
	for p.peeksComprehension() {
		p.nextToken()
		async := false
		if p.curTokenIs(token.ASYNC) {
			async = true
			p.nextToken()
		}
		comp := &ast.Comprehension{Token: p.curToken, IsAsync: async}
		p.nextToken()
		comp.Target = p.parseTargetList()
		if comp.Target == nil || !p.expectPeek(token.IN) {
			return nil
		}
		p.nextToken()
		comp.Iter = p.parseExpression(TERNARY)
		if comp.Iter == nil {
			return nil
		}
		for p.peekTokenIs(token.IF) {
			p.nextToken()
			p.nextToken()
			cond := p.parseExpression(TERNARY)
			if cond == nil {
				return nil
			}
			comp.Ifs = append(comp.Ifs, cond)
		}
		gens = append(gens, comp)
	}
	return gens
}
