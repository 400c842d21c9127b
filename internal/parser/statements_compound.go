package parser

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// parseBlock parses the suite after a ':' (curToken). It is either an
// indented block ending at DEDENT or simple statements on the same line.
func (p *Parser) parseBlock() ([]ast.Statement, bool) {
	if !p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
		stmts := p.parseSimpleStatements()
		return stmts, stmts != nil
	}
	p.nextToken()
	if !p.peekTokenIs(token.INDENT) {
		p.addError(diagnostics.ErrP003, p.peekToken, "expected an indented block")
		return nil, false
	}
	p.nextToken()
	p.nextToken()
	var body []ast.Statement
	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		body = append(body, p.parseStatement()...)
		p.nextToken()
	}
	return body, true
}

// parseElse parses an optional `else:` suite following a block.
func (p *Parser) parseElse() ([]ast.Statement, bool) {
	if !p.peekTokenIs(token.ELSE) {
		return nil, true
	}
	p.nextToken()
	if !p.expectPeek(token.COLON) {
		return nil, false
	}
	return p.parseBlock()
}

func (p *Parser) parseIfStatement() *ast.If {
	stmt := &ast.If{Token: p.curToken}
	p.nextToken()
	if stmt.Test = p.parseExpression(LOWEST); stmt.Test == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	stmt.Body = body
	if p.peekTokenIs(token.ELIF) {
		p.nextToken()
		elif := p.parseIfStatement()
		if elif == nil {
			return nil
		}
		stmt.OrElse = []ast.Statement{elif}
		return stmt
	}
	if stmt.OrElse, ok = p.parseElse(); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileStatement() *ast.While {
	stmt := &ast.While{Token: p.curToken}
	p.nextToken()
	if stmt.Test = p.parseExpression(LOWEST); stmt.Test == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	var ok bool
	if stmt.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	if stmt.OrElse, ok = p.parseElse(); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() *ast.For {
	stmt := &ast.For{Token: p.curToken}
	p.nextToken()
	if stmt.Target = p.parseTargetList(); stmt.Target == nil {
		return nil
	}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	if stmt.Iter = p.parseExpressionList(false); stmt.Iter == nil {
		return nil
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	var ok bool
	if stmt.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	if stmt.OrElse, ok = p.parseElse(); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) parseWithStatement() *ast.With {
	stmt := &ast.With{Token: p.curToken}
	for {
		p.nextToken()
		item := &ast.WithItem{}
		if item.Context = p.parseExpression(TEST); item.Context == nil {
			return nil
		}
		if p.peekTokenIs(token.AS) {
			p.nextToken()
			p.nextToken()
			if item.Vars = p.parseExpression(TEST); item.Vars == nil {
				return nil
			}
			if !p.setContext(item.Vars, ast.Store) {
				return nil
			}
		}
		stmt.Items = append(stmt.Items, item)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	var ok bool
	if stmt.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	return stmt
}

func (p *Parser) parseTryStatement() *ast.Try {
	stmt := &ast.Try{Token: p.curToken}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	var ok bool
	if stmt.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	for p.peekTokenIs(token.EXCEPT) {
		p.nextToken()
		h := &ast.ExceptHandler{Token: p.curToken}
		if p.peekTokenIs(token.ASTERISK) {
			p.nextToken()
		}
		if !p.peekTokenIs(token.COLON) {
			p.nextToken()
			if h.Type = p.parseExpression(TEST); h.Type == nil {
				return nil
			}
			if p.peekTokenIs(token.AS) {
				p.nextToken()
				if !p.expectPeek(token.IDENT) {
					return nil
				}
				h.Name = p.curToken.Lexeme
			}
		}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		if h.Body, ok = p.parseBlock(); !ok {
			return nil
		}
		stmt.Handlers = append(stmt.Handlers, h)
	}
	if stmt.OrElse, ok = p.parseElse(); !ok {
		return nil
	}
	if p.peekTokenIs(token.FINALLY) {
		p.nextToken()
		if !p.expectPeek(token.COLON) {
			return nil
		}
		if stmt.Finally, ok = p.parseBlock(); !ok {
			return nil
		}
	}
	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		p.addError(diagnostics.ErrP001, p.peekToken, "expected 'except' or 'finally' block")
		return nil
	}
	return stmt
}

func (p *Parser) parseFunctionDef() *ast.FunctionDef {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	fn := &ast.FunctionDef{Token: p.curToken, Name: p.curToken.Lexeme}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args, ok := p.parseParameters(token.RPAREN, true)
	if !ok {
		return nil
	}
	fn.Args = args
	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		if fn.Returns = p.parseExpression(TEST); fn.Returns == nil {
			return nil
		}
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	if fn.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	return fn
}

// parseParameters parses a formal parameter list up to and including end.
// Annotations are only read for def, since ':' ends a lambda's parameters.
func (p *Parser) parseParameters(end token.TokenType, annotations bool) (*ast.Arguments, bool) {
	args := &ast.Arguments{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return args, true
	}
	seenStar, seenSlash := false, false
	for {
		p.nextToken()
		switch {
		case p.curTokenIs(token.SLASH):
			if seenSlash || seenStar || len(args.Args) == 0 {
				p.addError(diagnostics.ErrP001, p.curToken, "'/' must follow at least one positional parameter and appear once")
				return nil, false
			}
			seenSlash = true
			args.PosOnly = args.Args
			args.Args = nil
		case p.curTokenIs(token.ASTERISK):
			if seenStar {
				p.addError(diagnostics.ErrP001, p.curToken, "* argument may appear only once")
				return nil, false
			}
			seenStar = true
			if p.peekTokenIs(token.IDENT) {
				p.nextToken()
				if args.Vararg = p.parseParam(annotations); args.Vararg == nil {
					return nil, false
				}
			}
		case p.curTokenIs(token.POWER):
			if !p.expectPeek(token.IDENT) {
				return nil, false
			}
			if args.Kwarg = p.parseParam(annotations); args.Kwarg == nil {
				return nil, false
			}
		case p.curTokenIs(token.IDENT):
			if args.Kwarg != nil {
				p.addError(diagnostics.ErrP001, p.curToken, "parameter after **%s", args.Kwarg.Name)
				return nil, false
			}
			arg := p.parseParam(annotations)
			if arg == nil {
				return nil, false
			}
			var def ast.Expression
			if p.peekTokenIs(token.ASSIGN) {
				p.nextToken()
				p.nextToken()
				if def = p.parseExpression(TEST); def == nil {
					return nil, false
				}
			}
			if seenStar {
				args.KwOnly = append(args.KwOnly, arg)
				args.KwDefaults = append(args.KwDefaults, def)
			} else {
				if def == nil && len(args.Defaults) > 0 {
					p.addError(diagnostics.ErrP001, arg.Token, "non-default argument follows default argument")
					return nil, false
				}
				args.Args = append(args.Args, arg)
				if def != nil {
					args.Defaults = append(args.Defaults, def)
				}
			}
		default:
			p.unexpected(p.curToken)
			return nil, false
		}

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(end) {
				p.nextToken()
				return args, true
			}
			continue
		}
		if !p.expectPeek(end) {
			return nil, false
		}
		return args, true
	}
}

func (p *Parser) parseParam(annotations bool) *ast.Arg {
	arg := &ast.Arg{Token: p.curToken, Name: p.curToken.Lexeme}
	if annotations && p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		if arg.Annotation = p.parseExpression(TEST); arg.Annotation == nil {
			return nil
		}
	}
	return arg
}

func (p *Parser) parseClassDef() *ast.ClassDef {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	cls := &ast.ClassDef{Token: p.curToken, Name: p.curToken.Lexeme}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		call, ok := p.parseCallExpression(nil).(*ast.Call)
		if !ok || call == nil {
			return nil
		}
		cls.Bases = call.Args
		cls.Keywords = call.Keywords
	}
	if !p.expectPeek(token.COLON) {
		return nil
	}
	var ok bool
	if cls.Body, ok = p.parseBlock(); !ok {
		return nil
	}
	return cls
}

func (p *Parser) parseDecorated() ast.Statement {
	var decorators []ast.Expression
	for p.curTokenIs(token.AT) {
		p.nextToken()
		d := p.parseExpression(TEST)
		if d == nil || !p.expectPeek(token.NEWLINE) {
			return nil
		}
		decorators = append(decorators, d)
		p.nextToken()
	}
	switch p.curToken.Type {
	case token.DEF:
		fn := p.parseFunctionDef()
		if fn == nil {
			return nil
		}
		fn.Decorators = decorators
		return fn
	case token.CLASS:
		cls := p.parseClassDef()
		if cls == nil {
			return nil
		}
		cls.Decorators = decorators
		return cls
	case token.ASYNC:
		if !p.expectPeek(token.DEF) {
			return nil
		}
		fn := p.parseFunctionDef()
		if fn == nil {
			return nil
		}
		fn.IsAsync = true
		fn.Decorators = decorators
		return fn
	}
	p.addError(diagnostics.ErrP001, p.curToken, "expected def or class after decorator, got %s", describe(p.curToken))
	return nil
}

func (p *Parser) parseAsync() ast.Statement {
	p.nextToken()
	switch p.curToken.Type {
	case token.DEF:
		if fn := p.parseFunctionDef(); fn != nil {
			fn.IsAsync = true
			return fn
		}
	case token.FOR:
		if s := p.parseForStatement(); s != nil {
			s.IsAsync = true
			return s
		}
	case token.WITH:
		if s := p.parseWithStatement(); s != nil {
			s.IsAsync = true
			return s
		}
	default:
		p.unexpected(p.curToken)
	}
	return nil
}
