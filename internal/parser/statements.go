package parser

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// parseStatement parses one logical line or compound statement. A line may
// hold several simple statements separated by ';'. On return curToken is the
// NEWLINE or DEDENT that closes the statement.
func (p *Parser) parseStatement() []ast.Statement {
	p.stmtErrors = 0
	start := p.curToken
	var stmt ast.Statement
	switch p.curToken.Type {
	case token.NEWLINE, token.SEMICOLON:
		return nil
	case token.INDENT:
		p.addError(diagnostics.ErrP003, p.curToken, "unexpected indent")
		p.skipBlock()
		return nil
	case token.DEDENT:
		return nil
	case token.DEF:
		stmt = nilIfNoDef(p.parseFunctionDef())
	case token.CLASS:
		stmt = nilIfNoClass(p.parseClassDef())
	case token.AT:
		stmt = p.parseDecorated()
	case token.ASYNC:
		stmt = p.parseAsync()
	case token.IF:
		if s := p.parseIfStatement(); s != nil {
			stmt = s
		}
	case token.WHILE:
		if s := p.parseWhileStatement(); s != nil {
			stmt = s
		}
	case token.FOR:
		if s := p.parseForStatement(); s != nil {
			stmt = s
		}
	case token.WITH:
		if s := p.parseWithStatement(); s != nil {
			stmt = s
		}
	case token.TRY:
		if s := p.parseTryStatement(); s != nil {
			stmt = s
		}
	default:
		return p.parseSimpleStatements()
	}
	if stmt == nil {
		if !p.resync(start) {
			p.syncBlock()
		}
		return nil
	}
	return []ast.Statement{stmt}
}

func nilIfNoDef(s *ast.FunctionDef) ast.Statement {
	if s == nil {
		return nil
	}
	return s
}

func nilIfNoClass(s *ast.ClassDef) ast.Statement {
	if s == nil {
		return nil
	}
	return s
}

// resyncer is implemented by token streams that can skip past a bracket a
// broken statement never closed.
type resyncer interface {
	Resync(line int) bool
}

// resync abandons the statement begun at start when it left a bracket
// open. curToken becomes a NEWLINE ending the broken statement.
func (p *Parser) resync(start token.Token) bool {
	r, ok := p.stream.(resyncer)
	if !ok || !r.Resync(start.Line) {
		return false
	}
	p.curToken = token.Token{Type: token.NEWLINE, Line: start.Line}
	p.peekToken = p.stream.Next()
	return true
}

// syncLine skips to the end of the current logical line.
func (p *Parser) syncLine() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// syncBlock skips the rest of a broken compound statement, including its
// indented body.
func (p *Parser) syncBlock() {
	p.syncLine()
	if p.peekTokenIs(token.INDENT) {
		p.nextToken()
		p.skipBlock()
	}
}

// skipBlock skips from an INDENT to its matching DEDENT.
func (p *Parser) skipBlock() {
	level := 0
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.INDENT:
			level++
		case token.DEDENT:
			level--
			if level == 0 {
				return
			}
		}
		p.nextToken()
	}
}

func (p *Parser) parseSimpleStatements() []ast.Statement {
	start := p.curToken
	var stmts []ast.Statement
	for {
		s := p.parseSmallStatement()
		if s == nil {
			if !p.resync(start) {
				p.syncLine()
			}
			return stmts
		}
		stmts = append(stmts, s)
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
			if p.peekTokenIs(token.NEWLINE) {
				p.nextToken()
				return stmts
			}
			p.nextToken()
			continue
		}
		if !p.expectPeek(token.NEWLINE) {
			p.syncLine()
		}
		return stmts
	}
}

func (p *Parser) parseSmallStatement() ast.Statement {
	tok := p.curToken
	switch tok.Type {
	case token.PASS:
		return &ast.Pass{Token: tok}
	case token.BREAK:
		return &ast.Break{Token: tok}
	case token.CONTINUE:
		return &ast.Continue{Token: tok}
	case token.RETURN:
		stmt := &ast.Return{Token: tok}
		if p.startsExpression(p.peekToken.Type) {
			p.nextToken()
			if stmt.Value = p.parseExpressionList(false); stmt.Value == nil {
				return nil
			}
		}
		return stmt
	case token.RAISE:
		return p.parseRaiseStatement()
	case token.GLOBAL:
		names, ok := p.parseNameList()
		if !ok {
			return nil
		}
		return &ast.Global{Token: tok, Names: names}
	case token.NONLOCAL:
		names, ok := p.parseNameList()
		if !ok {
			return nil
		}
		return &ast.Nonlocal{Token: tok, Names: names}
	case token.DEL:
		return p.parseDeleteStatement()
	case token.ASSERT:
		stmt := &ast.Assert{Token: tok}
		p.nextToken()
		if stmt.Test = p.parseExpression(TEST); stmt.Test == nil {
			return nil
		}
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			if stmt.Msg = p.parseExpression(TEST); stmt.Msg == nil {
				return nil
			}
		}
		return stmt
	case token.IMPORT:
		if s := p.parseImportStatement(); s != nil {
			return s
		}
		return nil
	case token.FROM:
		if s := p.parseImportFromStatement(); s != nil {
			return s
		}
		return nil
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseRaiseStatement() ast.Statement {
	stmt := &ast.Raise{Token: p.curToken}
	if !p.startsExpression(p.peekToken.Type) {
		return stmt
	}
	p.nextToken()
	if stmt.Exc = p.parseExpression(TEST); stmt.Exc == nil {
		return nil
	}
	if p.peekTokenIs(token.FROM) {
		p.nextToken()
		p.nextToken()
		if stmt.Cause = p.parseExpression(TEST); stmt.Cause == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseNameList() ([]string, bool) {
	var names []string
	for {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		names = append(names, p.curToken.Lexeme)
		if !p.peekTokenIs(token.COMMA) {
			return names, true
		}
		p.nextToken()
	}
}

func (p *Parser) parseDeleteStatement() ast.Statement {
	stmt := &ast.Delete{Token: p.curToken}
	p.nextToken()
	list := p.parseExpressionList(false)
	if list == nil {
		return nil
	}
	if tup, ok := list.(*ast.TupleExpr); ok && tup.Token.Type != token.LPAREN {
		stmt.Targets = tup.Elts
	} else {
		stmt.Targets = []ast.Expression{list}
	}
	for _, t := range stmt.Targets {
		if !p.setContext(t, ast.Del) {
			return nil
		}
	}
	return stmt
}

// parseRHS parses the right-hand side of an assignment.
func (p *Parser) parseRHS() ast.Expression {
	if p.curTokenIs(token.YIELD) {
		return p.parseYield()
	}
	return p.parseExpressionList(false)
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.curToken
	first := p.parseExpressionList(false)
	if first == nil {
		return nil
	}

	switch {
	case p.peekTokenIs(token.ASSIGN):
		exprs := []ast.Expression{first}
		var eqTok token.Token
		for p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			if eqTok.Type == "" {
				eqTok = p.curToken
			}
			p.nextToken()
			rhs := p.parseRHS()
			if rhs == nil {
				return nil
			}
			exprs = append(exprs, rhs)
		}
		targets := exprs[:len(exprs)-1]
		for _, t := range targets {
			if !p.setContext(t, ast.Store) {
				return nil
			}
		}
		return &ast.Assign{Token: eqTok, Targets: targets, Value: exprs[len(exprs)-1]}

	case p.peekTokenIs(token.AUG_ASSIGN):
		if !isSingleTarget(first) {
			p.addError(diagnostics.ErrP004, p.peekToken, "%s is an illegal expression for augmented assignment", describeTarget(first))
			return nil
		}
		p.setContext(first, ast.Store)
		p.nextToken()
		opTok := p.curToken
		op, _ := opTok.Literal.(string)
		p.nextToken()
		value := p.parseRHS()
		if value == nil {
			return nil
		}
		return &ast.AugAssign{Token: opTok, Target: first, Op: op, Value: value}

	case p.peekTokenIs(token.COLON):
		if !isSingleTarget(first) {
			p.addError(diagnostics.ErrP004, p.peekToken, "only single target (not %s) can be annotated", describeTarget(first))
			return nil
		}
		p.setContext(first, ast.Store)
		p.nextToken()
		p.nextToken()
		stmt := &ast.AnnAssign{Token: tok, Target: first}
		if stmt.Annotation = p.parseExpression(TEST); stmt.Annotation == nil {
			return nil
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			if stmt.Value = p.parseRHS(); stmt.Value == nil {
				return nil
			}
		}
		return stmt
	}
	return &ast.ExprStmt{Token: tok, Value: first}
}

func isSingleTarget(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return true
	}
	return false
}

// setContext marks e as an assignment or deletion target, reporting
// expressions that cannot be targets.
func (p *Parser) setContext(e ast.Expression, ctx ast.ExprContext) bool {
	switch t := e.(type) {
	case *ast.Name:
		t.Ctx = ctx
	case *ast.Attribute:
		t.Ctx = ctx
	case *ast.Subscript:
		t.Ctx = ctx
	case *ast.TupleExpr:
		t.Ctx = ctx
		for _, elt := range t.Elts {
			if !p.setContext(elt, ctx) {
				return false
			}
		}
	case *ast.ListExpr:
		t.Ctx = ctx
		for _, elt := range t.Elts {
			if !p.setContext(elt, ctx) {
				return false
			}
		}
	case *ast.Starred:
		if ctx == ast.Del {
			p.addError(diagnostics.ErrP004, t.Token, "cannot delete starred")
			return false
		}
		t.Ctx = ctx
		return p.setContext(t.Value, ctx)
	default:
		verb := "assign to"
		if ctx == ast.Del {
			verb = "delete"
		}
		p.addError(diagnostics.ErrP004, e.GetToken(), "cannot %s %s", verb, describeTarget(e))
		return false
	}
	return true
}

func describeTarget(e ast.Expression) string {
	switch t := e.(type) {
	case *ast.Constant:
		return "literal"
	case *ast.FormattedString:
		return "f-string expression"
	case *ast.Call:
		return "function call"
	case *ast.BinOp, *ast.UnaryOp:
		return "expression"
	case *ast.BoolOp:
		return "expression"
	case *ast.Compare:
		return "comparison"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.Lambda:
		return "lambda"
	case *ast.NamedExpr:
		return "named expression"
	case *ast.DictExpr:
		return "dict literal"
	case *ast.SetExpr:
		return "set display"
	case *ast.ListComp:
		return "list comprehension"
	case *ast.SetComp:
		return "set comprehension"
	case *ast.DictComp:
		return "dict comprehension"
	case *ast.GeneratorExp:
		return "generator expression"
	case *ast.Yield:
		return "yield expression"
	case *ast.Await:
		return "await expression"
	case *ast.TupleExpr:
		return "tuple"
	case *ast.Attribute:
		return "attribute"
	case *ast.Subscript:
		return "subscript"
	case *ast.Name:
		return "name " + t.Id
	}
	return "expression"
}
