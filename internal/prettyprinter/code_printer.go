package prettyprinter

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
)

// --- Code Printer (Output looks like source code) ---

// Expression precedence (higher = binds tighter)
const (
	precLowest = iota
	precNamed
	precLambda
	precTernary
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precSum
	precProduct
	precUnary
	precPower
	precAwait
	precAtom
)

var operatorPrecedence = map[string]int{
	"|":  precBitOr,
	"^":  precBitXor,
	"&":  precBitAnd,
	"<<": precShift,
	">>": precShift,
	"+":  precSum,
	"-":  precSum,
	"*":  precProduct,
	"@":  precProduct,
	"/":  precProduct,
	"//": precProduct,
	"%":  precProduct,
	"**": precPower,
}

func getPrecedence(op string) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return precAtom
}

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Render returns the source form of a single node on one line where possible.
// It is used to quote offending nodes in diagnostics.
func Render(node ast.Node) string {
	p := NewCodePrinter()
	switch n := node.(type) {
	case ast.Expression:
		p.printExpr(n, precLowest, false)
	case ast.Statement:
		p.printHeader(n)
	case *ast.Module:
		p.PrintModule(n)
	}
	return strings.TrimRight(p.String(), "\n")
}

// Print renders a whole module.
func Print(mod *ast.Module) string {
	p := NewCodePrinter()
	p.PrintModule(mod)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

func (p *CodePrinter) PrintModule(mod *ast.Module) {
	if mod == nil {
		return
	}
	for _, s := range mod.Body {
		p.printStmt(s)
	}
}

func (p *CodePrinter) printBlock(body []ast.Statement) {
	p.write(":")
	p.writeln()
	p.indent++
	if len(body) == 0 {
		p.writeIndent()
		p.write("pass")
		p.writeln()
	}
	for _, s := range body {
		p.printStmt(s)
	}
	p.indent--
}

func (p *CodePrinter) printStmt(s ast.Statement) {
	p.writeIndent()
	switch n := s.(type) {
	case *ast.If:
		p.printIf(n, "if ")
		return
	case *ast.While:
		p.write("while ")
		p.printExpr(n.Test, precLowest, false)
		p.printBlock(n.Body)
		p.printElse(n.OrElse)
		return
	case *ast.For:
		p.printHeader(n)
		p.printBlock(n.Body)
		p.printElse(n.OrElse)
		return
	case *ast.With:
		p.printHeader(n)
		p.printBlock(n.Body)
		return
	case *ast.Try:
		p.write("try")
		p.printBlock(n.Body)
		for _, h := range n.Handlers {
			p.writeIndent()
			p.write("except")
			if h.Type != nil {
				p.write(" ")
				p.printExpr(h.Type, precLowest, false)
				if h.Name != "" {
					p.write(" as " + h.Name)
				}
			}
			p.printBlock(h.Body)
		}
		p.printElse(n.OrElse)
		if n.Finally != nil {
			p.writeIndent()
			p.write("finally")
			p.printBlock(n.Finally)
		}
		return
	case *ast.FunctionDef:
		for _, d := range n.Decorators {
			p.write("@")
			p.printExpr(d, precLowest, false)
			p.writeln()
			p.writeIndent()
		}
		p.printHeader(n)
		p.printBlock(n.Body)
		return
	case *ast.ClassDef:
		for _, d := range n.Decorators {
			p.write("@")
			p.printExpr(d, precLowest, false)
			p.writeln()
			p.writeIndent()
		}
		p.printHeader(n)
		p.printBlock(n.Body)
		return
	}
	p.printHeader(s)
	p.writeln()
}

func (p *CodePrinter) printIf(n *ast.If, keyword string) {
	p.write(keyword)
	p.printExpr(n.Test, precLowest, false)
	p.printBlock(n.Body)
	if len(n.OrElse) == 1 {
		if elif, ok := n.OrElse[0].(*ast.If); ok {
			p.writeIndent()
			p.printIf(elif, "elif ")
			return
		}
	}
	p.printElse(n.OrElse)
}

func (p *CodePrinter) printElse(body []ast.Statement) {
	if len(body) == 0 {
		return
	}
	p.writeIndent()
	p.write("else")
	p.printBlock(body)
}

// printHeader prints a simple statement, or the first line of a compound one.
func (p *CodePrinter) printHeader(s ast.Statement) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		p.printExpr(n.Value, precLowest, false)
	case *ast.Assign:
		for _, t := range n.Targets {
			p.printExpr(t, precLowest, false)
			p.write(" = ")
		}
		p.printExpr(n.Value, precLowest, false)
	case *ast.AugAssign:
		p.printExpr(n.Target, precLowest, false)
		p.write(" " + n.Op + "= ")
		p.printExpr(n.Value, precLowest, false)
	case *ast.AnnAssign:
		p.printExpr(n.Target, precLowest, false)
		p.write(": ")
		p.printExpr(n.Annotation, precLowest, false)
		if n.Value != nil {
			p.write(" = ")
			p.printExpr(n.Value, precLowest, false)
		}
	case *ast.Delete:
		p.write("del ")
		p.printExprList(n.Targets)
	case *ast.Pass:
		p.write("pass")
	case *ast.Break:
		p.write("break")
	case *ast.Continue:
		p.write("continue")
	case *ast.Return:
		p.write("return")
		if n.Value != nil {
			p.write(" ")
			p.printExpr(n.Value, precLowest, false)
		}
	case *ast.Raise:
		p.write("raise")
		if n.Exc != nil {
			p.write(" ")
			p.printExpr(n.Exc, precLowest, false)
		}
		if n.Cause != nil {
			p.write(" from ")
			p.printExpr(n.Cause, precLowest, false)
		}
	case *ast.Assert:
		p.write("assert ")
		p.printExpr(n.Test, precLowest, false)
		if n.Msg != nil {
			p.write(", ")
			p.printExpr(n.Msg, precLowest, false)
		}
	case *ast.Global:
		p.write("global " + strings.Join(n.Names, ", "))
	case *ast.Nonlocal:
		p.write("nonlocal " + strings.Join(n.Names, ", "))
	case *ast.Import:
		p.write("import ")
		p.printAliases(n.Names)
	case *ast.ImportFrom:
		p.write("from " + strings.Repeat(".", n.Level) + n.Module + " import ")
		p.printAliases(n.Names)
	case *ast.If:
		p.write("if ")
		p.printExpr(n.Test, precLowest, false)
		p.write(":")
	case *ast.While:
		p.write("while ")
		p.printExpr(n.Test, precLowest, false)
		p.write(":")
	case *ast.For:
		if n.IsAsync {
			p.write("async ")
		}
		p.write("for ")
		p.printExpr(n.Target, precLowest, false)
		p.write(" in ")
		p.printExpr(n.Iter, precLowest, false)
	case *ast.With:
		if n.IsAsync {
			p.write("async ")
		}
		p.write("with ")
		for i, it := range n.Items {
			if i > 0 {
				p.write(", ")
			}
			p.printExpr(it.Context, precLowest, false)
			if it.Vars != nil {
				p.write(" as ")
				p.printExpr(it.Vars, precLowest, false)
			}
		}
	case *ast.Try:
		p.write("try:")
	case *ast.FunctionDef:
		if n.IsAsync {
			p.write("async ")
		}
		p.write("def " + n.Name + "(")
		p.printArguments(n.Args, true)
		p.write(")")
		if n.Returns != nil {
			p.write(" -> ")
			p.printExpr(n.Returns, precLowest, false)
		}
	case *ast.ClassDef:
		p.write("class " + n.Name)
		if len(n.Bases) > 0 || len(n.Keywords) > 0 {
			p.write("(")
			p.printExprList(n.Bases)
			if len(n.Bases) > 0 && len(n.Keywords) > 0 {
				p.write(", ")
			}
			p.printKeywords(n.Keywords)
			p.write(")")
		}
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) printAliases(names []*ast.Alias) {
	for i, a := range names {
		if i > 0 {
			p.write(", ")
		}
		p.write(a.Name)
		if a.AsName != "" {
			p.write(" as " + a.AsName)
		}
	}
}

func (p *CodePrinter) printArguments(a *ast.Arguments, annotations bool) {
	if a == nil {
		return
	}
	first := true
	sep := func() {
		if !first {
			p.write(", ")
		}
		first = false
	}
	positional := a.Positional()
	defaultsFrom := len(positional) - len(a.Defaults)
	for i, arg := range positional {
		sep()
		p.printArg(arg, annotations)
		if i >= defaultsFrom {
			p.printDefault(arg, a.Defaults[i-defaultsFrom], annotations)
		}
		if i == len(a.PosOnly)-1 {
			p.write(", /")
		}
	}
	if a.Vararg != nil {
		sep()
		p.write("*")
		p.printArg(a.Vararg, annotations)
	} else if len(a.KwOnly) > 0 {
		sep()
		p.write("*")
	}
	for i, arg := range a.KwOnly {
		sep()
		p.printArg(arg, annotations)
		if i < len(a.KwDefaults) && a.KwDefaults[i] != nil {
			p.printDefault(arg, a.KwDefaults[i], annotations)
		}
	}
	if a.Kwarg != nil {
		sep()
		p.write("**")
		p.printArg(a.Kwarg, annotations)
	}
}

func (p *CodePrinter) printDefault(arg *ast.Arg, def ast.Expression, annotations bool) {
	if annotations && arg.Annotation != nil {
		p.write(" = ")
	} else {
		p.write("=")
	}
	p.printExpr(def, precLambda, false)
}

func (p *CodePrinter) printArg(arg *ast.Arg, annotations bool) {
	p.write(arg.Name)
	if annotations && arg.Annotation != nil {
		p.write(": ")
		p.printExpr(arg.Annotation, precLambda, false)
	}
}

func (p *CodePrinter) printExprList(list []ast.Expression) {
	for i, e := range list {
		if i > 0 {
			p.write(", ")
		}
		p.printExpr(e, precNamed, false)
	}
}

func (p *CodePrinter) printKeywords(kws []*ast.Keyword) {
	for i, kw := range kws {
		if i > 0 {
			p.write(", ")
		}
		if kw.Arg == "" {
			p.write("**")
		} else {
			p.write(kw.Arg + "=")
		}
		p.printExpr(kw.Value, precLambda, false)
	}
}

func (p *CodePrinter) printComprehensions(gens []*ast.Comprehension) {
	for _, g := range gens {
		if g.IsAsync {
			p.write(" async")
		}
		p.write(" for ")
		p.printExpr(g.Target, precLowest, false)
		p.write(" in ")
		p.printExpr(g.Iter, precOr, false)
		for _, cond := range g.Ifs {
			p.write(" if ")
			p.printExpr(cond, precOr, false)
		}
	}
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expression, parentPrec int, isRight bool) {
	if expr == nil {
		p.write("<???>")
		return
	}
	prec := exprPrecedence(expr)
	needParens := prec < parentPrec
	if prec == parentPrec && prec != precAtom {
		// ** is right associative, everything else left associative
		if b, ok := expr.(*ast.BinOp); ok && b.Op == "**" {
			needParens = !isRight
		} else if isRight {
			needParens = true
		}
	}
	if needParens {
		p.write("(")
	}
	p.printExprBody(expr, prec)
	if needParens {
		p.write(")")
	}
}

func exprPrecedence(expr ast.Expression) int {
	switch e := expr.(type) {
	case *ast.NamedExpr:
		return precNamed
	case *ast.Lambda:
		return precLambda
	case *ast.IfExp:
		return precTernary
	case *ast.BoolOp:
		if e.Op == "or" {
			return precOr
		}
		return precAnd
	case *ast.UnaryOp:
		if e.Op == "not" {
			return precNot
		}
		return precUnary
	case *ast.Compare:
		return precCompare
	case *ast.BinOp:
		return getPrecedence(e.Op)
	case *ast.Await:
		return precAwait
	case *ast.Starred:
		return precBitOr
	case *ast.Yield:
		return precNamed
	case *ast.TupleExpr:
		if len(e.Elts) > 0 && e.Token.Lexeme != "(" {
			return precNamed
		}
	}
	return precAtom
}

func (p *CodePrinter) printExprBody(expr ast.Expression, prec int) {
	switch e := expr.(type) {
	case *ast.Name:
		p.write(e.Id)
	case *ast.Constant:
		p.printConstant(e)
	case *ast.FormattedString:
		p.write(e.Token.Lexeme)
	case *ast.TupleExpr:
		if len(e.Elts) == 0 {
			p.write("()")
			return
		}
		paren := e.Token.Lexeme == "("
		if paren {
			p.write("(")
		}
		p.printExprList(e.Elts)
		if len(e.Elts) == 1 {
			p.write(",")
		}
		if paren {
			p.write(")")
		}
	case *ast.ListExpr:
		p.write("[")
		p.printExprList(e.Elts)
		p.write("]")
	case *ast.SetExpr:
		p.write("{")
		p.printExprList(e.Elts)
		p.write("}")
	case *ast.DictExpr:
		p.write("{")
		for i := range e.Values {
			if i > 0 {
				p.write(", ")
			}
			if e.Keys[i] == nil {
				p.write("**")
				p.printExpr(e.Values[i], precBitOr, false)
				continue
			}
			p.printExpr(e.Keys[i], precLambda, false)
			p.write(": ")
			p.printExpr(e.Values[i], precLambda, false)
		}
		p.write("}")
	case *ast.ListComp:
		p.write("[")
		p.printExpr(e.Elt, precNamed, false)
		p.printComprehensions(e.Generators)
		p.write("]")
	case *ast.SetComp:
		p.write("{")
		p.printExpr(e.Elt, precNamed, false)
		p.printComprehensions(e.Generators)
		p.write("}")
	case *ast.GeneratorExp:
		p.write("(")
		p.printExpr(e.Elt, precNamed, false)
		p.printComprehensions(e.Generators)
		p.write(")")
	case *ast.DictComp:
		p.write("{")
		p.printExpr(e.Key, precLambda, false)
		p.write(": ")
		p.printExpr(e.Value, precLambda, false)
		p.printComprehensions(e.Generators)
		p.write("}")
	case *ast.Starred:
		p.write("*")
		p.printExpr(e.Value, precBitOr, false)
	case *ast.NamedExpr:
		p.write(e.Target.Id + " := ")
		p.printExpr(e.Value, precLambda, false)
	case *ast.BinOp:
		p.printExpr(e.Left, prec, false)
		p.write(" " + e.Op + " ")
		p.printExpr(e.Right, prec, true)
	case *ast.UnaryOp:
		if e.Op == "not" {
			p.write("not ")
		} else {
			p.write(e.Op)
		}
		p.printExpr(e.Operand, prec, false)
	case *ast.BoolOp:
		for i, v := range e.Values {
			if i > 0 {
				p.write(" " + e.Op + " ")
			}
			p.printExpr(v, prec, i > 0)
		}
	case *ast.Compare:
		p.printExpr(e.Left, precBitOr, false)
		for i, op := range e.Ops {
			p.write(" " + op + " ")
			p.printExpr(e.Comparators[i], precBitOr, false)
		}
	case *ast.IfExp:
		p.printExpr(e.Body, precOr, false)
		p.write(" if ")
		p.printExpr(e.Test, precOr, false)
		p.write(" else ")
		p.printExpr(e.OrElse, precTernary, false)
	case *ast.Call:
		p.printExpr(e.Func, precAtom, false)
		p.write("(")
		p.printExprList(e.Args)
		if len(e.Args) > 0 && len(e.Keywords) > 0 {
			p.write(", ")
		}
		p.printKeywords(e.Keywords)
		p.write(")")
	case *ast.Attribute:
		p.printExpr(e.Value, precAtom, false)
		p.write("." + e.Attr)
	case *ast.Subscript:
		p.printExpr(e.Value, precAtom, false)
		p.write("[")
		if t, ok := e.Slice.(*ast.TupleExpr); ok && len(t.Elts) > 0 {
			p.printExprList(t.Elts)
		} else {
			p.printExpr(e.Slice, precLowest, false)
		}
		p.write("]")
	case *ast.Slice:
		if e.Lower != nil {
			p.printExpr(e.Lower, precLambda, false)
		}
		p.write(":")
		if e.Upper != nil {
			p.printExpr(e.Upper, precLambda, false)
		}
		if e.Step != nil {
			p.write(":")
			p.printExpr(e.Step, precLambda, false)
		}
	case *ast.Lambda:
		p.write("lambda")
		if e.Args != nil && (len(e.Args.Positional()) > 0 || e.Args.Vararg != nil || len(e.Args.KwOnly) > 0 || e.Args.Kwarg != nil) {
			p.write(" ")
			p.printArguments(e.Args, false)
		}
		p.write(": ")
		p.printExpr(e.Body, precLambda, false)
	case *ast.Yield:
		p.write("yield")
		if e.From {
			p.write(" from")
		}
		if e.Value != nil {
			p.write(" ")
			p.printExpr(e.Value, precNamed, false)
		}
	case *ast.Await:
		p.write("await ")
		p.printExpr(e.Value, precAwait, false)
	default:
		p.write("<???>")
	}
}

func (p *CodePrinter) printConstant(c *ast.Constant) {
	switch c.Kind {
	case ast.StrConst:
		p.write(strconv.Quote(c.Value))
	case ast.BytesConst:
		p.write("b" + strconv.Quote(c.Value))
	case ast.EllipsisConst:
		p.write("...")
	default:
		p.write(c.Value)
	}
}
