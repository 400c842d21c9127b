package ast

// Inspect traverses the tree rooted at node in depth-first order, calling f
// for every node. If f returns false, the children of that node are skipped.
// Nil nodes are never passed to f.
func Inspect(node Node, f func(Node) bool) {
	if isNil(node) || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Module:
		inspectStmts(n.Body, f)

	// Expressions
	case *Name, *Constant:
	case *FormattedString:
		inspectExprs(n.Values, f)
	case *ListExpr:
		inspectExprs(n.Elts, f)
	case *TupleExpr:
		inspectExprs(n.Elts, f)
	case *SetExpr:
		inspectExprs(n.Elts, f)
	case *DictExpr:
		for i := range n.Values {
			if n.Keys[i] != nil {
				Inspect(n.Keys[i], f)
			}
			Inspect(n.Values[i], f)
		}
	case *ListComp:
		Inspect(n.Elt, f)
		inspectGenerators(n.Generators, f)
	case *SetComp:
		Inspect(n.Elt, f)
		inspectGenerators(n.Generators, f)
	case *GeneratorExp:
		Inspect(n.Elt, f)
		inspectGenerators(n.Generators, f)
	case *DictComp:
		Inspect(n.Key, f)
		Inspect(n.Value, f)
		inspectGenerators(n.Generators, f)
	case *Starred:
		Inspect(n.Value, f)
	case *NamedExpr:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *BinOp:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *UnaryOp:
		Inspect(n.Operand, f)
	case *BoolOp:
		inspectExprs(n.Values, f)
	case *Compare:
		Inspect(n.Left, f)
		inspectExprs(n.Comparators, f)
	case *IfExp:
		Inspect(n.Test, f)
		Inspect(n.Body, f)
		Inspect(n.OrElse, f)
	case *Call:
		Inspect(n.Func, f)
		inspectExprs(n.Args, f)
		for _, kw := range n.Keywords {
			Inspect(kw.Value, f)
		}
	case *Attribute:
		Inspect(n.Value, f)
	case *Subscript:
		Inspect(n.Value, f)
		Inspect(n.Slice, f)
	case *Slice:
		Inspect(n.Lower, f)
		Inspect(n.Upper, f)
		Inspect(n.Step, f)
	case *Lambda:
		inspectArguments(n.Args, f)
		Inspect(n.Body, f)
	case *Yield:
		Inspect(n.Value, f)
	case *Await:
		Inspect(n.Value, f)

	// Statements
	case *ExprStmt:
		Inspect(n.Value, f)
	case *Assign:
		inspectExprs(n.Targets, f)
		Inspect(n.Value, f)
	case *AugAssign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *AnnAssign:
		Inspect(n.Target, f)
		Inspect(n.Annotation, f)
		Inspect(n.Value, f)
	case *Delete:
		inspectExprs(n.Targets, f)
	case *Pass, *Break, *Continue, *Global, *Nonlocal, *Import, *ImportFrom:
	case *Return:
		Inspect(n.Value, f)
	case *Raise:
		Inspect(n.Exc, f)
		Inspect(n.Cause, f)
	case *Assert:
		Inspect(n.Test, f)
		Inspect(n.Msg, f)
	case *If:
		Inspect(n.Test, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.OrElse, f)
	case *While:
		Inspect(n.Test, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.OrElse, f)
	case *For:
		Inspect(n.Target, f)
		Inspect(n.Iter, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.OrElse, f)
	case *With:
		for _, it := range n.Items {
			Inspect(it.Context, f)
			Inspect(it.Vars, f)
		}
		inspectStmts(n.Body, f)
	case *Try:
		inspectStmts(n.Body, f)
		for _, h := range n.Handlers {
			Inspect(h.Type, f)
			inspectStmts(h.Body, f)
		}
		inspectStmts(n.OrElse, f)
		inspectStmts(n.Finally, f)
	case *FunctionDef:
		inspectExprs(n.Decorators, f)
		inspectArguments(n.Args, f)
		Inspect(n.Returns, f)
		inspectStmts(n.Body, f)
	case *ClassDef:
		inspectExprs(n.Decorators, f)
		inspectExprs(n.Bases, f)
		for _, kw := range n.Keywords {
			Inspect(kw.Value, f)
		}
		inspectStmts(n.Body, f)
	}
}

func inspectExprs(list []Expression, f func(Node) bool) {
	for _, e := range list {
		Inspect(e, f)
	}
}

func inspectStmts(list []Statement, f func(Node) bool) {
	for _, s := range list {
		Inspect(s, f)
	}
}

func inspectGenerators(gens []*Comprehension, f func(Node) bool) {
	for _, g := range gens {
		Inspect(g.Target, f)
		Inspect(g.Iter, f)
		inspectExprs(g.Ifs, f)
	}
}

func inspectArguments(a *Arguments, f func(Node) bool) {
	if a == nil {
		return
	}
	for _, arg := range a.Positional() {
		Inspect(arg.Annotation, f)
	}
	for _, arg := range a.KwOnly {
		Inspect(arg.Annotation, f)
	}
	if a.Vararg != nil {
		Inspect(a.Vararg.Annotation, f)
	}
	if a.Kwarg != nil {
		Inspect(a.Kwarg.Annotation, f)
	}
	inspectExprs(a.Defaults, f)
	for _, d := range a.KwDefaults {
		if d != nil {
			Inspect(d, f)
		}
	}
}

// isNil catches both untyped nil and typed nil pointers stored in an interface.
func isNil(n Node) bool {
	if n == nil {
		return true
	}
	switch v := n.(type) {
	case *Name:
		return v == nil
	case *Module:
		return v == nil
	}
	return false
}
