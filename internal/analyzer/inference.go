package analyzer

import (
	"strconv"
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/prettyprinter"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// walker infers expressions and executes statements against one frame.
type walker struct {
	s     *Session
	scope *symbols.Scope
	fn    *funcFrame
	// class is set while a class body executes; classes lists the class
	// definitions enclosing the code, outermost first.
	class   *typesystem.Class
	classes []*typesystem.Class
	depth   int
}

// funcFrame collects what a function body returns.
type funcFrame struct {
	def     *ast.FunctionDef
	info    *funcInfo
	returns []typesystem.Type
}

// enter returns a walker for a nested frame that is not a class body.
func (w *walker) enter(scope *symbols.Scope) *walker {
	return &walker{s: w.s, scope: scope, fn: w.fn, classes: w.classes, depth: w.depth}
}

// infer returns the type of e, recording it in the session's TypeMap.
func (w *walker) infer(e ast.Expression) (typesystem.Type, error) {
	if w.depth >= w.s.MaxDepth {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.GetToken(), "expression nested deeper than %d", w.s.MaxDepth)
	}
	w.depth++
	defer func() { w.depth-- }()

	t, err := w.inferExpr(e)
	if err != nil {
		return nil, positioned(err, e).WithNode(prettyprinter.Render(e))
	}
	w.s.TypeMap[e] = t
	return t, nil
}

func (w *walker) inferExpr(expr ast.Expression) (typesystem.Type, error) {
	switch e := expr.(type) {
	case *ast.Name:
		if e.Ctx != ast.Load {
			return nil, diagnostics.Errorf(diagnostics.ErrI002, e.Token, "%q is a %s target, not a value", e.Id, e.Ctx)
		}
		return w.scope.Load(e.Id)
	case *ast.Constant:
		return constantClasses[e.Kind], nil
	case *ast.FormattedString:
		for _, v := range e.Values {
			if _, err := w.infer(v); err != nil {
				return nil, err
			}
		}
		return strType, nil
	case *ast.ListExpr:
		return w.display(config.ListTypeName, e.Elts)
	case *ast.SetExpr:
		return w.display(config.SetTypeName, e.Elts)
	case *ast.TupleExpr:
		return w.tuple(e.Elts)
	case *ast.DictExpr:
		return w.dict(e)
	case *ast.ListComp:
		return w.comprehension(e.Generators, func(cw *walker) (typesystem.Type, error) {
			elt, err := cw.infer(e.Elt)
			return containerOf(config.ListTypeName, elt), err
		})
	case *ast.SetComp:
		return w.comprehension(e.Generators, func(cw *walker) (typesystem.Type, error) {
			elt, err := cw.infer(e.Elt)
			return containerOf(config.SetTypeName, elt), err
		})
	case *ast.GeneratorExp:
		return w.comprehension(e.Generators, func(cw *walker) (typesystem.Type, error) {
			elt, err := cw.infer(e.Elt)
			return generatorOf(elt), err
		})
	case *ast.DictComp:
		return w.comprehension(e.Generators, func(cw *walker) (typesystem.Type, error) {
			k, err := cw.infer(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := cw.infer(e.Value)
			return dictOf(k, v), err
		})
	case *ast.Starred:
		t, err := w.infer(e.Value)
		if err != nil {
			return nil, err
		}
		return w.s.ElementType(t)
	case *ast.NamedExpr:
		t, err := w.infer(e.Value)
		if err != nil {
			return nil, err
		}
		if err := w.scope.Store(e.Target.Id, t); err != nil {
			return nil, err
		}
		return t, nil
	case *ast.BinOp:
		return w.inferBinOp(e)
	case *ast.UnaryOp:
		return w.inferUnaryOp(e)
	case *ast.BoolOp:
		return w.inferBoolOp(e)
	case *ast.Compare:
		return w.inferCompare(e)
	case *ast.IfExp:
		if _, err := w.infer(e.Test); err != nil {
			return nil, err
		}
		body, err := w.infer(e.Body)
		if err != nil {
			return nil, err
		}
		orElse, err := w.infer(e.OrElse)
		if err != nil {
			return nil, err
		}
		return w.s.Lattice.Join(body, orElse), nil
	case *ast.Call:
		return w.inferCall(e)
	case *ast.Attribute:
		if e.Ctx != ast.Load {
			return nil, diagnostics.Errorf(diagnostics.ErrI002, e.Token, "attribute %q is a %s target, not a value", e.Attr, e.Ctx)
		}
		base, err := w.infer(e.Value)
		if err != nil {
			return nil, err
		}
		return w.s.attribute(base, e.Attr)
	case *ast.Subscript:
		return w.inferSubscript(e)
	case *ast.Slice:
		for _, part := range []ast.Expression{e.Lower, e.Upper, e.Step} {
			if part == nil {
				continue
			}
			if _, err := w.infer(part); err != nil {
				return nil, err
			}
		}
		return sliceType, nil
	case *ast.Lambda:
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "lambda expressions are not inferred")
	case *ast.Yield:
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "yield is not inferred")
	case *ast.Await:
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "await is not inferred")
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI009, expr.GetToken(), "unsupported expression %T", expr)
}

// loadDotted reads a.b.c: the head through the scope, the rest as attributes.
func (w *walker) loadDotted(dotted string) (typesystem.Type, error) {
	parts := strings.Split(dotted, ".")
	t, err := w.scope.Load(parts[0])
	if err != nil {
		return nil, err
	}
	for _, attr := range parts[1:] {
		if t, err = w.s.attribute(t, attr); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (w *walker) inferSubscript(e *ast.Subscript) (typesystem.Type, error) {
	if e.Ctx != ast.Load {
		return nil, diagnostics.Errorf(diagnostics.ErrI002, e.Token, "subscript is a %s target, not a value", e.Ctx)
	}
	base, err := w.infer(e.Value)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case typesystem.TAny:
		if _, err := w.infer(e.Slice); err != nil {
			return nil, err
		}
		return typesystem.Any, nil
	case typesystem.TType:
		// list[int] and friends used as values
		t, err := w.s.buildType(e, scopeNames{w})
		if err != nil {
			return nil, err
		}
		return typesystem.TType{Type: t}, nil
	case typesystem.TTuple:
		if i, ok := constantIndex(e.Slice); ok {
			if i < 0 {
				i += len(b.Elements)
			}
			if i < 0 || i >= len(b.Elements) {
				return nil, diagnostics.Errorf(diagnostics.ErrI010, e.Token, "index %s out of range for %s", e.Slice.TokenLiteral(), b)
			}
			return b.Elements[i], nil
		}
	}
	index, err := w.infer(e.Slice)
	if err != nil {
		return nil, err
	}
	return w.s.callMember(base, config.GetItemMethod, []typesystem.Type{index})
}

// constantIndex reads an integer literal index, including a negated one.
func constantIndex(e ast.Expression) (int, bool) {
	neg := false
	if u, ok := e.(*ast.UnaryOp); ok && u.Op == "-" {
		neg, e = true, u.Operand
	}
	c, ok := e.(*ast.Constant)
	if !ok || c.Kind != ast.IntConst {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(c.Value, "_", ""), 0, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return int(n), true
}
