package analyzer

import (
	"strconv"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// typeNames resolves the dotted names used inside a type expression to the
// types they denote: a class reference, a type variable, an alias target or
// one of the typing special forms (as a TCon in the typing module).
type typeNames interface {
	lookupType(dotted string) (typesystem.Type, error)
}

// stubNames resolves names the way the declaring stub module sees them.
type stubNames struct {
	s       *Session
	qualify func(string) string
}

func (n stubNames) lookupType(dotted string) (typesystem.Type, error) {
	return n.s.typeOfQualName(n.qualify(dotted))
}

// scopeNames resolves names through the lexical scope of analyzed source.
type scopeNames struct {
	w *walker
}

func (n scopeNames) lookupType(dotted string) (typesystem.Type, error) {
	for i := len(n.w.classes) - 1; i >= 0; i-- {
		if c := n.w.classes[i]; c.Name == dotted || lastSegment(c.Name) == dotted {
			return c.Con(), nil
		}
	}
	v, err := n.w.loadDotted(dotted)
	if err != nil {
		return nil, err
	}
	return typeOfValue(v, dotted)
}

// typeOfValue reads a runtime value used in annotation position as a type.
func typeOfValue(v typesystem.Type, name string) (typesystem.Type, error) {
	switch t := v.(type) {
	case typesystem.TType:
		return t.Type, nil
	case typesystem.TAny:
		return typesystem.Any, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI009, zeroTok, "%s (%s) is not a type", name, v)
}

var specialForms = map[string]bool{
	config.AnyName:      true,
	config.UnionName:    true,
	config.OptionalName: true,
	config.LiteralName:  true,
	config.CallableName: true,
	config.GenericName:  true,
	config.ProtocolName: true,
	config.SelfName:     true,
	"ClassVar":          true,
	"Final":             true,
	"NoReturn":          true,
	"Never":             true,
}

func special(t typesystem.Type) (string, bool) {
	c, ok := t.(typesystem.TCon)
	if !ok || c.Module != config.TypingModule || !specialForms[c.Name] {
		return "", false
	}
	return c.Name, true
}

// typeOfQualName resolves a qualified name in type position.
func (s *Session) typeOfQualName(qual string) (typesystem.Type, error) {
	d, err := stubs.Follow(s.Provider, qual)
	if err != nil {
		return nil, err
	}
	switch decl := d.(type) {
	case *stubs.ClassDecl:
		return typesystem.TCon{Name: decl.Name, Module: decl.Module}, nil
	case *stubs.TypeVarDecl:
		return s.typeVarOf(decl), nil
	case *stubs.VarDecl:
		if isSpecialFormDecl(decl) {
			return typesystem.TCon{Name: decl.Name, Module: decl.Module}, nil
		}
		if decl.Annotation == nil && decl.Value != nil {
			return s.buildType(decl.Value, stubNames{s, decl.Qualify})
		}
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI009, zeroTok, "%s is not a type", qual)
}

func isSpecialFormDecl(d *stubs.VarDecl) bool {
	return d.Module == config.TypingModule && stubs.Dotted(d.Annotation) == "_SpecialForm"
}

func (s *Session) typeVarOf(d *stubs.TypeVarDecl) typesystem.TVar {
	tv := typesystem.TVar{Name: d.Name}
	if d.Bound != nil {
		if b, err := s.buildType(d.Bound, stubNames{s, d.Qualify}); err == nil {
			tv.Bound = b
		} else {
			s.logger.Printf("typevar %s: bound: %v", d.QualName(), err)
		}
	}
	return tv
}

// buildType converts a type expression. A nil expression yields nil (undeclared).
func (s *Session) buildType(expr ast.Expression, names typeNames) (typesystem.Type, error) {
	t, err := s.buildTypeExpr(expr, names)
	if err != nil || t == nil {
		return t, err
	}
	return bareSpecial(t), nil
}

// bareSpecial maps an unsubscripted special form to the type it stands for.
// Self, Generic and Protocol stay as markers.
func bareSpecial(t typesystem.Type) typesystem.Type {
	name, ok := special(t)
	if !ok {
		return t
	}
	switch name {
	case config.SelfName, config.GenericName, config.ProtocolName:
		return t
	}
	return typesystem.Any
}

func (s *Session) buildTypeExpr(expr ast.Expression, names typeNames) (typesystem.Type, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case *ast.Constant:
		switch e.Kind {
		case ast.NoneConst:
			return noneType, nil
		case ast.EllipsisConst:
			return typesystem.Any, nil
		case ast.StrConst:
			parsed, errs := parser.ParseExpression(e.Value)
			if len(errs) > 0 {
				return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "invalid forward reference %q", e.Value)
			}
			return s.buildType(parsed, names)
		}
	case *ast.Name, *ast.Attribute:
		return names.lookupType(stubs.Dotted(e))
	case *ast.BinOp:
		if e.Op == "|" {
			l, err := s.buildType(e.Left, names)
			if err != nil {
				return nil, err
			}
			r, err := s.buildType(e.Right, names)
			if err != nil {
				return nil, err
			}
			return typesystem.NormalizeUnion([]typesystem.Type{l, r}), nil
		}
	case *ast.Subscript:
		return s.buildSubscript(e, names)
	case *ast.ListExpr:
		// argument list of Callable[[...], R]
		return typesystem.Any, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI009, expr.GetToken(), "unsupported type expression %q", expr.TokenLiteral())
}

func subscriptArgs(e *ast.Subscript) []ast.Expression {
	if tup, ok := e.Slice.(*ast.TupleExpr); ok {
		return tup.Elts
	}
	return []ast.Expression{e.Slice}
}

func (s *Session) buildSubscript(e *ast.Subscript, names typeNames) (typesystem.Type, error) {
	head, err := s.buildTypeExpr(e.Value, names)
	if err != nil {
		return nil, err
	}
	elts := subscriptArgs(e)

	if name, ok := special(head); ok {
		switch name {
		case config.LiteralName:
			return literalType(elts)
		case config.CallableName, config.AnyName, "NoReturn", "Never":
			return typesystem.Any, nil
		}
		args, err := s.buildTypes(elts, names)
		if err != nil {
			return nil, err
		}
		switch name {
		case config.OptionalName:
			return typesystem.NormalizeUnion([]typesystem.Type{args[0], noneType}), nil
		case config.UnionName:
			return typesystem.NormalizeUnion(args), nil
		case "ClassVar", "Final":
			return args[0], nil
		}
		return typesystem.TApp{Constructor: head.(typesystem.TCon), Args: args}, nil
	}

	con, ok := head.(typesystem.TCon)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "%s is not generic", head)
	}
	if con == typesystem.Builtin(config.TupleTypeName) {
		return s.buildTupleType(elts, names)
	}
	args, err := s.buildTypes(elts, names)
	if err != nil {
		return nil, err
	}
	if con == typesystem.Builtin(config.TypeTypeName) && len(args) == 1 {
		return typesystem.TType{Type: args[0]}, nil
	}
	return typesystem.TApp{Constructor: con, Args: args}, nil
}

// buildTupleType handles tuple[X, ...], tuple[()] and fixed-arity tuple[A, B].
func (s *Session) buildTupleType(elts []ast.Expression, names typeNames) (typesystem.Type, error) {
	if len(elts) == 2 {
		if c, ok := elts[1].(*ast.Constant); ok && c.Kind == ast.EllipsisConst {
			elem, err := s.buildType(elts[0], names)
			if err != nil {
				return nil, err
			}
			return typesystem.TApp{Constructor: typesystem.Builtin(config.TupleTypeName), Args: []typesystem.Type{elem}}, nil
		}
	}
	if len(elts) == 1 {
		if tup, ok := elts[0].(*ast.TupleExpr); ok && len(tup.Elts) == 0 {
			return typesystem.TTuple{}, nil
		}
	}
	args, err := s.buildTypes(elts, names)
	if err != nil {
		return nil, err
	}
	return typesystem.TTuple{Elements: args}, nil
}

func (s *Session) buildTypes(elts []ast.Expression, names typeNames) ([]typesystem.Type, error) {
	out := make([]typesystem.Type, len(elts))
	for i, elt := range elts {
		t, err := s.buildType(elt, names)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func literalType(elts []ast.Expression) (typesystem.Type, error) {
	var values []typesystem.LiteralValue
	for _, elt := range elts {
		c, ok := elt.(*ast.Constant)
		if !ok {
			if u, isUnary := elt.(*ast.UnaryOp); isUnary && u.Op == "-" {
				if c, ok = u.Operand.(*ast.Constant); ok {
					c = &ast.Constant{Token: c.Token, Kind: c.Kind, Value: "-" + c.Value}
				}
			}
		}
		if c == nil {
			return nil, diagnostics.Errorf(diagnostics.ErrI009, elt.GetToken(), "Literal[] takes constants only")
		}
		class, ok := constantClasses[c.Kind]
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrI009, c.Token, "unsupported literal %s", c.Value)
		}
		values = append(values, typesystem.LiteralValue{Class: class, Value: literalValue(c)})
	}
	return typesystem.TLiteral{Values: values}, nil
}

func literalValue(c *ast.Constant) string {
	if c.Kind == ast.StrConst || c.Kind == ast.BytesConst {
		return strconv.Quote(c.Value)
	}
	return c.Value
}
