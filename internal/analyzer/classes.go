package analyzer

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// LoadClass materializes a stub class declaration. It implements
// typesystem.ClassLoader; members are converted on first access.
func (s *Session) LoadClass(con typesystem.TCon) (*typesystem.Class, error) {
	d, err := stubs.Follow(s.Provider, con.QualName())
	if err != nil {
		return nil, err
	}
	decl, ok := d.(*stubs.ClassDecl)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrI008, zeroTok, "%s is not a class", con.QualName())
	}
	cls := typesystem.NewClass(decl.Module, decl.Name)
	cls.Decorators = decl.Decorators

	names := stubNames{s, decl.Qualify}
	var bases []typesystem.Type
	for _, b := range decl.Bases {
		t, err := s.buildType(b, names)
		if err != nil {
			s.logger.Printf("class %s: base %s: %v", decl.QualName(), stubs.Dotted(b), err)
			continue
		}
		bases = append(bases, t)
	}
	setBases(cls, bases)

	cls.SetLoader(decl.Order, func(name string) (typesystem.Type, bool, error) {
		m, ok := decl.Member(name)
		if !ok {
			return nil, false, nil
		}
		t, err := s.valueOfDecl(m)
		if err != nil {
			return nil, false, err
		}
		return t, true, nil
	})
	return cls, nil
}

// setBases splits Generic[...] and Protocol[...] out of the written bases.
// Without an explicit parameter list the class parameters are the free
// variables of its bases in order of appearance.
func setBases(cls *typesystem.Class, bases []typesystem.Type) {
	var explicit []typesystem.TVar
	declared := false
	for _, b := range bases {
		head, args := b, []typesystem.Type(nil)
		if app, ok := b.(typesystem.TApp); ok {
			head, args = app.Constructor, app.Args
		}
		switch name, _ := special(head); name {
		case config.ProtocolName:
			cls.Protocol = true
			fallthrough
		case config.GenericName:
			for _, a := range args {
				if tv, ok := a.(typesystem.TVar); ok {
					explicit = append(explicit, tv)
				}
			}
			declared = declared || len(args) > 0
			continue
		}
		cls.Bases = append(cls.Bases, b)
	}
	if declared {
		cls.Params = uniqueVars(explicit)
		return
	}
	var free []typesystem.TVar
	for _, b := range cls.Bases {
		free = append(free, b.FreeTypeVariables()...)
	}
	cls.Params = uniqueVars(free)
}

func uniqueVars(vars []typesystem.TVar) []typesystem.TVar {
	seen := make(map[string]bool, len(vars))
	var out []typesystem.TVar
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// moduleMember is the value of module.name, memoized per qualified name.
func (s *Session) moduleMember(module, name string) (typesystem.Type, error) {
	qual := module + "." + name
	if e, ok := s.values[qual]; ok {
		return e.t, e.err
	}
	var t typesystem.Type
	d, err := stubs.Follow(s.Provider, qual)
	if err == nil {
		t, err = s.valueOfDecl(d)
	}
	s.values[qual] = memberEntry{t: t, err: err}
	return t, err
}

// valueOfDecl is the runtime value a declaration denotes: a module, a class
// object, a function, or an instance of a variable's annotated type.
func (s *Session) valueOfDecl(d stubs.Decl) (typesystem.Type, error) {
	switch decl := d.(type) {
	case *stubs.ModuleDecl:
		return typesystem.TModule{Name: decl.Name}, nil
	case *stubs.ClassDecl:
		return typesystem.TType{Type: typesystem.TCon{Name: decl.Name, Module: decl.Module}}, nil
	case *stubs.FuncDecl:
		return s.stubFunc(decl), nil
	case *stubs.TypeVarDecl:
		return typesystem.TType{Type: s.typeVarOf(decl)}, nil
	case *stubs.AliasDecl:
		target, err := stubs.Follow(s.Provider, decl.Target)
		if err != nil {
			return nil, err
		}
		return s.valueOfDecl(target)
	case *stubs.VarDecl:
		names := stubNames{s, decl.Qualify}
		switch {
		case isSpecialFormDecl(decl):
			return typesystem.TType{Type: typesystem.TCon{Name: decl.Name, Module: decl.Module}}, nil
		case decl.Annotation != nil:
			t, err := s.buildType(decl.Annotation, names)
			if err != nil {
				return nil, err
			}
			return t, nil
		case decl.Value != nil:
			if c, ok := decl.Value.(*ast.Constant); ok {
				return constantClasses[c.Kind], nil
			}
			if t, err := s.buildType(decl.Value, names); err == nil {
				return typesystem.TType{Type: t}, nil
			}
		}
		return typesystem.Any, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI008, zeroTok, "cannot use declaration %s", d.QualName())
}

// stubFunc converts a stub function. When any definition is marked
// @overload only those are candidates; property setters and deleters are dropped.
func (s *Session) stubFunc(d *stubs.FuncDecl) typesystem.TFunc {
	names := stubNames{s, d.Qualify}
	var defs []*ast.FunctionDef
	for _, def := range d.Defs {
		if hasDecorator(stubs.DecoratorNames(def), config.OverloadDecorator) {
			defs = append(defs, def)
		}
	}
	if len(defs) == 0 {
		for _, def := range d.Defs {
			decs := stubs.DecoratorNames(def)
			if hasDecorator(decs, "setter") || hasDecorator(decs, "deleter") {
				continue
			}
			defs = append(defs, def)
		}
		if len(defs) > 1 {
			defs = defs[len(defs)-1:]
		}
	}
	fn := typesystem.TFunc{Name: d.Name}
	for i, def := range defs {
		if i == 0 {
			fn.Decorators = stubs.DecoratorNames(def)
		}
		sig, errs := s.buildSignature(def, names)
		for _, err := range errs {
			s.logger.Printf("stub %s: %v", d.QualName(), err)
		}
		if sig.Return == nil {
			sig.Return = typesystem.Any
		}
		sig.Def = nil
		fn.Overloads = append(fn.Overloads, sig)
	}
	return fn
}

// buildSignature converts the parameters and return annotation of def.
// Annotations that fail to convert become Any and are reported in errs.
func (s *Session) buildSignature(def *ast.FunctionDef, names typeNames) (typesystem.Signature, []error) {
	sig := typesystem.Signature{Def: def}
	var errs []error
	conv := func(e ast.Expression) typesystem.Type {
		t, err := s.buildType(e, names)
		if err != nil {
			errs = append(errs, err)
			return typesystem.Any
		}
		return t
	}
	args := def.Args
	if args == nil {
		args = &ast.Arguments{}
	}
	positional := args.Positional()
	firstDefault := len(positional) - len(args.Defaults)
	for i, a := range positional {
		kind := typesystem.ParamPositional
		if i < len(args.PosOnly) {
			kind = typesystem.ParamPositionalOnly
		}
		sig.Params = append(sig.Params, typesystem.Param{
			Name: a.Name, Type: conv(a.Annotation), Kind: kind, HasDefault: i >= firstDefault,
		})
	}
	if args.Vararg != nil {
		sig.Params = append(sig.Params, typesystem.Param{Name: args.Vararg.Name, Type: conv(args.Vararg.Annotation), Kind: typesystem.ParamVarArgs})
	}
	for i, a := range args.KwOnly {
		hasDefault := i < len(args.KwDefaults) && args.KwDefaults[i] != nil
		sig.Params = append(sig.Params, typesystem.Param{Name: a.Name, Type: conv(a.Annotation), Kind: typesystem.ParamKeywordOnly, HasDefault: hasDefault})
	}
	if args.Kwarg != nil {
		sig.Params = append(sig.Params, typesystem.Param{Name: args.Kwarg.Name, Type: conv(args.Kwarg.Annotation), Kind: typesystem.ParamVarKeywords})
	}
	sig.Return = conv(def.Returns)
	return sig, errs
}

func hasDecorator(decorators []string, name string) bool {
	for _, d := range decorators {
		if d == name {
			return true
		}
	}
	return false
}
