package analyzer

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/stubs"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// funcInfo is what a def statement leaves behind for inferring its body later.
type funcInfo struct {
	def     *ast.FunctionDef
	scope   *symbols.Scope // the defining frame
	class   *typesystem.Class
	classes []*typesystem.Class
	sig     typesystem.Signature
	decs    []string
	// self is the receiver parameter of an instance method, "" otherwise.
	self string
}

func (f *funcInfo) static() bool {
	return hasDecorator(f.decs, config.StaticMethodDecorator)
}

func (f *funcInfo) classMethod() bool {
	return hasDecorator(f.decs, config.ClassMethodDecorator)
}

// defineFunction binds a def statement. The body is not executed here: its
// return type is inferred on first call, or at the end of module analysis.
func (w *walker) defineFunction(def *ast.FunctionDef) error {
	for _, d := range def.Decorators {
		if _, err := w.infer(d); err != nil {
			w.s.addError(err, d)
		}
	}
	if def.Args != nil {
		for _, d := range append(append([]ast.Expression(nil), def.Args.Defaults...), def.Args.KwDefaults...) {
			if d == nil {
				continue
			}
			if _, err := w.infer(d); err != nil {
				w.s.addError(err, d)
			}
		}
	}
	sig, errs := w.s.buildSignature(def, scopeNames{w})
	for _, err := range errs {
		w.s.addError(err, def)
	}

	info := &funcInfo{
		def:     def,
		scope:   w.scope,
		class:   w.class,
		classes: w.classes,
		sig:     sig,
		decs:    stubs.DecoratorNames(def),
	}
	if info.class != nil && !info.static() && !info.classMethod() {
		if params := def.Args.Positional(); len(params) > 0 {
			info.self = params[0].Name
		}
	}
	w.s.funcs[def] = info
	w.s.pending = append(w.s.pending, def)

	fn := typesystem.TFunc{Name: def.Name, Overloads: []typesystem.Signature{sig}, Decorators: info.decs}
	if prev, ok := w.scope.Lookup(def.Name); ok {
		fn = redefine(prev, fn)
	}
	return w.scope.Store(def.Name, fn)
}

// redefine merges a def with the function it rebinds: @overload variants
// accumulate, the implementation after them keeps the overloads, and
// property setters keep the getter.
func redefine(prev typesystem.Type, fn typesystem.TFunc) typesystem.TFunc {
	p, ok := prev.(typesystem.TFunc)
	if !ok {
		return fn
	}
	overload := fn.HasDecorator(config.OverloadDecorator)
	switch {
	case overload && p.HasDecorator(config.OverloadDecorator):
		p.Overloads = append(append([]typesystem.Signature(nil), p.Overloads...), fn.Overloads...)
		return p
	case !overload && p.HasDecorator(config.OverloadDecorator):
		return p
	case p.HasDecorator(config.PropertyDecorator) && (fn.HasDecorator("setter") || fn.HasDecorator("deleter")):
		return p
	}
	return fn
}

// inferReturn is the join of everything def returns, None when it never
// returns a value. A function reached again while its body is being inferred
// returns Any.
func (s *Session) inferReturn(def *ast.FunctionDef) typesystem.Type {
	if t, ok := s.returns[def]; ok {
		return t
	}
	info, ok := s.funcs[def]
	if !ok || s.inferring[def] {
		return typesystem.Any
	}
	s.inferring[def] = true
	defer delete(s.inferring, def)

	frame := s.runFunction(info)
	t := typesystem.Type(noneType)
	if len(frame.returns) > 0 {
		t = s.Lattice.JoinAll(frame.returns)
	}
	s.logger.Printf("infer: %s returns %s", def.Name, t)
	s.returns[def] = t
	return t
}

// runFunction executes the body of a def once with its parameters bound.
func (s *Session) runFunction(info *funcInfo) *funcFrame {
	def := info.def
	scope := symbols.NewScope(symbols.ScopeFunction, def.Name, def.Body, info.scope)
	for i, p := range info.sig.Params {
		scope.Declare(p.Name)
		_ = scope.Store(p.Name, s.paramType(info, i, p))
	}
	frame := &funcFrame{def: def, info: info}
	fw := &walker{s: s, scope: scope, fn: frame, classes: info.classes}
	fw.execBody(def.Body)
	return frame
}

// paramType is the type a parameter has inside the body.
func (s *Session) paramType(info *funcInfo, i int, p typesystem.Param) typesystem.Type {
	t := p.Type
	if i == 0 && t == nil && info.class != nil && !info.static() &&
		(p.Kind == typesystem.ParamPositional || p.Kind == typesystem.ParamPositionalOnly) {
		if info.classMethod() {
			return typesystem.TType{Type: info.class.SelfType()}
		}
		return info.class.SelfType()
	}
	if t == nil {
		t = typesystem.Any
	}
	switch p.Kind {
	case typesystem.ParamVarArgs:
		return typesystem.TApp{Constructor: tupleCon, Args: []typesystem.Type{t}}
	case typesystem.ParamVarKeywords:
		return dictOf(strType, t)
	}
	return t
}

// inferPending infers the bodies of every def seen so far, including defs
// nested in bodies inferred along the way.
func (s *Session) inferPending() {
	for i := 0; i < len(s.pending); i++ {
		s.inferReturn(s.pending[i])
	}
}
