package analyzer

import (
	"strings"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// namedArg is a keyword argument; Name is "" for **mapping.
type namedArg struct {
	Name string
	Type typesystem.Type
}

func kwNames(kwargs []namedArg) map[string]bool {
	out := make(map[string]bool, len(kwargs))
	for _, k := range kwargs {
		if k.Name != "" {
			out[k.Name] = true
		}
	}
	return out
}

func (w *walker) inferCall(e *ast.Call) (typesystem.Type, error) {
	fn, err := w.infer(e.Func)
	if err != nil {
		return nil, err
	}
	if tt, ok := fn.(typesystem.TType); ok && isTypingClass(tt.Type, config.TypeVarName) {
		return w.typeVarCall(e)
	}

	args := make([]typesystem.Type, 0, len(e.Args))
	for _, a := range e.Args {
		t, err := w.infer(a)
		if err != nil {
			return nil, err
		}
		args = append(args, t)
	}
	kwargs := make([]namedArg, 0, len(e.Keywords))
	for _, kw := range e.Keywords {
		t, err := w.infer(kw.Value)
		if err != nil {
			return nil, err
		}
		kwargs = append(kwargs, namedArg{Name: kw.Arg, Type: t})
	}
	return w.s.call(fn, args, kwargs)
}

// typeVarCall handles T = TypeVar("T", bound=...) in analyzed source.
func (w *walker) typeVarCall(e *ast.Call) (typesystem.Type, error) {
	if len(e.Args) == 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "TypeVar() needs a name")
	}
	name, ok := e.Args[0].(*ast.Constant)
	if !ok || name.Kind != ast.StrConst {
		return nil, diagnostics.Errorf(diagnostics.ErrI009, e.Token, "TypeVar() name must be a string literal")
	}
	tv := typesystem.TVar{Name: name.Value}
	for _, kw := range e.Keywords {
		if kw.Arg != "bound" {
			continue
		}
		b, err := w.s.buildType(kw.Value, scopeNames{w})
		if err != nil {
			return nil, err
		}
		tv.Bound = b
	}
	return typesystem.TType{Type: tv}, nil
}

// call infers the result of calling a value of type fn.
func (s *Session) call(fn typesystem.Type, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	switch f := fn.(type) {
	case nil, typesystem.TAny:
		return typesystem.Any, nil
	case typesystem.TType:
		return s.construct(f.Type, args, kwargs)
	case typesystem.TFunc:
		return s.callFunc(f, nil, args, kwargs)
	case typesystem.TMethod:
		return s.callFunc(f.Func, &f, args, kwargs)
	case typesystem.TUnion:
		parts := make([]typesystem.Type, 0, len(f.Types))
		for _, arm := range f.Types {
			t, err := s.call(arm, args, kwargs)
			if err != nil {
				return nil, err
			}
			parts = append(parts, t)
		}
		return s.Lattice.JoinAll(parts), nil
	case typesystem.TVar:
		return nil, diagnostics.Errorf(diagnostics.ErrI003, zeroTok, "cannot call unbound type parameter %s", f.Name)
	case typesystem.TModule:
		return nil, diagnostics.Errorf(diagnostics.ErrI011, zeroTok, "module %s is not callable", f.Name)
	}
	if m, owner, err := s.Lattice.LookupMember(fn, config.CallMethod); err == nil {
		bound, err := s.bindMember(fn, owner, config.CallMethod, m)
		if err != nil {
			return nil, err
		}
		return s.call(bound, args, kwargs)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI011, zeroTok, "%s is not callable", fn)
}

// callFunc calls a function, bound to recv when recv is not nil.
func (s *Session) callFunc(f typesystem.TFunc, recv *typesystem.TMethod, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	switch len(f.Overloads) {
	case 0:
		return nil, diagnostics.Errorf(diagnostics.ErrI005, zeroTok, "%s declares no signatures", f.Name)
	case 1:
		return s.callSignature(f, f.Overloads[0], recv, args, kwargs)
	}
	return s.resolveOverload(f, recv, args, kwargs)
}

// callSignature returns the declared return type of a single signature,
// unifying the arguments only when that type mentions a parameter.
func (s *Session) callSignature(f typesystem.TFunc, sig typesystem.Signature, recv *typesystem.TMethod, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	ret := s.returnOf(sig, recv)
	if !typesystem.HasFreeVariables(ret) {
		return ret, nil
	}
	u := typesystem.NewUnifier(s.Lattice)
	if err := s.bindReceiver(u, f, sig, recv); err != nil {
		return nil, err
	}
	formals, _ := formalsFor(sig, len(args), recv != nil, kwNames(kwargs))
	for i, a := range args {
		if err := u.Unify(formals[i], a); err != nil {
			return nil, err
		}
	}
	for _, kw := range kwargs {
		if p, ok := paramNamed(sig, kw.Name); ok {
			if err := u.Unify(p.Type, kw.Type); err != nil {
				return nil, err
			}
		}
	}
	return u.Resolve(ret)
}

// returnOf is the declared return type of sig, or the type inferred from
// its body, with typing.Self replaced by the receiver.
func (s *Session) returnOf(sig typesystem.Signature, recv *typesystem.TMethod) typesystem.Type {
	ret := sig.Return
	if ret == nil {
		ret = typesystem.Any
		if sig.Def != nil {
			ret = s.inferReturn(sig.Def)
			if recv != nil {
				ret = ret.Apply(s.ownerSubst(recv.Owner))
			}
		}
	}
	if recv != nil {
		ret = typesystem.ReplaceSelf(ret, selfOf(recv))
	}
	return ret
}

// selfOf is what typing.Self stands for in a call through m.
func selfOf(m *typesystem.TMethod) typesystem.Type {
	if tt, ok := m.Receiver.(typesystem.TType); ok {
		return tt.Type
	}
	return m.Receiver
}

// ownerSubst maps the parameters of owner's class to owner's arguments.
func (s *Session) ownerSubst(owner typesystem.Type) typesystem.Subst {
	subst := typesystem.Subst{}
	con, args, ok := typesystem.Nominal(owner)
	if !ok {
		return subst
	}
	cls, err := s.Registry.Lookup(con)
	if err != nil {
		return subst
	}
	for i, p := range cls.Params {
		if i < len(args) && args[i] != nil {
			subst[p.Name] = args[i]
		} else {
			subst[p.Name] = typesystem.Any
		}
	}
	return subst
}

// bindReceiver unifies an explicitly annotated first parameter (self: _S,
// cls: type[_S]) with the receiver. An undeclared receiver needs nothing:
// member lookup has already substituted the class parameters.
func (s *Session) bindReceiver(u *typesystem.Unifier, f typesystem.TFunc, sig typesystem.Signature, recv *typesystem.TMethod) error {
	if recv == nil || f.HasDecorator(config.StaticMethodDecorator) || len(sig.Params) == 0 {
		return nil
	}
	first := sig.Params[0]
	if first.Type == nil || first.Kind == typesystem.ParamVarArgs || first.Kind == typesystem.ParamKeywordOnly {
		return nil
	}
	return u.Unify(first.Type, recv.Receiver)
}

// formalsFor lines the positional parameters of sig up with n arguments,
// dropping the receiver when skipSelf is set. *args absorbs the surplus.
// ok is false when the arguments cannot fit: too many, or a required
// parameter left without a positional or keyword argument.
func formalsFor(sig typesystem.Signature, n int, skipSelf bool, kw map[string]bool) ([]typesystem.Type, bool) {
	var pos []typesystem.Param
	var rest *typesystem.Param
	for i := range sig.Params {
		switch p := sig.Params[i]; p.Kind {
		case typesystem.ParamPositional, typesystem.ParamPositionalOnly:
			pos = append(pos, p)
		case typesystem.ParamVarArgs:
			rest = &sig.Params[i]
		}
	}
	if skipSelf && len(pos) > 0 {
		pos = pos[1:]
	}
	out := make([]typesystem.Type, n)
	ok := true
	for i := 0; i < n; i++ {
		switch {
		case i < len(pos):
			out[i] = pos[i].Type
		case rest != nil:
			out[i] = rest.Type
		default:
			ok = false
		}
	}
	for i := n; i < len(pos); i++ {
		if !pos[i].HasDefault && !kw[pos[i].Name] {
			ok = false
		}
	}
	for _, p := range sig.Params {
		if p.Kind == typesystem.ParamKeywordOnly && !p.HasDefault && !kw[p.Name] {
			ok = false
		}
	}
	return out, ok
}

func paramNamed(sig typesystem.Signature, name string) (typesystem.Param, bool) {
	for _, p := range sig.Params {
		if p.Name == name && p.Kind != typesystem.ParamPositionalOnly && p.Kind != typesystem.ParamVarArgs && p.Kind != typesystem.ParamVarKeywords {
			return p, true
		}
	}
	return typesystem.Param{}, false
}

// attribute is the value of base.name, with functions bound to their receiver.
func (s *Session) attribute(base typesystem.Type, name string) (typesystem.Type, error) {
	if u, ok := base.(typesystem.TUnion); ok {
		parts := make([]typesystem.Type, 0, len(u.Types))
		for _, arm := range u.Types {
			t, err := s.attribute(arm, name)
			if err != nil {
				if diagnostics.HasCode(err, diagnostics.ErrI003) {
					return nil, err
				}
				return nil, diagnostics.Errorf(diagnostics.ErrI010, zeroTok, "%s has no attribute %q on every arm", base, name)
			}
			parts = append(parts, t)
		}
		return s.Lattice.JoinAll(parts), nil
	}
	m, owner, err := s.Lattice.LookupMember(base, name)
	if err != nil {
		return nil, err
	}
	return s.bindMember(base, owner, name, m)
}

// bindMember turns a function found by attribute access into what the access
// evaluates to: a bound method, a class-bound method, the plain function for
// static methods and class-object access, or the getter's result for properties.
func (s *Session) bindMember(recv, owner typesystem.Type, name string, m typesystem.Type) (typesystem.Type, error) {
	f, ok := m.(typesystem.TFunc)
	if !ok {
		return m, nil
	}
	switch r := recv.(type) {
	case typesystem.TModule:
		return f, nil
	case typesystem.TType:
		if f.HasDecorator(config.ClassMethodDecorator) {
			return typesystem.TMethod{Receiver: r, Owner: owner, Name: name, Func: f}, nil
		}
		return f, nil
	}
	switch {
	case f.HasDecorator(config.StaticMethodDecorator):
		return f, nil
	case f.HasDecorator(config.ClassMethodDecorator):
		return typesystem.TMethod{Receiver: typesystem.TType{Type: recv}, Owner: owner, Name: name, Func: f}, nil
	case f.HasDecorator(config.PropertyDecorator):
		getter := typesystem.TMethod{Receiver: recv, Owner: owner, Name: name, Func: f}
		return s.callFunc(f, &getter, nil, nil)
	}
	return typesystem.TMethod{Receiver: recv, Owner: owner, Name: name, Func: f}, nil
}

// callMember calls recv.name(*args).
func (s *Session) callMember(recv typesystem.Type, name string, args []typesystem.Type) (typesystem.Type, error) {
	m, err := s.attribute(recv, name)
	if err != nil {
		return nil, err
	}
	return s.call(m, args, nil)
}

// construct infers the instance produced by calling the class object of t.
func (s *Session) construct(t typesystem.Type, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	switch typ := t.(type) {
	case typesystem.TAny, typesystem.TVar, typesystem.TType:
		return typesystem.Any, nil
	case typesystem.TApp, typesystem.TTuple, typesystem.TLiteral:
		return typ, nil
	case typesystem.TUnion:
		parts := make([]typesystem.Type, 0, len(typ.Types))
		for _, arm := range typ.Types {
			p, err := s.construct(arm, args, kwargs)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return s.Lattice.JoinAll(parts), nil
	case typesystem.TCon:
		if typ == typesystem.Builtin(config.TypeTypeName) && len(args) == 1 && len(kwargs) == 0 {
			return typesystem.TType{Type: args[0]}, nil
		}
		if typ.Module == config.BuiltinsModule && initSpecialized[typ.Name] {
			return s.ResolveGenericInit(typ, args, kwargs)
		}
		cls, err := s.Registry.Lookup(typ)
		if err != nil {
			return nil, err
		}
		if len(cls.Params) == 0 {
			return typ, nil
		}
		return s.specialize(cls, args, kwargs)
	}
	return nil, diagnostics.Errorf(diagnostics.ErrI011, zeroTok, "%s cannot be instantiated", t)
}

// specialize instantiates a generic class by unifying its __init__ formals
// with the arguments. Parameters left unbound become Any.
func (s *Session) specialize(cls *typesystem.Class, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	self := cls.SelfType()
	m, owner, err := s.Lattice.LookupMember(self, config.InitMethod)
	f, isFunc := m.(typesystem.TFunc)
	if err != nil || !isFunc {
		return typesystem.NewUnifier(s.Lattice).ResolveLenient(self), nil
	}
	recv := &typesystem.TMethod{Receiver: self, Owner: owner, Name: config.InitMethod, Func: f}
	kw := kwNames(kwargs)
	var kwErr error
	for _, sig := range f.Overloads {
		u, ok := s.matchSignature(f, sig, recv, args, kw)
		if !ok {
			continue
		}
		if err := unifyKeywords(u, sig, kwargs); err != nil {
			kwErr = err
			continue
		}
		return u.ResolveLenient(self), nil
	}
	if len(f.Overloads) > 1 {
		return nil, unmatched(cls.Name, args)
	}
	if kwErr != nil {
		return nil, kwErr
	}
	return typesystem.NewUnifier(s.Lattice).ResolveLenient(self), nil
}

// unifyKeywords binds the parameters of sig named by keyword arguments.
func unifyKeywords(u *typesystem.Unifier, sig typesystem.Signature, kwargs []namedArg) error {
	for _, k := range kwargs {
		if p, ok := paramNamed(sig, k.Name); ok {
			if err := u.Unify(p.Type, k.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeList(ts []typesystem.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
