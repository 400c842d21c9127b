package analyzer

import (
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// resolveOverload tries the candidates of f in declared order and returns the
// return type of the first one every argument fits. Arguments are matched
// positionally; keyword arguments only satisfy required parameters.
func (s *Session) resolveOverload(f typesystem.TFunc, recv *typesystem.TMethod, args []typesystem.Type, kwargs []namedArg) (typesystem.Type, error) {
	if len(f.Overloads) == 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrI005, zeroTok, "%s declares no signatures", f.Name)
	}
	if s.Strict && len(kwargs) > 0 {
		return nil, diagnostics.Errorf(diagnostics.ErrI004, zeroTok,
			"keyword arguments are not matched against the overloads of %s", f.Name)
	}
	kw := kwNames(kwargs)
	for i, sig := range f.Overloads {
		u, ok := s.matchSignature(f, sig, recv, args, kw)
		if !ok {
			continue
		}
		s.logger.Printf("overload: %s(%s) matched candidate %d %s", f.Name, typeList(args), i, sig)
		return u.Resolve(s.returnOf(sig, recv))
	}
	s.logger.Printf("overload: %s(%s) matched none of %d candidates", f.Name, typeList(args), len(f.Overloads))
	return nil, unmatched(f.Name, args)
}

// matchSignature reports whether args fit sig. It unifies every formal with
// its argument first, so parameters bound by one argument constrain the
// others, then requires each argument to be a subtype of its formal.
// An Any argument fits every formal.
func (s *Session) matchSignature(f typesystem.TFunc, sig typesystem.Signature, recv *typesystem.TMethod, args []typesystem.Type, kw map[string]bool) (*typesystem.Unifier, bool) {
	formals, ok := formalsFor(sig, len(args), recv != nil, kw)
	if !ok {
		return nil, false
	}
	u := typesystem.NewUnifier(s.Lattice)
	if err := s.bindReceiver(u, f, sig, recv); err != nil {
		return nil, false
	}
	for i, a := range args {
		if err := u.Unify(formals[i], a); err != nil {
			return nil, false
		}
	}
	for i, a := range args {
		if formals[i] == nil || typesystem.IsAny(a) {
			continue
		}
		want := formals[i].Apply(u.Bindings)
		if recv != nil {
			want = typesystem.ReplaceSelf(want, selfOf(recv))
		}
		if !s.Lattice.SubtypeEq(a, want) {
			return nil, false
		}
	}
	return u, true
}

func unmatched(name string, args []typesystem.Type) error {
	return diagnostics.Errorf(diagnostics.ErrI004, zeroTok, "no overload of %s matches (%s)", name, typeList(args))
}
