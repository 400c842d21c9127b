package typesystem

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/funvibe/stubinfer/internal/config"
)

// conforms checks t against a protocol class member by member and returns the
// protocol's type arguments. A check that re-enters itself for the same pair
// is assumed to hold.
func (l *Lattice) conforms(t Type, target TCon) ([]Type, bool) {
	proto, err := l.Registry.Lookup(target)
	if err != nil || !proto.Protocol {
		return nil, false
	}
	if l.assuming == nil {
		l.assuming = set.New[string](4)
	}
	key := typeString(t) + "~" + target.QualName()
	if !l.assuming.Insert(key) {
		return nil, true
	}
	defer l.assuming.Remove(key)

	self := make([]Type, len(proto.Params))
	for i, p := range proto.Params {
		self[i] = p
	}
	u := NewUnifier(l)
	var deferred []string
	check := func(name string, late bool) bool {
		want, _, ok, err := l.classMember(target, self, name, set.New[string](8), 1)
		if err != nil || !ok {
			return false
		}
		got, _, err := l.LookupMember(t, name)
		if err != nil {
			return false
		}
		gotRet := ReplaceSelf(memberResult(got), t)
		if !late && Identical(gotRet, t) {
			deferred = append(deferred, name)
			return true
		}
		return u.Unify(ReplaceSelf(memberResult(want), t), gotRet) == nil
	}
	for _, name := range l.protocolMembers(proto) {
		if !check(name, false) {
			return nil, false
		}
	}
	for _, name := range deferred {
		if !check(name, true) {
			return nil, false
		}
	}
	args := make([]Type, len(proto.Params))
	for i, p := range proto.Params {
		args[i] = u.ResolveLenient(p)
	}
	return args, true
}

// protocolMembers lists the members a protocol requires, including those of
// its protocol bases.
func (l *Lattice) protocolMembers(proto *Class) []string {
	seen := set.New[string](8)
	var out []string
	var walk func(c *Class, depth int)
	walk = func(c *Class, depth int) {
		if depth > config.MaxBaseDepth {
			return
		}
		for _, n := range c.MemberNames() {
			if seen.Insert(n) {
				out = append(out, n)
			}
		}
		for _, b := range c.Bases {
			con, _, ok := Nominal(b)
			if !ok {
				continue
			}
			if bc, err := l.Registry.Lookup(con); err == nil && bc.Protocol {
				walk(bc, depth+1)
			}
		}
	}
	walk(proto, 0)
	return out
}

// memberResult is what using a member yields: the declared return of a
// function or property, or the attribute type itself.
func memberResult(m Type) Type {
	switch f := m.(type) {
	case TMethod:
		return memberResult(f.Func)
	case TFunc:
		if len(f.Overloads) == 0 || f.Overloads[0].Return == nil {
			return Any
		}
		return f.Overloads[0].Return
	}
	return m
}
