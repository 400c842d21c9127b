package typesystem

import (
	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/config"
)

// Unifier binds the generic parameters of a formal type to the concrete
// types found at a call or construction site. The first binding of a
// parameter wins.
type Unifier struct {
	lat      *Lattice
	Bindings Subst
}

// NewUnifier creates a unifier with no bindings.
func NewUnifier(lat *Lattice) *Unifier {
	return &Unifier{lat: lat, Bindings: Subst{}}
}

// Child returns a unifier starting from a copy of the current bindings.
func (u *Unifier) Child() *Unifier {
	b := make(Subst, len(u.Bindings))
	for k, v := range u.Bindings {
		b[k] = v
	}
	return &Unifier{lat: u.lat, Bindings: b}
}

// Unify matches formal against concrete, recording parameter bindings.
// A formal that mentions no parameter imposes no constraint here; whether the
// concrete type fits it is a subtyping question.
func (u *Unifier) Unify(formal, concrete Type) error {
	return u.unify(formal, concrete, 0)
}

func (u *Unifier) unify(formal, concrete Type, depth int) error {
	if depth > config.MaxUnifyDepth {
		return errDepth(formal, concrete)
	}
	if formal == nil || !HasFreeVariables(formal) {
		return nil
	}
	if concrete == nil {
		concrete = Any
	}

	if tv, ok := formal.(TVar); ok {
		return u.Bind(tv, concrete)
	}

	if _, ok := concrete.(TAny); ok {
		for _, tv := range formal.FreeTypeVariables() {
			if err := u.Bind(tv, Any); err != nil {
				return err
			}
		}
		return nil
	}

	if cu, ok := concrete.(TUnion); ok {
		if _, formalUnion := formal.(TUnion); !formalUnion {
			return u.unifyUnionArms(formal, cu, depth)
		}
	}

	switch ft := formal.(type) {
	case TUnion:
		var varArms []Type
		for _, arm := range ft.Types {
			if HasFreeVariables(arm) {
				varArms = append(varArms, arm)
				continue
			}
			if u.lat.Subtype(concrete, arm) {
				return nil
			}
		}
		if len(varArms) == 1 {
			return u.unify(varArms[0], concrete, depth+1)
		}
		var firstErr error
		for _, arm := range varArms {
			child := u.Child()
			if err := child.unify(arm, concrete, depth+1); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			u.Bindings = child.Bindings
			return nil
		}
		return firstErr

	case TTuple:
		if ct, ok := concrete.(TTuple); ok && len(ct.Elements) == len(ft.Elements) {
			for i := range ft.Elements {
				if err := u.unify(ft.Elements[i], ct.Elements[i], depth+1); err != nil {
					return err
				}
			}
			return nil
		}
		args, ok := u.lat.Upcast(concrete, Builtin(config.TupleTypeName))
		if !ok {
			return nil
		}
		elem := argAt(args, 0)
		for _, e := range ft.Elements {
			if err := u.unify(e, elem, depth+1); err != nil {
				return err
			}
		}
		return nil

	case TApp:
		args, ok := u.lat.Upcast(concrete, ft.Constructor)
		if !ok {
			return nil
		}
		for i, fa := range ft.Args {
			if err := u.unify(fa, argAt(args, i), depth+1); err != nil {
				return err
			}
		}
		return nil

	case TType:
		if ct, ok := concrete.(TType); ok {
			return u.unify(ft.Type, ct.Type, depth+1)
		}
		return nil
	}
	return nil
}

// unifyUnionArms unifies each arm separately and joins what each arm bound.
func (u *Unifier) unifyUnionArms(formal Type, cu TUnion, depth int) error {
	joined := Subst{}
	for _, arm := range cu.Types {
		child := u.Child()
		if err := child.unify(formal, arm, depth+1); err != nil {
			return err
		}
		for name, t := range child.Bindings {
			if _, had := u.Bindings[name]; had {
				continue
			}
			joined[name] = u.lat.Join(joined[name], t)
		}
	}
	names := make([]string, 0, len(joined))
	for name := range joined {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := u.Bind(TVar{Name: name}, joined[name]); err != nil {
			return err
		}
	}
	return nil
}

// Bind records tv := t. Rebinding to an equal type, to Any, or to a subtype of
// the existing binding is a no-op; any other rebinding is an error.
func (u *Unifier) Bind(tv TVar, t Type) error {
	if t == nil {
		t = Any
	}
	if other, ok := t.(TVar); ok && other.Name == tv.Name {
		return nil
	}
	if OccursCheck(tv, t) {
		return nil
	}
	existing, ok := u.Bindings[tv.Name]
	if !ok {
		u.Bindings[tv.Name] = t
		return nil
	}
	// A subtype of the existing binding, or Any on either side, keeps it.
	if isAny(existing) || isAny(t) || u.lat.SubtypeEq(t, existing) {
		return nil
	}
	return errConflict(tv, existing, t)
}

// Resolve substitutes the bindings into ret. Every parameter ret mentions must be bound.
func (u *Unifier) Resolve(ret Type) (Type, error) {
	if ret == nil {
		return Any, nil
	}
	var unbound []string
	for _, tv := range ret.FreeTypeVariables() {
		if _, ok := u.Bindings[tv.Name]; !ok {
			unbound = append(unbound, tv.Name)
		}
	}
	if len(unbound) > 0 {
		return nil, errUnbound(unbound)
	}
	return ret.Apply(u.Bindings), nil
}

// ResolveLenient substitutes the bindings into ret, treating unbound parameters as Any.
func (u *Unifier) ResolveLenient(ret Type) Type {
	if ret == nil {
		return Any
	}
	for _, tv := range ret.FreeTypeVariables() {
		if _, ok := u.Bindings[tv.Name]; !ok {
			u.Bindings[tv.Name] = Any
		}
	}
	return ret.Apply(u.Bindings)
}

// OccursCheck returns true if tv appears free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

func argAt(args []Type, i int) Type {
	if i < len(args) && args[i] != nil {
		return args[i]
	}
	return Any
}
