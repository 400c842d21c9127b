package typesystem

import (
	"github.com/hashicorp/go-set/v3"
	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

// ModuleMemberFunc resolves an attribute of a module namespace.
type ModuleMemberFunc func(module, name string) (Type, error)

// Lattice implements subtyping, join and member lookup over a Registry.
type Lattice struct {
	Registry     *Registry
	ModuleMember ModuleMemberFunc

	assuming *set.Set[string]
}

// NewLattice creates a lattice over reg.
func NewLattice(reg *Registry) *Lattice {
	return &Lattice{Registry: reg, assuming: set.New[string](4)}
}

// Nominal returns the class reference and type arguments a type behaves as
// for base-graph purposes. Unions, type variables and Any have no nominal view.
func Nominal(t Type) (TCon, []Type, bool) {
	switch typ := t.(type) {
	case TCon:
		return typ, nil, true
	case TApp:
		return typ.Constructor, typ.Args, true
	case TTuple:
		return Builtin(config.TupleTypeName), []Type{NormalizeUnion(typ.Elements)}, true
	case TLiteral:
		classes := typ.Classes()
		if len(classes) == 1 {
			return Nominal(classes[0])
		}
		return TCon{}, nil, false
	case *Object:
		return Nominal(typ.Class)
	case TFunc, TMethod:
		return Builtin(config.FunctionTypeName), nil, true
	case TType:
		return Builtin(config.TypeTypeName), []Type{typ.Type}, true
	case TModule:
		return TCon{Name: config.ModuleTypeName, Module: "types"}, nil, true
	}
	return TCon{}, nil, false
}

// Upcast views t as an instance of target and returns target's type arguments.
// ok is false when target is not reachable through t's bases.
func (l *Lattice) Upcast(t Type, target TCon) ([]Type, bool) {
	con, args, ok := Nominal(t)
	if !ok {
		return nil, false
	}
	visited := set.New[string](8)
	if out, ok := l.upcast(con, args, target, visited, 0); ok {
		return out, true
	}
	return l.conforms(t, target)
}

func (l *Lattice) upcast(con TCon, args []Type, target TCon, visited *set.Set[string], depth int) ([]Type, bool) {
	qual := con.QualName()
	if qual == target.QualName() {
		return args, true
	}
	if target.QualName() == ObjectClass().QualName() {
		return nil, true
	}
	if depth > config.MaxBaseDepth || !visited.Insert(qual) {
		return nil, false
	}
	cls, err := l.Registry.Lookup(con)
	if err != nil {
		return nil, false
	}
	subst := classSubst(cls, args)
	for _, base := range cls.Bases {
		bcon, bargs, ok := Nominal(base.Apply(subst))
		if !ok {
			continue
		}
		if out, ok := l.upcast(bcon, bargs, target, visited, depth+1); ok {
			return out, true
		}
	}
	return nil, false
}

// classSubst maps the class parameters to args; missing arguments are Any.
func classSubst(cls *Class, args []Type) Subst {
	subst := Subst{}
	for i, p := range cls.Params {
		if i < len(args) && args[i] != nil {
			subst[p.Name] = args[i]
		} else {
			subst[p.Name] = Any
		}
	}
	return subst
}

// Subtype is the A <: B predicate. It is reflexive.
func (l *Lattice) Subtype(a, b Type) bool {
	if a == nil {
		a = Any
	}
	if b == nil {
		b = Any
	}
	if _, ok := b.(TAny); ok {
		return true
	}
	if _, ok := a.(TAny); ok {
		return false
	}

	if au, ok := a.(TUnion); ok {
		for _, arm := range au.Types {
			if !l.Subtype(arm, b) {
				return false
			}
		}
		return true
	}
	if bu, ok := b.(TUnion); ok {
		for _, arm := range bu.Types {
			if l.Subtype(a, arm) {
				return true
			}
		}
		return false
	}

	if Identical(a, b) {
		return true
	}

	switch at := a.(type) {
	case TVar:
		// Only object is above an unbounded parameter.
		if at.Bound != nil {
			return l.Subtype(at.Bound, b)
		}
		return isObject(b)
	case TLiteral:
		if bl, ok := b.(TLiteral); ok {
			return literalContained(at, bl)
		}
		return l.Subtype(l.JoinAll(at.Classes()), b)
	case TTuple:
		if bt, ok := b.(TTuple); ok {
			if len(at.Elements) != len(bt.Elements) {
				return false
			}
			for i := range at.Elements {
				if !l.Subtype(at.Elements[i], bt.Elements[i]) {
					return false
				}
			}
			return true
		}
	case TType:
		if bt, ok := b.(TType); ok {
			return l.Subtype(at.Type, bt.Type)
		}
	}

	switch b.(type) {
	case TVar, TLiteral, TTuple, TFunc, TMethod, TModule, TType:
		return false
	case *Object:
		if ao, ok := a.(*Object); ok {
			return ao == b
		}
		return false
	}

	bcon, bargs, ok := Nominal(b)
	if !ok {
		return false
	}
	args, ok := l.Upcast(a, bcon)
	if !ok {
		return false
	}
	for i, ba := range bargs {
		var aa Type = Any
		if i < len(args) && args[i] != nil {
			aa = args[i]
		}
		if isAny(aa) || isAny(ba) {
			continue
		}
		if !l.SubtypeEq(aa, ba) {
			return false
		}
	}
	return true
}

// SubtypeEq is A <= B: equal or subtype.
func (l *Lattice) SubtypeEq(a, b Type) bool {
	return l.Equal(a, b) || l.Subtype(a, b)
}

// Equal is name-based for nominal types. Instances compare as their class.
// A union or Any is never equal to a plain type.
func (l *Lattice) Equal(a, b Type) bool {
	if o, ok := a.(*Object); ok {
		a = o.Class
	}
	if o, ok := b.(*Object); ok {
		b = o.Class
	}
	return Identical(a, b)
}

// Join is the least upper bound used when merging branches.
func (l *Lattice) Join(a, b Type) Type {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case isAny(a) || isAny(b):
		return Any
	case Identical(a, b):
		return a
	}
	if o, ok := a.(*Object); ok {
		return l.Join(o.Class, b)
	}
	if o, ok := b.(*Object); ok {
		return l.Join(a, o.Class)
	}
	ab, ba := l.Subtype(a, b), l.Subtype(b, a)
	switch {
	case ab && ba:
		if a.String() < b.String() {
			return a
		}
		return b
	case ab:
		return b
	case ba:
		return a
	}
	return l.absorb(NormalizeUnion([]Type{a, b}))
}

// absorb drops union arms that are subtypes of another arm.
func (l *Lattice) absorb(t Type) Type {
	u, ok := t.(TUnion)
	if !ok {
		return t
	}
	var kept []Type
	for i, arm := range u.Types {
		redundant := false
		for j, other := range u.Types {
			if i == j || Identical(arm, other) || !l.Subtype(arm, other) {
				continue
			}
			if !l.Subtype(other, arm) || j < i {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, arm)
		}
	}
	return NormalizeUnion(kept)
}

// JoinAll folds Join over ts. The join of nothing is Any.
func (l *Lattice) JoinAll(ts []Type) Type {
	var out Type
	for _, t := range ts {
		out = l.Join(out, t)
	}
	if out == nil {
		return Any
	}
	return out
}

// Member returns the type of attribute name on t.
func (l *Lattice) Member(t Type, name string) (Type, error) {
	m, _, err := l.LookupMember(t, name)
	return m, err
}

// LookupMember returns the type of attribute name on t and the instantiated
// class it was found on. Members of a class object are returned unbound.
func (l *Lattice) LookupMember(t Type, name string) (Type, Type, error) {
	switch typ := t.(type) {
	case nil, TAny:
		return Any, Any, nil
	case TVar:
		return nil, nil, errTypeVarAccess(typ, name)
	case TUnion:
		var parts []Type
		for _, arm := range typ.Types {
			m, _, err := l.LookupMember(arm, name)
			if err != nil {
				if diagnostics.HasCode(err, diagnostics.ErrI003) {
					return nil, nil, err
				}
				return nil, nil, errAttribute(t, name)
			}
			parts = append(parts, m)
		}
		return l.JoinAll(parts), t, nil
	case *Object:
		if m, ok := typ.Attr(name); ok {
			return m, typ.Class, nil
		}
		return l.LookupMember(typ.Class, name)
	case TModule:
		if l.ModuleMember == nil {
			return nil, nil, errAttribute(t, name)
		}
		m, err := l.ModuleMember(typ.Name, name)
		if err != nil {
			return nil, nil, err
		}
		return m, t, nil
	case TLiteral:
		return l.LookupMember(l.JoinAll(typ.Classes()), name)
	case TType:
		if m, owner, ok, err := l.classAttribute(typ.Type, name); err != nil || ok {
			return m, owner, err
		}
	}

	con, args, ok := Nominal(t)
	if !ok {
		return nil, nil, errAttribute(t, name)
	}
	m, owner, ok, err := l.classMember(con, args, name, set.New[string](8), 0)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errAttribute(t, name)
	}
	return m, owner, nil
}

// classAttribute looks name up on the class object itself. A bare generic class
// keeps its own parameters unsubstituted.
func (l *Lattice) classAttribute(t Type, name string) (Type, Type, bool, error) {
	if tv, ok := t.(TVar); ok {
		return nil, nil, false, errTypeVarAccess(tv, name)
	}
	con, args, ok := Nominal(t)
	if !ok {
		return nil, nil, false, nil
	}
	if _, isCon := t.(TCon); isCon {
		if cls, err := l.Registry.Lookup(con); err == nil {
			for _, p := range cls.Params {
				args = append(args, p)
			}
		}
	}
	return l.classMember(con, args, name, set.New[string](8), 0)
}

func (l *Lattice) classMember(con TCon, args []Type, name string, visited *set.Set[string], depth int) (Type, Type, bool, error) {
	if depth > config.MaxBaseDepth || !visited.Insert(con.QualName()) {
		return nil, nil, false, nil
	}
	cls, err := l.Registry.Lookup(con)
	if err != nil {
		return nil, nil, false, err
	}
	subst := classSubst(cls, args)
	var owner Type = con
	if len(cls.Params) > 0 {
		owner = cls.SelfType().Apply(subst)
	}
	m, ok, err := cls.OwnMember(name)
	if err != nil {
		return nil, nil, false, err
	}
	if ok {
		return m.Apply(subst), owner, true, nil
	}
	for _, base := range cls.Bases {
		bcon, bargs, ok := Nominal(base.Apply(subst))
		if !ok {
			continue
		}
		if m, o, ok, err := l.classMember(bcon, bargs, name, visited, depth+1); err != nil || ok {
			return m, o, ok, err
		}
	}
	if depth == 0 && !isObject(con) {
		return l.classMember(ObjectClass(), nil, name, visited, depth+1)
	}
	return nil, nil, false, nil
}

// Members lists the attribute names certainly present on t, sorted.
// For a union these are the names common to every arm.
func (l *Lattice) Members(t Type) []string {
	var names *set.Set[string]
	switch typ := t.(type) {
	case TUnion:
		for _, arm := range typ.Types {
			armNames := set.From(l.Members(arm))
			if names == nil {
				names = armNames
			} else {
				names = names.Intersect(armNames).(*set.Set[string])
			}
		}
	case *Object:
		names = set.From(l.Members(typ.Class))
		for k := range typ.attrs {
			names.Insert(k)
		}
	case TLiteral:
		return l.Members(l.JoinAll(typ.Classes()))
	default:
		con, _, ok := Nominal(t)
		if !ok {
			return nil
		}
		names = set.New[string](16)
		l.collectNames(con, names, set.New[string](8), 0)
		if !isObject(con) {
			l.collectNames(ObjectClass(), names, set.New[string](1), 0)
		}
	}
	if names == nil {
		return nil
	}
	out := names.Slice()
	slices.Sort(out)
	return out
}

func (l *Lattice) collectNames(con TCon, names *set.Set[string], visited *set.Set[string], depth int) {
	if depth > config.MaxBaseDepth || !visited.Insert(con.QualName()) {
		return
	}
	cls, err := l.Registry.Lookup(con)
	if err != nil {
		return
	}
	names.InsertSlice(cls.MemberNames())
	for _, base := range cls.Bases {
		if bcon, _, ok := Nominal(base); ok {
			l.collectNames(bcon, names, visited, depth+1)
		}
	}
}

// CheckMember reports a TypeVarAccessViolation for writes to an unbound parameter.
func (l *Lattice) CheckMember(t Type, name string, tok token.Token) error {
	if tv, ok := t.(TVar); ok {
		if de, ok := errTypeVarAccess(tv, name).(*diagnostics.DiagnosticError); ok {
			return de.At(tok)
		}
	}
	return nil
}

func literalContained(a, b TLiteral) bool {
	for _, v := range a.Values {
		found := false
		for _, w := range b.Values {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isAny(t Type) bool {
	_, ok := t.(TAny)
	return ok || t == nil
}

func isObject(t Type) bool {
	c, ok := t.(TCon)
	return ok && c.QualName() == ObjectClass().QualName()
}

// IsAny reports whether t is the top type.
func IsAny(t Type) bool { return isAny(t) }
