package typesystem

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/config"
)

// Type is the interface for all types in our system.
// The set of variants is closed; every switch over it should handle all of them.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
	isType()
}

// Structured is implemented by every type that has a member table.
// TVar deliberately does not implement it.
type Structured interface {
	Type
	structured()
}

// TAny is the top type.
type TAny struct{}

// Any is the TAny singleton.
var Any Type = TAny{}

func (TAny) String() string            { return config.AnyName }
func (t TAny) Apply(Subst) Type        { return t }
func (TAny) FreeTypeVariables() []TVar { return nil }
func (TAny) isType() {}
func (TAny) structured() {}

// TVar represents a generic parameter (e.g. _T in list[_T]).
type TVar struct {
	Name  string
	Bound Type // upper bound from TypeVar(bound=...), may be nil
}

func (t TVar) String() string { return t.Name }

func (t TVar) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }
func (TVar) isType() {}

// TCon is a reference to a nominal class by qualified name.
type TCon struct {
	Name   string // may be dotted for nested classes
	Module string
}

// Builtin returns a reference to a class of the builtins module.
func Builtin(name string) TCon {
	return TCon{Name: name, Module: config.BuiltinsModule}
}

// QualName returns module.Name.
func (t TCon) QualName() string {
	if t.Module == "" {
		return t.Name
	}
	return t.Module + "." + t.Name
}

func (t TCon) String() string          { return t.Name }
func (t TCon) Apply(Subst) Type        { return t }
func (TCon) FreeTypeVariables() []TVar { return nil }
func (TCon) isType() {}
func (TCon) structured() {}
func (t TCon) is(name string) bool { return t.Module == config.BuiltinsModule && t.Name == name }

// TApp is a parameterized nominal type: list[int], dict[str, int].
// A TApp of tuple is the homogeneous tuple[int, ...].
type TApp struct {
	Constructor TCon
	Args        []Type
}

func (t TApp) String() string {
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = typeString(a)
	}
	if t.Constructor.is(config.TupleTypeName) && len(args) == 1 {
		return fmt.Sprintf("%s[%s, ...]", t.Constructor, args[0])
	}
	return fmt.Sprintf("%s[%s]", t.Constructor, strings.Join(args, ", "))
}

func (t TApp) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TApp) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Args {
		vars = append(vars, a.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

func (TApp) isType() {}
func (TApp) structured() {}

// TTuple is a fixed-arity tuple with positional element types.
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	if len(t.Elements) == 0 {
		return "tuple[()]"
	}
	elems := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		elems[i] = typeString(e)
	}
	return fmt.Sprintf("tuple[%s]", strings.Join(elems, ", "))
}

func (t TTuple) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TTuple) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, e := range t.Elements {
		vars = append(vars, e.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

func (TTuple) isType() {}
func (TTuple) structured() {}

// TUnion holds two or more distinct arms. Build it with NormalizeUnion or
// Lattice.Join, never directly.
type TUnion struct {
	Types []Type
}

func (t TUnion) String() string {
	parts := make([]string, len(t.Types))
	for i, a := range t.Types {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

func (t TUnion) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TUnion) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, a := range t.Types {
		vars = append(vars, a.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

func (TUnion) isType() {}
func (TUnion) structured() {}

// LiteralValue is one value of a Literal type, kept in source form.
type LiteralValue struct {
	Class TCon
	Value string
}

// TLiteral is restricted to concrete values of known classes.
type TLiteral struct {
	Values []LiteralValue
}

func (t TLiteral) String() string {
	vals := make([]string, len(t.Values))
	for i, v := range t.Values {
		vals[i] = v.Value
	}
	return fmt.Sprintf("%s[%s]", config.LiteralName, strings.Join(vals, ", "))
}

func (t TLiteral) Apply(Subst) Type        { return t }
func (TLiteral) FreeTypeVariables() []TVar { return nil }
func (TLiteral) isType() {}
func (TLiteral) structured() {}

// Classes returns the distinct classes of the literal values, in order.
func (t TLiteral) Classes() []Type {
	var out []Type
	seen := make(map[string]bool)
	for _, v := range t.Values {
		if !seen[v.Class.QualName()] {
			seen[v.Class.QualName()] = true
			out = append(out, v.Class)
		}
	}
	return out
}

// ParamKind says how an argument binds to a parameter.
type ParamKind int

const (
	ParamPositional ParamKind = iota
	ParamPositionalOnly
	ParamVarArgs
	ParamKeywordOnly
	ParamVarKeywords
)

// Param is one formal parameter. A nil Type means the parameter is undeclared.
type Param struct {
	Name       string
	Type       Type
	Kind       ParamKind
	HasDefault bool
}

func (p Param) String() string {
	var b strings.Builder
	switch p.Kind {
	case ParamVarArgs:
		b.WriteString("*")
	case ParamVarKeywords:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Type != nil {
		b.WriteString(": ")
		b.WriteString(p.Type.String())
	}
	if p.HasDefault {
		b.WriteString(" = ...")
	}
	return b.String()
}

// Signature is one candidate of a function declaration.
// Return is nil when undeclared; Def then points at the body to infer it from.
type Signature struct {
	Params []Param
	Return Type
	Def    *ast.FunctionDef
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	ret := "?"
	if s.Return != nil {
		ret = s.Return.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), ret)
}

func (s Signature) apply(subst Subst, visited map[string]bool) Signature {
	out := Signature{Params: make([]Param, len(s.Params)), Def: s.Def}
	for i, p := range s.Params {
		out.Params[i] = p
		if p.Type != nil {
			out.Params[i].Type = ApplyWithCycleCheck(p.Type, subst, visited)
		}
	}
	if s.Return != nil {
		out.Return = ApplyWithCycleCheck(s.Return, subst, visited)
	}
	return out
}

func (s Signature) freeTypeVariables() []TVar {
	var vars []TVar
	for _, p := range s.Params {
		if p.Type != nil {
			vars = append(vars, p.Type.FreeTypeVariables()...)
		}
	}
	if s.Return != nil {
		vars = append(vars, s.Return.FreeTypeVariables()...)
	}
	return vars
}

// TFunc is a function declaration: its candidates in declared order and its decorators.
type TFunc struct {
	Name       string
	Overloads  []Signature
	Decorators []string
}

func (t TFunc) String() string {
	if len(t.Overloads) == 1 {
		return "def " + t.Name + t.Overloads[0].String()
	}
	sigs := make([]string, len(t.Overloads))
	for i, s := range t.Overloads {
		sigs[i] = s.String()
	}
	return fmt.Sprintf("overloaded def %s{%s}", t.Name, strings.Join(sigs, " | "))
}

func (t TFunc) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TFunc) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, s := range t.Overloads {
		vars = append(vars, s.freeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

func (TFunc) isType() {}
func (TFunc) structured() {}

// HasDecorator reports whether the declaration carries the named decorator.
func (t TFunc) HasDecorator(name string) bool {
	for _, d := range t.Decorators {
		if d == name {
			return true
		}
	}
	return false
}

// TMethod is a function bound to a receiver by attribute access.
// Owner is the class the method was found on, instantiated for the receiver.
type TMethod struct {
	Receiver Type
	Owner    Type
	Name     string
	Func     TFunc
}

func (t TMethod) String() string {
	return fmt.Sprintf("bound method %s.%s", typeString(t.Owner), t.Name)
}

func (t TMethod) Apply(s Subst) Type {
	return ApplyWithCycleCheck(t, s, make(map[string]bool))
}

func (t TMethod) FreeTypeVariables() []TVar {
	return t.Func.FreeTypeVariables()
}

func (TMethod) isType() {}
func (TMethod) structured() {}

// TType is the class object itself: calling it constructs an instance.
type TType struct {
	Type Type
}

func (t TType) String() string { return fmt.Sprintf("type[%s]", typeString(t.Type)) }

func (t TType) Apply(s Subst) Type {
	return TType{Type: t.Type.Apply(s)}
}

func (t TType) FreeTypeVariables() []TVar { return t.Type.FreeTypeVariables() }
func (TType) isType() {}
func (TType) structured() {}

// TModule is a module namespace, populated on first member access.
type TModule struct {
	Name string
}

func (t TModule) String() string          { return fmt.Sprintf("module[%s]", t.Name) }
func (t TModule) Apply(Subst) Type        { return t }
func (TModule) FreeTypeVariables() []TVar { return nil }
func (TModule) isType() {}
func (TModule) structured() {}

// Object is an instance value: its class plus instance attributes assigned
// through it, which are consulted before the class members.
type Object struct {
	Class Type
	attrs map[string]Type
}

// NewObject returns an instance of class with no overrides.
func NewObject(class Type) *Object {
	return &Object{Class: class, attrs: make(map[string]Type)}
}

func (o *Object) String() string { return typeString(o.Class) }

func (o *Object) Apply(s Subst) Type {
	out := &Object{Class: o.Class.Apply(s), attrs: make(map[string]Type, len(o.attrs))}
	for k, v := range o.attrs {
		out.attrs[k] = v.Apply(s)
	}
	return out
}

func (o *Object) FreeTypeVariables() []TVar { return o.Class.FreeTypeVariables() }
func (*Object) isType() {}
func (*Object) structured() {}

// Attr returns an instance override.
func (o *Object) Attr(name string) (Type, bool) {
	t, ok := o.attrs[name]
	return t, ok
}

// SetAttr records an instance override.
func (o *Object) SetAttr(name string, t Type) {
	o.attrs[name] = t
}

// DelAttr removes an instance override.
func (o *Object) DelAttr(name string) bool {
	_, ok := o.attrs[name]
	delete(o.attrs, name)
	return ok
}

func typeString(t Type) string {
	if t == nil {
		return config.AnyName
	}
	return t.String()
}

// ApplyWithCycleCheck applies substitution with cycle detection.
// This is the main entry point for substitution application.
func ApplyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil || len(s) == 0 {
		return t
	}

	switch typ := t.(type) {
	case TVar:
		if visited[typ.Name] {
			return typ
		}
		if replacement, ok := s[typ.Name]; ok {
			if tv, ok := replacement.(TVar); ok && tv.Name == typ.Name {
				return typ
			}
			newVisited := copyVisited(visited)
			newVisited[typ.Name] = true
			return ApplyWithCycleCheck(replacement, s, newVisited)
		}
		return typ

	case TApp:
		newArgs := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			newArgs[i] = ApplyWithCycleCheck(arg, s, visited)
		}
		return TApp{Constructor: typ.Constructor, Args: newArgs}

	case TTuple:
		newElems := make([]Type, len(typ.Elements))
		for i, e := range typ.Elements {
			newElems[i] = ApplyWithCycleCheck(e, s, visited)
		}
		return TTuple{Elements: newElems}

	case TUnion:
		newTypes := make([]Type, len(typ.Types))
		for i, a := range typ.Types {
			newTypes[i] = ApplyWithCycleCheck(a, s, visited)
		}
		return NormalizeUnion(newTypes)

	case TFunc:
		out := TFunc{Name: typ.Name, Decorators: typ.Decorators, Overloads: make([]Signature, len(typ.Overloads))}
		for i, sig := range typ.Overloads {
			out.Overloads[i] = sig.apply(s, visited)
		}
		return out

	case TMethod:
		return TMethod{
			Receiver: ApplyWithCycleCheck(typ.Receiver, s, visited),
			Owner:    ApplyWithCycleCheck(typ.Owner, s, visited),
			Name:     typ.Name,
			Func:     ApplyWithCycleCheck(typ.Func, s, visited).(TFunc),
		}

	case TType:
		return TType{Type: ApplyWithCycleCheck(typ.Type, s, visited)}

	default:
		return t.Apply(s)
	}
}

func copyVisited(m map[string]bool) map[string]bool {
	n := make(map[string]bool, len(m)+1)
	for k, v := range m {
		n[k] = v
	}
	return n
}

// Identical is structural identity: same variant, same names, same arguments.
// Two Objects are identical only if they are the same instance.
func Identical(a, b Type) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case TAny:
		_, ok := b.(TAny)
		return ok
	case TVar:
		y, ok := b.(TVar)
		return ok && x.Name == y.Name
	case TCon:
		y, ok := b.(TCon)
		return ok && x.QualName() == y.QualName()
	case TApp:
		y, ok := b.(TApp)
		return ok && x.Constructor.QualName() == y.Constructor.QualName() && identicalList(x.Args, y.Args)
	case TTuple:
		y, ok := b.(TTuple)
		return ok && identicalList(x.Elements, y.Elements)
	case TUnion:
		y, ok := b.(TUnion)
		return ok && identicalList(x.Types, y.Types)
	case TLiteral:
		y, ok := b.(TLiteral)
		if !ok || len(x.Values) != len(y.Values) {
			return false
		}
		for i := range x.Values {
			if x.Values[i] != y.Values[i] {
				return false
			}
		}
		return true
	case TFunc:
		y, ok := b.(TFunc)
		return ok && x.String() == y.String()
	case TMethod:
		y, ok := b.(TMethod)
		return ok && x.Name == y.Name && Identical(x.Owner, y.Owner) && Identical(x.Receiver, y.Receiver)
	case TType:
		y, ok := b.(TType)
		return ok && Identical(x.Type, y.Type)
	case TModule:
		y, ok := b.(TModule)
		return ok && x.Name == y.Name
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	}
	return false
}

func identicalList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Identical(a[i], b[i]) {
			return false
		}
	}
	return true
}

// NormalizeUnion creates a normalized union type.
// It flattens nested unions, removes duplicates, and sorts types.
// Any absorbs the union; an empty list yields Any.
func NormalizeUnion(types []Type) Type {
	var flat []Type
	for _, t := range types {
		switch u := t.(type) {
		case nil:
			continue
		case TAny:
			return Any
		case TUnion:
			flat = append(flat, u.Types...)
		default:
			flat = append(flat, t)
		}
	}

	var unique []Type
	for _, t := range flat {
		dup := false
		for _, u := range unique {
			if Identical(t, u) {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, t)
		}
	}

	switch len(unique) {
	case 0:
		return Any
	case 1:
		return unique[0]
	}

	slices.SortStableFunc(unique, func(a, b Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return TUnion{Types: unique}
}

// Subst is a mapping from type variable names to types.
type Subst map[string]Type

// Compose combines two substitutions.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}

func uniqueTVars(vars []TVar) []TVar {
	var unique []TVar
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// HasFreeVariables reports whether t mentions a generic parameter.
func HasFreeVariables(t Type) bool {
	return t != nil && len(t.FreeTypeVariables()) > 0
}
