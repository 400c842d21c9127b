package typesystem

import (
	"testing"

	"github.com/kr/pretty"

	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
)

var (
	tInt   = Builtin(config.IntTypeName)
	tBool  = Builtin(config.BoolTypeName)
	tStr   = Builtin(config.StrTypeName)
	tFloat = Builtin(config.FloatTypeName)
	tList  = Builtin(config.ListTypeName)
	tIter  = TCon{Name: config.IteratorName, Module: config.TypingModule}
	tA     = TCon{Name: "A", Module: "m"}
	tB     = TCon{Name: "B", Module: "m"}
)

func listOf(t Type) Type { return TApp{Constructor: tList, Args: []Type{t}} }

func method(name string, params []Param, ret Type) TFunc {
	return TFunc{Name: name, Overloads: []Signature{{Params: params, Return: ret}}}
}

// newTestLattice builds a tiny class graph:
// object <- int <- bool, object <- str, object <- float,
// Iterator[_T], list[_T] with __iter__ -> Iterator[_T], A and B(A) with mutual references.
func newTestLattice() *Lattice {
	reg := NewRegistry(nil, nil)
	def := func(module, name string, bases []Type, params []TVar, members map[string]Type) {
		c := NewClass(module, name)
		c.Bases = bases
		c.Params = params
		for k, v := range members {
			c.SetMember(k, v)
		}
		reg.Define(c)
	}
	t := TVar{Name: "_T"}
	self := Param{Name: "self"}
	def(config.BuiltinsModule, config.ObjectTypeName, nil, nil, map[string]Type{
		"__repr__": method("__repr__", []Param{self}, tStr),
	})
	def(config.BuiltinsModule, config.IntTypeName, nil, nil, map[string]Type{
		"real":    tInt,
		"__add__": method("__add__", []Param{self, {Name: "other", Type: tInt}}, tInt),
	})
	def(config.BuiltinsModule, config.BoolTypeName, []Type{tInt}, nil, nil)
	def(config.BuiltinsModule, config.StrTypeName, nil, nil, map[string]Type{
		"real": tStr,
	})
	def(config.BuiltinsModule, config.FloatTypeName, nil, nil, map[string]Type{
		"real": tFloat,
	})
	def(config.TypingModule, config.IteratorName, nil, []TVar{t}, map[string]Type{
		"__next__": method("__next__", []Param{self}, t),
	})
	def(config.BuiltinsModule, config.ListTypeName, nil, []TVar{t}, map[string]Type{
		"__iter__": method("__iter__", []Param{self}, TApp{Constructor: tIter, Args: []Type{t}}),
	})
	def("m", "A", nil, nil, map[string]Type{"peer": tB})
	def("m", "B", []Type{tA}, nil, map[string]Type{"peer": tA})
	return NewLattice(reg)
}

func allTypes() []Type {
	return []Type{
		Any, tInt, tBool, tStr, tA, tB,
		listOf(tInt), listOf(Any),
		TTuple{Elements: []Type{tInt, tStr}},
		NormalizeUnion([]Type{tInt, tStr}),
		TLiteral{Values: []LiteralValue{{Class: tInt, Value: "1"}}},
		TVar{Name: "_T"},
		TType{Type: tInt},
		TModule{Name: "os"},
	}
}

func TestSubtypeReflexive(t *testing.T) {
	lat := newTestLattice()
	for _, typ := range allTypes() {
		if !lat.SubtypeEq(typ, typ) {
			t.Errorf("%s <= %s should hold", typ, typ)
		}
	}
}

func TestAnyAntisymmetry(t *testing.T) {
	lat := newTestLattice()
	for _, typ := range allTypes() {
		if !lat.Subtype(typ, Any) {
			t.Errorf("%s <: Any should hold", typ)
		}
		_, isAny := typ.(TAny)
		if lat.Subtype(Any, typ) != isAny {
			t.Errorf("Any <: %s = %v", typ, lat.Subtype(Any, typ))
		}
	}
}

func TestSubtypeTable(t *testing.T) {
	lat := newTestLattice()
	intOrStr := NormalizeUnion([]Type{tInt, tStr})
	tests := []struct {
		a, b Type
		want bool
	}{
		{tBool, tInt, true},
		{tInt, tBool, false},
		{tB, tA, true},
		{tA, tB, false},
		{tInt, ObjectClass(), true},
		{tInt, intOrStr, true},
		{tFloat, intOrStr, false},
		{intOrStr, tInt, false},
		{NormalizeUnion([]Type{tBool, tInt}), tInt, true},
		{intOrStr, intOrStr, true},
		{Any, intOrStr, false},
		{listOf(tBool), listOf(tInt), true},
		{listOf(tInt), listOf(tBool), false},
		{listOf(Any), listOf(tInt), true},
		{TTuple{Elements: []Type{tBool, tStr}}, TTuple{Elements: []Type{tInt, tStr}}, true},
		{TTuple{Elements: []Type{tInt}}, TTuple{Elements: []Type{tInt, tInt}}, false},
		{TLiteral{Values: []LiteralValue{{tInt, "1"}}}, tInt, true},
		{TLiteral{Values: []LiteralValue{{tInt, "1"}}}, TLiteral{Values: []LiteralValue{{tInt, "1"}, {tInt, "2"}}}, true},
		{TLiteral{Values: []LiteralValue{{tInt, "3"}}}, TLiteral{Values: []LiteralValue{{tInt, "1"}}}, false},
		{tInt, TLiteral{Values: []LiteralValue{{tInt, "1"}}}, false},
		{TVar{Name: "_T"}, tInt, false},
		{TVar{Name: "_T"}, TVar{Name: "_S"}, false},
		{TVar{Name: "_T"}, ObjectClass(), true},
		{TType{Type: tBool}, TType{Type: tInt}, true},
	}
	for _, tt := range tests {
		if got := lat.Subtype(tt.a, tt.b); got != tt.want {
			t.Errorf("%s <: %s = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestUnionIdempotence(t *testing.T) {
	if got := NormalizeUnion([]Type{tInt, tInt}); !Identical(got, tInt) {
		t.Errorf("Union(int, int) = %s, want int", got)
	}
	nested := NormalizeUnion([]Type{tStr, NormalizeUnion([]Type{tInt, tStr})})
	u, ok := nested.(TUnion)
	if !ok || len(u.Types) != 2 {
		t.Fatalf("nested union not flattened: %# v", pretty.Formatter(nested))
	}
	if got := NormalizeUnion([]Type{tInt, Any}); !IsAny(got) {
		t.Errorf("Any should absorb, got %s", got)
	}
	if got := NormalizeUnion(nil); !IsAny(got) {
		t.Errorf("empty union = %s, want Any", got)
	}
}

func TestJoin(t *testing.T) {
	lat := newTestLattice()
	types := allTypes()
	for _, a := range types {
		for _, b := range types {
			ab, ba := lat.Join(a, b), lat.Join(b, a)
			if ab.String() != ba.String() {
				t.Errorf("join not commutative: %s | %s = %s, reversed %s", a, b, ab, ba)
			}
		}
	}
	if got := lat.Join(tBool, tInt); got.String() != "int" {
		t.Errorf("bool | int = %s", got)
	}
	if got := lat.Join(tInt, tStr); got.String() != "int | str" {
		t.Errorf("int | str = %s", got)
	}
	if got := lat.Join(lat.Join(tInt, tStr), tFloat); got.String() != "float | int | str" {
		t.Errorf("(int | str) | float = %s", got)
	}
	if got := lat.Join(tInt, Any); !IsAny(got) {
		t.Errorf("int | Any = %s", got)
	}
}

func TestUnionMembers(t *testing.T) {
	lat := newTestLattice()
	u := NormalizeUnion([]Type{tInt, tStr})
	real, err := lat.Member(u, "real")
	if err != nil {
		t.Fatalf("common member: %v", err)
	}
	if real.String() != "int | str" {
		t.Errorf("(int | str).real = %s", real)
	}
	if _, err := lat.Member(u, "__add__"); !diagnostics.HasCode(err, diagnostics.ErrI010) {
		t.Errorf("member of one arm only should fail with I010, got %v", err)
	}
	if got := lat.Members(u); len(got) != 2 || got[0] != "__repr__" || got[1] != "real" {
		t.Errorf("common names = %v", got)
	}
}

func TestTypeVarHasNoMembers(t *testing.T) {
	lat := newTestLattice()
	_, err := lat.Member(TVar{Name: "_T"}, "real")
	if !diagnostics.HasCode(err, diagnostics.ErrI003) {
		t.Fatalf("expected I003, got %v", err)
	}
}

func TestMemberSubstitutesBases(t *testing.T) {
	lat := newTestLattice()
	m, owner, err := lat.LookupMember(listOf(tInt), "__iter__")
	if err != nil {
		t.Fatal(err)
	}
	fn := m.(TFunc)
	if got := fn.Overloads[0].Return.String(); got != "Iterator[int]" {
		t.Errorf("__iter__ returns %s", got)
	}
	if owner.String() != "list[int]" {
		t.Errorf("owner = %s", owner)
	}
	if _, err := lat.Member(tBool, "__add__"); err != nil {
		t.Errorf("inherited member: %v", err)
	}
	if _, err := lat.Member(tB, "__repr__"); err != nil {
		t.Errorf("implicit object base: %v", err)
	}
	raw, err := lat.Member(TType{Type: tList}, "__iter__")
	if err != nil {
		t.Fatal(err)
	}
	if got := raw.(TFunc).Overloads[0].Return.String(); got != "Iterator[_T]" {
		t.Errorf("class attribute should keep parameters, got %s", got)
	}
}

func TestObjectOverrides(t *testing.T) {
	lat := newTestLattice()
	o := NewObject(tA)
	o.SetAttr("peer", tInt)
	if got, _ := lat.Member(o, "peer"); got.String() != "int" {
		t.Errorf("override not consulted first: %s", got)
	}
	o.DelAttr("peer")
	if got, _ := lat.Member(o, "peer"); got.String() != "B" {
		t.Errorf("class member after delete: %s", got)
	}
	if !lat.Subtype(o, tA) || !lat.Equal(o, tA) {
		t.Errorf("instance should behave as its class")
	}
}

func TestProtocolConformance(t *testing.T) {
	lat := newTestLattice()
	reg := lat.Registry
	tco := TVar{Name: "_T_co"}
	self := Param{Name: "self"}
	iterable := NewClass(config.TypingModule, "Iterable")
	iterable.Params = []TVar{tco}
	iterable.Protocol = true
	iterable.SetMember("__iter__", method("__iter__", []Param{self}, TApp{Constructor: tIter, Args: []Type{tco}}))
	reg.Define(iterable)

	iterator := reg.classes[tIter.QualName()]
	iterator.Protocol = true
	iterator.Bases = []Type{TApp{Constructor: iterable.Con(), Args: []Type{TVar{Name: "_T"}}}}

	counter := NewClass("m", "Counter")
	counter.SetMember("__iter__", method("__iter__", []Param{self}, TCon{Name: config.SelfName, Module: config.TypingModule}))
	counter.SetMember("__next__", method("__next__", []Param{self}, tInt))
	reg.Define(counter)
	tCounter := counter.Con()

	args, ok := lat.Upcast(tCounter, iterable.Con())
	if !ok || len(args) != 1 || args[0].String() != "int" {
		t.Fatalf("Counter as Iterable = %v, %v", args, ok)
	}
	if !lat.Subtype(tCounter, TApp{Constructor: tIter, Args: []Type{tInt}}) {
		t.Errorf("Counter should satisfy Iterator[int]")
	}
	if lat.Subtype(tCounter, TApp{Constructor: tIter, Args: []Type{tStr}}) {
		t.Errorf("Counter must not satisfy Iterator[str]")
	}
	if lat.Subtype(tA, TApp{Constructor: iterable.Con(), Args: []Type{Any}}) {
		t.Errorf("A has no __iter__ and is not Iterable")
	}
	if got, ok := lat.Upcast(listOf(tStr), iterable.Con()); !ok || got[0].String() != "str" {
		t.Errorf("list[str] as Iterable = %v, %v", got, ok)
	}
}
