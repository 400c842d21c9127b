package typesystem

import (
	"errors"
	"testing"

	"github.com/funvibe/stubinfer/internal/diagnostics"
)

func TestUnifyBindsContainerArguments(t *testing.T) {
	lat := newTestLattice()
	u := NewUnifier(lat)
	tv := TVar{Name: "_T"}
	if err := u.Unify(listOf(tv), listOf(tInt)); err != nil {
		t.Fatal(err)
	}
	got, err := u.Resolve(TApp{Constructor: tIter, Args: []Type{tv}})
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "Iterator[int]" {
		t.Errorf("got %s", got)
	}
}

func TestGenericRoundTrip(t *testing.T) {
	lat := newTestLattice()

	// list[int].__iter__().__next__() is int
	iterFn, err := lat.Member(listOf(tInt), "__iter__")
	if err != nil {
		t.Fatal(err)
	}
	iterator := iterFn.(TFunc).Overloads[0].Return
	nextFn, err := lat.Member(iterator, "__next__")
	if err != nil {
		t.Fatal(err)
	}
	elem := nextFn.(TFunc).Overloads[0].Return
	if elem.String() != "int" {
		t.Fatalf("element type = %s", elem)
	}

	// list(iterable) binds list's parameter from the iterable's element type
	u := NewUnifier(lat)
	tv := TVar{Name: "_T"}
	if err := u.Unify(TApp{Constructor: tIter, Args: []Type{tv}}, iterator); err != nil {
		t.Fatal(err)
	}
	back, err := u.Resolve(listOf(tv))
	if err != nil {
		t.Fatal(err)
	}
	if !lat.Equal(back, listOf(tInt)) {
		t.Errorf("round trip gave %s", back)
	}
}

func TestBindFirstWins(t *testing.T) {
	lat := newTestLattice()
	u := NewUnifier(lat)
	tv := TVar{Name: "T"}
	if err := u.Bind(tv, tInt); err != nil {
		t.Fatal(err)
	}
	if err := u.Bind(tv, tInt); err != nil {
		t.Errorf("equal rebinding should be a no-op: %v", err)
	}
	if err := u.Bind(tv, tBool); err != nil {
		t.Errorf("subtype rebinding should be a no-op: %v", err)
	}
	if err := u.Bind(tv, Any); err != nil {
		t.Errorf("rebinding to Any should be a no-op: %v", err)
	}
	err := u.Bind(tv, tStr)
	if !diagnostics.HasCode(err, diagnostics.ErrI006) {
		t.Fatalf("conflicting rebinding should fail with I006, got %v", err)
	}
	if u.Bindings["T"].String() != "int" {
		t.Errorf("binding changed to %s", u.Bindings["T"])
	}
}

func TestResolveReportsUnboundParameters(t *testing.T) {
	lat := newTestLattice()
	u := NewUnifier(lat)
	_, err := u.Resolve(listOf(TVar{Name: "_S"}))
	var unbound *diagnostics.UnboundParamsError
	if !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundParamsError, got %v", err)
	}
	if len(unbound.Params) != 1 || unbound.Params[0] != "_S" {
		t.Errorf("params = %v", unbound.Params)
	}
	if got := u.ResolveLenient(listOf(TVar{Name: "_S"})); got.String() != "list[Any]" {
		t.Errorf("lenient = %s", got)
	}
}

func TestUnifyUnionConcrete(t *testing.T) {
	lat := newTestLattice()
	u := NewUnifier(lat)
	tv := TVar{Name: "_T"}
	concrete := NormalizeUnion([]Type{listOf(tInt), listOf(tStr)})
	if err := u.Unify(listOf(tv), concrete); err != nil {
		t.Fatal(err)
	}
	if got := u.Bindings["_T"].String(); got != "int | str" {
		t.Errorf("_T = %s", got)
	}
}

func TestUnifyOptionalFormal(t *testing.T) {
	lat := newTestLattice()
	tv := TVar{Name: "_T"}
	formal := NormalizeUnion([]Type{tv, tStr})

	u := NewUnifier(lat)
	if err := u.Unify(formal, tStr); err != nil {
		t.Fatal(err)
	}
	if _, ok := u.Bindings["_T"]; ok {
		t.Errorf("concrete fitting a plain arm should not bind")
	}
	if err := u.Unify(formal, tInt); err != nil {
		t.Fatal(err)
	}
	if got := u.Bindings["_T"]; got == nil || got.String() != "int" {
		t.Errorf("_T = %v", got)
	}
}

func TestUnifyTuples(t *testing.T) {
	lat := newTestLattice()
	k, v := TVar{Name: "_K"}, TVar{Name: "_V"}
	u := NewUnifier(lat)
	if err := u.Unify(TTuple{Elements: []Type{k, v}}, TTuple{Elements: []Type{tStr, tInt}}); err != nil {
		t.Fatal(err)
	}
	if u.Bindings["_K"].String() != "str" || u.Bindings["_V"].String() != "int" {
		t.Errorf("bindings = %v", u.Bindings)
	}
}

func TestUnifyAnyBindsEverything(t *testing.T) {
	lat := newTestLattice()
	u := NewUnifier(lat)
	if err := u.Unify(listOf(TVar{Name: "_T"}), Any); err != nil {
		t.Fatal(err)
	}
	if !IsAny(u.Bindings["_T"]) {
		t.Errorf("_T = %v", u.Bindings["_T"])
	}
}

func TestReplaceSelf(t *testing.T) {
	self := TCon{Name: "Self", Module: "typing"}
	fn := method("copy", []Param{{Name: "self"}}, listOf(self))
	got := ReplaceSelf(fn, tA).(TFunc)
	if got.Overloads[0].Return.String() != "list[A]" {
		t.Errorf("Self not replaced: %s", got.Overloads[0].Return)
	}
}
