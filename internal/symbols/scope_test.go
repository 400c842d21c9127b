package symbols_test

import (
	"strings"
	"testing"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

var (
	tInt = typesystem.Builtin("int")
	tStr = typesystem.Builtin("str")
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, errs := parser.ParseFile("test.py", src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return mod
}

func builtins() *symbols.Scope {
	return symbols.NewBuiltinScope([]string{"len", "print"}, func(name string) (typesystem.Type, error) {
		return typesystem.TFunc{Name: name}, nil
	})
}

func moduleScope(t *testing.T, src string) (*symbols.Scope, *ast.Module) {
	mod := parse(t, src)
	return symbols.NewScope(symbols.ScopeModule, "__main__", mod.Body, builtins()), mod
}

func TestHoistingIgnoresControlFlow(t *testing.T) {
	mod, _ := moduleScope(t, "x = 1\n")
	fnMod := parse(t, `
def f():
    if False:
        x = 2
    return x
`)
	fn := fnMod.Body[0].(*ast.FunctionDef)
	frame := symbols.NewScope(symbols.ScopeFunction, "f", fn.Body, mod)
	if err := mod.Store("x", tInt); err != nil {
		t.Fatal(err)
	}
	if !frame.Locals.Contains("x") {
		t.Fatalf("x assigned in an untaken branch must be local, locals: %v", frame.Locals)
	}
	_, err := frame.Load("x")
	if !diagnostics.HasCode(err, diagnostics.ErrI001) {
		t.Fatalf("load of unassigned local must not fall through, got %v", err)
	}
}

func TestHoistedForms(t *testing.T) {
	s, _ := moduleScope(t, `
a, (b, *c) = d
e += 1
f: int
for g in h:
    pass
with i as (j, k):
    pass
try:
    pass
except E as l:
    pass
import m.n, o as p
from q import r as s, t
def u(): v = 1
class w: z = 1
print((x := 1))
del y
`)
	want := []string{"a", "b", "c", "e", "f", "g", "j", "k", "l", "m", "p", "s", "t", "u", "w", "x", "y"}
	for _, name := range want {
		if !s.Locals.Contains(name) {
			t.Errorf("%s should be local", name)
		}
	}
	for _, name := range []string{"d", "h", "i", "v", "z", "n", "o", "q", "r"} {
		if s.Locals.Contains(name) {
			t.Errorf("%s should not be local", name)
		}
	}
}

func TestGlobalRedirection(t *testing.T) {
	mod, _ := moduleScope(t, "x = 1\n")
	fnMod := parse(t, "def f():\n    global x\n    x = 'a'\n")
	fn := fnMod.Body[0].(*ast.FunctionDef)
	frame := symbols.NewScope(symbols.ScopeFunction, "f", fn.Body, mod)
	if frame.Locals.Contains("x") || !frame.Globals.Contains("x") {
		t.Fatalf("global x must not be local: %s", frame)
	}
	if err := frame.Store("x", tStr); err != nil {
		t.Fatal(err)
	}
	if _, ok := frame.Lookup("x"); ok {
		t.Errorf("global name got a binding in the function frame")
	}
	got, err := mod.Load("x")
	if err != nil || got.String() != "str" {
		t.Errorf("module x = %v, %v", got, err)
	}
	inner := symbols.NewScope(symbols.ScopeFunction, "g", nil, frame)
	if got, err := inner.Load("x"); err != nil || got.String() != "str" {
		t.Errorf("nested read of global = %v, %v", got, err)
	}
}

func TestNonlocalRedirection(t *testing.T) {
	mod, _ := moduleScope(t, "")
	outerMod := parse(t, "def outer():\n    n = 1\n    def inner():\n        nonlocal n\n        n = 'a'\n")
	outerDef := outerMod.Body[0].(*ast.FunctionDef)
	outer := symbols.NewScope(symbols.ScopeFunction, "outer", outerDef.Body, mod)
	innerDef := outerDef.Body[1].(*ast.FunctionDef)
	inner := symbols.NewScope(symbols.ScopeFunction, "inner", innerDef.Body, outer)

	if err := outer.Store("n", tInt); err != nil {
		t.Fatal(err)
	}
	if err := inner.Store("n", tStr); err != nil {
		t.Fatal(err)
	}
	if got, _ := outer.Load("n"); got.String() != "str" {
		t.Errorf("nonlocal store did not reach the enclosing frame: %v", got)
	}
	if err := inner.Delete("n"); err != nil {
		t.Fatal(err)
	}
	if _, err := outer.Load("n"); !diagnostics.HasCode(err, diagnostics.ErrI001) {
		t.Errorf("nonlocal delete did not reach the enclosing frame: %v", err)
	}
}

func TestDeleteUnbound(t *testing.T) {
	s, _ := moduleScope(t, "x = 1\ndel x\n")
	err := s.Delete("x")
	if !diagnostics.HasCode(err, diagnostics.ErrI001) {
		t.Fatalf("deleting a declared but unbound name should fail, got %v", err)
	}
	if err := s.Store("x", tInt); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("x"); err != nil {
		t.Errorf("delete after store: %v", err)
	}
}

func TestUnboundNameReportsChain(t *testing.T) {
	s, _ := moduleScope(t, "")
	frame := symbols.NewScope(symbols.ScopeFunction, "f", nil, s)
	_, err := frame.Load("missing")
	de, ok := err.(*diagnostics.DiagnosticError)
	if !ok || de.Code != diagnostics.ErrI001 {
		t.Fatalf("expected I001, got %v", err)
	}
	if len(de.Frames) != 3 || !strings.Contains(de.Frames[0], "function f") || de.Frames[2] != "<builtins>" {
		t.Errorf("frames = %v", de.Frames)
	}
}

func TestBuiltinsResolvedLazily(t *testing.T) {
	calls := 0
	root := symbols.NewBuiltinScope([]string{"len"}, func(name string) (typesystem.Type, error) {
		calls++
		return typesystem.TFunc{Name: name}, nil
	})
	s := symbols.NewScope(symbols.ScopeModule, "__main__", nil, root)
	for i := 0; i < 3; i++ {
		if _, err := s.Load("len"); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("builtin resolved %d times", calls)
	}
}

func TestComprehensionIsolation(t *testing.T) {
	s, mod := moduleScope(t, "r = [(y := a) for a in b]\n")
	comp := mod.Body[0].(*ast.Assign).Value.(*ast.ListComp)
	frame := symbols.NewComprehensionScope(comp.Generators, s)

	if !frame.Locals.Contains("a") || frame.Locals.Contains("y") {
		t.Fatalf("comprehension locals = %v", frame.Locals.Slice())
	}
	if !s.Locals.Contains("y") || s.Locals.Contains("a") {
		t.Fatalf("module locals = %v", s.Locals.Slice())
	}
	if err := frame.Store("a", tInt); err != nil {
		t.Fatal(err)
	}
	if err := frame.Store("y", tInt); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup("a"); ok {
		t.Errorf("generator target leaked into the enclosing frame")
	}
	if got, ok := s.Lookup("y"); !ok || got.String() != "int" {
		t.Errorf("walrus did not escape: %v", got)
	}

	nested := symbols.NewComprehensionScope(nil, frame)
	if nested.EscapeTarget() != s {
		t.Errorf("escape target of nested comprehension should be the module frame")
	}
}

func TestClassFramesAreSkipped(t *testing.T) {
	s, mod := moduleScope(t, "class C:\n    x = 1\n    def m(self): return x\n")
	cls := mod.Body[0].(*ast.ClassDef)
	classFrame := symbols.NewScope(symbols.ScopeClass, "C", cls.Body, s)
	if err := classFrame.Store("x", tInt); err != nil {
		t.Fatal(err)
	}
	m := cls.Body[1].(*ast.FunctionDef)
	method := symbols.NewScope(symbols.ScopeFunction, "m", m.Body, classFrame)
	if _, err := method.Load("x"); !diagnostics.HasCode(err, diagnostics.ErrI001) {
		t.Errorf("class attributes must not be visible from methods, got %v", err)
	}
}
