package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
)

func TestStarredUnpacking(t *testing.T) {
	expectBindings(t, `*a, b = "1234"`, map[string]string{
		"a": "list[str]",
		"b": "str",
	})
	expectBindings(t, `x, y = 1, "a"`, map[string]string{
		"x": "int",
		"y": "str",
	})
	expectBindings(t, `first, *rest = [1, 2, 3]`, map[string]string{
		"first": "int",
		"rest":  "list[int]",
	})
}

func TestUnionUnpackingJoinsFirstElements(t *testing.T) {
	src := `
v = (1, "a") if True else ("b", 2.5)
p, q = v
`
	expectBindings(t, src, map[string]string{
		"p": "int | str",
		"q": "int | str",
	})
}

func TestTupleUnpacking(t *testing.T) {
	expectBindings(t, "a, b = (1, \"x\")\nc, *d = (1, 2, 3)\n", map[string]string{
		"a": "int",
		"b": "str",
		"c": "int",
		"d": "list[int]",
	})
}

func TestWalrusEscapesComprehension(t *testing.T) {
	src := `s = {(y := x) for x in [1, "a"]}`
	expectBindings(t, src, map[string]string{
		"s": "set[int | str]",
		"y": "int | str",
	})
	_, scope, _ := analyzeSource(t, src)
	_, leaked := scope.Lookup("x")
	assert.False(t, leaked, "comprehension target leaked into the module")
}

func TestWalrusEscapesNestedComprehensionInFunction(t *testing.T) {
	src := `
def f():
    rows = [[(last := c) for c in r] for r in [[1, 2], [3]]]
    return last

v = f()
`
	_, scope, errs := analyzeSource(t, src)
	expectNoErrors(t, errs, src)
	got, ok := scope.Lookup("v")
	require.True(t, ok)
	assert.Equal(t, "int", got.String())
	_, leaked := scope.Lookup("last")
	assert.False(t, leaked, "walrus target escaped past the function frame")
}

func TestComprehensionTargetIsolated(t *testing.T) {
	e := expectError(t, "xs = [x for x in [1]]\nprint(x)\n", diagnostics.ErrI001)
	assert.Contains(t, e.Error(), `"x"`)
	assert.Equal(t, 2, e.Token.Line)
}

func TestAugmentedAssignment(t *testing.T) {
	expectBindings(t, "x = 1\nx += 1.5\nys = [1]\nys += [2]\n", map[string]string{
		"x":  "float",
		"ys": "list[int]",
	})
}

func TestAnnotatedAssignment(t *testing.T) {
	expectBindings(t, "from typing import Optional\nx: Optional[int] = None\n", map[string]string{
		"x": "NoneType | int",
	})
}

func TestControlFlowStatements(t *testing.T) {
	src := `
total = 0
for i, c in enumerate("abc"):
    total += i
while total:
    total -= 1
try:
    pass
except (KeyError, IndexError) as err:
    caught = err
else:
    fine = True
finally:
    done = 1
del fine
`
	_, scope, errs := analyzeSource(t, src)
	expectNoErrors(t, errs, src)
	for name, want := range map[string]string{
		"total":  "int",
		"i":      "int",
		"c":      "str",
		"caught": "IndexError | KeyError",
		"done":   "int",
	} {
		got, ok := scope.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got.String(), name)
	}
	_, ok := scope.Lookup("fine")
	assert.False(t, ok, "deleted name still bound")
}

func TestFunctionReturnInference(t *testing.T) {
	src := `
def f(flag):
    if flag:
        return 1
    return "a"

def g():
    pass

def h(x: int) -> str:
    return "x" * x

def args(*xs: int, **kw: str):
    return xs, kw

a = f(True)
b = g()
c = h(2)
d = args()
`
	expectBindings(t, src, map[string]string{
		"a": "int | str",
		"b": "NoneType",
		"c": "str",
		"d": "tuple[tuple[int, ...], dict[str, str]]",
	})
}

func TestHoistingAndForwardCalls(t *testing.T) {
	src := `
def f():
    return g()

def g():
    return [1]

x = f()
`
	expectBindings(t, src, map[string]string{"x": "list[int]"})

	e := expectError(t, "def f():\n    print(x)\n    x = 1\n", diagnostics.ErrI001)
	assert.Contains(t, e.Error(), "before assignment")
}

func TestRecursiveFunction(t *testing.T) {
	src := `
def fact(n: int):
    if n < 2:
        return 1
    return n * fact(n - 1)

r = fact(5)
`
	expectBindings(t, src, map[string]string{"r": "Any"})
}

func TestGlobalAndNonlocal(t *testing.T) {
	src := `
counter = 0
def bump():
    global counter
    counter = "s"

def outer():
    v = 1
    def inner():
        nonlocal v
        v = 2.5
    inner()
    return v

bump()
r = outer()
`
	_, scope, errs := analyzeSource(t, src)
	expectNoErrors(t, errs, src)
	got, _ := scope.Lookup("counter")
	assert.Equal(t, "str", got.String())
}

func TestUserClasses(t *testing.T) {
	src := `
class Point:
    origin = 0

    def __init__(self, x: int, y: int):
        self.x = x
        self.y = y

    def norm(self):
        return self.x * self.x + self.y * self.y

    @staticmethod
    def make():
        return Point(0, 0)

    @classmethod
    def named(cls):
        return cls

    @property
    def label(self) -> str:
        return "p"

p = Point(1, 2)
n = p.norm()
px = p.x
o = Point.origin
m = Point.make()
c = Point.named()
l = p.label
`
	expectBindings(t, src, map[string]string{
		"p":  "Point",
		"n":  "int",
		"px": "int",
		"o":  "int",
		"m":  "Point",
		"c":  "type[Point]",
		"l":  "str",
	})
}

func TestGenericUserClass(t *testing.T) {
	src := `
from typing import Generic, TypeVar

T = TypeVar("T")

class Box(Generic[T]):
    def __init__(self, item: T):
        self.item = item

    def get(self) -> T:
        return self.item

b = Box("s")
v = b.get()
w = b.item
`
	expectBindings(t, src, map[string]string{
		"b": "Box[str]",
		"v": "str",
		"w": "str",
	})
}

func TestInheritanceAndOverloads(t *testing.T) {
	src := `
from typing import overload

class Base:
    def name(self) -> str:
        return "b"

class Child(Base):
    @overload
    def pick(self, x: int) -> int: ...
    @overload
    def pick(self, x: str) -> str: ...
    def pick(self, x):
        return x

c = Child()
n = c.name()
i = c.pick(1)
s = c.pick("a")
`
	expectBindings(t, src, map[string]string{
		"n": "str",
		"i": "int",
		"s": "str",
	})
}

func TestOverloadOrderAnyFallback(t *testing.T) {
	header := `
from typing import Any, overload

class A: ...
class B: ...

@overload
def pick(x: int) -> A: ...
@overload
def pick(x: Any) -> B: ...
def pick(x):
    return x
`
	tests := []struct {
		call string
		want string
	}{
		{"pick(1)", "A"},
		{"pick(True)", "A"},
		{`pick("s")`, "B"},
		{"pick(None)", "B"},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			expectBindings(t, header+"r = "+tt.call+"\n", map[string]string{"r": tt.want})
		})
	}
}

func TestItemAssignment(t *testing.T) {
	src := `
xs = [1]
xs[0] = 2
d = {"a": 1}
d["b"] = 2
e = {}
e["k"] = "v"
`
	expectBindings(t, src, map[string]string{"xs": "list[int]"})
}

func TestInstanceAttributeTracking(t *testing.T) {
	src := `
class Bag:
    pass

b = Bag()
b.size = 3
n = b.size
`
	expectBindings(t, src, map[string]string{"n": "int"})
}

func TestImports(t *testing.T) {
	src := `
import os
import os.path
import os.path as osp
from os.path import join as j, exists
from math import *

cwd = os.getcwd()
joined = os.path.join("a", "b")
ext = osp.splitext("a.txt")
k = j("a")
e = exists("a")
`
	expectBindings(t, src, map[string]string{
		"cwd":    "str",
		"joined": "str",
		"ext":    "tuple[str, str]",
		"k":      "str",
		"e":      "bool",
	})
}

func TestRelativeImportBeyondTopLevel(t *testing.T) {
	expectError(t, "from . import x\n", diagnostics.ErrI008)
}

func TestTypeMapRecordsExpressions(t *testing.T) {
	s, _, errs := analyzeSource(t, "x = [1]\n")
	expectNoErrors(t, errs, "")
	var found bool
	for n, typ := range s.TypeMap {
		if _, ok := n.(*ast.ListExpr); ok && typ.String() == "list[int]" {
			found = true
		}
	}
	assert.True(t, found, "list display missing from the type map")
}
