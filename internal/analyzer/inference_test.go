package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/config"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

func TestInferLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`1`, "int"},
		{`1.5`, "float"},
		{`"s"`, "str"},
		{`b"s"`, "bytes"},
		{`True`, "bool"},
		{`None`, "NoneType"},
		{`f"{1}"`, "str"},
		{`[1, 2, 3]`, "list[int]"},
		{`[1, "a"]`, "list[int | str]"},
		{`[]`, "list[Any]"},
		{`{1, 2}`, "set[int]"},
		{`(1, "a")`, "tuple[int, str]"},
		{`()`, "tuple[()]"},
		{`(1, *"ab")`, "tuple[int | str, ...]"},
		{`[*"ab", 1]`, "list[int | str]"},
		{`{"a": 1}`, "dict"},
	}
	for _, tt := range tests {
		expectType(t, tt.input, tt.expected)
	}
}

func TestInferComprehensions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`[x for x in [1, 2, 3]]`, "list[int]"},
		{`{c for c in "abc"}`, "set[str]"},
		{`(x for x in [1.5])`, "Generator[float, NoneType, NoneType]"},
		{`{k: v for k, v in [("a", 1)]}`, "dict[str, int]"},
		{`[(x, y) for x in [1] for y in "ab"]`, "list[tuple[int, str]]"},
		{`[x for x in range(3) if x > 1]`, "list[int]"},
	}
	for _, tt := range tests {
		expectType(t, tt.input, tt.expected)
	}
}

func TestInferOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`1 + 2`, "int"},
		{`1 + 1.5`, "float"},
		{`1.5 * 2`, "float"},
		{`1 / 2`, "float"},
		{`"a" * 3`, "str"},
		{`3 * "a"`, "str"},
		{`[1] + [2]`, "list[int]"},
		{`[1] + ["a"]`, "list[int | str]"},
		{`-1.5`, "float"},
		{`not 1`, "bool"},
		{`True & False`, "bool"},
		{`True & 1`, "int"},
		{`1 < 2`, "bool"},
		{`1 in [1]`, "bool"},
		{`1 is None`, "bool"},
		{`1 or "a"`, "int | str"},
		{`1 if True else "a"`, "int | str"},
	}
	for _, tt := range tests {
		expectType(t, tt.input, tt.expected)
	}
}

func TestInferCallsAndMembers(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"a".upper()`, "str"},
		{`"a b".split()`, "list[str]"},
		{`[1].pop()`, "int"},
		{`len("abc")`, "int"},
		{`abs(1)`, "int"},
		{`abs(1.5)`, "float"},
		{`sorted("ba")`, "list[str]"},
		{`max([1, 2])`, "int"},
		{`max(1, 2)`, "int"},
		{`next(iter([1]))`, "int"},
		{`next(iter([1]), None)`, "NoneType | int"},
		{`"abc"[0]`, "str"},
		{`[1, 2][1:]`, "list[int]"},
		{`(1, "a")[1]`, "str"},
		{`(1, "a")[-2]`, "int"},
		{`{"a": 1}.get`, "get"},
		{`dict(a=1).get("a")`, "NoneType | int"},
		{`type(1)`, "type[int]"},
		{`int`, "type[int]"},
		{`list[int]`, "type[list[int]]"},
		{`(1).real`, "int"},
	}
	for _, tt := range tests {
		got, err := inferString(t, tt.input)
		require.NoError(t, err, tt.input)
		if tt.expected == "get" {
			_, ok := got.(typesystem.TMethod)
			assert.True(t, ok, "%s: got %s", tt.input, got)
			continue
		}
		assert.Equal(t, tt.expected, got.String(), tt.input)
	}
}

func TestResolveGenericInit(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`list()`, "list[Any]"},
		{`list("ab")`, "list[str]"},
		{`list([1, 2])`, "list[int]"},
		{`list(range(3))`, "list[int]"},
		{`tuple([1])`, "tuple[int, ...]"},
		{`set((1, "a"))`, "set[int | str]"},
		{`frozenset("ab")`, "frozenset[str]"},
		{`dict()`, "dict[Any, Any]"},
		{`dict([("a", 1)])`, "dict[str, int]"},
		{`dict([("a", 1), (2, "b")])`, "dict[int | str, int | str]"},
		{`dict(a=1, b=2)`, "dict[str, int]"},
		{`dict([[1, 2]])`, "dict[int, int]"},
		{`enumerate("ab")`, "enumerate[str]"},
		{`zip([1], "a")`, "zip[tuple[int, str]]"},
		{`[i for i, c in enumerate("ab")]`, "list[int]"},
	}
	for _, tt := range tests {
		expectType(t, tt.input, tt.expected)
	}
}

func TestResolveGenericFuncRoundTrip(t *testing.T) {
	s := NewSession(Options{})
	ints := typesystem.TApp{Constructor: typesystem.Builtin(config.ListTypeName), Args: []typesystem.Type{typesystem.Builtin(config.IntTypeName)}}

	it, err := s.ResolveGenericFunc(ints, config.IterMethod, nil)
	require.NoError(t, err)
	assert.Equal(t, "Iterator[int]", it.String())

	elem, err := s.ElementType(ints)
	require.NoError(t, err)
	assert.Equal(t, "int", elem.String())

	rebuilt, err := s.ResolveGenericInit(typesystem.Builtin(config.ListTypeName), []typesystem.Type{ints}, nil)
	require.NoError(t, err)
	assert.True(t, typesystem.Identical(ints, rebuilt), "got %s", rebuilt)
}

func TestDictArity(t *testing.T) {
	_, err := inferString(t, `dict([(1, 2, 3)])`)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI007), "%v", err)

	var arity *diagnostics.DictArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, 3, arity.Arity)
	assert.Equal(t, 0, arity.Index)

	expectType(t, `dict([()])`, "dict[Any, Any]")
	expectType(t, `dict([(1,)])`, "dict[int, int]")
}

func TestElementTypeNotIterable(t *testing.T) {
	_, err := inferString(t, `[x for x in 1]`)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI010), "%v", err)
	assert.Contains(t, err.Error(), "not iterable")
}

func TestOverloadOrder(t *testing.T) {
	// bool matches the first candidate before the int one.
	expectType(t, `sum([True])`, "int")
	expectType(t, `sum([1.5])`, "float")
	expectType(t, `divmod(1, 2)`, "tuple[int, int]")
	expectType(t, `divmod(1.5, 2.5)`, "tuple[float, float]")
	expectType(t, `b"ab"[0]`, "int")
	expectType(t, `b"ab"[0:1]`, "bytes")
}

func TestMaxDepth(t *testing.T) {
	s := NewSession(Options{MaxDepth: 3})
	e, perrs := parser.ParseExpression(`[[[[1]]]]`)
	require.Empty(t, perrs)
	_, err := s.InferExpr(e, nil)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI009), "%v", err)
}
