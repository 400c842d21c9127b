package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/lexer"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/pipeline"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

func TestModuleErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  diagnostics.ErrorCode
	}{
		{"unbound name", "print(y)\n", diagnostics.ErrI001},
		{"type variable member", "from typing import TypeVar\nT = TypeVar(\"T\")\ndef f(x: T):\n    return x.real\n", diagnostics.ErrI003},
		{"type variable member store", "from typing import TypeVar\nT = TypeVar(\"T\")\ndef f(x: T):\n    x.attr = 1\n", diagnostics.ErrI003},
		{"type variable member delete", "from typing import TypeVar\nT = TypeVar(\"T\")\ndef f(x: T):\n    del x.attr\n", diagnostics.ErrI003},
		{"no overload", "abs(\"x\")\n", diagnostics.ErrI004},
		{"unbound generic", "from typing import TypeVar\nT = TypeVar(\"T\")\ndef first() -> T: ...\ny = first()\n", diagnostics.ErrI006},
		{"conflicting keyword", "from typing import Generic, TypeVar\nT = TypeVar(\"T\")\nclass Pair(Generic[T]):\n    def __init__(self, a: T, b: T) -> None: ...\np = Pair(1, b=\"s\")\n", diagnostics.ErrI006},
		{"missing stub", "import nosuchmodule\n", diagnostics.ErrI008},
		{"missing member", "from os import nosuchname\n", diagnostics.ErrI008},
		{"lambda", "f = lambda: 1\n", diagnostics.ErrI009},
		{"return outside function", "return 1\n", diagnostics.ErrI009},
		{"missing attribute", "x = 1\nx.foo\n", diagnostics.ErrI010},
		{"item assignment on tuple", "t = (1, 2)\nt[0] = 3\n", diagnostics.ErrI010},
		{"item assignment on int", "n = 5\nn[0] = 1\n", diagnostics.ErrI010},
		{"unary operand", "-\"a\"\n", diagnostics.ErrI010},
		{"binary operands", "1 + \"a\"\n", diagnostics.ErrI010},
		{"call int", "x = 1\nx()\n", diagnostics.ErrI011},
		{"call module", "import os\nos()\n", diagnostics.ErrI011},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := expectError(t, tt.input, tt.code)
			assert.Equal(t, "test.py", e.File)
			assert.NotZero(t, e.Token.Line, "diagnostic has no position: %v", e)
		})
	}
}

func TestErrorsDoNotStopAnalysis(t *testing.T) {
	src := `
a = missing
b = a + 1
c = "ok"
`
	_, scope, errs := analyzeSource(t, src)
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrI001, errs[0].Code)
	assert.Equal(t, 2, errs[0].Token.Line)

	for name, want := range map[string]string{"a": "Any", "b": "Any", "c": "str"} {
		got, ok := scope.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got.String(), name)
	}
}

func TestDuplicateDiagnosticsCollapse(t *testing.T) {
	src := `
def f():
    return missing

f()
f()
`
	_, _, errs := analyzeSource(t, src)
	require.Len(t, errs, 1)
	assert.Equal(t, diagnostics.ErrI001, errs[0].Code)
}

func TestLoadOnStoreContext(t *testing.T) {
	s := NewSession(Options{})
	_, err := s.InferExpr(&ast.Name{Id: "x", Ctx: ast.Store}, nil)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI002), "%v", err)
}

func TestCallWithoutSignatures(t *testing.T) {
	s := NewSession(Options{})
	_, err := s.call(typesystem.TFunc{Name: "f"}, nil, nil)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI005), "%v", err)
}

func TestStrictKeywordOverloads(t *testing.T) {
	s := NewSession(Options{StrictOverloads: true})
	e, perrs := parser.ParseExpression(`round(1.5, ndigits=2)`)
	require.Empty(t, perrs)
	_, err := s.InferExpr(e, nil)
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.ErrI004), "%v", err)

	_, err = inferString(t, `round(1.5, ndigits=2)`)
	assert.NoError(t, err)
}

func TestUnboundNameReportsFrames(t *testing.T) {
	e := expectError(t, "def f():\n    return nope\nf()\n", diagnostics.ErrI001)
	require.NotEmpty(t, e.Frames)
	assert.Contains(t, e.Frames[0], "function f")
}

func TestProcessorPipeline(t *testing.T) {
	ctx := pipeline.NewPipelineContext("x = [1]\ny = x.nope\n")
	ctx.FilePath = "pipe.py"
	ctx.ModuleName = "pipe"

	p := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}, &SemanticAnalyzerProcessor{})
	out := p.Run(ctx)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, diagnostics.ErrI010, out.Errors[0].Code)
	assert.Equal(t, "pipe.py", out.Errors[0].File)

	x, ok := out.Scope.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "list[int]", x.String())
	assert.NotEmpty(t, out.TypeMap)
}

func TestProcessorWithoutModule(t *testing.T) {
	ctx := pipeline.NewPipelineContext("")
	out := (&SemanticAnalyzerProcessor{}).Process(ctx)
	require.True(t, out.HasErrors())
	assert.Equal(t, diagnostics.ErrP001, out.Errors[0].Code)
}

func TestDiagnosticQuotesInnermostExpression(t *testing.T) {
	e := expectError(t, "x = 1\ny = [x.foo]\n", diagnostics.ErrI010)
	assert.Equal(t, "x.foo", e.Node)
	assert.Equal(t, 2, e.Token.Line)
}
