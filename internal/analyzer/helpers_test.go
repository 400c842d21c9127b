package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// analyzeSource parses and analyzes src as module __main__.
func analyzeSource(t *testing.T, src string) (*Session, *symbols.Scope, []*diagnostics.DiagnosticError) {
	t.Helper()
	mod, perrs := parser.ParseFile("test.py", src)
	require.Empty(t, perrs, "parse errors")
	s := NewSession(Options{File: "test.py"})
	scope, errs := s.AnalyzeModule(mod)
	return s, scope, errs
}

// inferString infers a single expression in an empty module.
func inferString(t *testing.T, src string) (typesystem.Type, error) {
	t.Helper()
	e, perrs := parser.ParseExpression(src)
	require.Empty(t, perrs, "parse errors")
	return NewSession(Options{}).InferExpr(e, nil)
}

func expectType(t *testing.T, src, want string) {
	t.Helper()
	got, err := inferString(t, src)
	require.NoError(t, err, src)
	require.Equal(t, want, got.String(), src)
}

// expectBindings analyzes src without errors and checks the module bindings.
func expectBindings(t *testing.T, src string, want map[string]string) {
	t.Helper()
	_, scope, errs := analyzeSource(t, src)
	expectNoErrors(t, errs, src)
	for name, typ := range want {
		got, ok := scope.Lookup(name)
		require.True(t, ok, "%s is not bound", name)
		require.Equal(t, typ, got.String(), "type of %s", name)
	}
}

func expectNoErrors(t *testing.T, errs []*diagnostics.DiagnosticError, src string) {
	t.Helper()
	if len(errs) == 0 {
		return
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected no errors, got:\n%s\ninput: %s", strings.Join(msgs, "\n"), src)
}

// expectError analyzes src and returns the first diagnostic with code.
func expectError(t *testing.T, src string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	_, _, errs := analyzeSource(t, src)
	for _, e := range errs {
		if e.Code == code {
			return e
		}
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), src)
	return nil
}
