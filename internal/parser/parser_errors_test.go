package parser_test

import (
	"strings"
	"testing"

	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/lexer"
	"github.com/funvibe/stubinfer/internal/parser"
	"github.com/funvibe/stubinfer/internal/pipeline"
)

// parseWithErrors runs the lexer+parser and returns the module and all diagnostic errors.
func parseWithErrors(input string) (*ast.Module, []*diagnostics.DiagnosticError) {
	ctx := &pipeline.PipelineContext{SourceCode: input, FilePath: "test.py"}
	ctx = (&lexer.LexerProcessor{}).Process(ctx)
	ctx = (&parser.ParserProcessor{}).Process(ctx)
	return ctx.AstRoot, ctx.Errors
}

// expectError asserts an error with the given code is reported.
func expectError(t *testing.T, input string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	_, errs := parseWithErrors(input)
	if len(errs) == 0 {
		t.Fatalf("expected error %s, but got none\ninput: %s", code, input)
	}
	for _, e := range errs {
		if e.Code == code {
			return e
		}
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), input)
	return nil
}

// ---------------------------------------------------------------------------
// P001 - Unexpected token
// ---------------------------------------------------------------------------

func TestP001_WalrusAsStatement(t *testing.T) {
	expectError(t, "x := 1", diagnostics.ErrP001)
}

func TestP001_DefWithoutName(t *testing.T) {
	expectError(t, "def (x): pass", diagnostics.ErrP001)
}

func TestP001_UnclosedParen(t *testing.T) {
	expectError(t, "x = (1, 2", diagnostics.ErrP001)
}

func TestP001_TryWithoutHandlers(t *testing.T) {
	e := expectError(t, "try:\n    pass\nx = 1\n", diagnostics.ErrP001)
	if !strings.Contains(e.Msg, "except") {
		t.Errorf("unexpected message: %s", e.Msg)
	}
}

func TestP001_NonDefaultAfterDefault(t *testing.T) {
	expectError(t, "def f(a=1, b): pass", diagnostics.ErrP001)
}

// ---------------------------------------------------------------------------
// P002 - Illegal characters and literals
// ---------------------------------------------------------------------------

func TestP002_IllegalCharacter(t *testing.T) {
	expectError(t, "x = 1 $ 2", diagnostics.ErrP002)
}

func TestP002_BadNumber(t *testing.T) {
	expectError(t, "x = 0x", diagnostics.ErrP002)
}

// ---------------------------------------------------------------------------
// P003 - Indentation
// ---------------------------------------------------------------------------

func TestP003_UnexpectedIndent(t *testing.T) {
	expectError(t, "x = 1\n    y = 2\n", diagnostics.ErrP003)
}

func TestP003_MissingBlock(t *testing.T) {
	e := expectError(t, "if x:\npass\n", diagnostics.ErrP003)
	if !strings.Contains(e.Msg, "indented block") {
		t.Errorf("unexpected message: %s", e.Msg)
	}
}

func TestP003_InconsistentDedent(t *testing.T) {
	expectError(t, "if x:\n    a = 1\n  b = 2\n", diagnostics.ErrP003)
}

// ---------------------------------------------------------------------------
// P004 - Invalid targets
// ---------------------------------------------------------------------------

func TestP004_InvalidTargets(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"1 = x", "literal"},
		{"f() = 1", "function call"},
		{"a + b += 1", "augmented assignment"},
		{"a, b: int = 1", "annotated"},
		{"[x for x in y] = 1", "list comprehension"},
		{"del *a", "starred"},
		{"for f() in y: pass", "function call"},
		{"(a.b := 1)", "assignment expression"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e := expectError(t, tt.input, diagnostics.ErrP004)
			if !strings.Contains(e.Msg, tt.msg) {
				t.Errorf("message %q does not mention %q", e.Msg, tt.msg)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// P005 - Nesting
// ---------------------------------------------------------------------------

func TestP005_DeepNesting(t *testing.T) {
	input := "x = " + strings.Repeat("(", 600) + "1" + strings.Repeat(")", 600)
	expectError(t, input, diagnostics.ErrP005)
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecoveryKeepsFollowingStatements(t *testing.T) {
	mod, errs := parseWithErrors("x = = 1\ny = 2\n")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d: %v", len(errs), errs)
	}
	if errs[0].File != "test.py" || errs[0].Token.Line != 1 {
		t.Errorf("error not positioned: %s", errs[0].Error())
	}
	if len(mod.Body) != 1 {
		t.Fatalf("expected the second statement to survive, got %d statements", len(mod.Body))
	}
	assign, ok := mod.Body[0].(*ast.Assign)
	if !ok || assign.Targets[0].(*ast.Name).Id != "y" {
		t.Errorf("unexpected surviving statement %T", mod.Body[0])
	}
}

func TestRecoverySkipsBrokenBlock(t *testing.T) {
	mod, errs := parseWithErrors("def f(:\n    a = 1\n    b = 2\nz = 3\n")
	if len(errs) == 0 {
		t.Fatalf("expected an error")
	}
	if len(mod.Body) != 1 {
		t.Fatalf("expected only the trailing statement, got %d", len(mod.Body))
	}
	if _, ok := mod.Body[0].(*ast.Assign); !ok {
		t.Errorf("expected assignment, got %T", mod.Body[0])
	}
}

func TestRecoveryClosesOpenBracket(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple statement", "x = foo(1,\ny = 2\n", []string{"y"}},
		{"nested block", "def f():\n    a = [1,\n    b = 2\nc = 3\n", []string{"f", "c"}},
		{"comment lines skipped", "if (x:\n  # note\n\nz = 1\nw = 2\n", []string{"z", "w"}},
		{"never closed", "x = (1,\n    2\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, errs := parseWithErrors(tt.input)
			if len(errs) == 0 {
				t.Fatalf("expected an error")
			}
			var got []string
			for _, st := range mod.Body {
				switch s := st.(type) {
				case *ast.Assign:
					got = append(got, s.Targets[0].(*ast.Name).Id)
				case *ast.FunctionDef:
					got = append(got, s.Name)
				default:
					t.Errorf("unexpected statement %T", st)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("statements = %v, want %v", got, tt.want)
			}
		})
	}
}
