package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/token"
)

type stage struct {
	errs []*diagnostics.DiagnosticError
}

func (s stage) Process(ctx *PipelineContext) *PipelineContext {
	for _, e := range s.errs {
		ctx.AddError(e)
	}
	return ctx
}

func at(code diagnostics.ErrorCode, line, col int) *diagnostics.DiagnosticError {
	return diagnostics.NewError(code, token.Token{Line: line, Column: col}, "")
}

func TestRunOrdersDiagnostics(t *testing.T) {
	ctx := NewPipelineContext("")
	ctx.FilePath = "m.py"
	unpositioned := diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "no module")

	out := New(
		stage{errs: []*diagnostics.DiagnosticError{at(diagnostics.ErrP002, 4, 1)}},
		stage{errs: []*diagnostics.DiagnosticError{unpositioned, at(diagnostics.ErrI001, 2, 7), at(diagnostics.ErrI010, 2, 3)}},
	).Run(ctx)

	var got []diagnostics.ErrorCode
	for _, e := range out.Errors {
		got = append(got, e.Code)
		assert.Equal(t, "m.py", e.File)
	}
	assert.Equal(t, []diagnostics.ErrorCode{diagnostics.ErrI010, diagnostics.ErrI001, diagnostics.ErrP002, diagnostics.ErrP001}, got)
	assert.True(t, out.HasErrors())
}

func TestRunWithoutErrors(t *testing.T) {
	out := New(stage{}, stage{}).Run(NewPipelineContext("x = 1\n"))
	assert.False(t, out.HasErrors())
	assert.Empty(t, out.Errors)
}
