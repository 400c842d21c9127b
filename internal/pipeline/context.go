package pipeline

import (
	"github.com/funvibe/stubinfer/internal/ast"
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/symbols"
	"github.com/funvibe/stubinfer/internal/token"
	"github.com/funvibe/stubinfer/internal/typesystem"
)

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// TokenStream is the lexer output consumed by the parser.
type TokenStream interface {
	Next() token.Token
	// Peek returns up to n upcoming tokens without consuming them.
	Peek(n int) []token.Token
}

// PipelineContext carries the state of a single source file through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string
	ModuleName string

	TokenStream TokenStream
	AstRoot     *ast.Module

	// Filled in by the analyzer.
	Scope   *symbols.Scope
	TypeMap map[ast.Node]typesystem.Type

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{
		SourceCode: source,
		TypeMap:    make(map[ast.Node]typesystem.Type),
	}
}

// AddError records err, stamping the file path if missing.
func (ctx *PipelineContext) AddError(err *diagnostics.DiagnosticError) {
	if err == nil {
		return
	}
	if err.File == "" {
		err.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, err)
}

// HasErrors reports whether any stage produced a diagnostic.
func (ctx *PipelineContext) HasErrors() bool {
	return len(ctx.Errors) > 0
}
