package analyzer

import (
	"github.com/funvibe/stubinfer/internal/diagnostics"
	"github.com/funvibe/stubinfer/internal/pipeline"
	"github.com/funvibe/stubinfer/internal/token"
)

// SemanticAnalyzerProcessor runs type inference over the parsed module.
// A nil Session gets a default one over the embedded stubs.
type SemanticAnalyzerProcessor struct {
	Session *Session
}

func (sap *SemanticAnalyzerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		ctx.AddError(diagnostics.NewError(diagnostics.ErrP001, token.Token{}, "analyzer: no module to analyze"))
		return ctx
	}
	s := sap.Session
	if s == nil {
		s = NewSession(Options{ModuleName: ctx.ModuleName, File: ctx.FilePath})
		sap.Session = s
	}

	scope, errs := s.AnalyzeModule(ctx.AstRoot)
	ctx.Scope = scope
	ctx.TypeMap = s.TypeMap
	for _, err := range errs {
		ctx.AddError(err)
	}
	return ctx
}
