package pipeline

import (
	"golang.org/x/exp/slices"

	"github.com/funvibe/stubinfer/internal/diagnostics"
)

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes every stage, then orders the collected diagnostics by
// source position. Stages run even after errors so a file reports parse
// and inference errors together.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	slices.SortStableFunc(ctx.Errors, byPosition)
	return ctx
}

// byPosition orders positioned diagnostics by line and column; errors
// without a position keep their place after them.
func byPosition(a, b *diagnostics.DiagnosticError) int {
	al, bl := a.Token.Line, b.Token.Line
	switch {
	case al == 0 && bl == 0:
		return 0
	case al == 0:
		return 1
	case bl == 0:
		return -1
	case al != bl:
		return al - bl
	}
	return a.Token.Column - b.Token.Column
}
