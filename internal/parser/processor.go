package parser

import (
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/pipeline"
	"github.com/funvibe/rcore/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		err := diagnostics.NewError(diagnostics.ErrP003, token.Token{}, "parser: token stream is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	parser := New(ctx.TokenStream, ctx)
	prog := parser.ParseProgram()
	prog.File = ctx.FilePath
	if len(ctx.Errors) == 0 {
		ctx.AstRoot = prog
	}
	return ctx
}
