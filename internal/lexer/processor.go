package lexer

import (
	"github.com/funvibe/rcore/internal/pipeline"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	ctx.TokenStream = New(ctx.SourceCode).Tokens()
	return ctx
}
