// Package pipeline runs one top-level evaluation through its stages: lex, parse,
// evaluate.
package pipeline

import (
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/value"
)

// PipelineContext carries one top-level evaluation through the stages.
type PipelineContext struct {
	SourceCode string
	FilePath   string

	TokenStream []token.Token
	AstRoot     ast.Node

	// Errors holds parse and language errors; stages after a failed one skip their work.
	Errors []*diagnostics.Error
	// Internal is set when evaluation hit an implementation failure.
	Internal *diagnostics.InternalError

	Result  value.Value
	Visible bool
	// Warnings collected during the evaluation, in order of occurrence.
	Warnings []diagnostics.Warning
}

// Failed reports whether an earlier stage recorded an error.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0 || ctx.Internal != nil
}

// Err returns the first recorded failure, or nil.
func (ctx *PipelineContext) Err() error {
	if ctx.Internal != nil {
		return ctx.Internal
	}
	if len(ctx.Errors) > 0 {
		return ctx.Errors[0]
	}
	return nil
}

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages []Processor
}

func New(stages ...Processor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run passes ctx through each stage in turn and stops after the first stage that
// records a failure.
func (p *Pipeline) Run(ctx *PipelineContext) *PipelineContext {
	for _, stage := range p.stages {
		if ctx = stage.Process(ctx); ctx.Failed() {
			break
		}
	}
	return ctx
}
