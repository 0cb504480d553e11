package evaluator

import (
	"errors"
	"path/filepath"
	"runtime/debug"

	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/pipeline"
	"github.com/funvibe/rcore/internal/value"
)

// EvaluatorProcessor is the evaluation stage of the pipeline. It runs the parsed
// program in Eval, printing visible results when Print is set.
type EvaluatorProcessor struct {
	Eval  *Evaluator
	Print bool
}

func (ep *EvaluatorProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || ctx.Failed() {
		return ctx
	}
	eval := ep.Eval
	if eval == nil {
		eval = New(nil)
		ep.Eval = eval
	}
	if ctx.FilePath != "" {
		eval.BaseDir = filepath.Dir(ctx.FilePath)
		eval.CurrentFile = ctx.FilePath
	}

	result, err := ep.run(eval, prog)
	ctx.Warnings = append(ctx.Warnings, eval.DrainWarnings()...)
	if err != nil {
		var ie *diagnostics.InternalError
		var de *diagnostics.Error
		switch {
		case errors.As(err, &ie):
			ctx.Internal = ie
		case errors.As(err, &de):
			ctx.Errors = append(ctx.Errors, de)
		default:
			ctx.Internal = diagnostics.Internalf("unexpected evaluation failure: %v", err)
			ctx.Internal.Cause = err
		}
		return ctx
	}
	ctx.Result = result
	ctx.Visible = eval.Visible()
	return ctx
}

// run evaluates prog, converting a Go panic into an internal error that carries the
// stack and the source position being evaluated.
func (ep *EvaluatorProcessor) run(eval *Evaluator, prog *ast.Program) (result value.Value, err error) {
	depth := len(eval.CallStack)
	defer func() {
		if p := recover(); p != nil {
			eval.CallStack = eval.CallStack[:depth]
			eval.handlers = nil
			eval.raised = nil
			ie := diagnostics.FromPanic(p, debug.Stack())
			if eval.CurrentFile != "" {
				ie = ie.With("file", eval.CurrentFile)
			}
			eval.Logger.Error().Str("stack", ie.Stack).Interface("context", ie.Context).Msg(ie.Message)
			result, err = nil, ie
		}
	}()
	return eval.EvalProgram(prog, ep.Print)
}
