package evaluator

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/funvibe/rcore/internal/archive"
	"github.com/funvibe/rcore/internal/arith"
	"github.com/funvibe/rcore/internal/ast"
	"github.com/funvibe/rcore/internal/channel"
	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/ffi"
	"github.com/funvibe/rcore/internal/instrument"
	"github.com/funvibe/rcore/internal/prettyprinter"
	"github.com/funvibe/rcore/internal/token"
	"github.com/funvibe/rcore/internal/value"
)

// maxEvalDepth bounds nested Eval calls so runaway recursion fails before the Go stack
// does.
const maxEvalDepth = 100000

// Frame is one active closure call.
type Frame struct {
	// Name of the called function, "" for anonymous closures.
	Name string
	// Call is the call expression; nil for the top-level frame.
	Call ast.Expression
	Fn   *value.Closure
	// Env is the callee frame environment.
	Env *value.Environment
	// Caller is the environment the call was evaluated in.
	Caller *value.Environment
	// Args are the supplied arguments, kept for Recall, UseMethod and NextMethod.
	Args []Arg

	// dispatch is set when the frame runs an S3 method.
	dispatch *s3Dispatch

	onExit []ast.Expression
}

type handlerKind uint8

const (
	// catchWarnings turns warnings into conditions unwinding to a tryCatch.
	catchWarnings handlerKind = iota
	// muffleWarnings drops warnings (suppressWarnings).
	muffleWarnings
	catchMessages
	muffleMessages
)

// Evaluator runs programs against one context's environments. It is not safe for
// concurrent use.
type Evaluator struct {
	// Context for cancellation
	Context context.Context

	Out    io.Writer
	ErrOut io.Writer

	Options *config.Options
	Logger  zerolog.Logger

	EmptyEnv  *value.Environment
	BaseEnv   *value.Environment
	GlobalEnv *value.Environment

	// CallStack holds the active closure frames, innermost last.
	CallStack []*Frame
	// CurrentFile being evaluated
	CurrentFile string
	// BaseDir resolves relative paths of source().
	BaseDir string
	// Interactive is reported by interactive(); the REPL sets it.
	Interactive bool

	// Bus receives instrumentation events; nil disables them.
	Bus *instrument.Bus
	// FFI holds the native routines reachable through .Call.
	FFI *ffi.Registry
	// Host is the owning session; nil when the evaluator runs standalone.
	Host Host
	// Channels is the process-wide channel registry.
	Channels *channel.Registry
	// Archives caches open archive files.
	Archives *archive.Pool

	warnings diagnostics.WarningList
	handlers []handlerKind
	raised   *Condition
	// lastError is the text of the last error caught by try.
	lastError string
	// futures are the parallel maps started but not yet collected, by handle.
	futures map[string]*future

	binarySites map[ast.Node]*arith.BinarySite
	unarySites  map[ast.Node]*arith.UnarySite

	visible   bool
	evalDepth int
}

// New creates an evaluator with fresh empty, base and global environments and the
// builtins bound in base.
func New(opts *config.Options) *Evaluator {
	if opts == nil {
		opts = config.Default()
	}
	empty := value.NewEmptyEnvironment()
	empty.SetName(config.EmptyEnvName)
	base := value.NewNamedEnvironment(config.BaseEnvName, empty)
	global := value.NewNamedEnvironment(config.GlobalEnvName, base)
	RegisterBuiltins(base)
	base.Lock(false)

	e := &Evaluator{
		Context:     context.Background(),
		Out:         os.Stdout,
		ErrOut:      os.Stderr,
		Options:     opts,
		Logger:      zerolog.Nop(),
		EmptyEnv:    empty,
		BaseEnv:     base,
		GlobalEnv:   global,
		CurrentFile: "",
		BaseDir:     ".",
		FFI:         ffi.NewRegistry(),
		Channels:    channel.NewRegistry(opts.ChannelCapacity),
		Archives:    archive.NewPool(zerolog.Nop()),
		binarySites: make(map[ast.Node]*arith.BinarySite),
		unarySites:  make(map[ast.Node]*arith.UnarySite),
		visible:     true,
	}
	e.loadNativeRoutines(e.FFI)
	return e
}

// Eval evaluates node in env.
func (e *Evaluator) Eval(node ast.Expression, env *value.Environment) (value.Value, error) {
	// Check recursion depth to prevent Go stack overflow
	e.evalDepth++
	defer func() { e.evalDepth-- }()
	if e.evalDepth > maxEvalDepth {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, msgTooDeep)
	}

	// Check for cancellation
	if e.Context != nil {
		select {
		case <-e.Context.Done():
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "execution cancelled: %v", e.Context.Err())
		default:
		}
	}

	e.visible = true
	v, err := e.evalCore(node, env)
	if err != nil {
		var de *diagnostics.Error
		if errors.As(err, &de) && de.Line == 0 && node != nil {
			de.WithPosition(node.GetToken())
			if de.File == "" {
				de.File = e.CurrentFile
			}
		}
		return nil, err
	}
	if e.raised != nil {
		c := e.raised
		e.raised = nil
		return nil, c
	}
	return v, nil
}

func (e *Evaluator) evalCore(node ast.Expression, env *value.Environment) (value.Value, error) {
	switch node := node.(type) {
	case *ast.NumberLiteral, *ast.IntegerLiteral, *ast.ComplexLiteral, *ast.StringLiteral, *ast.ConstantLiteral:
		return literalValue(node)
	case *ast.Identifier:
		return e.evalIdentifier(node, env)
	case *ast.NamespaceExpression:
		return e.evalNamespace(node)
	case *ast.PrefixExpression:
		return e.evalPrefix(node, env)
	case *ast.InfixExpression:
		return e.evalInfix(node, env)
	case *ast.AssignExpression:
		return e.evalAssign(node, env)
	case *ast.CallExpression:
		return e.evalCall(node, env)
	case *ast.IndexExpression:
		return e.evalIndex(node, env)
	case *ast.DollarExpression:
		return e.evalDollar(node, env)
	case *ast.FunctionLiteral:
		return e.evalFunctionLiteral(node, env), nil
	case *ast.BlockExpression:
		return e.evalBlock(node, env)
	case *ast.ParenExpression:
		v, err := e.Eval(node.Inner, env)
		e.visible = true
		return v, err
	case *ast.IfExpression:
		return e.evalIf(node, env)
	case *ast.ForExpression:
		return e.evalFor(node, env)
	case *ast.WhileExpression:
		return e.evalWhile(node, env)
	case *ast.RepeatExpression:
		return e.evalRepeat(node, env)
	case *ast.BreakExpression:
		if node.Next {
			return nil, NextSignal{}
		}
		return nil, BreakSignal{}
	case nil:
		return value.Null, nil
	}
	return nil, diagnostics.Internalf("unknown node type: %T", node)
}

// Visible reports whether the value of the last evaluation should be printed.
func (e *Evaluator) Visible() bool { return e.visible }

// SetInvisible marks the current result as invisible.
func (e *Evaluator) SetInvisible() { e.visible = false }

// force returns the value of v, forcing it when it is a promise.
func (e *Evaluator) force(v value.Value) (value.Value, error) {
	if p, ok := v.(*value.Promise); ok {
		return p.Force(e.Eval)
	}
	return v, nil
}

// currentFrame returns the innermost closure frame, or nil at top level.
func (e *Evaluator) currentFrame() *Frame {
	for i := len(e.CallStack) - 1; i >= 0; i-- {
		if e.CallStack[i].Call != nil {
			return e.CallStack[i]
		}
	}
	return nil
}

// frameOf returns the frame whose environment is env, or nil.
func (e *Evaluator) frameOf(env *value.Environment) *Frame {
	for i := len(e.CallStack) - 1; i >= 0; i-- {
		if e.CallStack[i].Env == env {
			return e.CallStack[i]
		}
	}
	return nil
}

// currentFunction is the name of the innermost closure, for instrumentation.
func (e *Evaluator) currentFunction() string {
	if f := e.currentFrame(); f != nil {
		return f.Name
	}
	return ""
}

func (e *Evaluator) emit(kind instrument.EventKind, name string, node ast.Expression) {
	if !e.Bus.Enabled() {
		return
	}
	tok := node.GetToken()
	e.Bus.Emit(instrument.Event{
		Kind:     kind,
		Function: name,
		File:     e.CurrentFile,
		Line:     tok.Line,
		Column:   tok.Column,
		Source:   node.String(),
	})
}

// siteWarner attributes warnings to the deparsed call they were raised in.
type siteWarner struct {
	e    *Evaluator
	call string
}

func (w siteWarner) Warn(wn diagnostics.Warning) {
	if wn.Call == "" {
		wn.Call = w.call
	}
	w.e.signalWarning(wn)
}

func (e *Evaluator) warnerAt(node ast.Expression) diagnostics.Warner {
	call := ""
	if node != nil {
		call = node.String()
	}
	return siteWarner{e: e, call: call}
}

// signalWarning routes a warning to the innermost handler: a tryCatch with a warning
// handler unwinds, suppressWarnings drops it, otherwise it is reported.
func (e *Evaluator) signalWarning(w diagnostics.Warning) {
	for i := len(e.handlers) - 1; i >= 0; i-- {
		switch e.handlers[i] {
		case muffleWarnings:
			return
		case catchWarnings:
			if e.raised == nil {
				err := diagnostics.Errorf(diagnostics.ErrR001, "%s", w.Message)
				err.Call = w.Call
				e.raised = &Condition{Err: err, Classes: warningClasses}
			}
			return
		}
	}
	if e.Options.Warnings == config.WarnImmediate {
		_, _ = io.WriteString(e.ErrOut, "Warning message:\n"+w.String()+"\n")
		return
	}
	e.warnings.Warn(w)
}

// signalMessage is signalWarning for message(): text goes to ErrOut unless a handler
// takes it.
func (e *Evaluator) signalMessage(text string) {
	for i := len(e.handlers) - 1; i >= 0; i-- {
		switch e.handlers[i] {
		case muffleMessages:
			return
		case catchMessages:
			if e.raised == nil {
				err := diagnostics.Errorf(diagnostics.ErrR001, "%s", text)
				e.raised = &Condition{Err: err, Classes: messageClasses}
			}
			return
		}
	}
	_, _ = io.WriteString(e.ErrOut, text)
}

// withHandlers runs fn with kinds pushed on the handler stack.
func (e *Evaluator) withHandlers(fn func() (value.Value, error), kinds ...handlerKind) (value.Value, error) {
	n := len(e.handlers)
	e.handlers = append(e.handlers, kinds...)
	defer func() { e.handlers = e.handlers[:n] }()
	return fn()
}

// DrainWarnings returns the deferred warnings and clears them.
func (e *Evaluator) DrainWarnings() []diagnostics.Warning {
	return e.warnings.Drain()
}

// FlushWarnings writes the deferred warnings to ErrOut.
func (e *Evaluator) FlushWarnings() {
	if s := diagnostics.FormatWarnings(e.DrainWarnings()); s != "" {
		_, _ = io.WriteString(e.ErrOut, s+"\n")
	}
}

// EvalProgram evaluates the expressions of a program in the global environment as the
// body of an anonymous closure: return() ends the program with its value. When print
// is set, visible results are printed and deferred warnings are flushed after each
// expression. Evaluation stops at the first error.
func (e *Evaluator) EvalProgram(prog *ast.Program, print bool) (value.Value, error) {
	if prog.File != "" {
		e.CurrentFile = prog.File
	}
	top := &Frame{Env: e.GlobalEnv, Caller: e.GlobalEnv}
	e.CallStack = append(e.CallStack, top)
	defer func() { e.CallStack = e.CallStack[:len(e.CallStack)-1] }()

	var result value.Value = value.Null
	e.visible = false
	for _, expr := range prog.Expressions {
		e.emit(instrument.Statement, "", expr)
		v, err := e.Eval(expr, e.GlobalEnv)
		if err != nil {
			var ret *ReturnSignal
			if errors.As(err, &ret) && ret.Env == e.GlobalEnv {
				result = ret.Value
				if print && e.visible {
					if err := e.print(result); err != nil {
						return nil, e.topLevelError(err)
					}
				}
				if print {
					e.FlushWarnings()
				}
				return result, nil
			}
			if print {
				e.FlushWarnings()
			}
			return nil, e.topLevelError(err)
		}
		result = v
		if print {
			if e.visible {
				if err := e.print(v); err != nil {
					e.FlushWarnings()
					return nil, e.topLevelError(err)
				}
			}
			e.FlushWarnings()
		}
	}
	return result, nil
}

// print shows a visible top-level value. Values with a class attribute go to a
// print method when one is defined.
func (e *Evaluator) print(v value.Value) error {
	if len(value.Class(v)) > 0 {
		call := syntheticCall("print", token.Token{})
		if _, ok, err := e.dispatchInternal("print", v, []Arg{{Value: v}}, call, e.GlobalEnv); ok || err != nil {
			return err
		}
	}
	if err := prettyprinter.Fprint(e.Out, v); err != nil {
		e.Logger.Error().Err(err).Msg("writing result")
	}
	return nil
}

// topLevelError converts control signals that escaped to the top level into
// language errors.
func (e *Evaluator) topLevelError(err error) error {
	switch err.(type) {
	case BreakSignal, NextSignal:
		return diagnostics.Errorf(diagnostics.ErrR005, "%s", err.Error())
	case *ReturnSignal:
		return diagnostics.Errorf(diagnostics.ErrR001, "%s", err.Error())
	}
	return err
}

func (e *Evaluator) binarySite(node ast.Node, op arith.Op) *arith.BinarySite {
	s, ok := e.binarySites[node]
	if !ok {
		s = arith.NewBinarySite(op)
		e.binarySites[node] = s
	}
	return s
}

func (e *Evaluator) unarySite(node ast.Node, op arith.UnaryOp) *arith.UnarySite {
	s, ok := e.unarySites[node]
	if !ok {
		s = arith.NewUnarySite(op)
		e.unarySites[node] = s
	}
	return s
}

// SiteCount reports how many operator call sites have been cached.
func (e *Evaluator) SiteCount() int {
	return len(e.binarySites) + len(e.unarySites)
}

// validate applies the debug completeness check to an operator result.
func (e *Evaluator) validate(v value.Value, node ast.Expression) (value.Value, error) {
	if !e.Options.Debug.ValidateCompleteness {
		return v, nil
	}
	vec, ok := v.(value.Vector)
	if !ok || !vec.IsComplete() {
		return v, nil
	}
	if !vec.Validate() {
		return nil, diagnostics.Internalf("completeness flag set on a vector containing NA").With("node", node.String())
	}
	return v, nil
}
