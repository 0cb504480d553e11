// Package session owns evaluation contexts: one evaluator with its environments,
// warnings, cleanup hooks and logger, plus the child contexts it spawns.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funvibe/rcore/internal/archive"
	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/evaluator"
	"github.com/funvibe/rcore/internal/instrument"
	"github.com/funvibe/rcore/internal/lexer"
	"github.com/funvibe/rcore/internal/parser"
	"github.com/funvibe/rcore/internal/pipeline"
	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/utils"
	"github.com/funvibe/rcore/internal/value"
)

// ErrDestroyed is returned by every operation on a destroyed context.
var ErrDestroyed = errors.New("context has been destroyed")

// Settings configure a root context. Zero values mean: default options, standard
// output and error, and a logger writing to standard error at the configured level.
type Settings struct {
	Options *config.Options
	Out     io.Writer
	ErrOut  io.Writer
	// LogOut receives the JSON log lines; nil means ErrOut.
	LogOut io.Writer
	// Logger replaces the logger built from LogOut when set.
	Logger *zerolog.Logger
}

type cleanupHook struct {
	name string
	fn   func() error
}

// child is a context started by Spawn.
type child struct {
	ctx    *Context
	done   chan struct{}
	result value.Value
	err    error
}

// Context is one evaluation context. Its evaluator is not safe for concurrent use:
// callers serialize Evaluate and Run. Spawn, Join and Destroy may be called from any
// goroutine.
type Context struct {
	ID     string
	Eval   *evaluator.Evaluator
	Logger zerolog.Logger
	Opts   *config.Options

	parent *Context
	cancel context.CancelFunc

	mu       sync.Mutex
	hooks    []cleanupHook
	children map[string]*child
	warnings []diagnostics.Warning

	destroyed atomic.Bool
}

// New creates a root context and evaluates the configured profile files into its
// global environment.
func New(s Settings) (*Context, error) {
	opts := s.Options
	if opts == nil {
		opts = config.Default()
	}
	out, errOut := s.Out, s.ErrOut
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	var logger zerolog.Logger
	switch {
	case s.Logger != nil:
		logger = *s.Logger
	case s.LogOut != nil:
		logger = config.NewLogger(s.LogOut, opts)
	default:
		logger = config.NewLogger(errOut, opts)
	}
	c := newContext(nil, opts, &lockedWriter{w: out}, &lockedWriter{w: errOut}, logger)
	c.AddCleanup("channels", c.Eval.Channels.CloseAll)
	if err := c.loadProfiles(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func newContext(parent *Context, opts *config.Options, out, errOut io.Writer, logger zerolog.Logger) *Context {
	id := uuid.NewString()
	logger = logger.With().Str("context", id).Logger()
	base := context.Background()
	if parent != nil {
		base = parent.Eval.Context
	}
	cctx, cancel := context.WithCancel(base)

	ev := evaluator.New(opts)
	ev.Context = cctx
	ev.Out = out
	ev.ErrOut = errOut
	ev.Logger = config.ComponentLogger(logger, "evaluator")
	ev.Archives = archive.NewPool(config.ComponentLogger(logger, "archive"))
	if opts.Instrumentation {
		ev.Bus = instrument.NewBus(config.ComponentLogger(logger, "instrument"))
	}
	if parent != nil {
		ev.Channels = parent.Eval.Channels
		ev.FFI = parent.Eval.FFI
		ev.Bus = parent.Eval.Bus
	}

	c := &Context{
		ID:       id,
		Eval:     ev,
		Logger:   logger,
		Opts:     opts,
		parent:   parent,
		cancel:   cancel,
		children: map[string]*child{},
	}
	ev.Host = c
	c.AddCleanup("archives", ev.Archives.CloseAll)
	logger.Debug().Bool("child", parent != nil).Msg("context created")
	return c
}

func (c *Context) loadProfiles() error {
	for _, path := range c.Opts.Profiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading profile %s: %w", path, err)
		}
		if _, err := c.run(string(data), path, false); err != nil {
			return fmt.Errorf("profile %s: %w", path, err)
		}
		c.Logger.Debug().Str("profile", path).Msg("profile loaded")
	}
	return nil
}

// Bus returns the instrumentation bus, or nil when instrumentation is off.
func (c *Context) Bus() *instrument.Bus { return c.Eval.Bus }

// Evaluate parses and evaluates source in the global environment and returns the
// value of the last expression without printing it. Deferred warnings are kept and
// can be read with Warnings.
func (c *Context) Evaluate(source string) (value.Value, error) {
	return c.run(source, "", false)
}

// EvaluateFile is Evaluate for source read from file: errors name the file and
// relative paths resolve against its directory.
func (c *Context) EvaluateFile(source, file string) (value.Value, error) {
	return c.run(source, file, false)
}

// Run evaluates source like a script: visible values are printed to the output and
// warnings are reported after each top-level expression. file names the source in
// error messages and resolves relative paths; it may be empty.
func (c *Context) Run(source, file string) (value.Value, error) {
	return c.run(source, file, true)
}

func (c *Context) run(source, file string, print bool) (value.Value, error) {
	if c.destroyed.Load() {
		return nil, ErrDestroyed
	}
	pctx := &pipeline.PipelineContext{SourceCode: source, FilePath: file}
	p := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&evaluator.EvaluatorProcessor{Eval: c.Eval, Print: print},
	)
	pctx = p.Run(pctx)
	if len(pctx.Warnings) > 0 {
		c.mu.Lock()
		c.warnings = append(c.warnings, pctx.Warnings...)
		c.mu.Unlock()
	}
	if pctx.Internal != nil {
		pctx.Internal.With("context", c.ID)
		if file != "" {
			pctx.Internal.With("script", utils.ScriptName(file))
		}
		c.Logger.Error().Str("stack", pctx.Internal.Stack).Interface("details", pctx.Internal.Context).Msg(pctx.Internal.Message)
		return nil, pctx.Internal
	}
	if err := pctx.Err(); err != nil {
		return nil, err
	}
	if pctx.Result == nil {
		return value.Null, nil
	}
	return pctx.Result, nil
}

// Visible reports whether the last result should be printed.
func (c *Context) Visible() bool { return c.Eval.Visible() }

// Warnings returns the deferred warnings collected by Evaluate and clears them.
func (c *Context) Warnings() []diagnostics.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warnings
	c.warnings = nil
	return w
}

// AddCleanup registers fn to run when the context is destroyed. Hooks run in reverse
// registration order.
func (c *Context) AddCleanup(name string, fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, cleanupHook{name: name, fn: fn})
}

// Interrupt cancels blocking operations of the running evaluation, such as a channel
// receive, and makes the next evaluation step fail.
func (c *Context) Interrupt() { c.cancel() }

// Destroy stops and waits for children that were never joined, runs the cleanup hooks
// in LIFO order and marks the context unusable. Hook failures are logged and returned
// together. A running evaluation of this context is not interrupted, but its
// context.Context is cancelled once the hooks have run. Destroying twice is a no-op.
func (c *Context) Destroy() error {
	if !c.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	hooks := c.hooks
	c.hooks = nil
	kids := c.children
	c.children = map[string]*child{}
	c.mu.Unlock()

	for id, ch := range kids {
		ch.ctx.Interrupt()
		<-ch.done
		c.Logger.Debug().Str("child", id).Msg("unjoined child stopped")
	}

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := runHook(h); err != nil {
			c.Logger.Error().Err(err).Str("hook", h.name).Msg("cleanup hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	c.cancel()
	c.Logger.Debug().Int("hooks", len(hooks)).Msg("context destroyed")
	return errors.Join(errs...)
}

func runHook(h cleanupHook) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h.fn()
}

// Destroyed reports whether Destroy has been called.
func (c *Context) Destroyed() bool { return c.destroyed.Load() }

func (c *Context) newChild() *Context {
	out, errOut := c.Eval.Out, c.Eval.ErrOut
	return newContext(c, c.Opts, out, errOut, c.Logger)
}

// Spawn starts one child context per source on its own goroutine and returns their
// ids. The children share this context's channels and native routines.
func (c *Context) Spawn(sources []string) ([]string, error) {
	if c.destroyed.Load() {
		return nil, ErrDestroyed
	}
	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = c.start(c.newChild(), src)
	}
	return ids, nil
}

// SpawnWith is Spawn for a single source whose child sees copies of bindings in its
// global environment.
func (c *Context) SpawnWith(source string, bindings map[string]value.Value) (string, error) {
	if c.destroyed.Load() {
		return "", ErrDestroyed
	}
	kid := c.newChild()
	for name, v := range bindings {
		cp, err := transfer("binding '"+name+"'", v)
		if err == nil {
			err = kid.Eval.GlobalEnv.Bind(name, cp)
		}
		if err != nil {
			if derr := kid.Destroy(); derr != nil {
				kid.Logger.Error().Err(derr).Msg("destroying child context")
			}
			return "", err
		}
	}
	return c.start(kid, source), nil
}

// start registers kid and evaluates src in it on a new goroutine.
func (c *Context) start(kid *Context, src string) string {
	ch := &child{ctx: kid, done: make(chan struct{})}
	c.mu.Lock()
	c.children[kid.ID] = ch
	c.mu.Unlock()
	go func() {
		defer close(ch.done)
		defer func() {
			if err := kid.Destroy(); err != nil {
				kid.Logger.Error().Err(err).Msg("destroying child context")
			}
		}()
		ch.result, ch.err = kid.Evaluate(src)
	}()
	c.Logger.Debug().Str("child", kid.ID).Msg("context spawned")
	return kid.ID
}

// Join waits for the given children and returns copies of their values in order. A
// child that failed, or whose value cannot leave it, makes Join fail after all
// children have finished.
func (c *Context) Join(ids []string) ([]value.Value, error) {
	kids := make([]*child, len(ids))
	c.mu.Lock()
	for i, id := range ids {
		ch, ok := c.children[id]
		if !ok {
			c.mu.Unlock()
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "no spawned context with id '%s'", id)
		}
		kids[i] = ch
	}
	c.mu.Unlock()

	vals := make([]value.Value, len(ids))
	var first, err error
	for i, ch := range kids {
		select {
		case <-ch.done:
		case <-c.Eval.Context.Done():
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "execution cancelled: %v", c.Eval.Context.Err())
		}
		c.mu.Lock()
		delete(c.children, ids[i])
		c.mu.Unlock()
		if first != nil {
			continue
		}
		if ch.err != nil {
			first = childError(ids[i], ch.err)
			continue
		}
		if vals[i], err = transfer("result of context "+ids[i], ch.result); err != nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return vals, nil
}

// EvalIn evaluates source in a fresh child context on the calling goroutine and
// destroys the child afterwards.
func (c *Context) EvalIn(source string) (value.Value, error) {
	if c.destroyed.Load() {
		return nil, ErrDestroyed
	}
	ch := c.newChild()
	defer func() {
		if err := ch.Destroy(); err != nil {
			ch.Logger.Error().Err(err).Msg("destroying child context")
		}
	}()
	v, err := ch.Evaluate(source)
	if err != nil {
		return nil, childError(ch.ID, err)
	}
	return transfer("result of context "+ch.ID, v)
}

// transfer copies a value between contexts through the wire encoding, so nothing
// the source context owns is reachable afterwards. Closures, environments and
// language objects cannot be transferred.
func transfer(what string, v value.Value) (value.Value, error) {
	data, err := serialize.Marshal(v)
	if err != nil {
		var de *diagnostics.Error
		if errors.As(err, &de) {
			return nil, diagnostics.Errorf(de.Code, "%s cannot be transferred: %s", what, de.Message)
		}
		return nil, err
	}
	return serialize.Unmarshal(data)
}

// childError reports a child's language error as an error of the calling context;
// internal errors pass through.
func childError(id string, err error) error {
	var de *diagnostics.Error
	if errors.As(err, &de) {
		return diagnostics.Errorf(diagnostics.ErrR001, "error in context %s: %s", id, de.Message)
	}
	return err
}

var _ evaluator.Host = (*Context)(nil)

// lockedWriter serializes writes from contexts running on different goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
