// Package instrument delivers evaluation events to observers. Listeners run
// synchronously on the evaluating goroutine; a listener that fails or panics is logged
// and otherwise ignored.
package instrument

import (
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

type EventKind uint8

const (
	// FunctionEntry fires after a closure's arguments are matched, before its body runs.
	FunctionEntry EventKind = iota
	// Statement fires before each top-level expression and each expression of a block.
	Statement
)

func (k EventKind) String() string {
	if k == FunctionEntry {
		return "function-entry"
	}
	return "statement"
}

type Event struct {
	Kind EventKind
	// Function is the name of the closure being entered, or the innermost active
	// closure for statements ("" at top level).
	Function string
	File     string
	Line     int
	Column   int
	// Source is the deparsed statement or call.
	Source string
}

type Listener interface {
	OnEvent(ev Event) error
}

// ListenerFunc adapts a plain function.
type ListenerFunc func(ev Event) error

func (f ListenerFunc) OnEvent(ev Event) error { return f(ev) }

type entry struct {
	id int
	l  Listener
}

// Bus fans events out to registered listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners []entry
	nextID    int
	logger    zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Register adds a listener and returns a function that removes it again.
func (b *Bus) Register(l Listener) (unregister func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, entry{id: id, l: l})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.listeners {
			if e.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Enabled reports whether any listener is registered, so callers can skip building
// events nobody reads.
func (b *Bus) Enabled() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners) > 0
}

// Emit delivers ev to every listener in registration order.
func (b *Bus) Emit(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	ls := make([]entry, len(b.listeners))
	copy(ls, b.listeners)
	b.mu.RUnlock()
	for _, e := range ls {
		b.deliver(e.l, ev)
	}
}

func (b *Bus) deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", ev.Kind.String()).
				Str("function", ev.Function).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("instrumentation listener panicked")
		}
	}()
	if err := l.OnEvent(ev); err != nil {
		b.logger.Error().Err(err).Str("event", ev.Kind.String()).Msg("instrumentation listener failed")
	}
}

// Tracer writes one line per event.
type Tracer struct {
	Out io.Writer
}

func (t *Tracer) OnEvent(ev Event) error {
	fn := ev.Function
	if fn == "" {
		fn = "<top>"
	}
	_, err := fmt.Fprintf(t.Out, "%s %s %d:%d %s\n", ev.Kind, fn, ev.Line, ev.Column, ev.Source)
	return err
}

// Counter tallies function entries by name.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *Counter) OnEvent(ev Event) error {
	if ev.Kind != FunctionEntry {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[ev.Function]++
	return nil
}

func (c *Counter) Count(function string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[function]
}
