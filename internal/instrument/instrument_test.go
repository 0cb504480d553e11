package instrument

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitInOrder(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	var seen []string
	bus.Register(ListenerFunc(func(ev Event) error {
		seen = append(seen, "a:"+ev.Function)
		return nil
	}))
	bus.Register(ListenerFunc(func(ev Event) error {
		seen = append(seen, "b:"+ev.Function)
		return nil
	}))
	bus.Emit(Event{Kind: FunctionEntry, Function: "f"})
	assert.Equal(t, []string{"a:f", "b:f"}, seen)
}

func TestListenerFailuresAreIsolated(t *testing.T) {
	var logs bytes.Buffer
	bus := NewBus(zerolog.New(&logs))
	bus.Register(ListenerFunc(func(Event) error { panic("boom") }))
	bus.Register(ListenerFunc(func(Event) error { return errors.New("broken") }))
	c := &Counter{}
	bus.Register(c)

	require.NotPanics(t, func() {
		bus.Emit(Event{Kind: FunctionEntry, Function: "g"})
	})
	assert.Equal(t, 1, c.Count("g"))
	assert.Contains(t, logs.String(), "instrumentation listener panicked")
	assert.Contains(t, logs.String(), "broken")
}

func TestUnregister(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	c := &Counter{}
	remove := bus.Register(c)
	assert.True(t, bus.Enabled())
	bus.Emit(Event{Kind: FunctionEntry, Function: "f"})
	remove()
	assert.False(t, bus.Enabled())
	bus.Emit(Event{Kind: FunctionEntry, Function: "f"})
	assert.Equal(t, 1, c.Count("f"))
}

func TestNilBus(t *testing.T) {
	var bus *Bus
	assert.False(t, bus.Enabled())
	assert.NotPanics(t, func() { bus.Emit(Event{}) })
}

func TestTracer(t *testing.T) {
	var out strings.Builder
	bus := NewBus(zerolog.Nop())
	bus.Register(&Tracer{Out: &out})
	bus.Emit(Event{Kind: Statement, Line: 2, Column: 1, Source: "x <- 1"})
	assert.Equal(t, "statement <top> 2:1 x <- 1\n", out.String())
}
