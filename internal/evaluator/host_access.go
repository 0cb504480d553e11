package evaluator

import (
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// Host is implemented by the session owning an evaluator. It gives programs access to
// sibling evaluation contexts.
type Host interface {
	// Spawn starts one child context per source text and returns their ids without
	// waiting for them.
	Spawn(sources []string) ([]string, error)
	// Join waits for the given children and returns the value of each.
	Join(ids []string) ([]value.Value, error)
	// EvalIn runs source in a fresh child context and waits for its value.
	EvalIn(source string) (value.Value, error)
	// SpawnWith starts one child context with copies of bindings defined in its
	// global environment before source runs. The child is joined like any other.
	SpawnWith(source string, bindings map[string]value.Value) (string, error)
}

func (e *Evaluator) host() (Host, error) {
	if e.Host == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "no evaluation context is available")
	}
	return e.Host, nil
}
