package value

import (
	"regexp"
	"sort"
	"strings"

	"github.com/funvibe/rcore/internal/diagnostics"
)

type binding struct {
	value  Value
	locked bool
}

// Environment is a frame of bindings plus a parent pointer. It is owned by a single
// evaluation context and is not safe for concurrent use.
type Environment struct {
	name   string
	frame  map[string]*binding
	parent *Environment
	locked bool
	empty  bool
}

// NewEmptyEnvironment creates the sentinel that terminates every parent chain.
func NewEmptyEnvironment() *Environment {
	return &Environment{name: "R_EmptyEnv", frame: map[string]*binding{}, empty: true}
}

func NewEnvironment(parent *Environment) *Environment {
	return &Environment{frame: make(map[string]*binding), parent: parent}
}

func NewNamedEnvironment(name string, parent *Environment) *Environment {
	env := NewEnvironment(parent)
	env.name = name
	return env
}

func (e *Environment) Kind() Kind { return KindEnvironment }

func (e *Environment) Name() string { return e.name }

func (e *Environment) SetName(name string) { e.name = name }

func (e *Environment) Parent() *Environment { return e.parent }

func (e *Environment) SetParent(p *Environment) { e.parent = p }

func (e *Environment) IsEmpty() bool { return e.empty }

func (e *Environment) IsLocked() bool { return e.locked }

func (e *Environment) Len() int { return len(e.frame) }

// Get returns the raw binding in this frame only; promises are not forced.
func (e *Environment) Get(name string) (Value, bool) {
	b, ok := e.frame[name]
	if !ok {
		return nil, false
	}
	return b.value, true
}

func (e *Environment) Has(name string) bool {
	_, ok := e.frame[name]
	return ok
}

// Lookup searches this frame and, when inherits is set, the parent chain. It returns
// the raw binding and the environment holding it.
func (e *Environment) Lookup(name string, inherits bool) (Value, *Environment, bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.frame[name]; ok {
			return b.value, env, true
		}
		if !inherits {
			break
		}
	}
	return nil, nil, false
}

// LookupFunction walks the chain for name, skipping bindings whose value is not a
// function. Promise bindings are forced with eval to decide.
func (e *Environment) LookupFunction(name string, eval Evaluator) (Value, error) {
	for env := e; env != nil; env = env.parent {
		b, ok := env.frame[name]
		if !ok {
			continue
		}
		v := b.value
		if p, ok := v.(*Promise); ok {
			forced, err := p.Force(eval)
			if err != nil {
				return nil, err
			}
			v = forced
		}
		if k := v.Kind(); k == KindClosure || k == KindBuiltin {
			return v, nil
		}
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR002, "could not find function \"%s\"", name)
}

// Bind creates or replaces a binding in this frame.
func (e *Environment) Bind(name string, v Value) error {
	if e.empty {
		return diagnostics.Errorf(diagnostics.ErrR003, "cannot assign values in the empty environment")
	}
	b, ok := e.frame[name]
	if ok {
		if b.locked {
			return diagnostics.Errorf(diagnostics.ErrR004, "cannot change value of locked binding for '%s'", name)
		}
		if b.value != v {
			MarkBound(v)
		}
		b.value = v
		return nil
	}
	if e.locked {
		return diagnostics.Errorf(diagnostics.ErrR003, "cannot add bindings to a locked environment")
	}
	MarkBound(v)
	e.frame[name] = &binding{value: v}
	return nil
}

// Unbind removes a binding from this frame.
func (e *Environment) Unbind(name string) error {
	b, ok := e.frame[name]
	if !ok {
		return diagnostics.Errorf(diagnostics.ErrR008, "object '%s' not found", name)
	}
	if e.locked {
		return diagnostics.Errorf(diagnostics.ErrR003, "cannot remove bindings from a locked environment")
	}
	if b.locked {
		return diagnostics.Errorf(diagnostics.ErrR004, "cannot change value of locked binding for '%s'", name)
	}
	delete(e.frame, name)
	return nil
}

// AssignSuper implements "<<-": the first binding found in a proper ancestor is
// replaced; if none exists the value is bound in global.
func (e *Environment) AssignSuper(name string, v Value, global *Environment) error {
	for env := e.parent; env != nil && !env.empty; env = env.parent {
		if env.Has(name) {
			return env.Bind(name, v)
		}
	}
	return global.Bind(name, v)
}

// ListBindings enumerates the names of this frame. Names starting with "." are left
// out unless allNames is set.
func (e *Environment) ListBindings(allNames bool, pattern *regexp.Regexp, sorted bool) []string {
	names := make([]string, 0, len(e.frame))
	for name := range e.frame {
		if !allNames && strings.HasPrefix(name, ".") {
			continue
		}
		if pattern != nil && !pattern.MatchString(name) {
			continue
		}
		names = append(names, name)
	}
	if sorted {
		sort.Strings(names)
	}
	return names
}

// Lock forbids new bindings; with bindings set every existing binding is locked too.
func (e *Environment) Lock(bindings bool) {
	e.locked = true
	if bindings {
		for _, b := range e.frame {
			b.locked = true
		}
	}
}

func (e *Environment) LockBinding(name string) error {
	b, ok := e.frame[name]
	if !ok {
		return diagnostics.Errorf(diagnostics.ErrR008, "no binding for \"%s\"", name)
	}
	b.locked = true
	return nil
}

func (e *Environment) UnlockBinding(name string) error {
	b, ok := e.frame[name]
	if !ok {
		return diagnostics.Errorf(diagnostics.ErrR008, "no binding for \"%s\"", name)
	}
	b.locked = false
	return nil
}

func (e *Environment) BindingIsLocked(name string) (bool, error) {
	b, ok := e.frame[name]
	if !ok {
		return false, diagnostics.Errorf(diagnostics.ErrR008, "no binding for \"%s\"", name)
	}
	return b.locked, nil
}

// PrintName is the label used when an environment is printed.
func (e *Environment) PrintName() string {
	if e.name != "" {
		return e.name
	}
	return "anonymous"
}
