// Package ffi is the boundary to native routines. Values cross it tagged with the
// stable SEXPTYPE numbers native code expects, and only kinds with a tag may cross.
package ffi

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// Tag is a SEXPTYPE number.
type Tag int

const (
	NILSXP  Tag = 0
	SYMSXP  Tag = 1
	LISTSXP Tag = 2
	CLOSXP  Tag = 3
	ENVSXP  Tag = 4
	LANGSXP Tag = 6
	LGLSXP  Tag = 10
	INTSXP  Tag = 13
	REALSXP Tag = 14
	CPLXSXP Tag = 15
	STRSXP  Tag = 16
	VECSXP  Tag = 19
	EXPRSXP Tag = 20
	RAWSXP  Tag = 24
)

var kindTags = map[value.Kind]Tag{
	value.KindNull:        NILSXP,
	value.KindSymbol:      SYMSXP,
	value.KindPairlist:    LISTSXP,
	value.KindClosure:     CLOSXP,
	value.KindEnvironment: ENVSXP,
	value.KindLanguage:    LANGSXP,
	value.KindLogical:     LGLSXP,
	value.KindInteger:     INTSXP,
	value.KindDouble:      REALSXP,
	value.KindComplex:     CPLXSXP,
	value.KindCharacter:   STRSXP,
	value.KindList:        VECSXP,
	value.KindExpression:  EXPRSXP,
	value.KindRaw:         RAWSXP,
}

// TagOf returns the SEXPTYPE of v. Kinds without one (promises, builtins, missing
// arguments, "...") report false and never cross the boundary.
func TagOf(v value.Value) (Tag, bool) {
	if v == nil {
		return NILSXP, true
	}
	t, ok := kindTags[v.Kind()]
	return t, ok
}

// Routine is a native entry point. Arguments and result are owned by the caller; a
// routine must not retain them.
type Routine func(args []value.Value) (value.Value, error)

// Variadic marks a routine that accepts any number of arguments.
const Variadic = -1

type routine struct {
	arity int
	fn    Routine
}

// Registry is the load table of native routines. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	routines map[string]routine
}

func NewRegistry() *Registry {
	return &Registry{routines: map[string]routine{}}
}

// Register adds a routine under name. Registering a name twice is an error.
func (r *Registry) Register(name string, arity int, fn Routine) error {
	if fn == nil {
		return fmt.Errorf("ffi: nil routine %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.routines[name]; dup {
		return fmt.Errorf("ffi: routine %q already registered", name)
	}
	r.routines[name] = routine{arity: arity, fn: fn}
	return nil
}

// Names lists the registered routines in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routines))
	for n := range r.routines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call invokes a routine after checking its arity and the tags of every argument, and
// checks the tag of the result on the way back. A panicking routine is reported as an
// internal error.
func (r *Registry) Call(name string, args []value.Value) (result value.Value, err error) {
	r.mu.RLock()
	rt, ok := r.routines[name]
	r.mu.RUnlock()
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "C symbol name \"%s\" not in load table", name)
	}
	if rt.arity != Variadic && rt.arity != len(args) {
		return nil, diagnostics.Errorf(diagnostics.ErrR009, "Incorrect number of arguments (%d), expecting %d for '%s'", len(args), rt.arity, name)
	}
	for i, a := range args {
		if _, ok := TagOf(a); !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "argument %d of '%s' has type '%s' which cannot be passed to native code", i+1, name, a.Kind())
		}
	}
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = diagnostics.FromPanic(p, debug.Stack()).With("routine", name)
		}
	}()
	result, err = rt.fn(args)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return value.Null, nil
	}
	if _, ok := TagOf(result); !ok {
		return nil, diagnostics.Internalf("native routine '%s' returned a value of type '%s'", name, result.Kind())
	}
	return result, nil
}
