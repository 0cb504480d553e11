package evaluator

import (
	"maps"
	"sort"
	"sync"

	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/ffi"
	"github.com/funvibe/rcore/internal/value"
)

// NativeRoutine is a routine offered to every evaluator created after registration.
type NativeRoutine struct {
	Arity int
	Fn    ffi.Routine
}

// nativeRegistry holds the routines registered by embedding programs, by package.
//
// Registration usually happens at startup; reads happen whenever an evaluator is
// created.
var nativeRegistry = struct {
	mu       sync.RWMutex
	registry map[string]map[string]NativeRoutine
}{
	registry: make(map[string]map[string]NativeRoutine),
}

// RegisterExtBuiltins registers native routines under a package name. Every evaluator
// created afterwards can call them with .Call("name", ...). It is safe to call from
// init functions.
func RegisterExtBuiltins(pkg string, routines map[string]NativeRoutine) {
	nativeRegistry.mu.Lock()
	defer nativeRegistry.mu.Unlock()
	nativeRegistry.registry[pkg] = maps.Clone(routines)
}

// GetExtBuiltins returns a copy of the routines registered for pkg, or nil.
func GetExtBuiltins(pkg string) map[string]NativeRoutine {
	nativeRegistry.mu.RLock()
	defer nativeRegistry.mu.RUnlock()
	return maps.Clone(nativeRegistry.registry[pkg])
}

// GetAllExtModules returns the registered package names in sorted order.
func GetAllExtModules() []string {
	nativeRegistry.mu.RLock()
	defer nativeRegistry.mu.RUnlock()
	names := make([]string, 0, len(nativeRegistry.registry))
	for name := range nativeRegistry.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearExtBuiltins removes every registered package.
// Used for testing.
func ClearExtBuiltins() {
	nativeRegistry.mu.Lock()
	defer nativeRegistry.mu.Unlock()
	nativeRegistry.registry = make(map[string]map[string]NativeRoutine)
}

// loadNativeRoutines copies the registered routines into r. A name registered by two
// packages keeps the first one in package order and is logged.
func (e *Evaluator) loadNativeRoutines(r *ffi.Registry) {
	for _, pkg := range GetAllExtModules() {
		routines := GetExtBuiltins(pkg)
		names := make([]string, 0, len(routines))
		for name := range routines {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rt := routines[name]
			if err := r.Register(name, rt.Arity, rt.Fn); err != nil {
				e.Logger.Warn().Err(err).Str("package", pkg).Msg("native routine not loaded")
			}
		}
	}
}

// ExtBuiltins returns the native call interface.
func ExtBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		".Call":     {Fn: builtinDotCall},
		"is.loaded": {Fn: builtinIsLoaded},
	}
}

func builtinDotCall(e *Evaluator, args *Args) (value.Value, error) {
	m, rest, err := args.Match(".NAME", "...")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), ".NAME")
	if err != nil {
		return nil, err
	}
	if e.FFI == nil {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "C symbol name \"%s\" not in load table", name)
	}
	vals := make([]value.Value, len(rest))
	for i, a := range rest {
		vals[i] = a.Value
		value.MarkShared(a.Value)
	}
	return e.FFI.Call(name, vals)
}

func builtinIsLoaded(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "symbol")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(x, "symbol")
	if err != nil {
		return nil, err
	}
	if e.FFI == nil {
		return value.Bool(false), nil
	}
	for _, n := range e.FFI.Names() {
		if n == name {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}
