package evaluator

import (
	"github.com/funvibe/rcore/internal/coerce"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

// ContextBuiltins returns the functions reaching child contexts, channels and
// archives.
func ContextBuiltins() map[string]*Builtin {
	return map[string]*Builtin{
		"context.spawn":   {Fn: builtinContextSpawn},
		"context.join":    {Fn: builtinContextJoin},
		"context.eval":    {Fn: builtinContextEval},
		"channel.create":  {Fn: builtinChannelCreate},
		"channel.get":     {Fn: builtinChannelGet},
		"channel.send":    {Fn: builtinChannelSend, Invisible: true},
		"channel.receive": {Fn: builtinChannelReceive},
		"channel.close":   {Fn: builtinChannelClose, Invisible: true},
		"archive.save":    {Fn: builtinArchiveSave, Invisible: true},
		"archive.load":    {Fn: builtinArchiveLoad},
		"archive.list":    {Fn: builtinArchiveList},
		"archive.delete":  {Fn: builtinArchiveDelete, Invisible: true},
	}
}

// sourcesOf turns the exprs argument into program texts: strings are taken as they
// are, quoted calls and expression vectors are deparsed.
func sourcesOf(v value.Value) ([]string, error) {
	switch x := v.(type) {
	case *value.CharacterVector:
		if containsNA(x.Data()) {
			return nil, diagnostics.Errorf(diagnostics.ErrR007, "expressions must not be NA")
		}
		return x.Data(), nil
	case *value.Language:
		return []string{x.Node.String()}, nil
	case *value.Symbol:
		return []string{x.Name}, nil
	case *value.ExpressionVector:
		out := make([]string, x.Len())
		for i := range out {
			src, err := sourcesOf(x.At(i))
			if err != nil {
				return nil, err
			}
			if len(src) != 1 {
				return nil, diagnostics.Errorf(diagnostics.ErrR007, "invalid expression")
			}
			out[i] = src[0]
		}
		return out, nil
	case *value.List:
		var out []string
		for i := 0; i < x.Len(); i++ {
			src, err := sourcesOf(x.At(i))
			if err != nil {
				return nil, err
			}
			out = append(out, src...)
		}
		return out, nil
	}
	if vec, ok := v.(value.Vector); ok && vec.Kind().IsAtomic() && vec.Len() == 1 {
		return []string{deparseValue(v)}, nil
	}
	return nil, diagnostics.Errorf(diagnostics.ErrR007, "'exprs' must be character or expression, not '%s'", v.Kind())
}

func builtinContextSpawn(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "exprs")
	if err != nil {
		return nil, err
	}
	srcs, err := sourcesOf(x)
	if err != nil {
		return nil, err
	}
	h, err := e.host()
	if err != nil {
		return nil, err
	}
	ids, err := h.Spawn(srcs)
	if err != nil {
		return nil, err
	}
	return value.NewStrings(ids...), nil
}

func builtinContextJoin(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "ids")
	if err != nil {
		return nil, err
	}
	ids, err := coerce.AsStrings(x)
	if err != nil {
		return nil, err
	}
	h, err := e.host()
	if err != nil {
		return nil, err
	}
	vals, err := h.Join(ids)
	if err != nil {
		return nil, err
	}
	return namedList(ids, vals), nil
}

// builtinContextEval runs each source in its own child context and waits; one source
// gives its value, several give a list.
func builtinContextEval(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "exprs")
	if err != nil {
		return nil, err
	}
	srcs, err := sourcesOf(x)
	if err != nil {
		return nil, err
	}
	h, err := e.host()
	if err != nil {
		return nil, err
	}
	vals := make([]value.Value, len(srcs))
	for i, src := range srcs {
		if vals[i], err = h.EvalIn(src); err != nil {
			return nil, err
		}
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	return value.NewList(vals), nil
}

func keyArg(args *Args) (string, error) {
	x, err := firstArg(args, "key")
	if err != nil {
		return "", err
	}
	return coerce.AsStringScalar(x, "key")
}

func channelID(v value.Value) (int, error) {
	return coerce.AsIntegerScalar(v, "id", nil)
}

func builtinChannelCreate(e *Evaluator, args *Args) (value.Value, error) {
	key, err := keyArg(args)
	if err != nil {
		return nil, err
	}
	ch, err := e.Channels.Create(key)
	if err != nil {
		return nil, err
	}
	e.Logger.Debug().Int("channel", ch.ID).Str("key", key).Msg("channel created")
	return value.Int(ch.ID), nil
}

func builtinChannelGet(e *Evaluator, args *Args) (value.Value, error) {
	key, err := keyArg(args)
	if err != nil {
		return nil, err
	}
	ch, err := e.Channels.Get(key)
	if err != nil {
		return nil, err
	}
	return value.Int(ch.ID), nil
}

func builtinChannelSend(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("id", "x")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[1], "x"); err != nil {
		return nil, err
	}
	id, err := channelID(argOr(m[0], value.Null))
	if err != nil {
		return nil, err
	}
	if err := e.Channels.Send(id, m[1]); err != nil {
		if _, ok := err.(*diagnostics.Error); ok {
			return nil, err
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR007, "%v", err)
	}
	return value.Null, nil
}

func builtinChannelReceive(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "id")
	if err != nil {
		return nil, err
	}
	id, err := channelID(x)
	if err != nil {
		return nil, err
	}
	v, err := e.Channels.Receive(e.Context, id)
	if err != nil {
		if _, ok := err.(*diagnostics.Error); ok {
			return nil, err
		}
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "receiving from channel %d: %v", id, err)
	}
	return v, nil
}

func builtinChannelClose(e *Evaluator, args *Args) (value.Value, error) {
	x, err := firstArg(args, "id")
	if err != nil {
		return nil, err
	}
	id, err := channelID(x)
	if err != nil {
		return nil, err
	}
	return value.Null, e.Channels.Close(id)
}

// archiveError keeps language errors and wraps storage failures.
func archiveError(err error) error {
	if _, ok := err.(*diagnostics.Error); ok {
		return err
	}
	return diagnostics.Errorf(diagnostics.ErrR001, "%v", err)
}

func (e *Evaluator) archiveFile(v value.Value) (string, error) {
	file, err := coerce.AsStringScalar(argOr(v, value.Null), "file")
	if err != nil {
		return "", err
	}
	return e.resolvePath(file), nil
}

func builtinArchiveSave(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("x", "name", "file")
	if err != nil {
		return nil, err
	}
	if err := requireArg(m[0], "x"); err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[1], value.Null), "name")
	if err != nil {
		return nil, err
	}
	path, err := e.archiveFile(m[2])
	if err != nil {
		return nil, err
	}
	store, err := e.Archives.Get(e.Context, path)
	if err != nil {
		return nil, archiveError(err)
	}
	if err := store.Save(e.Context, name, m[0]); err != nil {
		return nil, archiveError(err)
	}
	return value.Null, nil
}

func builtinArchiveLoad(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("name", "file")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), "name")
	if err != nil {
		return nil, err
	}
	path, err := e.archiveFile(m[1])
	if err != nil {
		return nil, err
	}
	store, err := e.Archives.Get(e.Context, path)
	if err != nil {
		return nil, archiveError(err)
	}
	v, err := store.Load(e.Context, name)
	if err != nil {
		return nil, archiveError(err)
	}
	return v, nil
}

func builtinArchiveList(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("file")
	if err != nil {
		return nil, err
	}
	path, err := e.archiveFile(m[0])
	if err != nil {
		return nil, err
	}
	store, err := e.Archives.Get(e.Context, path)
	if err != nil {
		return nil, archiveError(err)
	}
	names, err := store.List(e.Context)
	if err != nil {
		return nil, archiveError(err)
	}
	return value.NewStrings(names...), nil
}

func builtinArchiveDelete(e *Evaluator, args *Args) (value.Value, error) {
	m, _, err := args.Match("name", "file")
	if err != nil {
		return nil, err
	}
	name, err := coerce.AsStringScalar(argOr(m[0], value.Null), "name")
	if err != nil {
		return nil, err
	}
	path, err := e.archiveFile(m[1])
	if err != nil {
		return nil, err
	}
	store, err := e.Archives.Get(e.Context, path)
	if err != nil {
		return nil, archiveError(err)
	}
	if err := store.Delete(e.Context, name); err != nil {
		return nil, archiveError(err)
	}
	return value.Null, nil
}
