package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/value"
)

func TestSaveLoadList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer s.Close()

	v := value.NewIntegers(1, 2, value.NAInteger)
	require.NoError(t, value.SetAttr(v, value.AttrNames, value.NewStrings("a", "b", "c")))
	require.NoError(t, s.Save(ctx, "x", v))
	require.NoError(t, s.Save(ctx, "b", value.Str("hello")))

	got, err := s.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, value.NAInteger}, got.(*value.IntegerVector).Data())
	assert.Equal(t, []string{"a", "b", "c"}, value.Names(got).Data())

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "x"}, names)

	require.NoError(t, s.Save(ctx, "x", value.Dbl(2)))
	got, err = s.Load(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, got.(*value.DoubleVector).Data())

	require.NoError(t, s.Delete(ctx, "b"))
	names, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Load(ctx, "nope")
	assert.ErrorIs(t, err, &diagnostics.Error{Code: diagnostics.ErrR008})
}

func TestSaveRejectsFunctions(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, s.Save(ctx, "f", &value.Closure{}))
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "k", value.NewLogicals(value.True)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []value.Logical{value.True}, got.(*value.LogicalVector).Data())
}

func TestPool(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := NewPool(zerolog.Nop())
	a, err := p.Get(ctx, filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	again, err := p.Get(ctx, filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.Same(t, a, again)
	_, err = p.Get(ctx, filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	require.NoError(t, p.CloseAll())
	assert.Equal(t, 0, p.Len())
}
