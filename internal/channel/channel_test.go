package channel

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/rcore/internal/value"
)

func TestSendReceiveCopies(t *testing.T) {
	r := NewRegistry(4)
	ch, err := r.Create("jobs")
	require.NoError(t, err)

	sent := value.NewDoubles(1, 2, 3)
	require.NoError(t, r.Send(ch.ID, sent))
	got, err := r.Receive(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.(*value.DoubleVector).Data())
	assert.NotSame(t, sent, got)
}

func TestKeysAndIDs(t *testing.T) {
	r := NewRegistry(0)
	assert.Equal(t, 64, r.Capacity())
	a, err := r.Create("a")
	require.NoError(t, err)
	_, err = r.Create("a")
	require.Error(t, err)

	found, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, found)
	_, err = r.Get("b")
	assert.Error(t, err)

	_, err = r.Lookup(99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid channel id 99")
}

func TestFullChannel(t *testing.T) {
	r := NewRegistry(2)
	ch, err := r.Create("q")
	require.NoError(t, err)
	require.NoError(t, r.Send(ch.ID, value.Int(1)))
	require.NoError(t, r.Send(ch.ID, value.Int(2)))
	err = r.Send(ch.ID, value.Int(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("channel %d is full", ch.ID))
	assert.Equal(t, 2, ch.Len())
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	r := NewRegistry(1)
	ch, err := r.Create("q")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var got value.Value
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, _ = r.Receive(context.Background(), ch.ID)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Send(ch.ID, value.Str("hi")))
	wg.Wait()
	require.NotNil(t, got)
	assert.Equal(t, "hi", got.(*value.CharacterVector).At(0))
}

func TestReceiveCancelled(t *testing.T) {
	r := NewRegistry(1)
	ch, err := r.Create("q")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Receive(ctx, ch.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	r := NewRegistry(1)
	ch, err := r.Create("q")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Receive(context.Background(), ch.ID)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Close(ch.ID))
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver not released by close")
	}

	assert.Error(t, r.Send(ch.ID, value.Int(1)))
	_, err = r.Get("q")
	assert.Error(t, err)
	_, err = r.Create("q")
	assert.NoError(t, err, "key is free again after close")
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry(1)
	for _, k := range []string{"a", "b", "c"} {
		_, err := r.Create(k)
		require.NoError(t, err)
	}
	require.NoError(t, r.CloseAll())
	assert.Equal(t, 0, r.Len())
}

func TestSendRejectsFunctions(t *testing.T) {
	r := NewRegistry(1)
	ch, err := r.Create("q")
	require.NoError(t, err)
	assert.Error(t, r.Send(ch.ID, &value.Closure{}))
	assert.Equal(t, 0, ch.Len())
}
