// Package channel implements bounded message queues between evaluation contexts.
// Values are serialized on send and decoded on receive, so sender and receiver never
// share storage.
package channel

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/value"
)

// Channel is one bounded queue.
type Channel struct {
	ID  int
	Key string

	mu     sync.Mutex
	closed bool
	queue  chan []byte
}

// Len is the number of queued messages.
func (c *Channel) Len() int { return len(c.queue) }

func (c *Channel) send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return diagnostics.Errorf(diagnostics.ErrR001, "channel %d is closed", c.ID)
	}
	select {
	case c.queue <- msg:
		return nil
	default:
		return diagnostics.Errorf(diagnostics.ErrR001, "channel %d is full", c.ID)
	}
}

func (c *Channel) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

// Registry maps channel ids and creation keys to channels. One registry is shared by
// a root context and all contexts spawned from it.
type Registry struct {
	byID     cmap.ConcurrentMap[string, *Channel]
	byKey    cmap.ConcurrentMap[string, *Channel]
	nextID   atomic.Int64
	capacity int
}

// NewRegistry creates a registry whose channels hold up to capacity messages; zero
// means the default capacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = config.DefaultChannelCapacity
	}
	return &Registry{
		byID:     cmap.New[*Channel](),
		byKey:    cmap.New[*Channel](),
		capacity: capacity,
	}
}

func (r *Registry) Capacity() int { return r.capacity }

// Create makes a new channel registered under key.
func (r *Registry) Create(key string) (*Channel, error) {
	id := int(r.nextID.Add(1))
	ch := &Channel{ID: id, Key: key, queue: make(chan []byte, r.capacity)}
	if !r.byKey.SetIfAbsent(key, ch) {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "channel with key '%s' already exists", key)
	}
	r.byID.Set(strconv.Itoa(id), ch)
	return ch, nil
}

// Get finds the channel created under key.
func (r *Registry) Get(key string) (*Channel, error) {
	ch, ok := r.byKey.Get(key)
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "channel with key '%s' does not exist", key)
	}
	return ch, nil
}

// Lookup finds a channel by id.
func (r *Registry) Lookup(id int) (*Channel, error) {
	ch, ok := r.byID.Get(strconv.Itoa(id))
	if !ok {
		return nil, diagnostics.Errorf(diagnostics.ErrR001, "invalid channel id %d", id)
	}
	return ch, nil
}

// Send enqueues a copy of v without blocking.
func (r *Registry) Send(id int, v value.Value) error {
	ch, err := r.Lookup(id)
	if err != nil {
		return err
	}
	msg, err := serialize.Marshal(v)
	if err != nil {
		return err
	}
	return ch.send(msg)
}

// Receive blocks until a message arrives, the channel is closed and drained, or ctx is
// done.
func (r *Registry) Receive(ctx context.Context, id int) (value.Value, error) {
	ch, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case msg, ok := <-ch.queue:
		if !ok {
			return nil, diagnostics.Errorf(diagnostics.ErrR001, "channel %d is closed", id)
		}
		return serialize.Unmarshal(msg)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes a channel and removes it from the registry. Messages already queued
// can no longer be received through the registry.
func (r *Registry) Close(id int) error {
	ch, err := r.Lookup(id)
	if err != nil {
		return err
	}
	ch.close()
	r.byID.Remove(strconv.Itoa(id))
	r.byKey.RemoveCb(ch.Key, func(_ string, v *Channel, exists bool) bool {
		return exists && v == ch
	})
	return nil
}

// CloseAll closes every channel; it is registered as a context cleanup hook.
func (r *Registry) CloseAll() error {
	for _, ch := range r.byID.Items() {
		if err := r.Close(ch.ID); err != nil {
			return err
		}
	}
	return nil
}

// Len is the number of open channels.
func (r *Registry) Len() int { return r.byID.Count() }
