package events

import (
	"context"
	"sync"

	"github.com/desertthunder/spotiq/internal/shared"
)

const defaultBuffer = 64

type subscriber struct {
	ch   chan Event
	done chan struct{}
}

// MemoryBus is an in-process [Bus].
//
// Publish blocks until every subscriber of the channel has room, which keeps per-channel ordering without dropping
// events. A slow subscriber therefore slows publishers down.
type MemoryBus struct {
	mu     sync.RWMutex
	buffer int
	subs   map[Channel]map[*subscriber]struct{}
	closed bool
	quit   chan struct{}
	once   sync.Once
}

// NewMemoryBus creates a bus whose subscriptions buffer up to buffer events. Zero or negative uses a default.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBus{
		buffer: buffer,
		subs:   make(map[Channel]map[*subscriber]struct{}),
		quit:   make(chan struct{}),
	}
}

// Publish delivers ev to every current subscriber of ch.
func (b *MemoryBus) Publish(ctx context.Context, ch Channel, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return shared.ErrBusClosed
	}

	for sub := range b.subs[ch] {
		select {
		case sub.ch <- ev:
		case <-sub.done:
		case <-b.quit:
			return shared.ErrBusClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a new subscriber on ch.
//
// The returned function unsubscribes and closes the channel; it is safe to call more than once.
func (b *MemoryBus) Subscribe(ch Channel) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if b.subs[ch] == nil {
		b.subs[ch] = make(map[*subscriber]struct{})
	}
	b.subs[ch][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			// done releases a Publish blocked on this subscriber before the write lock is taken.
			close(sub.done)
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch][sub]; ok {
				delete(b.subs[ch], sub)
				close(sub.ch)
			}
		})
	}
}

// Close closes every subscription. Further publishes return [shared.ErrBusClosed].
func (b *MemoryBus) Close() error {
	b.once.Do(func() { close(b.quit) })

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			close(sub.ch)
		}
	}
	b.subs = nil
	return nil
}

// Subscribers returns the number of live subscriptions on ch.
func (b *MemoryBus) Subscribers(ch Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[ch])
}
