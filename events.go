package blogdesk

import (
	"context"
	"sync"
)

// ChangeType enumerates post change events.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent reports a successful post mutation to interested subscribers.
type ChangeEvent struct {
	Type         ChangeType `json:"type"`
	Slug         string     `json:"slug"`
	PreviousSlug string     `json:"previousSlug,omitempty"`
	Title        string     `json:"title,omitempty"`
}

// Broadcaster fans change events out to subscribers. Slow subscribers miss events rather than
// blocking the publisher.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan ChangeEvent]struct{}
	buffer int
}

// NewBroadcaster creates a Broadcaster whose subscriber channels hold up to buffer pending events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[chan ChangeEvent]struct{}),
		buffer: buffer,
	}
}

// Subscribe delivers events until the context is cancelled, then closes the channel.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan ChangeEvent {
	ch := make(chan ChangeEvent, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish sends the event to every current subscriber.
func (b *Broadcaster) Publish(event ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
