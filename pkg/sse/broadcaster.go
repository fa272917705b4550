// Package sse fans out newly published news items to connected
// server-sent-events clients.
package sse

import (
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/nmitic/sunat-noticia/pkg/domain"
)

// defaultBuffer is the per-client channel capacity; a client that can't
// keep up is dropped rather than blocking the broadcast
const defaultBuffer = 16

// Broadcaster owns the set of connected client channels. One long-lived
// instance per process; a multi-process deployment needs an external
// pub/sub channel instead of this in-memory registry.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[chan domain.NewsItem]struct{}
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[chan domain.NewsItem]struct{})}
}

// Register adds a client and returns its channel plus an unregister
// function. The unregister function is idempotent and closes the channel.
func (b *Broadcaster) Register() (<-chan domain.NewsItem, func()) {
	ch := make(chan domain.NewsItem, defaultBuffer)

	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unregister := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unregister
}

// Broadcast sends the item to every connected client without blocking.
// A client whose buffer is full is dropped from the set; its channel stays
// open until the client unregisters, so the send never panics.
func (b *Broadcaster) Broadcast(item domain.NewsItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.clients {
		select {
		case ch <- item:
		default:
			delete(b.clients, ch)
			lgr.Printf("[WARN] dropped slow sse client, %d remaining", len(b.clients))
		}
	}
}

// Count returns the number of connected clients
func (b *Broadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}
