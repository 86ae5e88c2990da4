// Package stream fans tracker snapshots out to live subscribers, one buffered
// channel per SSE client.
package stream

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/road-hazard-alerts/internal/models"
)

// subscriberBuffer is how many snapshots a client may fall behind before the
// oldest pending one is discarded.
const subscriberBuffer = 16

// Broadcaster delivers every published snapshot to all current subscribers.
// The tracker loop publishes, so Broadcast must never wait on a client.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan *models.Snapshot
	nextID      atomic.Uint64
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.Snapshot),
	}
}

// Subscribe registers a stream client. After Close it returns an already
// closed channel so the caller's read loop ends at once.
func (b *Broadcaster) Subscribe() (uint64, chan *models.Snapshot) {
	id := b.nextID.Add(1)
	ch := make(chan *models.Snapshot, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	return id, ch
}

// Unsubscribe is safe to call more than once and after Close.
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Broadcast hands s to every subscriber without blocking. A client whose
// buffer is full loses its oldest pending snapshot, so it always catches up
// to the latest state. s is shared and must not be modified afterwards.
func (b *Broadcaster) Broadcast(s *models.Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close ends every open stream and rejects later subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
