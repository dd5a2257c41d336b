// Package notify fans change events out to in-process subscribers.
package notify

import "sync/atomic"

// Event types published by the engine and the vault watcher.
const (
	TypeVaultChanged = "vault.changed"
	TypeNoteSaved    = "note.saved"
	TypeNoteDeleted  = "note.deleted"
	TypeNoteMoved    = "note.moved"
	TypeGroupChanged = "group.changed"
	TypeConflict     = "note.conflict"
)

// Event is one notification with a type-specific payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// VaultChange carries the paths touched by an on-disk change batch.
type VaultChange struct {
	Paths []string `json:"paths"`
}

// NoteRef identifies the note an event concerns.
type NoteRef struct {
	Path string `json:"path"`
}

// NoteMove carries both sides of a move or rename.
type NoteMove struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GroupRef identifies the group an event concerns.
type GroupRef struct {
	Group string `json:"group"`
}

// Conflict reports a rejected save.
type Conflict struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Hub broadcasts events to subscribers.
//
// Concurrency model: a single internal loop goroutine owns the subscriber
// set. Public methods communicate with the loop through channels, so no
// mutexes are required.
type Hub struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewHub creates a hub and starts its loop.
func NewHub() *Hub {
	h := &Hub{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)

	subscribers := make(map[chan Event]struct{})

	for {
		select {
		case <-h.stopCh:
			for ch := range subscribers {
				close(ch)
			}
			return

		case ch := <-h.subscribeCh:
			subscribers[ch] = struct{}{}

		case ch := <-h.unsubscribeCh:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}

		case ev := <-h.publishCh:
			for ch := range subscribers {
				select {
				case ch <- ev:
				default:
					// Subscriber buffer full; skip to keep the loop moving.
				}
			}

		case resp := <-h.countReqCh:
			resp <- len(subscribers)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (h *Hub) Close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

// Subscribe registers a new subscriber and returns its channel together
// with an unsubscribe function. The channel is closed on unsubscribe and
// on hub shutdown.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	if h.closed.Load() {
		close(ch)
		return ch, func() {}
	}

	select {
	case h.subscribeCh <- ch:
	case <-h.stopped:
		close(ch)
		return ch, func() {}
	}

	unsubscribe := func() {
		if h.closed.Load() {
			return
		}
		select {
		case h.unsubscribeCh <- ch:
		case <-h.stopped:
		}
	}
	return ch, unsubscribe
}

// Publish broadcasts an event to all subscribers. Events published after
// Close are dropped.
func (h *Hub) Publish(ev Event) {
	if h.closed.Load() {
		return
	}
	select {
	case h.publishCh <- ev:
	case <-h.stopped:
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	if h.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case h.countReqCh <- resp:
	case <-h.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-h.stopped:
		return 0
	}
}
