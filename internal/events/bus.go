// Package events implements the in-process lifecycle notification channel
// between a notebook model and its observers.
package events

import (
	"encoding/json"
	"sync/atomic"
)

// Lifecycle notification names published by the notebook model.
const (
	Loaded            = "notebook_loaded"
	Saved             = "notebook_saved"
	Renamed           = "notebook_renamed"
	SaveFailed        = "notebook_save_failed"
	ReadOnly          = "notebook_read_only"
	CheckpointsListed = "checkpoints_listed"
	CheckpointCreated = "checkpoint_created"
	DirtyChanged      = "set_dirty"
)

// Event is a single notification. Data depends on Name:
//   - CheckpointsListed: []models.Checkpoint, newest first
//   - CheckpointCreated: models.Checkpoint
//   - DirtyChanged: Dirty
//   - Saved: SavedNotebook
//   - everything else: nil
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`
}

// Dirty is the payload of DirtyChanged.
type Dirty struct {
	Value bool `json:"value"`
}

// SavedNotebook is the payload of Saved: the path and content exactly as
// written, independent of edits made after the save.
type SavedNotebook struct {
	Path    string          `json:"path"`
	Content json.RawMessage `json:"content"`
}

// Handler reacts to one event. Handlers run on the bus loop and must not
// block on other bus operations except Publish.
type Handler func(Event)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(Event)
}

type subscription struct {
	id      uint64
	name    string
	handler Handler
}

type envelope struct {
	event   Event
	barrier chan struct{}
}

// Bus delivers events to subscribers in publish order.
//
// Concurrency model: a single internal loop goroutine owns the subscriber
// table and runs every handler. A handler finishes before the next event is
// dispatched, so handlers never interleave.
type Bus struct {
	subscribeCh   chan subscriptionReq
	unsubscribeCh chan uint64
	publishCh     chan envelope

	nextID  atomic.Uint64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type subscriptionReq struct {
	sub  subscription
	done chan struct{}
}

// NewBus starts a bus loop.
func NewBus() *Bus {
	b := &Bus{
		subscribeCh:   make(chan subscriptionReq),
		unsubscribeCh: make(chan uint64),
		publishCh:     make(chan envelope, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.stopped)

	var subs []subscription

	for {
		select {
		case <-b.stopCh:
			return

		case req := <-b.subscribeCh:
			subs = append(subs, req.sub)
			close(req.done)

		case id := <-b.unsubscribeCh:
			for i, s := range subs {
				if s.id == id {
					subs = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}

		case env := <-b.publishCh:
			if env.barrier != nil {
				close(env.barrier)
				continue
			}
			for _, s := range subs {
				if s.name == env.event.Name {
					s.handler(env.event)
				}
			}
		}
	}
}

// Subscribe registers h for events named name. The registration is in
// effect when Subscribe returns. The returned func removes it.
func (b *Bus) Subscribe(name string, h Handler) func() {
	if b.closed.Load() {
		return func() {}
	}
	sub := subscription{id: b.nextID.Add(1), name: name, handler: h}
	req := subscriptionReq{sub: sub, done: make(chan struct{})}
	select {
	case b.subscribeCh <- req:
		<-req.done
	case <-b.stopped:
		return func() {}
	}
	return func() {
		if b.closed.Load() {
			return
		}
		select {
		case b.unsubscribeCh <- sub.id:
		case <-b.stopped:
		}
	}
}

// Publish queues ev for delivery. It is a no-op after Close.
func (b *Bus) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- envelope{event: ev}:
	case <-b.stopped:
	}
}

// Flush blocks until every event published before the call has been
// handled.
func (b *Bus) Flush() {
	if b.closed.Load() {
		return
	}
	barrier := make(chan struct{})
	select {
	case b.publishCh <- envelope{barrier: barrier}:
	case <-b.stopped:
		return
	}
	select {
	case <-barrier:
	case <-b.stopped:
	}
}

// Close stops the loop. Events still queued are dropped.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}
