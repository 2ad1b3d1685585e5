// Package eventbus fans a single search's progress/result/complete events
// out to any number of subscribers (an SSE handler, a CLI progress bar, a
// test). Grounded on the teacher's internal/crawler/coordinator.go, which
// keeps a single fan-out channel per crawl job and drops slow-consumer
// updates rather than blocking the crawl.
package eventbus

import (
	"sync"

	"github.com/reekid420/website-searcher/internal/shared"
)

// Kind discriminates an Event's payload.
type Kind string

const (
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindComplete Kind = "complete"
)

// Event is one message on the bus for a single search.
type Event struct {
	Kind     Kind
	Progress shared.SiteProgress
	Result   shared.SearchResult
	Complete shared.CompleteSummary
}

// subscriberBuffer is generous enough that a normal consumer never drops
// a Progress event; it only matters when a subscriber falls behind.
const subscriberBuffer = 64

// mailbox decouples a publisher from one subscriber's consumption rate: a
// producer only ever appends to an in-memory slice under a mutex, which
// never blocks, and a dedicated pump goroutine drains it into the
// subscriber's channel. This is what lets PublishResult/PublishComplete
// guarantee delivery without a producer ever blocking on a slow consumer,
// unlike a plain buffered channel whose send blocks once full.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	out    chan Event
}

func newMailbox() *mailbox {
	m := &mailbox{signal: make(chan struct{}, 1), out: make(chan Event, subscriberBuffer)}
	go m.pump()
	return m
}

// enqueue never blocks. Guaranteed events (Result, Complete) are always
// appended, growing the queue if the consumer is behind. Best-effort
// events (Progress) are dropped once the backlog reaches subscriberBuffer,
// so a permanently stalled consumer can't grow the queue without bound.
func (m *mailbox) enqueue(evt Event, guaranteed bool) {
	m.mu.Lock()
	if !guaranteed && len(m.queue) >= subscriberBuffer {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, evt)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// close stops accepting further wakeups and lets the pump drain whatever
// is already queued before it closes out.
func (m *mailbox) close() {
	close(m.signal)
}

func (m *mailbox) pump() {
	defer close(m.out)
	for range m.signal {
		for {
			m.mu.Lock()
			if len(m.queue) == 0 {
				m.mu.Unlock()
				break
			}
			evt := m.queue[0]
			m.queue = m.queue[1:]
			m.mu.Unlock()
			m.out <- evt
		}
	}
	// signal is closed: drain whatever arrived between the last receive
	// and the close before shutting the output channel down.
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		evt := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		m.out <- evt
	}
}

// Bus fans events out to subscribers for one search. It is safe for
// concurrent use by the orchestrator's per-site workers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*mailbox
	next int
	done bool
}

// New builds an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*mailbox)}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe function. The channel is closed when the bus is closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	m := newMailbox()
	id := b.next
	b.next++
	b.subs[id] = m

	// unsubscribe only removes the mailbox from the fan-out set; it does not
	// close it, since a publish already in flight may hold a copy of this
	// mailbox and closing here would race an enqueue after close. PublishComplete
	// closes every remaining mailbox once the bus is done.
	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
	return m.out, unsubscribe
}

// PublishProgress emits a per-site state-machine transition. Progress
// events are best-effort: a subscriber whose buffer is full simply misses
// this one, since a later Progress or the terminal Result/Complete will
// still arrive.
func (b *Bus) PublishProgress(p shared.SiteProgress) {
	b.publish(Event{Kind: KindProgress, Progress: p}, false)
}

// PublishResult emits one site's extracted+post-processed rows. Result
// events are delivered at-least-once to every live subscriber; the call
// never blocks on a slow consumer, since a full mailbox just queues up
// rather than stalling the caller.
func (b *Bus) PublishResult(r shared.SearchResult) {
	b.publish(Event{Kind: KindResult, Result: r}, true)
}

// PublishComplete emits the terminal summary for the whole search and
// closes the bus: no further events are delivered to existing or future
// subscribers.
func (b *Bus) PublishComplete(c shared.CompleteSummary) {
	b.publish(Event{Kind: KindComplete, Complete: c}, true)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	for id, m := range b.subs {
		m.close()
		delete(b.subs, id)
	}
}

// publish hands evt to every live subscriber's mailbox and returns
// immediately: enqueue never blocks, so a slow consumer never stalls the
// orchestrator worker that's producing events.
func (b *Bus) publish(evt Event, guaranteed bool) {
	b.mu.RLock()
	if b.done {
		b.mu.RUnlock()
		return
	}
	targets := make([]*mailbox, 0, len(b.subs))
	for _, m := range b.subs {
		targets = append(targets, m)
	}
	b.mu.RUnlock()

	for _, m := range targets {
		m.enqueue(evt, guaranteed)
	}
}
