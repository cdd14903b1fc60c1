// Package events fans out gateway domain events (agent indexed,
// feedback recorded, trust graph rebuilt) to the SSE event-bus route.
// It is in-process only — cloud.google.com/go/pubsub backs the
// cross-process classification queue in internal/queue, but a
// single-process SSE fan-out has no broker on the other end, so a
// mutex-guarded subscriber map is the right tool here.
package events

import (
	"sync"
	"time"
)

// Event is a single gateway occurrence broadcast to event-bus
// subscribers.
type Event struct {
	Type    string    `json:"type"`
	AgentID string    `json:"agentId,omitempty"`
	Data    any       `json:"data,omitempty"`
	Time    time.Time `json:"time"`
}

type subscriber struct {
	ch     chan Event
	types  map[string]bool
	agents map[string]bool
}

func (s *subscriber) matches(e Event) bool {
	if len(s.types) > 0 && !s.types[e.Type] {
		return false
	}
	if len(s.agents) > 0 && !s.agents[e.AgentID] {
		return false
	}
	return true
}

// Bus is a thread-safe in-memory publish/subscribe fan-out. Entries
// have no TTL — subscribers live exactly as long as the connection
// that owns them and are removed via Unsubscribe.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
	Now  func() time.Time
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber), Now: time.Now}
}

// Subscribe registers a new listener filtered by event type and agent
// id (either filter empty means "match all"). It returns a receive-only
// channel and an unsubscribe function the caller must defer.
func (b *Bus) Subscribe(types, agentIDs []string) (<-chan Event, func()) {
	sub := &subscriber{
		ch:     make(chan Event, 32),
		types:  toSet(types),
		agents: toSet(agentIDs),
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
	return sub.ch, unsubscribe
}

// Publish broadcasts an event to every matching subscriber. A
// subscriber whose buffer is full is skipped rather than blocking the
// publisher — a slow SSE client degrades to missed events, not a
// stalled gateway.
func (b *Bus) Publish(typ, agentID string, data any) {
	e := Event{Type: typ, AgentID: agentID, Data: data, Time: b.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// SubscriberCount reports the number of live subscribers, for health
// and metrics reporting.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
