// Package events fans out per-session change notifications to the
// connections currently watching that session.
//
// The Bus is in-process only. Events are not persisted and are not visible
// to other server instances; a listener that is not registered at the
// moment of publish never sees the event. A distributed pub/sub backend can
// replace it behind the Publisher and Subscriber interfaces.
package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event types.
const (
	TypeConnected      = "connected"
	TypeItemAdded      = "item:added"
	TypeItemUpdated    = "item:updated"
	TypeItemDeleted    = "item:deleted"
	TypeVoteAdded      = "vote:added"
	TypeVoteRemoved    = "vote:removed"
	TypeSessionUpdated = "session:updated"
	TypeActionAdded    = "action:added"
	TypeActionUpdated  = "action:updated"
	TypeActionDeleted  = "action:deleted"
)

// Event is one change notification. Timestamp is epoch milliseconds.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// New returns an event of the given type. The timestamp is stamped at
// publish time.
func New(typ string, data any) Event {
	return Event{Type: typ, Data: data}
}

// VotePayload is the data of vote:added and vote:removed.
type VotePayload struct {
	ItemID        string `json:"itemId"`
	ParticipantID string `json:"participantId"`
	SessionID     string `json:"sessionId"`
}

// DeletedPayload is the data of item:deleted and action:deleted.
type DeletedPayload struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
}

// ConnectedPayload is the data of the synthetic connected event.
type ConnectedPayload struct {
	SessionID string `json:"sessionId"`
}

// Listener receives events for one session. A returned error is logged
// and does not affect delivery to other listeners.
type Listener func(Event) error

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(sessionID string, evt Event)
}

// Subscriber is the read side of the bus.
type Subscriber interface {
	Subscribe(sessionID string, l Listener) (unsubscribe func())
	ListenerCount(sessionID string) int
}

type registration struct {
	id uint64
	fn Listener
}

// topic holds the listeners of one session. deliver serializes publishes
// so each listener sees events in publish order.
type topic struct {
	deliver   sync.Mutex
	listeners []registration
}

// Bus is a concurrency-safe registry of listeners keyed by session id.
type Bus struct {
	mu     sync.Mutex
	topics map[string]*topic
	nextID uint64
	log    *slog.Logger
	now    func() time.Time
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)

// NewBus returns an empty bus. A nil logger discards output.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		topics: make(map[string]*topic),
		log:    logger,
		now:    time.Now,
	}
}

// Subscribe registers l for every event published to sessionID from now on.
// The returned function removes exactly this registration and is safe to
// call more than once.
func (b *Bus) Subscribe(sessionID string, l Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	t, ok := b.topics[sessionID]
	if !ok {
		t = &topic{}
		b.topics[sessionID] = t
	}
	t.listeners = append(t.listeners, registration{id: id, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sessionID, id) })
	}
}

func (b *Bus) remove(sessionID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[sessionID]
	if !ok {
		return
	}
	for i, r := range t.listeners {
		if r.id == id {
			// Copy so snapshots held by an in-flight publish stay intact.
			next := make([]registration, 0, len(t.listeners)-1)
			next = append(next, t.listeners[:i]...)
			next = append(next, t.listeners[i+1:]...)
			t.listeners = next
			break
		}
	}
	if len(t.listeners) == 0 {
		delete(b.topics, sessionID)
	}
}

// Publish delivers evt synchronously to the listeners registered for
// sessionID, in registration order. Listener errors and panics are logged
// and contained. Listeners must not publish to the session they are
// receiving from.
func (b *Bus) Publish(sessionID string, evt Event) {
	if evt.Timestamp == 0 {
		evt.Timestamp = b.now().UnixMilli()
	}

	b.mu.Lock()
	t, ok := b.topics[sessionID]
	b.mu.Unlock()
	if !ok {
		return
	}

	t.deliver.Lock()
	defer t.deliver.Unlock()

	b.mu.Lock()
	snapshot := t.listeners
	b.mu.Unlock()

	for _, r := range snapshot {
		if err := b.call(r.fn, evt); err != nil {
			b.log.Debug("event delivery failed",
				"session", sessionID, "listener", r.id, "type", evt.Type, "error", err)
		}
	}
}

func (b *Bus) call(fn Listener, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return fn(evt)
}

// ListenerCount returns the number of listeners registered for sessionID.
func (b *Bus) ListenerCount(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[sessionID]; ok {
		return len(t.listeners)
	}
	return 0
}

// SessionCount returns the number of sessions with at least one listener.
func (b *Bus) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}

// TotalListeners returns the number of listeners across all sessions.
func (b *Bus) TotalListeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.topics {
		n += len(t.listeners)
	}
	return n
}
