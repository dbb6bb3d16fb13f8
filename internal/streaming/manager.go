package streaming

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// Event types published during an assistant generation.
const (
	EventMessageDelta        = "message.delta"
	EventCitationProvisional = "citation.provisional"
	EventCitationFinal       = "citation.final"
	EventMessageCompleted    = "message.completed"
	EventError               = "error"
)

// Event is one streaming event for a generating message. Payload carries the
// type-specific body: a text delta, a citation map, or an error string.
type Event struct {
	MessageID string          `json:"message_id"`
	StudyID   string          `json:"study_id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
}

// Manager provides in-memory pub/sub for generation events.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	// per-message ring buffer for replay and Last-Event-ID support
	history  map[string]*ring
	capacity int
}

var (
	defaultMgr      *Manager
	once            sync.Once
	defaultCapacity = 256
)

// Get returns the global streaming manager, initializing it lazily.
func Get() *Manager {
	once.Do(func() {
		defaultMgr = &Manager{
			subscribers: make(map[string]map[chan Event]struct{}),
			history:     make(map[string]*ring),
			capacity:    defaultCapacity,
		}
	})
	return defaultMgr
}

// NewManager builds an isolated manager; used by tests.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Manager{
		subscribers: make(map[string]map[chan Event]struct{}),
		history:     make(map[string]*ring),
		capacity:    capacity,
	}
}

// Configure sets default capacity for new rings. Safe to call anytime.
func Configure(capacity int) {
	if capacity <= 0 {
		return
	}
	defaultCapacity = capacity
	if defaultMgr != nil {
		defaultMgr.mu.Lock()
		defaultMgr.capacity = capacity
		defaultMgr.mu.Unlock()
	}
}

// Subscribe adds a subscriber channel for a messageID; caller must drain and
// call Unsubscribe.
func (m *Manager) Subscribe(messageID string, buffer int) chan Event {
	ch := make(chan Event, buffer)
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subscribers[messageID]
	if subs == nil {
		subs = make(map[chan Event]struct{})
		m.subscribers[messageID] = subs
	}
	subs[ch] = struct{}{}
	metrics.StreamSubscribers.Inc()
	return ch
}

// Unsubscribe removes the subscriber channel and closes it.
func (m *Manager) Unsubscribe(messageID string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs, ok := m.subscribers[messageID]; ok {
		if _, present := subs[ch]; present {
			delete(subs, ch)
			close(ch)
			metrics.StreamSubscribers.Dec()
		}
		if len(subs) == 0 {
			delete(m.subscribers, messageID)
		}
	}
}

// Publish sends an event to all subscribers of messageID (non-blocking).
func (m *Manager) Publish(messageID string, evt Event) {
	evt.MessageID = messageID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	m.mu.Lock()
	rg := m.history[messageID]
	if rg == nil {
		rg = newRing(m.capacity)
		m.history[messageID] = rg
	}
	evt.Seq = rg.nextSeq
	rg.nextSeq++
	rg.push(evt)
	subs := m.subscribers[messageID]
	m.mu.Unlock()

	metrics.StreamEventsPublished.WithLabelValues(evt.Type).Inc()

	if len(subs) == 0 {
		return
	}
	for ch := range subs {
		select {
		case ch <- evt:
		default:
			// Drop if subscriber is slow
		}
	}
}

// Forget drops the history ring for a finished message.
func (m *Manager) Forget(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, messageID)
}

// Marshal returns JSON for event payloads in SSE or logs.
func (e Event) Marshal() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ReplaySince returns events with Seq > since (best-effort within ring
// capacity).
func (m *Manager) ReplaySince(messageID string, since uint64) []Event {
	m.mu.RLock()
	rg := m.history[messageID]
	m.mu.RUnlock()
	if rg == nil {
		return nil
	}
	return rg.since(since)
}

// ring is a fixed-capacity ring buffer of events
type ring struct {
	buf     []Event
	start   int
	count   int
	nextSeq uint64
}

// Sequence numbers start at 1 so since(0) replays the full ring.
func newRing(capacity int) *ring { return &ring{buf: make([]Event, capacity), nextSeq: 1} }

func (r *ring) push(e Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = e
		r.count++
		return
	}
	// overwrite oldest
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) since(seq uint64) []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, 0, r.count)
	for i := 0; i < r.count; i++ {
		idx := (r.start + i) % len(r.buf)
		ev := r.buf[idx]
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}
