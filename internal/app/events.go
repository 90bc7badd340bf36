package app

import (
	"sync"
	"time"
)

// EventType names a pushed event.
type EventType string

const (
	EventPrediction        EventType = "prediction"
	EventTranscript        EventType = "transcript"
	EventTranscriptCleared EventType = "transcript_cleared"
	EventState             EventType = "state"
	EventHands             EventType = "hands"
	EventCamera            EventType = "camera"
	EventModel             EventType = "model"
	EventMode              EventType = "mode"
	EventRecording         EventType = "recording"
	EventSpeech            EventType = "speech"
)

// Event is one notification for subscribers.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
	Time time.Time `json:"time"`
}

// hub fans events out to subscribers. Slow subscribers lose events rather
// than stalling the pipeline.
type hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[chan Event]struct{})}
}

func (h *hub) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *hub) publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
	h.closed = true
}
