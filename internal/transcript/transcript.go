// Package transcript keeps the ordered record of accepted predictions.
package transcript

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one accepted prediction.
type Entry struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink persists transcript changes.
type Sink interface {
	AppendEntry(ctx context.Context, e Entry) error
	ClearEntries(ctx context.Context) error
}

// Log is an append-only ordered transcript. The only removal is Clear.
type Log struct {
	// sinkMu orders sink writes the same way as the in-memory changes.
	// It is taken before mu.
	sinkMu   sync.Mutex
	mu       sync.RWMutex
	entries  []Entry
	sink     Sink
	onAppend []func(Entry)
	onClear  []func()
	now      func() time.Time
}

// NewLog creates an empty transcript. sink may be nil.
func NewLog(sink Sink) *Log {
	return &Log{sink: sink, now: time.Now}
}

// OnAppend registers a callback run after each append.
func (l *Log) OnAppend(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAppend = append(l.onAppend, fn)
}

// OnClear registers a callback run after each clear.
func (l *Log) OnClear(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onClear = append(l.onClear, fn)
}

// Append records an accepted prediction and returns the new entry.
// Timestamps never decrease along the log.
func (l *Log) Append(text string, confidence float64) Entry {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	l.sinkMu.Lock()
	l.mu.Lock()
	ts := l.now()
	if n := len(l.entries); n > 0 && ts.Before(l.entries[n-1].Timestamp) {
		ts = l.entries[n-1].Timestamp
	}
	e := Entry{
		ID:         id.String(),
		Text:       text,
		Confidence: confidence,
		Timestamp:  ts,
	}
	l.entries = append(l.entries, e)
	sink := l.sink
	callbacks := append([]func(Entry){}, l.onAppend...)
	l.mu.Unlock()

	if sink != nil {
		if err := sink.AppendEntry(context.Background(), e); err != nil {
			slog.Warn("Persist transcript entry", "id", e.ID, "error", err)
		}
	}
	l.sinkMu.Unlock()

	for _, fn := range callbacks {
		fn(e)
	}
	return e
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.sinkMu.Lock()
	l.mu.Lock()
	l.entries = nil
	sink := l.sink
	callbacks := append([]func(){}, l.onClear...)
	l.mu.Unlock()

	if sink != nil {
		if err := sink.ClearEntries(context.Background()); err != nil {
			slog.Warn("Clear persisted transcript", "error", err)
		}
	}
	l.sinkMu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Entries returns a copy of all entries in order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the most recent entry.
func (l *Log) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Restore replaces the in-memory log with previously persisted entries
// without writing them back to the sink.
func (l *Log) Restore(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
}
