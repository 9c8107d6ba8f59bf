package storage

import (
	"sync"
	"time"
)

// MemoryRecorder keeps events in memory. Used when the interaction log file is disabled
// or unusable, and in tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (r *MemoryRecorder) AppendInteraction(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryRecorder) LoadInteractions() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...), nil
}

func (r *MemoryRecorder) LoadRange(from, to time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if inRange(ev.Timestamp, from, to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

var _ Recorder = (*MemoryRecorder)(nil)
