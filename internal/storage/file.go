package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxLineSize = 10 * 1024 * 1024

// FileRecorder keeps events as JSON lines in one append-only file.
type FileRecorder struct {
	path string
	mu   sync.Mutex
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to init log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to init log file: %w", err)
	}
	return &FileRecorder{path: path}, nil
}

func (r *FileRecorder) AppendInteraction(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write interaction log: %w", err)
	}
	return f.Close()
}

func (r *FileRecorder) LoadInteractions() ([]Event, error) {
	var events []Event
	err := r.scan(func(ev Event) { events = append(events, ev) })
	return events, err
}

// LoadRange returns events with from <= Timestamp < to without keeping the
// rest of the file in memory.
func (r *FileRecorder) LoadRange(from, to time.Time) ([]Event, error) {
	var events []Event
	err := r.scan(func(ev Event) {
		if inRange(ev.Timestamp, from, to) {
			events = append(events, ev)
		}
	})
	return events, err
}

// scan streams every decodable line to fn. Lines torn by a crash mid-write
// are skipped. A file removed since start-up reads as empty.
func (r *FileRecorder) scan(fn func(Event)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		fn(ev)
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("scan interaction log: %w", err)
	}
	return nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

var _ Recorder = (*FileRecorder)(nil)
