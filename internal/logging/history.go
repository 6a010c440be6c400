package logging

import (
	"sync"

	"molt/internal/buffer"
)

// History retains the most recent log entries for late subscribers.
type History struct {
	mu      sync.Mutex
	entries *buffer.Ring[Entry]
}

func NewHistory(size int) *History {
	return &History{
		entries: buffer.NewRing[Entry](size),
	}
}

func (h *History) Add(entry Entry) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.entries == nil {
		return
	}
	h.entries.Add(entry)
}

func (h *History) List() []Entry {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries.List()
}

func (h *History) Last(n int) []Entry {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries.Last(n)
}
