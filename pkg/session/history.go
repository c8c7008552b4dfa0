package session

import "time"

// HistoryEntry is one line entered at the prompt.
type HistoryEntry struct {
	Line      string
	Timestamp time.Time
}

// History is a bounded ring buffer of command lines. The oldest entry is
// evicted once maxSize is reached.
type History struct {
	entries []HistoryEntry
	maxSize int
}

// NewHistory creates a new History with the given maximum size.
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultHistorySize
	}
	return &History{
		maxSize: maxSize,
	}
}

// Push adds a line to the history.
func (h *History) Push(entry HistoryEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Len returns the number of history entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Lines returns all recorded lines, oldest first.
func (h *History) Lines() []string {
	lines := make([]string, len(h.entries))
	for i, e := range h.entries {
		lines[i] = e.Line
	}
	return lines
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}
