package repl

import (
	"strings"
	"time"
)

// DefaultHistoryCapacity is the number of entries kept when no capacity is
// configured.
const DefaultHistoryCapacity = 1000

// Entry is one evaluated input and what it produced.
type Entry struct {
	Command string
	Output  string
	Failed  bool
	Time    time.Time
}

// History is a fixed-capacity ring of entries. Once full, adding an entry
// evicts the oldest.
type History struct {
	entries  []Entry
	start    int
	size     int
	cursor   int // navigation position, size means "past the newest"
	capacity int
}

// NewHistory returns an empty history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{entries: make([]Entry, capacity), capacity: capacity}
}

// Add appends an entry and resets navigation.
func (h *History) Add(e Entry) {
	if h.size < h.capacity {
		h.entries[(h.start+h.size)%h.capacity] = e
		h.size++
	} else {
		h.entries[h.start] = e
		h.start = (h.start + 1) % h.capacity
	}
	h.cursor = h.size
}

// Len returns the number of stored entries.
func (h *History) Len() int { return h.size }

// Capacity returns the maximum number of entries.
func (h *History) Capacity() int { return h.capacity }

// Get returns the i-th entry, oldest first.
func (h *History) Get(i int) (Entry, bool) {
	if i < 0 || i >= h.size {
		return Entry{}, false
	}
	return h.entries[(h.start+i)%h.capacity], true
}

// Entries returns all entries, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, h.size)
	for i := range out {
		out[i], _ = h.Get(i)
	}
	return out
}

// Commands returns the command text of every entry, oldest first.
func (h *History) Commands() []string {
	out := make([]string, h.size)
	for i := range out {
		e, _ := h.Get(i)
		out[i] = e.Command
	}
	return out
}

// Search returns the entries whose command contains substr, oldest first.
func (h *History) Search(substr string) []Entry {
	var out []Entry
	for _, e := range h.Entries() {
		if strings.Contains(e.Command, substr) {
			out = append(out, e)
		}
	}
	return out
}

// Previous steps back one entry, returning false at the oldest.
func (h *History) Previous() (string, bool) {
	if h.cursor == 0 {
		return "", false
	}
	h.cursor--
	e, _ := h.Get(h.cursor)
	return e.Command, true
}

// Next steps forward one entry, returning false past the newest.
func (h *History) Next() (string, bool) {
	if h.cursor >= h.size-1 {
		h.cursor = h.size
		return "", false
	}
	h.cursor++
	e, _ := h.Get(h.cursor)
	return e.Command, true
}

// Clear removes every entry.
func (h *History) Clear() {
	h.entries = make([]Entry, h.capacity)
	h.start, h.size, h.cursor = 0, 0, 0
}

// Bytes estimates the memory held by the stored text.
func (h *History) Bytes() int {
	n := 0
	for i := 0; i < h.size; i++ {
		e := h.entries[(h.start+i)%h.capacity]
		n += len(e.Command) + len(e.Output)
	}
	return n
}
