package main

// HistoryStack is a bounded append-only log of past view bounds. When full,
// the oldest entry is dropped, not the newest: it behaves like a FIFO window
// over the navigation trail.
type HistoryStack struct {
	entries  []Bounds
	capacity int
}

func newHistoryStack(capacity int) *HistoryStack {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryStack{
		entries:  make([]Bounds, 0, capacity),
		capacity: capacity,
	}
}

func (h *HistoryStack) Push(b Bounds) {
	if len(h.entries) >= h.capacity {
		h.entries = append(h.entries[:0], h.entries[1:]...)
	}
	h.entries = append(h.entries, b)
}

func (h *HistoryStack) Len() int { return len(h.entries) }

// Entries returns a copy of the log, oldest first.
func (h *HistoryStack) Entries() []Bounds {
	out := make([]Bounds, len(h.entries))
	copy(out, h.entries)
	return out
}
