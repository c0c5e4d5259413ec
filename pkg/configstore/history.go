package configstore

import "fmt"

// History keeps the last maxSize replaced snapshots in a fixed ring.
// It is not safe for concurrent use; Store serialises access.
type History struct {
	ring  []*Snapshot
	head  int // next write position
	count int
}

// NewHistory creates a History holding at most maxSize snapshots. A
// non-positive maxSize keeps nothing.
func NewHistory(maxSize int) *History {
	return &History{ring: make([]*Snapshot, max(maxSize, 0))}
}

// Push records snap, overwriting the oldest entry once the ring is full.
func (h *History) Push(snap *Snapshot) {
	if len(h.ring) == 0 {
		return
	}
	h.ring[h.head] = snap
	h.head = (h.head + 1) % len(h.ring)
	h.count = min(h.count+1, len(h.ring))
}

// Get returns the snapshot n steps back; 0 is the most recent.
func (h *History) Get(n int) (*Snapshot, error) {
	if n < 0 || n >= h.count {
		return nil, fmt.Errorf("history %d: no such document (have %d entries)", n+1, h.count)
	}
	return h.ring[(h.head-1-n+len(h.ring))%len(h.ring)], nil
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return h.count }

// List returns every stored snapshot, most recent first.
func (h *History) List() []*Snapshot {
	out := make([]*Snapshot, h.count)
	for i := range out {
		out[i], _ = h.Get(i)
	}
	return out
}
