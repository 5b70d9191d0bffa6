package tracker

import "github.com/jengzang/location-tracker/internal/models"

// History keeps the most recent updates, newest first
type History struct {
	max   int
	items []models.LocationUpdate
}

// NewHistory creates a history bounded to max entries (at least 1)
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{max: max, items: make([]models.LocationUpdate, 0, max)}
}

// Push inserts u at the front, evicting the oldest entry when full
func (h *History) Push(u models.LocationUpdate) {
	if len(h.items) < h.max {
		h.items = append(h.items, models.LocationUpdate{})
	}
	copy(h.items[1:], h.items[:len(h.items)-1])
	h.items[0] = u
}

// Items returns a copy of the entries, newest first
func (h *History) Items() []models.LocationUpdate {
	out := make([]models.LocationUpdate, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of entries
func (h *History) Len() int {
	return len(h.items)
}
