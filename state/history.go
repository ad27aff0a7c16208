package state

// History keeps past sources for undo/redo
type History struct {
	states  []string // Source snapshots, oldest first
	current int      // Current position in history
	max     int      // Maximum number of states to keep
}

// NewHistory creates a history holding at most max sources
func NewHistory(max int) *History {
	if max <= 0 {
		max = 100
	}
	return &History{
		states:  make([]string, 0, max),
		current: -1,
		max:     max,
	}
}

// Save records a new source. Anything after the current position is dropped.
func (h *History) Save(source string) {
	// Saving the state we are already at is a no-op
	if h.current >= 0 && h.states[h.current] == source {
		return
	}

	// If we're not at the end, truncate everything after current
	if h.current < len(h.states)-1 {
		h.states = h.states[:h.current+1]
	}

	h.states = append(h.states, source)

	// If we exceed max, remove oldest
	if len(h.states) > h.max {
		h.states = h.states[1:]
	} else {
		h.current++
	}
}

// CanUndo returns true if we can undo
func (h *History) CanUndo() bool {
	return h.current > 0
}

// CanRedo returns true if we can redo
func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}

// Undo goes back one state
func (h *History) Undo() (string, bool) {
	if !h.CanUndo() {
		return "", false
	}
	h.current--
	return h.states[h.current], true
}

// Redo goes forward one state
func (h *History) Redo() (string, bool) {
	if !h.CanRedo() {
		return "", false
	}
	h.current++
	return h.states[h.current], true
}

// Clear clears the history
func (h *History) Clear() {
	h.states = h.states[:0]
	h.current = -1
}

// Stats returns current position and total states for display
func (h *History) Stats() (current, total int) {
	return h.current + 1, len(h.states)
}
