package workspace

// History is a linear undo/redo log of code snapshots. Pushing while the
// cursor is behind the tail discards the abandoned branch. Undo and redo only
// move the cursor; snapshots are never mutated in place.
type History struct {
	snapshots []string
	cursor    int
}

// NewHistory restores a log from persisted snapshots, cursor at the tail.
func NewHistory(snapshots []string) *History {
	h := &History{cursor: -1}
	if len(snapshots) > 0 {
		h.snapshots = append(h.snapshots, snapshots...)
		h.cursor = len(h.snapshots) - 1
	}
	return h
}

// Push appends a snapshot after discarding everything beyond the cursor.
// Empty snapshots are ignored.
func (h *History) Push(snapshot string) {
	if snapshot == "" {
		return
	}
	h.snapshots = append(h.snapshots[:h.cursor+1], snapshot)
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor back one snapshot. Returns false at the start of the
// log (never an error).
func (h *History) Undo() (string, bool) {
	if h.cursor <= 0 {
		return "", false
	}
	h.cursor--
	return h.snapshots[h.cursor], true
}

// Redo moves the cursor forward one snapshot. Returns false at the tail.
func (h *History) Redo() (string, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return "", false
	}
	h.cursor++
	return h.snapshots[h.cursor], true
}

func (h *History) Len() int    { return len(h.snapshots) }
func (h *History) Cursor() int { return h.cursor }

// Snapshots returns a copy of the log for persistence.
func (h *History) Snapshots() []string {
	return append([]string(nil), h.snapshots...)
}
