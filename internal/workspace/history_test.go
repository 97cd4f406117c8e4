package workspace

import (
	"reflect"
	"testing"
)

func TestHistory_PushUndoRedo(t *testing.T) {
	h := NewHistory(nil)
	h.Push("A")
	h.Push("B")
	h.Push("C")

	if got, ok := h.Undo(); !ok || got != "B" {
		t.Fatalf("first undo: got %q ok=%v", got, ok)
	}
	if got, ok := h.Undo(); !ok || got != "A" {
		t.Fatalf("second undo: got %q ok=%v", got, ok)
	}
	if got, ok := h.Redo(); !ok || got != "B" {
		t.Fatalf("redo: got %q ok=%v", got, ok)
	}
	if got, ok := h.Redo(); !ok || got != "C" {
		t.Fatalf("redo to tail: got %q ok=%v", got, ok)
	}
	if _, ok := h.Redo(); ok {
		t.Fatalf("redo past the tail should be a no-op")
	}
}

func TestHistory_UndoAtStartIsNoOp(t *testing.T) {
	h := NewHistory(nil)
	if _, ok := h.Undo(); ok {
		t.Fatalf("undo on empty history should be a no-op")
	}

	h.Push("A")
	if _, ok := h.Undo(); ok {
		t.Fatalf("undo at the first snapshot should be a no-op")
	}
}

func TestHistory_PushDiscardsRedoBranch(t *testing.T) {
	h := NewHistory([]string{"A", "B", "C"})

	if got, ok := h.Undo(); !ok || got != "B" {
		t.Fatalf("undo: got %q ok=%v", got, ok)
	}
	h.Push("D")

	if got := h.Snapshots(); !reflect.DeepEqual(got, []string{"A", "B", "D"}) {
		t.Fatalf("branch not discarded: %v", got)
	}
	if _, ok := h.Redo(); ok {
		t.Fatalf("redo after a branch-discarding push should be a no-op")
	}
	if got, ok := h.Undo(); !ok || got != "B" {
		t.Fatalf("undo after push: got %q ok=%v", got, ok)
	}
}

func TestHistory_EmptyPushIgnored(t *testing.T) {
	h := NewHistory(nil)
	h.Push("")
	if h.Len() != 0 {
		t.Fatalf("empty snapshot was recorded, len=%d", h.Len())
	}

	h.Push("A")
	h.Push("")
	if h.Len() != 1 || h.Cursor() != 0 {
		t.Fatalf("empty snapshot moved the log: len=%d cursor=%d", h.Len(), h.Cursor())
	}
}

func TestHistory_RestoreFromPersisted(t *testing.T) {
	h := NewHistory([]string{"A", "B"})
	if h.Len() != 2 || h.Cursor() != 1 {
		t.Fatalf("restored log: len=%d cursor=%d", h.Len(), h.Cursor())
	}
	if got, ok := h.Undo(); !ok || got != "A" {
		t.Fatalf("undo on restored log: got %q ok=%v", got, ok)
	}
}

func TestHistory_SnapshotsReturnsCopy(t *testing.T) {
	h := NewHistory([]string{"A"})
	snap := h.Snapshots()
	snap[0] = "mutated"
	if got, _ := h.Redo(); got == "mutated" {
		t.Fatalf("internal log shares memory with the returned copy")
	}
	if h.Snapshots()[0] != "A" {
		t.Fatalf("internal log was mutated: %v", h.Snapshots())
	}
}
