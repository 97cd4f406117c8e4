package workspace

import (
	"context"
	"log"
	"sync"
	"time"
)

type SaveStatus string

const (
	StatusSaved   SaveStatus = "saved"
	StatusSaving  SaveStatus = "saving"
	StatusUnsaved SaveStatus = "unsaved"
)

// titlePromptMin is the minimum build-prompt length that qualifies a project
// for auto-titling.
const titlePromptMin = 12

// Saver debounces project persistence: every dirty mark inside the quiet
// window resets the timer, and one flush runs after the window elapses with
// the state as of the last mark. A second flush never starts before the prior
// network call resolves. When the user has disabled history saving, MarkDirty
// is a no-op and the status stays unsaved.
//
// The flush callback snapshots the aggregate project state itself, so the
// flushed state is whatever is current when the timer fires.
type Saver struct {
	mu   sync.Mutex
	cond *sync.Cond

	quiet time.Duration

	saveHistory bool
	flush       func(ctx context.Context) error
	title       func(ctx context.Context)

	timer    *time.Timer
	flushing bool
	pending  bool
	status   SaveStatus
	titled   bool
}

type SaverConfig struct {
	Quiet       time.Duration
	SaveHistory bool

	// Flush persists the current project aggregate. Required.
	Flush func(ctx context.Context) error

	// Title enqueues one-shot title generation. Optional.
	Title func(ctx context.Context)

	// Titled marks the one-shot as already spent (resumed projects).
	Titled bool
}

func NewSaver(cfg SaverConfig) *Saver {
	quiet := cfg.Quiet
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	status := StatusSaved
	if !cfg.SaveHistory {
		status = StatusUnsaved
	}
	s := &Saver{
		quiet:       quiet,
		saveHistory: cfg.SaveHistory,
		flush:       cfg.Flush,
		title:       cfg.Title,
		status:      status,
		titled:      cfg.Titled,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// MarkDirty records a state change and (re)starts the quiet window.
func (s *Saver) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saveHistory {
		return
	}
	s.status = StatusUnsaved
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.quiet, s.fire)
}

func (s *Saver) fire() {
	s.mu.Lock()
	if s.flushing {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.status = StatusSaving
	s.mu.Unlock()

	err := s.flush(context.Background())

	s.mu.Lock()
	s.flushing = false
	if err != nil {
		// retried on the next dirty mark, not in a loop
		log.Printf("autosave: flush failed err=%v", err)
		s.status = StatusUnsaved
	} else if s.status == StatusSaving {
		s.status = StatusSaved
	}
	rerun := s.pending
	s.pending = false
	s.cond.Broadcast()
	s.mu.Unlock()

	if rerun {
		s.fire()
	}
}

// FlushNow cancels any pending timer and persists synchronously. One flush at
// a time: a timer-fired flush already on the wire is waited out first.
func (s *Saver) FlushNow(ctx context.Context) error {
	s.mu.Lock()
	if !s.saveHistory {
		s.mu.Unlock()
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for s.flushing {
		s.cond.Wait()
	}
	s.flushing = true
	s.status = StatusSaving
	s.mu.Unlock()

	err := s.flush(ctx)

	s.mu.Lock()
	s.flushing = false
	if err != nil {
		s.status = StatusUnsaved
	} else {
		s.status = StatusSaved
	}
	rerun := s.pending
	s.pending = false
	s.cond.Broadcast()
	s.mu.Unlock()

	if rerun {
		go s.fire()
	}
	return err
}

// CancelPending drops a scheduled flush without running it.
func (s *Saver) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Status is observability only; the store remains the source of truth after a
// flush (another device may have written since).
func (s *Saver) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// MaybeTitle fires the one-shot title generation the first time code becomes
// non-empty, when the originating prompt is long enough to title from.
func (s *Saver) MaybeTitle(code, originPrompt string) {
	s.mu.Lock()
	if s.titled || s.title == nil || code == "" || len(originPrompt) < titlePromptMin {
		s.mu.Unlock()
		return
	}
	s.titled = true
	title := s.title
	s.mu.Unlock()

	// failure is swallowed; the project keeps its default name
	go title(context.Background())
}
