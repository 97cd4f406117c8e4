package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Danielbarber11/aivan/internal/ai"
	"github.com/Danielbarber11/aivan/internal/auth"
)

type TurnState string

const (
	StateIdle        TurnState = "idle"
	StateRequestSent TurnState = "request_sent"
	StateStreaming   TurnState = "streaming"
	StateComplete    TurnState = "complete"
	StateCancelled   TurnState = "cancelled"
	StateFailed      TurnState = "failed"
)

var (
	// ErrBusy rejects a submission while a stream is active; turns are never
	// queued or interleaved.
	ErrBusy = errors.New("workspace: a turn is already streaming")

	// ErrCapabilityDenied rejects a gated action before any request is made.
	ErrCapabilityDenied = errors.New("workspace: action requires a premium subscription")
)

// QuickAction is a canned prompt triggered by a single control.
type QuickAction string

const (
	ActionFixBugs        QuickAction = "FIX_BUGS"
	ActionHardenSecurity QuickAction = "HARDEN_SECURITY"
	ActionPrepareDeploy  QuickAction = "PREPARE_DEPLOY"
)

var quickActionPrompts = map[QuickAction]string{
	ActionFixBugs:        "Please scan the code and fix any bugs you find.",
	ActionHardenSecurity: "Please add security hardening to the code.",
	ActionPrepareDeploy:  "Please prepare the code for publishing.",
}

type EventType string

const (
	EventChunk EventType = "chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is one observable step of an in-flight turn. Code carries the current
// artifact as extracted so far (Creator mode only).
type Event struct {
	Type  EventType
	Delta string
	Code  string
	Err   error
}

// ModelClient is the streaming boundary the controller drives.
type ModelClient interface {
	Stream(ctx context.Context, req ai.Request) (<-chan string, <-chan error)
}

// Config restores a controller for one open workspace session. The session
// exclusively owns its conversation logs, code artifact and version history.
type Config struct {
	User    auth.User
	Client  ModelClient
	Saver   *Saver
	ModelID string

	// project bootstrap inputs
	InitialPrompt string
	Language      string
	Files         []ai.FilePart

	// resumed state
	Code             string
	CreatorMessages  []Message
	QuestionMessages []Message
	CodeHistory      []string
}

// Controller orchestrates one workspace session: it turns user prompts into
// model requests, threads stream fragments into the conversation log and the
// extractor in arrival order, and marks persistence dirty on every change.
type Controller struct {
	mu sync.Mutex

	user    auth.User
	client  ModelClient
	saver   *Saver
	modelID string

	initialPrompt string
	language      string
	files         []ai.FilePart

	conv      *Conversation
	history   *History
	extractor *Extractor
	code      string
	mode      ChatMode

	state  TurnState
	cancel context.CancelFunc
}

func NewController(cfg Config) *Controller {
	ext := &Extractor{}
	if cfg.Code != "" {
		ext.current = cfg.Code
	}
	return &Controller{
		user:          cfg.User,
		client:        cfg.Client,
		saver:         cfg.Saver,
		modelID:       cfg.ModelID,
		initialPrompt: cfg.InitialPrompt,
		language:      cfg.Language,
		files:         cfg.Files,
		conv:          NewConversation(cfg.CreatorMessages, cfg.QuestionMessages),
		history:       NewHistory(cfg.CodeHistory),
		extractor:     ext,
		code:          cfg.Code,
		mode:          ModeCreator,
		state:         StateIdle,
	}
}

// SetMode switches the active log. A pure view change: neither log is touched.
func (c *Controller) SetMode(mode ChatMode) {
	if !mode.Valid() {
		return
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

func (c *Controller) Mode() ChatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *Controller) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Messages(mode ChatMode) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Log(mode)
}

// Snapshot is the aggregate state persisted for this session.
type Snapshot struct {
	Code             string
	CreatorMessages  []Message
	QuestionMessages []Message
	CodeHistory      []string
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Code:             c.code,
		CreatorMessages:  c.conv.Log(ModeCreator),
		QuestionMessages: c.conv.Log(ModeQuestion),
		CodeHistory:      c.history.Snapshots(),
	}
}

// Bootstrap synthesizes the first user turn for a brand-new project and sends
// it immediately. Resumed projects (existing code or messages) skip this
// entirely; the returned channel is nil then. The bootstrap turn does not push
// a version.
func (c *Controller) Bootstrap(ctx context.Context) (<-chan Event, error) {
	c.mu.Lock()
	if c.code != "" || c.conv.Len(ModeCreator) > 0 {
		c.mu.Unlock()
		return nil, nil
	}
	if c.state == StateRequestSent || c.state == StateStreaming {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	text := fmt.Sprintf("I want to build: %s. Language: %s", c.initialPrompt, c.language)
	histBefore := c.conv.Log(ModeCreator)
	c.conv.AppendUser(ModeCreator, text)
	c.markDirtyLocked()
	return c.startTurnLocked(ctx, ModeCreator, text, histBefore, c.files), nil
}

// Submit starts a turn from free text in the active mode. In Creator mode the
// pre-edit code is pushed to the version history before the request goes out,
// so undo reverts to the state this turn started from.
func (c *Controller) Submit(ctx context.Context, text string) (<-chan Event, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("workspace: empty prompt")
	}

	c.mu.Lock()
	if c.state == StateRequestSent || c.state == StateStreaming {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	mode := c.mode
	histBefore := c.conv.Log(mode)
	c.conv.AppendUser(mode, text)
	if mode == ModeCreator {
		c.history.Push(c.code)
	}
	c.markDirtyLocked()
	return c.startTurnLocked(ctx, mode, text, histBefore, nil), nil
}

// SubmitQuickAction feeds a canned prompt through the normal turn pipeline.
// PREPARE_DEPLOY is premium-gated and fails before any request is issued.
func (c *Controller) SubmitQuickAction(ctx context.Context, action QuickAction) (<-chan Event, error) {
	prompt, ok := quickActionPrompts[action]
	if !ok {
		return nil, fmt.Errorf("workspace: unknown quick action %q", action)
	}
	if action == ActionPrepareDeploy && !c.user.IsPremium {
		return nil, ErrCapabilityDenied
	}
	return c.Submit(ctx, prompt)
}

// Cancel aborts the in-flight stream. Silent by design: no error message is
// appended, and partial message text and partial code stay as last observed.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Undo moves the version cursor back and adopts that snapshot as the current
// artifact. No-op at the start of the log.
func (c *Controller) Undo() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, ok := c.history.Undo()
	if !ok {
		return c.code, false
	}
	c.code = snapshot
	c.extractor.current = snapshot
	c.markDirtyLocked()
	return c.code, true
}

func (c *Controller) Redo() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, ok := c.history.Redo()
	if !ok {
		return c.code, false
	}
	c.code = snapshot
	c.extractor.current = snapshot
	c.markDirtyLocked()
	return c.code, true
}

// SetCode replaces the artifact from a manual edit (premium feature at the
// surface; capability is checked there).
func (c *Controller) SetCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code = code
	c.extractor.current = code
	c.markDirtyLocked()
}

func (c *Controller) markDirtyLocked() {
	if c.saver != nil {
		c.saver.MarkDirty()
	}
}

// startTurnLocked moves the machine to REQUEST_SENT and launches the stream
// consumer. Caller holds the lock; it is released here.
func (c *Controller) startTurnLocked(ctx context.Context, mode ChatMode, prompt string, histBefore []Message, files []ai.FilePart) <-chan Event {
	c.state = StateRequestSent

	turnCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	// both modes see the artifact: the consultant explains the code it is
	// shown, the creator edits it in place
	req := ai.Request{
		Prompt:      prompt,
		History:     toProviderMessages(histBefore),
		Files:       files,
		ModelID:     c.modelID,
		Mode:        ai.Mode(mode),
		CurrentCode: c.code,
	}
	c.mu.Unlock()

	out := make(chan Event, 16)
	go c.runTurn(turnCtx, cancel, mode, req, out)
	return out
}

func (c *Controller) runTurn(ctx context.Context, cancel context.CancelFunc, mode ChatMode, req ai.Request, out chan<- Event) {
	defer close(out)
	defer cancel()

	chunks, errs := c.client.Stream(ctx, req)

	c.mu.Lock()
	c.state = StateStreaming
	c.mu.Unlock()

	modelMsgID := uuid.NewString()
	var full strings.Builder

	// fragments apply strictly in arrival order; each is fully applied before
	// the next is awaited
	for chunk := range chunks {
		full.WriteString(chunk)

		c.mu.Lock()
		c.conv.UpsertModel(mode, modelMsgID, full.String())
		code := c.code
		if mode == ModeCreator {
			c.code = c.extractor.Update(full.String())
			code = c.code
		}
		c.markDirtyLocked()
		c.mu.Unlock()

		if c.saver != nil && mode == ModeCreator {
			c.saver.MaybeTitle(code, c.initialPrompt)
		}

		out <- Event{Type: EventChunk, Delta: chunk, Code: code}
	}

	var streamErr error
	select {
	case streamErr = <-errs:
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil

	switch {
	case ctx.Err() != nil:
		// user cancellation: keep partial state, emit nothing further
		c.state = StateCancelled

	case streamErr != nil:
		// applied fragments stay; only the turn is marked failed
		c.state = StateFailed
		c.conv.MarkError(mode, modelMsgID)
		out <- Event{Type: EventError, Err: streamErr}

	default:
		if mode == ModeCreator {
			c.code = c.extractor.Settle(full.String())
		}
		c.state = StateComplete
		c.markDirtyLocked()
		out <- Event{Type: EventDone, Code: c.code}
	}
}

func toProviderMessages(msgs []Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ai.Message{Role: string(m.Role), Content: m.Text})
	}
	return out
}
