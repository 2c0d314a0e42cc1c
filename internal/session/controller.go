// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/claudie-tui/internal/history"
	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/output"
	"github.com/jeranaias/claudie-tui/internal/stream"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// DefaultFallbackText replaces a reply whose stream failed.
const DefaultFallbackText = "Sorry, there was an error processing your message. Please try again."

const (
	// cancelledSuffix is appended to a partial reply the user cancelled.
	cancelledSuffix = " [incomplete - cancelled]"

	// cancelledText replaces a reply cancelled before any content arrived.
	cancelledText = "[cancelled]"

	readSize    = 4096
	bumpTimeout = 5 * time.Second
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Transport opens the streaming exchange for one request. The returned body
// yields the raw newline-delimited records. Cancelling ctx must unblock reads.
type Transport interface {
	OpenStream(ctx context.Context, req model.ChatRequest) (io.ReadCloser, error)
}

// HistoryProvider loads the persisted transcript of a conversation.
type HistoryProvider interface {
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// Registry records conversation activity.
type Registry interface {
	Bump(ctx context.Context, conversationID string, at time.Time) error
}

// Event reports a session phase change.
type Event struct {
	SessionID      string
	ConversationID string
	Phase          Phase
	Err            error
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the controller's collaborators and options.
type Config struct {
	// Transport opens chat streams (required)
	Transport Transport

	// History loads transcripts on conversation switch (optional)
	History HistoryProvider

	// Registry is bumped once per completed reply (optional)
	Registry Registry

	// Store and Projector are created when nil
	Store     *history.Store
	Projector *output.Projector

	// Model and TaskType are the initial selections
	Model    string
	TaskType model.TaskType

	// FallbackText replaces failed replies (default: DefaultFallbackText)
	FallbackText string

	// IdleTimeout fails a stream that delivers nothing for this long.
	// Zero disables the check.
	IdleTimeout time.Duration

	// OnEvent receives phase changes. Called without locks held.
	OnEvent func(Event)

	// Clock returns the current time (default: time.Now)
	Clock func() time.Time
}

// Stats counts what the controller has absorbed.
type Stats struct {
	Committed     int64
	Failed        int64
	Abandoned     int64
	DroppedFrames int64
	StaleDiscards int64
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs streaming exchanges for the selected conversation.
//
// At most one session is current. Switching conversation, cancelling, or
// superseding abandons it, and every mutation a session attempts is checked
// against the current session under the controller's lock.
type Controller struct {
	mu sync.Mutex

	transport   Transport
	historySrc  HistoryProvider
	registry    Registry
	store       *history.Store
	projector   *output.Projector
	fallback    string
	idleTimeout time.Duration
	onEvent     func(Event)
	now         func() time.Time

	conversation *model.Conversation
	modelID      string
	task         model.TaskType
	current      *Session
	loading      bool
	selectGen    uint64

	committed     atomic.Int64
	failed        atomic.Int64
	abandoned     atomic.Int64
	droppedFrames atomic.Int64
	staleDiscards atomic.Int64
}

// NewController creates a controller with no conversation selected.
func NewController(cfg Config) *Controller {
	c := &Controller{
		transport:   cfg.Transport,
		historySrc:  cfg.History,
		registry:    cfg.Registry,
		store:       cfg.Store,
		projector:   cfg.Projector,
		fallback:    cfg.FallbackText,
		idleTimeout: cfg.IdleTimeout,
		onEvent:     cfg.OnEvent,
		now:         cfg.Clock,
		modelID:     cfg.Model,
		task:        cfg.TaskType,
	}

	if c.store == nil {
		c.store = history.NewStore("")
	}
	if c.projector == nil {
		c.projector = output.NewProjector()
	}
	if c.fallback == "" {
		c.fallback = DefaultFallbackText
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.modelID == "" {
		c.modelID = model.DefaultModel
	}
	if c.task == "" {
		c.task = model.TaskGeneral
	}
	return c
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Store returns the transcript of the selected conversation.
func (c *Controller) Store() *history.Store {
	return c.store
}

// Projector returns the output projection.
func (c *Controller) Projector() *output.Projector {
	return c.projector
}

// Conversation returns the selected conversation.
func (c *Controller) Conversation() (model.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conversation == nil {
		return model.Conversation{}, false
	}
	return *c.conversation, true
}

// Model returns the model used for the next submission.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// SetModel selects the model for subsequent submissions. A stream already
// running keeps the model it started with.
func (c *Controller) SetModel(id string) {
	c.mu.Lock()
	c.modelID = id
	c.mu.Unlock()
}

// TaskType returns the task type used for the next submission.
func (c *Controller) TaskType() model.TaskType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

// SetTaskType selects the task type for subsequent submissions.
func (c *Controller) SetTaskType(t model.TaskType) {
	c.mu.Lock()
	c.task = t
	c.mu.Unlock()
}

// Current returns the current session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Busy reports whether a submission would be refused as in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading || (c.current != nil && c.current.phase.InFlight())
}

// Loading reports whether the selected conversation's history is loading.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Stats returns the controller's counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Committed:     c.committed.Load(),
		Failed:        c.failed.Load(),
		Abandoned:     c.abandoned.Load(),
		DroppedFrames: c.droppedFrames.Load(),
		StaleDiscards: c.staleDiscards.Load(),
	}
}

// =============================================================================
// CONVERSATION SELECTION
// =============================================================================

// SelectConversation abandons any in-flight session, switches the transcript
// to conv and loads its history. Submissions are refused while the history
// is loading. A load superseded by a later selection is dropped.
func (c *Controller) SelectConversation(ctx context.Context, conv model.Conversation) error {
	c.mu.Lock()
	ev := c.abandonLocked("conversation switch")
	c.conversation = &conv
	c.selectGen++
	gen := c.selectGen
	c.loading = c.historySrc != nil
	c.store.ReplaceAll(conv.ID, nil)
	c.mu.Unlock()
	c.emit(ev)

	if c.historySrc == nil {
		return nil
	}

	msgs, err := c.historySrc.ListMessages(ctx, conv.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.selectGen {
		return nil
	}
	c.loading = false
	if err != nil {
		log.Printf("HISTORY_LOAD_ERROR | conversation=%s error=%v", conv.ID, err)
		return fmt.Errorf("load history for %s: %w", conv.ID, err)
	}
	c.store.ReplaceAll(conv.ID, msgs)
	return nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit sends input to the selected conversation. It refuses with a
// *PreconditionError, creating no state, when no conversation is selected,
// the input is blank, history is loading, or a reply is still streaming.
func (c *Controller) Submit(ctx context.Context, input string) (*Session, error) {
	return c.submit(ctx, input, false)
}

// Supersede is Submit that abandons an in-flight session instead of
// refusing.
func (c *Controller) Supersede(ctx context.Context, input string) (*Session, error) {
	return c.submit(ctx, input, true)
}

func (c *Controller) submit(ctx context.Context, input string, supersede bool) (*Session, error) {
	text := util.NormalizeInput(input)

	c.mu.Lock()
	if err := c.checkPreconditionsLocked(text, supersede); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	var abandonedEv *Event
	if c.current != nil && c.current.phase.InFlight() {
		c.freezePartialLocked(c.current)
		abandonedEv = c.abandonLocked("superseded")
	}

	s := c.newSessionLocked(ctx)
	c.current = s

	if s.task.IsGeneration() {
		c.generateLocked(s, text)
		ev := c.eventLocked(s)
		c.mu.Unlock()
		c.emit(abandonedEv)
		c.emit(ev)
		return s, nil
	}

	c.store.AppendOptimistic(model.Message{Role: model.RoleUser, Content: text})
	s.phase = PhaseSending
	req := model.ChatRequest{
		Content:        text,
		ConversationID: s.conversationID,
		Model:          s.modelID,
		TaskType:       s.task,
	}
	ev := c.eventLocked(s)
	c.mu.Unlock()

	log.Printf("SESSION_START | id=%s conversation=%s model=%s task=%s", s.id, s.conversationID, s.modelID, s.task)
	c.emit(abandonedEv)
	c.emit(ev)

	go c.run(s, req)
	return s, nil
}

func (c *Controller) checkPreconditionsLocked(text string, supersede bool) error {
	if c.conversation == nil {
		return &PreconditionError{Reason: ErrNoConversation}
	}
	if c.loading {
		return &PreconditionError{Reason: ErrLoading}
	}
	if text == "" && !c.task.IsGeneration() {
		return &PreconditionError{Reason: ErrEmptyInput}
	}
	if !supersede && c.current != nil && c.current.phase.InFlight() {
		return &PreconditionError{Reason: ErrBusy}
	}
	return nil
}

func (c *Controller) newSessionLocked(parent context.Context) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ctrl:           c,
		id:             model.NewID(),
		conversationID: c.conversation.ID,
		modelID:        c.modelID,
		task:           c.task,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		phase:          PhaseIdle,
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel abandons the in-flight session but keeps the conversation. Partial
// content is frozen with a cancellation marker. Returns false when nothing
// was in flight.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	s := c.current
	if s == nil || (s.phase != PhaseSending && s.phase != PhaseStreaming) {
		c.mu.Unlock()
		return false
	}

	c.freezePartialLocked(s)
	ev := c.abandonLocked("cancelled")
	c.mu.Unlock()

	c.emit(ev)
	return true
}

// freezePartialLocked closes the placeholder of a session that is being
// abandoned in place, marking whatever content it received as cancelled.
func (c *Controller) freezePartialLocked(s *Session) {
	if s.phase != PhaseStreaming || !c.store.IsOpen(s.assistantID) {
		return
	}
	if msg, ok := c.store.Get(s.assistantID); ok && msg.Content != "" {
		_, _ = c.store.AppendDelta(s.assistantID, cancelledSuffix)
		_ = c.store.Finalize(s.assistantID)
		return
	}
	_ = c.store.RollbackFailure(s.assistantID, cancelledText)
}

// abandonLocked detaches the current session. A session already committing
// has frozen its reply and is left to finish on its own.
func (c *Controller) abandonLocked(reason string) *Event {
	s := c.current
	if s == nil || !s.phase.InFlight() {
		return nil
	}
	c.current = nil

	if s.phase == PhaseCommitting {
		return nil
	}

	s.finishLocked(PhaseAbandoned, ErrAbandoned)
	c.abandoned.Add(1)
	log.Printf("SESSION_ABANDONED | id=%s reason=%s received=%d", s.id, reason, s.accumulated)
	return c.eventLocked(s)
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

// run drives one session from open to a terminal phase.
func (c *Controller) run(s *Session, req model.ChatRequest) {
	body, err := c.transport.OpenStream(s.ctx, req)
	if err != nil {
		c.fail(s, &TransportError{Kind: TransportOpen, Err: err})
		return
	}
	defer body.Close()

	if err := c.beginStreaming(s); err != nil {
		return
	}

	final, err := c.consume(s, body)
	if err != nil {
		var stale *StaleSessionError
		if errors.As(err, &stale) {
			return
		}
		c.fail(s, err)
		return
	}
	c.commit(s, final)
}

// beginStreaming opens the assistant placeholder.
func (c *Controller) beginStreaming(s *Session) error {
	c.mu.Lock()
	if c.current != s || s.phase != PhaseSending {
		c.mu.Unlock()
		return c.discardStale(s, "open")
	}
	s.phase = PhaseStreaming
	s.assistantID = c.store.BeginAssistantPlaceholder(s.modelID)
	ev := c.eventLocked(s)
	c.mu.Unlock()

	c.emit(ev)
	return nil
}

// consume reads the body until the final frame. A read error reported in
// the same step as a final frame takes precedence over it; EOF does not.
func (c *Controller) consume(s *Session, body io.ReadCloser) (stream.Frame, error) {
	dec := stream.NewDecoder()
	dec.OnDecodeError = func(*stream.DecodeError) {
		c.droppedFrames.Add(1)
	}
	defer func() {
		if n := dec.Dropped(); n > 0 {
			log.Printf("SESSION_DROPPED_LINES | id=%s lines=%d", s.id, n)
		}
	}()

	var timedOut atomic.Bool
	var watchdog *time.Timer
	if c.idleTimeout > 0 {
		watchdog = time.AfterFunc(c.idleTimeout, func() {
			timedOut.Store(true)
			body.Close()
		})
		defer watchdog.Stop()
	}

	buf := make([]byte, readSize)
	for {
		n, rerr := body.Read(buf)
		if watchdog != nil && rerr == nil {
			watchdog.Reset(c.idleTimeout)
		}

		var final *stream.Frame
		if n > 0 {
			f, err := c.applyFrames(s, dec.Feed(buf[:n]))
			if err != nil {
				return stream.Frame{}, err
			}
			final = f
		}

		if rerr != nil && !errors.Is(rerr, io.EOF) {
			dec.Reset()
			if timedOut.Load() {
				return stream.Frame{}, &TransportError{Kind: TransportIdleTimeout, Err: rerr}
			}
			return stream.Frame{}, &TransportError{Kind: TransportBody, Err: rerr}
		}

		if final == nil && rerr != nil {
			f, err := c.applyFrames(s, slices.Values(dec.Flush()))
			if err != nil {
				return stream.Frame{}, err
			}
			final = f
		}

		if final != nil {
			return *final, nil
		}
		if rerr != nil {
			dec.Reset()
			return stream.Frame{}, &TransportError{Kind: TransportIncomplete, Err: ErrIncomplete}
		}
	}
}

// applyFrames applies deltas until a final frame, which it returns.
// Frames after the final one are ignored.
func (c *Controller) applyFrames(s *Session, frames iter.Seq[stream.Frame]) (*stream.Frame, error) {
	for f := range frames {
		if f.Final {
			final := f
			return &final, nil
		}
		if err := c.applyDelta(s, f.Delta); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// applyDelta appends one fragment and refreshes the projection.
func (c *Controller) applyDelta(s *Session, delta string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != s || s.phase != PhaseStreaming {
		return c.discardStale(s, "delta")
	}

	content, err := c.store.AppendDelta(s.assistantID, delta)
	if err != nil {
		return &TransportError{Kind: TransportTargetLost, Err: err}
	}
	s.accumulated = len(content)
	c.projector.Update(content, output.Classify(content, s.task))
	return nil
}

// commit freezes the reply and bumps the conversation exactly once.
func (c *Controller) commit(s *Session, final stream.Frame) {
	c.mu.Lock()
	if c.current != s || s.phase != PhaseStreaming {
		c.mu.Unlock()
		c.discardStale(s, "commit")
		return
	}
	if err := c.store.Finalize(s.assistantID); err != nil {
		c.mu.Unlock()
		c.fail(s, &TransportError{Kind: TransportTargetLost, Err: err})
		return
	}
	s.phase = PhaseCommitting
	s.serverMessageID = final.MessageID
	bump := !s.bumped
	s.bumped = true
	at := c.now()
	ev := c.eventLocked(s)
	c.mu.Unlock()
	c.emit(ev)

	if bump && c.registry != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), bumpTimeout)
		if err := c.registry.Bump(ctx, s.conversationID, at); err != nil {
			log.Printf("REGISTRY_BUMP_ERROR | conversation=%s error=%v", s.conversationID, err)
		}
		cancel()
	}

	c.mu.Lock()
	if c.conversation != nil && c.conversation.ID == s.conversationID {
		c.conversation.Touch(at)
	}
	s.finishLocked(PhaseDone, nil)
	c.committed.Add(1)
	ev = c.eventLocked(s)
	c.mu.Unlock()

	log.Printf("SESSION_DONE | id=%s conversation=%s length=%d message_id=%s", s.id, s.conversationID, s.accumulated, s.serverMessageID)
	c.emit(ev)
}

// fail replaces the reply with the fallback text. Nothing is bumped.
func (c *Controller) fail(s *Session, cause error) {
	c.mu.Lock()
	if c.current != s || !s.phase.InFlight() {
		c.mu.Unlock()
		// A read cut short by the session's own cancellation is not a late mutation.
		if s.ctx.Err() == nil {
			c.discardStale(s, "failure")
		}
		return
	}

	if s.assistantID == "" {
		s.assistantID = c.store.BeginAssistantPlaceholder(s.modelID)
	}
	if err := c.store.RollbackFailure(s.assistantID, c.fallback); err != nil {
		log.Printf("SESSION_ROLLBACK_ERROR | id=%s error=%v", s.id, err)
	}
	s.finishLocked(PhaseError, cause)
	c.failed.Add(1)
	ev := c.eventLocked(s)
	c.mu.Unlock()

	log.Printf("SESSION_FAILED | id=%s conversation=%s error=%v", s.id, s.conversationID, cause)
	c.emit(ev)
}

// discardStale records a mutation dropped because s is no longer current.
func (c *Controller) discardStale(s *Session, op string) error {
	c.staleDiscards.Add(1)
	log.Printf("SESSION_STALE | id=%s op=%s", s.id, op)
	return &StaleSessionError{SessionID: s.id, Op: op}
}

// =============================================================================
// EVENTS
// =============================================================================

func (c *Controller) eventLocked(s *Session) *Event {
	return &Event{
		SessionID:      s.id,
		ConversationID: s.conversationID,
		Phase:          s.phase,
		Err:            s.err,
	}
}

func (c *Controller) emit(ev *Event) {
	if ev != nil && c.onEvent != nil {
		c.onEvent(*ev)
	}
}
