// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is where a session is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
	PhaseCommitting
	PhaseDone
	PhaseError
	PhaseAbandoned
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	case PhaseError:
		return "error"
	case PhaseAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// InFlight reports whether a session in this phase still owns the stream.
func (p Phase) InFlight() bool {
	return p == PhaseSending || p == PhaseStreaming || p == PhaseCommitting
}

// Terminal reports whether the phase is final.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError || p == PhaseAbandoned
}

// =============================================================================
// SESSION
// =============================================================================

// State is a snapshot of a session.
type State struct {
	ID                 string
	Phase              Phase
	ConversationID     string
	AssistantMessageID string
	AccumulatedLength  int

	// ServerMessageID is the id the server gave the persisted reply.
	ServerMessageID string

	// Err is the absorbed failure for Error and Abandoned sessions.
	Err error
}

// Session is the handle for one submission.
//
// Fields after the blank line are guarded by the owning controller's mutex.
type Session struct {
	ctrl           *Controller
	id             string
	conversationID string
	modelID        string
	task           model.TaskType
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}

	phase           Phase
	assistantID     string
	accumulated     int
	serverMessageID string
	bumped          bool
	err             error
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Done is closed once the session reaches a terminal phase.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	return s.stateLocked()
}

// Err returns the absorbed failure, or nil for sessions that completed or
// are still running.
func (s *Session) Err() error {
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	return s.err
}

// Wait blocks until the session ends or ctx is done, then returns Err.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) stateLocked() State {
	return State{
		ID:                 s.id,
		Phase:              s.phase,
		ConversationID:     s.conversationID,
		AssistantMessageID: s.assistantID,
		AccumulatedLength:  s.accumulated,
		ServerMessageID:    s.serverMessageID,
		Err:                s.err,
	}
}

// finishLocked moves the session to a terminal phase and releases waiters.
// Only the first call has any effect.
func (s *Session) finishLocked(phase Phase, err error) bool {
	if s.phase.Terminal() {
		return false
	}
	s.phase = phase
	s.err = err
	s.cancel()
	close(s.done)
	return true
}
