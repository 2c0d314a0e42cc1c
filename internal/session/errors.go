// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
)

// =============================================================================
// PRECONDITION ERRORS
// =============================================================================

// Sentinel reasons a submission is refused.
var (
	ErrNoConversation = errors.New("no conversation selected")
	ErrEmptyInput     = errors.New("input is empty")
	ErrBusy           = errors.New("a reply is still streaming")
	ErrLoading        = errors.New("conversation history is loading")
)

// PreconditionError is returned by Submit when nothing was started.
type PreconditionError struct {
	Reason error
}

func (e *PreconditionError) Error() string {
	return "submit refused: " + e.Reason.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}

// IsPrecondition reports whether err is a refused submission.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// =============================================================================
// TRANSPORT ERRORS
// =============================================================================

// TransportKind classifies why a stream failed.
type TransportKind int

const (
	TransportOpen TransportKind = iota
	TransportBody
	TransportIncomplete
	TransportIdleTimeout
	TransportTargetLost
)

// ErrIncomplete is the cause of a TransportIncomplete failure: the body
// ended before the final frame.
var ErrIncomplete = errors.New("stream ended before completion")

// String returns a short name for the kind.
func (k TransportKind) String() string {
	switch k {
	case TransportOpen:
		return "open"
	case TransportBody:
		return "body"
	case TransportIncomplete:
		return "incomplete"
	case TransportIdleTimeout:
		return "idle_timeout"
	case TransportTargetLost:
		return "target_lost"
	default:
		return "unknown"
	}
}

// TransportError is absorbed by the controller: the session moves to Error
// and the user sees the fallback reply. Session.Err exposes it.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "stream " + e.Kind.String()
	}
	return fmt.Sprintf("stream %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a stream failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// =============================================================================
// SESSION ERRORS
// =============================================================================

// ErrAbandoned is reported by Session.Err for sessions that were superseded,
// cancelled, or left behind by a conversation switch.
var ErrAbandoned = errors.New("session abandoned")

// StaleSessionError marks a mutation attempted by a session that is no
// longer current. It never leaves the package.
type StaleSessionError struct {
	SessionID string
	Op        string
}

func (e *StaleSessionError) Error() string {
	return "stale session " + e.SessionID + ": " + e.Op + " discarded"
}
