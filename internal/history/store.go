// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history holds the in-memory transcript of the selected conversation.
package history

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when the target message is no longer present,
	// typically because the transcript was replaced by a conversation switch.
	ErrNotFound = errors.New("message not found")

	// ErrInvalidState is returned when mutating a message that is frozen.
	ErrInvalidState = errors.New("message is finalized")
)

// =============================================================================
// STORE
// =============================================================================

// entry is a message plus its streaming state.
type entry struct {
	msg     model.Message
	content strings.Builder
	open    bool
}

// Store is the ordered transcript of one conversation.
//
// Messages are appended in order and never reordered. An assistant
// placeholder stays open for deltas until it is finalized or rolled back;
// after that its content is frozen. All methods are safe for concurrent use.
type Store struct {
	mu             sync.RWMutex
	conversationID string
	entries        []*entry
	index          map[string]int
	observer       func()
}

// NewStore creates an empty store scoped to conversationID.
func NewStore(conversationID string) *Store {
	return &Store{
		conversationID: conversationID,
		index:          make(map[string]int),
	}
}

// SetObserver registers fn to run after every mutation. fn is called without
// the store lock held, so it may read the store.
func (s *Store) SetObserver(fn func()) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// ConversationID returns the conversation the transcript belongs to.
func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendOptimistic appends msg to the end of the transcript before the
// server has acknowledged it. Missing IDs and timestamps are filled in.
func (s *Store) AppendOptimistic(msg model.Message) model.Message {
	if msg.ID == "" {
		msg.ID = model.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	if msg.ConversationID == "" {
		msg.ConversationID = s.conversationID
	}
	s.appendLocked(&entry{msg: msg})
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
	return msg
}

// BeginAssistantPlaceholder appends an empty assistant message attributed to
// modelHint and returns its ID. The placeholder accepts deltas until it is
// finalized or rolled back.
func (s *Store) BeginAssistantPlaceholder(modelHint string) string {
	msg := model.NewAssistantMessage(modelHint)

	s.mu.Lock()
	msg.ConversationID = s.conversationID
	s.appendLocked(&entry{msg: msg, open: true})
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
	return msg.ID
}

// AppendDelta concatenates delta onto the placeholder id and returns the
// full content so far.
func (s *Store) AppendDelta(id, delta string) (string, error) {
	s.mu.Lock()
	e, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return "", ErrNotFound
	}
	if !e.open {
		s.mu.Unlock()
		return "", ErrInvalidState
	}
	e.content.WriteString(delta)
	content := e.content.String()
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
	return content, nil
}

// Finalize freezes the placeholder's content.
func (s *Store) Finalize(id string) error {
	s.mu.Lock()
	e, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !e.open {
		s.mu.Unlock()
		return ErrInvalidState
	}
	e.msg.Content = e.content.String()
	e.content.Reset()
	e.open = false
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
	return nil
}

// RollbackFailure replaces whatever partial content the placeholder holds
// with fallback and freezes it.
func (s *Store) RollbackFailure(id, fallback string) error {
	s.mu.Lock()
	e, ok := s.lookupLocked(id)
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !e.open {
		s.mu.Unlock()
		return ErrInvalidState
	}
	e.msg.Content = fallback
	e.content.Reset()
	e.open = false
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
	return nil
}

// ReplaceAll swaps in the transcript of another conversation. Any open
// placeholder is dropped with the old transcript.
func (s *Store) ReplaceAll(conversationID string, msgs []model.Message) {
	s.mu.Lock()
	s.conversationID = conversationID
	s.entries = make([]*entry, 0, len(msgs))
	s.index = make(map[string]int, len(msgs))
	for _, m := range msgs {
		s.appendLocked(&entry{msg: m})
	}
	fn := s.observer
	s.mu.Unlock()

	notify(fn)
}

// =============================================================================
// READS
// =============================================================================

// Messages returns a snapshot of the transcript. Open placeholders report
// the content streamed so far.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.snapshot()
	}
	return out
}

// Get returns the message with the given ID.
func (s *Store) Get(id string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookupLocked(id)
	if !ok {
		return model.Message{}, false
	}
	return e.snapshot(), true
}

// IsOpen reports whether id is a placeholder still accepting deltas.
func (s *Store) IsOpen(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.lookupLocked(id)
	return ok && e.open
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) appendLocked(e *entry) {
	s.index[e.msg.ID] = len(s.entries)
	s.entries = append(s.entries, e)
}

func (s *Store) lookupLocked(id string) (*entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.entries[i], true
}

func (e *entry) snapshot() model.Message {
	msg := e.msg
	if e.open {
		msg.Content = e.content.String()
	}
	return msg
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
