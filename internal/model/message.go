// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// IsValid reports whether r is a role the workspace accepts.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation transcript.
//
// Messages created locally before the server has seen them carry a locally
// generated ID; messages loaded from history keep the server's ID.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`

	// ModelUsed names the model that produced an assistant message.
	// Set when the message is created and never changed afterwards.
	ModelUsed string `json:"model_used,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty assistant message attributed to modelID.
func NewAssistantMessage(modelID string) Message {
	msg := NewMessage(RoleAssistant, "")
	msg.ModelUsed = modelID
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// Badge returns the short provider badge shown next to assistant messages.
func (m Message) Badge() string {
	if m.Role != RoleAssistant {
		return ""
	}
	return BadgeFor(m.ModelUsed)
}

// FormatTime returns the message time as shown in the transcript.
func (m Message) FormatTime() string {
	if m.Timestamp.IsZero() {
		return ""
	}
	return m.Timestamp.Local().Format("15:04")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// NewID returns a fresh locally generated identifier.
func NewID() string {
	return uuid.NewString()
}
