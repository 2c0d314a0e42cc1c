// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"strings"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// createConversationRequest is the body for POST /api/conversations.
type createConversationRequest struct {
	Title string `json:"title"`
}

// loginRequest is the body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// apiError is the error body the server sends with non-2xx responses.
type apiError struct {
	Detail string `json:"detail"`
}

// loginResponse is returned by POST /api/auth/login.
type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// User is the account a token belongs to.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// wireMessage is a transcript entry as the server sends it. Timestamps are
// kept as strings because the server does not always include a zone.
type wireMessage struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Content        string  `json:"content"`
	Role           string  `json:"role"`
	ModelUsed      *string `json:"model_used"`
	Timestamp      string  `json:"timestamp"`
}

func (w wireMessage) toModel() model.Message {
	msg := model.Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		Role:           model.Role(w.Role),
		Content:        w.Content,
		Timestamp:      parseTime(w.Timestamp),
	}
	if w.ModelUsed != nil {
		msg.ModelUsed = *w.ModelUsed
	}
	return msg
}

// wireConversation is conversation metadata as the server sends it.
type wireConversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (w wireConversation) toModel() model.Conversation {
	return model.Conversation{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: parseTime(w.CreatedAt),
		UpdatedAt: parseTime(w.UpdatedAt),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// timeLayouts are tried in order. Zone-less values are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime returns the zero time for values it cannot parse.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
