// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strconv"
	"time"
)

// DefaultTitle is used for conversations created without a title.
const DefaultTitle = "New Chat"

// TitleMaxLen is the sidebar title length before truncation.
const TitleMaxLen = 25

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the metadata for a chat thread. Messages are held
// separately; the streaming client only ever touches UpdatedAt.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a conversation with a generated ID.
func NewConversation(title string) Conversation {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now()
	return Conversation{
		ID:        NewID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch moves UpdatedAt forward to at. Earlier times are ignored so a late
// bump never reorders a conversation backwards.
func (c *Conversation) Touch(at time.Time) {
	if at.After(c.UpdatedAt) {
		c.UpdatedAt = at
	}
}

// ShortTitle returns the title truncated for list display.
func (c Conversation) ShortTitle() string {
	return TruncateTitle(c.Title, TitleMaxLen)
}

// =============================================================================
// LIST HELPERS
// =============================================================================

// SortByUpdated orders conversations most recently updated first.
func SortByUpdated(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

// TruncateTitle cuts title to maxLen runes and marks the cut with "...".
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + "..."
}

// RelativeDate formats t relative to now the way the conversation list
// shows it: "Today", "Yesterday", "N days ago" within a week, otherwise the
// calendar date.
func RelativeDate(t, now time.Time) string {
	y1, m1, d1 := t.Local().Date()
	y2, m2, d2 := now.Local().Date()
	day1 := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)

	days := int(day2.Sub(day1).Hours() / 24)
	if days < 0 {
		days = -days
	}

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days <= 6:
		return strconv.Itoa(days) + " days ago"
	default:
		return t.Local().Format("2006-01-02")
	}
}
