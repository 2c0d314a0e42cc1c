// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the chat view:
//   - Session: store/projector changes and session completion
//   - Conversation: list loads and selection results
//   - Config: live reloads of the config file
//   - Status: clipboard results and status expiry

package chat

import (
	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// changedMsg reports that the transcript or the projection changed.
type changedMsg struct{}

// sessionDoneMsg reports that a session reached a terminal phase.
type sessionDoneMsg struct {
	SessionID string
	Err       error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// conversationsLoadedMsg carries the conversation list.
type conversationsLoadedMsg struct {
	Conversations []model.Conversation
	Err           error
}

// conversationSelectedMsg reports the result of switching conversation.
// Pending is the submission that was waiting for the conversation.
type conversationSelectedMsg struct {
	Conversation model.Conversation
	Pending      string
	Err          error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg delivers a reloaded config file. Err is set when the
// file failed to load or validate.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// clipboardMsg reports a copy result.
type clipboardMsg struct {
	Chars int
	Err   error
}

// clearStatusMsg expires a status message. Seq guards against clearing a
// newer message.
type clearStatusMsg struct {
	Seq int
}
