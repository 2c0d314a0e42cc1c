// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ChatRequest is the body of a streaming chat request.
type ChatRequest struct {
	Content        string   `json:"content"`
	ConversationID string   `json:"conversation_id"`
	Model          string   `json:"model"`
	TaskType       TaskType `json:"task_type"`
}
