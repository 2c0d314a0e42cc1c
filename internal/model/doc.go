// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the domain types shared by the stream client, the
// local cache and the terminal UI.
//
// # Key Types
//
//   - Conversation: metadata for a chat thread (title, created/updated times)
//   - Message: a transcript entry with role, content and producing model
//   - ModelInfo: a model offered by the workspace backend
//   - TaskType: the user's intent sent with each request (general, code, ...)
//
// # Usage
//
//	msg := model.NewUserMessage("Explain this stack trace")
//	badge := model.BadgeFor("claude-3-5-sonnet-20241022") // "CLAUDE"
//	task, err := model.ParseTaskType("review")
package model
