// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local conversation cache for claudie.
//
// The server owns conversations; this package keeps a JSON copy of each
// one's metadata and last known transcript so the conversation list can be
// ordered by recent activity and transcripts stay readable offline.
//
// # Key Types
//
//   - ConversationCache: one file per conversation, newest first
//   - StoredConversation: cached metadata plus transcript snapshot
//   - ConversationMeta: lightweight metadata for listing
//   - CachedHistory: remote transcript loads with cache fallback
//
// # Usage
//
//	cache, err := storage.NewConversationCache()
//	err = cache.Bump(ctx, convID, time.Now())
//	metas, err := cache.List()
//	md := conv.ExportMarkdown()
//
// # Storage Location
//
// Conversations are cached in ~/.claudie/conversations/ as JSON files.
package storage
