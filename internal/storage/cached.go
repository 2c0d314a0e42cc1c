// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"log"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// MessageSource loads a conversation transcript.
type MessageSource interface {
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// CachedHistory loads transcripts from the server and keeps the cache in
// step. When the server fails, the cached copy is served instead.
type CachedHistory struct {
	Remote MessageSource
	Cache  *ConversationCache
}

// ListMessages returns the remote transcript, falling back to the cache.
func (h *CachedHistory) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	msgs, err := h.Remote.ListMessages(ctx, conversationID)
	if err == nil {
		if cerr := h.Cache.SaveMessages(conversationID, msgs); cerr != nil {
			log.Printf("CACHE_SAVE_ERROR | conversation=%s error=%v", conversationID, cerr)
		}
		return msgs, nil
	}

	// A cancelled load is superseded; the cache must not answer for it.
	if ctx.Err() != nil {
		return nil, err
	}

	cached, cerr := h.Cache.ListMessages(ctx, conversationID)
	if cerr != nil {
		if !errors.Is(cerr, ErrConversationNotFound) {
			log.Printf("CACHE_LOAD_ERROR | conversation=%s error=%v", conversationID, cerr)
		}
		return nil, err
	}

	log.Printf("HISTORY_FROM_CACHE | conversation=%s messages=%d remote_error=%v", conversationID, len(cached), err)
	return cached, nil
}
