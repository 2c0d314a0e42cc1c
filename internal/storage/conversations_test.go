// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/claudie-tui/internal/model"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) *ConversationCache {
	t.Helper()
	cache, err := NewConversationCacheWithDir(t.TempDir())
	require.NoError(t, err)
	cache.Clock = func() time.Time { return base }
	return cache
}

func sampleMessages() []model.Message {
	return []model.Message{
		{ID: "m1", ConversationID: "c1", Role: model.RoleUser, Content: "How do I reverse a list?", Timestamp: base},
		{ID: "m2", ConversationID: "c1", Role: model.RoleAssistant, Content: "Use slices.Reverse.", Timestamp: base.Add(time.Second), ModelUsed: "claude-3-5-sonnet-20241022"},
	}
}

// =============================================================================
// CONVERSATION CACHE TESTS
// =============================================================================

func TestNewConversationCacheWithDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "conversations")

	cache, err := NewConversationCacheWithDir(dir)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	if cache.BaseDir != dir {
		t.Errorf("BaseDir = %q, want %q", cache.BaseDir, dir)
	}
	if cache.MaxConversations != 200 {
		t.Errorf("MaxConversations = %d, want 200", cache.MaxConversations)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestConversationCache_UpsertAndLoad(t *testing.T) {
	cache := newTestCache(t)

	conv := model.Conversation{ID: "c1", Title: "Lists", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, cache.Upsert(conv))
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))

	loaded, err := cache.Load("c1")
	require.NoError(t, err)
	assert.Equal(t, "Lists", loaded.Title)
	assert.Equal(t, "claude-3-5-sonnet-20241022", loaded.Model)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "Use slices.Reverse.", loaded.Messages[1].Content)
	assert.True(t, loaded.Messages[0].Timestamp.Equal(base))

	// Upsert keeps the transcript and never moves UpdatedAt back
	require.NoError(t, cache.Upsert(model.Conversation{ID: "c1", Title: "Renamed", UpdatedAt: base.Add(-time.Hour)}))
	loaded, err = cache.Load("c1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Title)
	assert.Len(t, loaded.Messages, 2)
	assert.True(t, loaded.UpdatedAt.Equal(base))
}

func TestConversationCache_LoadNotFound(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Load("nonexistent")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationCache_RejectsPathIDs(t *testing.T) {
	cache := newTestCache(t)

	for _, id := range []string{"../escape", "a/b", ".."} {
		err := cache.SaveMessages(id, nil)
		assert.Error(t, err, "id %q", id)
	}
}

func TestConversationCache_Delete(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))

	require.NoError(t, cache.Delete("c1"))

	_, err := cache.Load("c1")
	assert.True(t, errors.Is(err, ErrConversationNotFound))
	assert.True(t, errors.Is(cache.Delete("c1"), ErrConversationNotFound))
}

// =============================================================================
// BUMP TESTS
// =============================================================================

func TestConversationCache_BumpReorders(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Upsert(model.Conversation{ID: "old", Title: "Old", CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, cache.Upsert(model.Conversation{ID: "new", Title: "New", CreatedAt: base, UpdatedAt: base.Add(time.Hour)}))

	metas, err := cache.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "new", metas[0].ID)

	require.NoError(t, cache.Bump(context.Background(), "old", base.Add(2*time.Hour)))

	metas, err = cache.List()
	require.NoError(t, err)
	assert.Equal(t, "old", metas[0].ID)
	assert.True(t, metas[0].UpdatedAt.Equal(base.Add(2*time.Hour)))
}

func TestConversationCache_BumpNeverMovesBack(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Upsert(model.Conversation{ID: "c1", CreatedAt: base, UpdatedAt: base}))

	require.NoError(t, cache.Bump(context.Background(), "c1", base.Add(-time.Minute)))

	loaded, err := cache.Load("c1")
	require.NoError(t, err)
	assert.True(t, loaded.UpdatedAt.Equal(base))
}

func TestConversationCache_BumpUnknownCreatesEntry(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Bump(context.Background(), "fresh", base.Add(time.Minute)))

	loaded, err := cache.Load("fresh")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, loaded.Title)
	assert.True(t, loaded.UpdatedAt.Equal(base.Add(time.Minute)))
}

func TestConversationCache_BumpCancelled(t *testing.T) {
	cache := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, cache.Bump(ctx, "c1", base), context.Canceled)
}

// =============================================================================
// LIST AND SEARCH TESTS
// =============================================================================

func TestConversationCache_ListSkipsCorrupt(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))
	require.NoError(t, os.WriteFile(filepath.Join(cache.BaseDir, "broken.json"), []byte("{"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(cache.BaseDir, "notes.txt"), []byte("x"), 0600))

	metas, err := cache.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 2, metas[0].MessageCount)
	assert.Equal(t, "How do I reverse a list?", metas[0].Preview)
}

func TestConversationCache_Search(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Upsert(model.Conversation{ID: "c1", Title: "Go questions", UpdatedAt: base}))
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))
	require.NoError(t, cache.Upsert(model.Conversation{ID: "c2", Title: "Recipes", UpdatedAt: base}))

	tests := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"go", 1},
		{"SLICES.REVERSE", 1},
		{"recipes", 1},
		{"nothing matches", 0},
	}
	for _, tt := range tests {
		results, err := cache.Search(tt.query)
		require.NoError(t, err)
		assert.Len(t, results, tt.want, "query %q", tt.query)
	}
}

func TestConversationCache_EnforceLimit(t *testing.T) {
	cache := newTestCache(t)
	cache.MaxConversations = 2

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, cache.Upsert(model.Conversation{ID: id, CreatedAt: at, UpdatedAt: at}))
	}

	metas, err := cache.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "c", metas[0].ID)
	assert.Equal(t, "b", metas[1].ID)
}

func TestConversationCache_Conversations(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Upsert(model.Conversation{ID: "c1", Title: "One", CreatedAt: base, UpdatedAt: base}))

	convs, err := cache.Conversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "One", convs[0].Title)
}

func TestFormatConversationList(t *testing.T) {
	if got := FormatConversationList(nil, base); got != "No conversations found." {
		t.Errorf("empty list = %q", got)
	}

	out := FormatConversationList([]ConversationMeta{
		{ID: "c1", Title: "A very long conversation title that keeps going", UpdatedAt: base, MessageCount: 4},
		{ID: "c2", Title: "Short", UpdatedAt: base.Add(-24 * time.Hour), MessageCount: 1},
	}, base)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "A very long conversation ...")
	assert.Contains(t, lines[2], "Today")
	assert.Contains(t, lines[3], "Yesterday")
	assert.True(t, strings.HasSuffix(lines[3], "c2"))
}

// =============================================================================
// CACHED HISTORY TESTS
// =============================================================================

type stubSource struct {
	msgs []model.Message
	err  error
}

func (s stubSource) ListMessages(context.Context, string) ([]model.Message, error) {
	return s.msgs, s.err
}

func TestCachedHistory_SavesRemote(t *testing.T) {
	cache := newTestCache(t)
	h := &CachedHistory{Remote: stubSource{msgs: sampleMessages()}, Cache: cache}

	msgs, err := h.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	cached, err := cache.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestCachedHistory_FallsBackToCache(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))
	remoteErr := errors.New("connection refused")
	h := &CachedHistory{Remote: stubSource{err: remoteErr}, Cache: cache}

	msgs, err := h.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = h.ListMessages(context.Background(), "unknown")
	assert.ErrorIs(t, err, remoteErr)
}

func TestCachedHistory_CancelledDoesNotFallBack(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.SaveMessages("c1", sampleMessages()))
	h := &CachedHistory{Remote: stubSource{err: context.Canceled}, Cache: cache}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.ListMessages(ctx, "c1")
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestStoredConversation_ExportMarkdown(t *testing.T) {
	conv := &StoredConversation{ID: "c1", Title: "Lists", CreatedAt: base, Messages: sampleMessages()}

	md := conv.ExportMarkdown()

	assert.True(t, strings.HasPrefix(md, "# Lists\n"))
	assert.Contains(t, md, "Conversation: c1")
	assert.Contains(t, md, "**You**")
	assert.Contains(t, md, "**Assistant** [CLAUDE]")
	assert.Contains(t, md, "Use slices.Reverse.")
}

func TestStoredConversation_ExportJSON(t *testing.T) {
	conv := &StoredConversation{ID: "c1", Title: "Lists", CreatedAt: base, UpdatedAt: base, Messages: sampleMessages()}

	data, err := conv.ExportJSON()
	require.NoError(t, err)

	var decoded StoredConversation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "c1", decoded.ID)
	assert.Len(t, decoded.Messages, 2)
}

func TestStoredConversation_GetPreview(t *testing.T) {
	conv := &StoredConversation{Messages: []model.Message{
		{Role: model.RoleAssistant, Content: "ignored"},
		{Role: model.RoleUser, Content: "first line\nsecond line"},
	}}
	if got := conv.GetPreview(); got != "first line" {
		t.Errorf("GetPreview() = %q", got)
	}

	empty := &StoredConversation{}
	if got := empty.GetPreview(); got != "" {
		t.Errorf("GetPreview() on empty = %q", got)
	}
}

func TestConversationError_Is(t *testing.T) {
	err := &ConversationError{Message: "conversation not found"}
	if !errors.Is(err, ErrConversationNotFound) {
		t.Error("errors with the same message should match")
	}
	if errors.Is(&ConversationError{Message: "other"}, ErrConversationNotFound) {
		t.Error("different messages should not match")
	}
}
