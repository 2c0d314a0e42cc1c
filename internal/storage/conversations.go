// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// StoredConversation is the cached copy of one conversation.
type StoredConversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transcript snapshot as of the last save
	Messages []model.Message `json:"messages"`
}

// Conversation returns the conversation metadata.
func (c *StoredConversation) Conversation() model.Conversation {
	return model.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// =============================================================================
// CONVERSATION CACHE
// =============================================================================

// ConversationCache keeps one JSON file per conversation. It backs the
// conversation list ordering and serves transcripts when the server is
// unreachable.
type ConversationCache struct {
	// BaseDir is the directory for cached conversations
	// Default: ~/.claudie/conversations/
	BaseDir string

	// MaxConversations limits cached conversations (0 = unlimited)
	MaxConversations int

	// Clock is used for new entries (default: time.Now)
	Clock func() time.Time

	mu sync.Mutex
}

// NewConversationCache creates a cache under ~/.claudie/conversations.
func NewConversationCache() (*ConversationCache, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewConversationCacheWithDir(filepath.Join(homeDir, ".claudie", "conversations"))
}

// NewConversationCacheWithDir creates a cache with a custom directory.
func NewConversationCacheWithDir(baseDir string) (*ConversationCache, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	return &ConversationCache{
		BaseDir:          baseDir,
		MaxConversations: 200,
		Clock:            time.Now,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Upsert records conversation metadata, keeping any cached transcript.
// UpdatedAt never moves backwards.
func (s *ConversationCache) Upsert(conv model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadLocked(conv.ID)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		stored = &StoredConversation{ID: conv.ID, CreatedAt: conv.CreatedAt, UpdatedAt: conv.UpdatedAt}
	}

	if conv.Title != "" {
		stored.Title = conv.Title
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = conv.CreatedAt
	}
	if conv.UpdatedAt.After(stored.UpdatedAt) {
		stored.UpdatedAt = conv.UpdatedAt
	}
	return s.saveLocked(stored)
}

// SaveMessages replaces the cached transcript of a conversation.
func (s *ConversationCache) SaveMessages(conversationID string, msgs []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadOrNewLocked(conversationID)
	if err != nil {
		return err
	}

	stored.Messages = slices.Clone(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && msgs[i].ModelUsed != "" {
			stored.Model = msgs[i].ModelUsed
			break
		}
	}
	return s.saveLocked(stored)
}

// Bump marks a conversation as updated at the given time. It satisfies
// the session registry so a completed exchange moves its conversation to
// the top of the list.
func (s *ConversationCache) Bump(ctx context.Context, conversationID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadOrNewLocked(conversationID)
	if err != nil {
		return err
	}

	conv := stored.Conversation()
	conv.Touch(at)
	stored.UpdatedAt = conv.UpdatedAt
	return s.saveLocked(stored)
}

func (s *ConversationCache) loadOrNewLocked(id string) (*StoredConversation, error) {
	stored, err := s.loadLocked(id)
	if err == nil {
		return stored, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	now := s.Clock()
	return &StoredConversation{ID: id, Title: model.DefaultTitle, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *ConversationCache) saveLocked(conv *StoredConversation) error {
	if conv.ID == "" || strings.ContainsAny(conv.ID, `/\`) || conv.ID == "." || conv.ID == ".." {
		return &ConversationError{Message: "invalid conversation id"}
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents a torn file on crash
	if err := util.AtomicWriteFile(s.filePath(conv.ID), data, 0600); err != nil {
		return err
	}

	if s.MaxConversations > 0 {
		s.enforceLimitLocked()
	}
	return nil
}

// enforceLimitLocked removes the least recently updated conversations.
func (s *ConversationCache) enforceLimitLocked() {
	metas, err := s.listLocked()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	// metas is newest first
	for _, meta := range metas[s.MaxConversations:] {
		if err := os.Remove(s.filePath(meta.ID)); err != nil {
			log.Printf("CACHE_EVICT_ERROR | id=%s error=%v", meta.ID, err)
		}
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a cached conversation by ID.
func (s *ConversationCache) Load(id string) (*StoredConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

func (s *ConversationCache) loadLocked(id string) (*StoredConversation, error) {
	if id == "" {
		return nil, ErrConversationNotFound
	}

	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv StoredConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListMessages returns the cached transcript. It satisfies the session
// history provider for offline use.
func (s *ConversationCache) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conv, err := s.Load(conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all cached conversations, most recently updated first.
func (s *ConversationCache) List() ([]ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *ConversationCache) listLocked() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	metas := make([]ConversationMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		conv, err := s.loadLocked(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // Skip corrupted files
		}

		metas = append(metas, ConversationMeta{
			ID:           conv.ID,
			Title:        conv.Title,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
			Preview:      conv.GetPreview(),
		})
	}

	slices.SortStableFunc(metas, func(a, b ConversationMeta) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return metas, nil
}

// Conversations returns the cached conversation metadata in list order.
func (s *ConversationCache) Conversations() ([]model.Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	convs := make([]model.Conversation, len(metas))
	for i, m := range metas {
		convs[i] = model.Conversation{ID: m.ID, Title: m.Title, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	}
	return convs, nil
}

// Search finds conversations whose title or any message contains query
// (case-insensitive). An empty query returns everything.
func (s *ConversationCache) Search(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil || query == "" {
		return all, err
	}

	query = strings.ToLower(query)
	var results []ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) {
			results = append(results, meta)
			continue
		}

		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a cached conversation.
func (s *ConversationCache) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *ConversationCache) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation isn't cached.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a cache error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func isNotFound(err error) bool {
	ce, ok := err.(*ConversationError)
	return ok && ce == ErrConversationNotFound
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatConversationList renders conversations as a table with relative
// dates, as shown by the conversations command.
func FormatConversationList(metas []ConversationMeta, now time.Time) string {
	if len(metas) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadWidth("#", 4) + util.PadWidth("Title", 30) + util.PadWidth("Updated", 14) + util.PadWidth("Msgs", 6) + "ID\n")
	sb.WriteString(strings.Repeat("-", 70) + "\n")

	for i, m := range metas {
		sb.WriteString(util.PadWidth(strconv.Itoa(i+1), 4))
		sb.WriteString(util.PadWidth(model.TruncateTitle(m.Title, model.TitleMaxLen), 30))
		sb.WriteString(util.PadWidth(model.RelativeDate(m.UpdatedAt, now), 14))
		sb.WriteString(util.PadWidth(strconv.Itoa(m.MessageCount), 6))
		sb.WriteString(m.ID + "\n")
	}
	return sb.String()
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the transcript as Markdown.
func (c *StoredConversation) ExportMarkdown() string {
	var sb strings.Builder
	title := c.Title
	if title == "" {
		title = model.DefaultTitle
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Conversation: " + c.ID + "\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		header := "**" + msg.Role.DisplayName() + "**"
		if badge := msg.Badge(); badge != "" {
			header += " [" + badge + "]"
		}
		sb.WriteString(header + " (" + msg.FormatTime() + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON returns the conversation as pretty-printed JSON.
func (c *StoredConversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// GetPreview returns the first user message, truncated.
func (c *StoredConversation) GetPreview() string {
	for _, msg := range c.Messages {
		if msg.Role == model.RoleUser && msg.Content != "" {
			return util.TruncateWidth(util.FirstLine(msg.Content), 80)
		}
	}
	return ""
}
