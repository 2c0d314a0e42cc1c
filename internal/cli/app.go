// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jeranaias/claudie-tui/internal/client"
	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/session"
	"github.com/jeranaias/claudie-tui/internal/storage"
)

// =============================================================================
// APP WIRING
// =============================================================================

// App holds the collaborators every command shares.
type App struct {
	Config *config.Config
	Client *client.Client

	// Cache is nil when the local cache is disabled or unavailable
	Cache *storage.ConversationCache
}

// NewApp builds the client and cache from cfg, applying command-line
// overrides from args.
func NewApp(cfg *config.Config, args Args) (*App, error) {
	if args.ServerURL != "" {
		cfg.Server.BaseURL = args.ServerURL
	}
	if args.Model != "" {
		cfg.Chat.DefaultModel = args.Model
	}
	if args.TaskType != "" {
		if _, err := model.ParseTaskType(args.TaskType); err != nil {
			return nil, NewValidationError("task", args.TaskType, err.Error())
		}
		cfg.Chat.DefaultTaskType = args.TaskType
	}

	var creds client.CredentialProvider = client.EnvToken(cfg.Auth.TokenEnv)
	if cfg.Auth.Token != "" {
		creds = client.StaticToken(cfg.Auth.Token)
	}

	app := &App{
		Config: cfg,
		Client: client.NewClient(&client.Config{
			BaseURL:           cfg.Server.BaseURL,
			Timeout:           cfg.Timeout(),
			ConnectTimeout:    cfg.Timeout(),
			RequestsPerSecond: cfg.Server.RequestsPerSecond,
			Credentials:       creds,
			UserAgent:         "claudie-tui/" + Version,
		}),
	}

	if !cfg.Storage.Disabled {
		dir, err := cfg.StorageDir()
		if err == nil {
			app.Cache, err = storage.NewConversationCacheWithDir(dir)
		}
		if err != nil {
			log.Printf("CACHE_UNAVAILABLE | error=%v", err)
			app.Cache = nil
		} else {
			app.Cache.MaxConversations = cfg.Storage.MaxConversations
		}
	}

	return app, nil
}

// NewController builds a session controller wired to the client and cache.
// onEvent may be nil.
func (a *App) NewController(onEvent func(session.Event)) *session.Controller {
	cfg := session.Config{
		Transport:    a.Client,
		History:      a.Client,
		Model:        a.Config.Chat.DefaultModel,
		TaskType:     a.Config.TaskType(),
		FallbackText: a.Config.Chat.FallbackText,
		IdleTimeout:  a.Config.IdleTimeout(),
		OnEvent:      onEvent,
	}
	if a.Cache != nil {
		cfg.History = &storage.CachedHistory{Remote: a.Client, Cache: a.Cache}
		cfg.Registry = a.Cache
	}
	return session.NewController(cfg)
}

// ListConversations returns the server's conversations, recording them in
// the cache. When the server is unreachable the cached list is returned.
func (a *App) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	convs, err := a.Client.ListConversations(ctx)
	if err == nil {
		if a.Cache != nil {
			for _, c := range convs {
				if cerr := a.Cache.Upsert(c); cerr != nil {
					log.Printf("CACHE_SAVE_ERROR | conversation=%s error=%v", c.ID, cerr)
				}
			}
			// Local bumps may be newer than the server's timestamps
			if cached, cerr := a.Cache.Conversations(); cerr == nil {
				return mergeConversations(convs, cached), nil
			}
		}
		return convs, nil
	}

	if a.Cache == nil || client.IsUnauthorized(err) {
		return nil, err
	}
	cached, cerr := a.Cache.Conversations()
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}
	log.Printf("CONVERSATIONS_FROM_CACHE | count=%d remote_error=%v", len(cached), err)
	return cached, nil
}

// mergeConversations keeps the server's set and titles, taking the later
// UpdatedAt of the two sources.
func mergeConversations(remote, cached []model.Conversation) []model.Conversation {
	updated := make(map[string]model.Conversation, len(cached))
	for _, c := range cached {
		updated[c.ID] = c
	}
	out := make([]model.Conversation, len(remote))
	for i, c := range remote {
		if local, ok := updated[c.ID]; ok {
			c.Touch(local.UpdatedAt)
		}
		out[i] = c
	}
	model.SortByUpdated(out)
	return out
}

// ResolveConversation finds a conversation by id, list index (1-based) or
// title prefix.
func (a *App) ResolveConversation(ctx context.Context, ref string) (model.Conversation, error) {
	convs, err := a.ListConversations(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	if c, ok := findConversation(convs, ref); ok {
		return c, nil
	}
	return model.Conversation{}, NewNotFoundError("conversation", ref)
}

// OpenOrCreate resolves ref, or creates a new conversation when ref is empty.
func (a *App) OpenOrCreate(ctx context.Context, ref string) (model.Conversation, error) {
	if ref != "" {
		return a.ResolveConversation(ctx, ref)
	}
	return a.CreateConversation(ctx, model.DefaultTitle)
}

// CreateConversation creates a conversation on the server and records it in
// the cache. An empty title gets the default.
func (a *App) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	if title == "" {
		title = model.DefaultTitle
	}
	conv, err := a.Client.CreateConversation(ctx, title)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if a.Cache != nil {
		if cerr := a.Cache.Upsert(conv); cerr != nil {
			log.Printf("CACHE_SAVE_ERROR | conversation=%s error=%v", conv.ID, cerr)
		}
	}
	return conv, nil
}

// SaveTranscript writes the controller's transcript to the cache.
func (a *App) SaveTranscript(ctrl *session.Controller) {
	if a.Cache == nil {
		return
	}
	conv, ok := ctrl.Conversation()
	if !ok {
		return
	}
	if err := a.Cache.SaveMessages(conv.ID, ctrl.Store().Messages()); err != nil {
		log.Printf("CACHE_SAVE_ERROR | conversation=%s error=%v", conv.ID, err)
	}
}
