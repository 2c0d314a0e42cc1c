// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for claudie.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Workspace API location, timeouts and request pacing
//   - ChatConfig: Default model, task type and failure text
//   - AuthConfig: Where the bearer token comes from
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CLAUDIE_*), including ./.env and ~/.claudie/.env
//   - ~/.claudie/config.toml
//   - ~/.claudie/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Timeout()
//	_ = cfg.Set("chat.default_model", "gpt-4o-mini")
//	err = config.Save(cfg)
package config
