// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for claudie.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Change one value and save the config file
//   keys                List every key
//   path                Show the configuration file path
//
// Examples:
//   claudie config set server.base_url http://workspace.internal:8001
//   claudie config set chat.default_model claude-3-5-sonnet-20241022
//   claudie config get ui.markdown
//   claudie config show --json
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/claudie-tui/internal/config"
)

// secretKeys are masked whenever a value is printed.
var secretKeys = map[string]bool{"auth.token": true}

// RunConfig handles the config command.
func RunConfig(cfg *config.Config, args Args, out io.Writer) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return configShow(cfg, args.JSON, out)

	case "get":
		key := positional(args, 1)
		if key == "" {
			return ErrMissingArgument("key", "claudie config get server.base_url")
		}
		value, err := cfg.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]any{"key": key, "value": maskIfSecret(key, value)}).Write(out)
		}
		fmt.Fprintln(out, maskIfSecret(key, value))
		return nil

	case "set":
		key, value := positional(args, 1), strings.Join(positionalFrom(args, 2), " ")
		if key == "" || value == "" {
			return ErrMissingArgument("key and value", "claudie config set chat.default_model gpt-4o-mini")
		}
		if err := cfg.Set(key, value); err != nil {
			return NewValidationError("key", key, err.Error())
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return NewCommandError("config", "set", "could not save config", err)
		}
		fmt.Fprintf(out, "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, maskIfSecret(key, value))
		return nil

	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Fprintln(out, key)
		}
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Write(out)
		}
		fmt.Fprintln(out, path)
		return nil

	default:
		return NewValidationError("subcommand", args.Subcommand, "expected show, get, set, keys or path")
	}
}

func configShow(cfg *config.Config, jsonMode bool, out io.Writer) error {
	if jsonMode {
		safe := cfg.Clone()
		if safe.Auth.Token != "" {
			safe.Auth.Token = maskToken(safe.Auth.Token)
		}
		return NewJSONResponse("config show", safe).Write(out)
	}

	fmt.Fprintln(out, TitleStyle.Render("claudie configuration"))
	section := ""
	for _, key := range config.GetAllKeys() {
		sec, name, _ := strings.Cut(key, ".")
		if sec != section {
			section = sec
			fmt.Fprintln(out)
			fmt.Fprintln(out, TitleStyle.Render("["+sec+"]"))
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(out, "  %s %v\n", LabelStyle.Width(20).Render(name), maskIfSecret(key, value))
	}
	if path, err := config.ConfigPathTOML(); err == nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, DimStyle.Render("File: "+path))
	}
	return nil
}

func maskIfSecret(key string, value any) any {
	if !secretKeys[key] {
		return value
	}
	s, _ := value.(string)
	return maskToken(s)
}

// maskToken keeps the last four characters of long tokens.
func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 8:
		return "********"
	default:
		return "********" + token[len(token)-4:]
	}
}

func positional(args Args, i int) string {
	if i < len(args.Positional) {
		return args.Positional[i]
	}
	return ""
}

func positionalFrom(args Args, i int) []string {
	if i < len(args.Positional) {
		return args.Positional[i:]
	}
	return nil
}
