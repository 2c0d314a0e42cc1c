// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI commands of claudie.
//
// # Key Types
//
//   - Command: Enumeration of the available commands
//   - Args: Parsed global flags plus command-specific positionals and options
//   - App: The client, cache and config shared by every command
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	app, err := cli.NewApp(cfg, args)
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.RunAsk(ctx, app, args, os.Stdin, os.Stdout, os.Stderr)
//	case cli.CmdChat:
//	    err = cli.RunChat(ctx, app, args)
//	}
//	os.Exit(cli.GetExitCode(err))
//
// Replies are rendered as markdown only when stdout is a terminal. Every
// listing command supports --json.
package cli
