// claudie - streaming chat client for the Claudie workspace.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/claudie-tui/internal/cli"
	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/ui/chat"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return
	}

	closeLog := setupLogging(cmd, args.Verbose)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cmd, args)
	stop()

	if err != nil {
		cli.DisplayError(os.Stderr, err, args.JSON)
		closeLog()
		os.Exit(cli.GetExitCode(err))
	}
}

func run(ctx context.Context, cmd cli.Command, args cli.Args) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// config works on the file alone and must run even when it is broken
	// enough that no client can be built.
	if cmd == cli.CmdConfig {
		return cli.RunConfig(cfg, args, os.Stdout)
	}

	app, err := cli.NewApp(cfg, args)
	if err != nil {
		return err
	}

	switch cmd {
	case cli.CmdTUI:
		return runTUI(ctx, app, args)
	case cli.CmdAsk:
		return cli.RunAsk(ctx, app, args, os.Stdin, os.Stdout, os.Stderr)
	case cli.CmdChat:
		return cli.RunChat(ctx, app, args)
	case cli.CmdConversations:
		return cli.RunConversations(ctx, app, args, os.Stdout)
	case cli.CmdLogin:
		return cli.RunLogin(ctx, app, args, os.Stdin, os.Stdout)
	default:
		cli.PrintUsage(os.Stderr)
		return nil
	}
}

// setupLogging sends the log to the log file. Verbose line-mode commands
// log to stderr instead; the TUI never does since it owns the terminal.
func setupLogging(cmd cli.Command, verbose bool) func() {
	if verbose && cmd != cli.CmdTUI {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	path, err := config.LogPath()
	if err == nil {
		err = config.EnsureConfigDir()
	}
	if err == nil {
		var f *os.File
		if f, err = tea.LogToFile(path, "claudie"); err == nil {
			return func() { f.Close() }
		}
	}
	log.SetOutput(io.Discard)
	return func() {}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(ctx context.Context, app *cli.App, args cli.Args) error {
	cfg := app.Config
	theme := styles.NewTheme(cfg.UI.Theme)

	ctrl := app.NewController(nil)
	m := chat.New(ctx, app, ctrl, chat.Options{
		Theme:          theme,
		Markdown:       cfg.UI.Markdown && !args.NoMarkdown,
		ShowTimestamps: cfg.UI.ShowTimestamps,
		ShowOutputPane: cfg.UI.ShowOutputPane,
		Conversation:   args.Conversation,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
		tea.WithContext(ctx),
	)

	if path, err := config.ConfigPathTOML(); err == nil {
		err = config.Watch(ctx, path, config.DefaultReloadDebounce, func(c *config.Config, err error) {
			p.Send(chat.ConfigReloadedMsg{Config: c, Err: err})
		})
		if err != nil {
			log.Printf("CONFIG_WATCH_UNAVAILABLE | path=%s error=%v", path, err)
		}
	}

	log.Printf("TUI_START | model=%s task=%s server=%s", ctrl.Model(), ctrl.TaskType(), cfg.Server.BaseURL)
	_, err := p.Run()

	ctrl.Cancel()
	app.SaveTranscript(ctrl)
	log.Printf("TUI_EXIT | stats=%+v", ctrl.Stats())

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
