// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for claudie.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdConversations
	CmdConfig
	CmdLogin
	CmdVersion
	CmdHelp
)

// String returns the command name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdConversations:
		return "conversations"
	case CmdConfig:
		return "config"
	case CmdLogin:
		return "login"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model        string
	TaskType     string
	Conversation string
	ServerURL    string
	Quiet        bool
	Verbose      bool
	JSON         bool
	NoMarkdown   bool

	// Command-specific
	Query      string
	Subcommand string
	Positional []string

	// Options holds command-specific named options (e.g., --format, --output)
	Options map[string]string
}

const usageText = `claudie - streaming chat client for the Claudie workspace

Usage:
  claudie                          Start the TUI (default)
  claudie ask "question"           Ask a single question and print the reply
  claudie chat                     Interactive chat in the terminal
  claudie conversations [sub]      List, show, export or delete conversations
  claudie config [sub]             Show or change configuration
  claudie login [email]            Sign in and store the token
    --password-stdin               Read the password from stdin
  claudie version                  Show version information
  claudie help                     Show this help

Global Flags:
  -m, --model NAME                 Model for new messages (e.g. gpt-4o, claude-3-5-sonnet-20241022)
  -t, --task TYPE                  Task type: general, code, summarize, review, image, video
  -c, --conversation REF           Conversation id, list number or title prefix
  --url URL                        Workspace server URL
  -q, --quiet                      Minimal output
  -v, --verbose                    Verbose output
  --json                           JSON output where supported
  --no-markdown                    Print replies as plain text

Conversation Commands:
  claudie conversations            List conversations (newest first)
  claudie conversations show REF   Print a transcript
  claudie conversations export REF Export a transcript
    --format md|json               Export format (default: md)
    --output FILE                  Write to FILE instead of stdout
  claudie conversations delete REF Delete a conversation
    --confirm                      Required confirmation flag
  claudie conversations search Q   Search cached conversations

Config Commands:
  claudie config show              Print the effective configuration
  claudie config get KEY           Print one value (e.g. server.base_url)
  claudie config set KEY VALUE     Change and save one value
  claudie config keys              List every key
  claudie config path              Print the config file location

Chat Commands (inside "claudie chat"):
  /new [title]       Start a new conversation
  /switch REF        Switch conversation
  /list              List conversations
  /model [name]      Show or change the model
  /task [type]       Show or change the task type
  /output            Show the latest output projection
  /history           Show the transcript
  /cancel            Cancel the streaming reply
  /help              Show chat commands
  /quit              Exit

Environment:
  CLAUDIE_TOKEN                    Bearer token (name configurable via auth.token_env)
  CLAUDIE_HOME                     Config directory (default ~/.claudie)
  CLAUDIE_SERVER_URL, CLAUDIE_CHAT_MODEL, ...
                                   Override any config key (see "claudie config keys")

Examples:
  claudie ask "Explain Go channels" --model gpt-4o-mini
  claudie ask -t code "Write a binary search in Go"
  claudie chat -c 1
  claudie conversations export 2 --format json --output chat.json
`

// PrintUsage prints the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "claudie %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args) {
	p := NewArgParser(argv)

	args := Args{
		Model:        p.Flag("model", "m"),
		TaskType:     p.Flag("task", "t"),
		Conversation: p.Flag("conversation", "c"),
		ServerURL:    p.Flag("url"),
		Quiet:        p.BoolFlag("quiet", "q"),
		Verbose:      p.BoolFlag("verbose", "v"),
		JSON:         p.BoolFlag("json"),
		NoMarkdown:   p.BoolFlag("no-markdown"),
		Options:      p.Options(),
	}

	if p.BoolFlag("help", "h") {
		return CmdHelp, args
	}
	if p.BoolFlag("version") {
		return CmdVersion, args
	}

	if p.PositionalCount() == 0 {
		return CmdTUI, args
	}

	rest := p.PositionalFrom(1)
	args.Positional = rest
	if len(rest) > 0 {
		args.Subcommand = rest[0]
	}

	switch strings.ToLower(p.Positional(0)) {
	case "ask", "a":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "conversations", "conversation", "convs", "ls":
		return CmdConversations, args
	case "config", "cfg":
		return CmdConfig, args
	case "login":
		return CmdLogin, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	case "tui":
		return CmdTUI, args
	default:
		// Bare text is a question
		args.Query = strings.Join(p.PositionalFrom(0), " ")
		return CmdAsk, args
	}
}
