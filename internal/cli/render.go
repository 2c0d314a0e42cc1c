// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/claudie-tui/internal/config"
)

// Renderer turns assistant replies into terminal output. A nil or plain
// Renderer returns content unchanged.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer renders markdown only when stdout is a terminal, markdown is
// enabled in the config and --no-markdown was not given, so piped output
// stays byte-for-byte what the server sent.
func NewRenderer(cfg *config.Config, args Args) *Renderer {
	if args.NoMarkdown || args.JSON || !cfg.UI.Markdown || !IsStdoutTTY() {
		return &Renderer{}
	}
	return newMarkdownRenderer(cfg.UI.Theme, GetTerminalWidth())
}

func newMarkdownRenderer(theme string, width int) *Renderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(min(width, 100) - 4)}
	switch theme {
	case "dark", "light":
		opts = append(opts, glamour.WithStandardStyle(theme))
	default:
		opts = append(opts, glamour.WithAutoStyle())
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{md: md}
}

// Markdown reports whether replies are rendered.
func (r *Renderer) Markdown() bool {
	return r != nil && r.md != nil
}

// Render returns content rendered for the terminal, or content itself when
// rendering is off or fails.
func (r *Renderer) Render(content string) string {
	if !r.Markdown() {
		return content
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return out
}
