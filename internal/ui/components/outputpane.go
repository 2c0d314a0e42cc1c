// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/output"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
)

// =============================================================================
// OUTPUT PANE
// =============================================================================

// OutputPane shows the latest projection under its category label. Code
// replies show only their fenced blocks, highlighted.
type OutputPane struct {
	theme    *styles.Theme
	viewport viewport.Model
	current  output.Projection
	width    int
	height   int

	// Markdown renders text replies. Nil wraps plain text.
	Markdown func(string) (string, error)
}

// NewOutputPane creates an empty pane.
func NewOutputPane(theme *styles.Theme) *OutputPane {
	return &OutputPane{
		theme:    theme,
		viewport: viewport.New(40, 10),
		current:  output.Projection{Category: output.CategoryText},
	}
}

// SetSize sets the outer size of the pane, border included.
func (p *OutputPane) SetSize(width, height int) {
	p.width, p.height = width, height
	// border (2) + padding (2) horizontally, border (2) + title (1) vertically
	p.viewport.Width = max(width-4, 10)
	p.viewport.Height = max(height-3, 1)
	p.refresh()
}

// SetProjection replaces what the pane shows. The scroll position is kept
// at the top for a new reply and otherwise left alone.
func (p *OutputPane) SetProjection(proj output.Projection) {
	fresh := !strings.HasPrefix(proj.Content, p.current.Content) || p.current.IsEmpty()
	p.current = proj
	p.refresh()
	if fresh {
		p.viewport.GotoTop()
	}
}

// Projection returns what the pane shows.
func (p *OutputPane) Projection() output.Projection {
	return p.current
}

// CopyText returns the text a copy action should place on the clipboard:
// the code blocks alone for code replies, the full reply otherwise.
func (p *OutputPane) CopyText() string {
	if p.current.Category == output.CategoryCode {
		blocks := output.ExtractCodeBlocks(p.current.Content)
		if len(blocks) > 0 {
			parts := make([]string, len(blocks))
			for i, b := range blocks {
				parts[i] = strings.TrimRight(b.Code, "\n")
			}
			return strings.Join(parts, "\n\n")
		}
	}
	return p.current.Content
}

// Update scrolls the pane.
func (p *OutputPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return cmd
}

// View renders the pane with its border.
func (p *OutputPane) View(focused bool) string {
	title := p.theme.OutputTitle.Render(p.current.Category.Label())
	box := p.theme.OutputPane
	if focused {
		box = box.BorderForeground(styles.Cyan)
	}
	return box.
		Width(max(p.width-2, 10)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, p.viewport.View()))
}

func (p *OutputPane) refresh() {
	p.viewport.SetContent(p.render(p.viewport.Width))
}

func (p *OutputPane) render(width int) string {
	if p.current.IsEmpty() {
		return p.theme.OutputEmpty.Render("The latest reply appears here.")
	}

	wrap := lipgloss.NewStyle().Width(width)
	switch p.current.Category {
	case output.CategoryCode:
		blocks := output.ExtractCodeBlocks(p.current.Content)
		if len(blocks) == 0 {
			// The opening fence has arrived but not the closing one.
			return wrap.Render(p.current.Content)
		}
		rendered := make([]string, len(blocks))
		for i, b := range blocks {
			rendered[i] = RenderCodeBlock(b, width, p.theme.IsDark)
		}
		return strings.Join(rendered, "\n")

	case output.CategoryImage, output.CategoryVideo:
		return wrap.Render(p.current.Content)

	default:
		if p.Markdown != nil {
			if out, err := p.Markdown(p.current.Content); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
		return wrap.Render(p.current.Content)
	}
}
