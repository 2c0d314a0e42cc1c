// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// =============================================================================
// CONVERSATION PICKER
// =============================================================================

// ConversationPickedMsg is sent when the user chooses an entry. New is set
// for the "new conversation" entry.
type ConversationPickedMsg struct {
	Conversation model.Conversation
	New          bool
}

// ConversationPicker is an overlay listing conversations, filtered by a
// fuzzy query over their titles. Row 0 is always "New conversation".
type ConversationPicker struct {
	input    textinput.Model
	all      []model.Conversation
	filtered []model.Conversation
	selected int
	visible  bool
	width    int
	height   int
	maxItems int
	theme    *styles.Theme

	// Now returns the time used for relative dates.
	Now func() time.Time
}

// NewConversationPicker creates a hidden picker.
func NewConversationPicker(theme *styles.Theme) *ConversationPicker {
	ti := textinput.New()
	ti.Placeholder = "Filter conversations..."
	ti.Prompt = "> "
	ti.CharLimit = 100
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	return &ConversationPicker{
		input:    ti,
		theme:    theme,
		maxItems: 12,
		Now:      time.Now,
	}
}

// SetConversations replaces the list, keeping the current filter.
func (p *ConversationPicker) SetConversations(convs []model.Conversation) {
	p.all = convs
	p.updateFiltered()
}

// Show opens the picker with an empty filter.
func (p *ConversationPicker) Show() tea.Cmd {
	p.visible = true
	p.input.SetValue("")
	p.updateFiltered()
	return p.input.Focus()
}

// Hide closes the picker.
func (p *ConversationPicker) Hide() {
	p.visible = false
	p.input.Blur()
}

// IsVisible reports whether the picker is open.
func (p *ConversationPicker) IsVisible() bool { return p.visible }

// SetSize sets the area the overlay is centered in.
func (p *ConversationPicker) SetSize(width, height int) {
	p.width, p.height = width, height
	p.input.Width = max(min(width-16, 60), 10)
	p.maxItems = max(min(height-10, 12), 3)
}

// Update handles keys while the picker is open.
func (p *ConversationPicker) Update(msg tea.Msg) (*ConversationPicker, tea.Cmd) {
	if !p.visible {
		return p, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		rows := len(p.filtered) + 1
		switch key.String() {
		case "esc", "ctrl+o":
			p.Hide()
			return p, nil
		case "enter":
			picked := ConversationPickedMsg{New: true}
			if p.selected > 0 {
				picked = ConversationPickedMsg{Conversation: p.filtered[p.selected-1]}
			}
			p.Hide()
			return p, func() tea.Msg { return picked }
		case "up", "ctrl+p":
			p.selected = (p.selected - 1 + rows) % rows
			return p, nil
		case "down", "ctrl+n":
			p.selected = (p.selected + 1) % rows
			return p, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.updateFiltered()
	}
	return p, cmd
}

// Selected returns the highlighted conversation, false for the new entry.
func (p *ConversationPicker) Selected() (model.Conversation, bool) {
	if p.selected == 0 || p.selected > len(p.filtered) {
		return model.Conversation{}, false
	}
	return p.filtered[p.selected-1], true
}

func (p *ConversationPicker) updateFiltered() {
	p.filtered = FuzzyRank(p.input.Value(), p.all, func(c model.Conversation) string {
		return c.Title
	})
	// With a query the best match is selected; otherwise "new" is.
	p.selected = 0
	if strings.TrimSpace(p.input.Value()) != "" && len(p.filtered) > 0 {
		p.selected = 1
	}
}

// View renders the overlay centered in its area.
func (p *ConversationPicker) View() string {
	if !p.visible {
		return ""
	}
	t := p.theme
	width := max(min(p.width-8, 70), 30)

	var lines []string
	lines = append(lines, t.HeaderTitle.Render("Conversations"), p.input.View(), "")
	lines = append(lines, p.renderRow("+ New conversation", "", p.selected == 0, width-4))

	// Keep the selection inside the visible window.
	start := 0
	if p.selected > p.maxItems {
		start = p.selected - p.maxItems
	}
	end := min(start+p.maxItems, len(p.filtered))
	now := p.Now()
	for i := start; i < end; i++ {
		c := p.filtered[i]
		lines = append(lines, p.renderRow(c.Title, model.RelativeDate(c.UpdatedAt, now), p.selected == i+1, width-4))
	}
	if len(p.filtered) == 0 && len(p.all) > 0 {
		lines = append(lines, t.Muted.Render("  no matches"))
	}
	if hidden := len(p.filtered) - end; hidden > 0 {
		lines = append(lines, t.Muted.Render("  ..."))
	}
	lines = append(lines, "", t.ShortcutKey.Render("enter")+t.ShortcutDesc.Render(" open  ")+
		t.ShortcutKey.Render("up/down")+t.ShortcutDesc.Render(" move  ")+
		t.ShortcutKey.Render("esc")+t.ShortcutDesc.Render(" close"))

	box := t.ListContainer.Width(width).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
}

func (p *ConversationPicker) renderRow(title, meta string, selected bool, width int) string {
	metaWidth := lipgloss.Width(meta)
	title = util.TruncateWidth(title, max(width-metaWidth-4, 5))
	row := "  " + title
	if meta != "" {
		gap := max(width-lipgloss.Width(row)-metaWidth, 1)
		row += strings.Repeat(" ", gap) + p.theme.ListMeta.Render(meta)
	}
	if selected {
		return p.theme.ListSelected.Width(width).Render("> " + strings.TrimPrefix(row, "  "))
	}
	return p.theme.ListItem.Render(row)
}
