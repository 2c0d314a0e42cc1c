// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// MAIN VIEW
// =============================================================================

// renderChat stacks header, body, input and status bar. Overlays replace
// the whole screen while open.
func (m Model) renderChat() string {
	if m.picker.IsVisible() {
		return m.picker.View()
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		m.renderBody(),
		m.renderInput(),
		m.status.View(),
	)
}

// renderBody lays out the transcript and the output pane for the current
// width.
func (m Model) renderBody() string {
	if !m.showOutput {
		return m.viewport.View()
	}
	if m.theme.GetLayoutMode().ShowsOutputPane() {
		return lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.outputPane.View(m.outputFocus))
	}
	return m.outputPane.View(m.outputFocus)
}

func (m Model) renderInput() string {
	box := m.theme.InputFocused
	if m.outputFocus {
		box = m.theme.InputContainer
	}
	return box.Width(max(m.width-2, 10)).Render(m.input.View())
}

func (m Model) renderHelpOverlay() string {
	h := m.help
	h.ShowAll = true
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.HeaderTitle.Render("Keys"),
		"",
		h.View(m.keys),
		"",
		m.theme.HeaderTitle.Render("Commands"),
		"",
		m.theme.Muted.Render(slashHelp),
		"",
		m.theme.Muted.Render("Press any key to close."),
	)
	box := m.theme.ListContainer.Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

const slashHelp = `/new [title]    start a conversation
/list           pick a conversation
/model [id]     show or set the model
/task [type]    show or set the task type
/copy           copy the output pane
/output         toggle the output pane
/cancel         cancel the streaming reply
/quit           exit`

// =============================================================================
// TRANSCRIPT
// =============================================================================

func (m Model) renderTranscript() string {
	msgs := m.ctrl.Store().Messages()
	if len(msgs) == 0 {
		return m.renderEmptyState()
	}

	width := max(m.viewport.Width-2, 10)
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, m.renderMessage(msg, width))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	t := m.theme

	var label string
	switch msg.Role {
	case model.RoleUser:
		label = t.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = t.AssistantLabel.Render(msg.Role.DisplayName())
		if badge := msg.Badge(); badge != "" {
			label += " " + t.ModelBadge.Render("["+badge+"] "+msg.ModelUsed)
		}
	}
	if m.showTimestamps && !msg.Timestamp.IsZero() {
		label += "  " + t.Timestamp.Render(msg.FormatTime())
	}

	if msg.Role == model.RoleUser {
		return label + "\n" + t.UserBubble.Width(width).Render(msg.Content)
	}

	open := m.ctrl.Store().IsOpen(msg.ID)
	var body string
	switch {
	case open && msg.Content == "":
		body = t.Muted.Render(m.spinner.View() + " thinking...")
	case open:
		body = lipgloss.NewStyle().Width(width-2).Render(msg.Content) + t.Cursor.Render("_")
	default:
		body = m.renderMarkdown(msg, width-2)
	}
	return label + "\n" + t.AssistantBody.Width(width).Render(body)
}

// renderMarkdown renders a closed message, reusing the cached result while
// its content and width are unchanged.
func (m Model) renderMarkdown(msg model.Message, width int) string {
	if m.renderer == nil {
		return lipgloss.NewStyle().Width(width).Render(msg.Content)
	}
	if c, ok := m.rendered[msg.ID]; ok && c.content == msg.Content && c.width == width {
		return c.out
	}

	out, err := m.renderer.Render(msg.Content)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(msg.Content)
	}
	out = strings.Trim(out, "\n")
	m.rendered[msg.ID] = renderedMessage{content: msg.Content, width: width, out: out}
	return out
}

func (m Model) renderEmptyState() string {
	t := m.theme
	lines := []string{
		t.HeaderBrand.Render("claudie"),
		"",
	}
	if _, ok := m.ctrl.Conversation(); ok {
		lines = append(lines, t.Muted.Render("No messages yet. Type below and press enter."))
	} else {
		lines = append(lines,
			t.Muted.Render("Type a message to start a new conversation,"),
			t.Muted.Render("or press C-o to open an existing one."),
		)
	}
	lines = append(lines, "",
		t.ShortcutKey.Render("tab")+t.ShortcutDesc.Render(" task: "+m.ctrl.TaskType().DisplayName())+"   "+
			t.ShortcutKey.Render("C-t")+t.ShortcutDesc.Render(" model: "+m.ctrl.Model()))

	return lipgloss.Place(max(m.viewport.Width, 1), max(m.viewport.Height, 1),
		lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}
