// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: brand and conversation on the left, model and
// task on the right.
type Header struct {
	Title        string
	Conversation string
	Model        string
	Task         model.TaskType
	Loading      bool
	Width        int

	theme *styles.Theme
}

// NewHeader creates a header with no conversation selected.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "claudie",
		Task:  model.TaskGeneral,
		Width: 80,
		theme: theme,
	}
}

// SetWidth sets the available width.
func (h *Header) SetWidth(width int) { h.Width = width }

// SetConversation sets the conversation title; empty means none selected.
func (h *Header) SetConversation(title string) { h.Conversation = title }

// SetModel sets the selected model id.
func (h *Header) SetModel(id string) { h.Model = id }

// SetTask sets the selected task type.
func (h *Header) SetTask(t model.TaskType) { h.Task = t }

// SetLoading marks history as loading.
func (h *Header) SetLoading(loading bool) { h.Loading = loading }

// View renders the header at its width.
func (h *Header) View() string {
	t := h.theme
	inner := max(h.Width-2, 10)

	left := t.HeaderBrand.Render(h.Title)
	conv := h.Conversation
	if conv == "" {
		conv = "no conversation"
	}
	if h.Loading {
		conv += " (loading...)"
	}

	var right string
	if h.Width >= 60 {
		parts := []string{}
		if badge := model.BadgeFor(h.Model); badge != "" {
			parts = append(parts, t.HeaderTitle.Render(badge))
		}
		if h.Model != "" {
			parts = append(parts, t.HeaderSubtitle.Render(h.Model))
		}
		parts = append(parts, t.StatusTask.Render(h.Task.DisplayName()))
		right = strings.Join(parts, " ")
	}

	room := inner - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if room > 3 {
		left += t.Muted.Render(" | ") + t.HeaderSubtitle.Render(util.TruncateWidth(conv, room))
	}

	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return t.Header.Width(h.Width).Render(left + strings.Repeat(" ", gap) + right)
}
