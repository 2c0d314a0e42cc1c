// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/session"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// StatusBar shows the current session phase on the left and key hints on
// the right. A message, when set, replaces the phase text.
type StatusBar struct {
	Width   int
	Phase   session.Phase
	Spinner string
	Message string
	IsError bool
	Hints   string
	Stats   session.Stats

	theme *styles.Theme
}

// NewStatusBar creates an idle status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(width int) { s.Width = width }

// SetMessage shows msg until cleared. Errors render in the error style.
func (s *StatusBar) SetMessage(msg string, isError bool) {
	s.Message = msg
	s.IsError = isError
}

// ClearMessage removes the message.
func (s *StatusBar) ClearMessage() {
	s.Message = ""
	s.IsError = false
}

// View renders the status bar at its width.
func (s *StatusBar) View() string {
	t := s.theme
	inner := max(s.Width-2, 10)

	left := s.renderState()
	if counters := s.renderCounters(); counters != "" && s.Width >= 80 {
		left += t.Muted.Render("  " + counters)
	}

	right := s.Hints
	if lipgloss.Width(left)+lipgloss.Width(right)+2 > inner {
		right = ""
	}

	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return t.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderState() string {
	t := s.theme
	if s.Message != "" {
		if s.IsError {
			return t.StatusError.Render(styles.StatusIndicators.Error + " " + s.Message)
		}
		return t.Muted.Render(s.Message)
	}

	switch s.Phase {
	case session.PhaseSending:
		return t.Spinner.Render(s.Spinner) + " " + t.StatusBusy.Render("sending...")
	case session.PhaseStreaming:
		return t.Spinner.Render(s.Spinner) + " " + t.StatusBusy.Render("streaming... (ctrl+c to cancel)")
	case session.PhaseCommitting:
		return t.Spinner.Render(s.Spinner) + " " + t.StatusBusy.Render("saving...")
	case session.PhaseError:
		return t.StatusError.Render(styles.StatusIndicators.Error + " reply failed")
	case session.PhaseAbandoned:
		return t.Warning.Render(styles.StatusIndicators.Warning + " cancelled")
	case session.PhaseDone:
		return t.Success.Render(styles.StatusIndicators.Success + " ready")
	default:
		return t.Muted.Render("ready")
	}
}

// renderCounters lists the non-zero failure counters.
func (s *StatusBar) renderCounters() string {
	var parts []string
	if s.Stats.Failed > 0 {
		parts = append(parts, fmt.Sprintf("failed %d", s.Stats.Failed))
	}
	if s.Stats.DroppedFrames > 0 {
		parts = append(parts, fmt.Sprintf("dropped %d", s.Stats.DroppedFrames))
	}
	return strings.Join(parts, " ")
}
