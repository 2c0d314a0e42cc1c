// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat view.
type KeyMap struct {
	Submit        key.Binding
	Newline       key.Binding
	Supersede     key.Binding
	Cancel        key.Binding
	CycleTask     key.Binding
	CycleModel    key.Binding
	Conversations key.Binding
	ToggleOutput  key.Binding
	FocusOutput   key.Binding
	Copy          key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Help          key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		Supersede: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "send, replacing reply"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("C-c/esc", "cancel reply"),
		),
		CycleTask: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next task"),
		),
		CycleModel: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "next model"),
		),
		Conversations: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "conversations"),
		),
		ToggleOutput: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "output pane"),
		),
		FocusOutput: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("C-w", "scroll output"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy output"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.Conversations, k.Help}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Compose
		{k.Submit, k.Newline, k.Supersede, k.Cancel},
		// Selections
		{k.CycleTask, k.CycleModel, k.Conversations},
		// Output
		{k.ToggleOutput, k.FocusOutput, k.Copy},
		// Navigation
		{k.PageUp, k.PageDown, k.Help, k.Quit},
	}
}
