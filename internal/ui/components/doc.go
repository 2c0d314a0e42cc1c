// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual building blocks of the claudie TUI.

# Components

  - Header: brand, conversation title, model badge and task type
  - StatusBar: session phase, spinner, counters and key hints
  - OutputPane: the latest reply projected under its category label
  - ConversationPicker: fuzzy-filtered overlay for switching conversations

Components render with the shared styles.Theme and never touch the session
controller directly; the chat model feeds them plain values.

# Usage

	header := components.NewHeader(theme)
	header.SetConversation(conv.Title)
	header.SetModel(ctrl.Model())
	view := header.View()
*/
package components
