// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the claudie TUI.

# Color System (colors.go)

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection:

	Purple  - Assistant messages, selections
	Cyan    - Brand color, commands, user highlights
	Emerald - Completed replies
	Amber   - Warnings, cancelled replies
	Rose    - Errors

Status indicators are ASCII ([OK], [X], [!], [i]) so that state never
depends on color alone.

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(msg.Width, msg.Height)
	if theme.GetLayoutMode().ShowsOutputPane() {
		// render the output pane beside the transcript
	}
*/
package styles
