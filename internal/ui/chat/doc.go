// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view.
//
// The view owns no transcript. It renders the session controller's history
// store and output projection, and forwards submissions, cancellation and
// conversation switches to the controller. Store and projector observers
// only signal a channel; the view re-reads state on the Bubble Tea
// goroutine when woken.
//
// Layout, top to bottom:
//
//	header       conversation title, model badge, task type
//	transcript   scrollable messages (output pane alongside when wide)
//	input        multi-line textarea
//	status bar   session phase, counters, key hints
package chat
