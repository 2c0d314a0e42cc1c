// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the client packages.
//
// # Key Functions
//
// String Utilities:
//   - NormalizeInput: NFC normalization and trimming of user input
//   - TruncateWidth, PadWidth: terminal-column aware truncation and padding
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
