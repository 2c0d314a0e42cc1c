// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Common helper functions for CLI commands.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// =============================================================================
// CONVERSATION LOOKUP
// =============================================================================

// findConversation resolves ref against convs, which are in list order.
// An exact id wins, then a 1-based list index, then a case-insensitive
// title prefix.
func findConversation(convs []model.Conversation, ref string) (model.Conversation, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Conversation{}, false
	}

	for _, c := range convs {
		if c.ID == ref {
			return c, true
		}
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(convs) {
			return convs[n-1], true
		}
		return model.Conversation{}, false
	}

	lower := strings.ToLower(ref)
	for _, c := range convs {
		if strings.HasPrefix(strings.ToLower(c.Title), lower) {
			return c, true
		}
	}
	return model.Conversation{}, false
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// formatConversations renders the numbered list shown by "conversations"
// and "/list". current marks the selected conversation.
func formatConversations(convs []model.Conversation, current string, now time.Time) string {
	if len(convs) == 0 {
		return DimStyle.Render("No conversations yet. Start one with \"claudie ask\" or /new.") + "\n"
	}

	var sb strings.Builder
	for i, c := range convs {
		marker := "  "
		if c.ID == current {
			marker = CommandStyle.Render("> ")
		}
		fmt.Fprintf(&sb, "%s%3d. %s  %s\n",
			marker,
			i+1,
			util.PadWidth(c.ShortTitle(), model.TitleMaxLen+3),
			DimStyle.Render(model.RelativeDate(c.UpdatedAt, now)),
		)
	}
	return sb.String()
}

// formatTranscript renders messages the way "show" and "/history" print them.
func formatTranscript(w io.Writer, msgs []model.Message, renderer *Renderer) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := RenderRole(m.Role.DisplayName(), m.Badge())
		if ts := m.FormatTime(); ts != "" {
			header += " " + DimStyle.Render(ts)
		}
		fmt.Fprintln(w, header)
		if m.Role == model.RoleAssistant {
			fmt.Fprint(w, ensureNewline(renderer.Render(m.Content)))
		} else {
			fmt.Fprintln(w, m.Content)
		}
	}
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// =============================================================================
// INPUT HELPERS
// =============================================================================

// readPipedInput returns stdin's content when stdin is a pipe, or "".
func readPipedInput(r io.Reader) string {
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return ""
		}
	}
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ValidateOutputPath ensures path is safe for writing an export: it must
// resolve inside the home, working or temp directory.
func ValidateOutputPath(path string) (string, error) {
	if strings.Contains(path, "..") {
		return "", errors.New("path traversal not allowed")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	for _, dir := range []string{home, cwd, os.TempDir()} {
		if dir != "" && isPathWithinDir(abs, dir) {
			return abs, nil
		}
	}
	return "", errors.New("path must be within home, cwd, or temp directory")
}

// isPathWithinDir checks path boundaries, so /home/userEVIL is not inside
// /home/user.
func isPathWithinDir(path, dir string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(dir)
	if cleanPath == cleanDir {
		return true
	}
	return strings.HasPrefix(cleanPath, cleanDir+string(filepath.Separator))
}
