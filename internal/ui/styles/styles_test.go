// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme("auto")
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserBubble", theme.UserBubble},
		{"AssistantBody", theme.AssistantBody},
		{"Notice", theme.Notice},
		{"OutputPane", theme.OutputPane},
		{"ListContainer", theme.ListContainer},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style should render its content", s.name)
		}
	}
}

func TestNewThemeForcedBackground(t *testing.T) {
	defer lipgloss.SetHasDarkBackground(true)

	if !NewTheme("dark").IsDark {
		t.Error("NewTheme(dark) should be dark")
	}
	if NewTheme("LIGHT").IsDark {
		t.Error("NewTheme(LIGHT) should be light")
	}
}

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
		pane  bool
	}{
		{40, LayoutNarrow, false},
		{59, LayoutNarrow, false},
		{60, LayoutMedium, false},
		{99, LayoutMedium, false},
		{100, LayoutWide, true},
		{200, LayoutWide, true},
	}

	theme := NewTheme("auto")
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		got := theme.GetLayoutMode()
		if got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
		if got.ShowsOutputPane() != tt.pane {
			t.Errorf("width %d: ShowsOutputPane() = %v, want %v", tt.width, got.ShowsOutputPane(), tt.pane)
		}
	}
}

// =============================================================================
// STATUS RENDERING TESTS
// =============================================================================

func TestRenderStatusIndicators(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		prefix string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		got := tt.render("saved")
		if !strings.Contains(got, tt.prefix) || !strings.Contains(got, "saved") {
			t.Errorf("%s: got %q, want indicator %q and message", tt.name, got, tt.prefix)
		}
	}
}

func TestASCIISpinner(t *testing.T) {
	for _, f := range ASCIISpinner.Frames {
		for _, r := range f {
			if r > 127 {
				t.Errorf("spinner frame %q is not ASCII", f)
			}
		}
	}
	if ASCIISpinner.FPS <= 0 {
		t.Error("spinner FPS should be positive")
	}
}
