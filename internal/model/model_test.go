// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}
	if msg.ID == "" {
		t.Error("ID should be generated")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("gpt-4o")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want 'assistant'", msg.Role)
	}
	if !msg.IsEmpty() {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
	if msg.ModelUsed != "gpt-4o" {
		t.Errorf("ModelUsed = %q", msg.ModelUsed)
	}
	if msg.Badge() != "GPT" {
		t.Errorf("Badge = %q, want 'GPT'", msg.Badge())
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserMessage("x").ID
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestMessagePreview(t *testing.T) {
	tests := []struct {
		content string
		maxLen  int
		want    string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a longer message", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}

	for _, tt := range tests {
		msg := Message{Content: tt.content}
		if got := msg.Preview(tt.maxLen); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.content, tt.maxLen, got, tt.want)
		}
	}
}

func TestUserMessageHasNoBadge(t *testing.T) {
	msg := NewUserMessage("hi")
	msg.ModelUsed = "gpt-4o"
	if msg.Badge() != "" {
		t.Errorf("Badge = %q, want empty for user messages", msg.Badge())
	}
}

func TestRoleDisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("RoleAssistant.DisplayName() = %q", RoleAssistant.DisplayName())
	}
	if Role("system").IsValid() {
		t.Error("system role should not be valid")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation("")
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}
	if conv.ID == "" {
		t.Error("ID should be generated")
	}
	if !conv.CreatedAt.Equal(conv.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should start equal")
	}
}

func TestConversationTouch(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := Conversation{UpdatedAt: base}

	conv.Touch(base.Add(time.Minute))
	if !conv.UpdatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v, want advanced", conv.UpdatedAt)
	}

	conv.Touch(base)
	if !conv.UpdatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("UpdatedAt moved backwards to %v", conv.UpdatedAt)
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Short", "Short"},
		{"Exactly twenty-five chars", "Exactly twenty-five chars"},
		{"A title that goes on far too long", "A title that goes on far ..."},
	}

	for _, tt := range tests {
		c := Conversation{Title: tt.title}
		if got := c.ShortTitle(); got != tt.want {
			t.Errorf("ShortTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSortByUpdated(t *testing.T) {
	base := time.Now()
	convs := []Conversation{
		{ID: "old", UpdatedAt: base.Add(-2 * time.Hour)},
		{ID: "new", UpdatedAt: base},
		{ID: "mid", UpdatedAt: base.Add(-time.Hour)},
	}

	SortByUpdated(convs)

	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if convs[i].ID != id {
			t.Errorf("convs[%d] = %q, want %q", i, convs[i].ID, id)
		}
	}
}

func TestRelativeDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 15, 0, 0, 0, time.Local)

	tests := []struct {
		when time.Time
		want string
	}{
		{now.Add(-time.Hour), "Today"},
		{now.AddDate(0, 0, -1), "Yesterday"},
		{now.AddDate(0, 0, -3), "3 days ago"},
		{now.AddDate(0, 0, -6), "6 days ago"},
		{time.Date(2025, 5, 1, 9, 0, 0, 0, time.Local), "2025-05-01"},
	}

	for _, tt := range tests {
		if got := RelativeDate(tt.when, now); got != tt.want {
			t.Errorf("RelativeDate(%v) = %q, want %q", tt.when, got, tt.want)
		}
	}
}

// =============================================================================
// MODEL AND TASK TESTS
// =============================================================================

func TestBadgeFor(t *testing.T) {
	tests := map[string]string{
		"gpt-4o":                     "GPT",
		"o1-preview":                 "GPT",
		"o3-mini":                    "GPT",
		"claude-3-5-haiku-20241022":  "CLAUDE",
		"gemini-1.5-pro":             "GEMINI",
		ImageGeneratorModel:          "IMG",
		VideoGeneratorModel:          "VID",
		"mystery":                    "AI",
		"":                           "",
	}

	for id, want := range tests {
		if got := BadgeFor(id); got != want {
			t.Errorf("BadgeFor(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestProviderFor(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":                "openai",
		"claude-3-5-sonnet-20241022": "anthropic",
		"gemini-2.0-flash-exp":       "google",
		"o1":                         "openai",
		"llama3":                     "",
	}

	for id, want := range tests {
		if got := ProviderFor(id); got != want {
			t.Errorf("ProviderFor(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestGetModelInfo(t *testing.T) {
	info, ok := GetModelInfo("claude-3-5-sonnet")
	if !ok {
		t.Fatal("prefix lookup failed")
	}
	if info.ID != "claude-3-5-sonnet-20241022" {
		t.Errorf("ID = %q", info.ID)
	}

	if _, ok := GetModelInfo(""); ok {
		t.Error("empty lookup should fail")
	}
}

func TestNextModelWraps(t *testing.T) {
	last := Models[len(Models)-1].ID
	if got := NextModel(last); got != Models[0].ID {
		t.Errorf("NextModel(%q) = %q, want %q", last, got, Models[0].ID)
	}
	if got := NextModel("unknown"); got != Models[0].ID {
		t.Errorf("NextModel(unknown) = %q", got)
	}
}

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		input   string
		want    TaskType
		wantErr bool
	}{
		{"", TaskGeneral, false},
		{"code", TaskCode, false},
		{" Review ", TaskReview, false},
		{"image", TaskImage, false},
		{"poetry", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTaskType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTaskType(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTaskType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTaskTypeNextCycles(t *testing.T) {
	task := TaskGeneral
	for range TaskTypes {
		task = task.Next()
	}
	if task != TaskGeneral {
		t.Errorf("cycling through all task types ended at %q", task)
	}
	if !TaskVideo.IsGeneration() || TaskCode.IsGeneration() {
		t.Error("IsGeneration mismatch")
	}
}
