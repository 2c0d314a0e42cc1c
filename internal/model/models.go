// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// DefaultModel is selected when nothing else is configured.
const DefaultModel = "gpt-4o"

// Model ids attributed to locally produced generation placeholders.
const (
	ImageGeneratorModel = "image-generator"
	VideoGeneratorModel = "video-generator"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model offered by the workspace backend.
type ModelInfo struct {
	// ID is the model identifier sent with chat requests
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Provider identifies who serves the model (openai, anthropic, google)
	Provider string `json:"provider"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the catalog in selector order.
var Models = []ModelInfo{
	{ID: "gpt-4o", Name: "GPT-4O", Provider: "openai"},
	{ID: "gpt-4o-mini", Name: "GPT-4O Mini", Provider: "openai"},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", Provider: "anthropic"},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku", Provider: "anthropic"},
	{ID: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash", Provider: "google"},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Provider: "google"},
}

// GetModelInfo looks up a model by ID, falling back to a case-insensitive
// match on ID prefix or display name.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}

	lower := strings.ToLower(nameOrID)
	if lower == "" {
		return ModelInfo{}, false
	}
	for _, info := range Models {
		if strings.HasPrefix(info.ID, lower) || strings.ToLower(info.Name) == lower {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ModelIDs returns the catalog IDs in selector order.
func ModelIDs() []string {
	ids := make([]string, len(Models))
	for i, info := range Models {
		ids[i] = info.ID
	}
	return ids
}

// NextModel returns the model after current in the catalog, wrapping around.
func NextModel(current string) string {
	for i, info := range Models {
		if info.ID == current {
			return Models[(i+1)%len(Models)].ID
		}
	}
	return Models[0].ID
}

// =============================================================================
// PROVIDER DETECTION
// =============================================================================

// ProviderFor infers the serving provider from a model id.
func ProviderFor(modelID string) string {
	if info, ok := GetModelInfo(modelID); ok && info.ID == modelID {
		return info.Provider
	}
	switch {
	case strings.HasPrefix(modelID, "gpt"),
		strings.HasPrefix(modelID, "o1"),
		strings.HasPrefix(modelID, "o3"):
		return "openai"
	case strings.HasPrefix(modelID, "claude"):
		return "anthropic"
	case strings.HasPrefix(modelID, "gemini"):
		return "google"
	default:
		return ""
	}
}

// BadgeFor returns the short badge shown next to a message produced by
// modelID. Unknown models get "AI"; an empty id gets no badge.
func BadgeFor(modelID string) string {
	if modelID == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(modelID, "gpt"),
		strings.HasPrefix(modelID, "o1"),
		strings.HasPrefix(modelID, "o3"):
		return "GPT"
	case strings.HasPrefix(modelID, "claude"):
		return "CLAUDE"
	case strings.HasPrefix(modelID, "gemini"):
		return "GEMINI"
	case strings.Contains(modelID, "image"):
		return "IMG"
	case strings.Contains(modelID, "video"):
		return "VID"
	default:
		return "AI"
	}
}

// =============================================================================
// TASK TYPES
// =============================================================================

// TaskType is the user-selected intent sent with each chat request.
type TaskType string

const (
	TaskGeneral   TaskType = "general"
	TaskCode      TaskType = "code"
	TaskSummarize TaskType = "summarize"
	TaskReview    TaskType = "review"
	TaskImage     TaskType = "image"
	TaskVideo     TaskType = "video"
)

// TaskTypes lists every task type in selector order.
var TaskTypes = []TaskType{
	TaskGeneral, TaskCode, TaskSummarize, TaskReview, TaskImage, TaskVideo,
}

// String returns the wire value.
func (t TaskType) String() string {
	return string(t)
}

// DisplayName returns the selector label.
func (t TaskType) DisplayName() string {
	switch t {
	case TaskGeneral:
		return "General Chat"
	case TaskCode:
		return "Code Assistant"
	case TaskSummarize:
		return "Summarize"
	case TaskReview:
		return "Code Review"
	case TaskImage:
		return "Image Generation"
	case TaskVideo:
		return "Video Generation"
	default:
		return string(t)
	}
}

// IsValid reports whether t is a known task type.
func (t TaskType) IsValid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsGeneration reports whether t produces media instead of a chat reply.
func (t TaskType) IsGeneration() bool {
	return t == TaskImage || t == TaskVideo
}

// Next returns the task type after t, wrapping around.
func (t TaskType) Next() TaskType {
	for i, known := range TaskTypes {
		if t == known {
			return TaskTypes[(i+1)%len(TaskTypes)]
		}
	}
	return TaskGeneral
}

// ParseTaskType converts a string to a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TaskGeneral, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("unknown task type %q (want one of %s)", s, taskTypeList())
	}
	return t, nil
}

func taskTypeList() string {
	names := make([]string, len(TaskTypes))
	for i, t := range TaskTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
