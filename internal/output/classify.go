// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output decides how a reply is presented in the output pane and
// holds the single projection of the latest reply.
package output

import (
	"strings"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// CATEGORY
// =============================================================================

// Category is the presentation kind of a reply.
type Category string

const (
	CategoryText  Category = "text"
	CategoryCode  Category = "code"
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
)

// codeFence marks a fenced code block.
const codeFence = "```"

// Label returns the heading shown above the output pane.
func (c Category) Label() string {
	switch c {
	case CategoryCode:
		return "Code Output"
	case CategoryImage:
		return "Image Generation"
	case CategoryVideo:
		return "Video Generation"
	default:
		return "Text Output"
	}
}

// Classify picks the category for text produced under task.
//
// The task hint decides for media tasks regardless of content. Otherwise a
// code task, or any text containing a code fence, is code.
func Classify(text string, task model.TaskType) Category {
	switch {
	case task == model.TaskImage:
		return CategoryImage
	case task == model.TaskVideo:
		return CategoryVideo
	case task == model.TaskCode:
		return CategoryCode
	case strings.Contains(text, codeFence):
		return CategoryCode
	default:
		return CategoryText
	}
}
