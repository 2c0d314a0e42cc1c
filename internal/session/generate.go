// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"log"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/output"
)

// Media generation is not served by the backend yet. Image and video
// requests are answered locally with a placeholder reply and never touch the
// transport or the registry.

// generationKind describes one media task.
type generationKind struct {
	noun          string
	requestPrefix string
	defaultPrompt string
	generator     string
}

var generationKinds = map[model.TaskType]generationKind{
	model.TaskImage: {
		noun:          "an image",
		requestPrefix: "🎨 Image generation request: ",
		defaultPrompt: "Generate a creative image",
		generator:     model.ImageGeneratorModel,
	},
	model.TaskVideo: {
		noun:          "a video",
		requestPrefix: "🎬 Video generation request: ",
		defaultPrompt: "Generate a creative video",
		generator:     model.VideoGeneratorModel,
	},
}

// PlaceholderReply returns the local reply for a media request.
func PlaceholderReply(task model.TaskType, prompt string) string {
	kind := generationKinds[task]
	return fmt.Sprintf("I understand you want to generate %s with the prompt: %q. "+
		"Generation will be available once the API keys are configured. "+
		"For now, this is a placeholder response.", kind.noun, prompt)
}

// generateLocked records a media request and its placeholder reply, points
// the projection at the prompt and completes the session.
func (c *Controller) generateLocked(s *Session, prompt string) {
	kind := generationKinds[s.task]
	if prompt == "" {
		prompt = kind.defaultPrompt
	}

	c.store.AppendOptimistic(model.Message{
		Role:    model.RoleUser,
		Content: kind.requestPrefix + prompt,
	})
	c.store.AppendOptimistic(model.Message{
		Role:      model.RoleAssistant,
		Content:   PlaceholderReply(s.task, prompt),
		ModelUsed: kind.generator,
	})
	c.projector.Update(prompt, output.Classify(prompt, s.task))

	s.finishLocked(PhaseDone, nil)
	log.Printf("SESSION_GENERATE | id=%s conversation=%s task=%s", s.id, s.conversationID, s.task)
}
