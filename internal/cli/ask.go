// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command for claudie.
//
// Command: ask [question]
//
// Examples:
//   claudie ask "What is a goroutine?"
//   claudie ask -t code "Write a binary search in Go"
//   echo "Summarize this" | claudie ask -t summarize
//   claudie ask -c 2 --json "And in Rust?"
//
// The reply streams to stdout as it arrives when output is plain. With
// markdown rendering on, the complete reply is rendered once it is
// committed. Ctrl+C cancels the reply and keeps what arrived so far.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/output"
	"github.com/jeranaias/claudie-tui/internal/session"
)

// =============================================================================
// ASK HANDLER
// =============================================================================

// RunAsk sends one question and prints the reply. The returned error is the
// session's absorbed failure, if any; the fallback reply has already been
// printed by then.
func RunAsk(ctx context.Context, app *App, args Args, in io.Reader, out, errOut io.Writer) error {
	task, err := model.ParseTaskType(app.Config.Chat.DefaultTaskType)
	if err != nil {
		return NewValidationError("task", app.Config.Chat.DefaultTaskType, err.Error())
	}

	question := args.Query
	if question == "" {
		question = readPipedInput(in)
	}
	if strings.TrimSpace(question) == "" && !task.IsGeneration() {
		return ErrMissingArgument("question", `claudie ask "your question"`)
	}

	conv, err := app.OpenOrCreate(ctx, args.Conversation)
	if err != nil {
		return err
	}

	renderer := NewRenderer(app.Config, args)
	streaming := !renderer.Markdown() && !args.JSON

	notify := make(chan struct{}, 1)
	ctrl := app.NewController(nil)
	ctrl.Store().SetObserver(func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	})

	if err := ctrl.SelectConversation(ctx, conv); err != nil && args.Verbose {
		fmt.Fprintf(errOut, "%s %v\n", WarningStyle.Render("[!]"), err)
	}

	baseline := ctrl.Store().Len()
	start := time.Now()

	// Signal cancellation goes through ctrl.Cancel so the partial reply is
	// frozen with its marker rather than replaced by the fallback text.
	sess, err := ctrl.Submit(context.WithoutCancel(ctx), question)
	if err != nil {
		return err
	}

	printer := &replyPrinter{w: out, enabled: streaming}
	for waiting := true; waiting; {
		select {
		case <-notify:
			printer.update(replyContent(ctrl, baseline))
		case <-sess.Done():
			waiting = false
		case <-ctx.Done():
			ctrl.Cancel()
			<-sess.Done()
			waiting = false
		}
	}

	reply, msgID := replyMessage(ctrl, baseline)
	sessErr := sess.Err()
	duration := time.Since(start)

	switch {
	case args.JSON:
		data := AskData{
			ConversationID: conv.ID,
			Model:          ctrl.Model(),
			TaskType:       ctrl.TaskType(),
			Category:       string(output.Classify(reply, ctrl.TaskType())),
			Reply:          reply,
			MessageID:      msgID,
			DurationMs:     duration.Milliseconds(),
		}
		if sessErr != nil {
			data.Error = sessErr.Error()
		}
		if err := NewJSONResponse("ask", data).Write(out); err != nil {
			return err
		}
	case streaming:
		printer.update(reply)
		printer.finish()
	default:
		fmt.Fprint(out, ensureNewline(renderer.Render(reply)))
	}

	if !args.Quiet && !args.JSON {
		fmt.Fprintln(errOut, DimStyle.Render(fmt.Sprintf("%s · %s · %s",
			conv.ShortTitle(), ctrl.Model(), duration.Round(100*time.Millisecond))))
	}

	app.SaveTranscript(ctrl)
	return sessErr
}

// replyMessage returns the assistant message appended after baseline.
func replyMessage(ctrl *session.Controller, baseline int) (content, id string) {
	msgs := ctrl.Store().Messages()
	for i := len(msgs) - 1; i >= baseline && i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			return msgs[i].Content, msgs[i].ID
		}
	}
	return "", ""
}

func replyContent(ctrl *session.Controller, baseline int) string {
	content, _ := replyMessage(ctrl, baseline)
	return content
}

// =============================================================================
// STREAMING OUTPUT
// =============================================================================

// replyPrinter writes the growing reply incrementally. When the content is
// replaced instead of extended (a failed stream rolled back to the fallback
// text), the replacement is printed on a new line.
type replyPrinter struct {
	w       io.Writer
	enabled bool
	printed string
}

func (p *replyPrinter) update(content string) {
	if !p.enabled || content == p.printed {
		return
	}
	if strings.HasPrefix(content, p.printed) {
		fmt.Fprint(p.w, content[len(p.printed):])
	} else {
		if p.printed != "" {
			fmt.Fprintln(p.w)
		}
		fmt.Fprint(p.w, content)
	}
	p.printed = content
}

func (p *replyPrinter) finish() {
	if p.enabled && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.w)
	}
}
