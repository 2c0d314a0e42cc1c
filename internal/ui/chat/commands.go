// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/claudie-tui/internal/client"
	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/session"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForChange blocks until the store or projector signals.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

// waitForSession blocks until s reaches a terminal phase.
func waitForSession(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-s.Done()
		return sessionDoneMsg{SessionID: s.ID(), Err: s.Err()}
	}
}

func loadConversations(ctx context.Context, ws Workspace) tea.Cmd {
	return func() tea.Msg {
		convs, err := ws.ListConversations(ctx)
		return conversationsLoadedMsg{Conversations: convs, Err: err}
	}
}

// openConversation resolves ref and selects it.
func openConversation(ctx context.Context, ws Workspace, ctrl *session.Controller, ref string) tea.Cmd {
	return func() tea.Msg {
		conv, err := ws.OpenOrCreate(ctx, ref)
		if err != nil {
			return conversationSelectedMsg{Err: err}
		}
		return conversationSelectedMsg{Conversation: conv, Err: ctrl.SelectConversation(ctx, conv)}
	}
}

// createConversation creates a conversation, selects it, and hands pending
// back for submission once it is ready.
func createConversation(ctx context.Context, ws Workspace, ctrl *session.Controller, title, pending string) tea.Cmd {
	return func() tea.Msg {
		conv, err := ws.CreateConversation(ctx, title)
		if err != nil {
			return conversationSelectedMsg{Pending: pending, Err: err}
		}
		return conversationSelectedMsg{Conversation: conv, Pending: pending, Err: ctrl.SelectConversation(ctx, conv)}
	}
}

func selectConversation(ctx context.Context, ctrl *session.Controller, conv model.Conversation, pending string) tea.Cmd {
	return func() tea.Msg {
		return conversationSelectedMsg{Conversation: conv, Pending: pending, Err: ctrl.SelectConversation(ctx, conv)}
	}
}

func saveTranscript(ws Workspace, ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		ws.SaveTranscript(ctrl)
		return nil
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return clipboardMsg{Err: errors.New("nothing to copy")}
		}
		if err := clipboard.WriteAll(text); err != nil {
			return clipboardMsg{Err: err}
		}
		return clipboardMsg{Chars: len([]rune(text))}
	}
}

func clearStatusAfter(d time.Duration, seq int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{Seq: seq}
	})
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always works, abandoning any reply in flight.
	if key.Matches(msg, m.keys.Quit) {
		m.ctrl.Cancel()
		return m, tea.Quit
	}

	if m.picker.IsVisible() {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl.Cancel() {
			m.refresh()
			return m, m.setStatus("Reply cancelled", false)
		}
		if m.outputFocus {
			m.outputFocus = false
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Conversations):
		return m, tea.Batch(m.picker.Show(), loadConversations(m.ctx, m.ws))

	case key.Matches(msg, m.keys.CycleTask):
		m.ctrl.SetTaskType(m.ctrl.TaskType().Next())
		m.refresh()
		return m, m.setStatus("Task: "+m.ctrl.TaskType().DisplayName(), false)

	case key.Matches(msg, m.keys.CycleModel):
		m.ctrl.SetModel(model.NextModel(m.ctrl.Model()))
		m.refresh()
		return m, m.setStatus("Model: "+m.ctrl.Model(), false)

	case key.Matches(msg, m.keys.ToggleOutput):
		m.showOutput = !m.showOutput
		if !m.showOutput {
			m.outputFocus = false
		}
		m.layout()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.FocusOutput):
		if m.showOutput {
			m.outputFocus = !m.outputFocus
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, copyToClipboard(m.outputPane.CopyText())

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		if m.outputFocus {
			cmd = m.outputPane.Update(msg)
		} else {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd

	case key.Matches(msg, m.keys.Supersede):
		return m.submit(true)

	case key.Matches(msg, m.keys.Submit):
		return m.submit(false)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input. Without a conversation one is created first and
// the text submitted once it is selected.
func (m Model) submit(supersede bool) (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.handleSlashCommand(text)
	}
	if text == "" && !m.ctrl.TaskType().IsGeneration() {
		return m, nil
	}

	if _, ok := m.ctrl.Conversation(); !ok {
		if m.selecting {
			return m, m.setStatus("Still opening the conversation...", false)
		}
		m.selecting = true
		m.header.SetLoading(true)
		m.input.Reset()
		return m, createConversation(m.ctx, m.ws, m.ctrl, "", text)
	}

	submitFn := m.ctrl.Submit
	if supersede {
		submitFn = m.ctrl.Supersede
	}
	// The session outlives key handling; cancellation goes through Cancel.
	sess, err := submitFn(context.WithoutCancel(m.ctx), text)
	if err != nil {
		return m, m.setStatus(describeError(err), true)
	}

	m.input.Reset()
	m.status.ClearMessage()
	m.refresh()
	m.viewport.GotoBottom()
	return m, tea.Batch(waitForSession(sess), m.spinner.Tick)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) handleSlashCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		m.ctrl.Cancel()
		return m, tea.Quit

	case "/help", "/?":
		m.showHelp = true
		return m, nil

	case "/new":
		m.selecting = true
		m.header.SetLoading(true)
		return m, createConversation(m.ctx, m.ws, m.ctrl, strings.Join(args, " "), "")

	case "/list", "/switch":
		return m, tea.Batch(m.picker.Show(), loadConversations(m.ctx, m.ws))

	case "/cancel":
		if !m.ctrl.Cancel() {
			return m, m.setStatus("Nothing to cancel", false)
		}
		m.refresh()
		return m, m.setStatus("Reply cancelled", false)

	case "/model":
		if len(args) == 0 {
			return m, m.setStatus("Model: "+m.ctrl.Model()+"  (known: "+strings.Join(model.ModelIDs(), ", ")+")", false)
		}
		m.ctrl.SetModel(args[0])
		m.refresh()
		if _, known := model.GetModelInfo(args[0]); !known {
			log.Printf("MODEL_UNKNOWN | model=%s", args[0])
			return m, m.setStatus("Model set to "+args[0]+" (not in the catalog; the server may reject it)", false)
		}
		return m, m.setStatus("Model: "+args[0], false)

	case "/task":
		if len(args) == 0 {
			return m, m.setStatus("Task: "+m.ctrl.TaskType().DisplayName(), false)
		}
		t, err := model.ParseTaskType(args[0])
		if err != nil {
			return m, m.setStatus(err.Error(), true)
		}
		m.ctrl.SetTaskType(t)
		m.refresh()
		return m, m.setStatus("Task: "+t.DisplayName(), false)

	case "/copy":
		return m, copyToClipboard(m.outputPane.CopyText())

	case "/output":
		m.showOutput = !m.showOutput
		m.layout()
		m.refresh()
		return m, nil

	default:
		return m, m.setStatus(fmt.Sprintf("Unknown command %s (try /help)", cmd), true)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// describeError turns controller and client errors into one status line.
func describeError(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "A reply is still streaming. C-r sends anyway, C-c cancels it."
	case errors.Is(err, session.ErrLoading):
		return "The conversation is still loading."
	case errors.Is(err, session.ErrNoConversation):
		return "No conversation selected. Press C-o to pick one."
	case client.IsUnauthorized(err):
		return "Not signed in or the token expired. Run 'claudie login'."
	case errors.Is(err, client.ErrUnavailable):
		return "The workspace server is unreachable."
	case session.IsPrecondition(err):
		return "Not sent: " + errors.Unwrap(err).Error()
	}

	var te *session.TransportError
	if errors.As(err, &te) && te.Kind == session.TransportIdleTimeout {
		return "The server stopped responding."
	}
	return err.Error()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
