// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat for claudie.
//
// Command: chat
//
// Examples:
//   claudie chat                 Start a new conversation on first message
//   claudie chat -c 1            Continue the most recent conversation
//   claudie chat -m gpt-4o-mini  Use a specific model
//
// Interactive Commands (during chat):
//   /new [title]       Start a new conversation
//   /switch REF        Switch conversation (id, list number, title prefix)
//   /list, /ls         List conversations
//   /model [name]      Show or switch model
//   /task [type]       Show or switch task type
//   /output            Show the latest output projection
//   /history           Show the transcript
//   /cancel            Cancel the streaming reply
//   /help, /h          Show available commands
//   /quit, /q          Exit chat
//   Ctrl+C             Cancel the streaming reply
//   Ctrl+D             Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor with history loaded from the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlashCommand)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

var slashCommands = []string{
	"/new", "/switch", "/list", "/model", "/task",
	"/output", "/history", "/cancel", "/help", "/quit",
}

func completeSlashCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, cmd := range slashCommands {
		if strings.HasPrefix(cmd, line) {
			out = append(out, cmd)
		}
	}
	return out
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of one interactive chat.
type ChatSession struct {
	App      *App
	Ctrl     *session.Controller
	Renderer *Renderer
	Quiet    bool

	out    io.Writer
	errOut io.Writer

	// convs is the last listed order, so "/switch 2" means what "/list" showed
	convs []model.Conversation

	// conversationRef is resolved lazily on the first message
	conversationRef string
	sent            int
}

// NewChatSession creates a chat session. No conversation is opened until
// the first message or /switch.
func NewChatSession(app *App, args Args, out, errOut io.Writer) *ChatSession {
	return &ChatSession{
		App:             app,
		Ctrl:            app.NewController(nil),
		Renderer:        NewRenderer(app.Config, args),
		Quiet:           args.Quiet,
		out:             out,
		errOut:          errOut,
		conversationRef: args.Conversation,
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// RunChat runs the interactive REPL until /quit, Ctrl+D, or Ctrl+C at the
// prompt.
func RunChat(ctx context.Context, app *App, args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	s := NewChatSession(app, args, os.Stdout, os.Stderr)
	if s.conversationRef != "" {
		if err := s.open(ctx, s.conversationRef); err != nil {
			return err
		}
	}

	if !s.Quiet {
		s.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	// Ctrl+C while a reply streams cancels it; at the prompt liner
	// reports it as ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if s.Ctrl.Cancel() {
				fmt.Fprintln(s.errOut, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		line, err := input.ReadInput(PromptStyle.Render("claudie> "))
		if err != nil {
			fmt.Fprintln(s.out)
			s.printExitSummary()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := s.HandleSlashCommand(ctx, line)
			if err != nil {
				DisplayError(s.errOut, err, false)
			}
			if !keepGoing {
				s.printExitSummary()
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			s.printExitSummary()
			return nil
		}

		if err := s.Send(ctx, line); err != nil {
			DisplayError(s.errOut, err, false)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// Send submits input and prints the reply, blocking until the session ends.
func (s *ChatSession) Send(ctx context.Context, input string) error {
	if _, ok := s.Ctrl.Conversation(); !ok {
		if err := s.open(ctx, ""); err != nil {
			return err
		}
	}

	notify := make(chan struct{}, 1)
	s.Ctrl.Store().SetObserver(func() {
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer s.Ctrl.Store().SetObserver(nil)

	baseline := s.Ctrl.Store().Len()
	start := time.Now()
	sess, err := s.Ctrl.Submit(context.WithoutCancel(ctx), input)
	if err != nil {
		return err
	}
	s.sent++

	streaming := !s.Renderer.Markdown()
	printer := &replyPrinter{w: s.out, enabled: streaming}
	if !streaming {
		fmt.Fprint(s.out, DimStyle.Render("..."))
	}

	for waiting := true; waiting; {
		select {
		case <-notify:
			printer.update(replyContent(s.Ctrl, baseline))
		case <-sess.Done():
			waiting = false
		case <-ctx.Done():
			s.Ctrl.Cancel()
			<-sess.Done()
			waiting = false
		}
	}

	reply := replyContent(s.Ctrl, baseline)
	if streaming {
		printer.update(reply)
		printer.finish()
	} else {
		fmt.Fprint(s.out, "\r   \r")
		fmt.Fprint(s.out, ensureNewline(s.Renderer.Render(reply)))
	}

	if err := sess.Err(); err != nil && !errors.Is(err, session.ErrAbandoned) {
		fmt.Fprintln(s.errOut, WarningStyle.Render("[!] "+err.Error()))
	} else if !s.Quiet {
		fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("%s · %s",
			s.Ctrl.Model(), time.Since(start).Round(100*time.Millisecond))))
	}

	s.App.SaveTranscript(s.Ctrl)
	return nil
}

// open selects ref, or a new conversation when ref is empty.
func (s *ChatSession) open(ctx context.Context, ref string) error {
	var conv model.Conversation
	var err error
	if ref != "" {
		conv, err = s.resolve(ctx, ref)
	} else {
		conv, err = s.App.OpenOrCreate(ctx, "")
	}
	if err != nil {
		return err
	}
	return s.selectConversation(ctx, conv)
}

func (s *ChatSession) selectConversation(ctx context.Context, conv model.Conversation) error {
	if err := s.Ctrl.SelectConversation(ctx, conv); err != nil {
		return err
	}
	if !s.Quiet {
		fmt.Fprintf(s.out, "%s %s %s\n",
			SuccessStyle.Render("[OK]"),
			conv.Title,
			DimStyle.Render(fmt.Sprintf("(%d messages)", s.Ctrl.Store().Len())))
	}
	return nil
}

// resolve looks ref up in the last listed order before asking the server,
// so list numbers stay stable between /list and /switch.
func (s *ChatSession) resolve(ctx context.Context, ref string) (model.Conversation, error) {
	if c, ok := findConversation(s.convs, ref); ok {
		return c, nil
	}
	convs, err := s.App.ListConversations(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	s.convs = convs
	if c, ok := findConversation(convs, ref); ok {
		return c, nil
	}
	return model.Conversation{}, NewNotFoundError("conversation", ref)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// HandleSlashCommand runs one slash command. It returns false when the chat
// should end.
func (s *ChatSession) HandleSlashCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h", "/?":
		s.printHelp()

	case "/new":
		title := strings.Join(rest, " ")
		conv, err := s.App.CreateConversation(ctx, title)
		if err != nil {
			return true, err
		}
		s.convs = nil
		return true, s.selectConversation(ctx, conv)

	case "/switch", "/open":
		if len(rest) == 0 {
			return true, ErrMissingArgument("conversation", "/switch 2")
		}
		return true, s.open(ctx, strings.Join(rest, " "))

	case "/list", "/ls":
		convs, err := s.App.ListConversations(ctx)
		if err != nil {
			return true, err
		}
		s.convs = convs
		current := ""
		if conv, ok := s.Ctrl.Conversation(); ok {
			current = conv.ID
		}
		fmt.Fprint(s.out, formatConversations(convs, current, time.Now()))

	case "/model", "/m":
		s.handleModel(rest)

	case "/task", "/t":
		if len(rest) == 0 {
			fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Task:"), CommandStyle.Render(s.Ctrl.TaskType().DisplayName()))
			fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("Available: %v", model.TaskTypes)))
			return true, nil
		}
		t, err := model.ParseTaskType(rest[0])
		if err != nil {
			return true, NewValidationError("task", rest[0], err.Error())
		}
		s.Ctrl.SetTaskType(t)
		fmt.Fprintf(s.out, "%s Task set to %s\n", SuccessStyle.Render("[OK]"), t.DisplayName())

	case "/output", "/o":
		p := s.Ctrl.Projector().Current()
		if p.IsEmpty() {
			fmt.Fprintln(s.out, DimStyle.Render("No output yet."))
			return true, nil
		}
		fmt.Fprintln(s.out, TitleStyle.Render(p.Category.Label()))
		fmt.Fprintln(s.out, RenderSeparator(40))
		fmt.Fprint(s.out, ensureNewline(s.Renderer.Render(p.Content)))

	case "/history":
		msgs := s.Ctrl.Store().Messages()
		if len(msgs) == 0 {
			fmt.Fprintln(s.out, DimStyle.Render("No messages yet."))
			return true, nil
		}
		formatTranscript(s.out, msgs, s.Renderer)

	case "/cancel":
		if !s.Ctrl.Cancel() {
			fmt.Fprintln(s.out, DimStyle.Render("Nothing to cancel."))
		}

	default:
		return true, NewValidationError("command", cmd, "unknown command, type /help")
	}
	return true, nil
}

func (s *ChatSession) handleModel(rest []string) {
	if len(rest) == 0 {
		fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Model:"), CommandStyle.Render(s.Ctrl.Model()))
		for _, info := range model.Models {
			marker := "  "
			if info.ID == s.Ctrl.Model() {
				marker = CommandStyle.Render("> ")
			}
			fmt.Fprintf(s.out, "%s%-28s %s\n", marker, info.ID, DimStyle.Render(info.Name))
		}
		return
	}

	id := rest[0]
	if info, ok := model.GetModelInfo(id); ok {
		id = info.ID
	} else {
		fmt.Fprintln(s.out, WarningStyle.Render("[!] Unknown model, sending as given: "+id))
	}
	s.Ctrl.SetModel(id)
	fmt.Fprintf(s.out, "%s Model set to %s\n", SuccessStyle.Render("[OK]"), id)
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *ChatSession) printWelcome() {
	fmt.Fprintln(s.out, TitleStyle.Render("claudie chat"))
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Server:"), s.App.Client.BaseURL())
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Model:"), s.Ctrl.Model())
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Task:"), s.Ctrl.TaskType().DisplayName())
	fmt.Fprintln(s.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(s.out)
}

func (s *ChatSession) printHelp() {
	fmt.Fprintln(s.out, TitleStyle.Render("Chat Commands"))
	for _, row := range [][2]string{
		{"/new [title]", "Start a new conversation"},
		{"/switch REF", "Switch conversation (id, list number, title prefix)"},
		{"/list", "List conversations"},
		{"/model [name]", "Show or switch model"},
		{"/task [type]", "Show or switch task type"},
		{"/output", "Show the latest output projection"},
		{"/history", "Show the transcript"},
		{"/cancel", "Cancel the streaming reply"},
		{"/quit", "Exit chat"},
	} {
		fmt.Fprintf(s.out, "  %s %s\n", CommandStyle.Render(fmt.Sprintf("%-16s", row[0])), row[1])
	}
}

func (s *ChatSession) printExitSummary() {
	if s.Quiet {
		return
	}
	st := s.Ctrl.Stats()
	fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("Sent %d messages (%d replies, %d failed, %d cancelled). Bye.",
		s.sent, st.Committed, st.Failed, st.Abandoned)))
}
