// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/output"
	"github.com/jeranaias/claudie-tui/internal/session"
	"github.com/jeranaias/claudie-tui/internal/ui/components"
	"github.com/jeranaias/claudie-tui/internal/ui/styles"
)

// =============================================================================
// WORKSPACE
// =============================================================================

// Workspace is what the chat view needs beyond the session controller:
// the conversation list and transcript persistence.
type Workspace interface {
	ListConversations(ctx context.Context) ([]model.Conversation, error)
	OpenOrCreate(ctx context.Context, ref string) (model.Conversation, error)
	CreateConversation(ctx context.Context, title string) (model.Conversation, error)
	SaveTranscript(ctrl *session.Controller)
}

// Options configure the chat view.
type Options struct {
	Theme          *styles.Theme
	Markdown       bool
	ShowTimestamps bool
	ShowOutputPane bool

	// Conversation is opened at start: an id, list number or title prefix.
	Conversation string

	// StatusTimeout is how long transient status messages stay (default 4s).
	StatusTimeout time.Duration
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It renders what the
// session controller holds and forwards user actions to it; it keeps no
// transcript of its own.
type Model struct {
	ctx     context.Context
	ws      Workspace
	ctrl    *session.Controller
	changes chan struct{}

	// Styling
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	// Widgets
	viewport   viewport.Model
	input      textarea.Model
	spinner    spinner.Model
	header     *components.Header
	status     *components.StatusBar
	outputPane *components.OutputPane
	picker     *components.ConversationPicker

	// Display options
	markdown       bool
	showTimestamps bool
	showOutput     bool
	outputFocus    bool
	showHelp       bool
	statusTimeout  time.Duration

	// Markdown rendering, cached per message
	renderer      *glamour.TermRenderer
	rendererWidth int
	rendered      map[string]renderedMessage

	// Dimensions
	width  int
	height int

	startRef  string
	selecting bool
	statusSeq int
}

// renderedMessage caches the markdown rendering of a closed message.
type renderedMessage struct {
	content string
	width   int
	out     string
}

// New creates the chat view over ctrl. Store and projector observers are
// installed on ctrl; they only signal, the view reads state on its own
// goroutine.
func New(ctx context.Context, ws Workspace, ctrl *session.Controller, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = 4 * time.Second
	}

	changes := make(chan struct{}, 1)
	ctrl.Store().SetObserver(func() { signal(changes) })
	ctrl.Projector().SetObserver(func(output.Projection) { signal(changes) })

	ta := textarea.New()
	ta.Placeholder = "Ask anything... (enter to send, alt+enter for a newline)"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 16000
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = theme.InputPrompt
	ta.Focus()

	vp := viewport.New(80, 20)
	vp.KeyMap = viewport.KeyMap{
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
	}

	sp := spinner.New(spinner.WithSpinner(styles.ASCIISpinner), spinner.WithStyle(theme.Spinner))

	h := help.New()
	h.ShortSeparator = "  "

	m := Model{
		ctx:            ctx,
		ws:             ws,
		ctrl:           ctrl,
		changes:        changes,
		theme:          theme,
		keys:           DefaultKeyMap(),
		help:           h,
		viewport:       vp,
		input:          ta,
		spinner:        sp,
		header:         components.NewHeader(theme),
		status:         components.NewStatusBar(theme),
		outputPane:     components.NewOutputPane(theme),
		picker:         components.NewConversationPicker(theme),
		markdown:       opts.Markdown,
		showTimestamps: opts.ShowTimestamps,
		showOutput:     opts.ShowOutputPane,
		statusTimeout:  opts.StatusTimeout,
		rendered:       make(map[string]renderedMessage),
		startRef:       opts.Conversation,
		width:          80,
		height:         24,
	}
	m.layout()
	m.refresh()
	return m
}

// signal wakes the view without blocking the caller. Observers run under
// the controller's lock, so a full channel is simply skipped.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the change watcher and loads the conversation list, opening
// the start conversation when one was given.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		waitForChange(m.changes),
		loadConversations(m.ctx, m.ws),
	}
	if m.startRef != "" {
		cmds = append(cmds, openConversation(m.ctx, m.ws, m.ctrl, m.startRef))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		if m.outputFocus {
			cmd = m.outputPane.Update(msg)
		} else {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.status.Spinner = m.spinner.View()
		return m, cmd

	case sessionDoneMsg:
		return m.handleSessionDone(msg)

	case conversationsLoadedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Could not load conversations: "+describeError(msg.Err), true)
		}
		m.picker.SetConversations(msg.Conversations)
		return m, nil

	case conversationSelectedMsg:
		return m.handleSelected(msg)

	case components.ConversationPickedMsg:
		m.selecting = true
		m.header.SetLoading(true)
		if msg.New {
			return m, createConversation(m.ctx, m.ws, m.ctrl, "", "")
		}
		return m, selectConversation(m.ctx, m.ctrl, msg.Conversation, "")

	case ConfigReloadedMsg:
		return m.applyConfig(msg)

	case clipboardMsg:
		if msg.Err != nil {
			return m, m.setStatus("Copy failed: "+msg.Err.Error(), true)
		}
		return m, m.setStatus(styles.StatusIndicators.Success+" copied "+pluralize(msg.Chars, "character"), false)

	case clearStatusMsg:
		if msg.Seq == m.statusSeq {
			m.status.ClearMessage()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// Controller returns the session controller behind the view.
func (m Model) Controller() *session.Controller {
	return m.ctrl
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.layout()
	m.refresh()
	return m, nil
}

func (m Model) handleSessionDone(msg sessionDoneMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{saveTranscript(m.ws, m.ctrl)}

	// Cancellation already said so; a superseded session stays quiet.
	current := m.ctrl.Current()
	if current != nil && current.ID() == msg.SessionID && session.IsTransport(msg.Err) {
		cmds = append(cmds, m.setStatus("Reply failed: "+describeError(msg.Err), true))
	}

	m.refresh()
	m.viewport.GotoBottom()
	return m, tea.Batch(cmds...)
}

func (m Model) handleSelected(msg conversationSelectedMsg) (tea.Model, tea.Cmd) {
	m.selecting = false
	m.header.SetLoading(false)
	m.refresh()
	m.viewport.GotoBottom()

	if msg.Err != nil {
		if msg.Pending != "" {
			m.input.SetValue(msg.Pending)
		}
		return m, m.setStatus(describeError(msg.Err), true)
	}

	cmds := []tea.Cmd{loadConversations(m.ctx, m.ws)}
	if msg.Pending != "" {
		sess, err := m.ctrl.Submit(context.WithoutCancel(m.ctx), msg.Pending)
		if err != nil {
			m.input.SetValue(msg.Pending)
			cmds = append(cmds, m.setStatus(describeError(err), true))
		} else {
			cmds = append(cmds, waitForSession(sess), m.spinner.Tick)
		}
	}
	return m, tea.Batch(cmds...)
}

// applyConfig picks up display settings from a reloaded config file. The
// model and task type stay as chosen in this session.
func (m Model) applyConfig(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.setStatus(styles.StatusIndicators.Warning+" config not reloaded: "+msg.Err.Error(), true)
	}

	ui := msg.Config.UI
	if ui.Markdown != m.markdown {
		m.rendered = make(map[string]renderedMessage)
	}
	m.markdown = ui.Markdown
	m.showTimestamps = ui.ShowTimestamps
	if ui.ShowOutputPane != m.showOutput {
		m.showOutput = ui.ShowOutputPane
		m.outputFocus = false
	}

	m.layout()
	m.refresh()
	log.Printf("UI_CONFIG_APPLIED | markdown=%t timestamps=%t output=%t", m.markdown, m.showTimestamps, m.showOutput)
	return m, m.setStatus(styles.StatusIndicators.Info+" config reloaded", false)
}

// =============================================================================
// STATE SYNC
// =============================================================================

// refresh copies controller state into the widgets.
func (m *Model) refresh() {
	conv, ok := m.ctrl.Conversation()
	if ok {
		m.header.SetConversation(conv.Title)
	} else {
		m.header.SetConversation("")
	}
	m.header.SetModel(m.ctrl.Model())
	m.header.SetTask(m.ctrl.TaskType())
	m.header.SetLoading(m.selecting || m.ctrl.Loading())

	m.status.Phase = session.PhaseIdle
	if s := m.ctrl.Current(); s != nil {
		m.status.Phase = s.State().Phase
	}
	m.status.Stats = m.ctrl.Stats()
	m.status.Hints = m.help.ShortHelpView(m.keys.ShortHelp())

	m.outputPane.SetProjection(m.ctrl.Projector().Current())

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// layout sizes every widget for the current window.
func (m *Model) layout() {
	const (
		headerHeight = 1
		statusHeight = 1
		inputBorder  = 2
	)
	inputHeight := m.input.Height() + inputBorder
	bodyHeight := max(m.height-headerHeight-statusHeight-inputHeight, 3)

	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.help.Width = m.width
	m.input.SetWidth(max(m.width-4, 10))
	m.picker.SetSize(m.width, m.height)

	transcriptWidth, paneWidth := m.width, 0
	switch {
	case !m.showOutput:
	case m.theme.GetLayoutMode().ShowsOutputPane():
		paneWidth = m.width * 45 / 100
		transcriptWidth = m.width - paneWidth
	default:
		// Too narrow to split: the pane replaces the transcript.
		paneWidth, transcriptWidth = m.width, 0
	}

	m.viewport.Width = max(transcriptWidth, 1)
	m.viewport.Height = bodyHeight
	if paneWidth > 0 {
		m.outputPane.SetSize(paneWidth, bodyHeight)
	}

	m.ensureRenderer(max(transcriptWidth, paneWidth) - 4)
}

// ensureRenderer rebuilds the markdown renderer when the wrap width changes.
func (m *Model) ensureRenderer(width int) {
	if !m.markdown {
		m.renderer = nil
		m.outputPane.Markdown = nil
		return
	}
	width = max(min(width, 120), 20)
	if m.renderer != nil && m.rendererWidth == width {
		return
	}

	style := "light"
	if m.theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		m.outputPane.Markdown = nil
		return
	}
	m.renderer = r
	m.rendererWidth = width
	m.outputPane.Markdown = r.Render
}

// setStatus shows a transient status message.
func (m *Model) setStatus(msg string, isError bool) tea.Cmd {
	m.statusSeq++
	m.status.SetMessage(msg, isError)
	return clearStatusAfter(m.statusTimeout, m.statusSeq)
}
