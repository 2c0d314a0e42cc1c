// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/claudie-tui/internal/client"
	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/session"
)

// =============================================================================
// FAKE WORKSPACE SERVER
// =============================================================================

type fakeWorkspace struct {
	mu       sync.Mutex
	chats    []model.ChatRequest
	deleted  []string
	created  []string
	reply    []string
	failChat bool
}

func newFakeWorkspace(t *testing.T) (*fakeWorkspace, *httptest.Server) {
	t.Helper()
	ws := &fakeWorkspace{reply: []string{"Hello", " world"}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"c-old","title":"Go channels","created_at":"2025-01-01T09:00:00Z","updated_at":"2025-01-01T09:00:00Z"},
			{"id":"c-new","title":"Rust lifetimes","created_at":"2025-01-02T09:00:00Z","updated_at":"2025-01-02T09:00:00Z"}
		]`)
	})
	mux.HandleFunc("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		ws.mu.Lock()
		ws.created = append(ws.created, body.Title)
		ws.mu.Unlock()
		fmt.Fprintf(w, `{"id":"c-created","title":%q,"created_at":"2025-01-03T09:00:00Z","updated_at":"2025-01-03T09:00:00Z"}`, body.Title)
	})
	mux.HandleFunc("DELETE /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.mu.Lock()
		ws.deleted = append(ws.deleted, r.PathValue("id"))
		ws.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c-old" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"id":"m1","conversation_id":"c-old","role":"user","content":"What is a channel?","timestamp":"2025-01-01T09:00:00Z"},
			{"id":"m2","conversation_id":"c-old","role":"assistant","content":"A typed conduit.","model_used":"gpt-4o","timestamp":"2025-01-01T09:00:05Z"}
		]`)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req model.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		ws.mu.Lock()
		ws.chats = append(ws.chats, req)
		fail := ws.failChat
		reply := ws.reply
		ws.mu.Unlock()

		if fail {
			// Body ends without a final frame
			fmt.Fprint(w, "data: {\"content\":\"partial\",\"done\":false}\n")
			return
		}
		for _, part := range reply {
			data, _ := json.Marshal(map[string]any{"content": part, "done": false})
			fmt.Fprintf(w, "data: %s\n", data)
		}
		fmt.Fprint(w, "data: {\"content\":\"\",\"done\":true,\"message_id\":\"srv-1\"}\n")
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"Invalid credentials"}`)
			return
		}
		fmt.Fprintf(w, `{"token":"tok-from-login","user":{"id":"u1","name":"Ada","email":%q}}`, body.Email)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return ws, srv
}

func (ws *fakeWorkspace) lastChat() model.ChatRequest {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.chats) == 0 {
		return model.ChatRequest{}
	}
	return ws.chats[len(ws.chats)-1]
}

// newTestApp isolates the config directory and points the app at srv.
func newTestApp(t *testing.T, srv *httptest.Server, args Args) *App {
	t.Helper()
	t.Setenv("CLAUDIE_HOME", t.TempDir())

	cfg := config.Default()
	cfg.Server.BaseURL = srv.URL
	cfg.Server.RequestsPerSecond = 1000
	cfg.Storage.Dir = t.TempDir()
	cfg.Auth.Token = "test-token"

	app, err := NewApp(cfg, args)
	require.NoError(t, err)
	return app
}

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name: "flag with value",
			args: []string{"export", "2", "--format", "json"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
				if p.Positional(1) != "2" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "2")
				}
			},
		},
		{
			name: "flag with equals",
			args: []string{"--model=gpt-4o-mini", "hi"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "gpt-4o-mini" {
					t.Errorf("Flag(model) = %q", p.Flag("model"))
				}
			},
		},
		{
			name: "boolean flag does not swallow next arg",
			args: []string{"--json", "conversations"},
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
				if p.Positional(0) != "conversations" {
					t.Errorf("Positional(0) = %q, want conversations", p.Positional(0))
				}
			},
		},
		{
			name: "boolean flag with explicit false",
			args: []string{"--quiet=false"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("quiet") {
					t.Error("BoolFlag(quiet) should be false")
				}
			},
		},
		{
			name: "double dash ends flags",
			args: []string{"ask", "--", "--not-a-flag"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 2 {
					t.Errorf("PositionalCount() = %d, want 2", p.PositionalCount())
				}
				if p.Positional(1) != "--not-a-flag" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name: "short flags",
			args: []string{"-m", "gpt-4o", "-q", "question"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model", "m") != "gpt-4o" {
					t.Errorf("Flag(model, m) = %q", p.Flag("model", "m"))
				}
				if !p.BoolFlag("quiet", "q") {
					t.Error("BoolFlag(quiet, q) should be true")
				}
				if got := strings.Join(p.PositionalFrom(0), " "); got != "question" {
					t.Errorf("positional = %q", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, NewArgParser(tt.args))
		})
	}
}

func TestArgParser_Options(t *testing.T) {
	p := NewArgParser([]string{"export", "1", "--format", "md", "--confirm"})
	opts := p.Options()
	assert.Equal(t, "md", opts["format"])
	assert.Equal(t, "true", opts["confirm"])
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	assert.Equal(t, 0, p.PositionalCount())
	assert.Equal(t, "", p.Positional(0))
	assert.Empty(t, p.PositionalFrom(3))
	assert.Equal(t, "", p.Flag("model"))
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.input, "index")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args starts tui", argv: nil, wantCmd: CmdTUI},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{
			name:    "ask joins query",
			argv:    []string{"ask", "-m", "gpt-4o-mini", "what", "is", "go"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "what is go", a.Query)
				assert.Equal(t, "gpt-4o-mini", a.Model)
			},
		},
		{
			name:    "bare text is a question",
			argv:    []string{"explain", "defer"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "explain defer", a.Query)
			},
		},
		{
			name:    "conversations alias with subcommand",
			argv:    []string{"ls", "export", "2", "--format", "json"},
			wantCmd: CmdConversations,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "export", a.Subcommand)
				assert.Equal(t, []string{"export", "2"}, a.Positional)
				assert.Equal(t, "json", a.Options["format"])
			},
		},
		{
			name:    "chat with conversation and task",
			argv:    []string{"chat", "-c", "1", "--task", "code"},
			wantCmd: CmdChat,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "1", a.Conversation)
				assert.Equal(t, "code", a.TaskType)
			},
		},
		{
			name:    "config set",
			argv:    []string{"cfg", "set", "ui.theme", "dark"},
			wantCmd: CmdConfig,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
			},
		},
		{name: "login", argv: []string{"login", "me@example.com"}, wantCmd: CmdLogin},
		{name: "global flags before command", argv: []string{"--json", "--url", "http://x:1", "conversations"}, wantCmd: CmdConversations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "claudie ask")
	assert.Contains(t, buf.String(), "/switch REF")

	buf.Reset()
	PrintVersion(&buf)
	assert.Contains(t, buf.String(), "claudie "+Version)
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFindConversation(t *testing.T) {
	convs := []model.Conversation{
		{ID: "abc-123", Title: "Go channels"},
		{ID: "def-456", Title: "Rust lifetimes"},
		{ID: "3", Title: "Numeric id"},
	}

	tests := []struct {
		ref    string
		wantID string
		wantOK bool
	}{
		{"abc-123", "abc-123", true},
		{"2", "def-456", true},
		{"3", "3", true}, // exact id wins over index
		{"rust", "def-456", true},
		{"GO CH", "abc-123", true},
		{"9", "", false},
		{"0", "", false},
		{"python", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := findConversation(convs, tt.ref)
		if ok != tt.wantOK || got.ID != tt.wantID {
			t.Errorf("findConversation(%q) = (%q, %v), want (%q, %v)", tt.ref, got.ID, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestFormatConversations(t *testing.T) {
	now := time.Now()
	convs := []model.Conversation{
		{ID: "a", Title: "First", UpdatedAt: now},
		{ID: "b", Title: "Second", UpdatedAt: now.Add(-24 * time.Hour)},
	}
	out := formatConversations(convs, "b", now)
	assert.Contains(t, out, "1. First")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "> ")

	assert.Contains(t, formatConversations(nil, "", now), "No conversations yet")
}

func TestReplyPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &replyPrinter{w: &buf, enabled: true}
	p.update("Hel")
	p.update("Hello")
	p.update("Hello")
	p.update("Sorry, failed")
	p.finish()
	assert.Equal(t, "Hello\nSorry, failed\n", buf.String())

	buf.Reset()
	off := &replyPrinter{w: &buf}
	off.update("ignored")
	off.finish()
	assert.Empty(t, buf.String())
}

func TestValidateOutputPath(t *testing.T) {
	tmp := filepath.Join(os.TempDir(), "claudie-export.md")
	got, err := ValidateOutputPath(tmp)
	require.NoError(t, err)
	assert.Equal(t, tmp, got)

	_, err = ValidateOutputPath("../../etc/passwd")
	assert.Error(t, err)

	assert.False(t, isPathWithinDir("/home/userEVIL/x", "/home/user"))
	assert.True(t, isPathWithinDir("/home/user/x", "/home/user"))
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("task", "x", "bad"), ExitUsageError},
		{"not found", NewNotFoundError("conversation", "9"), ExitNotFoundError},
		{"config", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"unauthorized", &client.ClientError{Type: client.ErrTypeUnauthorized}, ExitAuthError},
		{"unavailable", fmt.Errorf("list: %w", client.ErrUnavailable), ExitNetworkError},
		{"timeout", client.ErrTimeout, ExitTimeoutError},
		{"abandoned", session.ErrAbandoned, ExitCancelled},
		{"idle timeout", &session.TransportError{Kind: session.TransportIdleTimeout}, ExitTimeoutError},
		{"stream body", &session.TransportError{Kind: session.TransportBody}, ExitNetworkError},
		{"generic", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewNotFoundError("conversation", "7"), true)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "not_found_error", got["error_type"])
	assert.Equal(t, "7", got["id"])
}

func TestDisplayError_Hint(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, client.ErrUnauthorized, false)
	assert.Contains(t, buf.String(), "claudie login")
}

// =============================================================================
// APP TESTS
// =============================================================================

func TestNewApp_AppliesOverrides(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{Model: "claude-3-5-haiku-20241022", TaskType: "code"})

	assert.Equal(t, "claude-3-5-haiku-20241022", app.Config.Chat.DefaultModel)
	assert.Equal(t, model.TaskCode, app.Config.TaskType())
	assert.NotNil(t, app.Cache)

	t.Setenv("CLAUDIE_HOME", t.TempDir())
	_, err := NewApp(config.Default(), Args{TaskType: "painting"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestApp_ListConversationsFallsBackToCache(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	convs, err := app.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c-new", convs[0].ID)

	srv.Close()
	cached, err := app.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestApp_ListConversationsMergesBumps(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	_, err := app.ListConversations(context.Background())
	require.NoError(t, err)

	// A local reply bumped the older conversation past the newer one
	require.NoError(t, app.Cache.Bump(context.Background(), "c-old", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)))

	convs, err := app.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c-old", convs[0].ID)
}

func TestApp_ResolveConversation(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	conv, err := app.ResolveConversation(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "c-old", conv.ID)

	_, err = app.ResolveConversation(context.Background(), "missing")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestRunAsk_StreamsReply(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	var out, errOut bytes.Buffer
	err := RunAsk(context.Background(), app, Args{Query: "say hello"}, strings.NewReader(""), &out, &errOut)
	require.NoError(t, err)

	assert.Equal(t, "Hello world\n", out.String())
	req := ws.lastChat()
	assert.Equal(t, "say hello", req.Content)
	assert.Equal(t, "c-created", req.ConversationID)
	assert.Equal(t, model.DefaultModel, req.Model)

	stored, err := app.Cache.Load("c-created")
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "Hello world", stored.Messages[1].Content)
}

func TestRunAsk_ExistingConversationJSON(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	var out, errOut bytes.Buffer
	args := Args{Query: "and buffered ones?", Conversation: "go", JSON: true}
	require.NoError(t, RunAsk(context.Background(), app, args, strings.NewReader(""), &out, &errOut))

	var resp struct {
		Success bool    `json:"success"`
		Data    AskData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "c-old", resp.Data.ConversationID)
	assert.Equal(t, "Hello world", resp.Data.Reply)
	assert.Equal(t, "text", resp.Data.Category)
	assert.Equal(t, "c-old", ws.lastChat().ConversationID)
	assert.Empty(t, errOut.String())
}

func TestRunAsk_ReadsPipedInput(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	var out, errOut bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), app, Args{Quiet: true}, strings.NewReader("from a pipe\n"), &out, &errOut))
	assert.Equal(t, "from a pipe", ws.lastChat().Content)
}

func TestRunAsk_MissingQuestion(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	err := RunAsk(context.Background(), app, Args{}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRunAsk_StreamFailureShowsFallback(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	ws.failChat = true
	app := newTestApp(t, srv, Args{})

	var out bytes.Buffer
	err := RunAsk(context.Background(), app, Args{Query: "hi", Quiet: true}, strings.NewReader(""), &out, &bytes.Buffer{})

	require.Error(t, err)
	assert.True(t, session.IsTransport(err))
	assert.Contains(t, out.String(), app.Config.Chat.FallbackText)
}

func TestRunAsk_ImageTaskStaysLocal(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{TaskType: "image"})

	var out bytes.Buffer
	require.NoError(t, RunAsk(context.Background(), app, Args{Query: "a red fox", Quiet: true}, strings.NewReader(""), &out, &bytes.Buffer{}))

	assert.NotEmpty(t, out.String())
	assert.Equal(t, model.ChatRequest{}, ws.lastChat())
}

// =============================================================================
// CONVERSATIONS COMMAND TESTS
// =============================================================================

func TestRunConversations_List(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	var out bytes.Buffer
	require.NoError(t, RunConversations(context.Background(), app, Args{}, &out))
	assert.Contains(t, out.String(), "1. Rust lifetimes")
	assert.Contains(t, out.String(), "2. Go channels")

	out.Reset()
	require.NoError(t, RunConversations(context.Background(), app, Args{JSON: true}, &out))
	var resp struct {
		Data []ConversationData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, 1, resp.Data[0].Index)
}

func TestRunConversations_ExportMarkdown(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	var out bytes.Buffer
	args := Args{Subcommand: "export", Positional: []string{"export", "c-old"}, Options: map[string]string{}}
	require.NoError(t, RunConversations(context.Background(), app, args, &out))

	md := out.String()
	assert.Contains(t, md, "# Go channels")
	assert.Contains(t, md, "What is a channel?")
	assert.Contains(t, md, "A typed conduit.")
}

func TestRunConversations_ExportJSONToFile(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	dir, err := os.MkdirTemp("", "claudie-export")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "chat.json")

	args := Args{
		Subcommand: "export",
		Positional: []string{"export", "2"},
		Options:    map[string]string{"format": "json", "output": path},
	}
	var out bytes.Buffer
	require.NoError(t, RunConversations(context.Background(), app, args, &out))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported struct {
		ID       string          `json:"id"`
		Model    string          `json:"model"`
		Messages []model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "c-old", exported.ID)
	assert.Equal(t, "gpt-4o", exported.Model)
	assert.Len(t, exported.Messages, 2)
}

func TestRunConversations_ExportRejectsFormat(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	args := Args{Subcommand: "export", Positional: []string{"export", "1"}, Options: map[string]string{"format": "pdf"}}
	err := RunConversations(context.Background(), app, args, &bytes.Buffer{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRunConversations_DeleteRequiresConfirm(t *testing.T) {
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	args := Args{Subcommand: "delete", Positional: []string{"delete", "c-old"}, Options: map[string]string{}}
	err := RunConversations(context.Background(), app, args, &bytes.Buffer{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "confirm", ve.Field)
	assert.Empty(t, ws.deleted)

	args.Options["confirm"] = "true"
	require.NoError(t, RunConversations(context.Background(), app, args, &bytes.Buffer{}))
	assert.Equal(t, []string{"c-old"}, ws.deleted)
}

func TestRunConversations_Search(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	// Populate the cache with the transcript
	show := Args{Subcommand: "show", Positional: []string{"show", "c-old"}}
	require.NoError(t, RunConversations(context.Background(), app, show, &bytes.Buffer{}))

	var out bytes.Buffer
	search := Args{Subcommand: "search", Positional: []string{"search", "conduit"}, JSON: true}
	require.NoError(t, RunConversations(context.Background(), app, search, &out))

	var resp struct {
		Data SearchData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "c-old", resp.Data.Results[0].ID)
}

// =============================================================================
// CONFIG COMMAND TESTS
// =============================================================================

func TestRunConfig_GetSetKeys(t *testing.T) {
	t.Setenv("CLAUDIE_HOME", t.TempDir())
	cfg := config.Default()

	var out bytes.Buffer
	require.NoError(t, RunConfig(cfg, Args{Subcommand: "get", Positional: []string{"get", "chat.default_model"}}, &out))
	assert.Equal(t, "gpt-4o\n", out.String())

	out.Reset()
	set := Args{Subcommand: "set", Positional: []string{"set", "ui.theme", "dark"}}
	require.NoError(t, RunConfig(cfg, set, &out))
	assert.Equal(t, "dark", cfg.UI.Theme)

	reloaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "dark", reloaded.UI.Theme)

	out.Reset()
	require.NoError(t, RunConfig(cfg, Args{Subcommand: "keys"}, &out))
	assert.Contains(t, out.String(), "server.base_url")
}

func TestRunConfig_SetInvalid(t *testing.T) {
	t.Setenv("CLAUDIE_HOME", t.TempDir())
	cfg := config.Default()

	err := RunConfig(cfg, Args{Subcommand: "set", Positional: []string{"set", "ui.theme", "neon"}}, &bytes.Buffer{})
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	err = RunConfig(cfg, Args{Subcommand: "get", Positional: []string{"get", "nope.key"}}, &bytes.Buffer{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = RunConfig(cfg, Args{Subcommand: "frobnicate"}, &bytes.Buffer{})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRunConfig_MasksToken(t *testing.T) {
	t.Setenv("CLAUDIE_HOME", t.TempDir())
	cfg := config.Default()
	cfg.Auth.Token = "secret-token-abcd"

	var out bytes.Buffer
	require.NoError(t, RunConfig(cfg, Args{}, &out))
	assert.NotContains(t, out.String(), "secret-token")
	assert.Contains(t, out.String(), "********abcd")
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestRunLogin_PasswordStdin(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	args := Args{Positional: []string{"ada@example.com"}, Options: map[string]string{"password-stdin": "true"}}
	var out bytes.Buffer
	require.NoError(t, RunLogin(context.Background(), app, args, strings.NewReader("hunter2\n"), &out))

	assert.Contains(t, out.String(), "Signed in as Ada")
	assert.Equal(t, "tok-from-login", app.Config.Auth.Token)

	saved, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-from-login", saved.Auth.Token)
	assert.Equal(t, "ada@example.com", saved.Auth.Email)
}

func TestRunLogin_BadPassword(t *testing.T) {
	_, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})

	args := Args{Positional: []string{"ada@example.com"}, Options: map[string]string{"password-stdin": "true"}}
	err := RunLogin(context.Background(), app, args, strings.NewReader("wrong\n"), &bytes.Buffer{})
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, ExitAuthError, GetExitCode(err))
}

// =============================================================================
// CHAT SESSION TESTS
// =============================================================================

func newTestChat(t *testing.T) (*ChatSession, *fakeWorkspace, *bytes.Buffer) {
	t.Helper()
	ws, srv := newFakeWorkspace(t)
	app := newTestApp(t, srv, Args{})
	var out bytes.Buffer
	return NewChatSession(app, Args{Quiet: true}, &out, &out), ws, &out
}

func TestChatSession_SendCreatesConversationLazily(t *testing.T) {
	s, ws, out := newTestChat(t)
	ctx := context.Background()

	_, ok := s.Ctrl.Conversation()
	require.False(t, ok)

	require.NoError(t, s.Send(ctx, "first message"))
	assert.Contains(t, out.String(), "Hello world")
	assert.Equal(t, "c-created", ws.lastChat().ConversationID)

	require.NoError(t, s.Send(ctx, "second"))
	assert.Len(t, ws.created, 1)
	assert.Equal(t, 4, s.Ctrl.Store().Len())
}

func TestChatSession_SlashCommands(t *testing.T) {
	s, ws, out := newTestChat(t)
	ctx := context.Background()

	keep, err := s.HandleSlashCommand(ctx, "/model claude-3-5-sonnet")
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, "claude-3-5-sonnet-20241022", s.Ctrl.Model())

	_, err = s.HandleSlashCommand(ctx, "/task code")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCode, s.Ctrl.TaskType())

	_, err = s.HandleSlashCommand(ctx, "/task painting")
	assert.Error(t, err)

	out.Reset()
	_, err = s.HandleSlashCommand(ctx, "/output")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No output yet.")

	out.Reset()
	_, err = s.HandleSlashCommand(ctx, "/list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Rust lifetimes")

	_, err = s.HandleSlashCommand(ctx, "/switch 2")
	require.NoError(t, err)
	conv, ok := s.Ctrl.Conversation()
	require.True(t, ok)
	assert.Equal(t, "c-old", conv.ID)
	assert.Equal(t, 2, s.Ctrl.Store().Len())

	_, err = s.HandleSlashCommand(ctx, "/new Scratch pad")
	require.NoError(t, err)
	assert.Equal(t, []string{"Scratch pad"}, ws.created)

	_, err = s.HandleSlashCommand(ctx, "/bogus")
	assert.Error(t, err)

	keep, err = s.HandleSlashCommand(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestChatSession_OutputAfterCodeReply(t *testing.T) {
	s, ws, out := newTestChat(t)
	ws.reply = []string{"```go\nfmt.Println(1)\n```"}
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, "print one"))

	out.Reset()
	_, err := s.HandleSlashCommand(ctx, "/output")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Code Output")
	assert.Contains(t, out.String(), "fmt.Println(1)")
}

func TestCompleteSlashCommand(t *testing.T) {
	assert.Equal(t, []string{"/switch"}, completeSlashCommand("/sw"))
	assert.Nil(t, completeSlashCommand("hello"))
}
