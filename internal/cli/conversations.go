// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations.go - Conversation management commands for claudie.
//
// Command: conversations [subcommand]
// Aliases: convs, ls
//
// Subcommands:
//   list (default)                 List conversations, newest first
//   show REF                       Print a transcript
//   export REF [--format md|json] [--output FILE]
//   delete REF --confirm           Delete on the server and in the cache
//   search QUERY                   Search the local cache
//
// REF is a conversation id, a list number or a title prefix.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jeranaias/claudie-tui/internal/model"
	"github.com/jeranaias/claudie-tui/internal/storage"
	"github.com/jeranaias/claudie-tui/internal/util"
)

// RunConversations handles the conversations command.
func RunConversations(ctx context.Context, app *App, args Args, out io.Writer) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "list", "ls":
		return conversationsList(ctx, app, args, out)
	case "show", "view":
		return conversationsShow(ctx, app, args, out)
	case "export":
		return conversationsExport(ctx, app, args, out)
	case "delete", "rm":
		return conversationsDelete(ctx, app, args, out)
	case "search", "find":
		return conversationsSearch(app, args, out)
	default:
		return NewValidationError("subcommand", args.Subcommand, "expected list, show, export, delete or search")
	}
}

func conversationsList(ctx context.Context, app *App, args Args, out io.Writer) error {
	convs, err := app.ListConversations(ctx)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("conversations", conversationRows(convs)).Write(out)
	}
	fmt.Fprint(out, formatConversations(convs, "", time.Now()))
	return nil
}

// loadTranscript resolves ref and loads its messages, from the server when
// reachable and from the cache otherwise.
func loadTranscript(ctx context.Context, app *App, ref string) (*storage.StoredConversation, error) {
	if ref == "" {
		return nil, ErrMissingArgument("conversation", "claudie conversations show 1")
	}
	conv, err := app.ResolveConversation(ctx, ref)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	if app.Cache != nil {
		msgs, err = (&storage.CachedHistory{Remote: app.Client, Cache: app.Cache}).ListMessages(ctx, conv.ID)
	} else {
		msgs, err = app.Client.ListMessages(ctx, conv.ID)
	}
	if err != nil {
		return nil, err
	}

	stored := &storage.StoredConversation{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  msgs,
	}
	for _, m := range msgs {
		if m.Role == model.RoleAssistant && m.ModelUsed != "" {
			stored.Model = m.ModelUsed
		}
	}
	return stored, nil
}

func conversationsShow(ctx context.Context, app *App, args Args, out io.Writer) error {
	stored, err := loadTranscript(ctx, app, positional(args, 1))
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("conversations show", stored).Write(out)
	}

	fmt.Fprintln(out, TitleStyle.Render(stored.Title))
	fmt.Fprintln(out, DimStyle.Render(stored.ID))
	fmt.Fprintln(out, RenderSeparator())
	if len(stored.Messages) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No messages yet."))
		return nil
	}
	formatTranscript(out, stored.Messages, NewRenderer(app.Config, args))
	return nil
}

func conversationsExport(ctx context.Context, app *App, args Args, out io.Writer) error {
	format := strings.ToLower(args.Options["format"])
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "markdown" && format != "json" {
		return &ValidationError{Field: "format", Value: format, Reason: "unsupported format", Example: "--format md|json"}
	}

	stored, err := loadTranscript(ctx, app, positional(args, 1))
	if err != nil {
		return err
	}

	var data []byte
	if format == "json" {
		data, err = stored.ExportJSON()
		if err != nil {
			return NewCommandError("conversations", "export", "could not encode conversation", err)
		}
	} else {
		data = []byte(stored.ExportMarkdown())
	}

	path := args.Options["output"]
	if path == "" {
		_, err := out.Write(data)
		return err
	}

	abs, err := ValidateOutputPath(path)
	if err != nil {
		return NewValidationError("output", path, err.Error())
	}
	if err := util.AtomicWriteFile(abs, data, 0600); err != nil {
		return NewCommandError("conversations", "export", "could not write file", err)
	}
	log.Printf("CONVERSATION_EXPORTED | conversation=%s format=%s path=%s", stored.ID, format, abs)
	fmt.Fprintf(out, "%s Exported %q to %s\n", SuccessStyle.Render("[OK]"), stored.Title, abs)
	return nil
}

func conversationsDelete(ctx context.Context, app *App, args Args, out io.Writer) error {
	ref := positional(args, 1)
	if ref == "" {
		return ErrMissingArgument("conversation", "claudie conversations delete 3 --confirm")
	}
	conv, err := app.ResolveConversation(ctx, ref)
	if err != nil {
		return err
	}
	if args.Options["confirm"] != "true" {
		return &ValidationError{
			Field:   "confirm",
			Reason:  fmt.Sprintf("deleting %q cannot be undone", conv.Title),
			Example: fmt.Sprintf("claudie conversations delete %s --confirm", conv.ID),
		}
	}

	if err := app.Client.DeleteConversation(ctx, conv.ID); err != nil {
		return err
	}
	if app.Cache != nil {
		if err := app.Cache.Delete(conv.ID); err != nil && !errors.Is(err, storage.ErrConversationNotFound) {
			log.Printf("CACHE_DELETE_ERROR | conversation=%s error=%v", conv.ID, err)
		}
	}
	fmt.Fprintf(out, "%s Deleted %q\n", SuccessStyle.Render("[OK]"), conv.Title)
	return nil
}

func conversationsSearch(app *App, args Args, out io.Writer) error {
	query := strings.Join(positionalFrom(args, 1), " ")
	if query == "" {
		return ErrMissingArgument("query", "claudie conversations search goroutines")
	}
	if app.Cache == nil {
		return NewCommandError("conversations", "search", "the local cache is disabled", nil)
	}

	results, err := app.Cache.Search(query)
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("conversations search", SearchData{Query: query, Results: results}).Write(out)
	}
	fmt.Fprint(out, storage.FormatConversationList(results, time.Now()))
	return nil
}
