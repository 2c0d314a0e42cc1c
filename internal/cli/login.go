// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Sign in to the workspace and store the bearer token.
//
// Command: login [email]
//
// Flags:
//   --password-stdin    Read the password from stdin instead of prompting
//
// Examples:
//   claudie login me@example.com
//   echo "$PW" | claudie login me@example.com --password-stdin
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jeranaias/claudie-tui/internal/config"
)

// RunLogin exchanges email and password for a token and saves both the
// email and the token to the config file.
func RunLogin(ctx context.Context, app *App, args Args, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	email := positional(args, 0)
	if email == "" {
		email = app.Config.Auth.Email
	}
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return ErrMissingArgument("email", "claudie login me@example.com")
		}
		email = strings.TrimSpace(line)
	}
	if !strings.Contains(email, "@") {
		return NewValidationError("email", email, "not an email address")
	}

	var password string
	if args.Options["password-stdin"] == "true" {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return ErrMissingArgument("password", "echo \"$PW\" | claudie login me@example.com --password-stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	} else {
		var err error
		password, err = ReadPassword(out, "Password: ")
		if err != nil {
			return err
		}
	}
	if password == "" {
		return ErrMissingArgument("password", "claudie login me@example.com")
	}

	token, user, err := app.Client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	// Save on top of the file's contents rather than the flag-adjusted config.
	cfg, err := config.Load()
	if err != nil {
		cfg = app.Config.Clone()
	}
	cfg.Auth.Email = email
	cfg.Auth.Token = token
	if err := config.Save(cfg); err != nil {
		return NewCommandError("login", "save", "signed in but could not save the token", err)
	}
	app.Config.Auth.Email = email
	app.Config.Auth.Token = token
	log.Printf("LOGIN | email=%s user=%s", email, user.ID)

	name := user.Name
	if name == "" {
		name = email
	}
	fmt.Fprintf(out, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), name)
	if path, err := config.ConfigPathTOML(); err == nil && !args.Quiet {
		fmt.Fprintln(out, DimStyle.Render("Token saved to "+path))
	}
	return nil
}
