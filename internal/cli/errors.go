// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for claudie commands.
//
// Commands always return errors; main decides how to display them and
// which exit code to use.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/claudie-tui/internal/client"
	"github.com/jeranaias/claudie-tui/internal/config"
	"github.com/jeranaias/claudie-tui/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	// ExitCancelled follows the shell convention for SIGINT
	ExitCancelled = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "conversations"
	Action  string // e.g. "export"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required argument missing",
		Example: usage,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON object in JSON mode.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]any{
		"success":    false,
		"error":      err.Error(),
		"error_type": errorType(err),
		"exit_code":  GetExitCode(err),
	}

	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &ve):
		output["field"] = ve.Field
		output["value"] = ve.Value
	case errors.As(err, &nf):
		output["resource"] = nf.Resource
		output["id"] = nf.ID
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(output)
}

func errorType(err error) string {
	var ve *ValidationError
	var nf *NotFoundError
	var ce *CommandError
	var cfgErr config.ValidateErrors
	var clientErr *client.ClientError
	switch {
	case errors.As(err, &ve):
		return "validation_error"
	case errors.As(err, &nf):
		return "not_found_error"
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.As(err, &clientErr):
		return "client_error"
	case errors.As(err, &ce):
		return "command_error"
	default:
		return "generic_error"
	}
}

func errorHint(err error) string {
	switch {
	case client.IsUnauthorized(err):
		return "Run \"claudie login\" or set CLAUDIE_TOKEN."
	case errors.Is(err, client.ErrUnavailable):
		return "Is the workspace server running? Check server.base_url with \"claudie config get server.base_url\"."
	default:
		return ""
	}
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ve *ValidationError
	var nf *NotFoundError
	var cfgErr config.ValidateErrors
	switch {
	case errors.As(err, &ve):
		return ExitUsageError
	case errors.As(err, &nf):
		return ExitNotFoundError
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.Is(err, session.ErrAbandoned):
		return ExitCancelled
	case client.IsUnauthorized(err):
		return ExitAuthError
	case client.IsNotFound(err):
		return ExitNotFoundError
	case errors.Is(err, client.ErrTimeout):
		return ExitTimeoutError
	case errors.Is(err, client.ErrUnavailable):
		return ExitNetworkError
	}

	var te *session.TransportError
	if errors.As(err, &te) {
		if te.Kind == session.TransportIdleTimeout {
			return ExitTimeoutError
		}
		return ExitNetworkError
	}
	return ExitGeneralError
}
