package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-recipe-backend/internal/services"
)

// reportedError marks an error that was already printed to stderr.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already printed by a command.
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	if isSchemaError(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the database may belong to another program. Check --db")
	}
	return reportedError{err}
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// syncLine waits for a sync outcome and renders it. Nothing is printed when
// sync was not attempted.
func syncLine(cmd *cobra.Command, ch <-chan services.SyncOutcome) {
	o := <-ch
	switch {
	case !o.Attempted:
	case o.Err != nil:
		fmt.Fprintf(cmd.ErrOrStderr(), "remote sync failed: %v\n", o.Err)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "remote sync ok")
	}
}

func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
