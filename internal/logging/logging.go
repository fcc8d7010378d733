// Package logging wires slog to a charmbracelet/log backend.
package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Setup initializes the global slog logger. Terminal output gets the colored
// text format; anything else gets JSON.
func Setup(verbose bool) {
	SetupWithWriter(os.Stderr, verbose, !isTerminal())
}

// SetupWithWriter initializes the global slog logger against an arbitrary
// writer. The daemon uses this to log to a file in JSON format.
func SetupWithWriter(w io.Writer, verbose, jsonFormat bool) {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	if jsonFormat {
		handler.SetFormatter(charmlog.JSONFormatter)
	}

	slog.SetDefault(slog.New(handler))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
