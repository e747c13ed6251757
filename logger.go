package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// newTintHandler returns a github.com/lmittmann/tint handler: readable,
// colorized log lines when stderr is a terminal, and tint's plain
// (color-disabled) rendering otherwise so redirected or piped output stays
// clean — checked via mattn/go-isatty, the same pairing the wider Go
// ecosystem uses for CLI log output.
func newTintHandler(w *os.File, level slog.Leveler) slog.Handler {
	noColor := !isatty.IsTerminal(w.Fd()) && !isatty.IsCygwinTerminal(w.Fd())

	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
	})
}
