// Package logs builds the process logger: text records to a terminal
// writer, optionally fanned out to a JSON file.
package logs

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type Options struct {
	Level slog.Leveler
	// JSONFile is appended to when set.
	JSONFile string
}

// Logger is a *slog.Logger holding the files it writes to.
type Logger struct {
	*slog.Logger
	closers []io.Closer
}

func New(w io.Writer, opts Options) (*Logger, error) {
	level := opts.Level
	if level == nil {
		level = DefaultLevel()
	}
	hopts := &slog.HandlerOptions{Level: level}
	handlers := []slog.Handler{slog.NewTextHandler(w, hopts)}
	res := &Logger{}
	if opts.JSONFile != "" {
		f, err := os.OpenFile(opts.JSONFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, f)
		handlers = append(handlers, slog.NewJSONHandler(f, hopts))
	}
	res.Logger = slog.New(slogmulti.Fanout(handlers...))
	return res, nil
}

// DefaultLevel is debug when DEBUG is set in the environment and info
// otherwise.
func DefaultLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
