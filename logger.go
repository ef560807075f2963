package labrender

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger sets the logger used by labrender and its sub-packages.
// By default nothing is logged. Passing nil restores the silent default.
// SetLogger is safe for concurrent use.
//
// Levels in use:
//   - [slog.LevelDebug]: shader variant builds, GPU uploads.
//   - [slog.LevelInfo]: scene assembly progress.
//   - [slog.LevelWarn]: configuration problems that fall back to defaults.
//   - [slog.LevelError]: shader compile failures.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages call it to share the
// configuration set with [SetLogger].
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
