// Package logging holds the package-wide structured logger.
//
// The logger is silent until SetLogger installs a real one, so library code
// can log freely without configuring anything.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(discardHandler{}))
}

// SetLogger replaces the logger used by kernelgen packages.
// Passing nil restores the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(discardHandler{})
	}
	current.Store(l)
}

// Logger returns the current logger. It is never nil.
func Logger() *slog.Logger {
	return current.Load()
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
