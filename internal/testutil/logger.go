// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"log/slog"
	"testing"

	"github.com/KaramelBytes/scoreloom-cli/internal/logging"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// NewTestLogger returns a debug-level logger that writes through t.Log.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Context returns a background context carrying a test logger.
func Context(t *testing.T) context.Context {
	t.Helper()
	return logging.WithLogger(context.Background(), NewTestLogger(t))
}
