package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ChatLogFileLayout names a chat log after the time the server started.
const ChatLogFileLayout = "ollama_query_02-01-2006_15:04.log"

// NewChatLogger prepares dir for a fresh run: it is created if needed, any
// log files left by previous runs are removed, and a new timestamped file is
// opened. Every model call is written there.
//
// The caller owns the returned file and closes it on shutdown.
func NewChatLogger(dir string, now time.Time, parent *slog.Logger) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create chat log dir %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list chat log dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			parent.Warn("Error deleting old chat log", slog.String("file", e.Name()), slog.Any("error", err))
		}
	}

	path := filepath.Join(dir, now.Format(ChatLogFileLayout))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open chat log %s: %w", path, err)
	}

	l := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With(slog.String("logger", "ollama_logger"))
	return l, f, nil
}
