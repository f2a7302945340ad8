package obs

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	loggerMu sync.RWMutex
	logger   = NewLogger(os.Stdout, slog.LevelInfo)
)

// NewLogger builds a JSON slog logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the shared structured logger used across the service.
func Logger() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the shared logger and returns a func restoring the
// previous one.
func SetLogger(l *slog.Logger) (restore func()) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	prev := logger
	logger = l
	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		logger = prev
	}
}
