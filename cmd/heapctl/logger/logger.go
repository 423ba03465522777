// Package logger holds heapctl's process-wide slog logger. It discards
// everything until Init enables a dated JSON log file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger. It discards all output until Init is called with
// Enabled set.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

var file *os.File

const (
	logPrefix     = "heapctl-"
	logSuffix     = ".log"
	dateLayout    = "2006-01-02"
	retentionDays = 14
)

// Options configures Init.
type Options struct {
	Enabled bool       // false discards all records
	LogDir  string     // default: ~/.heapctl/logs
	Level   slog.Level // minimum level written
}

// Init points L at heapctl-<date>.log in opts.LogDir, pruning files older
// than the retention window on the way.
func Init(opts Options) error {
	Close()
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	dir := opts.LogDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".heapctl", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	prune(dir, time.Now().AddDate(0, 0, -retentionDays))

	name := filepath.Join(dir, logPrefix+time.Now().Format(dateLayout)+logSuffix)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	file = f
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	return nil
}

// Close releases the log file, if any, and reverts L to discarding.
func Close() {
	if file == nil {
		return
	}
	_ = file.Close()
	file = nil
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// prune removes heapctl log files dated before cutoff. Errors are ignored.
func prune(dir string, cutoff time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		day, err := time.Parse(dateLayout, strings.TrimSuffix(strings.TrimPrefix(name, logPrefix), logSuffix))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}
