// Package logger holds the toolkit's package-level structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init
// enables it.
var L = discard()

const (
	logPrefix = "flistkit-"
	logSuffix = ".log"

	// DefaultRetentionDays is how long daily log files are kept.
	DefaultRetentionDays = 30
)

// Engine log levels as they appear in pin.conf (- - loglevel N).
const (
	PinLevelNone    = 0
	PinLevelError   = 1
	PinLevelWarning = 2
	PinLevelDebug   = 3
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for daily log files. Default: ~/.flistkit/logs
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	// Writer, when set, receives text-formatted records instead of a log file.
	Writer io.Writer
	// RetentionDays bounds the age of kept log files. Default: DefaultRetentionDays.
	RetentionDays int
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Init configures logging. Call before any log calls.
func Init(opts Options) error {
	if !opts.Enabled {
		L = discard()
		return nil
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.Writer != nil {
		L = slog.New(slog.NewTextHandler(opts.Writer, handlerOpts))
		return nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logDir = filepath.Join(home, ".flistkit", "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	retention := opts.RetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	cleanOldLogs(logDir, time.Now().AddDate(0, 0, -retention))

	filename := filepath.Join(logDir, logPrefix+time.Now().Format(time.DateOnly)+logSuffix)
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	L = slog.New(slog.NewJSONHandler(f, handlerOpts))
	return nil
}

// LevelFromPin maps an engine log level to Options. Level 0 disables
// logging; unknown levels log at Debug.
func LevelFromPin(pin int) (slog.Level, bool) {
	switch pin {
	case PinLevelNone:
		return slog.LevelInfo, false
	case PinLevelError:
		return slog.LevelError, true
	case PinLevelWarning:
		return slog.LevelWarn, true
	default:
		return slog.LevelDebug, true
	}
}

// cleanOldLogs removes daily log files dated before cutoff.
func cleanOldLogs(logDir string, cutoff time.Time) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		// flistkit-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
