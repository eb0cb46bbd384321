// Package logger provides drawcast's process-wide structured logger. Init
// installs a level-appropriate handler; Log is always safe to call even
// before Init runs (tests and early startup get slog's default handler).
package logger

import (
	"log/slog"
	"os"
)

// Log is the process-wide logger, ready to use before Init is called.
var Log = slog.Default()

// Init installs the global logger at the given level, writing to stdout.
// drawcast has no log-file setting (internal/config.Config carries none),
// so unlike the teacher's logger this never opens a second writer.
func Init(level string) error {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String("time", a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})

	Log = slog.New(handler)
	slog.SetDefault(Log)
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { Log.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { Log.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Log.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Log.Error(msg, args...) }
