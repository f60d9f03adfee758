package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yashwanth-reddy909/ghia/internal/config"
)

// parseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newCLILogger logs to stderr. One-shot commands print their own results,
// so info-level sync chatter is dropped unless log.level is debug.
func newCLILogger() *slog.Logger {
	level := parseLevel(config.GetString("log.level"))
	if level == slog.LevelInfo {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// serverLogger is the logger of a long-running 'ghia serve'. Its level can
// change at runtime.
type serverLogger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *lumberjack.Logger
}

// newServerLogger writes to stderr and, when logFile is set, to a rotating
// file sized by the log.* settings.
func newServerLogger(logFile string) *serverLogger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(config.GetString("log.level")))

	var out io.Writer = os.Stderr
	var file *lumberjack.Logger
	if logFile != "" {
		file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    config.GetInt("log.max-size"),
			MaxBackups: config.GetInt("log.max-backups"),
			MaxAge:     config.GetInt("log.max-age"),
			Compress:   config.GetBool("log.compress"),
		}
		out = io.MultiWriter(os.Stderr, file)
	}

	return &serverLogger{
		Logger: slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})),
		level:  level,
		file:   file,
	}
}

// reload re-reads log.level and applies it if it changed.
func (l *serverLogger) reload() {
	next := parseLevel(config.GetString("log.level"))
	if prev := l.level.Level(); prev != next {
		l.level.Set(next)
		l.Info("log level changed", "from", prev.String(), "to", next.String())
	}
}

func (l *serverLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
