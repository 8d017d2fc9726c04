package conf

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Log struct {
	*slog.Logger
}

func NewLog() *Log {
	// default log level is info
	return newLog(slog.LevelInfo)
}

func newLog(level slog.Level) *Log {
	logLevel := parseLevel(GetEnv(ENV_LOG_LEVEL, LOG_LEVEL_INFO), level)
	opts := slog.HandlerOptions{
		Level: logLevel,
	}
	handler := slog.NewTextHandler(os.Stdout, &opts)
	logger := slog.New(handler)
	// set default logger
	slog.SetDefault(logger)
	return &Log{logger}
}

// parseLevel accepts either a numeric slog level or a level name.
func parseLevel(value string, fallback slog.Level) slog.Level {
	if value == "" {
		return fallback
	}
	if n, err := strconv.Atoi(value); err == nil {
		return slog.Level(n)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return fallback
	}
	return level
}

func (l *Log) With(args ...any) *Log {
	return &Log{l.Logger.With(args...)}
}

func (l *Log) WithError(err error, msg string, args ...any) *Log {
	l.Logger.With("error", err).With(args...).Error(msg)
	return l
}

func (l *Log) WithErrorMsg(err error, msg string, args ...any) *Log {
	return l.WithError(err, msg, args...)
}
