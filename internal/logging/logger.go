// Package logging provides the leveled logger used throughout the server. It
// replaces the teacher's utils.LogXxx call surface with Debugf, Infof, Warnf,
// Errorf and Fatalf, keeps its ProtoActorLogAdapter type, and backs them with
// log/slog and
// github.com/lmittmann/tint instead of a hand-rolled level filter over the
// standard log package.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

var logger *slog.Logger

func init() {
	SetLevel("INFO")
}

// SetLevel reconfigures the process-wide logger at the given level
// ("DEBUG", "INFO", "WARN"/"WARNING", "ERROR"). Unknown values default to INFO.
func SetLevel(levelString string) {
	var level slog.Level
	unknown := false
	switch strings.ToUpper(levelString) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO", "":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
		unknown = true
	}

	logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000",
	}))

	if unknown {
		logger.Warn("unknown log level, defaulting to INFO", "requested", levelString)
	}
}

func Debugf(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { logger.Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { logger.Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { logger.Error(fmt.Sprintf(format, args...)) }

func Fatalf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// ProtoActorLogAdapter adapts this package's logger to protoactor-go's own
// log.Logger interface, for routing the actor system's internal diagnostics
// (mailbox errors, supervision events) into the same structured log stream
// as everything else. cmd/server does not install it, so the actor system
// logs through protoactor-go's default logger.
type ProtoActorLogAdapter struct{}

func (ProtoActorLogAdapter) Debug(message string, args ...interface{}) {
	logger.Debug(message, args...)
}

func (ProtoActorLogAdapter) Info(message string, args ...interface{}) {
	logger.Info(message, args...)
}

func (ProtoActorLogAdapter) Warning(message string, args ...interface{}) {
	logger.Warn(message, args...)
}

func (ProtoActorLogAdapter) Error(message string, args ...interface{}) {
	logger.Error(message, args...)
}

func (ProtoActorLogAdapter) Fatal(message string, args ...interface{}) {
	logger.Error(message, args...)
	os.Exit(1)
}
