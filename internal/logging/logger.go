package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// StandardLogger provides a standardized logging interface for the
// analytics pipeline. JSON output so downstream log tooling can filter
// on component/engine fields.
type StandardLogger struct {
	logger *slog.Logger
}

// NewStandardLogger creates a JSON slog logger at the given level.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: getSlogLevel(logLevel),
	}))
	return &StandardLogger{logger: logger.With("environment", environment)}
}

// WithComponent creates a logger with component context.
func (l *StandardLogger) WithComponent(componentName string) *slog.Logger {
	return l.logger.With("component", componentName)
}

// WithEngine creates a logger with engine context.
func (l *StandardLogger) WithEngine(engineName string) *slog.Logger {
	return l.logger.With("engine", engineName)
}

// WithRunID creates a logger with analysis run context.
func (l *StandardLogger) WithRunID(runID string) *slog.Logger {
	return l.logger.With("run_id", runID)
}

// WithError creates a logger with error context.
func (l *StandardLogger) WithError(err error) *slog.Logger {
	return l.logger.With("error", err.Error())
}

// LogStartup logs pipeline startup information.
func (l *StandardLogger) LogStartup(serviceName string, version string) {
	l.logger.Info("Analysis run starting",
		"service", serviceName,
		"version", version,
		"event", "startup",
	)
}

// LogRunComplete logs a finished analysis run.
func (l *StandardLogger) LogRunComplete(runID string, durationMs int64, transactions int, customers int) {
	l.logger.Info("Analysis run complete",
		"run_id", runID,
		"duration_ms", durationMs,
		"transactions", transactions,
		"customers", customers,
		"event", "run_complete",
	)
}

// LogDatabaseOperation logs database operations in a standardized format.
func (l *StandardLogger) LogDatabaseOperation(operation string, table string, durationMs int64, rows int64) {
	l.logger.Info("Database operation",
		"operation", operation,
		"table", table,
		"duration_ms", durationMs,
		"rows", rows,
		"event", "database",
	)
}

// Logger returns the underlying *slog.Logger.
func (l *StandardLogger) Logger() *slog.Logger {
	return l.logger
}

// getSlogLevel converts string level to slog.Level
func getSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
