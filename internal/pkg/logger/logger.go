package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var globalLogger *slog.Logger

// ParseLevel maps a config level string onto a zap level, defaulting to INFO.
func ParseLevel(levelStr string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "INFO", "":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Init builds the zap logger for levelStr and installs a zap-backed slog logger as the global default.
// The returned zap logger is handed to infrastructure clients.
func Init(levelStr string) (*zap.Logger, error) {
	level, ok := ParseLevel(levelStr)

	cfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	SetZap(zapLogger)
	if !ok {
		Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zapLogger, nil
}

// SetZap routes the global slog logger through zapLogger.
func SetZap(zapLogger *zap.Logger) {
	globalLogger = slog.New(zapslog.NewHandler(zapLogger.Core()))
	slog.SetDefault(globalLogger)
}

func ensureInitialized() {
	if globalLogger == nil {
		SetZap(zap.NewNop())
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	ensureInitialized()
	if globalLogger.Enabled(context.Background(), slog.LevelDebug) {
		globalLogger.Debug(msg, args...)
	}
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
	os.Exit(1)
}
