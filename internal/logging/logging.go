package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. Unknown names fall back to def.
func ParseLevel(name string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dev", "development", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error", "production", "prod":
		return zapcore.ErrorLevel
	}
	return def
}

// New builds a logger writing to stderr. format is "console" or "json".
// LOG_LEVEL, when set, overrides level.
func New(level, format string) *zap.Logger {
	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level = l
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(ParseLevel(level, zapcore.InfoLevel)))
	return zap.New(core)
}

// Init installs a global logger for the CLI. By default only errors are
// shown; LOG_LEVEL raises verbosity.
func Init() *zap.Logger {
	logger := New("error", "console")
	zap.ReplaceGlobals(logger)
	return logger
}
