package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger. Local environments get human-readable time keys
// and caller stacks on warnings.
func New(level, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	opts := []zap.Option{}
	if env = strings.TrimSpace(env); env != "" {
		opts = append(opts, zap.Fields(zap.String("env", env)))
	}
	if env == "local" || env == "dev" {
		cfg.Development = true
		opts = append(opts, zap.AddStacktrace(zapcore.WarnLevel))
	}

	return cfg.Build(opts...)
}
