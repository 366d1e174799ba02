package logger

import (
	"fmt"

	"github.com/upalinski/blake3/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the tool's logger. Logs always go to stderr so that they
// never mix with digests written to stdout.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == config.EnvironmentTest {
		return zap.NewNop(), nil
	}

	var zc zap.Config
	if cfg.Environment == config.EnvironmentProd {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
