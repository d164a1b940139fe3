package logger

import (
	"fmt"

	"github.com/sanisidro/fiscal-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a new structured logger. Production and the json format
// log JSON lines; everything else gets the colored console encoder.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Unknown levels fall back to info
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	// Every line carries the app and environment
	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}

// WithRequest adds request context to logger
func WithRequest(logger *zap.Logger, method, path, requestID string) *zap.Logger {
	return logger.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithBlob adds blob context to logger. backend is the storage mode that
// served the operation (local, azure, s3, gcs).
func WithBlob(logger *zap.Logger, backend, pathname string) *zap.Logger {
	return logger.With(
		zap.String("backend", backend),
		zap.String("pathname", pathname),
	)
}

// WithImport adds scheduled import context to logger
func WithImport(logger *zap.Logger, job, source string) *zap.Logger {
	return logger.With(
		zap.String("job", job),
		zap.String("source", source),
	)
}
