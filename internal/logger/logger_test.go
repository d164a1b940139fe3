package logger_test

import (
	"testing"

	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	log, err := logger.NewLogger(&config.LoggingConfig{Level: "warn"}, &config.AppConfig{Name: "fiscal", Environment: "development"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = logger.NewLogger(&config.LoggingConfig{Level: "loud"}, &config.AppConfig{Environment: "production"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestContextHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	logger.WithBlob(base, "local", "a/b.png").Info("stored")
	logger.WithImport(base, "fiscal_import", "imports/x.csv").Info("imported")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"backend": "local", "pathname": "a/b.png"}, entries[0].ContextMap())
	assert.Equal(t, map[string]interface{}{"job": "fiscal_import", "source": "imports/x.csv"}, entries[1].ContextMap())
}
