package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skalper-bot/trading-bot/pkg/config"
)

func TestNew_SentryFanout(t *testing.T) {
	cfg := config.Config{AppEnv: "test"}
	cfg.Logger.Level = "info"
	cfg.Logger.Format = "json"
	cfg.Sentry.Enabled = true

	log := New(cfg)

	// The sentry handler is built without an initialized hub; emitting
	// through the fanout must still be safe.
	assert.NotPanics(t, func() {
		log.Error("boom", slog.String("source", "test"))
	})
}

func TestSetLevel_AdjustsActiveLogger(t *testing.T) {
	cfg := config.Config{AppEnv: "test"}
	cfg.Logger.Level = "info"

	log := New(cfg)
	ctx := context.Background()

	assert.False(t, log.Enabled(ctx, slog.LevelDebug))

	SetLevel("debug")
	assert.True(t, log.Enabled(ctx, slog.LevelDebug))

	SetLevel("nonsense falls back to info")
	assert.False(t, log.Enabled(ctx, slog.LevelDebug))
	assert.True(t, log.Enabled(ctx, slog.LevelInfo))
}
