package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/skalper-bot/trading-bot/internal/jobs"
	"github.com/skalper-bot/trading-bot/internal/subscription"
)

type SubscriptionSweepHandler struct {
	sweeper *subscription.Sweeper
	log     *slog.Logger
}

func NewSubscriptionSweepHandler(sweeper *subscription.Sweeper, log *slog.Logger) *SubscriptionSweepHandler {
	return &SubscriptionSweepHandler{sweeper: sweeper, log: log}
}

func (h *SubscriptionSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SubscriptionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "subscription sweep: failed to decode payload",
				slog.Any("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return err
	}

	if h.log != nil {
		h.log.InfoContext(ctx, "running subscription sweep",
			slog.String("task_type", t.Type()),
			slog.Time("requested_at", payload.RequestedAt))
	}

	h.sweeper.RunOnce(ctx)

	return nil
}
