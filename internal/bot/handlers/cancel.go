package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewCancelHandler aborts the current conversation and resets user state.
func NewCancelHandler(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("cancel handler invoked without sender context")
			return nil
		}

		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, u.TelegramID); err != nil {
			log.Error("failed to clear user state", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
			return err
		}

		return c.Send(translatorFor(manager, u).T("common.cancelled"))
	}
}
