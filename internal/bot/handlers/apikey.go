package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/subscription"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewAPIKeyHandler consumes the message sent while the user is in the
// awaiting-api-key state. A valid key completes registration and starts the
// trial subscription.
func NewAPIKeyHandler(
	users *user.Service,
	subs *subscription.Service,
	fsm state.StateMachine,
	manager *i18n.Manager,
	log *slog.Logger,
) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		t := translatorFor(manager, u)

		if err := users.SetAPIKey(ctx, u.TelegramID, c.Text()); err != nil {
			log.Info("api key rejected", slog.Int64("user_id", u.TelegramID))
			return c.Send(t.T("start.invalid_api_key"))
		}

		if err := fsm.SetState(ctx, u.TelegramID, state.StateIdle, nil); err != nil {
			return err
		}

		// First registration comes with a trial period.
		if !u.Subscription && u.SubscriptionExpires == nil {
			if err := subs.GrantTrial(ctx, u); err != nil {
				log.Error("failed to grant trial", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
				return err
			}

			return c.Send(t.T("start.registered_with_trial"))
		}

		return c.Send(t.T("start.registered"))
	}
}
