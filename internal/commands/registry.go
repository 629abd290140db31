// Package commands manages the per-chat Telegram command menu.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v3"

	apperrors "github.com/skalper-bot/trading-bot/internal/errors"
	"github.com/skalper-bot/trading-bot/internal/i18n"
)

// Registry keeps the Telegram command menu in sync with a user's
// subscription state.
type Registry interface {
	// RefreshCommands replaces the chat-scoped command set for the user.
	// Idempotent: repeated calls with the same arguments are harmless.
	RefreshCommands(ctx context.Context, userID int64, language string, hasSubscription bool) error
}

type commandSetter interface {
	SetCommands(opts ...interface{}) error
}

type registry struct {
	bot  commandSetter
	i18n *i18n.Manager
	log  *slog.Logger
}

// NewRegistry creates a Registry backed by the Telegram Bot API.
func NewRegistry(bot commandSetter, manager *i18n.Manager, log *slog.Logger) Registry {
	if log == nil {
		log = slog.Default()
	}

	return &registry{
		bot:  bot,
		i18n: manager,
		log:  log,
	}
}

// Commands shown to every user regardless of subscription.
var baseCommands = []string{"start", "help", "subscription", "language"}

// Commands unlocked by an active subscription.
var subscriberCommands = []string{"buy", "sell", "orders", "balance", "price", "stats", "params", "autobuy", "cancel"}

func (r *registry) RefreshCommands(ctx context.Context, userID int64, language string, hasSubscription bool) error {
	names := baseCommands
	if hasSubscription {
		names = append(append([]string{}, baseCommands...), subscriberCommands...)
	}

	cmds := make([]tele.Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, tele.Command{
			Text:        name,
			Description: r.describe(language, name),
		})
	}

	scope := tele.CommandScope{
		Type:   tele.CommandScopeChat,
		ChatID: userID,
	}

	// SetCommands replaces the whole menu, so retrying a transient failure
	// is safe.
	err := apperrors.WithRetry(ctx, func() error {
		if err := r.bot.SetCommands(cmds, scope); err != nil {
			return apperrors.NewExternalAPIError("telegram", err)
		}
		return nil
	})
	if err != nil {
		r.log.Error("failed to refresh command menu",
			slog.Int64("user_id", userID),
			slog.Bool("subscribed", hasSubscription),
			slog.Any("error", err))
		return fmt.Errorf("set chat commands: %w", err)
	}

	r.log.Debug("command menu refreshed",
		slog.Int64("user_id", userID),
		slog.Bool("subscribed", hasSubscription))

	return nil
}

func (r *registry) describe(language, name string) string {
	if r.i18n != nil {
		key := "commands." + name
		if text := r.i18n.Translator(language).T(key); text != key {
			return text
		}
	}

	return "/" + name
}
