package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewBalanceHandler reports the four balance buckets. First use seeds the
// account with the starting quote amount.
func NewBalanceHandler(users *user.Service, svc *trading.Service, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		balance, err := svc.GetOrCreateBalance(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		t := translatorFor(manager, u)

		text := t.T("balance.report")
		text = strings.ReplaceAll(text, "{base_available}", balance.BaseAvailable.String())
		text = strings.ReplaceAll(text, "{base_frozen}", balance.BaseFrozen.String())
		text = strings.ReplaceAll(text, "{quote_available}", balance.QuoteAvailable.String())
		text = strings.ReplaceAll(text, "{quote_frozen}", balance.QuoteFrozen.String())

		return c.Send(text)
	}
}
