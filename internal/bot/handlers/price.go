package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/pricefeed"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewPriceHandler reports the current price for the configured pair.
func NewPriceHandler(users *user.Service, prices pricefeed.Source, pair string, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		price, err := prices.CurrentPrice(ctx, pair)
		if err != nil {
			return err
		}

		t := translatorFor(manager, u)
		text := t.T("price.current")
		text = strings.ReplaceAll(text, "{pair}", pair)
		text = strings.ReplaceAll(text, "{price}", price.String())

		return c.Send(text)
	}
}
