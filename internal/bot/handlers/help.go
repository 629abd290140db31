package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewHelpHandler sends the command reference in the user's language.
func NewHelpHandler(users *user.Service, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		u, err := resolveUser(context.Background(), users, c)
		if err != nil {
			return err
		}

		return c.Send(translatorFor(manager, u).T("help.text"))
	}
}
