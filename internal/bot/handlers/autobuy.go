package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/keyboard"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/params"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// CallbackAutobuyPrefix marks autobuy toggle callbacks.
const CallbackAutobuyPrefix = "autobuy"

// NewAutobuyHandler shows the autobuy flags with toggle buttons. The flags
// are stored preferences only; no order placement hangs off them.
func NewAutobuyHandler(users *user.Service, svc *params.Service, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		current, err := svc.Get(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		t := translatorFor(manager, u)

		text := t.T("autobuy.status")
		text = strings.ReplaceAll(text, "{growth}", flagText(t, current.AutobuyOnGrowth))
		text = strings.ReplaceAll(text, "{fall}", flagText(t, current.AutobuyOnFall))

		builder := keyboard.NewInlineKeyboard()
		builder.AddRow(
			keyboard.InlineButton{Text: t.T("autobuy.toggle_growth"), Unique: CallbackAutobuyPrefix, Data: "growth"},
			keyboard.InlineButton{Text: t.T("autobuy.toggle_fall"), Unique: CallbackAutobuyPrefix, Data: "fall"},
		)

		markup, err := builder.Build()
		if err != nil {
			return err
		}

		return c.Send(text, markup)
	}
}

// HandleAutobuyToggle flips the flag named in the callback payload.
func HandleAutobuyToggle(users *user.Service, svc *params.Service, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Callback() == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		current, err := svc.Get(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		_, data, err := keyboard.DecodeCallback(strings.TrimSpace(c.Callback().Data))
		if err != nil {
			return err
		}

		onGrowth, onFall := current.AutobuyOnGrowth, current.AutobuyOnFall
		switch data {
		case "growth":
			onGrowth = !onGrowth
		case "fall":
			onFall = !onFall
		default:
			log.Warn("unknown autobuy callback", slog.String("data", data))
			return nil
		}

		updated, err := svc.SetAutobuy(ctx, u.TelegramID, onGrowth, onFall)
		if err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		t := translatorFor(manager, u)
		text := t.T("autobuy.status")
		text = strings.ReplaceAll(text, "{growth}", flagText(t, updated.AutobuyOnGrowth))
		text = strings.ReplaceAll(text, "{fall}", flagText(t, updated.AutobuyOnFall))

		return c.Send(text)
	}
}

func flagText(t i18n.Translator, enabled bool) string {
	if enabled {
		return t.T("common.on")
	}
	return t.T("common.off")
}
