package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/keyboard"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/subscription"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// CallbackSubscriptionPrefix marks subscription action callbacks.
const CallbackSubscriptionPrefix = "sub"

// NewSubscriptionHandler reports subscription status and offers an extension.
func NewSubscriptionHandler(users *user.Service, subs *subscription.Service, manager *i18n.Manager, log *slog.Logger) Handler {
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

		var text string
		if u.HasActiveSubscription(time.Now().UTC()) {
			days := int(time.Until(*u.SubscriptionExpires).Hours() / 24)
			text = t.T("subscription.active")
			text = strings.ReplaceAll(text, "{expires}", u.SubscriptionExpires.Format("2006-01-02"))
			text = strings.ReplaceAll(text, "{days}", strconv.Itoa(days))
		} else {
			text = t.T("subscription.inactive")
		}

		builder := keyboard.NewInlineKeyboard()
		if !u.Subscription && u.SubscriptionExpires == nil {
			builder.AddRow(keyboard.InlineButton{
				Text:   t.T("subscription.trial_button"),
				Unique: CallbackSubscriptionPrefix,
				Data:   "trial",
			})
		}
		builder.AddRow(keyboard.InlineButton{
			Text:   t.T("subscription.extend_button"),
			Unique: CallbackSubscriptionPrefix,
			Data:   "extend",
		})

		markup, err := builder.Build()
		if err != nil {
			return err
		}

		return c.Send(text, markup)
	}
}

// HandleSubscriptionExtend processes subscription menu actions: the one-time
// trial grant and the paid extension by the configured period.
func HandleSubscriptionExtend(users *user.Service, subs *subscription.Service, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
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

		t := translatorFor(manager, u)

		_, data, err := keyboard.DecodeCallback(strings.TrimSpace(c.Callback().Data))
		if err != nil {
			return err
		}

		var text string
		switch data {
		case "trial":
			if u.Subscription || u.SubscriptionExpires != nil {
				text = t.T("subscription.trial_used")
				break
			}
			if err := subs.GrantTrial(ctx, u); err != nil {
				return err
			}
			text = strings.ReplaceAll(t.T("subscription.trial_granted"),
				"{expires}", u.SubscriptionExpires.Format("2006-01-02"))
		case "extend":
			expires, err := subs.Extend(ctx, u)
			if err != nil {
				return err
			}
			text = strings.ReplaceAll(t.T("subscription.extended"), "{expires}", expires.Format("2006-01-02"))
		default:
			log.Warn("unknown subscription callback", slog.String("data", data))
			return nil
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		return c.Send(text)
	}
}
