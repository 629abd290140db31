package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/keyboard"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// CallbackLanguagePrefix marks language selection callbacks.
const CallbackLanguagePrefix = "lang"

// NewStartHandler greets the user and begins onboarding. Users without a
// stored credential are asked to pick a language and enter their API key.
func NewStartHandler(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
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

		if u.APIKey != "" {
			if err := fsm.SetState(ctx, u.TelegramID, state.StateIdle, nil); err != nil {
				log.Error("failed to reset state on start", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
			}
			return c.Send(t.T("start.welcome_back"))
		}

		markup, err := languageKeyboard()
		if err != nil {
			return err
		}

		return c.Send(t.T("start.choose_language"), markup)
	}
}

// NewLanguageHandler lets the user switch languages after onboarding.
func NewLanguageHandler(users *user.Service, manager *i18n.Manager, log *slog.Logger) Handler {
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

		markup, err := languageKeyboard()
		if err != nil {
			return err
		}

		return c.Send(t.T("start.choose_language"), markup)
	}
}

// HandleLanguageSelect stores the chosen language. During onboarding it also
// asks for the API key; already registered users just get a confirmation.
func HandleLanguageSelect(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Callback() == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		_, lang, err := keyboard.DecodeCallback(strings.TrimSpace(c.Callback().Data))
		if err != nil || lang == "" {
			log.Warn("language callback without payload", slog.Int64("user_id", userID))
			return nil
		}

		if err := users.SetLanguage(ctx, userID, lang); err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", userID), slog.Any("error", err))
		}

		registered, err := users.HasAPIKey(ctx, userID)
		if err != nil {
			return err
		}

		if registered {
			return c.Send(manager.Translator(lang).T("start.language_updated"))
		}

		if err := fsm.SetState(ctx, userID, state.StateAwaitingAPIKey, nil); err != nil {
			return err
		}

		return c.Send(manager.Translator(lang).T("start.enter_api_key"))
	}
}

func languageKeyboard() (*telebot.ReplyMarkup, error) {
	builder := keyboard.NewInlineKeyboard()
	builder.AddRow(
		keyboard.InlineButton{Text: "English", Unique: CallbackLanguagePrefix, Data: "en"},
		keyboard.InlineButton{Text: "Русский", Unique: CallbackLanguagePrefix, Data: "ru"},
	)

	return builder.Build()
}
