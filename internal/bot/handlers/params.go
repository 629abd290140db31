package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/keyboard"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/params"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// CallbackParamPrefix marks parameter selection callbacks.
const CallbackParamPrefix = "param"

const paramKeyContextKey = "param_key"

// NewParamsHandler shows current parameter values with an edit button per key.
func NewParamsHandler(users *user.Service, svc *params.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
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

		current, err := svc.Get(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		var sb strings.Builder
		sb.WriteString(t.T("params.header"))
		sb.WriteString("\n")

		builder := keyboard.NewInlineKeyboard()
		for _, key := range params.Keys() {
			label := t.T("params.names." + string(key))
			sb.WriteString(label)
			sb.WriteString(": ")
			sb.WriteString(params.Value(current, key))
			sb.WriteString("\n")

			builder.AddRow(keyboard.InlineButton{
				Text:   label,
				Unique: CallbackParamPrefix,
				Data:   string(key),
			})
		}

		builder.AddRow(keyboard.InlineButton{
			Text:   t.T("params.reset_button"),
			Unique: CallbackParamPrefix,
			Data:   "reset",
		})

		if err := fsm.SetState(ctx, u.TelegramID, state.StateParamsChoice, nil); err != nil {
			return err
		}

		markup, err := builder.Build()
		if err != nil {
			return err
		}

		return c.Send(sb.String(), markup)
	}
}

// HandleParamSelect records the chosen key and asks for the new value.
// The "reset" action restores every parameter to its default immediately.
func HandleParamSelect(users *user.Service, svc *params.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
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

		if data == "reset" {
			if err := svc.Reset(ctx, u.TelegramID); err != nil {
				return err
			}
			if err := fsm.ClearState(ctx, u.TelegramID); err != nil {
				log.Error("failed to clear state after param reset", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
			}
			if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
				log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
			}
			return c.Send(t.T("params.reset_done"))
		}

		key, err := params.ParseKey(data)
		if err != nil {
			log.Warn("unknown parameter callback", slog.String("data", data))
			return nil
		}

		contextData := map[string]interface{}{paramKeyContextKey: string(key)}
		if err := fsm.SetState(ctx, u.TelegramID, state.StateParamsValue, contextData); err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		text := strings.ReplaceAll(t.T("params.enter_value"), "{name}", t.T("params.names."+string(key)))
		return c.Send(text)
	}
}

// NewParamValueHandler validates and saves the value typed by the user.
func NewParamValueHandler(users *user.Service, svc *params.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
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

		userState, err := fsm.GetState(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		key, err := params.ParseKey(contextString(userState.Context, paramKeyContextKey))
		if err != nil {
			log.Error("parameter key missing from conversation state", slog.Int64("user_id", u.TelegramID))
			if clearErr := fsm.ClearState(ctx, u.TelegramID); clearErr != nil {
				log.Error("failed to clear broken state", slog.Int64("user_id", u.TelegramID), slog.Any("error", clearErr))
			}
			return c.Send(t.T("common.start_over"))
		}

		updated, err := svc.Set(ctx, u.TelegramID, key, c.Text())
		if err != nil {
			return c.Send(t.T("params.invalid_value"))
		}

		if err := fsm.ClearState(ctx, u.TelegramID); err != nil {
			log.Error("failed to clear state after param edit", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		text := t.T("params.updated")
		text = strings.ReplaceAll(text, "{name}", t.T("params.names."+string(key)))
		text = strings.ReplaceAll(text, "{value}", params.Value(updated, key))

		return c.Send(text)
	}
}
