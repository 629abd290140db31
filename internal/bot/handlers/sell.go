package handlers

import (
	"context"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
)

const sellAmountContextKey = "sell_amount"

// NewSellHandler starts the limit-sell conversation: base amount first,
// then the limit price.
func NewSellHandler(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		if err := fsm.SetState(ctx, u.TelegramID, state.StateSellAmount, nil); err != nil {
			return err
		}

		return c.Send(translatorFor(manager, u).T("sell.enter_amount"))
	}
}

// NewSellAmountHandler stores the base amount and asks for the limit price.
func NewSellAmountHandler(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
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

		amount, err := parseAmount(c.Text())
		if err != nil {
			return c.Send(t.T("common.not_a_number"))
		}

		contextData := map[string]interface{}{sellAmountContextKey: amount.String()}
		if err := fsm.SetState(ctx, u.TelegramID, state.StateSellPrice, contextData); err != nil {
			return err
		}

		return c.Send(t.T("sell.enter_price"))
	}
}

// NewSellPriceHandler places the reservation once both inputs are in.
func NewSellPriceHandler(
	users *user.Service,
	svc *trading.Service,
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

		price, err := parseAmount(c.Text())
		if err != nil {
			return c.Send(t.T("common.not_a_number"))
		}

		userState, err := fsm.GetState(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		amount, err := parseAmount(contextString(userState.Context, sellAmountContextKey))
		if err != nil {
			log.Error("sell amount missing from conversation state", slog.Int64("user_id", u.TelegramID))
			if clearErr := fsm.ClearState(ctx, u.TelegramID); clearErr != nil {
				log.Error("failed to clear broken state", slog.Int64("user_id", u.TelegramID), slog.Any("error", clearErr))
			}
			return c.Send(t.T("common.start_over"))
		}

		order, err := svc.PlaceLimitSell(ctx, u.TelegramID, amount, price)
		if err != nil {
			return sendLedgerError(c, t, err)
		}

		if err := fsm.ClearState(ctx, u.TelegramID); err != nil {
			log.Error("failed to clear state after sell", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		text := t.T("sell.placed")
		text = strings.ReplaceAll(text, "{amount}", order.Amount.String())
		text = strings.ReplaceAll(text, "{price}", order.Price.String())

		return c.Send(text)
	}
}
