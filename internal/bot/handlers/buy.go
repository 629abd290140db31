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

// NewBuyHandler starts the market-buy conversation: the user is asked how
// much quote currency to spend.
func NewBuyHandler(users *user.Service, fsm state.StateMachine, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		if err := fsm.SetState(ctx, u.TelegramID, state.StateBuyAmount, nil); err != nil {
			return err
		}

		return c.Send(translatorFor(manager, u).T("buy.enter_amount"))
	}
}

// NewBuyAmountHandler executes the market buy once the amount is received.
func NewBuyAmountHandler(
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

		amount, err := parseAmount(c.Text())
		if err != nil {
			return c.Send(t.T("common.not_a_number"))
		}

		fill, err := svc.PlaceMarketBuy(ctx, u.TelegramID, amount)
		if err != nil {
			return sendLedgerError(c, t, err)
		}

		if err := fsm.ClearState(ctx, u.TelegramID); err != nil {
			log.Error("failed to clear state after buy", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		text := t.T("buy.filled")
		text = strings.ReplaceAll(text, "{base}", fill.BaseBought.String())
		text = strings.ReplaceAll(text, "{quote}", amount.String())
		text = strings.ReplaceAll(text, "{price}", fill.Price.String())

		return c.Send(text)
	}
}
