package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// NewStatsHandler summarizes the account's trading history: order counts per
// status and the completed volume on each side.
func NewStatsHandler(users *user.Service, svc *trading.Service, manager *i18n.Manager, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := context.Background()

		u, err := resolveUser(ctx, users, c)
		if err != nil {
			return err
		}

		orders, err := svc.ListOrders(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		t := translatorFor(manager, u)

		if len(orders) == 0 {
			return c.Send(t.T("stats.empty"))
		}

		var open, completed, cancelled int
		bought := decimal.Zero
		sold := decimal.Zero
		for _, order := range orders {
			switch order.Status {
			case domain.OrderStatusOpen:
				open++
			case domain.OrderStatusCompleted:
				completed++
				if order.Side == domain.OrderSideBuy {
					bought = bought.Add(order.Amount)
				} else {
					sold = sold.Add(order.Amount)
				}
			case domain.OrderStatusCancelled:
				cancelled++
			}
		}

		text := t.T("stats.report")
		text = strings.ReplaceAll(text, "{total}", strconv.Itoa(len(orders)))
		text = strings.ReplaceAll(text, "{open}", strconv.Itoa(open))
		text = strings.ReplaceAll(text, "{completed}", strconv.Itoa(completed))
		text = strings.ReplaceAll(text, "{cancelled}", strconv.Itoa(cancelled))
		text = strings.ReplaceAll(text, "{bought}", bought.String())
		text = strings.ReplaceAll(text, "{sold}", sold.String())

		return c.Send(text)
	}
}
