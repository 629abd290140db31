package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/keyboard"
	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// CallbackOrderCancelPrefix marks order cancellation callbacks.
const CallbackOrderCancelPrefix = "order_cancel"

// CallbackOrdersPagePrefix marks order list page navigation callbacks.
const CallbackOrdersPagePrefix = "orders_page"

// ordersPageSize caps the orders shown per message. Cancel buttons are one
// row each, and Telegram keyboards get unwieldy past a handful of rows.
const ordersPageSize = 5

// NewOrdersHandler lists the user's orders, newest first, with cancel
// buttons for the ones still open. Long histories are paginated.
func NewOrdersHandler(users *user.Service, svc *trading.Service, manager *i18n.Manager, log *slog.Logger) Handler {
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

		orders, err := svc.ListOrders(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		if len(orders) == 0 {
			return c.Send(t.T("orders.empty"))
		}

		text, markup, err := renderOrdersPage(t, orders, 1)
		if err != nil {
			return err
		}

		return c.Send(text, markup)
	}
}

// HandleOrdersPage re-renders the order list message at the requested page.
func HandleOrdersPage(users *user.Service, svc *trading.Service, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
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

		page, err := strconv.Atoi(data)
		if err != nil {
			log.Warn("malformed page callback", slog.String("data", data))
			return nil
		}

		orders, err := svc.ListOrders(ctx, u.TelegramID)
		if err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		if len(orders) == 0 {
			return c.Edit(t.T("orders.empty"))
		}

		text, markup, err := renderOrdersPage(t, orders, page)
		if err != nil {
			return err
		}

		// Tapping the current-page label asks Telegram for a no-op edit,
		// which it rejects. Not worth surfacing to the user.
		if err := c.Edit(text, markup); err != nil {
			log.Warn("order page edit failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}
		return nil
	}
}

func renderOrdersPage(t i18n.Translator, orders []domain.Order, page int) (string, *telebot.ReplyMarkup, error) {
	totalPages := (len(orders) + ordersPageSize - 1) / ordersPageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * ordersPageSize
	end := start + ordersPageSize
	if end > len(orders) {
		end = len(orders)
	}

	var sb strings.Builder
	sb.WriteString(t.T("orders.header"))
	sb.WriteString("\n")

	builder := keyboard.NewInlineKeyboard()
	for i := start; i < end; i++ {
		order := orders[i]
		sb.WriteString(formatOrder(t, &order))
		sb.WriteString("\n")

		if !order.IsFinal() {
			builder.AddRow(keyboard.InlineButton{
				Text:   fmt.Sprintf("%s #%d", t.T("orders.cancel_button"), order.ID),
				Unique: CallbackOrderCancelPrefix,
				Data:   strconv.FormatInt(order.ID, 10),
			})
		}
	}

	if totalPages > 1 {
		builder.AddRow(keyboard.PaginationButtons(t, CallbackOrdersPagePrefix, page, totalPages)...)
	}

	markup, err := builder.Build()
	if err != nil {
		return "", nil, err
	}

	return sb.String(), markup, nil
}

// HandleOrderCancel cancels the order referenced by the callback payload.
// A second tap on the same button reports the order as already closed.
func HandleOrderCancel(users *user.Service, svc *trading.Service, manager *i18n.Manager, log *slog.Logger) CallbackHandler {
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

		orderID, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			log.Warn("malformed cancel callback", slog.String("data", data))
			return nil
		}

		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			log.Warn("callback ack failed", slog.Int64("user_id", u.TelegramID), slog.Any("error", err))
		}

		if err := svc.CancelOrder(ctx, u.TelegramID, orderID); err != nil {
			return sendLedgerError(c, t, err)
		}

		text := strings.ReplaceAll(t.T("orders.cancelled"), "{id}", strconv.FormatInt(orderID, 10))
		return c.Send(text)
	}
}

func formatOrder(t i18n.Translator, order *domain.Order) string {
	status := t.T("orders.status." + strings.ToLower(string(order.Status)))

	return fmt.Sprintf("#%d %s %s @ %s | %s",
		order.ID,
		strings.ToUpper(string(order.Side)),
		order.Amount.String(),
		order.Price.String(),
		status,
	)
}
