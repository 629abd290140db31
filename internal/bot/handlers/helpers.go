package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/ledger"
	"github.com/skalper-bot/trading-bot/internal/user"
)

// resolveUser loads the sender's profile, registering them when missing.
func resolveUser(ctx context.Context, users *user.Service, c telebot.Context) (*domain.User, error) {
	if c == nil || c.Sender() == nil {
		return nil, fmt.Errorf("update has no sender")
	}

	return users.GetOrCreate(ctx, c.Sender())
}

// translatorFor picks the translator for the user's stored language.
func translatorFor(manager *i18n.Manager, u *domain.User) i18n.Translator {
	lang := ""
	if u != nil {
		lang = u.Language
	}

	return manager.Translator(lang)
}

// parseAmount accepts user-entered numbers with either decimal separator.
func parseAmount(input string) (decimal.Decimal, error) {
	normalized := strings.TrimSpace(strings.ReplaceAll(input, ",", "."))
	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a number: %q", input)
	}

	return value, nil
}

// sendLedgerError translates accounting failures into user replies.
// Unexpected errors propagate to the error-handling middleware.
func sendLedgerError(c telebot.Context, t i18n.Translator, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return c.Send(t.T("trade.invalid_quantity"))
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return c.Send(t.T("trade.insufficient_funds"))
	case errors.Is(err, ledger.ErrNotFound):
		return c.Send(t.T("trade.order_not_found"))
	case errors.Is(err, ledger.ErrAlreadyFinal):
		return c.Send(t.T("trade.order_already_closed"))
	case errors.Is(err, ledger.ErrConflict):
		return c.Send(t.T("trade.try_again"))
	default:
		return err
	}
}

// contextString reads a string value from FSM context data.
func contextString(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}

	value, _ := data[key].(string)
	return value
}
