// Package notify delivers best-effort messages to users over Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v3"

	apperrors "github.com/skalper-bot/trading-bot/internal/errors"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/pkg/metrics"
)

// Notifier sends a localized message to a user. Delivery is best-effort:
// callers log the returned error but never fail their own operation on it.
type Notifier interface {
	Notify(ctx context.Context, userID int64, language, messageKey string, params map[string]string) error
}

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type telegramNotifier struct {
	bot     sender
	i18n    *i18n.Manager
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewTelegramNotifier creates a Notifier that delivers through the Bot API.
// A circuit breaker shields the rest of the system from a flapping Telegram
// endpoint.
func NewTelegramNotifier(bot sender, manager *i18n.Manager, log *slog.Logger) Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &telegramNotifier{
		bot:     bot,
		i18n:    manager,
		breaker: apperrors.NewCircuitBreaker(),
		log:     log,
	}
}

func (n *telegramNotifier) Notify(ctx context.Context, userID int64, language, messageKey string, params map[string]string) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	text := n.render(language, messageKey, params)

	err := n.breaker.Call(func() error {
		_, sendErr := n.bot.Send(&tele.User{ID: userID}, text)
		return sendErr
	})
	if err != nil {
		metrics.RecordNotificationFailure()
		n.log.Error("failed to deliver notification",
			slog.Int64("user_id", userID),
			slog.String("message_key", messageKey),
			slog.Any("error", err))
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}

func (n *telegramNotifier) render(language, messageKey string, params map[string]string) string {
	text := messageKey
	if n.i18n != nil {
		text = n.i18n.Translator(language).T(messageKey)
	}

	for key, value := range params {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}

	return text
}
