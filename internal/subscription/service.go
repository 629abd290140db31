// Package subscription manages user entitlements and their expiry.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skalper-bot/trading-bot/internal/commands"
	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/notify"
	"github.com/skalper-bot/trading-bot/internal/repository"
)

// Config holds subscription durations in days.
type Config struct {
	TrialDays  int
	ExtendDays int
	WarnDays   int
}

// DefaultConfig mirrors the bot's stock subscription terms.
func DefaultConfig() Config {
	return Config{
		TrialDays:  7,
		ExtendDays: 30,
		WarnDays:   5,
	}
}

// Service owns all subscription state changes. The sweep and the bot
// handlers both go through it so deactivation follows a single path.
type Service struct {
	users    repository.UserRepository
	registry commands.Registry
	notifier notify.Notifier
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires a subscription service.
func NewService(
	users repository.UserRepository,
	registry commands.Registry,
	notifier notify.Notifier,
	cfg Config,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = DefaultConfig().TrialDays
	}
	if cfg.ExtendDays <= 0 {
		cfg.ExtendDays = DefaultConfig().ExtendDays
	}
	if cfg.WarnDays <= 0 {
		cfg.WarnDays = DefaultConfig().WarnDays
	}

	return &Service{
		users:    users,
		registry: registry,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Status returns the user's current subscription state.
func (s *Service) Status(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	return user, nil
}

// GrantTrial activates the trial period for a user who has never had one.
// The command menu is refreshed to expose subscriber commands.
func (s *Service) GrantTrial(ctx context.Context, user *domain.User) error {
	expires := s.now().UTC().AddDate(0, 0, s.cfg.TrialDays)
	if err := s.users.SetSubscription(ctx, user.TelegramID, true, &expires); err != nil {
		return fmt.Errorf("activate trial: %w", err)
	}

	user.Subscription = true
	user.SubscriptionExpires = &expires

	s.refreshCommands(ctx, user.TelegramID, user.Language, true)

	s.log.Info("trial subscription granted",
		slog.Int64("user_id", user.TelegramID),
		slog.Time("expires", expires))

	return nil
}

// Extend pushes the expiry forward by the configured extension period.
// An already lapsed expiry extends from now, not from the past date.
func (s *Service) Extend(ctx context.Context, user *domain.User) (time.Time, error) {
	base := s.now().UTC()
	if user.SubscriptionExpires != nil && user.SubscriptionExpires.After(base) {
		base = user.SubscriptionExpires.UTC()
	}

	expires := base.AddDate(0, 0, s.cfg.ExtendDays)
	if err := s.users.SetSubscription(ctx, user.TelegramID, true, &expires); err != nil {
		return time.Time{}, fmt.Errorf("extend subscription: %w", err)
	}

	user.Subscription = true
	user.SubscriptionExpires = &expires

	s.refreshCommands(ctx, user.TelegramID, user.Language, true)

	s.log.Info("subscription extended",
		slog.Int64("user_id", user.TelegramID),
		slog.Time("expires", expires))

	return expires, nil
}

// Deactivate revokes the subscription, notifies the user and trims their
// command menu. Notification failure does not undo the revocation.
func (s *Service) Deactivate(ctx context.Context, user *domain.User) error {
	if err := s.users.SetSubscription(ctx, user.TelegramID, false, user.SubscriptionExpires); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}

	user.Subscription = false

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, user.TelegramID, user.Language, "subscription.expired", nil); err != nil {
			s.log.Warn("expired notification not delivered",
				slog.Int64("user_id", user.TelegramID),
				slog.Any("error", err))
		}
	}

	s.refreshCommands(ctx, user.TelegramID, user.Language, false)

	s.log.Info("subscription deactivated", slog.Int64("user_id", user.TelegramID))

	return nil
}

func (s *Service) refreshCommands(ctx context.Context, userID int64, language string, subscribed bool) {
	if s.registry == nil {
		return
	}

	if err := s.registry.RefreshCommands(ctx, userID, language, subscribed); err != nil {
		s.log.Warn("command menu refresh failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}
