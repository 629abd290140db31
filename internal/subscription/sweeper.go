package subscription

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/pkg/metrics"
)

// Sweeper walks active subscriptions on a schedule, warning users whose
// access is about to lapse and revoking access once it has.
type Sweeper struct {
	service *Service
	log     *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper bound to the subscription service.
func NewSweeper(service *Service, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{
		service: service,
		log:     log,
		now:     time.Now,
	}
}

// Run executes the sweep every interval until the context is cancelled.
// Asynq-driven deployments call RunOnce from a task handler instead.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("subscription sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single expiry pass. A failure processing one user
// never aborts the remaining users.
func (s *Sweeper) RunOnce(ctx context.Context) {
	started := s.now()

	users, err := s.service.users.ListSubscribed(ctx)
	if err != nil {
		s.log.Error("sweep aborted: cannot list subscribers", slog.Any("error", err))
		return
	}

	var expired, warned int
	for i := range users {
		if ctx.Err() != nil {
			s.log.Warn("sweep interrupted", slog.Any("error", ctx.Err()))
			break
		}

		user := users[i]
		switch s.sweepUser(ctx, &user) {
		case sweepExpired:
			expired++
		case sweepWarned:
			warned++
		}
	}

	metrics.RecordSweepRun(expired, warned)

	s.log.Info("subscription sweep finished",
		slog.Int("subscribers", len(users)),
		slog.Int("expired", expired),
		slog.Int("warned", warned),
		slog.Duration("took", time.Since(started)))
}

type sweepResult int

const (
	sweepSkipped sweepResult = iota
	sweepWarned
	sweepExpired
)

func (s *Sweeper) sweepUser(ctx context.Context, user *domain.User) sweepResult {
	if user.SubscriptionExpires == nil {
		return sweepSkipped
	}

	days := daysRemaining(*user.SubscriptionExpires, s.now())

	switch {
	case days <= 0:
		if err := s.service.Deactivate(ctx, user); err != nil {
			s.log.Error("failed to deactivate lapsed subscription",
				slog.Int64("user_id", user.TelegramID),
				slog.Any("error", err))
			return sweepSkipped
		}
		return sweepExpired

	case days == s.service.cfg.WarnDays:
		if s.service.notifier != nil {
			params := map[string]string{"days": strconv.Itoa(days)}
			if err := s.service.notifier.Notify(ctx, user.TelegramID, user.Language, "subscription.expiring", params); err != nil {
				s.log.Warn("expiry warning not delivered",
					slog.Int64("user_id", user.TelegramID),
					slog.Any("error", err))
				return sweepSkipped
			}
		}
		return sweepWarned
	}

	return sweepSkipped
}

// daysRemaining returns the number of whole days left until expiry,
// rounded down. Anything at or past the expiry moment yields <= 0.
func daysRemaining(expiry, now time.Time) int {
	const day = 24 * time.Hour

	diff := expiry.Sub(now)
	days := int(diff / day)
	if diff < 0 && diff%day != 0 {
		days--
	}
	return days
}
