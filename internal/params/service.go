package params

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/repository"
)

// Service loads and edits user parameters, applying defaults for users who
// never changed anything.
type Service struct {
	repo repository.ParamsRepository
	log  *slog.Logger
}

// NewService creates a parameters service.
func NewService(repo repository.ParamsRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, log: log}
}

// Get returns the user's parameters, falling back to defaults when none are
// stored. Defaults are not persisted until the user edits something.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.UserParameters, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultUserParameters(userID), nil
		}

		return nil, fmt.Errorf("load user parameters: %w", err)
	}

	return stored, nil
}

// Set validates and stores a single parameter value.
func (s *Service) Set(ctx context.Context, userID int64, key Key, input string) (*domain.UserParameters, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := Apply(current, key, input); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("save user parameters: %w", err)
	}

	s.log.Info("user parameter updated",
		slog.Int64("user_id", userID),
		slog.String("key", string(key)))

	return current, nil
}

// SetAutobuy flips one of the autobuy toggles. The flags gate nothing yet;
// they are stored and displayed only.
func (s *Service) SetAutobuy(ctx context.Context, userID int64, onGrowth, onFall bool) (*domain.UserParameters, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	current.AutobuyOnGrowth = onGrowth
	current.AutobuyOnFall = onFall

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("save user parameters: %w", err)
	}

	s.log.Info("autobuy flags updated",
		slog.Int64("user_id", userID),
		slog.Bool("on_growth", onGrowth),
		slog.Bool("on_fall", onFall))

	return current, nil
}

// Reset removes stored parameters so defaults apply again.
func (s *Service) Reset(ctx context.Context, userID int64) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("reset user parameters: %w", err)
	}

	return nil
}
