package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

// ParamsRepository defines persistence operations for per-user autotrading
// parameters.
type ParamsRepository interface {
	Get(ctx context.Context, userID int64) (*domain.UserParameters, error)
	Upsert(ctx context.Context, params *domain.UserParameters) error
	Delete(ctx context.Context, userID int64) error
}

type paramsRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewParamsRepository creates a new SQL-backed parameters repository.
func NewParamsRepository(db *sql.DB, log *slog.Logger) ParamsRepository {
	if log == nil {
		log = slog.Default()
	}

	return &paramsRepository{
		db:  db,
		log: log,
	}
}

// Get loads the user's parameters, or sql.ErrNoRows when they were never set.
func (r *paramsRepository) Get(ctx context.Context, userID int64) (*domain.UserParameters, error) {
	const query = `
		SELECT user_id, purchase_amount, profit_percentage, purchase_delay,
			growth_percentage, fall_percentage, autobuy_on_growth, autobuy_on_fall
		FROM user_parameters
		WHERE user_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, userID)

	var p domain.UserParameters
	if err := row.Scan(
		&p.UserID,
		&p.PurchaseAmount,
		&p.ProfitPercentage,
		&p.PurchaseDelay,
		&p.GrowthPercentage,
		&p.FallPercentage,
		&p.AutobuyOnGrowth,
		&p.AutobuyOnFall,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		r.log.Error("failed to fetch user parameters", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select user parameters: %w", err)
	}

	return &p, nil
}

// Upsert inserts or replaces the user's parameters.
func (r *paramsRepository) Upsert(ctx context.Context, params *domain.UserParameters) error {
	const query = `
		INSERT INTO user_parameters (user_id, purchase_amount, profit_percentage, purchase_delay,
			growth_percentage, fall_percentage, autobuy_on_growth, autobuy_on_fall)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			purchase_amount = EXCLUDED.purchase_amount,
			profit_percentage = EXCLUDED.profit_percentage,
			purchase_delay = EXCLUDED.purchase_delay,
			growth_percentage = EXCLUDED.growth_percentage,
			fall_percentage = EXCLUDED.fall_percentage,
			autobuy_on_growth = EXCLUDED.autobuy_on_growth,
			autobuy_on_fall = EXCLUDED.autobuy_on_fall
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		params.UserID,
		params.PurchaseAmount,
		params.ProfitPercentage,
		params.PurchaseDelay,
		params.GrowthPercentage,
		params.FallPercentage,
		params.AutobuyOnGrowth,
		params.AutobuyOnFall,
	); err != nil {
		r.log.Error("failed to upsert user parameters", slog.Int64("user_id", params.UserID), slog.Any("error", err))
		return fmt.Errorf("upsert user parameters: %w", err)
	}

	return nil
}

// Delete removes the user's parameters so defaults apply again.
func (r *paramsRepository) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM user_parameters WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		r.log.Error("failed to delete user parameters", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("delete user parameters: %w", err)
	}

	return nil
}
