package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skalper-bot/trading-bot/internal/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByID(ctx context.Context, telegramID int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	UpdateLanguage(ctx context.Context, telegramID int64, language string) error
	UpdateAPIKey(ctx context.Context, telegramID int64, apiKey string) error
	SetSubscription(ctx context.Context, telegramID int64, active bool, expires *time.Time) error
	ListSubscribed(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByID retrieves a user from the database by their Telegram identifier.
func (r *userRepository) FindByID(ctx context.Context, telegramID int64) (*domain.User, error) {
	const query = `
		SELECT telegram_id, name, language, subscription, subscription_expires, api_key, created_at
		FROM users
		WHERE telegram_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, telegramID)

	var user domain.User
	var language, apiKey sql.NullString
	var expires sql.NullTime
	if err := row.Scan(
		&user.TelegramID,
		&user.Name,
		&language,
		&user.Subscription,
		&expires,
		&apiKey,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		r.log.Error("failed to fetch user by telegram id", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return nil, fmt.Errorf("select user by telegram id: %w", err)
	}

	user.Language = language.String
	user.APIKey = apiKey.String
	if expires.Valid {
		t := expires.Time
		user.SubscriptionExpires = &t
	}

	return &user, nil
}

// Create persists a new user record in the database.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (telegram_id, name, language, subscription, subscription_expires, api_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.TelegramID,
		user.Name,
		nullString(user.Language),
		user.Subscription,
		user.SubscriptionExpires,
		nullString(user.APIKey),
		user.CreatedAt,
	); err != nil {
		r.log.Error("failed to create user", slog.Int64("telegram_id", user.TelegramID), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// UpdateLanguage saves the user's preferred language.
func (r *userRepository) UpdateLanguage(ctx context.Context, telegramID int64, language string) error {
	const query = `UPDATE users SET language = $1 WHERE telegram_id = $2`

	if _, err := r.db.ExecContext(ctx, query, language, telegramID); err != nil {
		r.log.Error("failed to update language", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return fmt.Errorf("update user language: %w", err)
	}

	return nil
}

// UpdateAPIKey stores the user's exchange credential. The value is opaque to
// the bot and never logged.
func (r *userRepository) UpdateAPIKey(ctx context.Context, telegramID int64, apiKey string) error {
	const query = `UPDATE users SET api_key = $1 WHERE telegram_id = $2`

	if _, err := r.db.ExecContext(ctx, query, apiKey, telegramID); err != nil {
		r.log.Error("failed to update api key", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return fmt.Errorf("update user api key: %w", err)
	}

	return nil
}

// SetSubscription updates the subscription flag and expiry together.
func (r *userRepository) SetSubscription(ctx context.Context, telegramID int64, active bool, expires *time.Time) error {
	const query = `UPDATE users SET subscription = $1, subscription_expires = $2 WHERE telegram_id = $3`

	if _, err := r.db.ExecContext(ctx, query, active, expires, telegramID); err != nil {
		r.log.Error("failed to update subscription", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		return fmt.Errorf("update user subscription: %w", err)
	}

	return nil
}

// ListSubscribed returns every user with an active subscription flag. Used by
// the expiry sweep.
func (r *userRepository) ListSubscribed(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT telegram_id, name, language, subscription, subscription_expires, api_key, created_at
		FROM users
		WHERE subscription = TRUE
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to list subscribed users", slog.Any("error", err))
		return nil, fmt.Errorf("select subscribed users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		var language, apiKey sql.NullString
		var expires sql.NullTime
		if err := rows.Scan(
			&user.TelegramID,
			&user.Name,
			&language,
			&user.Subscription,
			&expires,
			&apiKey,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscribed user: %w", err)
		}

		user.Language = language.String
		user.APIKey = apiKey.String
		if expires.Valid {
			t := expires.Time
			user.SubscriptionExpires = &t
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed users: %w", err)
	}

	return users, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
