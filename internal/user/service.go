// Package user provides business operations over user profiles.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/domain"
	"github.com/skalper-bot/trading-bot/internal/repository"
)

const apiKeyLength = 12

// Service provides business operations over users.
type Service struct {
	repo repository.UserRepository
	log  *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(repo repository.UserRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{repo: repo, log: log}
}

// GetOrCreate fetches a user by telegram ID or creates a new profile when missing.
func (s *Service) GetOrCreate(ctx context.Context, telegramUser *telebot.User) (*domain.User, error) {
	if telegramUser == nil {
		return nil, errors.New("telegram user is nil")
	}

	user, err := s.repo.FindByID(ctx, telegramUser.ID)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		s.logError("get_or_create.find", telegramUser.ID, err)
		return nil, fmt.Errorf("get user: %w", err)
	}

	newUser := &domain.User{
		TelegramID: telegramUser.ID,
		Name:       displayName(telegramUser),
		Language:   telegramUser.LanguageCode,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, newUser); err != nil {
		s.logError("get_or_create.create", telegramUser.ID, err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("new user registered", slog.Int64("telegram_id", newUser.TelegramID))

	return newUser, nil
}

// SetLanguage persists the user's preferred language.
func (s *Service) SetLanguage(ctx context.Context, userID int64, language string) error {
	if err := s.repo.UpdateLanguage(ctx, userID, language); err != nil {
		s.logError("set_language", userID, err)
		return err
	}

	return nil
}

// SetAPIKey validates and stores the user's exchange credential. The key is
// opaque to the bot: only its length is checked.
func (s *Service) SetAPIKey(ctx context.Context, userID int64, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) != apiKeyLength {
		return fmt.Errorf("api key must be exactly %d characters", apiKeyLength)
	}

	if err := s.repo.UpdateAPIKey(ctx, userID, apiKey); err != nil {
		s.logError("set_api_key", userID, err)
		return err
	}

	return nil
}

// HasAPIKey reports whether the user completed registration.
func (s *Service) HasAPIKey(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		s.logError("has_api_key", userID, err)
		return false, err
	}

	return user.APIKey != "", nil
}

func displayName(telegramUser *telebot.User) string {
	name := strings.TrimSpace(telegramUser.FirstName + " " + telegramUser.LastName)
	if name == "" {
		name = telegramUser.Username
	}

	return name
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
