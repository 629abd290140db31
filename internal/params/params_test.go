package params

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/skalper-bot/trading-bot/internal/domain"
	apperrors "github.com/skalper-bot/trading-bot/internal/errors"
)

func TestParseKey(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Key
		wantErr bool
	}{
		{name: "known key", input: "purchase_amount", want: KeyPurchaseAmount},
		{name: "uppercase is normalized", input: "PROFIT_PERCENTAGE", want: KeyProfitPercentage},
		{name: "whitespace trimmed", input: "  purchase_delay ", want: KeyPurchaseDelay},
		{name: "unknown key", input: "leverage", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKey(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApply(t *testing.T) {
	testCases := []struct {
		name    string
		key     Key
		input   string
		check   func(t *testing.T, p *domain.UserParameters)
		wantErr bool
	}{
		{
			name:  "set purchase amount",
			key:   KeyPurchaseAmount,
			input: "2500",
			check: func(t *testing.T, p *domain.UserParameters) {
				assert.Equal(t, 2500.0, p.PurchaseAmount)
			},
		},
		{
			name:  "comma decimal separator accepted",
			key:   KeyProfitPercentage,
			input: "7,5",
			check: func(t *testing.T, p *domain.UserParameters) {
				assert.Equal(t, 7.5, p.ProfitPercentage)
			},
		},
		{
			name:  "set delay",
			key:   KeyPurchaseDelay,
			input: "30",
			check: func(t *testing.T, p *domain.UserParameters) {
				assert.Equal(t, 30, p.PurchaseDelay)
			},
		},
		{
			name:    "zero rejected",
			key:     KeyPurchaseAmount,
			input:   "0",
			wantErr: true,
		},
		{
			name:    "negative rejected",
			key:     KeyFallPercentage,
			input:   "-3",
			wantErr: true,
		},
		{
			name:    "not a number",
			key:     KeyGrowthPercentage,
			input:   "lots",
			wantErr: true,
		},
		{
			name:    "fractional delay rejected",
			key:     KeyPurchaseDelay,
			input:   "1.5",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p := domain.DefaultUserParameters(1)
			err := Apply(p, tc.key, tc.input)

			if tc.wantErr {
				var appErr *apperrors.AppError
				assert.Error(t, err)
				assert.True(t, errors.As(err, &appErr))
				return
			}

			assert.NoError(t, err)
			tc.check(t, p)
		})
	}
}

func TestValue(t *testing.T) {
	p := domain.DefaultUserParameters(1)

	assert.Equal(t, "1000", Value(p, KeyPurchaseAmount))
	assert.Equal(t, "5", Value(p, KeyProfitPercentage))
	assert.Equal(t, "10", Value(p, KeyPurchaseDelay))
	assert.Equal(t, "", Value(p, Key("unknown")))
}

type mockParamsRepo struct {
	mock.Mock
}

func (m *mockParamsRepo) Get(ctx context.Context, userID int64) (*domain.UserParameters, error) {
	args := m.Called(ctx, userID)
	params, _ := args.Get(0).(*domain.UserParameters)
	return params, args.Error(1)
}

func (m *mockParamsRepo) Upsert(ctx context.Context, params *domain.UserParameters) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockParamsRepo) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_GetDefaults(t *testing.T) {
	repo := &mockParamsRepo{}
	repo.On("Get", mock.Anything, int64(42)).Return((*domain.UserParameters)(nil), sql.ErrNoRows).Once()

	svc := NewService(repo, testLogger())

	got, err := svc.Get(context.Background(), 42)
	assert.NoError(t, err)
	assert.Equal(t, domain.DefaultUserParameters(42), got)

	// Defaults must not be written back on read.
	repo.AssertNotCalled(t, "Upsert")
	repo.AssertExpectations(t)
}

func TestService_Set(t *testing.T) {
	repo := &mockParamsRepo{}
	repo.On("Get", mock.Anything, int64(42)).Return((*domain.UserParameters)(nil), sql.ErrNoRows).Once()
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.UserParameters) bool {
		return p.UserID == 42 && p.PurchaseAmount == 1500.0
	})).Return(nil).Once()

	svc := NewService(repo, testLogger())

	got, err := svc.Set(context.Background(), 42, KeyPurchaseAmount, "1500")
	assert.NoError(t, err)
	assert.Equal(t, 1500.0, got.PurchaseAmount)

	repo.AssertExpectations(t)
}

func TestService_SetInvalidInput(t *testing.T) {
	repo := &mockParamsRepo{}
	repo.On("Get", mock.Anything, int64(42)).Return((*domain.UserParameters)(nil), sql.ErrNoRows).Once()

	svc := NewService(repo, testLogger())

	_, err := svc.Set(context.Background(), 42, KeyPurchaseAmount, "-10")
	assert.Error(t, err)

	repo.AssertNotCalled(t, "Upsert")
}

func TestService_SetAutobuy(t *testing.T) {
	repo := &mockParamsRepo{}
	stored := domain.DefaultUserParameters(42)
	repo.On("Get", mock.Anything, int64(42)).Return(stored, nil).Once()
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(p *domain.UserParameters) bool {
		return p.AutobuyOnGrowth && !p.AutobuyOnFall
	})).Return(nil).Once()

	svc := NewService(repo, testLogger())

	got, err := svc.SetAutobuy(context.Background(), 42, true, false)
	assert.NoError(t, err)
	assert.True(t, got.AutobuyEnabled())

	repo.AssertExpectations(t)
}
