// Package params exposes typed editing of per-user autotrading knobs.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skalper-bot/trading-bot/internal/domain"
	apperrors "github.com/skalper-bot/trading-bot/internal/errors"
)

// Key identifies one editable parameter. Editing dispatches through the
// key's validator and setter rather than positional menu indexes.
type Key string

const (
	KeyPurchaseAmount   Key = "purchase_amount"
	KeyProfitPercentage Key = "profit_percentage"
	KeyPurchaseDelay    Key = "purchase_delay"
	KeyGrowthPercentage Key = "growth_percentage"
	KeyFallPercentage   Key = "fall_percentage"
)

// Keys lists the editable parameters in menu order.
func Keys() []Key {
	return []Key{
		KeyPurchaseAmount,
		KeyProfitPercentage,
		KeyPurchaseDelay,
		KeyGrowthPercentage,
		KeyFallPercentage,
	}
}

// ParseKey resolves user callback data to a Key.
func ParseKey(raw string) (Key, error) {
	key := Key(strings.TrimSpace(strings.ToLower(raw)))
	switch key {
	case KeyPurchaseAmount, KeyProfitPercentage, KeyPurchaseDelay, KeyGrowthPercentage, KeyFallPercentage:
		return key, nil
	default:
		return "", fmt.Errorf("unknown parameter %q", raw)
	}
}

type definition struct {
	parse func(input string) (any, error)
	set   func(p *domain.UserParameters, value any)
	get   func(p *domain.UserParameters) any
}

var definitions = map[Key]definition{
	KeyPurchaseAmount: {
		parse: parsePositiveFloat,
		set:   func(p *domain.UserParameters, v any) { p.PurchaseAmount = v.(float64) },
		get:   func(p *domain.UserParameters) any { return p.PurchaseAmount },
	},
	KeyProfitPercentage: {
		parse: parsePositiveFloat,
		set:   func(p *domain.UserParameters, v any) { p.ProfitPercentage = v.(float64) },
		get:   func(p *domain.UserParameters) any { return p.ProfitPercentage },
	},
	KeyPurchaseDelay: {
		parse: parsePositiveInt,
		set:   func(p *domain.UserParameters, v any) { p.PurchaseDelay = v.(int) },
		get:   func(p *domain.UserParameters) any { return p.PurchaseDelay },
	},
	KeyGrowthPercentage: {
		parse: parsePositiveFloat,
		set:   func(p *domain.UserParameters, v any) { p.GrowthPercentage = v.(float64) },
		get:   func(p *domain.UserParameters) any { return p.GrowthPercentage },
	},
	KeyFallPercentage: {
		parse: parsePositiveFloat,
		set:   func(p *domain.UserParameters, v any) { p.FallPercentage = v.(float64) },
		get:   func(p *domain.UserParameters) any { return p.FallPercentage },
	},
}

// Apply validates the raw input for the given key and writes it into the
// parameter set. The input error is user-facing.
func Apply(p *domain.UserParameters, key Key, input string) error {
	def, ok := definitions[key]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown parameter %q", key))
	}

	value, err := def.parse(input)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	def.set(p, value)
	return nil
}

// Value returns the current value for the key, formatted for display.
func Value(p *domain.UserParameters, key Key) string {
	def, ok := definitions[key]
	if !ok || p == nil {
		return ""
	}

	switch v := def.get(p).(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func parsePositiveFloat(input string) (any, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(input, ",", ".")), 64)
	if err != nil {
		return nil, fmt.Errorf("expected a number, got %q", input)
	}
	if value <= 0 {
		return nil, fmt.Errorf("value must be greater than zero")
	}

	return value, nil
}

func parsePositiveInt(input string) (any, error) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return nil, fmt.Errorf("expected a whole number, got %q", input)
	}
	if value <= 0 {
		return nil, fmt.Errorf("value must be greater than zero")
	}

	return value, nil
}
