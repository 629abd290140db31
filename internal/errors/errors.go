package errors

import (
	"errors"
	"fmt"

	"github.com/skalper-bot/trading-bot/internal/ledger"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewInvalidQuantityError(cause error) *AppError {
	return &AppError{
		Code:        "E110",
		Message:     "invalid order quantity",
		UserMessage: "Amount must be a positive number",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewInsufficientFundsError(cause error) *AppError {
	return &AppError{
		Code:        "E120",
		Message:     "insufficient funds for operation",
		UserMessage: "Insufficient balance for this operation",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewOrderNotFoundError(cause error) *AppError {
	return &AppError{
		Code:        "E130",
		Message:     "order not found",
		UserMessage: "Order not found",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewOrderFinalError(cause error) *AppError {
	return &AppError{
		Code:        "E140",
		Message:     "order already completed or cancelled",
		UserMessage: "This order is already closed",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       cause,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Service is temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "This action is not available right now",
		Severity:    SeverityMedium,
		Retryable:   false,
		cause:       nil,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

func NewSubscriptionRequiredError() *AppError {
	return &AppError{
		Code:        "E600",
		Message:     "subscription required",
		UserMessage: "An active subscription is required for this command",
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}

// FromLedger maps accounting errors onto AppError values with user-facing
// messages. Errors that are not accounting sentinels map to nil.
func FromLedger(err error) *AppError {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return NewInvalidQuantityError(err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return NewInsufficientFundsError(err)
	case errors.Is(err, ledger.ErrNotFound):
		return NewOrderNotFoundError(err)
	case errors.Is(err, ledger.ErrAlreadyFinal):
		return NewOrderFinalError(err)
	default:
		return nil
	}
}
