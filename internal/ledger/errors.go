package ledger

import "errors"

var (
	// ErrInvalidQuantity indicates a non-positive amount or price.
	ErrInvalidQuantity = errors.New("amount and price must be positive")
	// ErrInsufficientFunds indicates the available balance cannot cover the
	// requested reservation or purchase.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotFound indicates the referenced order or user does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyFinal indicates the order already reached a terminal status.
	ErrAlreadyFinal = errors.New("order is already completed or cancelled")
	// ErrConflict indicates the storage transaction lost an isolation race
	// and should be retried.
	ErrConflict = errors.New("storage conflict")
)
