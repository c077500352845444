package service

import (
	"errors"
	"fmt"

	"farmmarket/internal/models"
)

// ErrEmptyCart means there were no cart lines to commit. Nothing was
// written; the call is safe to repeat.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInvalidCredentials covers both unknown accounts and wrong passwords,
// for every role.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailTaken means the registration email is already in use.
var ErrEmailTaken = errors.New("email already registered")

// ErrNoSession means the presented session token is unknown or expired.
var ErrNoSession = errors.New("no active session")

// InsufficientStockError means a cart line asked for more units than the
// product had at commit time. Products that vanished mid-commit are reported
// the same way. The whole commit was rolled back; safe to retry after the
// cart is adjusted.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

// StorageError means the underlying store failed or the transaction aborted
// (lock timeout, I/O error). No partial writes were left behind; callers may
// retry with backoff.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageFault(err error) error {
	return &StorageError{Err: err}
}

// InvalidTransitionError means the admin asked for a status change the
// transition table does not allow.
type InvalidTransitionError struct {
	From models.Status
	To   models.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
