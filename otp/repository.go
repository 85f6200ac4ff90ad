package otp

import (
	"context"
	"errors"
)

// ErrCodeNotFound is returned by Repository.FindValid when no fresh, unused
// record matches.
var ErrCodeNotFound = errors.New("otp: code not found")

// Repository persists one-time code records.
type Repository interface {
	// Create stores a new record.
	Create(ctx context.Context, code Code) error
	// FindValid returns the newest record matching principal, code and
	// purpose that is fresh and unused. Expiry is not checked here.
	FindValid(ctx context.Context, principalID, code string, purpose Purpose) (Code, error)
	// MarkUsed sets used on the record if it is still fresh and unused and
	// reports whether it changed.
	MarkUsed(ctx context.Context, id string) (bool, error)
	// InvalidateOldCodes clears the fresh flag on every unused record for the
	// pair and returns how many were changed.
	InvalidateOldCodes(ctx context.Context, principalID string, purpose Purpose) (int64, error)
}

// AtomicRepository is implemented by repositories that can demote old codes
// and create the new one in a single transaction.
type AtomicRepository interface {
	InvalidateAndCreate(ctx context.Context, code Code) error
}
