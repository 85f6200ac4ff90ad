package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPrincipalNotFound is returned by Generate when no principal owns the
	// email. PrincipalResolver implementations return it for unknown emails.
	ErrPrincipalNotFound = errors.New("otp: principal not found")
	// ErrInvalidCode is the single opaque validation failure.
	ErrInvalidCode = errors.New("otp: invalid or expired code")
	// ErrDeliveryFailed is returned by Generate when the record was stored but
	// the Sender failed. The record stays fresh.
	ErrDeliveryFailed = errors.New("otp: delivery failed")
	// ErrUnknownPurpose is returned for purposes outside the closed set.
	ErrUnknownPurpose = errors.New("otp: unknown purpose")
	// ErrStoreUnavailable wraps repository failures.
	ErrStoreUnavailable = errors.New("otp: store unavailable")
	// ErrLookupFailed wraps resolver failures other than not-found.
	ErrLookupFailed = errors.New("otp: principal lookup failed")
)

// Recipient identifies who a code is issued to and where it is delivered.
type Recipient struct {
	PrincipalID string
	Email       string
	Name        string
}

// PrincipalResolver maps an email to a Recipient.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, email string) (Recipient, error)
}

// Sender delivers a freshly generated code.
type Sender interface {
	SendCode(ctx context.Context, to Recipient, code Code, lifetime time.Duration) error
}

// Config controls code shape and lifetime.
type Config struct {
	Length   int
	Lifetime time.Duration
}

// Service generates and validates codes. It holds no mutable state and is
// safe for concurrent use.
type Service struct {
	repo     Repository
	resolver PrincipalResolver
	sender   Sender
	config   Config
	now      func() time.Time
}

// NewService validates cfg and wires the collaborators.
func NewService(repo Repository, resolver PrincipalResolver, sender Sender, cfg Config) (*Service, error) {
	if repo == nil {
		return nil, errors.New("otp: repository required")
	}
	if resolver == nil {
		return nil, errors.New("otp: principal resolver required")
	}
	if sender == nil {
		return nil, errors.New("otp: sender required")
	}
	if cfg.Length < minDigits || cfg.Length > maxDigits {
		return nil, errInvalidDigits
	}
	if cfg.Lifetime <= 0 {
		return nil, errors.New("otp: lifetime must be > 0")
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		sender:   sender,
		config:   cfg,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Lifetime returns the configured code lifetime.
func (s *Service) Lifetime() time.Duration {
	return s.config.Lifetime
}

// Generate resolves the principal behind email and issues a code for purpose.
func (s *Service) Generate(ctx context.Context, email string, purpose Purpose) (Code, error) {
	if !purpose.Valid() {
		return Code{}, ErrUnknownPurpose
	}
	to, err := s.resolve(ctx, email)
	if err != nil {
		return Code{}, err
	}
	return s.GenerateFor(ctx, to, purpose)
}

// GenerateFor issues a code for an already resolved recipient. Old unused
// codes for the pair are demoted before the new record is created, and the
// code is handed to the Sender last. A delivery failure returns the stored
// record together with ErrDeliveryFailed.
func (s *Service) GenerateFor(ctx context.Context, to Recipient, purpose Purpose) (Code, error) {
	if !purpose.Valid() {
		return Code{}, ErrUnknownPurpose
	}
	if to.PrincipalID == "" {
		return Code{}, ErrPrincipalNotFound
	}

	digits, err := NewCode(s.config.Length)
	if err != nil {
		return Code{}, err
	}

	now := s.now()
	record := Code{
		ID:          uuid.NewString(),
		PrincipalID: to.PrincipalID,
		Code:        digits,
		Purpose:     purpose,
		Used:        false,
		IsFresh:     true,
		ExpiresAt:   now.Add(s.config.Lifetime),
		CreatedAt:   now,
	}

	if atomic, ok := s.repo.(AtomicRepository); ok {
		if err := atomic.InvalidateAndCreate(ctx, record); err != nil {
			return Code{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	} else {
		if err := s.InvalidateOldCodes(ctx, to.PrincipalID, purpose); err != nil {
			return Code{}, err
		}
		if err := s.repo.Create(ctx, record); err != nil {
			return Code{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := s.sender.SendCode(ctx, to, record, s.config.Lifetime); err != nil {
		return record, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return record, nil
}

// Validate checks code for the principal behind email and consumes it.
func (s *Service) Validate(ctx context.Context, email, code string, purpose Purpose) error {
	if !purpose.Valid() {
		return ErrUnknownPurpose
	}
	to, err := s.resolve(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	return s.ValidateFor(ctx, to.PrincipalID, code, purpose)
}

// ValidateFor checks and consumes code for principalID. Any reason the code
// cannot be redeemed yields ErrInvalidCode; only storage failures differ.
func (s *Service) ValidateFor(ctx context.Context, principalID, code string, purpose Purpose) error {
	if !purpose.Valid() {
		return ErrUnknownPurpose
	}
	code = strings.TrimSpace(code)
	if principalID == "" || code == "" {
		return ErrInvalidCode
	}

	record, err := s.repo.FindValid(ctx, principalID, code, purpose)
	if errors.Is(err, ErrCodeNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !record.Consumable(s.now()) {
		return ErrInvalidCode
	}

	marked, err := s.repo.MarkUsed(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !marked {
		return ErrInvalidCode
	}
	return nil
}

// InvalidateOldCodes demotes every unused code for the pair. Idempotent.
func (s *Service) InvalidateOldCodes(ctx context.Context, principalID string, purpose Purpose) error {
	if !purpose.Valid() {
		return ErrUnknownPurpose
	}
	if _, err := s.repo.InvalidateOldCodes(ctx, principalID, purpose); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, email string) (Recipient, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Recipient{}, ErrPrincipalNotFound
	}
	to, err := s.resolver.ResolvePrincipal(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return Recipient{}, ErrPrincipalNotFound
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if to.Email == "" {
		to.Email = email
	}
	return to, nil
}
