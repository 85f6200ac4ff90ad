package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kv"
)

var (
	// ErrSigning is returned when the signing primitive fails.
	ErrSigning = errors.New("token: signing failed")
	// ErrStoreUnavailable is returned when the key-value store cannot be reached.
	ErrStoreUnavailable = errors.New("token: store unavailable")
	// ErrInvalidToken is returned for any signature, format or expiry failure
	// of an access token.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrRevoked is returned when an access token is on the blacklist.
	ErrRevoked = errors.New("token: revoked")
	// ErrUnauthorized is returned when a refresh token fails verification or
	// does not match the pinned value.
	ErrUnauthorized = errors.New("token: unauthorized")
)

const blacklistValue = "blacklisted"

// Config controls key naming and retention.
type Config struct {
	PinPrefix       string
	BlacklistPrefix string
	PinTTL          time.Duration
	BlacklistTTL    time.Duration
}

// Claims is what a verified access token yields.
type Claims struct {
	PrincipalID string
	ExpiresAt   time.Time
}

// Pair is an access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service issues and checks tokens. It is safe for concurrent use.
type Service struct {
	access  *jwt.Manager
	refresh *jwt.Manager
	store   kv.Store
	config  Config
}

// NewService builds a Service. access and refresh must be managers of the
// matching kinds, normally with distinct keys.
func NewService(access, refresh *jwt.Manager, store kv.Store, cfg Config) (*Service, error) {
	if access == nil || refresh == nil {
		return nil, errors.New("token: access and refresh managers required")
	}
	if store == nil {
		return nil, errors.New("token: key-value store required")
	}
	if cfg.PinPrefix == "" {
		cfg.PinPrefix = "pin:"
	}
	if cfg.BlacklistPrefix == "" {
		cfg.BlacklistPrefix = "bl_"
	}
	if cfg.PinTTL <= 0 {
		return nil, errors.New("token: pin ttl must be > 0")
	}
	if cfg.PinTTL < refresh.TTL() {
		return nil, errors.New("token: pin ttl must cover the refresh token lifetime")
	}
	if cfg.BlacklistTTL < access.TTL() {
		cfg.BlacklistTTL = access.TTL()
	}

	return &Service{
		access:  access,
		refresh: refresh,
		store:   store,
		config:  cfg,
	}, nil
}

// BlacklistTTL returns the effective blacklist retention.
func (s *Service) BlacklistTTL() time.Duration {
	return s.config.BlacklistTTL
}

func (s *Service) pinKey(principalID string) string {
	return s.config.PinPrefix + principalID
}

func (s *Service) blacklistKey(token string) string {
	return s.config.BlacklistPrefix + token
}

// SignAccessToken returns a signed access token for principalID. It has no
// side effects.
func (s *Service) SignAccessToken(_ context.Context, principalID string) (string, error) {
	token, err := s.access.Sign(principalID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return token, nil
}

// SignRefreshToken signs a refresh token and overwrites the pin for
// principalID with it. If the pin write fails the token is discarded and
// ErrStoreUnavailable is returned.
func (s *Service) SignRefreshToken(ctx context.Context, principalID string) (string, error) {
	token, err := s.refresh.Sign(principalID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	if err := s.store.Set(ctx, s.pinKey(principalID), token, s.config.PinTTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return token, nil
}

// IssuePair signs an access token and a pinned refresh token.
func (s *Service) IssuePair(ctx context.Context, principalID string) (Pair, error) {
	access, err := s.SignAccessToken(ctx, principalID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.SignRefreshToken(ctx, principalID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken checks signature and expiry, then the blacklist. Both
// checks always run.
func (s *Service) VerifyAccessToken(ctx context.Context, token string) (Claims, error) {
	claims, err := s.access.Parse(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	_, err = s.store.Get(ctx, s.blacklistKey(token))
	switch {
	case err == nil:
		return Claims{}, ErrRevoked
	case errors.Is(err, kv.ErrNotFound):
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := Claims{PrincipalID: claims.Principal()}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// VerifyRefreshToken checks signature and expiry, then requires the token to
// equal the pinned value for its principal.
func (s *Service) VerifyRefreshToken(ctx context.Context, token string) (string, error) {
	claims, err := s.refresh.Parse(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	principalID := claims.Principal()

	pinned, err := s.store.Get(ctx, s.pinKey(principalID))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if pinned != token {
		return "", ErrUnauthorized
	}
	return principalID, nil
}

// BlacklistToken records accessToken as revoked for at least the access
// token lifetime.
func (s *Service) BlacklistToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrInvalidToken
	}
	if err := s.store.Set(ctx, s.blacklistKey(accessToken), blacklistValue, s.config.BlacklistTTL); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RevokeSession deletes the refresh pin for principalID. Idempotent.
func (s *Service) RevokeSession(ctx context.Context, principalID string) error {
	if err := s.store.Del(ctx, s.pinKey(principalID)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Rotate verifies refreshToken and issues a new pair. The previous refresh
// token stops verifying because the pin now holds the new one. When the store
// supports compare-and-set the pin is swapped atomically, so of two concurrent
// rotations of one token only the first succeeds.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (Pair, error) {
	principalID, err := s.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return Pair{}, err
	}

	swapper, ok := s.store.(kv.Swapper)
	if !ok {
		return s.IssuePair(ctx, principalID)
	}

	access, err := s.SignAccessToken(ctx, principalID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.refresh.Sign(principalID)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	swapped, err := swapper.CompareAndSet(ctx, s.pinKey(principalID), refreshToken, refresh, s.config.PinTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !swapped {
		return Pair{}, ErrUnauthorized
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}
