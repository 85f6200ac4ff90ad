package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrTooLong is returned for inputs beyond what the algorithm accepts.
	ErrTooLong = errors.New("password too long")
	// ErrEmpty is returned for an empty password.
	ErrEmpty = errors.New("password is empty")
	// ErrUnknownFormat is returned by Detect for unrecognised hashes.
	ErrUnknownFormat = errors.New("unrecognised password hash format")
)

// Hasher hashes a plaintext and checks a plaintext against a stored hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// DefaultBcryptCost matches the historical salt rounds of the service.
const DefaultBcryptCost = 10

// bcrypt ignores everything past 72 bytes, so longer inputs are refused.
const bcryptMaxBytes = 72

// Bcrypt hashes with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a Bcrypt hasher. A zero cost means DefaultBcryptCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmpty
	}
	if len(plaintext) > bcryptMaxBytes {
		return "", ErrTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports a mismatch as (false, nil). Malformed hashes return an error.
func (b *Bcrypt) Verify(plaintext, encoded string) (bool, error) {
	if len(plaintext) > bcryptMaxBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// NeedsUpgrade reports whether encoded was produced with a lower cost.
func (b *Bcrypt) NeedsUpgrade(encoded string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return false, err
	}
	return cost < b.cost, nil
}

// Detect returns whichever of the given hashers understands encoded.
func Detect(encoded string, bc *Bcrypt, a2 *Argon2) (Hasher, error) {
	switch {
	case strings.HasPrefix(encoded, "$"+algorithmID+"$") && a2 != nil:
		return a2, nil
	case (strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$")) && bc != nil:
		return bc, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// New builds the hasher named by algorithm ("bcrypt" or "argon2id").
func New(algorithm string, bcryptCost int, argon Config) (Hasher, error) {
	switch algorithm {
	case "", "bcrypt":
		return NewBcrypt(bcryptCost)
	case algorithmID:
		return NewArgon2(argon)
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
}
