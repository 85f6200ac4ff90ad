package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	minDigits = 4
	maxDigits = 10
)

var errInvalidDigits = errors.New("otp: code length must be between 4 and 10 digits")

// NewCode returns a string of digits, each drawn uniformly from 0-9 using
// crypto/rand.
func NewCode(digits int) (string, error) {
	if digits < minDigits || digits > maxDigits {
		return "", errInvalidDigits
	}

	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
