package authcore

import (
	"net/mail"
	"strings"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare RFC 5322 address without display name.
func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

func (e *Engine) checkEmail(email string) *Error {
	if email == "" {
		return validationError(msgEmailRequired)
	}
	if !validEmail(email) {
		return validationError(msgEmailInvalid)
	}
	return nil
}

func (e *Engine) checkPassword(plaintext string) *Error {
	if len([]rune(plaintext)) < e.config.Password.MinLength {
		return validationError(passwordTooShort(e.config.Password.MinLength))
	}
	return nil
}
