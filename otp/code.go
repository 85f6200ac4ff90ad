package otp

import (
	"fmt"
	"time"
)

// Purpose is the closed set of reasons a code can be issued for.
type Purpose string

const (
	PurposeAccountVerification     Purpose = "ACCOUNT_VERIFICATION"
	PurposeForgotPassword          Purpose = "FORGOT_PASSWORD"
	PurposeTwoFactorAuthentication Purpose = "TWO_FACTOR_AUTHENTICATION"
	PurposeEmailUpdate             Purpose = "EMAIL_UPDATE"
	PurposePhoneVerification       Purpose = "PHONE_VERIFICATION"
	PurposeTransactionConfirmation Purpose = "TRANSACTION_CONFIRMATION"
	PurposeAccountRecovery         Purpose = "ACCOUNT_RECOVERY"
	PurposeChangeSecuritySettings  Purpose = "CHANGE_SECURITY_SETTINGS"
	PurposeLoginConfirmation       Purpose = "LOGIN_CONFIRMATION"
)

var allPurposes = []Purpose{
	PurposeAccountVerification,
	PurposeForgotPassword,
	PurposeTwoFactorAuthentication,
	PurposeEmailUpdate,
	PurposePhoneVerification,
	PurposeTransactionConfirmation,
	PurposeAccountRecovery,
	PurposeChangeSecuritySettings,
	PurposeLoginConfirmation,
}

// Purposes returns every known purpose in declaration order.
func Purposes() []Purpose {
	out := make([]Purpose, len(allPurposes))
	copy(out, allPurposes)
	return out
}

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	for _, known := range allPurposes {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePurpose converts s into a Purpose.
func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPurpose, s)
	}
	return p, nil
}

// Code is a stored one-time code record.
type Code struct {
	ID          string
	PrincipalID string
	Code        string
	Purpose     Purpose
	Used        bool
	IsFresh     bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Consumable reports whether c can still be redeemed at now.
func (c Code) Consumable(now time.Time) bool {
	return c.IsFresh && !c.Used && now.Before(c.ExpiresAt)
}
