package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
)

// LoginWithPassword checks the credential first and only then the account
// flags, so an unknown email and a wrong password look the same.
func (e *Engine) LoginWithPassword(ctx context.Context, email, plaintext string) (LoginResult, error) {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" {
		return LoginResult{}, e.loginFailed(ctx, "password", "", validationError(msgEmailRequired))
	}
	if plaintext == "" {
		return LoginResult{}, e.loginFailed(ctx, "password", "", validationError(msgPasswordRequired))
	}

	p, err := e.lookup(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		e.burnCredentialCheck(plaintext)
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, "password", "", newError(KindUnauthorized, msgInvalidCredentials, err)))
	}
	if err != nil {
		return LoginResult{}, e.loginFailed(ctx, "password", "", e.verifyFailure(ctx, msgInvalidCredentials, err))
	}

	ok, err := e.users.CheckCredential(ctx, p.ID, plaintext)
	if err != nil {
		out := e.verifyFailure(ctx, msgInvalidCredentials, fmt.Errorf("%w: %v", errDirectoryUnavailable, err))
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, "password", p.ID, out))
	}
	if !ok {
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, "password", p.ID, newError(KindUnauthorized, msgInvalidCredentials, nil)))
	}

	res, err := e.completeLogin(ctx, start, "password", p, msgInvalidCredentials)
	if err != nil {
		return LoginResult{}, err
	}
	e.metricInc(MetricLoginSuccess)
	return res, nil
}

// LoginWithOTP redeems a LOGIN_CONFIRMATION code instead of a password.
func (e *Engine) LoginWithOTP(ctx context.Context, email, code string) (LoginResult, error) {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return LoginResult{}, e.loginFailed(ctx, "otp", "", validationError(msgEmailRequired))
	}
	if code == "" {
		return LoginResult{}, e.loginFailed(ctx, "otp", "", validationError(msgCodeRequired))
	}

	p, err := e.lookup(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		e.burnCodeCheck(ctx, code, otp.PurposeLoginConfirmation)
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, "otp", "", newError(KindUnauthorized, msgInvalidCredentials, err)))
	}
	if err != nil {
		return LoginResult{}, e.loginFailed(ctx, "otp", "", e.verifyFailure(ctx, msgInvalidCredentials, err))
	}

	if err := e.codes.ValidateFor(ctx, p.ID, code, otp.PurposeLoginConfirmation); err != nil {
		var out *Error
		if errors.Is(err, otp.ErrInvalidCode) {
			out = newError(KindUnauthorized, msgInvalidCredentials, err)
		} else {
			out = e.verifyFailure(ctx, msgInvalidCredentials, err)
		}
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, "otp", p.ID, out))
	}

	res, err := e.completeLogin(ctx, start, "otp", p, msgInvalidCredentials)
	if err != nil {
		return LoginResult{}, err
	}
	e.metricInc(MetricLoginOTPSuccess)
	return res, nil
}

// RequestLoginOTP sends a LOGIN_CONFIRMATION code to a verified, active
// account.
func (e *Engine) RequestLoginOTP(ctx context.Context, email string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	_, err := e.issueCode(ctx, email, otp.PurposeLoginConfirmation)
	e.emitAudit(ctx, auditEventLoginOTPRequest, err == nil, "", err, nil)
	return err
}

// completeLogin applies the account flag checks to an authenticated principal
// and issues its token pair.
func (e *Engine) completeLogin(ctx context.Context, start time.Time, method string, p Principal, unauthorizedMessage string) (LoginResult, error) {
	if !p.Verified {
		return LoginResult{}, e.padUnauthorized(start, e.loginFailed(ctx, method, p.ID, newError(KindUnauthorized, unauthorizedMessage, nil)))
	}
	if !p.Active {
		return LoginResult{}, e.loginFailed(ctx, method, p.ID, newError(KindForbidden, msgInactiveAccount, nil))
	}

	pair, err := e.tokens.IssuePair(ctx, p.ID)
	if err != nil {
		return LoginResult{}, e.loginFailed(ctx, method, p.ID, e.writeFailure(err))
	}

	e.emitAudit(ctx, auditEventLoginSuccess, true, p.ID, nil, func() map[string]string {
		return map[string]string{"method": method}
	})
	return LoginResult{Principal: p, Tokens: pair}, nil
}

func (e *Engine) loginFailed(ctx context.Context, method, principalID string, err *Error) error {
	if method == "otp" {
		e.metricInc(MetricLoginOTPFailure)
	} else {
		e.metricInc(MetricLoginFailure)
	}
	e.emitAudit(ctx, auditEventLoginFailure, false, principalID, err, func() map[string]string {
		return map[string]string{"method": method}
	})
	return err
}

// issueCode resolves email to a verified, active principal and sends it a
// code for purpose.
func (e *Engine) issueCode(ctx context.Context, email string, purpose otp.Purpose) (Principal, error) {
	email = normalizeEmail(email)
	if email == "" {
		return Principal{}, validationError(msgEmailRequired)
	}

	p, err := e.lookup(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return Principal{}, newError(KindNotFound, msgUserNotFound, err)
	}
	if err != nil {
		return Principal{}, e.writeFailure(err)
	}
	if !p.Verified {
		return Principal{}, newError(KindUnauthorized, msgUnverifiedAccount, nil)
	}
	if !p.Active {
		return Principal{}, newError(KindForbidden, msgInactiveAccount, nil)
	}

	if _, err := e.codes.GenerateFor(ctx, recipientOf(p), purpose); err != nil {
		if errors.Is(err, otp.ErrDeliveryFailed) {
			e.metricInc(MetricOTPDeliveryFailure)
			return p, newError(KindServiceUnavailable, msgCodeDeliveryFailed, err)
		}
		return p, e.writeFailure(err)
	}
	e.metricInc(MetricOTPIssued)
	return p, nil
}
