package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
)

// VerifyAccount redeems an ACCOUNT_VERIFICATION code. Verifying an already
// verified account succeeds without consuming anything.
func (e *Engine) VerifyAccount(ctx context.Context, email, code string) error {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return validationError(msgEmailRequired)
	}
	if code == "" {
		return validationError(msgCodeRequired)
	}

	p, err := e.lookup(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return e.verifyAccountFailed(ctx, "", newError(KindNotFound, msgUserNotFound, err))
	}
	if err != nil {
		return e.verifyAccountFailed(ctx, "", e.writeFailure(err))
	}
	if p.Verified {
		return nil
	}

	if err := e.codes.ValidateFor(ctx, p.ID, code, otp.PurposeAccountVerification); err != nil {
		var out *Error
		if errors.Is(err, otp.ErrInvalidCode) {
			out = newError(KindUnauthorized, msgInvalidCode, err)
		} else {
			out = e.verifyFailure(ctx, msgInvalidCode, err)
		}
		return e.padUnauthorized(start, e.verifyAccountFailed(ctx, p.ID, out))
	}

	if err := e.users.MarkVerified(ctx, p.ID); err != nil {
		return e.verifyAccountFailed(ctx, p.ID, e.writeFailure(fmt.Errorf("%w: %v", errDirectoryUnavailable, err)))
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditEventVerifyAccount, true, p.ID, nil, nil)
	return nil
}

func (e *Engine) verifyAccountFailed(ctx context.Context, principalID string, err *Error) error {
	e.metricInc(MetricVerifyFailure)
	e.emitAudit(ctx, auditEventVerifyAccount, false, principalID, err, nil)
	return err
}
