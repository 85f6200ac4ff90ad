package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
)

const rollbackTimeoutFloor = 2 * time.Second

// Register creates an unverified account and sends its verification code.
// When anything fails after the record exists, the record is deleted again;
// a failed delete is logged and the original error returned.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Principal, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	email := normalizeEmail(in.Email)
	firstname := strings.TrimSpace(in.Firstname)
	lastname := strings.TrimSpace(in.Lastname)

	if err := e.checkEmail(email); err != nil {
		return Principal{}, e.registerFailed(ctx, err)
	}
	if firstname == "" || lastname == "" {
		return Principal{}, e.registerFailed(ctx, validationError(msgNamesRequired))
	}
	if err := e.checkPassword(in.Password); err != nil {
		return Principal{}, e.registerFailed(ctx, err)
	}

	_, err := e.lookup(ctx, email)
	switch {
	case err == nil:
		e.metricInc(MetricRegisterDuplicate)
		return Principal{}, e.registerFailed(ctx, newError(KindConflict, msgEmailTaken, nil))
	case errors.Is(err, ErrPrincipalNotFound):
	default:
		return Principal{}, e.registerFailed(ctx, e.writeFailure(err))
	}

	hash, err := e.hasher.Hash(in.Password)
	if errors.Is(err, password.ErrTooLong) {
		return Principal{}, e.registerFailed(ctx, validationError(msgPasswordTooLong))
	}
	if err != nil {
		return Principal{}, e.registerFailed(ctx, internalError(err))
	}

	p, err := e.users.CreateUser(ctx, NewUser{
		Email:        email,
		PasswordHash: hash,
		Firstname:    firstname,
		Lastname:     lastname,
	})
	if errors.Is(err, ErrDuplicatePrincipal) {
		e.metricInc(MetricRegisterDuplicate)
		return Principal{}, e.registerFailed(ctx, newError(KindConflict, msgEmailTaken, err))
	}
	if err != nil {
		return Principal{}, e.registerFailed(ctx, e.writeFailure(fmt.Errorf("%w: %v", errDirectoryUnavailable, err)))
	}

	if _, err := e.codes.GenerateFor(ctx, recipientOf(p), otp.PurposeAccountVerification); err != nil {
		e.rollbackRegistration(ctx, p.ID)
		if errors.Is(err, otp.ErrDeliveryFailed) {
			e.metricInc(MetricOTPDeliveryFailure)
			return Principal{}, e.registerFailed(ctx, newError(KindServiceUnavailable, msgWelcomeMailFailed, err))
		}
		return Principal{}, e.registerFailed(ctx, e.writeFailure(err))
	}

	e.metricInc(MetricOTPIssued)
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, p.ID, nil, nil)
	return p, nil
}

func (e *Engine) registerFailed(ctx context.Context, err *Error) error {
	e.metricInc(MetricRegisterFailure)
	e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, func() map[string]string {
		return map[string]string{"reason": err.Message}
	})
	return err
}

// rollbackRegistration runs on a context detached from the caller's
// deadline, which may already have expired.
func (e *Engine) rollbackRegistration(ctx context.Context, principalID string) {
	timeout := e.config.OperationTimeout
	if timeout < rollbackTimeoutFloor {
		timeout = rollbackTimeoutFloor
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	e.metricInc(MetricRegisterRollback)
	err := e.users.DeleteUser(rctx, principalID)
	e.emitAudit(ctx, auditEventRegisterRollback, err == nil, principalID, nil, nil)
	if err != nil {
		log.Printf("authcore: register rollback failed for principal %s: %v", principalID, err)
	}
}
