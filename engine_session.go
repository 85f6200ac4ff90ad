package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/token"
)

// Refresh rotates refreshToken into a new pair. The presented token stops
// working once this returns successfully.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return token.Pair{}, validationError(msgRefreshRequired)
	}

	pair, err := e.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		var out *Error
		if errors.Is(err, token.ErrSigning) {
			out = internalError(err)
		} else {
			out = e.verifyFailure(ctx, msgInvalidSession, err)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", out, nil)
		return token.Pair{}, e.padUnauthorized(start, out)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, "", nil, nil)
	return pair, nil
}

// Logout ends the session behind the two tokens. Both must verify and name
// the same principal; otherwise nothing is changed. The access token is then
// blacklisted and the refresh pin removed.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" || refreshToken == "" {
		return validationError(msgLogoutTokens)
	}

	claims, err := e.tokens.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return e.padUnauthorized(start, e.logoutFailed(ctx, "", e.verifyFailure(ctx, msgInvalidSession, err)))
	}
	principalID, err := e.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return e.padUnauthorized(start, e.logoutFailed(ctx, claims.PrincipalID, e.verifyFailure(ctx, msgInvalidSession, err)))
	}
	if principalID != claims.PrincipalID {
		e.metricInc(MetricLogoutMismatch)
		return e.padUnauthorized(start, e.logoutFailed(ctx, claims.PrincipalID, newError(KindUnauthorized, msgInvalidSession, nil)))
	}

	if err := e.tokens.BlacklistToken(ctx, accessToken); err != nil {
		return e.logoutFailed(ctx, principalID, e.writeFailure(err))
	}
	if err := e.tokens.RevokeSession(ctx, principalID); err != nil {
		return e.logoutFailed(ctx, principalID, e.writeFailure(err))
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, principalID, nil, nil)
	return nil
}

func (e *Engine) logoutFailed(ctx context.Context, principalID string, err *Error) error {
	event := auditEventLogout
	if err.Kind == KindUnauthorized {
		event = auditEventLogoutMismatch
	}
	e.emitAudit(ctx, event, false, principalID, err, nil)
	return err
}

// Authenticate verifies an access token for a request gate and returns the
// principal id. A missing token is Unauthorized.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (string, error) {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	if accessToken == "" {
		e.metricInc(MetricAuthenticateFailure)
		return "", newError(KindUnauthorized, msgInvalidSession, nil)
	}

	claims, err := e.tokens.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		return "", e.verifyFailure(ctx, msgInvalidSession, err)
	}
	e.metricInc(MetricAuthenticateSuccess)
	return claims.PrincipalID, nil
}

// Principal returns the account behind an authenticated principal id. An id
// whose account no longer exists is reported as an invalid session.
func (e *Engine) Principal(ctx context.Context, principalID string) (Principal, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	p, err := e.users.FindByID(ctx, principalID)
	if errors.Is(err, ErrPrincipalNotFound) {
		return Principal{}, newError(KindUnauthorized, msgInvalidSession, err)
	}
	if err != nil {
		return Principal{}, e.writeFailure(fmt.Errorf("%w: %v", errDirectoryUnavailable, err))
	}
	return p, nil
}
