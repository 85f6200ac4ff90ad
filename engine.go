package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/token"
)

// Engine runs the authentication use cases. Build one with [Builder].
type Engine struct {
	config  Config
	tokens  *token.Service
	codes   *otp.Service
	users   UserDirectory
	hasher  password.Hasher
	audit   *auditDispatcher
	metrics *Metrics

	// dummyHash is verified against when the email is unknown.
	dummyHash string

	sleep func(time.Duration)
}

// Close drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Tokens exposes the token service for callers that need lower-level access.
func (e *Engine) Tokens() *token.Service { return e.tokens }

// Codes exposes the one-time code service, e.g. for purposes the Engine has
// no use case for.
func (e *Engine) Codes() *otp.Service { return e.codes }

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.OperationTimeout)
}

// unknownPrincipalID owns no codes; lookups for it never match.
const unknownPrincipalID = "00000000-0000-0000-0000-000000000000"

// burnCredentialCheck spends one hash verification so an unknown email costs
// as much as a wrong password.
func (e *Engine) burnCredentialCheck(plaintext string) {
	_, _ = e.hasher.Verify(plaintext, e.dummyHash)
}

// burnCodeCheck runs a code lookup that cannot match.
func (e *Engine) burnCodeCheck(ctx context.Context, code string, purpose otp.Purpose) {
	_ = e.codes.ValidateFor(ctx, unknownPrincipalID, code, purpose)
}

// padUnauthorized delays an Unauthorized result until FailureDelay has passed
// since start.
func (e *Engine) padUnauthorized(start time.Time, err error) error {
	if err == nil || e.config.Security.FailureDelay <= 0 || KindOf(err) != KindUnauthorized {
		return err
	}
	if remaining := e.config.Security.FailureDelay - time.Since(start); remaining > 0 {
		e.sleep(remaining)
	}
	return err
}

// verifyFailure maps a failed security check. A deadline denies with
// message like any other rejection; only an unreachable store is reported as
// retryable.
func (e *Engine) verifyFailure(ctx context.Context, message string, err error) *Error {
	if ctx.Err() == nil && isUnavailable(err) {
		e.metricInc(MetricStoreUnavailable)
		return unavailable(err)
	}
	return newError(KindUnauthorized, message, err)
}

// writeFailure maps a failure while persisting state.
func (e *Engine) writeFailure(err error) *Error {
	if isUnavailable(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		e.metricInc(MetricStoreUnavailable)
		return unavailable(err)
	}
	return internalError(err)
}

func isUnavailable(err error) bool {
	return errors.Is(err, token.ErrStoreUnavailable) ||
		errors.Is(err, otp.ErrStoreUnavailable) ||
		errors.Is(err, otp.ErrLookupFailed) ||
		errors.Is(err, errDirectoryUnavailable)
}
