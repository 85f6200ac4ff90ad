package authcore

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error. Each kind maps to one HTTP status.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN"
	KindConflict           Kind = "CONFLICT"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only error type returned by Engine use cases. Message is safe
// to show to callers; Err is the internal cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrUnauthorized)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Kind sentinels for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrInternal           = &Error{Kind: KindInternal}
)

var (
	// ErrPrincipalNotFound is returned by UserDirectory lookups for unknown
	// principals.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicatePrincipal is returned by UserDirectory.CreateUser when the
	// email is taken.
	ErrDuplicatePrincipal = errors.New("principal already exists")
)

// KindOf returns the Kind of err, or KindInternal for foreign errors. A nil
// error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Caller-facing messages.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgUnverifiedAccount  = "Unverified account."
	msgInactiveAccount    = "Inactive account, please contact admins."
	msgUserNotFound       = "User not found."
	msgEmailTaken         = "The entered email is already registered."
	msgInvalidCode        = "This OTP code is invalid or has expired."
	msgInvalidSession     = "Invalid or expired session."
	msgRefreshRequired    = "Refresh token is required."
	msgLogoutTokens       = "Refresh and access token are required."
	msgEmailRequired      = "Email should be provided."
	msgPasswordRequired   = "Password should be provided."
	msgEmailInvalid       = "A valid email address is required."
	msgCodeRequired       = "OTP code is required."
	msgPasswordTooLong    = "Password is too long."
	msgNamesRequired      = "Firstname and lastname are required."
	msgWelcomeMailFailed  = "Failed to send verification email. Please try again later."
	msgCodeDeliveryFailed = "Failed to send the OTP code. Please try again later."
	msgServiceUnavailable = "Service temporarily unavailable. Please try again later."
	msgInternal           = "An unexpected error occurred."
)

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

func unavailable(cause error) *Error {
	return newError(KindServiceUnavailable, msgServiceUnavailable, cause)
}

func internalError(cause error) *Error {
	return newError(KindInternal, msgInternal, cause)
}

func passwordTooShort(n int) string {
	return fmt.Sprintf("Password must be at least %d characters long.", n)
}
