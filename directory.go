package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/otp"
)

var errDirectoryUnavailable = errors.New("user directory unavailable")

// lookup resolves email, wrapping directory failures other than not-found.
func (e *Engine) lookup(ctx context.Context, email string) (Principal, error) {
	p, err := e.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return Principal{}, ErrPrincipalNotFound
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", errDirectoryUnavailable, err)
	}
	return p, nil
}

// directoryResolver lets the otp service resolve principals through the
// UserDirectory.
type directoryResolver struct {
	users UserDirectory
}

func (r directoryResolver) ResolvePrincipal(ctx context.Context, email string) (otp.Recipient, error) {
	p, err := r.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		return otp.Recipient{}, otp.ErrPrincipalNotFound
	}
	if err != nil {
		return otp.Recipient{}, err
	}
	return recipientOf(p), nil
}

func recipientOf(p Principal) otp.Recipient {
	return otp.Recipient{PrincipalID: p.ID, Email: p.Email, Name: p.Firstname}
}
