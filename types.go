package authcore

import (
	"context"

	"github.com/MrEthical07/authcore/token"
)

// Principal is an account as the core sees it.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Verified  bool   `json:"verified"`
	Active    bool   `json:"active"`
}

// NewUser is what Register hands to the UserDirectory. PasswordHash is
// already hashed.
type NewUser struct {
	Email        string
	PasswordHash string
	Firstname    string
	Lastname     string
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// LoginResult is returned by both login use cases.
type LoginResult struct {
	Principal Principal  `json:"user"`
	Tokens    token.Pair `json:"tokens"`
}

// UserDirectory owns principal records and credentials. Lookups return
// ErrPrincipalNotFound for unknown principals and CreateUser returns
// ErrDuplicatePrincipal when the email is taken.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (Principal, error)
	FindByID(ctx context.Context, id string) (Principal, error)
	CreateUser(ctx context.Context, user NewUser) (Principal, error)
	DeleteUser(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	CheckCredential(ctx context.Context, id, plaintext string) (bool, error)
}
