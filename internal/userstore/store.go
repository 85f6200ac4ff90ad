// Package userstore is the SQL-backed authcore.UserDirectory used by the
// bundled server. It shares the dialect handling of the one-time code store.
package userstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/sqldb"
	"github.com/MrEthical07/authcore/password"
	"github.com/google/uuid"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/postgres.sql
var postgresSchema string

type upgrader interface {
	NeedsUpgrade(encoded string) (bool, error)
}

// Store keeps principals and their password hashes.
type Store struct {
	db        *sql.DB
	dialect   sqldb.Dialect
	q         queries
	preferred password.Hasher
	bcrypt    *password.Bcrypt
	argon2    *password.Argon2
	now       func() time.Time
}

type queries struct {
	insert      string
	byEmail     string
	byID        string
	hashByID    string
	remove      string
	verify      string
	setPassword string
}

// New wraps db and applies the schema. preferred hashes upgraded credentials;
// nil means bcrypt at the default cost. Hashes of either supported algorithm
// keep verifying regardless of preferred.
func New(db *sql.DB, dialect sqldb.Dialect, preferred password.Hasher) (*Store, error) {
	if db == nil {
		return nil, errors.New("userstore: nil db")
	}

	s := &Store{db: db, dialect: dialect, q: buildQueries(dialect), now: time.Now}
	switch h := preferred.(type) {
	case *password.Bcrypt:
		s.bcrypt = h
	case *password.Argon2:
		s.argon2 = h
	}
	if s.bcrypt == nil {
		bc, err := password.NewBcrypt(0)
		if err != nil {
			return nil, err
		}
		s.bcrypt = bc
	}
	if s.argon2 == nil {
		a2, err := password.NewArgon2(password.DefaultArgon2Config())
		if err != nil {
			return nil, err
		}
		s.argon2 = a2
	}
	if preferred == nil {
		preferred = s.bcrypt
	}
	s.preferred = preferred

	schema := sqliteSchema
	if dialect == sqldb.Postgres {
		schema = postgresSchema
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// WithClock replaces the time source used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

func buildQueries(dialect sqldb.Dialect) queries {
	t := "TRUE"
	if dialect == sqldb.SQLite {
		t = "1"
	}
	bind := func(q string) string { return sqldb.Rebind(dialect, q) }
	const columns = `id, email, firstname, lastname, verified, active`

	return queries{
		insert: bind(`
			INSERT INTO users (id, email, password_hash, firstname, lastname, verified, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		byEmail:     bind(`SELECT ` + columns + ` FROM users WHERE email = ?`),
		byID:        bind(`SELECT ` + columns + ` FROM users WHERE id = ?`),
		hashByID:    bind(`SELECT password_hash FROM users WHERE id = ?`),
		remove:      bind(`DELETE FROM users WHERE id = ?`),
		verify:      bind(`UPDATE users SET verified = ` + t + `, updated_at = ? WHERE id = ?`),
		setPassword: bind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
	}
}

func (s *Store) scanOne(ctx context.Context, query string, arg string) (authcore.Principal, error) {
	var p authcore.Principal
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Email, &p.Firstname, &p.Lastname, &p.Verified, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return authcore.Principal{}, authcore.ErrPrincipalNotFound
	}
	if err != nil {
		return authcore.Principal{}, fmt.Errorf("failed to query user: %w", err)
	}
	return p, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (authcore.Principal, error) {
	return s.scanOne(ctx, s.q.byEmail, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) FindByID(ctx context.Context, id string) (authcore.Principal, error) {
	return s.scanOne(ctx, s.q.byID, id)
}

// CreateUser inserts an active, unverified principal with a fresh UUID.
func (s *Store) CreateUser(ctx context.Context, in authcore.NewUser) (authcore.Principal, error) {
	p := authcore.Principal{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Active:    true,
	}
	now := s.now().UnixMilli()
	_, err := s.db.ExecContext(ctx, s.q.insert,
		p.ID, p.Email, in.PasswordHash, p.Firstname, p.Lastname, p.Verified, p.Active, now, now)
	if sqldb.IsUniqueViolation(err) {
		return authcore.Principal{}, authcore.ErrDuplicatePrincipal
	}
	if err != nil {
		return authcore.Principal{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return p, nil
}

// DeleteUser removes the principal. Unknown ids are not an error.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.q.remove, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.update(ctx, s.q.verify, s.now().UnixMilli(), id)
}

func (s *Store) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, s.q.setPassword, passwordHash, s.now().UnixMilli(), id)
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return authcore.ErrPrincipalNotFound
	}
	return nil
}

// CheckCredential verifies plaintext against the stored hash. After a match,
// hashes from another algorithm or with weaker parameters are replaced with a
// preferred hash; a failed upgrade is logged and the login still succeeds.
func (s *Store) CheckCredential(ctx context.Context, id, plaintext string) (bool, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, s.q.hashByID, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return false, authcore.ErrPrincipalNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to query credential: %w", err)
	}

	h, err := password.Detect(encoded, s.bcrypt, s.argon2)
	if err != nil {
		return false, err
	}
	ok, err := h.Verify(plaintext, encoded)
	if err != nil || !ok {
		return false, err
	}

	if s.needsUpgrade(h, encoded) {
		if err := s.upgrade(ctx, id, plaintext); err != nil {
			log.Printf("authcore: password upgrade failed for principal %s: %v", id, err)
		}
	}
	return true, nil
}

func (s *Store) needsUpgrade(current password.Hasher, encoded string) bool {
	if current != s.preferred {
		return true
	}
	u, ok := current.(upgrader)
	if !ok {
		return false
	}
	stale, err := u.NeedsUpgrade(encoded)
	return err == nil && stale
}

func (s *Store) upgrade(ctx context.Context, id, plaintext string) error {
	encoded, err := s.preferred.Hash(plaintext)
	if err != nil {
		return err
	}
	return s.UpdatePassword(ctx, id, encoded)
}

var _ authcore.UserDirectory = (*Store)(nil)
