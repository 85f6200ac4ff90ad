// Package sqlstore is a database/sql implementation of otp.Repository for
// SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq).
//
// A partial unique index allows at most one fresh, unused code per
// (principal, purpose). InvalidateAndCreate demotes and inserts in one
// transaction and retries once when a concurrent writer won the index, so the
// last writer's code is the one that survives.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/sqldb"
	"github.com/MrEthical07/authcore/otp"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

//go:embed schema/postgres.sql
var postgresSchema string

const (
	// SQLite stores booleans as 0/1 integers.
	boolTrueSQLite  = "1"
	boolFalseSQLite = "0"
)

// Store persists one-time codes.
type Store struct {
	db      *sql.DB
	dialect sqldb.Dialect
	q       queries
}

type queries struct {
	insert     string
	findValid  string
	markUsed   string
	invalidate string
}

// Open opens dsn with dialect and applies the schema.
func Open(dialect sqldb.Dialect, dsn string) (*Store, error) {
	db, err := sqldb.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	store, err := New(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open handle and applies the schema.
func New(db *sql.DB, dialect sqldb.Dialect) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	s := &Store{db: db, dialect: dialect, q: buildQueries(dialect)}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := sqliteSchema
	if s.dialect == sqldb.Postgres {
		schema = postgresSchema
	}
	_, err := s.db.Exec(schema)
	return err
}

func buildQueries(dialect sqldb.Dialect) queries {
	t, f := "TRUE", "FALSE"
	if dialect == sqldb.SQLite {
		t, f = boolTrueSQLite, boolFalseSQLite
	}
	bind := func(q string) string { return sqldb.Rebind(dialect, q) }

	return queries{
		insert: bind(`
			INSERT INTO one_time_codes (id, principal_id, code, purpose, used, is_fresh, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		findValid: bind(`
			SELECT id, principal_id, code, purpose, used, is_fresh, expires_at, created_at
			FROM one_time_codes
			WHERE principal_id = ? AND code = ? AND purpose = ? AND is_fresh = ` + t + ` AND used = ` + f + `
			ORDER BY created_at DESC
			LIMIT 1`),
		markUsed: bind(`
			UPDATE one_time_codes
			SET used = ` + t + `
			WHERE id = ? AND used = ` + f + ` AND is_fresh = ` + t),
		invalidate: bind(`
			UPDATE one_time_codes
			SET is_fresh = ` + f + `
			WHERE principal_id = ? AND purpose = ? AND used = ` + f + ` AND is_fresh = ` + t),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, ex execer, c otp.Code) error {
	_, err := ex.ExecContext(ctx, s.q.insert,
		c.ID,
		c.PrincipalID,
		c.Code,
		string(c.Purpose),
		c.Used,
		c.IsFresh,
		c.ExpiresAt.UnixMilli(),
		c.CreatedAt.UnixMilli(),
	)
	return err
}

// Create inserts a record.
func (s *Store) Create(ctx context.Context, c otp.Code) error {
	if err := s.insert(ctx, s.db, c); err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}
	return nil
}

// FindValid returns the newest fresh, unused record for the triple.
func (s *Store) FindValid(ctx context.Context, principalID, code string, purpose otp.Purpose) (otp.Code, error) {
	var (
		out        otp.Code
		purposeStr string
		expiresAt  int64
		createdAt  int64
	)
	err := s.db.QueryRowContext(ctx, s.q.findValid, principalID, code, string(purpose)).Scan(
		&out.ID,
		&out.PrincipalID,
		&out.Code,
		&purposeStr,
		&out.Used,
		&out.IsFresh,
		&expiresAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return otp.Code{}, otp.ErrCodeNotFound
	}
	if err != nil {
		return otp.Code{}, fmt.Errorf("failed to query code: %w", err)
	}

	out.Purpose = otp.Purpose(purposeStr)
	out.ExpiresAt = time.UnixMilli(expiresAt)
	out.CreatedAt = time.UnixMilli(createdAt)
	return out, nil
}

// MarkUsed flips used on a fresh, unused record.
func (s *Store) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q.markUsed, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark code used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// InvalidateOldCodes demotes every unused fresh record for the pair.
func (s *Store) InvalidateOldCodes(ctx context.Context, principalID string, purpose otp.Purpose) (int64, error) {
	return s.invalidate(ctx, s.db, principalID, purpose)
}

func (s *Store) invalidate(ctx context.Context, ex execer, principalID string, purpose otp.Purpose) (int64, error) {
	res, err := ex.ExecContext(ctx, s.q.invalidate, principalID, string(purpose))
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate codes: %w", err)
	}
	return res.RowsAffected()
}

// InvalidateAndCreate demotes old codes and inserts c in one transaction.
func (s *Store) InvalidateAndCreate(ctx context.Context, c otp.Code) error {
	err := s.invalidateAndCreateTx(ctx, c)
	if sqldb.IsUniqueViolation(err) {
		err = s.invalidateAndCreateTx(ctx, c)
	}
	return err
}

func (s *Store) invalidateAndCreateTx(ctx context.Context, c otp.Code) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.invalidate(ctx, tx, c.PrincipalID, c.Purpose); err != nil {
		return err
	}
	if err := s.insert(ctx, tx, c); err != nil {
		return fmt.Errorf("failed to insert code: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
