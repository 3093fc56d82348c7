// Package userstore looks up login credentials in the application's Postgres
// user table.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/debtflow/authcore"
	"github.com/lib/pq"
)

// DefaultTable is the user table created by the application's migrations.
const DefaultTable = "User"

// Store implements authcore.UserProvider over database/sql.
type Store struct {
	db    *sql.DB
	query string
}

// Option configures a [Store].
type Option func(*Store)

// WithTable reads users from table instead of DefaultTable.
func WithTable(table string) Option {
	return func(s *Store) {
		s.query = findByEmailQuery(table)
	}
}

// New wraps an open pool. The Store does not close it.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, query: findByEmailQuery(DefaultTable)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to dsn with the postgres driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func findByEmailQuery(table string) string {
	return `SELECT id, email, password, COALESCE(name, '') FROM ` + pq.QuoteIdentifier(table) + ` WHERE email = $1`
}

// FindByEmail returns authcore.ErrUserNotFound when no row matches. Emails are
// stored normalized, so the lookup is exact.
func (s *Store) FindByEmail(ctx context.Context, email string) (authcore.UserRecord, error) {
	var u authcore.UserRecord
	err := s.db.QueryRowContext(ctx, s.query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	if err != nil {
		return authcore.UserRecord{}, fmt.Errorf("userstore: find by email: %w", err)
	}
	return u, nil
}
