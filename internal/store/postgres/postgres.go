// Package postgres implements store.Store on database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"wishwell/internal/store"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repository code serves both plain and transactional stores.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
	q  dbtx
	tx *sql.Tx
}

func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() store.Users                 { return &users{q: s.q} }
func (s *Store) Wishes() store.Wishes               { return &wishes{q: s.q} }
func (s *Store) Dreams() store.Dreams               { return &dreams{q: s.q} }
func (s *Store) Conversations() store.Conversations { return &conversations{q: s.q} }
func (s *Store) Messages() store.Messages           { return &messages{q: s.q} }
func (s *Store) Ledger() store.Ledger               { return &ledger{q: s.q} }

// WithTx runs fn against a transaction-scoped store. Nested calls reuse the
// outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &Store{db: s.db, q: tx, tx: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
