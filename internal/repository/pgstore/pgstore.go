// Package pgstore implements stateio.Store on PostgreSQL through pgx.
//
// Every unit of work is one READ COMMITTED transaction. Isolation comes
// from explicit row locks taken in the engine's global order (label key,
// terms, states, links) rather than from SERIALIZABLE retries.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/repository/sqlc"
	"stateflow.dev/stateflow/internal/stateio"
)

// PostgreSQL error codes handled by the adapter.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Store is a PostgreSQL-backed stateio.Store.
type Store struct {
	pool    *pgxpool.Pool
	queries *sqlc.Queries
}

var _ stateio.Store = (*Store)(nil)

// New creates a Store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		queries: sqlc.New(pool),
	}
}

// InTx runs fn in a READ COMMITTED transaction and commits when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx stateio.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	t := &transaction{reader: reader{q: s.queries.WithTx(tx), db: tx}}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}

// View runs fn against the pool without a transaction.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r stateio.Reader) error) error {
	return fn(ctx, reader{q: s.queries, db: s.pool})
}

// IsTransient reports whether err is a storage failure that is safe to
// retry as a whole unit of work: serialization failures, deadlocks and
// errors raised before anything reached the server.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return pgconn.SafeToRetry(err)
}

// mapError converts driver errors into the sentinels understood by the engine.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", apperrors.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: constraint %s", apperrors.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: constraint %s", apperrors.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
