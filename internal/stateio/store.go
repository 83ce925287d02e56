// Package stateio implements the IO-term linking and aggregation engine.
//
// It keeps an ordered many-to-many association between workflow states and
// a case-insensitively unique vocabulary of IO terms, and keeps every
// state's input/output summary in sync with it. All mutations run inside
// one Store transaction: either the term row, the link rows and the
// recomputed summaries commit together, or nothing does.
//
// Adapters (PostgreSQL, in-memory) implement Store. They return
// apperrors.ErrNotFound for missing rows and apperrors.ErrConflict for
// uniqueness violations; the engine maps those to typed AppErrors.
package stateio

import (
	"context"

	"stateflow.dev/stateflow/internal/domain"
)

// Store runs units of work against the shared relational store.
type Store interface {
	// InTx runs fn in a single transaction. The transaction commits only if
	// fn returns nil; any error rolls back every write made through tx.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn against a read-only view without taking row locks.
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}

// Reader is the lock-free read side of a Store.
type Reader interface {
	GetTerm(ctx context.Context, id string) (domain.Term, error)
	// ListTerms returns terms ordered by label ascending. q is normalized.
	ListTerms(ctx context.Context, q domain.TermQuery) ([]domain.Term, error)
	// CountLinks returns link counts per term id; terms without links are absent.
	CountLinks(ctx context.Context, termIDs []string) (map[string]int, error)
	// LinkedStateIDs returns the distinct ids of states linked to termID, ascending.
	LinkedStateIDs(ctx context.Context, termID string) ([]string, error)

	GetState(ctx context.Context, id string) (domain.State, error)
	// ListStateIDs pages through state ids greater than afterID, ascending.
	ListStateIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	// LinkedTerms returns the links of the given states joined with their
	// terms, ordered by state id, usage type and order.
	LinkedTerms(ctx context.Context, stateIDs []string) ([]domain.LinkedTerm, error)
}

// Tx is a Reader bound to a transaction plus locking and write primitives.
//
// Lock order across all flows is: label key, term rows (by id), state rows
// (by id), link rows (by id). Lock methods return rows ordered by id.
type Tx interface {
	Reader

	// LockLabel serializes writers of the same case-insensitive label until
	// the transaction ends.
	LockLabel(ctx context.Context, label string) error
	// LockTerms locks, for update, every term whose id is in ids or whose
	// label equals one of labels case-insensitively.
	LockTerms(ctx context.Context, ids []string, labels []string) ([]domain.Term, error)
	// ShareTerms takes a shared lock on the existing terms among ids, so a
	// concurrent relabel cannot interleave with the link write.
	ShareTerms(ctx context.Context, ids []string) ([]domain.Term, error)
	InsertTerm(ctx context.Context, term domain.Term) error
	UpdateTerm(ctx context.Context, term domain.Term) error

	// LockStates locks the existing states among ids for update.
	LockStates(ctx context.Context, ids []string) ([]domain.State, error)
	InsertState(ctx context.Context, state domain.State) error
	// UpdateState writes every mutable column of state, summaries included.
	UpdateState(ctx context.Context, state domain.State) error

	// LockLinks locks every link of the given states for update.
	LockLinks(ctx context.Context, stateIDs []string) ([]domain.Link, error)
	// ReplaceLinks deletes the links of (stateID, usage) and inserts links.
	ReplaceLinks(ctx context.Context, stateID string, usage domain.UsageType, links []domain.Link) error
}
