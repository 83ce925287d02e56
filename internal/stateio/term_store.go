package stateio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// TermStore is the canonical registry of IO terms. It owns label
// uniqueness; every method runs inside the caller's transaction.
type TermStore struct {
	newID func() string
	now   func() time.Time
}

// Create inserts a term. The case-insensitive duplicate check runs under
// the label lock of the same transaction as the insert.
func (s TermStore) Create(ctx context.Context, tx Tx, label, description, actorID string) (domain.Term, error) {
	label = strings.TrimSpace(label)

	if err := tx.LockLabel(ctx, label); err != nil {
		return domain.Term{}, fmt.Errorf("lock label %q: %w", label, err)
	}
	existing, err := tx.LockTerms(ctx, nil, []string{label})
	if err != nil {
		return domain.Term{}, fmt.Errorf("check label %q: %w", label, err)
	}
	if len(existing) > 0 {
		return domain.Term{}, apperrors.ErrDuplicateLabelf(label)
	}

	now := s.now()
	term := domain.Term{
		ID:          s.newID(),
		Label:       label,
		Description: strings.TrimSpace(description),
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.InsertTerm(ctx, term); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return domain.Term{}, apperrors.ErrDuplicateLabelf(label)
		}
		return domain.Term{}, fmt.Errorf("insert term: %w", err)
	}
	return term, nil
}

// Update applies patch to the term. relabeled reports whether the stored
// label text changed; the caller must then recompute every dependent state
// in the same transaction.
func (s TermStore) Update(
	ctx context.Context, tx Tx, id string, patch domain.TermPatch, actorID string,
) (term domain.Term, relabeled bool, err error) {
	var (
		newLabel string
		labels   []string
	)
	if patch.Label != nil {
		newLabel = strings.TrimSpace(*patch.Label)
		if err := tx.LockLabel(ctx, newLabel); err != nil {
			return domain.Term{}, false, fmt.Errorf("lock label %q: %w", newLabel, err)
		}
		labels = []string{newLabel}
	}

	// Target and candidate duplicate are locked together, in id order.
	rows, err := tx.LockTerms(ctx, []string{id}, labels)
	if err != nil {
		return domain.Term{}, false, fmt.Errorf("lock term %s: %w", id, err)
	}

	var (
		current   *domain.Term
		duplicate bool
	)
	for i := range rows {
		if rows[i].ID == id {
			current = &rows[i]
			continue
		}
		if patch.Label != nil && domain.SameLabel(rows[i].Label, newLabel) {
			duplicate = true
		}
	}
	if current == nil {
		return domain.Term{}, false, apperrors.ErrIOTermNotFoundf(id)
	}
	if patch.Label != nil && !domain.SameLabel(current.Label, newLabel) && duplicate {
		return domain.Term{}, false, apperrors.ErrDuplicateLabelf(newLabel)
	}

	updated := *current
	if patch.Label != nil {
		updated.Label = newLabel
	}
	if patch.Description != nil {
		updated.Description = strings.TrimSpace(*patch.Description)
	}
	updated.UpdatedBy = actorID
	updated.UpdatedAt = s.now()

	if err := tx.UpdateTerm(ctx, updated); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrConflict):
			return domain.Term{}, false, apperrors.ErrDuplicateLabelf(newLabel)
		case errors.Is(err, apperrors.ErrNotFound):
			return domain.Term{}, false, apperrors.ErrIOTermNotFoundf(id)
		}
		return domain.Term{}, false, fmt.Errorf("update term %s: %w", id, err)
	}
	return updated, updated.Label != current.Label, nil
}
