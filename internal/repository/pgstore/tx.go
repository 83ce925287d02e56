package pgstore

import (
	"context"
	"fmt"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/repository/sqlc"
)

type transaction struct {
	reader
}

func (t *transaction) LockLabel(ctx context.Context, label string) error {
	if err := t.q.LockLabel(ctx, label); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func (t *transaction) LockTerms(ctx context.Context, ids []string, labels []string) ([]domain.Term, error) {
	keys := make([]string, 0, len(labels))
	for _, l := range labels {
		keys = append(keys, domain.LabelKey(l))
	}
	if ids == nil {
		ids = []string{}
	}
	rows, err := t.q.LockIOTerms(ctx, sqlc.LockIOTermsParams{Ids: ids, LabelKeys: keys})
	if err != nil {
		return nil, fmt.Errorf("lock terms: %w", err)
	}
	out := make([]domain.Term, 0, len(rows))
	for _, row := range rows {
		out = append(out, termFromRow(row))
	}
	return out, nil
}

func (t *transaction) ShareTerms(ctx context.Context, ids []string) ([]domain.Term, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.q.ShareIOTerms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("share-lock terms: %w", err)
	}
	out := make([]domain.Term, 0, len(rows))
	for _, row := range rows {
		out = append(out, termFromRow(row))
	}
	return out, nil
}

func (t *transaction) InsertTerm(ctx context.Context, term domain.Term) error {
	err := t.q.InsertIOTerm(ctx, sqlc.InsertIOTermParams{
		ID:          term.ID,
		Label:       term.Label,
		Description: term.Description,
		CreatedBy:   term.CreatedBy,
		UpdatedBy:   term.UpdatedBy,
		CreatedAt:   timestamptz(term.CreatedAt),
		UpdatedAt:   timestamptz(term.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("insert term %s: %w", term.ID, mapError(err))
	}
	return nil
}

func (t *transaction) UpdateTerm(ctx context.Context, term domain.Term) error {
	n, err := t.q.UpdateIOTerm(ctx, sqlc.UpdateIOTermParams{
		ID:          term.ID,
		Label:       term.Label,
		Description: term.Description,
		UpdatedBy:   term.UpdatedBy,
		UpdatedAt:   timestamptz(term.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("update term %s: %w", term.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update term %s: %w", term.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (t *transaction) LockStates(ctx context.Context, ids []string) ([]domain.State, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := t.q.LockStates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock states: %w", err)
	}
	out := make([]domain.State, 0, len(rows))
	for _, row := range rows {
		out = append(out, stateFromRow(row))
	}
	return out, nil
}

func (t *transaction) InsertState(ctx context.Context, st domain.State) error {
	err := t.q.InsertState(ctx, sqlc.InsertStateParams{
		ID:            st.ID,
		ProjectID:     st.ProjectID,
		Name:          st.Name,
		Description:   st.Description,
		InputSummary:  st.InputSummary,
		OutputSummary: st.OutputSummary,
		InputSource:   string(st.InputSource),
		OutputSource:  string(st.OutputSource),
		CreatedBy:     st.CreatedBy,
		UpdatedBy:     st.UpdatedBy,
		CreatedAt:     timestamptz(st.CreatedAt),
		UpdatedAt:     timestamptz(st.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("insert state %s: %w", st.ID, mapError(err))
	}
	return nil
}

func (t *transaction) UpdateState(ctx context.Context, st domain.State) error {
	n, err := t.q.UpdateState(ctx, sqlc.UpdateStateParams{
		ID:            st.ID,
		Name:          st.Name,
		Description:   st.Description,
		InputSummary:  st.InputSummary,
		OutputSummary: st.OutputSummary,
		InputSource:   string(st.InputSource),
		OutputSource:  string(st.OutputSource),
		UpdatedBy:     st.UpdatedBy,
		UpdatedAt:     timestamptz(st.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("update state %s: %w", st.ID, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("update state %s: %w", st.ID, apperrors.ErrNotFound)
	}
	return nil
}

func (t *transaction) LockLinks(ctx context.Context, stateIDs []string) ([]domain.Link, error) {
	if len(stateIDs) == 0 {
		return nil, nil
	}
	rows, err := t.q.LockStateIOLinks(ctx, stateIDs)
	if err != nil {
		return nil, fmt.Errorf("lock links: %w", err)
	}
	out := make([]domain.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Link{
			ID:        row.ID,
			StateID:   row.StateID,
			TermID:    row.IoTermID,
			UsageType: domain.UsageType(row.UsageType),
			Order:     int(row.Order),
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return out, nil
}

func (t *transaction) ReplaceLinks(ctx context.Context, stateID string, usage domain.UsageType, links []domain.Link) error {
	if _, err := t.q.DeleteStateIOLinks(ctx, sqlc.DeleteStateIOLinksParams{
		StateID:   stateID,
		UsageType: string(usage),
	}); err != nil {
		return fmt.Errorf("delete %s links: %w", usage, err)
	}
	for _, l := range links {
		err := t.q.InsertStateIOLink(ctx, sqlc.InsertStateIOLinkParams{
			ID:        l.ID,
			StateID:   l.StateID,
			IoTermID:  l.TermID,
			UsageType: string(l.UsageType),
			Order:     int32(l.Order),
			CreatedAt: timestamptz(l.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("insert link %s: %w", l.ID, mapError(err))
		}
	}
	return nil
}
