package stateio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// Recalculator recomputes state summaries from linked terms. It is a full
// recompute per state, O(links of the state).
type Recalculator struct{}

// Apply recomputes and writes the summaries of states. A direction with
// links is always term-derived; a free-text direction without links keeps
// its text. The returned slice holds the written states.
func (Recalculator) Apply(ctx context.Context, tx Tx, states []domain.State) ([]domain.State, error) {
	if len(states) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(states))
	for _, s := range states {
		ids = append(ids, s.ID)
	}
	linked, err := tx.LinkedTerms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load linked terms: %w", err)
	}
	grouped := groupLinked(linked)

	out := make([]domain.State, 0, len(states))
	for _, state := range states {
		byUsage := grouped[state.ID]
		for _, usage := range domain.UsageTypes {
			terms := byUsage[usage]
			if len(terms) == 0 && state.Source(usage) != domain.SourceTerms {
				continue
			}
			state.SetSummary(usage, JoinLabels(terms), domain.SourceTerms)
		}
		if err := tx.UpdateState(ctx, state); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return nil, apperrors.ErrStateNameExistsf(state.Name)
			}
			return nil, fmt.Errorf("write summaries of state %s: %w", state.ID, err)
		}
		out = append(out, state)
	}
	return out, nil
}

// JoinLabels joins the labels of terms in link order.
func JoinLabels(terms []domain.LinkedTerm) string {
	if len(terms) == 0 {
		return ""
	}
	sorted := append([]domain.LinkedTerm(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	labels := make([]string, len(sorted))
	for i, t := range sorted {
		labels[i] = t.Term.Label
	}
	return strings.Join(labels, domain.SummaryDelimiter)
}

func groupLinked(linked []domain.LinkedTerm) map[string]map[domain.UsageType][]domain.LinkedTerm {
	out := make(map[string]map[domain.UsageType][]domain.LinkedTerm)
	for _, lt := range linked {
		byUsage, ok := out[lt.StateID]
		if !ok {
			byUsage = make(map[domain.UsageType][]domain.LinkedTerm, 2)
			out[lt.StateID] = byUsage
		}
		byUsage[lt.UsageType] = append(byUsage[lt.UsageType], lt)
	}
	return out
}

// termsInOrder returns the terms linked to stateID for usage in link order.
func termsInOrder(grouped map[string]map[domain.UsageType][]domain.LinkedTerm, stateID string, usage domain.UsageType) []domain.Term {
	linked := append([]domain.LinkedTerm(nil), grouped[stateID][usage]...)
	sort.SliceStable(linked, func(i, j int) bool { return linked[i].Order < linked[j].Order })

	terms := make([]domain.Term, 0, len(linked))
	for _, lt := range linked {
		terms = append(terms, lt.Term)
	}
	return terms
}
