package stateio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stateflow.dev/stateflow/internal/domain"
)

// LinkSynchronizer replaces a state's ordered term list per direction.
// It is a full replace, not a diff: term lists are short.
type LinkSynchronizer struct {
	newID func() string
	now   func() time.Time
}

// Resolve share-locks every term referenced by lists and returns the ids
// that do not exist, in first-seen order. lists must be sanitized.
func (l LinkSynchronizer) Resolve(ctx context.Context, tx Tx, lists domain.TermLists) ([]string, error) {
	ids := lists.AllIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	terms, err := tx.ShareTerms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load terms: %w", err)
	}
	found := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		found[t.ID] = struct{}{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Apply replaces the links of every supplied direction of state and marks
// those directions as term-derived. lists must be sanitized and resolved.
func (l LinkSynchronizer) Apply(ctx context.Context, tx Tx, state *domain.State, lists domain.TermLists) error {
	for _, usage := range domain.UsageTypes {
		ids, ok := lists.For(usage)
		if !ok {
			continue
		}

		now := l.now()
		links := make([]domain.Link, 0, len(ids))
		for i, termID := range ids {
			links = append(links, domain.Link{
				ID:        l.newID(),
				StateID:   state.ID,
				TermID:    termID,
				UsageType: usage,
				Order:     i,
				CreatedAt: now,
			})
		}
		if err := tx.ReplaceLinks(ctx, state.ID, usage, links); err != nil {
			return fmt.Errorf("replace %s links of state %s: %w", usage, state.ID, err)
		}
		state.SetSummary(usage, state.Summary(usage), domain.SourceTerms)
	}
	return nil
}

// Detach switches a direction to free text: its links are removed and the
// summary becomes text verbatim (trimmed).
func (l LinkSynchronizer) Detach(ctx context.Context, tx Tx, state *domain.State, usage domain.UsageType, text string) error {
	if err := tx.ReplaceLinks(ctx, state.ID, usage, nil); err != nil {
		return fmt.Errorf("clear %s links of state %s: %w", usage, state.ID, err)
	}
	state.SetSummary(usage, strings.TrimSpace(text), domain.SourceText)
	return nil
}
