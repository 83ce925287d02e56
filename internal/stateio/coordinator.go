package stateio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/metrics"
)

// DefaultReconcileBatchSize is the page size of ReconcileAll when the
// caller passes a non-positive batch size.
const DefaultReconcileBatchSize = 100

// Coordinator is the single entry point for term and link mutations. Every
// operation runs in one Store transaction; no partial state is observable
// after a failure.
//
// The coordinator never retries. Callers may retry the whole operation on
// a STORAGE_FAILURE error.
type Coordinator struct {
	store   Store
	terms   TermStore
	links   LinkSynchronizer
	recalc  Recalculator
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMetrics records operation outcomes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides the generator of new term, state and link ids.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// New creates a Coordinator over store.
func New(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newUUIDv7,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.terms = TermStore{newID: c.newID, now: c.now}
	c.links = LinkSynchronizer{newID: c.newID, now: c.now}
	return c
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CreateTerm registers a new IO term. Labels are unique case-insensitively.
func (c *Coordinator) CreateTerm(ctx context.Context, label, description, actorID string) (domain.TermWithUsage, error) {
	if err := validateTermInput(label, description); err != nil {
		c.metrics.TermMutation("create", err)
		return domain.TermWithUsage{}, err
	}

	var term domain.Term
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		created, err := c.terms.Create(ctx, tx, label, description, actorID)
		if err != nil {
			return err
		}
		term = created
		return nil
	})
	c.metrics.TermMutation("create", err)
	if err != nil {
		return domain.TermWithUsage{}, err
	}

	logger.Info("IO term created",
		zap.String("term_id", term.ID),
		zap.String("label", term.Label),
		zap.String("actor", actorID),
	)
	return domain.TermWithUsage{Term: term}, nil
}

// UpdateTerm changes a term's label and/or description. A label change
// recomputes the summaries of every linked state in the same transaction.
func (c *Coordinator) UpdateTerm(ctx context.Context, id string, patch domain.TermPatch, actorID string) (domain.TermWithUsage, error) {
	id = strings.TrimSpace(id)
	if err := validateTermPatch(id, patch); err != nil {
		c.metrics.TermMutation("update", err)
		return domain.TermWithUsage{}, err
	}

	var (
		out       domain.TermWithUsage
		relabeled bool
		cascaded  int
	)
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		term, changed, err := c.terms.Update(ctx, tx, id, patch, actorID)
		if err != nil {
			return err
		}
		relabeled = changed

		if relabeled {
			stateIDs, err := tx.LinkedStateIDs(ctx, id)
			if err != nil {
				return fmt.Errorf("list states linked to term %s: %w", id, err)
			}
			if cascaded, err = c.recalculateTx(ctx, tx, stateIDs); err != nil {
				return err
			}
		}

		counts, err := tx.CountLinks(ctx, []string{id})
		if err != nil {
			return fmt.Errorf("count links of term %s: %w", id, err)
		}
		out = domain.TermWithUsage{Term: term, UsageCount: counts[id]}
		return nil
	})
	c.metrics.TermMutation("update", err)
	if err != nil {
		return domain.TermWithUsage{}, err
	}

	if relabeled {
		c.metrics.RelabelCascade(cascaded)
		c.metrics.Recalculated(cascaded)
		logger.Info("IO term relabeled",
			zap.String("term_id", id),
			zap.String("label", out.Label),
			zap.Int("states_recalculated", cascaded),
			zap.String("actor", actorID),
		)
	}
	return out, nil
}

// GetTerm returns a term and its usage count.
func (c *Coordinator) GetTerm(ctx context.Context, id string) (domain.TermWithUsage, error) {
	id = strings.TrimSpace(id)
	var out domain.TermWithUsage
	err := c.view(ctx, func(ctx context.Context, r Reader) error {
		term, err := r.GetTerm(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrIOTermNotFoundf(id)
			}
			return fmt.Errorf("get term %s: %w", id, err)
		}
		counts, err := r.CountLinks(ctx, []string{id})
		if err != nil {
			return fmt.Errorf("count links of term %s: %w", id, err)
		}
		out = domain.TermWithUsage{Term: term, UsageCount: counts[id]}
		return nil
	})
	return out, err
}

// ListTerms lists terms by label ascending, each with its usage count.
func (c *Coordinator) ListTerms(ctx context.Context, q domain.TermQuery) ([]domain.TermWithUsage, error) {
	q = q.Normalize()
	var out []domain.TermWithUsage
	err := c.view(ctx, func(ctx context.Context, r Reader) error {
		terms, err := r.ListTerms(ctx, q)
		if err != nil {
			return fmt.Errorf("list terms: %w", err)
		}
		ids := make([]string, len(terms))
		for i, t := range terms {
			ids[i] = t.ID
		}
		counts, err := r.CountLinks(ctx, ids)
		if err != nil {
			return fmt.Errorf("count links: %w", err)
		}
		out = make([]domain.TermWithUsage, len(terms))
		for i, t := range terms {
			out[i] = domain.TermWithUsage{Term: t, UsageCount: counts[t.ID]}
		}
		return nil
	})
	return out, err
}

// GetUsageCount returns the number of links referencing a term.
func (c *Coordinator) GetUsageCount(ctx context.Context, termID string) (int, error) {
	termID = strings.TrimSpace(termID)
	var n int
	err := c.view(ctx, func(ctx context.Context, r Reader) error {
		counts, err := r.CountLinks(ctx, []string{termID})
		if err != nil {
			return fmt.Errorf("count links of term %s: %w", termID, err)
		}
		n = counts[termID]
		return nil
	})
	return n, err
}

// SyncStateTerms replaces the ordered term lists of a state and recomputes
// its summaries. Only supplied directions change. Every referenced id must
// exist; otherwise nothing is written and the missing ids are reported.
func (c *Coordinator) SyncStateTerms(ctx context.Context, stateID string, lists domain.TermLists) error {
	stateID = strings.TrimSpace(stateID)
	if stateID == "" {
		err := apperrors.ErrValidation(apperrors.FieldError{Field: "state_id", Code: fieldRequired})
		c.metrics.LinkSync(err)
		return err
	}

	lists = lists.Sanitized()
	if !lists.Supplied() {
		return nil
	}

	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		missing, err := c.links.Resolve(ctx, tx, lists)
		if err != nil {
			return err
		}
		state, err := c.lockState(ctx, tx, stateID)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apperrors.ErrMissingTermsf(missing)
		}
		if err := c.links.Apply(ctx, tx, &state, lists); err != nil {
			return err
		}
		_, err = c.recalc.Apply(ctx, tx, []domain.State{state})
		return err
	})
	c.metrics.LinkSync(err)
	if err != nil {
		return err
	}
	c.metrics.Recalculated(1)

	logger.Debug("state IO terms synchronized",
		zap.String("state_id", stateID),
		zap.Int("input_terms", len(lists.Input)),
		zap.Int("output_terms", len(lists.Output)),
	)
	return nil
}

// Recalculate recomputes the summaries of the given states from their
// current links. Unknown ids are ignored.
func (c *Coordinator) Recalculate(ctx context.Context, stateIDs []string) error {
	_, err := c.recalculate(ctx, stateIDs)
	return err
}

func (c *Coordinator) recalculate(ctx context.Context, stateIDs []string) (int, error) {
	ids := domain.SanitizeIDs(stateIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	var n int
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		n, err = c.recalculateTx(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	c.metrics.Recalculated(n)
	return n, nil
}

// recalculateTx locks states then their links, in that order, and rewrites
// their summaries.
func (c *Coordinator) recalculateTx(ctx context.Context, tx Tx, stateIDs []string) (int, error) {
	if len(stateIDs) == 0 {
		return 0, nil
	}
	states, err := tx.LockStates(ctx, stateIDs)
	if err != nil {
		return 0, fmt.Errorf("lock states: %w", err)
	}
	if len(states) == 0 {
		return 0, nil
	}
	locked := make([]string, len(states))
	for i, s := range states {
		locked[i] = s.ID
	}
	if _, err := tx.LockLinks(ctx, locked); err != nil {
		return 0, fmt.Errorf("lock links: %w", err)
	}
	written, err := c.recalc.Apply(ctx, tx, states)
	if err != nil {
		return 0, err
	}
	return len(written), nil
}

// ListStateIDs pages through state ids in ascending order.
func (c *Coordinator) ListStateIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultReconcileBatchSize
	}
	var ids []string
	err := c.view(ctx, func(ctx context.Context, r Reader) error {
		var err error
		ids, err = r.ListStateIDs(ctx, afterID, limit)
		if err != nil {
			return fmt.Errorf("list state ids: %w", err)
		}
		return nil
	})
	return ids, err
}

// ReconcileAll recomputes every state summary, one transaction per batch,
// and returns the number of states written.
func (c *Coordinator) ReconcileAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultReconcileBatchSize
	}

	var (
		total int
		after string
	)
	for {
		ids, err := c.ListStateIDs(ctx, after, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		n, err := c.recalculate(ctx, ids)
		if err != nil {
			return total, err
		}
		total += n
		after = ids[len(ids)-1]
		if len(ids) < batchSize {
			return total, nil
		}
	}
}

// CreateState creates a state. Supplied term lists are linked and take
// precedence over free-text summaries for the same direction.
func (c *Coordinator) CreateState(ctx context.Context, in domain.StateInput, actorID string) (domain.StateDetail, error) {
	if err := validateStateInput(in); err != nil {
		return domain.StateDetail{}, err
	}

	lists := in.Terms.Sanitized()
	now := c.now()
	state := domain.State{
		ID:           c.newID(),
		ProjectID:    strings.TrimSpace(in.ProjectID),
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		InputSource:  domain.SourceText,
		OutputSource: domain.SourceText,
		CreatedBy:    actorID,
		UpdatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, usage := range domain.UsageTypes {
		text := freeText(usage, in.InputSummary, in.OutputSummary)
		if _, ok := lists.For(usage); !ok && text != nil {
			state.SetSummary(usage, strings.TrimSpace(*text), domain.SourceText)
		}
	}

	var detail domain.StateDetail
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		missing, err := c.links.Resolve(ctx, tx, lists)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apperrors.ErrMissingTermsf(missing)
		}
		if err := tx.InsertState(ctx, state); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.ErrStateNameExistsf(state.Name)
			}
			return fmt.Errorf("insert state: %w", err)
		}
		if err := c.links.Apply(ctx, tx, &state, lists); err != nil {
			return err
		}
		written, err := c.recalc.Apply(ctx, tx, []domain.State{state})
		if err != nil {
			return err
		}
		detail, err = loadDetail(ctx, tx, written[0])
		return err
	})
	if err != nil {
		return domain.StateDetail{}, err
	}

	logger.Info("state created",
		zap.String("state_id", state.ID),
		zap.String("project_id", state.ProjectID),
		zap.String("actor", actorID),
	)
	return detail, nil
}

// UpdateState changes a state's name, description, free-text summaries or
// term lists. A free-text summary is ignored for a direction whose term
// list is also supplied.
func (c *Coordinator) UpdateState(ctx context.Context, id string, patch domain.StatePatch, actorID string) (domain.StateDetail, error) {
	id = strings.TrimSpace(id)
	if err := validateStatePatch(id, patch); err != nil {
		return domain.StateDetail{}, err
	}
	lists := patch.Terms.Sanitized()

	var detail domain.StateDetail
	err := c.inTx(ctx, func(ctx context.Context, tx Tx) error {
		missing, err := c.links.Resolve(ctx, tx, lists)
		if err != nil {
			return err
		}
		state, err := c.lockState(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return apperrors.ErrMissingTermsf(missing)
		}

		if patch.Name != nil {
			state.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			state.Description = strings.TrimSpace(*patch.Description)
		}
		state.UpdatedBy = actorID
		state.UpdatedAt = c.now()

		for _, usage := range domain.UsageTypes {
			text := freeText(usage, patch.InputSummary, patch.OutputSummary)
			if _, ok := lists.For(usage); ok || text == nil {
				continue
			}
			if err := c.links.Detach(ctx, tx, &state, usage, *text); err != nil {
				return err
			}
		}
		if err := c.links.Apply(ctx, tx, &state, lists); err != nil {
			return err
		}
		written, err := c.recalc.Apply(ctx, tx, []domain.State{state})
		if err != nil {
			return err
		}
		detail, err = loadDetail(ctx, tx, written[0])
		return err
	})
	if err != nil {
		return domain.StateDetail{}, err
	}

	logger.Info("state updated",
		zap.String("state_id", id),
		zap.String("actor", actorID),
	)
	return detail, nil
}

// GetState returns a state with its linked terms in link order.
func (c *Coordinator) GetState(ctx context.Context, id string) (domain.StateDetail, error) {
	id = strings.TrimSpace(id)
	var detail domain.StateDetail
	err := c.view(ctx, func(ctx context.Context, r Reader) error {
		state, err := r.GetState(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrStateNotFoundf(id)
			}
			return fmt.Errorf("get state %s: %w", id, err)
		}
		detail, err = loadDetail(ctx, r, state)
		return err
	})
	return detail, err
}

func (c *Coordinator) lockState(ctx context.Context, tx Tx, id string) (domain.State, error) {
	states, err := tx.LockStates(ctx, []string{id})
	if err != nil {
		return domain.State{}, fmt.Errorf("lock state %s: %w", id, err)
	}
	if len(states) == 0 {
		return domain.State{}, apperrors.ErrStateNotFoundf(id)
	}
	return states[0], nil
}

func loadDetail(ctx context.Context, r Reader, state domain.State) (domain.StateDetail, error) {
	linked, err := r.LinkedTerms(ctx, []string{state.ID})
	if err != nil {
		return domain.StateDetail{}, fmt.Errorf("load terms of state %s: %w", state.ID, err)
	}
	grouped := groupLinked(linked)
	return domain.StateDetail{
		State:       state,
		InputTerms:  termsInOrder(grouped, state.ID, domain.UsageInput),
		OutputTerms: termsInOrder(grouped, state.ID, domain.UsageOutput),
	}, nil
}

func freeText(usage domain.UsageType, input, output *string) *string {
	if usage == domain.UsageOutput {
		return output
	}
	return input
}

func (c *Coordinator) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return classify(c.store.InTx(ctx, fn))
}

func (c *Coordinator) view(ctx context.Context, fn func(ctx context.Context, r Reader) error) error {
	return classify(c.store.View(ctx, fn))
}

// classify passes AppErrors through and reports anything else as a
// storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	logger.Warn("storage operation failed", zap.Error(err))
	return apperrors.ErrStorage(err)
}
