// Package memstore provides an in-memory transactional implementation of
// stateio.Store. It enforces the same uniqueness and reference constraints
// as the PostgreSQL schema and is used by tests and the "memory" storage
// driver.
//
// Transactions are serialized: InTx holds the write lock for the whole unit
// of work, runs it against a private copy and publishes the copy only when
// the unit of work succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/stateio"
)

type memoryState struct {
	terms  map[string]domain.Term
	states map[string]domain.State
	links  map[string]domain.Link
}

func newMemoryState() memoryState {
	return memoryState{
		terms:  map[string]domain.Term{},
		states: map[string]domain.State{},
		links:  map[string]domain.Link{},
	}
}

func (m memoryState) clone() memoryState {
	out := memoryState{
		terms:  make(map[string]domain.Term, len(m.terms)),
		states: make(map[string]domain.State, len(m.states)),
		links:  make(map[string]domain.Link, len(m.links)),
	}
	for k, v := range m.terms {
		out.terms[k] = v
	}
	for k, v := range m.states {
		out.states[k] = v
	}
	for k, v := range m.links {
		out.links[k] = v
	}
	return out
}

// Store is an in-memory stateio.Store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	faults map[string]error
}

var _ stateio.Store = (*Store)(nil)

// New constructs an empty Store.
func New() *Store {
	return &Store{
		state:  newMemoryState(),
		faults: map[string]error{},
	}
}

// InjectFault makes every subsequent call of the named Tx method (for
// example "UpdateState") fail with err. A nil err clears the fault.
func (s *Store) InjectFault(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// InTx runs fn against a private copy of the data and commits it when fn
// returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx stateio.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	t := &transaction{view: view{state: &working}, faults: s.faults}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

// View runs fn against the committed data.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r stateio.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, view{state: &s.state})
}

// Links returns every committed link, ordered by state, usage and order.
func (s *Store) Links() []domain.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Link, 0, len(s.state.links))
	for _, l := range s.state.links {
		out = append(out, l)
	}
	sortLinks(out)
	return out
}

type view struct {
	state *memoryState
}

func (v view) GetTerm(_ context.Context, id string) (domain.Term, error) {
	t, ok := v.state.terms[id]
	if !ok {
		return domain.Term{}, apperrors.ErrNotFound
	}
	return t, nil
}

func (v view) ListTerms(_ context.Context, q domain.TermQuery) ([]domain.Term, error) {
	needle := strings.ToLower(q.Search)
	out := make([]domain.Term, 0, len(v.state.terms))
	for _, t := range v.state.terms {
		if needle != "" && !strings.Contains(strings.ToLower(t.Label), needle) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (v view) CountLinks(_ context.Context, termIDs []string) (map[string]int, error) {
	want := toSet(termIDs)
	counts := make(map[string]int, len(termIDs))
	for _, l := range v.state.links {
		if _, ok := want[l.TermID]; ok {
			counts[l.TermID]++
		}
	}
	return counts, nil
}

func (v view) LinkedStateIDs(_ context.Context, termID string) ([]string, error) {
	seen := map[string]struct{}{}
	for _, l := range v.state.links {
		if l.TermID == termID {
			seen[l.StateID] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (v view) GetState(_ context.Context, id string) (domain.State, error) {
	st, ok := v.state.states[id]
	if !ok {
		return domain.State{}, apperrors.ErrNotFound
	}
	return st, nil
}

func (v view) ListStateIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	ids := make([]string, 0, len(v.state.states))
	for id := range v.state.states {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (v view) LinkedTerms(_ context.Context, stateIDs []string) ([]domain.LinkedTerm, error) {
	want := toSet(stateIDs)
	links := make([]domain.Link, 0)
	for _, l := range v.state.links {
		if _, ok := want[l.StateID]; ok {
			links = append(links, l)
		}
	}
	sortLinks(links)

	out := make([]domain.LinkedTerm, 0, len(links))
	for _, l := range links {
		t, ok := v.state.terms[l.TermID]
		if !ok {
			return nil, fmt.Errorf("link %s references missing term %s", l.ID, l.TermID)
		}
		out = append(out, domain.LinkedTerm{
			StateID:   l.StateID,
			UsageType: l.UsageType,
			Order:     l.Order,
			Term:      t,
		})
	}
	return out, nil
}

type transaction struct {
	view
	faults map[string]error
}

func (t *transaction) fault(method string) error {
	return t.faults[method]
}

// LockLabel is a no-op: InTx already serializes every writer.
func (t *transaction) LockLabel(_ context.Context, _ string) error {
	return t.fault("LockLabel")
}

func (t *transaction) LockTerms(_ context.Context, ids []string, labels []string) ([]domain.Term, error) {
	if err := t.fault("LockTerms"); err != nil {
		return nil, err
	}
	wantIDs := toSet(ids)
	wantLabels := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		wantLabels[domain.LabelKey(l)] = struct{}{}
	}

	out := make([]domain.Term, 0)
	for id, term := range t.state.terms {
		_, byID := wantIDs[id]
		_, byLabel := wantLabels[domain.LabelKey(term.Label)]
		if byID || byLabel {
			out = append(out, term)
		}
	}
	sortTerms(out)
	return out, nil
}

func (t *transaction) ShareTerms(_ context.Context, ids []string) ([]domain.Term, error) {
	if err := t.fault("ShareTerms"); err != nil {
		return nil, err
	}
	out := make([]domain.Term, 0, len(ids))
	for id := range toSet(ids) {
		if term, ok := t.state.terms[id]; ok {
			out = append(out, term)
		}
	}
	sortTerms(out)
	return out, nil
}

func (t *transaction) InsertTerm(_ context.Context, term domain.Term) error {
	if err := t.fault("InsertTerm"); err != nil {
		return err
	}
	if _, ok := t.state.terms[term.ID]; ok {
		return fmt.Errorf("term %s: %w", term.ID, apperrors.ErrConflict)
	}
	if err := t.checkLabel(term); err != nil {
		return err
	}
	t.state.terms[term.ID] = term
	return nil
}

func (t *transaction) UpdateTerm(_ context.Context, term domain.Term) error {
	if err := t.fault("UpdateTerm"); err != nil {
		return err
	}
	if _, ok := t.state.terms[term.ID]; !ok {
		return fmt.Errorf("term %s: %w", term.ID, apperrors.ErrNotFound)
	}
	if err := t.checkLabel(term); err != nil {
		return err
	}
	t.state.terms[term.ID] = term
	return nil
}

func (t *transaction) checkLabel(term domain.Term) error {
	key := domain.LabelKey(term.Label)
	for id, other := range t.state.terms {
		if id != term.ID && domain.LabelKey(other.Label) == key {
			return fmt.Errorf("label %q: %w", term.Label, apperrors.ErrConflict)
		}
	}
	return nil
}

func (t *transaction) LockStates(_ context.Context, ids []string) ([]domain.State, error) {
	if err := t.fault("LockStates"); err != nil {
		return nil, err
	}
	out := make([]domain.State, 0, len(ids))
	for id := range toSet(ids) {
		if st, ok := t.state.states[id]; ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *transaction) InsertState(_ context.Context, st domain.State) error {
	if err := t.fault("InsertState"); err != nil {
		return err
	}
	if _, ok := t.state.states[st.ID]; ok {
		return fmt.Errorf("state %s: %w", st.ID, apperrors.ErrConflict)
	}
	if err := t.checkStateName(st); err != nil {
		return err
	}
	t.state.states[st.ID] = st
	return nil
}

func (t *transaction) UpdateState(_ context.Context, st domain.State) error {
	if err := t.fault("UpdateState"); err != nil {
		return err
	}
	if _, ok := t.state.states[st.ID]; !ok {
		return fmt.Errorf("state %s: %w", st.ID, apperrors.ErrNotFound)
	}
	if err := t.checkStateName(st); err != nil {
		return err
	}
	t.state.states[st.ID] = st
	return nil
}

func (t *transaction) checkStateName(st domain.State) error {
	for id, other := range t.state.states {
		if id != st.ID && other.ProjectID == st.ProjectID && other.Name == st.Name {
			return fmt.Errorf("state name %q: %w", st.Name, apperrors.ErrConflict)
		}
	}
	return nil
}

func (t *transaction) LockLinks(_ context.Context, stateIDs []string) ([]domain.Link, error) {
	if err := t.fault("LockLinks"); err != nil {
		return nil, err
	}
	want := toSet(stateIDs)
	out := make([]domain.Link, 0)
	for _, l := range t.state.links {
		if _, ok := want[l.StateID]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *transaction) ReplaceLinks(_ context.Context, stateID string, usage domain.UsageType, links []domain.Link) error {
	if err := t.fault("ReplaceLinks"); err != nil {
		return err
	}
	if _, ok := t.state.states[stateID]; !ok {
		return fmt.Errorf("state %s: %w", stateID, apperrors.ErrNotFound)
	}
	for id, l := range t.state.links {
		if l.StateID == stateID && l.UsageType == usage {
			delete(t.state.links, id)
		}
	}

	seenTerm := make(map[string]struct{}, len(links))
	seenOrder := make(map[int]struct{}, len(links))
	for _, l := range links {
		if l.StateID != stateID || l.UsageType != usage {
			return fmt.Errorf("link %s does not belong to state %s/%s", l.ID, stateID, usage)
		}
		if _, ok := t.state.terms[l.TermID]; !ok {
			return fmt.Errorf("link %s references missing term %s", l.ID, l.TermID)
		}
		if _, ok := t.state.links[l.ID]; ok {
			return fmt.Errorf("link %s: %w", l.ID, apperrors.ErrConflict)
		}
		if _, ok := seenTerm[l.TermID]; ok {
			return fmt.Errorf("term %s linked twice: %w", l.TermID, apperrors.ErrConflict)
		}
		if _, ok := seenOrder[l.Order]; ok {
			return fmt.Errorf("order %d used twice: %w", l.Order, apperrors.ErrConflict)
		}
		seenTerm[l.TermID] = struct{}{}
		seenOrder[l.Order] = struct{}{}
		t.state.links[l.ID] = l
	}
	return nil
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortTerms(terms []domain.Term) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
}

func sortLinks(links []domain.Link) {
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.StateID != b.StateID {
			return a.StateID < b.StateID
		}
		if a.UsageType != b.UsageType {
			return a.UsageType < b.UsageType
		}
		return a.Order < b.Order
	})
}
