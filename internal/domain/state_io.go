// Package domain provides the domain models shared by the IO-term engine,
// its storage adapters and the HTTP surface.
package domain

import (
	"strings"
	"time"
)

// Limits enforced on caller input before any storage access.
const (
	MaxLabelLength       = 255
	MaxDescriptionLength = 2000
	MaxStateNameLength   = 255

	DefaultTermListLimit = 20
	MaxTermListLimit     = 50
)

// SummaryDelimiter joins linked term labels into a state summary.
const SummaryDelimiter = ", "

// UsageType is the direction a term is linked to a state in.
type UsageType string

const (
	UsageInput  UsageType = "input"
	UsageOutput UsageType = "output"
)

// UsageTypes lists every direction in a stable order.
var UsageTypes = []UsageType{UsageInput, UsageOutput}

// Valid reports whether u is a known direction.
func (u UsageType) Valid() bool {
	return u == UsageInput || u == UsageOutput
}

// SummarySource records how a state's summary for one direction is produced.
type SummarySource string

const (
	// SourceText marks hand-typed free text. The direction has no links.
	SourceText SummarySource = "text"
	// SourceTerms marks a summary computed from linked term labels.
	SourceTerms SummarySource = "terms"
)

// Valid reports whether s is a known source.
func (s SummarySource) Valid() bool {
	return s == SourceText || s == SourceTerms
}

// Term is a canonical IO vocabulary entry.
type Term struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	UpdatedBy   string    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TermWithUsage is a Term plus the number of links referencing it.
type TermWithUsage struct {
	Term
	UsageCount int `json:"usage_count"`
}

// TermPatch carries optional term changes; nil fields are left untouched.
type TermPatch struct {
	Label       *string
	Description *string
}

// TermQuery filters a term listing.
type TermQuery struct {
	// Search is a case-insensitive substring matched against the label.
	Search string
	Limit  int
}

// Normalize applies the default and maximum list limit.
func (q TermQuery) Normalize() TermQuery {
	q.Search = strings.TrimSpace(q.Search)
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultTermListLimit
	case q.Limit > MaxTermListLimit:
		q.Limit = MaxTermListLimit
	}
	return q
}

// Link associates a term with a state in one direction at a position.
type Link struct {
	ID        string    `json:"id"`
	StateID   string    `json:"state_id"`
	TermID    string    `json:"io_term_id"`
	UsageType UsageType `json:"usage_type"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkedTerm is a link joined with the term it references.
type LinkedTerm struct {
	StateID   string
	UsageType UsageType
	Order     int
	Term      Term
}

// State is the part of a workflow state owned by the IO-term engine.
type State struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"project_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	InputSummary  string        `json:"input_summary"`
	OutputSummary string        `json:"output_summary"`
	InputSource   SummarySource `json:"input_source"`
	OutputSource  SummarySource `json:"output_source"`
	CreatedBy     string        `json:"created_by"`
	UpdatedBy     string        `json:"updated_by"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Source returns the summary source for a direction.
func (s *State) Source(u UsageType) SummarySource {
	if u == UsageOutput {
		return s.OutputSource
	}
	return s.InputSource
}

// Summary returns the summary text for a direction.
func (s *State) Summary(u UsageType) string {
	if u == UsageOutput {
		return s.OutputSummary
	}
	return s.InputSummary
}

// SetSummary replaces the summary text and source for a direction.
func (s *State) SetSummary(u UsageType, text string, source SummarySource) {
	if u == UsageOutput {
		s.OutputSummary, s.OutputSource = text, source
		return
	}
	s.InputSummary, s.InputSource = text, source
}

// StateDetail is a state together with its linked terms in link order.
type StateDetail struct {
	State
	InputTerms  []Term `json:"input_terms"`
	OutputTerms []Term `json:"output_terms"`
}

// TermLists carries the per-direction term id lists of a sync request.
// A nil slice means the direction was not supplied and stays untouched;
// an empty non-nil slice clears the direction.
type TermLists struct {
	Input  []string
	Output []string
}

// For returns the list for a direction and whether it was supplied.
func (l TermLists) For(u UsageType) ([]string, bool) {
	if u == UsageOutput {
		return l.Output, l.Output != nil
	}
	return l.Input, l.Input != nil
}

// Supplied reports whether at least one direction was supplied.
func (l TermLists) Supplied() bool {
	return l.Input != nil || l.Output != nil
}

// Sanitized returns a copy with every supplied list sanitized.
func (l TermLists) Sanitized() TermLists {
	var out TermLists
	if l.Input != nil {
		out.Input = SanitizeIDs(l.Input)
	}
	if l.Output != nil {
		out.Output = SanitizeIDs(l.Output)
	}
	return out
}

// AllIDs returns the distinct ids of both directions, input first, in
// first-seen order.
func (l TermLists) AllIDs() []string {
	return SanitizeIDs(append(append([]string(nil), l.Input...), l.Output...))
}

// StateInput describes a new state.
type StateInput struct {
	ProjectID     string
	Name          string
	Description   string
	InputSummary  *string
	OutputSummary *string
	Terms         TermLists
}

// StatePatch carries optional state changes; nil fields are left untouched.
type StatePatch struct {
	Name          *string
	Description   *string
	InputSummary  *string
	OutputSummary *string
	Terms         TermLists
}

// SanitizeIDs drops blank ids and removes duplicates, keeping the first
// occurrence of each id. The result is never nil.
func SanitizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// LabelKey is the case-insensitive comparison key of a label.
func LabelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// SameLabel reports whether two labels collide case-insensitively.
func SameLabel(a, b string) bool {
	return LabelKey(a) == LabelKey(b)
}
