package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// ---- Request bodies ----

// IOTermCreateRequest is the body of POST /io-terms.
type IOTermCreateRequest struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// IOTermUpdateRequest is the body of PUT /io-terms/{id}. Absent fields are
// left untouched.
type IOTermUpdateRequest struct {
	Label       *string `json:"label"`
	Description *string `json:"description"`
}

// TermListsRequest is the body of PUT /states/{id}/io-terms. An absent list
// leaves its direction untouched; an empty list clears it.
type TermListsRequest struct {
	InputTermIDs  []string `json:"input_term_ids"`
	OutputTermIDs []string `json:"output_term_ids"`
}

func (r TermListsRequest) toDomain() domain.TermLists {
	return domain.TermLists{Input: r.InputTermIDs, Output: r.OutputTermIDs}
}

// StateCreateRequest is the body of POST /states.
type StateCreateRequest struct {
	ProjectID     string  `json:"project_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	InputSummary  *string `json:"input_summary"`
	OutputSummary *string `json:"output_summary"`
	TermListsRequest
}

// StateUpdateRequest is the body of PUT /states/{id}.
type StateUpdateRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	InputSummary  *string `json:"input_summary"`
	OutputSummary *string `json:"output_summary"`
	TermListsRequest
}

// RecalculateRequest is the body of POST /states/recalculate.
type RecalculateRequest struct {
	StateIDs []string `json:"state_ids"`
}

// ---- Responses ----

// IOTermList is the body of GET /io-terms.
type IOTermList struct {
	Items []domain.TermWithUsage `json:"items"`
}

// IOTermUsage is the body of GET /io-terms/{id}/usage.
type IOTermUsage struct {
	ID         string `json:"id"`
	UsageCount int    `json:"usage_count"`
}

// LinkedTerm is a term as listed on a state, in link order.
type LinkedTerm struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// State is the API view of a state and its linked terms.
type State struct {
	ID            string               `json:"id"`
	ProjectID     string               `json:"project_id"`
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	InputSummary  string               `json:"input_summary"`
	OutputSummary string               `json:"output_summary"`
	InputSource   domain.SummarySource `json:"input_source"`
	OutputSource  domain.SummarySource `json:"output_source"`
	InputTerms    []LinkedTerm         `json:"input_terms"`
	OutputTerms   []LinkedTerm         `json:"output_terms"`
	CreatedBy     string               `json:"created_by"`
	UpdatedBy     string               `json:"updated_by"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

func stateToAPI(d domain.StateDetail) State {
	return State{
		ID:            d.ID,
		ProjectID:     d.ProjectID,
		Name:          d.Name,
		Description:   d.Description,
		InputSummary:  d.InputSummary,
		OutputSummary: d.OutputSummary,
		InputSource:   d.InputSource,
		OutputSource:  d.OutputSource,
		InputTerms:    linkedTermsToAPI(d.InputTerms),
		OutputTerms:   linkedTermsToAPI(d.OutputTerms),
		CreatedBy:     d.CreatedBy,
		UpdatedBy:     d.UpdatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func linkedTermsToAPI(terms []domain.Term) []LinkedTerm {
	out := make([]LinkedTerm, 0, len(terms))
	for _, t := range terms {
		out = append(out, LinkedTerm{ID: t.ID, Label: t.Label})
	}
	return out
}

func termsToAPI(terms []domain.TermWithUsage) IOTermList {
	if terms == nil {
		terms = []domain.TermWithUsage{}
	}
	return IOTermList{Items: terms}
}

// ---- Parameter binding ----

// ListIOTermsParams holds the query parameters of GET /io-terms.
type ListIOTermsParams struct {
	Search *string `form:"search,omitempty" json:"search,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

func (p ListIOTermsParams) toQuery() domain.TermQuery {
	var q domain.TermQuery
	if p.Search != nil {
		q.Search = *p.Search
	}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	return q
}

func bindListIOTermsParams(c *gin.Context) (ListIOTermsParams, error) {
	var params ListIOTermsParams
	query := c.Request.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "search", query, &params.Search); err != nil {
		return params, apperrors.ErrInvalidRequestFieldf("search")
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		return params, apperrors.ErrInvalidRequestFieldf("limit")
	}
	return params, nil
}

func bindID(c *gin.Context) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", apperrors.ErrInvalidRequestFieldf("id")
	}
	return id, nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return apperrors.ErrInvalidRequestFieldf("body")
	}
	return nil
}
