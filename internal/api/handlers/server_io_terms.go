package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stateflow.dev/stateflow/internal/domain"
)

// ListIOTerms handles GET /io-terms.
func (s *Server) ListIOTerms(c *gin.Context) {
	params, err := bindListIOTermsParams(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	terms, err := s.engine.ListTerms(c.Request.Context(), params.toQuery())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, termsToAPI(terms))
}

// CreateIOTerm handles POST /io-terms.
func (s *Server) CreateIOTerm(c *gin.Context) {
	var req IOTermCreateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	actor := actorFromCtx(ctx)
	var term domain.TermWithUsage
	err := s.mutate(ctx, func(ctx context.Context) error {
		var err error
		term, err = s.engine.CreateTerm(ctx, req.Label, req.Description, actor)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.audit.LogTermOperation(ctx, "create", term.ID, actor, map[string]interface{}{"label": term.Label})
	c.JSON(http.StatusCreated, term)
}

// GetIOTerm handles GET /io-terms/{id}.
func (s *Server) GetIOTerm(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	term, err := s.engine.GetTerm(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// UpdateIOTerm handles PUT /io-terms/{id}. A label change recalculates
// every linked state before the response is written.
func (s *Server) UpdateIOTerm(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req IOTermUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	actor := actorFromCtx(ctx)
	patch := domain.TermPatch{Label: req.Label, Description: req.Description}
	var term domain.TermWithUsage
	err = s.mutate(ctx, func(ctx context.Context) error {
		var err error
		term, err = s.engine.UpdateTerm(ctx, id, patch, actor)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.audit.LogTermOperation(ctx, "update", term.ID, actor, map[string]interface{}{
		"label":       term.Label,
		"usage_count": term.UsageCount,
	})
	c.JSON(http.StatusOK, term)
}

// GetIOTermUsage handles GET /io-terms/{id}/usage.
func (s *Server) GetIOTermUsage(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	// Usage of an unknown id is reported as not found, not as zero.
	if _, err := s.engine.GetTerm(ctx, id); err != nil {
		_ = c.Error(err)
		return
	}
	count, err := s.engine.GetUsageCount(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, IOTermUsage{ID: id, UsageCount: count})
}
