package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stateflow.dev/stateflow/internal/domain"
)

// CreateState handles POST /states.
func (s *Server) CreateState(c *gin.Context) {
	var req StateCreateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	actor := actorFromCtx(ctx)
	in := domain.StateInput{
		ProjectID:     req.ProjectID,
		Name:          req.Name,
		Description:   req.Description,
		InputSummary:  req.InputSummary,
		OutputSummary: req.OutputSummary,
		Terms:         req.toDomain(),
	}
	var detail domain.StateDetail
	err := s.mutate(ctx, func(ctx context.Context) error {
		var err error
		detail, err = s.engine.CreateState(ctx, in, actor)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.audit.LogStateOperation(ctx, "create", detail.ID, actor, nil)
	c.JSON(http.StatusCreated, stateToAPI(detail))
}

// GetState handles GET /states/{id}.
func (s *Server) GetState(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	detail, err := s.engine.GetState(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stateToAPI(detail))
}

// UpdateState handles PUT /states/{id}.
func (s *Server) UpdateState(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req StateUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	actor := actorFromCtx(ctx)
	patch := domain.StatePatch{
		Name:          req.Name,
		Description:   req.Description,
		InputSummary:  req.InputSummary,
		OutputSummary: req.OutputSummary,
		Terms:         req.toDomain(),
	}
	var detail domain.StateDetail
	err = s.mutate(ctx, func(ctx context.Context) error {
		var err error
		detail, err = s.engine.UpdateState(ctx, id, patch, actor)
		return err
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.audit.LogStateOperation(ctx, "update", detail.ID, actor, nil)
	c.JSON(http.StatusOK, stateToAPI(detail))
}

// SyncStateIOTerms handles PUT /states/{id}/io-terms.
func (s *Server) SyncStateIOTerms(c *gin.Context) {
	id, err := bindID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req TermListsRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	err = s.mutate(ctx, func(ctx context.Context) error {
		return s.engine.SyncStateTerms(ctx, id, req.toDomain())
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.audit.LogStateOperation(ctx, "sync_io_terms", id, actorFromCtx(ctx), map[string]interface{}{
		"input_term_ids":  req.InputTermIDs,
		"output_term_ids": req.OutputTermIDs,
	})

	detail, err := s.engine.GetState(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stateToAPI(detail))
}

// RecalculateStates handles POST /states/recalculate.
func (s *Server) RecalculateStates(c *gin.Context) {
	var req RecalculateRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	err := s.mutate(ctx, func(ctx context.Context) error {
		return s.engine.Recalculate(ctx, req.StateIDs)
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	actor := actorFromCtx(ctx)
	for _, id := range req.StateIDs {
		s.audit.LogStateOperation(ctx, "recalculate", id, actor, nil)
	}
	c.Status(http.StatusNoContent)
}
