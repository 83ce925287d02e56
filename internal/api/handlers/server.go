// Package handlers implements the HTTP surface of the IO-term engine.
//
// Routes mirror the embedded OpenAPI document in internal/api/openapi.
// Path and query parameters are bound with the oapi-codegen runtime, so
// binding behaves like contract-first generated wrappers.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stateflow.dev/stateflow/internal/api/middleware"
	"stateflow.dev/stateflow/internal/domain"
	"stateflow.dev/stateflow/internal/governance/audit"
	"stateflow.dev/stateflow/internal/pkg/retry"
)

// Engine is the IO-term engine as seen by the HTTP surface.
type Engine interface {
	CreateTerm(ctx context.Context, label, description, actorID string) (domain.TermWithUsage, error)
	UpdateTerm(ctx context.Context, id string, patch domain.TermPatch, actorID string) (domain.TermWithUsage, error)
	GetTerm(ctx context.Context, id string) (domain.TermWithUsage, error)
	ListTerms(ctx context.Context, q domain.TermQuery) ([]domain.TermWithUsage, error)
	GetUsageCount(ctx context.Context, termID string) (int, error)

	CreateState(ctx context.Context, in domain.StateInput, actorID string) (domain.StateDetail, error)
	UpdateState(ctx context.Context, id string, patch domain.StatePatch, actorID string) (domain.StateDetail, error)
	GetState(ctx context.Context, id string) (domain.StateDetail, error)
	SyncStateTerms(ctx context.Context, stateID string, lists domain.TermLists) error
	Recalculate(ctx context.Context, stateIDs []string) error
}

// Server implements all API handlers.
type Server struct {
	engine    Engine
	retry     retry.Policy
	transient retry.Classifier
	ready     func(ctx context.Context) error
	audit     *audit.Logger
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Engine Engine
	// Retry bounds re-runs of mutations that failed transiently.
	Retry retry.Policy
	// Transient classifies storage errors worth retrying. Nil disables retries.
	Transient retry.Classifier
	// Ready reports storage reachability for the readiness probe. Nil means
	// always ready.
	Ready func(ctx context.Context) error
	// Audit receives one record per successful mutation. Nil writes to the
	// process logger.
	Audit *audit.Logger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		engine:    deps.Engine,
		retry:     deps.Retry,
		transient: deps.Transient,
		ready:     deps.Ready,
		audit:     deps.Audit,
	}
}

// RegisterRoutes registers every API route on r.
func (s *Server) RegisterRoutes(r gin.IRouter) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)

	r.GET("/io-terms", s.ListIOTerms)
	r.POST("/io-terms", s.CreateIOTerm)
	r.GET("/io-terms/:id", s.GetIOTerm)
	r.PUT("/io-terms/:id", s.UpdateIOTerm)
	r.GET("/io-terms/:id/usage", s.GetIOTermUsage)

	r.POST("/states", s.CreateState)
	r.POST("/states/recalculate", s.RecalculateStates)
	r.GET("/states/:id", s.GetState)
	r.PUT("/states/:id", s.UpdateState)
	r.PUT("/states/:id/io-terms", s.SyncStateIOTerms)
}

// actorFromCtx extracts the identified caller from the request context.
func actorFromCtx(ctx context.Context) string {
	if actor := middleware.GetActorID(ctx); actor != "" {
		return actor
	}
	return "anonymous"
}

// mutate runs op, re-running it while it fails transiently.
func (s *Server) mutate(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.retry, s.transient, op)
}
