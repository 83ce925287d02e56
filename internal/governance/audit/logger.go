// Package audit records who changed the IO vocabulary and state summaries.
//
// Audit records are append-only and written to a dedicated structured log
// stream ("audit"); shipping that stream to durable storage is a deployment
// concern.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/api/middleware"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

// Resource types.
const (
	ResourceIOTerm = "io_term"
	ResourceState  = "state"
)

// Logger writes audit records.
type Logger struct {
	log *zap.Logger
}

// NewLogger creates a new audit Logger on top of l. A nil l uses the
// process logger at the time each record is written.
func NewLogger(l *zap.Logger) *Logger {
	return &Logger{log: l}
}

func (l *Logger) base() *zap.Logger {
	if l == nil || l.log == nil {
		return logger.L()
	}
	return l.log
}

// LogAction records an auditable action.
func (l *Logger) LogAction(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]interface{}) {
	fields := []zap.Field{
		zap.String("audit_id", generateAuditID()),
		zap.String("action", action),
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
		zap.String("actor", actor),
	}
	if rid := middleware.GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if len(details) > 0 {
		fields = append(fields, zap.Any("details", details))
	}
	l.base().Named("audit").Info("audit record", fields...)
}

// LogTermOperation records a term create or update.
func (l *Logger) LogTermOperation(ctx context.Context, operation, termID, actor string, details map[string]interface{}) {
	l.LogAction(ctx, ResourceIOTerm+"."+operation, ResourceIOTerm, termID, actor, details)
}

// LogStateOperation records a state write or summary recalculation.
func (l *Logger) LogStateOperation(ctx context.Context, operation, stateID, actor string, details map[string]interface{}) {
	l.LogAction(ctx, ResourceState+"."+operation, ResourceState, stateID, actor, details)
}

func generateAuditID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return fmt.Sprintf("audit-%s", id.String())
}
