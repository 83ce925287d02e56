package modules

import (
	"context"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/api/handlers"
	"stateflow.dev/stateflow/internal/governance/audit"
	"stateflow.dev/stateflow/internal/jobs"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/retry"
	"stateflow.dev/stateflow/internal/stateio"
)

// StateIOModule wires the IO-term engine, its HTTP handlers and the
// summary reconcile job.
type StateIOModule struct {
	infra     *Infrastructure
	engine    *stateio.Coordinator
	reconcile *jobs.SummaryReconcileWorker
}

// NewStateIOModule creates the IO-term module with explicit constructor wiring.
func NewStateIOModule(infra *Infrastructure) *StateIOModule {
	engine := stateio.New(infra.Store, stateio.WithMetrics(infra.Metrics))
	return &StateIOModule{
		infra:     infra,
		engine:    engine,
		reconcile: jobs.NewSummaryReconcileWorker(engine, infra.Pools.Reconcile, infra.Config.River.ReconcileBatchSize),
	}
}

// Engine returns the module's coordinator.
func (m *StateIOModule) Engine() *stateio.Coordinator { return m.engine }

// Reconcile recalculates every state's summaries in batches on the
// reconcile pool. It returns the number of states visited.
func (m *StateIOModule) Reconcile(ctx context.Context, batchSize int) (int, error) {
	return m.reconcile.Run(ctx, batchSize)
}

func (m *StateIOModule) Name() string { return "stateio" }

func (m *StateIOModule) ServerDeps() handlers.ServerDeps {
	cfg := m.infra.Config.Retry
	return handlers.ServerDeps{
		Engine: m.engine,
		Retry: retry.Policy{
			InitialInterval: cfg.InitialInterval,
			MaxElapsed:      cfg.MaxElapsed,
		},
		Transient: m.infra.Transient,
		Ready:     m.infra.Ready,
		Audit:     audit.NewLogger(logger.L()),
	}
}

func (m *StateIOModule) RegisterWorkers(workers *river.Workers) {
	if workers == nil || m == nil {
		return
	}
	river.AddWorker(workers, m.reconcile)
}

func (m *StateIOModule) PeriodicJobs() []*river.PeriodicJob {
	rc := m.infra.Config.River
	if rc.ReconcileInterval <= 0 {
		return nil
	}
	return jobs.PeriodicJobs(rc.ReconcileInterval, rc.ReconcileBatchSize)
}

// Start runs the periodic reconcile in-process when there is no River
// client to schedule it, as with the memory driver.
func (m *StateIOModule) Start(context.Context) error {
	interval := m.infra.Config.River.ReconcileInterval
	if m.infra.RiverClient != nil || interval <= 0 {
		return nil
	}
	batchSize := m.infra.Config.River.ReconcileBatchSize
	return m.infra.Pools.SubmitDetached("general", func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := m.reconcile.Run(ctx, batchSize)
				if err != nil {
					logger.Warn("in-process summary reconcile failed", zap.Int("states", n), zap.Error(err))
					continue
				}
				logger.Debug("in-process summary reconcile completed", zap.Int("states", n))
			}
		}
	})
}

func (m *StateIOModule) Shutdown(context.Context) error { return nil }
