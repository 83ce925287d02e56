package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/worker"
	"stateflow.dev/stateflow/internal/stateio"
)

const (
	// DefaultReconcileInterval is how often the periodic reconcile job runs
	// when no interval is configured.
	DefaultReconcileInterval = time.Hour

	// defaultReconcileWindow is how many batches run concurrently.
	defaultReconcileWindow = 4
)

// SummaryReconcileArgs recomputes every state's summaries from its links.
type SummaryReconcileArgs struct {
	BatchSize int `json:"batch_size"`
}

// Kind returns the job kind identifier for summary reconciliation.
func (SummaryReconcileArgs) Kind() string { return "state_summary_reconcile" }

// InsertOpts ensures at most one reconcile job is enqueued per minute.
func (SummaryReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
		},
	}
}

// Reconciler is the part of the engine the reconcile job drives.
type Reconciler interface {
	ListStateIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	Recalculate(ctx context.Context, stateIDs []string) error
}

// BatchRunner runs tasks to completion. *worker.Pool satisfies it.
type BatchRunner interface {
	RunAll(ctx context.Context, tasks ...worker.ErrTask) error
}

// SummaryReconcileWorker pages through state ids and recalculates each page
// in its own transaction. Pages run concurrently on the runner in windows.
type SummaryReconcileWorker struct {
	river.WorkerDefaults[SummaryReconcileArgs]
	engine    Reconciler
	runner    BatchRunner
	batchSize int
	window    int
}

// NewSummaryReconcileWorker creates a reconcile worker. A nil runner runs
// batches sequentially. Non-positive batchSize falls back to
// stateio.DefaultReconcileBatchSize.
func NewSummaryReconcileWorker(engine Reconciler, runner BatchRunner, batchSize int) *SummaryReconcileWorker {
	if batchSize <= 0 {
		batchSize = stateio.DefaultReconcileBatchSize
	}
	return &SummaryReconcileWorker{
		engine:    engine,
		runner:    runner,
		batchSize: batchSize,
		window:    defaultReconcileWindow,
	}
}

// Timeout bounds a single reconcile run.
func (w *SummaryReconcileWorker) Timeout(*river.Job[SummaryReconcileArgs]) time.Duration {
	return 30 * time.Minute
}

// Work recalculates every state.
func (w *SummaryReconcileWorker) Work(ctx context.Context, job *river.Job[SummaryReconcileArgs]) error {
	if w == nil || w.engine == nil {
		return fmt.Errorf("summary reconcile worker is not initialized")
	}

	batchSize := w.batchSize
	if job != nil && job.Args.BatchSize > 0 {
		batchSize = job.Args.BatchSize
	}

	started := time.Now()
	states, err := w.Run(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("reconcile state summaries after %d states: %w", states, err)
	}

	logger.Info("state summary reconcile completed",
		zap.Int("states", states),
		zap.Int("batch_size", batchSize),
		zap.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Run pages through all states and recalculates them. It returns the number
// of states whose batches were recalculated successfully.
func (w *SummaryReconcileWorker) Run(ctx context.Context, batchSize int) (int, error) {
	var (
		total   int
		after   string
		pending [][]string
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		batches := pending
		pending = nil
		if err := w.runBatches(ctx, batches); err != nil {
			return err
		}
		for _, b := range batches {
			total += len(b)
		}
		return nil
	}

	for {
		ids, err := w.engine.ListStateIDs(ctx, after, batchSize)
		if err != nil {
			return total, err
		}
		if len(ids) > 0 {
			pending = append(pending, ids)
			after = ids[len(ids)-1]
		}
		if len(ids) < batchSize {
			return total, flush()
		}
		if len(pending) >= w.window {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
}

func (w *SummaryReconcileWorker) runBatches(ctx context.Context, batches [][]string) error {
	if w.runner == nil {
		for _, ids := range batches {
			if err := w.engine.Recalculate(ctx, ids); err != nil {
				return err
			}
		}
		return nil
	}

	tasks := make([]worker.ErrTask, 0, len(batches))
	for _, ids := range batches {
		ids := ids
		tasks = append(tasks, func(ctx context.Context) error {
			return w.engine.Recalculate(ctx, ids)
		})
	}
	return w.runner.RunAll(ctx, tasks...)
}

// PeriodicJobs returns the periodic jobs registered with the River client.
// A non-positive interval falls back to DefaultReconcileInterval.
func PeriodicJobs(interval time.Duration, batchSize int) []*river.PeriodicJob {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return SummaryReconcileArgs{BatchSize: batchSize}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
