package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riverqueue/river"

	"stateflow.dev/stateflow/internal/domain"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/worker"
	"stateflow.dev/stateflow/internal/repository/memstore"
	"stateflow.dev/stateflow/internal/stateio"
)

func init() {
	_ = logger.Init("error", "json")
}

type fakeReconciler struct {
	mu      sync.Mutex
	ids     []string
	batches [][]string
	failOn  string
}

func newFakeReconciler(n int) *fakeReconciler {
	f := &fakeReconciler{}
	for i := 0; i < n; i++ {
		f.ids = append(f.ids, fmt.Sprintf("s-%03d", i))
	}
	return f
}

func (f *fakeReconciler) ListStateIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	var out []string
	for _, id := range f.ids {
		if id > afterID {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReconciler) Recalculate(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if id == f.failOn {
			return errors.New("boom")
		}
	}
	f.batches = append(f.batches, append([]string(nil), ids...))
	return nil
}

func (f *fakeReconciler) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, b := range f.batches {
		all = append(all, b...)
	}
	sort.Strings(all)
	return all
}

func TestSummaryReconcileArgsKind(t *testing.T) {
	t.Parallel()

	if got := (SummaryReconcileArgs{}).Kind(); got != "state_summary_reconcile" {
		t.Fatalf("Kind() = %q, want %q", got, "state_summary_reconcile")
	}
}

func TestSummaryReconcileArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (SummaryReconcileArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.UniqueOpts.ByPeriod != time.Minute {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, time.Minute)
	}
	if !opts.UniqueOpts.ByQueue {
		t.Fatal("UniqueOpts.ByQueue = false, want true")
	}
}

func TestNewSummaryReconcileWorkerBatchSize(t *testing.T) {
	t.Parallel()

	if w := NewSummaryReconcileWorker(nil, nil, 0); w.batchSize != stateio.DefaultReconcileBatchSize {
		t.Fatalf("batchSize = %d, want %d", w.batchSize, stateio.DefaultReconcileBatchSize)
	}
	if w := NewSummaryReconcileWorker(nil, nil, 7); w.batchSize != 7 {
		t.Fatalf("batchSize = %d, want 7", w.batchSize)
	}
}

func TestSummaryReconcileWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	var w *SummaryReconcileWorker
	err := w.Work(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
	}
}

func TestSummaryReconcileWorkerRun(t *testing.T) {
	t.Parallel()

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, ReconcilePoolSize: 2})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	tests := []struct {
		name      string
		states    int
		batchSize int
		runner    BatchRunner
	}{
		{"sequential partial page", 7, 3, nil},
		{"sequential exact pages", 6, 3, nil},
		{"pooled many windows", 25, 2, pools.Reconcile},
		{"pooled empty", 0, 5, pools.Reconcile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeReconciler(tt.states)
			w := NewSummaryReconcileWorker(f, tt.runner, tt.batchSize)

			n, err := w.Run(context.Background(), tt.batchSize)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if n != tt.states {
				t.Fatalf("Run() = %d, want %d", n, tt.states)
			}
			seen := f.seen()
			if len(seen) != tt.states {
				t.Fatalf("recalculated %d states, want %d", len(seen), tt.states)
			}
			for i, id := range seen {
				if id != f.ids[i] {
					t.Fatalf("recalculated[%d] = %s, want %s", i, id, f.ids[i])
				}
			}
			for _, b := range f.batches {
				if len(b) > tt.batchSize {
					t.Fatalf("batch of %d exceeds batch size %d", len(b), tt.batchSize)
				}
			}
		})
	}
}

func TestSummaryReconcileWorkerWork_UsesJobBatchSize(t *testing.T) {
	t.Parallel()

	f := newFakeReconciler(5)
	w := NewSummaryReconcileWorker(f, nil, 100)
	job := &river.Job[SummaryReconcileArgs]{Args: SummaryReconcileArgs{BatchSize: 2}}

	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work() error = %v", err)
	}
	if len(f.batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(f.batches))
	}
}

func TestSummaryReconcileWorkerWork_PropagatesFailure(t *testing.T) {
	t.Parallel()

	f := newFakeReconciler(6)
	f.failOn = "s-004"
	w := NewSummaryReconcileWorker(f, nil, 2)

	err := w.Work(context.Background(), &river.Job[SummaryReconcileArgs]{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Work() error = %v, want contains %q", err, "boom")
	}
}

func TestSummaryReconcileWorkerRepairsSummaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memstore.New()
	coord := stateio.New(store)

	term, err := coord.CreateTerm(ctx, "Order", "", "alice")
	if err != nil {
		t.Fatalf("CreateTerm() error = %v", err)
	}
	var ids []string
	for i := 0; i < 5; i++ {
		detail, err := coord.CreateState(ctx, domain.StateInput{
			ProjectID: "p1",
			Name:      fmt.Sprintf("S%d", i),
			Terms:     domain.TermLists{Output: []string{term.ID}},
		}, "alice")
		if err != nil {
			t.Fatalf("CreateState() error = %v", err)
		}
		ids = append(ids, detail.ID)
	}

	// Corrupt stored summaries behind the engine's back.
	err = store.InTx(ctx, func(ctx context.Context, tx stateio.Tx) error {
		states, err := tx.LockStates(ctx, ids)
		if err != nil {
			return err
		}
		for _, s := range states {
			s.OutputSummary = "stale"
			if err := tx.UpdateState(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("corrupt summaries: %v", err)
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{GeneralPoolSize: 1, ReconcilePoolSize: 2})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	w := NewSummaryReconcileWorker(coord, pools.Reconcile, 2)
	if err := w.Work(ctx, &river.Job[SummaryReconcileArgs]{}); err != nil {
		t.Fatalf("Work() error = %v", err)
	}

	for _, id := range ids {
		detail, err := coord.GetState(ctx, id)
		if err != nil {
			t.Fatalf("GetState(%s) error = %v", id, err)
		}
		if detail.OutputSummary != "Order" {
			t.Fatalf("OutputSummary(%s) = %q, want %q", id, detail.OutputSummary, "Order")
		}
	}
}

func TestPeriodicJobs(t *testing.T) {
	t.Parallel()

	jobs := PeriodicJobs(0, 10)
	if len(jobs) != 1 {
		t.Fatalf("PeriodicJobs() len = %d, want 1", len(jobs))
	}
}
