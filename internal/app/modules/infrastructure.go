package modules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/infrastructure"
	"stateflow.dev/stateflow/internal/pkg/logger"
	"stateflow.dev/stateflow/internal/pkg/metrics"
	"stateflow.dev/stateflow/internal/pkg/retry"
	"stateflow.dev/stateflow/internal/pkg/worker"
	"stateflow.dev/stateflow/internal/repository/memstore"
	"stateflow.dev/stateflow/internal/repository/pgstore"
	"stateflow.dev/stateflow/internal/stateio"
)

// Infrastructure holds shared cross-cutting dependencies for all modules.
// It is a provider, not a Module.
type Infrastructure struct {
	Config  *config.Config
	DB      *infrastructure.DatabaseClients // nil with the memory driver
	Pools   *worker.Pools
	Metrics *metrics.Metrics

	// Store is the engine's storage adapter selected by storage.driver.
	Store stateio.Store
	// Transient classifies storage errors worth retrying; nil disables retries.
	Transient retry.Classifier

	Pool        *pgxpool.Pool
	RiverClient *river.Client[pgx.Tx]
}

// NewInfrastructure initializes storage, worker pools and metrics.
func NewInfrastructure(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Infrastructure, error) {
	infra := &Infrastructure{
		Config:  cfg,
		Metrics: metrics.New(reg),
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		infra.Store = memstore.New()
	default:
		db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
		}
		infra.DB = db
		infra.Pool = db.Pool
		infra.Store = pgstore.New(db.Pool)
		infra.Transient = pgstore.IsTransient
	}

	defaults := worker.DefaultPoolConfig()
	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:   defaults.GeneralPoolSize,
		ReconcilePoolSize: cfg.Worker.PoolSize,
	})
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init worker pools: %w", err)
	}
	infra.Pools = pools
	for _, p := range pools.All() {
		metrics.RegisterWorkerPool(reg, p.Name(), p.Running, p.Cap)
	}

	logger.Info("infrastructure initialized",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Int("reconcile_pool_size", cfg.Worker.PoolSize),
	)
	return infra, nil
}

// InitRiver initializes the River client on top of a prepared worker
// registry. It is a no-op with the memory driver.
func (i *Infrastructure) InitRiver(workers *river.Workers, periodic []*river.PeriodicJob) error {
	if i == nil || i.Config == nil {
		return fmt.Errorf("infrastructure is not initialized")
	}
	if i.DB == nil {
		return nil
	}
	if err := i.DB.InitRiverClient(workers, periodic, i.Config.River); err != nil {
		return fmt.Errorf("init river: %w", err)
	}
	i.RiverClient = i.DB.RiverClient
	return nil
}

// Ready reports whether storage is reachable.
func (i *Infrastructure) Ready(ctx context.Context) error {
	if i.Pool == nil {
		return nil
	}
	return i.Pool.Ping(ctx)
}

// Close releases pools and database connections.
func (i *Infrastructure) Close() {
	if i == nil {
		return
	}
	if i.Pools != nil {
		i.Pools.Shutdown()
	}
	if i.DB != nil {
		i.DB.Close()
	}
}
