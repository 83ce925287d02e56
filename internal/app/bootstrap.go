// Package app is the composition root; bootstrap stays orchestration-only.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/riverqueue/river"

	"stateflow.dev/stateflow/internal/app/modules"
	"stateflow.dev/stateflow/internal/config"
	"stateflow.dev/stateflow/internal/infrastructure"
	"stateflow.dev/stateflow/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *infrastructure.DatabaseClients
	Pools    *worker.Pools
	Modules  []modules.Module
	Registry *prometheus.Registry
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	infra, err := modules.NewInfrastructure(ctx, cfg, reg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	stateIO := modules.NewStateIOModule(infra)
	allModules := []modules.Module{stateIO}

	workers := river.NewWorkers()
	var periodic []*river.PeriodicJob
	for _, mod := range allModules {
		mod.RegisterWorkers(workers)
		periodic = append(periodic, mod.PeriodicJobs()...)
	}
	if err := infra.InitRiver(workers, periodic); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}

	return &Application{
		Config:   cfg,
		Router:   newRouter(cfg, stateIO.ServerDeps(), infra.Metrics, reg),
		DB:       infra.DB,
		Pools:    infra.Pools,
		Modules:  allModules,
		Registry: reg,
	}, nil
}
