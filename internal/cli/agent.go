package cli

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/internal/config"
	"github.com/backupqa/qa-agent/internal/handlers"
	"github.com/backupqa/qa-agent/internal/server"
	"github.com/backupqa/qa-agent/internal/services"
	"github.com/backupqa/qa-agent/internal/store"
	"github.com/backupqa/qa-agent/internal/testcases"
	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/testcase"
)

// Agent is the assembled qa-agent: run history, worker pool and services.
type Agent struct {
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Runs      *services.RunService
	Waits     *services.WaitService

	cfg     *config.Configuration
	cleanup func()
}

// NewAgent opens the store, connects the configured backends and fails runs
// a previous process left unfinished.
func NewAgent(ctx context.Context, cfg *config.Configuration) (*Agent, error) {
	db, err := store.NewDB(cfg.Agent.DBPath())
	if err != nil {
		return nil, err
	}
	st := store.NewStore(db)
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	env, cleanup, err := newEnv(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	sched := scheduler.NewScheduler(cfg.Agent.NumWorkers)
	waits := services.NewWaitService(st)
	runs := services.NewRunService(st, testcases.Register(testcase.NewRegistry()), sched, waits, env)

	if err := runs.RecoverInterrupted(ctx); err != nil {
		sched.Close()
		cleanup()
		st.Close()
		return nil, err
	}

	return &Agent{Store: st, Scheduler: sched, Runs: runs, Waits: waits, cfg: cfg, cleanup: cleanup}, nil
}

// NewServer returns the HTTP server exposing the agent API.
func (a *Agent) NewServer() (*server.Server, error) {
	return server.NewServer(a.cfg, func(router *gin.RouterGroup) {
		v1.RegisterHandlers(router, handlers.New(a.Runs, a.Waits))
	})
}

// Close stops the workers, waiting for running testcases, then closes the backends.
func (a *Agent) Close() {
	a.Scheduler.Close()
	a.cleanup()
	if err := a.Store.Close(); err != nil {
		zap.S().Named("cli").Warnw("failed to close store", "error", err)
	}
}
