package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridpilot-labs/gridpilot-go/internal/config"
	"github.com/gridpilot-labs/gridpilot-go/internal/cua"
	"github.com/gridpilot-labs/gridpilot-go/internal/extraction"
	"github.com/gridpilot-labs/gridpilot-go/internal/platform/httpserver"
	"github.com/gridpilot-labs/gridpilot-go/internal/runner"
	"github.com/gridpilot-labs/gridpilot-go/internal/tasks"
	"github.com/gridpilot-labs/gridpilot-go/internal/trajectory"
	"github.com/gridpilot-labs/gridpilot-go/internal/ws"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("invalid task catalog", "error", err)
		os.Exit(2)
	}

	var archive *trajectory.Archive
	if cfg.Archive.Enabled {
		archive, err = trajectory.NewArchive(cfg.Archive, logger)
		if err != nil {
			logger.Error("invalid archive config", "error", err)
			os.Exit(2)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			logger.Error("archive bucket unavailable", "error", err)
			os.Exit(1)
		}
	}

	engine := cua.NewClient(cua.ClientConfig{
		Endpoint: cfg.Engine.Endpoint,
		APIKey:   cfg.Engine.APIKey,
		Logger:   logger,
	})
	oracle := extraction.NewAnthropicOracle(extraction.AnthropicConfig{
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
		BaseURL: cfg.Oracle.BaseURL,
	})
	pipeline := extraction.NewPipeline(oracle, logger)
	store := trajectory.NewStore(cfg.TrajectoryDir, logger)

	factory := newRunnerFactory(cfg, catalog, engine, store, archive, pipeline, logger)

	registry := ws.NewRegistry(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpserver.Healthz(cfg.Service))
	mux.HandleFunc("GET /api/health", httpserver.Healthz(cfg.Service))

	api := newExtractAPI(logger, factory)
	api.register(mux)

	wsAPI := newWSAPI(logger, registry, factory, cfg.PacingDelay)
	wsAPI.register(mux)

	srvCfg := httpserver.Config{
		Service:         cfg.Service,
		Addr:            cfg.Addr,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}

	handler := corsMiddleware(mux)
	if err := httpserver.Run(ctx, logger, srvCfg, httpserver.Wrap(logger, cfg.Service, handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func loadCatalog(cfg config.Config) (*tasks.Catalog, error) {
	if cfg.TaskCatalog != "" {
		return tasks.Load(cfg.TaskCatalog)
	}
	return tasks.Default()
}

// agentTaskName is the catalog entry served by start_agent; every other
// endpoint name maps to a catalog task of the same name.
const agentTaskName = "agent"

func newRunnerFactory(
	cfg config.Config,
	catalog *tasks.Catalog,
	engine cua.Engine,
	store *trajectory.Store,
	archive *trajectory.Archive,
	pipeline *extraction.Pipeline,
	logger *slog.Logger,
) ws.Factory {
	return func(endpoint string, hooks runner.Hooks) (ws.JobRunner, error) {
		name := endpoint
		if name == "" {
			name = agentTaskName
		}
		task, ok := catalog.Get(name)
		if !ok {
			return nil, ws.ErrUnknownEndpoint
		}
		if endpoint != "" && !task.Extracts() {
			// Non-extracting tasks are interactive only.
			return nil, ws.ErrUnknownEndpoint
		}
		if cfg.CostBudget > 0 {
			task.CostBudget = cfg.CostBudget
		}
		if cfg.ImageRetention > 0 {
			task.ImageRetention = cfg.ImageRetention
		}
		return runner.New(runner.Config{
			Engine:    engine,
			Target:    cfg.Engine.SandboxName,
			TargetURL: cfg.Engine.TargetURL,
			Task:      task,
			Store:     store,
			Archive:   archive,
			Pipeline:  pipeline,
			Logger:    logger,
			Hooks:     hooks,
		}), nil
	}
}
