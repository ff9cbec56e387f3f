package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/fedtpg/config"
	"github.com/BaSui01/fedtpg/envs/stickgame"
	"github.com/BaSui01/fedtpg/internal/database"
	"github.com/BaSui01/fedtpg/internal/journal"
	"github.com/BaSui01/fedtpg/internal/metrics"
	"github.com/BaSui01/fedtpg/internal/server"
	"github.com/BaSui01/fedtpg/internal/snapshot"
	"github.com/BaSui01/fedtpg/internal/telemetry"
	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/mutator"
	"github.com/BaSui01/fedtpg/program"
	"github.com/BaSui01/fedtpg/tpg"
)

const tracerName = "github.com/BaSui01/fedtpg"

// =============================================================================
// 🏋️ train 命令
// =============================================================================

func runTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	generations := fs.Uint64("generations", 0, "Override training.generations")
	agents := fs.Int("agents", 0, "Override training.agents")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *generations > 0 {
		cfg.Training.Generations = *generations
	}
	if *agents > 0 {
		cfg.Training.Agents = *agents
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting fedtpg",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	// 收到信号后完成当前一代再停止
	var stop atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		logger.Info("stop requested, finishing current generation", zap.String("signal", sig.String()))
		stop.Store(true)
	}()

	result, err := train(context.Background(), cfg, logger, &stop)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("run %s: %d generations\n", result.runID, result.generations)
}

type trainResult struct {
	runID       string
	generations uint64
	manager     *learn.FLAgentManager
}

// train 装配所有组件并运行一次联邦训练
func train(ctx context.Context, cfg *config.Config, logger *zap.Logger, stop *atomic.Bool) (*trainResult, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	opts := []learn.ManagerOption{
		learn.WithLogger(logger),
		learn.WithTracer(providers.Tracer(tracerName)),
		learn.WithRNG(mutator.NewRNG(cfg.Training.Seed)),
	}
	health := server.NewHealth()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		opts = append(opts, learn.WithRecorder(collector))
	}

	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		var poolOpts []database.PoolOption
		storeOpts := []snapshot.Option{snapshot.WithRunID(runID), snapshot.WithLogger(logger)}
		if collector != nil {
			poolOpts = append(poolOpts, database.WithStatsRecorder(collector))
			storeOpts = append(storeOpts, snapshot.WithQueryRecorder(collector))
		}
		pool, err := database.NewPoolManager(db, database.PoolConfigFrom(cfg.Database), logger, poolOpts...)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		store := snapshot.NewStore(pool.DB(), storeOpts...)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, learn.WithSnapshotter(store))
		health.Register("database", pool.Ping)
	}

	if cfg.Redis.Enabled {
		j, err := journal.New(ctx, cfg.Redis, runID, logger)
		if err != nil {
			return nil, err
		}
		defer j.Close()
		opts = append(opts, learn.WithJournal(j))
		health.Register("redis", j.Ping)
	}

	if cfg.Metrics.Enabled {
		handler := server.NewHandler(prometheus.DefaultGatherer, health, collector, logger)
		srv := server.NewManager(handler, server.ConfigFromMetrics(cfg.Metrics), logger)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Metrics.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown failed", zap.Error(err))
			}
		}()
	}

	params := cfg.LearnParameters()
	set := program.DefaultSet()
	factory := func(id learn.AgentID) (learn.Learner, error) {
		seed := params.Seed + int64(id) + 1
		return learn.NewLearningAgent(stickgame.New(seed), set, params, mutator.NewRNG(seed),
			logger.With(zap.Int("agent", int(id))))
	}

	manager, err := learn.NewFLAgentManager(cfg.Training.Agents, factory, params, opts...)
	if err != nil {
		return nil, err
	}
	if err := manager.ConnectAgentsPseudoRandomly(); err != nil {
		return nil, err
	}

	generations, err := manager.TrainAndExchangeBestBranches(ctx, stop)
	if err != nil {
		return nil, err
	}

	if cfg.Export.Dir != "" {
		if err := exportGraphs(manager.Agents(), cfg.Export, runID); err != nil {
			return nil, err
		}
		logger.Info("graphs exported", zap.String("dir", cfg.Export.Dir), zap.String("format", cfg.Export.Format))
	}

	return &trainResult{runID: runID, generations: generations, manager: manager}, nil
}

// exportGraphs 将每个代理的图写入 dir/agent-<id>.<format>
func exportGraphs(agents []*learn.FLAgent, cfg config.ExportConfig, runID string) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, a := range agents {
		def := tpg.Export(a.Graph())
		def.Name = fmt.Sprintf("agent-%d", a.ID())
		def.Metadata = map[string]string{"run_id": runID}

		path := filepath.Join(cfg.Dir, fmt.Sprintf("agent-%d.%s", a.ID(), cfg.Format))
		if err := def.SaveToFile(path); err != nil {
			return fmt.Errorf("export agent %d: %w", a.ID(), err)
		}
	}
	return nil
}
