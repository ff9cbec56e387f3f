package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fedtpg/config"
	"github.com/BaSui01/fedtpg/internal/database"
	"github.com/BaSui01/fedtpg/internal/snapshot"
	"github.com/BaSui01/fedtpg/learn"
	"github.com/BaSui01/fedtpg/tpg"
)

// =============================================================================
// 📤 export 命令
// =============================================================================

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	runID := fs.String("run", "", "Run id")
	agent := fs.Int("agent", 0, "Agent id")
	out := fs.String("out", "", "Output file (.json or .yaml)")
	_ = fs.Parse(args)

	if *runID == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "export requires --run and --out")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := exportSnapshot(ctx, cfg.Database, *runID, learn.AgentID(*agent), *out, logger); err != nil {
		logger.Error("export failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("exported run %s agent %d to %s\n", *runID, *agent, *out)
}

// exportSnapshot 读取 agent 在 runID 中的最新快照并写入 out
func exportSnapshot(ctx context.Context, cfg config.DatabaseConfig, runID string, agent learn.AgentID, out string, logger *zap.Logger) error {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store := snapshot.NewStore(db, snapshot.WithRunID(runID), snapshot.WithLogger(logger))
	snap, err := store.Latest(ctx, runID, agent)
	if err != nil {
		return err
	}

	// 通过 Import 校验后再导出
	g, err := snap.Graph()
	if err != nil {
		return fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	def := tpg.Export(g)
	def.Name = fmt.Sprintf("agent-%d", agent)
	def.Metadata = map[string]string{
		"run_id":     runID,
		"generation": fmt.Sprintf("%d", snap.Generation),
	}
	return def.SaveToFile(out)
}
