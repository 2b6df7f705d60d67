package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/questweave/questweave/questweave"
	"github.com/questweave/questweave/questweave/database"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/questweave/questweave/questweave/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("questweave")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting QuestWeave",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	workerID := flag.Int64("worker-id", 1, "snowflake worker id, unique per process")
	flag.Parse()

	cfg, err := questweave.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	if err := idgen.Init(*workerID); err != nil {
		slog.Error("Failed to initialize id generator", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	app := questweave.New(cfg, version, commit)
	if err := app.Setup(db); err != nil {
		slog.Error("Failed to wire application", slog.Any("error", err))
		db.Close()
		os.Exit(-1)
	}

	app.StartBackground()

	logger.LogSystem("QuestWeave is running",
		slog.String("worker_id", app.Orchestrator.WorkerID()),
		slog.String("api_addr", cfg.API.Addr))

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down QuestWeave...")
	app.Shutdown(30 * time.Second)
	slog.Info("Shutdown complete")
}
