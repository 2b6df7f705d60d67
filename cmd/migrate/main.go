// Command migrate imports quest data from the legacy Mongo prototype into
// Postgres. Point it at either a mongodump directory or a live Mongo URI.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/questweave/questweave/questweave"
	"github.com/questweave/questweave/questweave/database"
	"github.com/questweave/questweave/questweave/idgen"
	"github.com/questweave/questweave/questweave/logger"
	"github.com/questweave/questweave/questweave/migration"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	dataDir := flag.String("data", "data", "directory holding .bson dump files")
	live := flag.Bool("live", false, "read from the live Mongo database instead of dumps")
	batchSize := flag.Int("batch", 500, "insert batch size")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler("questweave-migrate")))

	cfg, err := questweave.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := idgen.Init(1); err != nil {
		slog.Error("Failed to init id generator", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
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
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := migration.NewMigrator(db.BunDB(), *dataDir)
	migrator.SetBatchSize(*batchSize)

	if *live {
		if cfg.Mongo.URI == "" {
			slog.Error("Live mode requires mongo.uri in config")
			os.Exit(1)
		}
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			slog.Error("Failed to connect to Mongo", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Disconnect(ctx)
		migrator.UseMongo(client, cfg.Mongo.Database)
	}

	if err := migrator.MigrateAll(ctx); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migration completed successfully")
}
