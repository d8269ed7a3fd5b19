package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/premiumbot/core/config"
	"github.com/m3rciful/premiumbot/core/database"
	"github.com/m3rciful/premiumbot/core/logger"
	"github.com/m3rciful/premiumbot/internal/supervisor"
	"log/slog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("premiumbot: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := logger.InitLogger(cfg.Logging.LoggerOptions()); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	sup := supervisor.New(cfg, db)

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.Int("tenants", len(cfg.Tenants)),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	err = sup.Run(ctx)

	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return err
}
