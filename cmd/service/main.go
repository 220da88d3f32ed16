package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appv2 "github.com/dropDatabas3/tokenbridge/internal/app/v2"
	"github.com/dropDatabas3/tokenbridge/internal/config"
	"github.com/dropDatabas3/tokenbridge/internal/observability/logger"
)

// version se setea con -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.ServiceName,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	app, err := appv2.New(cfg, version)
	if err != nil {
		logger.L().Fatal("wiring failed", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.L().Fatal("server failed", logger.Err(err))
	}
}
