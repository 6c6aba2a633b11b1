package main

import (
	"fmt"
	"os"

	"github.com/signin-dev/signin/internal/config"
	"github.com/signin-dev/signin/internal/database"
	"github.com/signin-dev/signin/internal/logger"
	"github.com/signin-dev/signin/internal/server"
	"github.com/signin-dev/signin/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	db, err := database.Open(cfg.Database.URL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close(db)

	// Attempts go through the worker when Redis is configured, inline otherwise
	var recorder server.AttemptRecorder
	if cfg.Redis.Enabled() {
		recorder = server.NewQueueRecorder(cfg.Redis.Address)
		log.Info().Str("redis", cfg.Redis.Address).Msg("Recording login attempts through the worker queue")
	} else {
		recorder = server.NewInlineRecorder(db, workers.LockoutPolicy{
			Threshold: cfg.Auth.LockoutThreshold,
			Duration:  cfg.Auth.LockoutDuration,
		}, log)
		log.Info().Msg("REDIS_ADDRESS not set, recording login attempts inline")
	}

	srv, err := server.New(cfg, db, recorder, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Str("version", version).Msg("Starting signin identity server...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}
