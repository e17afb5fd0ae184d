package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/seantiz/pipebench/internal/api"
	"github.com/seantiz/pipebench/internal/config"
	"github.com/seantiz/pipebench/internal/engine"
	"github.com/seantiz/pipebench/internal/pipeline"
	"github.com/seantiz/pipebench/internal/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("pipebench: starting",
		"listen_addr", cfg.ListenAddr,
		"pipelines_file", cfg.PipelinesFile,
		"gst_launch", cfg.GstLaunch,
	)

	catalog, err := pipeline.LoadCatalog(cfg.PipelinesFile, cfg.GstLaunch)
	if err != nil {
		log.Fatalf("failed to load pipeline catalog: %v", err)
	}
	logger.Info("pipeline catalog loaded", "pipelines", len(catalog.List()))

	runners := &runner.ExecFactory{
		Builder:    catalog,
		StopGrace:  cfg.StopGrace,
		MaxStreams: cfg.DensityMaxStreams,
	}
	eng := engine.NewEngine(catalog, runners, logger)
	srv := api.NewServer(cfg.ListenAddr, eng, catalog, logger)

	runErr := srv.Run()

	// Give stopped pipelines their grace period plus a margin to record ABORTED.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StopGrace+5*time.Second)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		logger.Error("engine shutdown", "error", err)
	}

	if runErr != nil {
		log.Fatalf("server error: %v", runErr)
	}
}
