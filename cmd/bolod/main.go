package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/loqalabs/bolo/internal/api"
	"github.com/loqalabs/bolo/internal/audiocache"
	"github.com/loqalabs/bolo/internal/bus"
	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/generation"
	"github.com/loqalabs/bolo/internal/natsserver"
	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/runtime"
	"github.com/loqalabs/bolo/internal/synthesis"
	"github.com/loqalabs/bolo/internal/translate"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		envFile     string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("BOLO_CONFIG"), "Path to configuration file")
	flag.StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before configuration")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Telemetry.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	rt := runtime.New(cfg, logger)
	if err := rt.InitTelemetry(ctx); err != nil {
		return err
	}

	svc := api.Services{}
	var (
		observers []pipeline.Observer
		publisher *bus.Publisher
	)

	if cfg.Bus.Enabled {
		ns, err := natsserver.Start(cfg.Bus, logger)
		if err != nil {
			return err
		}
		defer ns.Shutdown()
		if ns != nil {
			cfg.Bus.Servers = []string{ns.ClientURL()}
		}
		client, err := bus.Connect(ctx, cfg.Bus, cfg.RuntimeName, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = bus.NewPublisher(client, logger)
		observers = append(observers, publisher)
		svc.Checks = append(svc.Checks, api.Check{Name: "bus", Ready: client.Healthy})
	}

	if cfg.Synthesis.Enabled {
		cache, err := audiocache.Open(ctx, cfg.Cache, logger.With(slog.String("component", "audiocache")))
		if err != nil {
			return err
		}
		defer cache.Close()
		go pruneCache(ctx, cache, logger)

		synth, err := synthesis.NewSynthesizer(ctx, cfg.Synthesis)
		switch {
		case errors.Is(err, synthesis.ErrMissingCredentials):
			logger.Warn("speech synthesis unavailable", slog.String("error", err.Error()))
			synth = synthesis.Unavailable(err)
		case err != nil:
			return err
		}
		if closer, ok := synth.(io.Closer); ok {
			defer closer.Close()
		}
		service := synthesis.NewService(cfg.Synthesis, synth, cache, logger)
		svc.Synthesis = service
		svc.Checks = append(svc.Checks, api.Check{Name: "synthesis", Ready: service.Ready})
	}

	translator, err := translate.New(cfg.Translation, logger)
	if err != nil {
		return err
	}
	backend, err := generation.NewBackend(cfg.Generation)
	if err != nil {
		return err
	}
	generator := generation.NewClient(backend, cfg.Generation, logger)
	pipe := pipeline.New(nil, translator, generator, logger, pipeline.WithObserver(pipeline.Observers(observers...)))
	defer pipe.Close()
	svc.Pipeline = pipe
	if publisher != nil {
		publisher.ReportProcessing(pipe.Processing)
	}

	return rt.Start(ctx, svc)
}

func pruneCache(ctx context.Context, cache *audiocache.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cache.Prune(ctx); err != nil {
				logger.Warn("audio cache prune failed", slog.String("error", err.Error()))
			}
		}
	}
}
