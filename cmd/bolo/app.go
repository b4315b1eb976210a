package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/bolo/internal/bus"
	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/generation"
	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/playback"
	"github.com/loqalabs/bolo/internal/synthesis"
	"github.com/loqalabs/bolo/internal/transcript"
	"github.com/loqalabs/bolo/internal/translate"
)

// app is the terminal front end: pipeline, playback and their printer.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	printer  *printer
	pipeline *pipeline.Pipeline
	player   *playback.Controller
	bus      *bus.Client
}

// newApp assembles the front end. With the bus enabled, pipeline and
// playback progress is mirrored to it for `bolo watch`; an unreachable bus
// is logged and skipped.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, p *printer) (*app, error) {
	translator, err := translate.New(cfg.Translation, logger)
	if err != nil {
		return nil, err
	}
	backend, err := generation.NewBackend(cfg.Generation)
	if err != nil {
		return nil, err
	}
	generator := generation.NewClient(backend, cfg.Generation, logger)

	out, err := playback.NewPlayer(cfg.Playback)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, printer: p}
	var publisher *bus.Publisher
	if cfg.Bus.Enabled {
		client, err := bus.Connect(ctx, cfg.Bus, "bolo", logger)
		if err != nil {
			logger.Warn("bus unavailable, updates will not be published", slog.String("error", err.Error()))
		} else {
			a.bus = client
			publisher = bus.NewPublisher(client, logger)
		}
	}

	tts := synthesis.NewClient(cfg.Client.ServerURL, time.Duration(cfg.Synthesis.TimeoutMS)*time.Millisecond)
	playbackObservers := []playback.Observer{p}
	pipelineObservers := []pipeline.Observer{p}
	if publisher != nil {
		playbackObservers = append(playbackObservers, publisher)
		pipelineObservers = append(pipelineObservers, publisher)
	}
	a.player = playback.NewController(tts, out, playback.Observers(playbackObservers...), logger)

	opts := []pipeline.Option{pipeline.WithObserver(pipeline.Observers(pipelineObservers...))}
	if cfg.Client.AutoPlay {
		opts = append(opts, pipeline.WithSpeaker(a.player))
	}
	a.pipeline = pipeline.New(&transcript.Transcript{}, translator, generator, logger, opts...)
	if publisher != nil {
		publisher.ReportProcessing(a.pipeline.Processing)
	}
	return a, nil
}

// waitForPlayback blocks until the controller is idle again or ctx ends.
func (a *app) waitForPlayback(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for a.player.State() != playback.StateIdle {
		select {
		case <-ctx.Done():
			a.player.Stop()
			return
		case <-ticker.C:
		}
	}
}

func (a *app) close() {
	a.pipeline.Close()
	a.player.Stop()
	if a.bus != nil {
		a.bus.Close()
	}
}

func requireText(text, what string) error {
	if text == "" {
		return fmt.Errorf("%s: no text given", what)
	}
	return nil
}
