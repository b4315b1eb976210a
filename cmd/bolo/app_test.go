package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loqalabs/bolo/internal/bus"
	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/natsserver"
	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/protocol"
	"github.com/nats-io/nats.go"
)

func TestAppPublishesToBus(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	busCfg := config.BusConfig{Enabled: true, Embedded: true, Port: -1, ConnectTimeout: 2000}
	ns, err := natsserver.Start(busCfg, logger)
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(ns.Shutdown)
	busCfg.Embedded = false
	busCfg.Servers = []string{ns.ClientURL()}

	tts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(protocol.SynthesisResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("audio")),
			ContentType:  "audio/mpeg",
		})
	}))
	t.Cleanup(tts.Close)

	watcher, err := bus.Connect(ctx, busCfg, "bolo-watch-test", logger)
	if err != nil {
		t.Fatalf("connect watcher: %v", err)
	}
	t.Cleanup(watcher.Close)
	subjects := make(chan string, 64)
	if _, err := watcher.Conn().Subscribe("bolo.>", func(m *nats.Msg) { subjects <- m.Subject }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := watcher.Conn().Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	cfg := config.Default()
	cfg.Bus = busCfg
	cfg.Translation.Mode = "mock"
	cfg.Generation.Mode = "mock"
	cfg.Playback.Mode = "discard"
	cfg.Client.ServerURL = tts.URL

	a, err := newApp(ctx, cfg, logger, newPrinter(io.Discard, false))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.close)
	if a.bus == nil {
		t.Fatal("expected bus client when bus is enabled")
	}

	res := a.pipeline.Run(ctx, "আমি কেমন আছি")
	if res.Outcome != pipeline.OutcomeSuccess {
		t.Fatalf("unexpected outcome %s: %v", res.Outcome, res.Err)
	}
	if err := a.player.Play(ctx, res.BengaliResponse); err != nil {
		t.Fatalf("play: %v", err)
	}

	want := map[string]bool{
		protocol.SubjectPipelineState:  false,
		protocol.SubjectPipelineResult: false,
		protocol.SubjectPlaybackState:  false,
	}
	deadline := time.After(3 * time.Second)
	for remaining := len(want); remaining > 0; {
		select {
		case s := <-subjects:
			if seen, ok := want[s]; ok && !seen {
				want[s] = true
				remaining--
			}
		case <-deadline:
			t.Fatalf("timed out waiting for bus updates, seen %v", want)
		}
	}
}

func TestAppWithoutReachableBus(t *testing.T) {
	cfg := config.Default()
	cfg.Bus = config.BusConfig{Enabled: true, ConnectTimeout: 200}
	cfg.Translation.Mode = "mock"
	cfg.Generation.Mode = "mock"
	cfg.Playback.Mode = "discard"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), cfg, logger, newPrinter(io.Discard, false))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.close()
	if a.bus != nil {
		t.Fatal("expected no bus client without servers")
	}
}
