package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/events"
	"github.com/loqalabs/bolo/internal/synthesis"
)

// NewPlayer builds the player selected by cfg.Mode.
func NewPlayer(cfg config.PlaybackConfig) (Player, error) {
	switch cfg.Mode {
	case "exec":
		return NewExecPlayer(cfg.Command)
	case "discard":
		return DiscardPlayer{}, nil
	default:
		return nil, fmt.Errorf("unsupported playback mode %q", cfg.Mode)
	}
}

// DiscardPlayer plays nothing. Tracks report started on Play and ended after
// Hold has elapsed.
type DiscardPlayer struct {
	Hold time.Duration
}

func (p DiscardPlayer) Open(ctx context.Context, _ synthesis.Audio) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &discardTrack{hold: p.Hold, done: make(chan struct{})}, nil
}

type discardTrack struct {
	hub  events.Hub[TrackEventKind, TrackEvent]
	hold time.Duration

	once sync.Once
	done chan struct{}
}

func (t *discardTrack) Subscribe(kind TrackEventKind, handler func(TrackEvent)) func() {
	return t.hub.Subscribe(kind, handler)
}

func (t *discardTrack) Play() error {
	t.emit(TrackStarted, nil)
	if t.hold <= 0 {
		t.finish()
		return nil
	}
	go func() {
		timer := time.NewTimer(t.hold)
		defer timer.Stop()
		select {
		case <-timer.C:
			t.finish()
		case <-t.done:
		}
	}()
	return nil
}

func (t *discardTrack) finish() {
	ended := false
	t.once.Do(func() {
		close(t.done)
		ended = true
	})
	if ended {
		t.emit(TrackEnded, nil)
	}
}

func (t *discardTrack) Pause() error {
	t.emit(TrackPaused, nil)
	return nil
}

func (t *discardTrack) Resume() error {
	t.emit(TrackResumed, nil)
	return nil
}

func (t *discardTrack) Stop() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *discardTrack) emit(kind TrackEventKind, err error) {
	t.hub.Emit(kind, TrackEvent{Kind: kind, Err: err})
}
