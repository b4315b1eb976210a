package playback

import (
	"context"

	"github.com/loqalabs/bolo/internal/synthesis"
)

// TrackEventKind names a player-side lifecycle event.
type TrackEventKind string

const (
	TrackStarted TrackEventKind = "started"
	TrackPaused  TrackEventKind = "paused"
	TrackResumed TrackEventKind = "resumed"
	TrackEnded   TrackEventKind = "ended"
	TrackError   TrackEventKind = "error"
)

type TrackEvent struct {
	Kind TrackEventKind
	Err  error
}

// Track is one loaded audio payload. Events may be delivered on any
// goroutine, including synchronously from Play, Pause, Resume or Stop.
type Track interface {
	Subscribe(kind TrackEventKind, handler func(TrackEvent)) (unsubscribe func())
	Play() error
	Pause() error
	Resume() error
	Stop() error
}

// Player loads audio into a Track.
type Player interface {
	Open(ctx context.Context, audio synthesis.Audio) (Track, error)
}

// Synthesizer turns text into audio, typically through the synthesis
// endpoint.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (synthesis.Audio, error)
}
