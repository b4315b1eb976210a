package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/bolo/internal/config"
	"github.com/loqalabs/bolo/internal/events"
	"github.com/loqalabs/bolo/internal/synthesis"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type synthFunc func(ctx context.Context, text string) (synthesis.Audio, error)

func (f synthFunc) Synthesize(ctx context.Context, text string) (synthesis.Audio, error) {
	return f(ctx, text)
}

func echoSynth() Synthesizer {
	return synthFunc(func(_ context.Context, text string) (synthesis.Audio, error) {
		return synthesis.Audio{Content: []byte(text), ContentType: "audio/mpeg"}, nil
	})
}

type fakeTrack struct {
	hub     events.Hub[TrackEventKind, TrackEvent]
	text    string
	mu      sync.Mutex
	playing bool
	stopped bool
	playErr error
}

func (t *fakeTrack) Subscribe(kind TrackEventKind, handler func(TrackEvent)) func() {
	return t.hub.Subscribe(kind, handler)
}

func (t *fakeTrack) Play() error {
	if t.playErr != nil {
		return t.playErr
	}
	t.mu.Lock()
	t.playing = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTrack) Pause() error {
	t.hub.Emit(TrackPaused, TrackEvent{Kind: TrackPaused})
	return nil
}

func (t *fakeTrack) Resume() error {
	t.hub.Emit(TrackResumed, TrackEvent{Kind: TrackResumed})
	return nil
}

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	t.playing = false
	t.mu.Unlock()
	// Real players often report ended when stopped.
	t.hub.Emit(TrackEnded, TrackEvent{Kind: TrackEnded})
	return nil
}

func (t *fakeTrack) fire(kind TrackEventKind, err error) {
	t.hub.Emit(kind, TrackEvent{Kind: kind, Err: err})
}

func (t *fakeTrack) audible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing && !t.stopped
}

type fakePlayer struct {
	mu      sync.Mutex
	tracks  []*fakeTrack
	openErr error
	playErr error
}

func (p *fakePlayer) Open(_ context.Context, audio synthesis.Audio) (Track, error) {
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	t := &fakeTrack{text: string(audio.Content), playErr: p.playErr}
	p.tracks = append(p.tracks, t)
	return t, nil
}

func (p *fakePlayer) track(i int) *fakeTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracks[i]
}

type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) PlaybackChanged(s Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func (l *statusLog) last() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statuses[len(l.statuses)-1]
}

func TestPlayEntersPlayingOnStarted(t *testing.T) {
	player := &fakePlayer{}
	log := &statusLog{}
	c := NewController(echoSynth(), player, log, newLogger())

	require.NoError(t, c.Play(context.Background(), "আপনি ভালো আছেন"))
	require.Equal(t, StateLoading, c.State())
	require.True(t, c.Loading())

	player.track(0).fire(TrackStarted, nil)
	require.Equal(t, StatePlaying, c.State())
	require.True(t, c.Playing())
	require.False(t, c.Loading())

	player.track(0).fire(TrackEnded, nil)
	require.Equal(t, StateIdle, c.State())
	require.Equal(t, Status{State: StateIdle}, log.last())
}

func TestSecondPlayLeavesExactlyOneActiveSession(t *testing.T) {
	player := &fakePlayer{}
	c := NewController(echoSynth(), player, nil, newLogger())

	require.NoError(t, c.Play(context.Background(), "first"))
	player.track(0).fire(TrackStarted, nil)
	require.True(t, c.Playing())

	require.NoError(t, c.Play(context.Background(), "second"))
	first, second := player.track(0), player.track(1)
	require.False(t, first.audible())
	require.True(t, second.audible())
	require.Equal(t, StateLoading, c.State())

	// Events from the superseded track are ignored.
	first.fire(TrackStarted, nil)
	require.Equal(t, StateLoading, c.State())
	require.Equal(t, 0, first.hub.Len(TrackStarted))

	second.fire(TrackStarted, nil)
	require.Equal(t, StatePlaying, c.State())
}

func TestPlaySupersededWhileSynthesizing(t *testing.T) {
	player := &fakePlayer{}
	entered := make(chan struct{})
	release := make(chan struct{})
	synth := synthFunc(func(_ context.Context, text string) (synthesis.Audio, error) {
		if text == "slow" {
			close(entered)
			<-release
		}
		return synthesis.Audio{Content: []byte(text)}, nil
	})
	c := NewController(synth, player, nil, newLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Play(context.Background(), "slow") }()
	<-entered

	require.NoError(t, c.Play(context.Background(), "fast"))
	close(release)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded play did not return")
	}
	player.mu.Lock()
	defer player.mu.Unlock()
	require.Len(t, player.tracks, 1)
	require.Equal(t, "fast", player.tracks[0].text)
}

func TestToggle(t *testing.T) {
	player := &fakePlayer{}
	c := NewController(echoSynth(), player, nil, newLogger())

	require.NoError(t, c.Toggle())
	require.Equal(t, StateIdle, c.State())

	require.NoError(t, c.Play(context.Background(), "text"))
	require.NoError(t, c.Toggle())
	require.Equal(t, StateLoading, c.State())

	player.track(0).fire(TrackStarted, nil)
	require.NoError(t, c.Toggle())
	require.Equal(t, StatePaused, c.State())
	require.False(t, c.Playing())

	require.NoError(t, c.Toggle())
	require.Equal(t, StatePlaying, c.State())
}

func TestStopDisposesSession(t *testing.T) {
	player := &fakePlayer{}
	c := NewController(echoSynth(), player, nil, newLogger())

	require.NoError(t, c.Play(context.Background(), "text"))
	player.track(0).fire(TrackStarted, nil)

	c.Stop()
	require.Equal(t, StateIdle, c.State())
	require.False(t, player.track(0).audible())
	require.Equal(t, 0, player.track(0).hub.Len(TrackEnded))
}

func TestSynthesisErrorResetsWithMessage(t *testing.T) {
	log := &statusLog{}
	synth := synthFunc(func(context.Context, string) (synthesis.Audio, error) {
		return synthesis.Audio{}, errors.New("Text-to-speech conversion failed: quota")
	})
	c := NewController(synth, &fakePlayer{}, log, newLogger())

	err := c.Play(context.Background(), "text")
	require.ErrorContains(t, err, "quota")
	require.Equal(t, StateIdle, c.State())
	last := log.last()
	require.False(t, last.Loading)
	require.False(t, last.Playing)
	require.Contains(t, last.Message, "quota")
}

func TestTrackErrorResetsToIdle(t *testing.T) {
	player := &fakePlayer{}
	log := &statusLog{}
	c := NewController(echoSynth(), player, log, newLogger())

	require.NoError(t, c.Play(context.Background(), "text"))
	player.track(0).fire(TrackStarted, nil)
	player.track(0).fire(TrackError, errors.New("device busy"))

	require.Equal(t, StateIdle, c.State())
	require.Contains(t, log.last().Message, "device busy")
	require.False(t, player.track(0).audible())
}

func TestOpenAndPlayErrors(t *testing.T) {
	c := NewController(echoSynth(), &fakePlayer{openErr: errors.New("bad format")}, nil, newLogger())
	require.ErrorContains(t, c.Play(context.Background(), "text"), "bad format")
	require.Equal(t, StateIdle, c.State())

	player := &fakePlayer{playErr: errors.New("no device")}
	c = NewController(echoSynth(), player, nil, newLogger())
	require.ErrorContains(t, c.Play(context.Background(), "text"), "no device")
	require.Equal(t, StateIdle, c.State())
	require.True(t, player.track(0).stopped)
}

func TestDiscardPlayerStartsAndEnds(t *testing.T) {
	log := &statusLog{}
	c := NewController(echoSynth(), DiscardPlayer{}, log, newLogger())

	require.NoError(t, c.Play(context.Background(), "text"))
	require.Equal(t, StateIdle, c.State())

	var states []State
	for _, s := range log.statuses {
		states = append(states, s.State)
	}
	require.Equal(t, []State{StateLoading, StatePlaying, StateIdle}, states)
}

func TestDiscardPlayerHoldCanBeStopped(t *testing.T) {
	c := NewController(echoSynth(), DiscardPlayer{Hold: time.Hour}, nil, newLogger())

	require.NoError(t, c.Play(context.Background(), "text"))
	require.Equal(t, StatePlaying, c.State())
	c.Stop()
	require.Equal(t, StateIdle, c.State())
}

func TestNewPlayer(t *testing.T) {
	p, err := NewPlayer(config.PlaybackConfig{Mode: "discard"})
	require.NoError(t, err)
	require.IsType(t, DiscardPlayer{}, p)

	_, err = NewPlayer(config.PlaybackConfig{Mode: "exec", Command: ""})
	require.Error(t, err)

	_, err = NewPlayer(config.PlaybackConfig{Mode: "speaker"})
	require.Error(t, err)
}

func TestObserversFanOut(t *testing.T) {
	first, second := &statusLog{}, &statusLog{}
	var calls int
	c := NewController(echoSynth(), &fakePlayer{}, Observers(first, nil, second, ObserverFunc(func(Status) { calls++ })), newLogger())

	require.NoError(t, c.Play(context.Background(), "আপনি ভালো আছেন"))
	require.Equal(t, StateLoading, first.last().State)
	require.Equal(t, first.last(), second.last())
	require.Positive(t, calls)
}
