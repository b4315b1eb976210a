// Package playback plays synthesized answers one at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSuperseded is returned by Play when a newer request or Stop replaced it
// before its audio started.
var ErrSuperseded = errors.New("playback request superseded")

// Status is a snapshot reported to observers.
type Status struct {
	State   State
	Loading bool
	Playing bool
	// Message is a user-facing error description, empty on success.
	Message string
}

// Observer is told about every state change.
type Observer interface {
	PlaybackChanged(Status)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Status)

func (f ObserverFunc) PlaybackChanged(s Status) { f(s) }

type noopObserver struct{}

func (noopObserver) PlaybackChanged(Status) {}

type multiObserver []Observer

// Observers fans status changes out to every non-nil observer in order.
func Observers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) PlaybackChanged(s Status) {
	for _, o := range m {
		o.PlaybackChanged(s)
	}
}

type session struct {
	gen    uint64
	track  Track
	unsubs []func()
}

// Controller guarantees at most one audible session. It never calls into a
// track while holding its lock, so tracks may emit events synchronously.
type Controller struct {
	synth    Synthesizer
	player   Player
	observer Observer
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	session *session
}

func NewController(synth Synthesizer, player Player, observer Observer, logger *slog.Logger) *Controller {
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		synth:    synth,
		player:   player,
		observer: observer,
		logger:   logger.With(slog.String("component", "playback")),
		state:    StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Loading() bool { return c.State() == StateLoading }

func (c *Controller) Playing() bool { return c.State() == StatePlaying }

// Play stops any active session, synthesizes text and starts playing it.
// It returns once the track has been told to play; the Playing state is
// entered on the track's started event.
func (c *Controller) Play(ctx context.Context, text string) error {
	c.mu.Lock()
	old := c.session
	c.session = nil
	c.gen++
	gen := c.gen
	c.state, _ = Transition(c.state, EventRequest)
	status := c.statusLocked("")
	c.mu.Unlock()

	c.dispose(old)
	c.observer.PlaybackChanged(status)

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return c.fail(gen, "speech synthesis failed", err)
	}
	if !c.current(gen) {
		return ErrSuperseded
	}

	track, err := c.player.Open(ctx, audio)
	if err != nil {
		return c.fail(gen, "could not load audio", err)
	}

	s := &session{gen: gen, track: track}
	for _, kind := range []TrackEventKind{TrackStarted, TrackPaused, TrackResumed, TrackEnded, TrackError} {
		s.unsubs = append(s.unsubs, track.Subscribe(kind, func(evt TrackEvent) {
			c.handle(s, evt)
		}))
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.dispose(s)
		return ErrSuperseded
	}
	c.session = s
	c.mu.Unlock()

	if err := track.Play(); err != nil {
		return c.fail(gen, "audio playback failed", err)
	}
	return nil
}

// Toggle pauses a playing session or resumes a paused one. It is a no-op in
// any other state.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	state, s := c.state, c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	switch state {
	case StatePlaying:
		return s.track.Pause()
	case StatePaused:
		return s.track.Resume()
	}
	return nil
}

// Stop disposes the active session, cancels a pending request and returns
// to Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.gen++
	changed := c.state != StateIdle
	c.state, _ = Transition(c.state, EventStop)
	status := c.statusLocked("")
	c.mu.Unlock()

	c.dispose(s)
	if changed {
		c.observer.PlaybackChanged(status)
	}
}

func (c *Controller) handle(s *session, evt TrackEvent) {
	var event Event
	switch evt.Kind {
	case TrackStarted:
		event = EventStarted
	case TrackPaused:
		event = EventPause
	case TrackResumed:
		event = EventResume
	case TrackEnded:
		event = EventEnded
	case TrackError:
		event = EventFail
	default:
		return
	}

	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	next, err := Transition(c.state, event)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("ignoring track event", slog.String("event", string(evt.Kind)), slogError(err))
		return
	}
	c.state = next
	var done *session
	if next == StateIdle {
		done = c.session
		c.session = nil
	}
	msg := ""
	if evt.Kind == TrackError {
		msg = userMessage("audio playback failed", evt.Err)
		c.logger.Warn("track error", slogError(errOrUnknown(evt.Err)))
	}
	status := c.statusLocked(msg)
	c.mu.Unlock()

	c.dispose(done)
	c.observer.PlaybackChanged(status)
}

// fail resets to Idle unless gen was already superseded.
func (c *Controller) fail(gen uint64, what string, err error) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	s := c.session
	c.session = nil
	c.state, _ = Transition(c.state, EventFail)
	status := c.statusLocked(userMessage(what, err))
	c.mu.Unlock()

	c.logger.Warn(what, slogError(err))
	c.dispose(s)
	c.observer.PlaybackChanged(status)
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

func (c *Controller) dispose(s *session) {
	if s == nil {
		return
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	if err := s.track.Stop(); err != nil {
		c.logger.Debug("track stop failed", slogError(err))
	}
}

func (c *Controller) statusLocked(msg string) Status {
	return Status{
		State:   c.state,
		Loading: c.state == StateLoading,
		Playing: c.state == StatePlaying,
		Message: msg,
	}
}

func userMessage(what string, err error) string {
	return fmt.Sprintf("Could not play the answer: %s%s", what, detail(err))
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return " (" + err.Error() + ")"
}

func errOrUnknown(err error) error {
	if err == nil {
		return errors.New("unknown track error")
	}
	return err
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
