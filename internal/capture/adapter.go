package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/loqalabs/bolo/internal/transcript"
)

// DefaultLocale is Bengali, Bangladesh variant.
const DefaultLocale = "bn-BD"

// ReadyFunc is invoked once per capture session that produced text.
type ReadyFunc func(ctx context.Context)

// Adapter wires an Engine to a Transcript.
type Adapter struct {
	engine     Engine
	transcript *transcript.Transcript
	locale     string
	logger     *slog.Logger

	mu          sync.Mutex
	ctx         context.Context
	ready       ReadyFunc
	utterance   func(string)
	ended       func()
	unsubscribe []func()
}

func NewAdapter(engine Engine, tr *transcript.Transcript, locale string, logger *slog.Logger) *Adapter {
	if locale == "" {
		locale = DefaultLocale
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		engine:     engine,
		transcript: tr,
		locale:     locale,
		logger:     logger.With(slog.String("component", "capture")),
		ctx:        context.Background(),
	}
	a.unsubscribe = []func(){
		engine.Subscribe(EventResult, a.handleResult),
		engine.Subscribe(EventError, a.handleError),
		engine.Subscribe(EventEnd, a.handleEnd),
	}
	return a
}

// OnTranscriptReady registers the consumer of completed capture sessions.
func (a *Adapter) OnTranscriptReady(fn ReadyFunc) {
	a.mu.Lock()
	a.ready = fn
	a.mu.Unlock()
}

// OnUtterance registers an observer for every recognized fragment.
func (a *Adapter) OnUtterance(fn func(string)) {
	a.mu.Lock()
	a.utterance = fn
	a.mu.Unlock()
}

// OnEnd registers a callback for the end of every capture session,
// including sessions that produced no text.
func (a *Adapter) OnEnd(fn func()) {
	a.mu.Lock()
	a.ended = fn
	a.mu.Unlock()
}

// Locale returns the recognition locale passed to the engine.
func (a *Adapter) Locale() string { return a.locale }

func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	if err := a.engine.Start(ctx, a.locale); err != nil {
		a.logger.Warn("recognition start failed", slogError(err))
		return err
	}
	return nil
}

func (a *Adapter) Stop() error {
	if err := a.engine.Stop(); err != nil {
		a.logger.Warn("recognition stop failed", slogError(err))
		return err
	}
	return nil
}

// Close detaches the adapter from the engine.
func (a *Adapter) Close() {
	a.mu.Lock()
	unsubscribe := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()
	for _, fn := range unsubscribe {
		fn()
	}
}

func (a *Adapter) handleResult(evt Event) {
	if len(evt.Alternatives) == 0 {
		return
	}
	text := strings.TrimSpace(evt.Alternatives[0].Transcript)
	if text == "" {
		return
	}
	a.transcript.Append(text)

	a.mu.Lock()
	utterance := a.utterance
	a.mu.Unlock()
	if utterance != nil {
		utterance(text)
	}
}

func (a *Adapter) handleError(evt Event) {
	err := evt.Err
	if err == nil {
		err = errUnknownRecognition
	}
	a.logger.Warn("recognition error", slogError(err))
}

func (a *Adapter) handleEnd(Event) {
	a.mu.Lock()
	ready, ended, ctx := a.ready, a.ended, a.ctx
	a.mu.Unlock()
	if ended != nil {
		ended()
	}
	if a.transcript.Empty() {
		return
	}
	if ready != nil {
		ready(ctx)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
