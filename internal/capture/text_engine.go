package capture

import (
	"context"
	"sync"

	"github.com/loqalabs/bolo/internal/events"
)

// TextEngine treats every fed line as one recognized utterance. The terminal
// front end uses it in place of a microphone recognizer.
type TextEngine struct {
	hub       events.Hub[EventKind, Event]
	mu        sync.Mutex
	listening bool
	locale    string
}

func NewTextEngine() *TextEngine { return &TextEngine{} }

func (e *TextEngine) Subscribe(kind EventKind, handler func(Event)) func() {
	return e.hub.Subscribe(kind, handler)
}

func (e *TextEngine) Start(_ context.Context, locale string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listening {
		return ErrAlreadyListening
	}
	e.listening = true
	e.locale = locale
	return nil
}

// Feed emits text as a single-alternative result, or an error event when the
// engine is not listening.
func (e *TextEngine) Feed(text string) {
	e.mu.Lock()
	listening := e.listening
	e.mu.Unlock()
	if !listening {
		e.hub.Emit(EventError, Event{Kind: EventError, Err: ErrNotListening})
		return
	}
	e.hub.Emit(EventResult, Event{
		Kind:         EventResult,
		Alternatives: []Alternative{{Transcript: text, Confidence: 1}},
	})
}

func (e *TextEngine) Stop() error {
	e.mu.Lock()
	if !e.listening {
		e.mu.Unlock()
		return nil
	}
	e.listening = false
	e.mu.Unlock()
	e.hub.Emit(EventEnd, Event{Kind: EventEnd})
	return nil
}
