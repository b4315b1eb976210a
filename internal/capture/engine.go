// Package capture adapts a speech recognition engine into transcript
// fragments and one ready signal per completed capture session.
package capture

import (
	"context"
	"errors"
)

// EventKind names the recognition events an Engine emits.
type EventKind string

const (
	EventResult EventKind = "result"
	EventError  EventKind = "error"
	EventEnd    EventKind = "end"
)

var (
	ErrAlreadyListening = errors.New("recognition already started")
	ErrNotListening     = errors.New("recognition not started")

	errUnknownRecognition = errors.New("unknown recognition error")
)

// Alternative is one candidate transcription of an utterance.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Event is a single recognition callback.
type Event struct {
	Kind         EventKind
	Alternatives []Alternative
	Err          error
}

// Engine is a platform recognition capability. Subscribe returns a function
// removing the handler.
type Engine interface {
	Subscribe(kind EventKind, handler func(Event)) (unsubscribe func())
	Start(ctx context.Context, locale string) error
	Stop() error
}
