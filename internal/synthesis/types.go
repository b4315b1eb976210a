// Package synthesis turns text into speech audio through a cloud voice API
// and exposes a client for the HTTP endpoint that serves it.
package synthesis

import (
	"context"
	"errors"
)

var (
	// ErrNoText rejects a request without text.
	ErrNoText = errors.New("no text provided")
	// ErrMissingCredentials reports absent voice API credentials.
	ErrMissingCredentials = errors.New("synthesis credentials unavailable")
)

// Audio is an encoded audio payload.
type Audio struct {
	Content     []byte
	ContentType string
}

// Voice selects the upstream voice and encoding.
type Voice struct {
	LanguageCode string
	Name         string
	Encoding     string
}

// Synthesizer is a backend voice API.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice) (Audio, error)
}

// ContentType maps an encoding name to its MIME type.
func ContentType(encoding string) string {
	switch encoding {
	case "LINEAR16":
		return "audio/wav"
	case "OGG_OPUS":
		return "audio/ogg"
	default:
		return "audio/mpeg"
	}
}

type unavailable struct{ err error }

// Unavailable returns a Synthesizer that fails every request with err. It
// stands in for a backend that could not be constructed.
func Unavailable(err error) Synthesizer { return unavailable{err: err} }

func (u unavailable) Synthesize(context.Context, string, Voice) (Audio, error) {
	return Audio{}, u.err
}
