// Package translate wraps a remote translation service.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/bolo/internal/config"
)

// FallbackText replaces a translation the service did not return.
const FallbackText = "Translation failed"

// Languages understood by the pipeline.
const (
	Bengali = "bn"
	English = "en"
)

// LanguagePair is a source→target direction.
type LanguagePair struct {
	Source string
	Target string
}

var (
	BengaliToEnglish = LanguagePair{Source: Bengali, Target: English}
	EnglishToBengali = LanguagePair{Source: English, Target: Bengali}
)

// String renders the pair in the `src|dst` form used on the wire.
func (p LanguagePair) String() string {
	return fmt.Sprintf("%s|%s", p.Source, p.Target)
}

// Translator converts text between languages. Transport failures are
// returned as errors; malformed service responses degrade to FallbackText.
type Translator interface {
	Translate(ctx context.Context, text string, pair LanguagePair) (string, error)
}

type mockTranslator struct{}

// NewMockTranslator returns a Translator that tags text with its pair.
func NewMockTranslator() Translator { return mockTranslator{} }

func (mockTranslator) Translate(ctx context.Context, text string, pair LanguagePair) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", pair, text), nil
}

// New builds the Translator selected by cfg.Mode.
func New(cfg config.TranslationConfig, logger *slog.Logger) (Translator, error) {
	switch cfg.Mode {
	case "mymemory":
		return NewClient(cfg.Endpoint, cfg.Email, time.Duration(cfg.TimeoutMS)*time.Millisecond, logger), nil
	case "mock":
		return NewMockTranslator(), nil
	default:
		return nil, fmt.Errorf("unsupported translation mode %q", cfg.Mode)
	}
}
