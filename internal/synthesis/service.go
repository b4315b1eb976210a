package synthesis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/loqalabs/bolo/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/loqalabs/bolo/internal/synthesis"

// Cache stores synthesized audio keyed by voice and text.
type Cache interface {
	Lookup(ctx context.Context, key string) (content []byte, contentType string, ok bool, err error)
	Store(ctx context.Context, key string, content []byte, contentType string) error
}

// NewSynthesizer builds the backend selected by cfg.Mode. A google backend
// without credentials returns an error wrapping ErrMissingCredentials.
func NewSynthesizer(ctx context.Context, cfg config.SynthesisConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "google":
		return NewGoogleSynthesizer(ctx, Credentials{
			ClientEmail: cfg.ClientEmail,
			PrivateKey:  cfg.PrivateKey,
			ProjectID:   cfg.ProjectID,
		})
	case "mock":
		return NewMockSynthesizer(), nil
	default:
		return nil, fmt.Errorf("unsupported synthesis mode %q", cfg.Mode)
	}
}

// Service is the server-side synthesis operation behind POST /api/tts.
type Service struct {
	synth   Synthesizer
	voice   Voice
	cache   Cache
	timeout time.Duration
	logger  *slog.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
}

func NewService(cfg config.SynthesisConfig, synth Synthesizer, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "synthesis"))
	requests, err := otel.Meter(instrumentationName).Int64Counter("bolo.synthesis.requests",
		metric.WithDescription("Speech synthesis requests by outcome"))
	if err != nil {
		logger.Warn("failed to create synthesis counter", slogError(err))
	}
	return &Service{
		synth: synth,
		voice: Voice{
			LanguageCode: cfg.LanguageCode,
			Name:         cfg.Voice,
			Encoding:     cfg.Encoding,
		},
		cache:    cache,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
	}
}

// Ready reports whether a working backend is installed.
func (s *Service) Ready() bool {
	_, broken := s.synth.(unavailable)
	return !broken
}

func (s *Service) Synthesize(ctx context.Context, text string) (Audio, error) {
	if strings.TrimSpace(text) == "" {
		return Audio{}, ErrNoText
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx, span := s.tracer.Start(ctx, "synthesis.synthesize",
		trace.WithAttributes(
			attribute.String("voice", s.voice.Name),
			attribute.Int("text.runes", len([]rune(text))),
		))
	defer span.End()

	key := s.cacheKey(text)
	if s.cache != nil {
		content, contentType, ok, err := s.cache.Lookup(ctx, key)
		if err != nil {
			s.logger.Warn("audio cache lookup failed", slogError(err))
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			s.record(ctx, "cache_hit")
			return Audio{Content: content, ContentType: contentType}, nil
		}
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, text, s.voice)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		s.record(ctx, "error")
		s.logger.Warn("synthesis failed", slogError(err))
		return Audio{}, err
	}
	if audio.ContentType == "" {
		audio.ContentType = ContentType(s.voice.Encoding)
	}
	s.record(ctx, "ok")
	s.logger.Info("synthesis complete",
		slog.String("size", humanize.Bytes(uint64(len(audio.Content)))),
		slog.Duration("latency", time.Since(start)))

	if s.cache != nil {
		if err := s.cache.Store(ctx, key, audio.Content, audio.ContentType); err != nil {
			s.logger.Warn("audio cache store failed", slogError(err))
		}
	}
	return audio, nil
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{s.voice.LanguageCode, s.voice.Name, s.voice.Encoding, text}, "\x00")))
	return hex.EncodeToString(sum[:])
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.requests == nil {
		return
	}
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
