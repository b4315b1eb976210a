// Package pipeline chains a captured Bengali transcript through
// translation, response generation and back-translation, and hands the
// answer to a speaker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/bolo/internal/transcript"
	"github.com/loqalabs/bolo/internal/translate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Replacement texts shown when a run fails.
const (
	ErrorResponse        = "Error processing request"
	ErrorBengaliResponse = "ত্রুটি ঘটেছে"
)

const instrumentationName = "github.com/loqalabs/bolo/internal/pipeline"

var (
	// ErrEmptyText rejects a run without source text.
	ErrEmptyText = errors.New("empty source text")
	// ErrClosed rejects runs started after Close.
	ErrClosed = errors.New("pipeline closed")
)

// Generator produces an English answer for an English prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Speaker plays a Bengali answer.
type Speaker interface {
	Play(ctx context.Context, text string) error
}

// Result is the outcome of one run.
type Result struct {
	RunID             string
	Source            string
	Translation       string
	AssistantResponse string
	BengaliResponse   string
	Outcome           Outcome
	Err               error
	StartedAt         time.Time
	FinishedAt        time.Time
}

func (r *Result) fail(err error) {
	r.Outcome = OutcomeError
	r.Err = err
	r.AssistantResponse = ErrorResponse
	r.BengaliResponse = ErrorBengaliResponse
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithSpeaker plays each successful Bengali response.
func WithSpeaker(s Speaker) Option {
	return func(p *Pipeline) { p.speaker = s }
}

// WithObserver reports state changes and results.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// Pipeline runs transcripts to completion. Runs never cancel each other.
type Pipeline struct {
	transcript *transcript.Transcript
	translator translate.Translator
	generator  Generator
	speaker    Speaker
	observer   Observer
	logger     *slog.Logger

	inflight atomic.Int64
	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup

	tracer   trace.Tracer
	runs     metric.Int64Counter
	duration metric.Float64Histogram

	newID func() string
	clock func() time.Time
}

func New(tr *transcript.Transcript, translator translate.Translator, generator Generator, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if tr == nil {
		tr = &transcript.Transcript{}
	}
	p := &Pipeline{
		transcript: tr,
		translator: translator,
		generator:  generator,
		observer:   nopObserver{},
		logger:     logger.With(slog.String("component", "pipeline")),
		tracer:     otel.Tracer(instrumentationName),
		newID:      uuid.NewString,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if p.runs, err = meter.Int64Counter("bolo.pipeline.runs",
		metric.WithDescription("Completed pipeline runs by outcome")); err != nil {
		p.logger.Warn("failed to create runs counter", slogError(err))
	}
	if p.duration, err = meter.Float64Histogram("bolo.pipeline.duration",
		metric.WithDescription("Pipeline run duration"),
		metric.WithUnit("ms")); err != nil {
		p.logger.Warn("failed to create duration histogram", slogError(err))
	}
	return p
}

// Transcript returns the accumulator the pipeline consumes.
func (p *Pipeline) Transcript() *transcript.Transcript { return p.transcript }

// Processing reports whether at least one run is in flight.
func (p *Pipeline) Processing() bool { return p.inflight.Load() > 0 }

// OnTranscriptReady takes the accumulated transcript and starts a run on
// it in the background. The transcript is already empty when this returns.
// It returns the run id, or "" when there was nothing to process or the
// pipeline is closed. A closed pipeline leaves the transcript untouched.
func (p *Pipeline) OnTranscriptReady(ctx context.Context) string {
	if !p.begin() {
		return ""
	}
	text := p.transcript.Take()
	if strings.TrimSpace(text) == "" {
		p.wg.Done()
		return ""
	}
	id := p.newID()
	p.inflight.Add(1)
	go func() {
		defer p.wg.Done()
		res := p.execute(ctx, id, text)
		p.speak(ctx, res)
	}()
	return id
}

// Run processes text synchronously. It does not touch the transcript and
// does not invoke the speaker.
func (p *Pipeline) Run(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		res := Result{Source: text, StartedAt: p.clock()}
		res.fail(ErrEmptyText)
		res.FinishedAt = res.StartedAt
		return res
	}
	if !p.begin() {
		res := Result{Source: text, StartedAt: p.clock()}
		res.fail(ErrClosed)
		res.FinishedAt = res.StartedAt
		return res
	}
	defer p.wg.Done()
	p.inflight.Add(1)
	return p.execute(ctx, p.newID(), text)
}

// begin registers a run with the wait group unless the pipeline is closed.
func (p *Pipeline) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

// Close rejects new runs and waits for in-flight runs to finish.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) execute(ctx context.Context, id, text string) (res Result) {
	res = Result{RunID: id, Source: text, StartedAt: p.clock()}
	logger := p.logger.With(slog.String("run_id", id))
	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("run.id", id)))

	state := StateIdle
	advance := func(event Event) {
		next, err := Transition(state, event)
		if err != nil {
			logger.Warn("unexpected pipeline transition", slogError(err))
			return
		}
		state = next
		p.observer.StateChanged(id, state)
	}

	defer func() {
		if r := recover(); r != nil {
			res.fail(fmt.Errorf("pipeline panic: %v", r))
			if state != StateIdle {
				advance(EventFail)
			}
		}
		res.FinishedAt = p.clock()
		p.inflight.Add(-1)

		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, "pipeline run failed")
			logger.Warn("pipeline run failed", slogError(res.Err))
		} else {
			logger.Info("pipeline run complete", slog.Duration("latency", res.FinishedAt.Sub(res.StartedAt)))
		}
		span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
		span.End()
		p.record(ctx, res)
		p.observer.RunFinished(res)
	}()

	advance(EventStart)

	translation, err := p.stage(ctx, "translate", func(ctx context.Context) (string, error) {
		return p.translator.Translate(ctx, text, translate.BengaliToEnglish)
	})
	if err != nil {
		res.fail(fmt.Errorf("translate: %w", err))
		advance(EventFail)
		return res
	}
	res.Translation = translation
	advance(EventTranslated)

	response, err := p.stage(ctx, "generate", func(ctx context.Context) (string, error) {
		return p.generator.Generate(ctx, translation)
	})
	if err != nil {
		res.fail(fmt.Errorf("generate: %w", err))
		advance(EventFail)
		return res
	}
	advance(EventGenerated)

	bengali, err := p.stage(ctx, "back_translate", func(ctx context.Context) (string, error) {
		return p.translator.Translate(ctx, response, translate.EnglishToBengali)
	})
	if err != nil {
		res.fail(fmt.Errorf("back-translate: %w", err))
		advance(EventFail)
		return res
	}
	res.AssistantResponse = response
	res.BengaliResponse = bengali
	res.Outcome = OutcomeSuccess
	advance(EventBackTranslated)
	return res
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
	}
	return out, err
}

func (p *Pipeline) speak(ctx context.Context, res Result) {
	if p.speaker == nil || res.Outcome != OutcomeSuccess || strings.TrimSpace(res.BengaliResponse) == "" {
		return
	}
	if err := p.speaker.Play(ctx, res.BengaliResponse); err != nil {
		p.logger.Warn("playback failed", slog.String("run_id", res.RunID), slogError(err))
	}
}

func (p *Pipeline) record(ctx context.Context, res Result) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(res.Outcome)))
	if p.runs != nil {
		p.runs.Add(ctx, 1, attrs)
	}
	if p.duration != nil {
		p.duration.Record(ctx, float64(res.FinishedAt.Sub(res.StartedAt).Milliseconds()), attrs)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
