package generation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/bolo/internal/config"
)

const (
	// FallbackNoResponse replaces an empty model output.
	FallbackNoResponse = "No response from AI"
	// FallbackTransport replaces the output of a failed request.
	FallbackTransport = "Error getting response"
)

// Client applies the fallback policy over a Backend. Generate never returns
// a non-nil error; failures surface as fallback text.
type Client struct {
	backend      Backend
	maxNewTokens int
	temperature  float64
	timeout      time.Duration
	logger       *slog.Logger
}

func NewClient(backend Backend, cfg config.GenerationConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend:      backend,
		maxNewTokens: cfg.MaxNewTokens,
		temperature:  cfg.Temperature,
		timeout:      time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:       logger.With(slog.String("component", "generation"), slog.String("mode", cfg.Mode)),
	}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.backend.Complete(ctx, Request{
		Prompt:       prompt,
		MaxNewTokens: c.maxNewTokens,
		Temperature:  c.temperature,
	})
	if err != nil {
		c.logger.Warn("generation request failed", slogError(err))
		return FallbackTransport, nil
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("generation returned no output")
		return FallbackNoResponse, nil
	}
	c.logger.Debug("generation complete", slog.Duration("latency", time.Since(start)))
	return text, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
