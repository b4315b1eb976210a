// Package generation produces assistant responses from a remote text
// generation model.
package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/loqalabs/bolo/internal/config"
)

// Request describes one completion.
type Request struct {
	Prompt       string
	MaxNewTokens int
	Temperature  float64
}

// Backend is a pluggable model endpoint. An empty string with a nil error
// means the model produced no output.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// NewBackend builds the backend selected by cfg.Mode.
func NewBackend(cfg config.GenerationConfig) (Backend, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	switch cfg.Mode {
	case "huggingface":
		return NewHuggingFaceBackend(cfg.Endpoint, cfg.Model, cfg.Token, httpClient), nil
	case "ollama":
		return NewOllamaBackend(cfg.Endpoint, cfg.Model, httpClient), nil
	case "openai":
		return NewOpenAIBackend(cfg.Endpoint, cfg.Model, cfg.Token, httpClient), nil
	case "exec":
		return NewExecBackend(cfg.Command)
	case "mock":
		return NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported generation mode %q", cfg.Mode)
	}
}
