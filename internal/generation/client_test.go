package generation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loqalabs/bolo/internal/config"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig(mode string) config.GenerationConfig {
	cfg := config.Default().Generation
	cfg.Mode = mode
	return cfg
}

type stubBackend struct {
	text string
	err  error
	got  Request
}

func (s *stubBackend) Complete(_ context.Context, req Request) (string, error) {
	s.got = req
	return s.text, s.err
}

func TestClientPassesParameters(t *testing.T) {
	backend := &stubBackend{text: "You are fine"}
	client := NewClient(backend, testConfig("mock"), newLogger())

	out, err := client.Generate(context.Background(), "How am I")
	require.NoError(t, err)
	require.Equal(t, "You are fine", out)
	require.Equal(t, Request{Prompt: "How am I", MaxNewTokens: 100, Temperature: 0.7}, backend.got)
}

func TestClientFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		want    string
	}{
		{name: "empty output", backend: &stubBackend{text: ""}, want: "No response from AI"},
		{name: "whitespace output", backend: &stubBackend{text: "  \n"}, want: "No response from AI"},
		{name: "backend error", backend: &stubBackend{err: errors.New("dial tcp: refused")}, want: "Error getting response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := NewClient(tc.backend, testConfig("mock"), newLogger()).Generate(context.Background(), "hi")
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestHuggingFaceRequestShape(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody hfRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `[{"generated_text":"You are fine"}]`)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig("huggingface")
	cfg.Endpoint = srv.URL
	cfg.Token = "hf_secret"
	backend, err := NewBackend(cfg)
	require.NoError(t, err)

	out, err := NewClient(backend, cfg, newLogger()).Generate(context.Background(), "How am I")
	require.NoError(t, err)
	require.Equal(t, "You are fine", out)
	require.Equal(t, "/models/HuggingFaceH4/zephyr-7b-beta", gotPath)
	require.Equal(t, "Bearer hf_secret", gotAuth)
	require.Equal(t, "How am I", gotBody.Inputs)
	require.Equal(t, 100, gotBody.Parameters.MaxNewTokens)
	require.Equal(t, 0.7, gotBody.Parameters.Temperature)
}

func TestHuggingFaceEmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig("huggingface")
	cfg.Endpoint = srv.URL
	backend, err := NewBackend(cfg)
	require.NoError(t, err)

	out, err := NewClient(backend, cfg, newLogger()).Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "No response from AI", out)
}

func TestHuggingFaceNonArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"estimated_time": 20}`)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig("huggingface")
	cfg.Endpoint = srv.URL
	backend, err := NewBackend(cfg)
	require.NoError(t, err)

	out, err := NewClient(backend, cfg, newLogger()).Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "No response from AI", out)
}

func TestHuggingFaceFailuresDegrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Model is currently loading"}`)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig("huggingface")
	cfg.Endpoint = srv.URL
	backend, err := NewBackend(cfg)
	require.NoError(t, err)
	out, err := NewClient(backend, cfg, newLogger()).Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "Error getting response", out)

	srv.Close()
	out, err = NewClient(backend, cfg, newLogger()).Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "Error getting response", out)
}

func TestOllamaAccumulatesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{\"response\":\"You \",\"done\":false}\n\n{\"response\":\"are fine\",\"done\":true}\n")
	}))
	t.Cleanup(srv.Close)

	out, err := NewOllamaBackend(srv.URL, "", nil).Complete(context.Background(), Request{Prompt: "How am I"})
	require.NoError(t, err)
	require.Equal(t, "You are fine", out)
}

func TestOpenAIBackend(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"You are fine"},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(srv.Close)

	out, err := NewOpenAIBackend(srv.URL+"/v1", "gpt-4o-mini", "sk-test", nil).Complete(context.Background(), Request{Prompt: "How am I", MaxNewTokens: 50})
	require.NoError(t, err)
	require.Equal(t, "You are fine", out)
	require.Equal(t, "/v1/chat/completions", gotPath)
}

func TestMockBackendHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockBackend().Complete(ctx, Request{Prompt: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewBackendRejectsUnknownMode(t *testing.T) {
	_, err := NewBackend(testConfig("bard"))
	require.Error(t, err)
}
