package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/loqalabs/bolo/internal/protocol"
	"github.com/loqalabs/bolo/internal/synthesis"
)

const (
	maxBodyBytes = 64 << 10

	msgNoText          = "No text provided"
	msgSynthesisFailed = "Text-to-speech conversion failed: "
)

type handlers struct {
	svc    Services
	logger *slog.Logger
}

func (h *handlers) synthesize(w http.ResponseWriter, r *http.Request) {
	var req protocol.SynthesisRequest
	if !decodeText(w, r, &req, &req.Text) {
		return
	}

	audio, err := h.svc.Synthesis.Synthesize(r.Context(), req.Text)
	if errors.Is(err, synthesis.ErrNoText) {
		writeError(w, http.StatusBadRequest, msgNoText)
		return
	}
	if err != nil {
		h.logger.Error("text-to-speech failed", slogError(err))
		writeError(w, http.StatusInternalServerError, msgSynthesisFailed+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, protocol.SynthesisResponse{
		AudioContent: base64.StdEncoding.EncodeToString(audio.Content),
		ContentType:  audio.ContentType,
	})
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req protocol.QueryRequest
	if !decodeText(w, r, &req, &req.Text) {
		return
	}

	res := h.svc.Pipeline.Run(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, protocol.QueryResponse{
		RunID:             res.RunID,
		Source:            res.Source,
		Translation:       res.Translation,
		AssistantResponse: res.AssistantResponse,
		BengaliResponse:   res.BengaliResponse,
		State:             string(res.Outcome),
	})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) ready(w http.ResponseWriter, _ *http.Request) {
	var pending []string
	for _, c := range h.svc.Checks {
		if c.Ready != nil && !c.Ready() {
			pending = append(pending, c.Name)
		}
	}
	if len(pending) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + strings.Join(pending, ",")))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// decodeText reads a JSON body into v and rejects it with 400 unless text
// is non-blank afterwards.
func decodeText(w http.ResponseWriter, r *http.Request, v any, text *string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil || strings.TrimSpace(*text) == "" {
		writeError(w, http.StatusBadRequest, msgNoText)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: msg})
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
