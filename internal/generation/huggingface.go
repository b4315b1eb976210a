package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type huggingFaceBackend struct {
	url        string
	token      string
	httpClient *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFaceBackend targets the Inference API route <endpoint>/models/<model>.
func NewHuggingFaceBackend(endpoint, model, token string, httpClient *http.Client) Backend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &huggingFaceBackend{
		url:        strings.TrimRight(endpoint, "/") + "/models/" + model,
		token:      token,
		httpClient: httpClient,
	}
}

func (b *huggingFaceBackend) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: req.Prompt,
		Parameters: hfParameters{
			MaxNewTokens: req.MaxNewTokens,
			Temperature:  req.Temperature,
		},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("huggingface returned status %s", resp.Status)
	}

	// A 2xx body without a generation array (e.g. {"estimated_time":20})
	// counts as no output.
	var generations []hfGeneration
	if err := json.NewDecoder(resp.Body).Decode(&generations); err != nil {
		return "", nil
	}
	if len(generations) == 0 {
		return "", nil
	}
	return generations[0].GeneratedText, nil
}
