package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/bolo/internal/protocol"
)

// Client calls a remote POST /api/tts endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(serverURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        strings.TrimRight(serverURL, "/") + "/api/tts",
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Synthesize(ctx context.Context, text string) (Audio, error) {
	body, err := json.Marshal(protocol.SynthesisRequest{Text: text})
	if err != nil {
		return Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr protocol.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return Audio{}, errors.New(apiErr.Error)
		}
		return Audio{}, fmt.Errorf("synthesis endpoint returned status %s", resp.Status)
	}

	var payload protocol.SynthesisResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Audio{}, fmt.Errorf("decode synthesis response: %w", err)
	}
	content, err := base64.StdEncoding.DecodeString(payload.AudioContent)
	if err != nil {
		return Audio{}, fmt.Errorf("decode audio content: %w", err)
	}
	if len(content) == 0 {
		return Audio{}, errors.New("synthesis endpoint returned empty audio")
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return Audio{Content: content, ContentType: contentType}, nil
}
