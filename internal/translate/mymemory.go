package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls a MyMemory-compatible endpoint:
// GET <endpoint>?q=<text>&langpair=<src>|<dst>.
type Client struct {
	endpoint   string
	email      string
	httpClient *http.Client
	logger     *slog.Logger
}

type response struct {
	ResponseData *struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
}

func NewClient(endpoint, email string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		email:      email,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "translate")),
	}
}

func (c *Client) Translate(ctx context.Context, text string, pair LanguagePair) (string, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", pair.String())
	if c.email != "" {
		query.Set("de", c.email)
	}
	target := c.endpoint
	if strings.Contains(target, "?") {
		target += "&" + query.Encode()
	} else {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translation service returned status %s", resp.Status)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.logger.Warn("translation response undecodable", slogError(err), slog.String("langpair", pair.String()))
		return FallbackText, nil
	}
	if decoded.ResponseData == nil || decoded.ResponseData.TranslatedText == "" {
		c.logger.Warn("translation response missing translatedText", slog.String("langpair", pair.String()))
		return FallbackText, nil
	}
	return decoded.ResponseData.TranslatedText, nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
