package generation

import (
	"context"
	"strings"
	"time"
)

type mockBackend struct{}

func NewMockBackend() Backend { return mockBackend{} }

func (mockBackend) Complete(ctx context.Context, req Request) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return "[mock completion for " + strings.TrimSpace(req.Prompt) + "]", nil
}
