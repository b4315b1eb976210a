package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execBackend struct {
	cmd []string
	mu  sync.Mutex
}

type execPayload struct {
	Prompt       string  `json:"prompt"`
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

type execResponse struct {
	Content string `json:"content"`
}

// NewExecBackend runs command once per request, writing the request as JSON
// to stdin and reading {"content": "..."} from stdout.
func NewExecBackend(command string) (Backend, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse generation command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("generation command empty")
	}
	return &execBackend{cmd: args}, nil
}

func (b *execBackend) Complete(ctx context.Context, req Request) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	input, err := json.Marshal(execPayload{
		Prompt:       req.Prompt,
		MaxNewTokens: req.MaxNewTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, b.cmd[0], b.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(input)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("generation exec command failed: %w", err)
	}

	var resp execResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		return "", fmt.Errorf("decode generation exec response: %w", err)
	}
	return resp.Content, nil
}
