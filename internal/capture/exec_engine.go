package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/loqalabs/bolo/internal/events"
	"github.com/mattn/go-shellwords"
)

// ExecEngine runs an external recognizer for each capture session. The
// command receives `--language <locale>` and writes one JSON object per line:
//
//	{"alternatives":[{"transcript":"...","confidence":0.9}]}
//	{"error":"..."}
//
// Process exit ends the session.
type ExecEngine struct {
	cmd []string
	hub events.Hub[EventKind, Event]

	mu       sync.Mutex
	proc     *exec.Cmd
	stopping bool
}

type execMessage struct {
	Alternatives []struct {
		Transcript string  `json:"transcript"`
		Confidence float64 `json:"confidence"`
	} `json:"alternatives"`
	Error string `json:"error"`
}

func NewExecEngine(command string) (*ExecEngine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command empty")
	}
	return &ExecEngine{cmd: args}, nil
}

func (e *ExecEngine) Subscribe(kind EventKind, handler func(Event)) func() {
	return e.hub.Subscribe(kind, handler)
}

func (e *ExecEngine) Start(ctx context.Context, locale string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc != nil {
		return ErrAlreadyListening
	}

	args := append([]string{}, e.cmd[1:]...)
	if locale != "" {
		args = append(args, "--language", locale)
	}
	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture command: %w", err)
	}
	e.proc = cmd
	e.stopping = false

	go e.read(cmd, bufio.NewScanner(stdout))
	return nil
}

func (e *ExecEngine) read(cmd *exec.Cmd, scanner *bufio.Scanner) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg execMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			e.hub.Emit(EventError, Event{Kind: EventError, Err: fmt.Errorf("decode capture output: %w", err)})
			continue
		}
		if msg.Error != "" {
			e.hub.Emit(EventError, Event{Kind: EventError, Err: errors.New(msg.Error)})
			continue
		}
		alternatives := make([]Alternative, 0, len(msg.Alternatives))
		for _, alt := range msg.Alternatives {
			alternatives = append(alternatives, Alternative{Transcript: alt.Transcript, Confidence: alt.Confidence})
		}
		e.hub.Emit(EventResult, Event{Kind: EventResult, Alternatives: alternatives})
	}
	if err := scanner.Err(); err != nil {
		e.hub.Emit(EventError, Event{Kind: EventError, Err: err})
	}

	waitErr := cmd.Wait()

	e.mu.Lock()
	stopping := e.stopping
	e.proc = nil
	e.mu.Unlock()

	if waitErr != nil && !stopping {
		e.hub.Emit(EventError, Event{Kind: EventError, Err: fmt.Errorf("capture command failed: %w", waitErr)})
	}
	e.hub.Emit(EventEnd, Event{Kind: EventEnd})
}

// Stop asks the recognizer to finish; the end event follows process exit.
func (e *ExecEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc == nil || e.proc.Process == nil {
		return nil
	}
	e.stopping = true
	if err := e.proc.Process.Signal(os.Interrupt); err != nil {
		if err := e.proc.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}
