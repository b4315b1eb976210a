package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/loqalabs/bolo/internal/events"
	"github.com/loqalabs/bolo/internal/synthesis"
	"github.com/mattn/go-shellwords"
)

// ExecPlayer pipes audio into an external command such as `mpg123 -q -`.
type ExecPlayer struct {
	args []string
}

func NewExecPlayer(command string) (*ExecPlayer, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse playback command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("playback command is empty")
	}
	return &ExecPlayer{args: args}, nil
}

func (p *ExecPlayer) Open(ctx context.Context, audio synthesis.Audio) (Track, error) {
	if len(audio.Content) == 0 {
		return nil, errors.New("no audio content")
	}
	if _, err := exec.LookPath(p.args[0]); err != nil {
		return nil, fmt.Errorf("playback command: %w", err)
	}
	return &execTrack{ctx: ctx, args: p.args, content: audio.Content}, nil
}

type execTrack struct {
	hub     events.Hub[TrackEventKind, TrackEvent]
	ctx     context.Context
	args    []string
	content []byte

	mu      sync.Mutex
	cmd     *exec.Cmd
	stopped bool
}

func (t *execTrack) Subscribe(kind TrackEventKind, handler func(TrackEvent)) func() {
	return t.hub.Subscribe(kind, handler)
}

func (t *execTrack) Play() error {
	t.mu.Lock()
	if t.cmd != nil || t.stopped {
		t.mu.Unlock()
		return errors.New("track already played")
	}
	cmd := exec.CommandContext(t.ctx, t.args[0], t.args[1:]...)
	cmd.Stdin = bytes.NewReader(t.content)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.mu.Unlock()
		return fmt.Errorf("start player: %w", err)
	}
	t.cmd = cmd
	t.mu.Unlock()

	t.emit(TrackStarted, nil)
	go func() {
		err := cmd.Wait()
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		switch {
		case stopped:
		case err != nil:
			t.emit(TrackError, fmt.Errorf("player exited: %w: %s", err, bytes.TrimSpace(stderr.Bytes())))
		default:
			t.emit(TrackEnded, nil)
		}
	}()
	return nil
}

func (t *execTrack) Pause() error {
	p, err := t.process()
	if err != nil {
		return err
	}
	if err := pauseProcess(p); err != nil {
		return err
	}
	t.emit(TrackPaused, nil)
	return nil
}

func (t *execTrack) Resume() error {
	p, err := t.process()
	if err != nil {
		return err
	}
	if err := resumeProcess(p); err != nil {
		return err
	}
	t.emit(TrackResumed, nil)
	return nil
}

func (t *execTrack) Stop() error {
	t.mu.Lock()
	t.stopped = true
	cmd := t.cmd
	t.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (t *execTrack) process() (*os.Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cmd == nil || t.cmd.Process == nil || t.stopped {
		return nil, errors.New("track is not playing")
	}
	return t.cmd.Process, nil
}

func (t *execTrack) emit(kind TrackEventKind, err error) {
	t.hub.Emit(kind, TrackEvent{Kind: kind, Err: err})
}
