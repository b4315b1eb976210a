package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/loqalabs/bolo/internal/bus"
	"github.com/loqalabs/bolo/internal/capture"
	"github.com/loqalabs/bolo/internal/protocol"
)

const listenHelp = `Type a Bengali sentence and press Enter to ask it.
Commands: :pause toggles playback, :stop stops it, :quit exits.`

const listenExecHelp = `Press Enter to start listening and Enter again to stop.
Commands: :pause toggles playback, :stop stops it, :quit exits.`

func runListen(ctx context.Context, args []string) error {
	flags, common := newFlagSet("listen")
	verbose := flags.Bool("v", false, "Print pipeline and playback state changes")
	_ = flags.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	p := newPrinter(os.Stdout, *verbose)
	a, err := newApp(ctx, cfg, logger, p)
	if err != nil {
		return err
	}
	defer a.close()

	var (
		engine capture.Engine
		text   *capture.TextEngine
	)
	switch cfg.Capture.Mode {
	case "exec":
		engine, err = capture.NewExecEngine(cfg.Capture.Command)
		if err != nil {
			return err
		}
		fmt.Println(listenExecHelp)
	default:
		text = capture.NewTextEngine()
		engine = text
		fmt.Println(listenHelp)
	}

	adapter := capture.NewAdapter(engine, a.pipeline.Transcript(), cfg.Capture.Locale, logger)
	defer adapter.Close()
	adapter.OnUtterance(p.Utterance)
	adapter.OnTranscriptReady(func(ctx context.Context) {
		a.pipeline.OnTranscriptReady(ctx)
	})
	toggle := &listenToggle{adapter: adapter}
	adapter.OnEnd(toggle.ended)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case ":quit", ":q":
				return nil
			case ":pause", ":p":
				if err := a.player.Toggle(); err != nil {
					p.printf("! %v\n", err)
				}
				continue
			case ":stop", ":s":
				a.player.Stop()
				continue
			}

			if text != nil {
				if line == "" {
					continue
				}
				if err := adapter.Start(ctx); err != nil {
					continue
				}
				text.Feed(line)
				_ = adapter.Stop()
				continue
			}

			if started, err := toggle.toggle(ctx); err == nil && started {
				p.printf("listening (%s)…\n", adapter.Locale())
			}
		}
	}
}

// listenToggle flips an exec capture session on Enter. A recognizer that
// exits on its own clears the flag through ended.
type listenToggle struct {
	adapter *capture.Adapter
	active  atomic.Bool
}

func (l *listenToggle) toggle(ctx context.Context) (bool, error) {
	if l.active.CompareAndSwap(true, false) {
		return false, l.adapter.Stop()
	}
	l.active.Store(true)
	if err := l.adapter.Start(ctx); err != nil {
		l.active.Store(false)
		return false, err
	}
	return true, nil
}

func (l *listenToggle) ended() { l.active.Store(false) }

func runAsk(ctx context.Context, args []string) error {
	flags, common := newFlagSet("ask")
	verbose := flags.Bool("v", false, "Print pipeline and playback state changes")
	_ = flags.Parse(args)

	query := joinArgs(flags.Args())
	if err := requireText(query, "ask"); err != nil {
		return err
	}
	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, newPrinter(os.Stdout, *verbose))
	if err != nil {
		return err
	}
	defer a.close()

	res := a.pipeline.Run(ctx, query)
	if res.Err != nil {
		return res.Err
	}
	if cfg.Client.AutoPlay {
		if err := a.player.Play(ctx, res.BengaliResponse); err != nil {
			return err
		}
		a.waitForPlayback(ctx)
	}
	return nil
}

func runSpeak(ctx context.Context, args []string) error {
	flags, common := newFlagSet("speak")
	_ = flags.Parse(args)

	text := joinArgs(flags.Args())
	if err := requireText(text, "speak"); err != nil {
		return err
	}
	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, newPrinter(os.Stdout, false))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.player.Play(ctx, text); err != nil {
		return err
	}
	a.waitForPlayback(ctx)
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	flags, common := newFlagSet("watch")
	_ = flags.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := bus.Connect(connectCtx, cfg.Bus, "bolo-watch", logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.Watch(ctx, func(subject string, data []byte) {
		fmt.Println(describe(subject, data))
	})
}

// describe renders one bus message as a single line.
func describe(subject string, data []byte) string {
	switch subject {
	case protocol.SubjectPipelineState:
		var u protocol.PipelineUpdate
		if json.Unmarshal(data, &u) == nil {
			return fmt.Sprintf("%s run %s → %s", u.Timestamp.Format(time.TimeOnly), shortID(u.RunID), u.Stage)
		}
	case protocol.SubjectPipelineResult:
		var u protocol.PipelineUpdate
		if json.Unmarshal(data, &u) == nil {
			return fmt.Sprintf("%s run %s %s: %q → %q", u.Timestamp.Format(time.TimeOnly), shortID(u.RunID), u.Outcome, u.Source, u.BengaliResponse)
		}
	case protocol.SubjectPlaybackState:
		var u protocol.PlaybackUpdate
		if json.Unmarshal(data, &u) == nil {
			line := fmt.Sprintf("%s playback %s", u.Timestamp.Format(time.TimeOnly), u.State)
			if u.Message != "" {
				line += ": " + u.Message
			}
			return line
		}
	}
	return fmt.Sprintf("%s %s", subject, data)
}
