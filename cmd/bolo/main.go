package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/loqalabs/bolo/internal/config"
)

var version = "0.1.0-dev"

const usage = `usage: bolo <command> [flags]

commands:
  listen   capture speech and answer each utterance aloud
  ask      run one query and print (and play) the answer
  speak    synthesize and play Bengali text
  watch    print pipeline and playback updates from the bus
  version  print the version`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "listen":
		err = runListen(ctx, os.Args[2:])
	case "ask":
		err = runAsk(ctx, os.Args[2:])
	case "speak":
		err = runSpeak(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every subcommand accepts.
type commonFlags struct {
	configPath string
	envFile    string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fsFlags := flag.NewFlagSet(name, flag.ExitOnError)
	c := &commonFlags{}
	fsFlags.StringVar(&c.configPath, "config", os.Getenv("BOLO_CONFIG"), "Path to configuration file")
	fsFlags.StringVar(&c.envFile, "env-file", ".env", "Dotenv file loaded before configuration")
	return fsFlags, c
}

// load reads the env file and configuration and builds a stderr logger so
// the terminal output stays readable.
func (c *commonFlags) load() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("load %s: %w", c.envFile, err)
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.Telemetry.Level()
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
