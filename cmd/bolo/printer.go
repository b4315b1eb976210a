package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/playback"
)

// printer renders pipeline results and playback problems on the terminal.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	return &printer{w: w, verbose: verbose}
}

func (p *printer) StateChanged(runID string, state pipeline.State) {
	if !p.verbose {
		return
	}
	p.printf("· %s %s\n", shortID(runID), state)
}

func (p *printer) RunFinished(res pipeline.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\nBangla Query:          %s\n", res.Source)
	fmt.Fprintf(p.w, "English Translation:   %s\n", res.Translation)
	fmt.Fprintf(p.w, "AI Response (English): %s\n", res.AssistantResponse)
	fmt.Fprintf(p.w, "AI Response (Bangla):  %s\n", res.BengaliResponse)
}

func (p *printer) PlaybackChanged(s playback.Status) {
	if s.Message != "" {
		p.printf("! %s\n", s.Message)
		return
	}
	if p.verbose {
		p.printf("♪ %s\n", s.State)
	}
}

func (p *printer) Utterance(text string) {
	p.printf("… %s\n", text)
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
