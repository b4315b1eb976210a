package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/bolo/internal/pipeline"
	"github.com/loqalabs/bolo/internal/playback"
	"github.com/loqalabs/bolo/internal/protocol"
)

func TestDescribeResult(t *testing.T) {
	data, _ := json.Marshal(protocol.PipelineUpdate{
		RunID:           "0123456789abcdef",
		Outcome:         "success",
		Source:          "আমি কেমন আছি",
		BengaliResponse: "আপনি ভালো আছেন",
		Timestamp:       time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	line := describe(protocol.SubjectPipelineResult, data)
	if !strings.Contains(line, "01234567 success") || !strings.Contains(line, "আপনি ভালো আছেন") {
		t.Fatalf("unexpected line %q", line)
	}
}

func TestDescribeUnknownSubject(t *testing.T) {
	if got := describe("bolo.other", []byte("raw")); got != "bolo.other raw" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestPrinterShowsResultAndErrors(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)
	p.StateChanged("run", pipeline.StateGenerating)
	p.RunFinished(pipeline.Result{Source: "আমি কেমন আছি", BengaliResponse: pipeline.ErrorBengaliResponse})
	p.PlaybackChanged(playback.Status{State: playback.StatePlaying})
	p.PlaybackChanged(playback.Status{State: playback.StateIdle, Message: "Could not play the answer"})

	out := buf.String()
	if strings.Contains(out, "generating") || strings.Contains(out, "playing") {
		t.Fatalf("quiet printer printed state changes: %q", out)
	}
	if !strings.Contains(out, "AI Response (Bangla):  ত্রুটি ঘটেছে") {
		t.Fatalf("missing Bengali response: %q", out)
	}
	if !strings.Contains(out, "! Could not play the answer") {
		t.Fatalf("missing playback error: %q", out)
	}
}
