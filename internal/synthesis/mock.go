package synthesis

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	mockSampleRate  = 16000
	mockRuneSamples = mockSampleRate / 20
	mockMaxSamples  = mockSampleRate * 10
)

type mockSynth struct{}

// NewMockSynthesizer returns silent WAV audio whose length grows with the
// text, 50ms per character up to ten seconds.
func NewMockSynthesizer() Synthesizer { return mockSynth{} }

func (mockSynth) Synthesize(ctx context.Context, text string, _ Voice) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	samples := utf8.RuneCountInString(text) * mockRuneSamples
	if samples > mockMaxSamples {
		samples = mockMaxSamples
	}
	content, err := silentWAV(samples)
	if err != nil {
		return Audio{}, err
	}
	return Audio{Content: content, ContentType: "audio/wav"}, nil
}

func silentWAV(samples int) ([]byte, error) {
	file, err := os.CreateTemp("", "bolo_tts_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	buffer := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: mockSampleRate},
		Data:   make([]int, samples),
	}
	enc := wav.NewEncoder(file, mockSampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}
	return os.ReadFile(file.Name())
}
