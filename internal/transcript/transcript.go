// Package transcript accumulates recognized speech fragments until a
// pipeline run consumes them.
package transcript

import (
	"strings"
	"sync"
)

// Transcript is safe for concurrent use. Take reads and clears in one step so
// a fragment appended concurrently lands either in the taken snapshot or in
// the next one, never in both and never lost.
type Transcript struct {
	mu    sync.Mutex
	parts []string
}

// Append adds one recognized fragment. Blank fragments are ignored.
func (t *Transcript) Append(fragment string) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return
	}
	t.mu.Lock()
	t.parts = append(t.parts, fragment)
	t.mu.Unlock()
}

// String returns the accumulated text joined with single spaces.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.parts, " ")
}

// Empty reports whether nothing but whitespace has been accumulated.
func (t *Transcript) Empty() bool {
	return strings.TrimSpace(t.String()) == ""
}

// Take returns the accumulated text and clears the accumulator.
func (t *Transcript) Take() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	text := strings.Join(t.parts, " ")
	t.parts = nil
	return text
}
