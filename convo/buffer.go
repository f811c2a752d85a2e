// Package convo holds the rolling conversation of a live session: the
// utterances relayed from the transcription service and the last batch of
// suggestions computed from them.
package convo

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCapacity = 50
	DefaultWindow   = 300 * time.Second
)

// Utterance is one transcribed unit of speech. Speaker is nil when the
// transcription service did not tag the words.
type Utterance struct {
	Speaker    *int
	Text       string
	CapturedAt time.Time
}

func (u Utterance) SpeakerLabel() string {
	if u.Speaker == nil {
		return "Unknown"
	}
	return fmt.Sprintf("Speaker %d", *u.Speaker)
}

// Buffer is a bounded store of utterances in arrival order. Capacity
// eviction happens on Add; the recency window is applied only when reading.
type Buffer struct {
	mu          sync.Mutex
	utterances  []Utterance
	capacity    int
	window      time.Duration
	context     string
	suggestions []Suggestion

	lastSuggestionAt time.Time
}

func NewBuffer(capacity int, window time.Duration, patientContext string) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Buffer{
		utterances: make([]Utterance, 0, capacity),
		capacity:   capacity,
		window:     window,
		context:    patientContext,
	}
}

func (b *Buffer) Add(speaker *int, text string, ts time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.utterances = append(b.utterances, Utterance{
		Speaker:    speaker,
		Text:       text,
		CapturedAt: ts,
	})
	if over := len(b.utterances) - b.capacity; over > 0 {
		copy(b.utterances, b.utterances[over:])
		b.utterances = b.utterances[:b.capacity]
	}
}

// Recent returns the utterances captured strictly after now minus the
// window, in insertion order. Nothing is evicted.
func (b *Buffer) Recent(now time.Time) []Utterance {
	cutoff := now.Add(-b.window)

	b.mu.Lock()
	defer b.mu.Unlock()

	recent := make([]Utterance, 0, len(b.utterances))
	for _, u := range b.utterances {
		if u.CapturedAt.After(cutoff) {
			recent = append(recent, u)
		}
	}
	return recent
}

func (b *Buffer) FullHistory() []Utterance {
	b.mu.Lock()
	defer b.mu.Unlock()

	history := make([]Utterance, len(b.utterances))
	copy(history, b.utterances)
	return history
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.utterances)
}

// FormatForSuggestion renders the recent conversation one utterance per
// line as "Speaker N: text".
func (b *Buffer) FormatForSuggestion(now time.Time) string {
	recent := b.Recent(now)
	lines := make([]string, 0, len(recent))
	for _, u := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", u.SpeakerLabel(), u.Text))
	}
	return strings.Join(lines, "\n")
}

// FormatForTranscript renders the whole retained history with a clock
// prefix, for summaries.
func (b *Buffer) FormatForTranscript() string {
	history := b.FullHistory()
	lines := make([]string, 0, len(history))
	for _, u := range history {
		lines = append(lines, fmt.Sprintf(
			"[%s] %s: %s",
			u.CapturedAt.Format(time.TimeOnly),
			u.SpeakerLabel(),
			u.Text,
		))
	}
	return strings.Join(lines, "\n")
}

func (b *Buffer) Context() string {
	return b.context
}

func (b *Buffer) Window() time.Duration {
	return b.window
}

// SetSuggestions replaces the current batch wholesale.
func (b *Buffer) SetSuggestions(batch []Suggestion, at time.Time) {
	cp := make([]Suggestion, len(batch))
	copy(cp, batch)

	b.mu.Lock()
	b.suggestions = cp
	b.lastSuggestionAt = at
	b.mu.Unlock()
}

func (b *Buffer) Suggestions() []Suggestion {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]Suggestion, len(b.suggestions))
	copy(cp, b.suggestions)
	return cp
}

func (b *Buffer) LastSuggestionAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSuggestionAt
}
