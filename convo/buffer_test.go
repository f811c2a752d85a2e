package convo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func speaker(n int) *int { return &n }

func TestBufferEvictsOldestBeyondCapacity(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBuffer(50, 300*time.Second, "")

	for i := 1; i <= 60; i++ {
		b.Add(speaker(i%2), fmt.Sprintf("utterance %d", i), base.Add(time.Duration(i)*time.Second))
		require.LessOrEqual(t, b.Len(), 50)
	}

	history := b.FullHistory()
	require.Len(t, history, 50)
	assert.Equal(t, "utterance 11", history[0].Text)
	assert.Equal(t, "utterance 60", history[49].Text)
	for i, u := range history {
		assert.Equal(t, fmt.Sprintf("utterance %d", i+11), u.Text)
	}
}

func TestBufferRecentFiltersWithoutEvicting(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBuffer(50, 300*time.Second, "")

	b.Add(speaker(0), "first", t0)
	b.Add(speaker(1), "second", t0.Add(301*time.Second))

	recent := b.Recent(t0.Add(301 * time.Second))
	require.Len(t, recent, 1)
	assert.Equal(t, "second", recent[0].Text)

	assert.Len(t, b.FullHistory(), 2)
}

func TestBufferRecentBoundaryIsExclusive(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBuffer(10, 10*time.Second, "")

	b.Add(nil, "edge", t0)
	b.Add(nil, "inside", t0.Add(time.Second))

	recent := b.Recent(t0.Add(10 * time.Second))
	require.Len(t, recent, 1)
	assert.Equal(t, "inside", recent[0].Text)
}

func TestBufferRecentIsSubsetInOrder(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBuffer(20, 30*time.Second, "")

	// arrival order is not chronological on purpose
	offsets := []int{0, 40, 10, 50, 35, 5, 45}
	for i, off := range offsets {
		b.Add(speaker(i), fmt.Sprintf("u%d", i), t0.Add(time.Duration(off)*time.Second))
	}

	now := t0.Add(60 * time.Second)
	var want []string
	for _, u := range b.FullHistory() {
		if u.CapturedAt.After(now.Add(-30 * time.Second)) {
			want = append(want, u.Text)
		}
	}

	var got []string
	for _, u := range b.Recent(now) {
		got = append(got, u.Text)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"u1", "u3", "u4", "u6"}, got)
}

func TestFormatForSuggestion(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := NewBuffer(10, time.Minute, "")
	assert.Equal(t, "", b.FormatForSuggestion(t0))

	b.Add(speaker(0), "Goedemorgen", t0)
	b.Add(nil, "Hallo", t0.Add(time.Second))

	assert.Equal(t,
		"Speaker 0: Goedemorgen\nUnknown: Hallo",
		b.FormatForSuggestion(t0.Add(2*time.Second)),
	)
	assert.Equal(t, "", b.FormatForSuggestion(t0.Add(2*time.Hour)))
}

func TestFormatForTranscript(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 5, 7, 0, time.UTC)
	b := NewBuffer(10, time.Second, "")
	b.Add(speaker(1), "Ik ben benauwd", t0)
	b.Add(nil, "Sinds wanneer?", t0.Add(time.Hour))

	assert.Equal(t,
		"[09:05:07] Speaker 1: Ik ben benauwd\n[10:05:07] Unknown: Sinds wanneer?",
		b.FormatForTranscript(),
	)
}

func TestSetSuggestionsReplacesBatch(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	b := NewBuffer(0, 0, "context")
	assert.Equal(t, "context", b.Context())
	assert.Equal(t, DefaultWindow, b.Window())

	b.SetSuggestions([]Suggestion{{Kind: KindInfo, Text: "a"}, {Kind: KindWarning, Text: "b"}}, t0)
	b.SetSuggestions([]Suggestion{{Kind: KindQuestion, Text: "c"}}, t0.Add(time.Second))

	got := b.Suggestions()
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Text)
	assert.Equal(t, t0.Add(time.Second), b.LastSuggestionAt())

	got[0].Text = "mutated"
	assert.Equal(t, "c", b.Suggestions()[0].Text)
}

func TestParseKindAndPriority(t *testing.T) {
	k, ok := ParseKind(" Warning ")
	assert.True(t, ok)
	assert.Equal(t, KindWarning, k)

	_, ok = ParseKind("alert")
	assert.False(t, ok)

	p, ok := ParsePriority("HIGH")
	assert.True(t, ok)
	assert.Equal(t, PriorityHigh, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}
