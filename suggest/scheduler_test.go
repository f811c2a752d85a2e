package suggest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/triage/convo"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string
	err   error
	out   []convo.Suggestion
}

func (f *fakeGenerator) Generate(
	_ context.Context,
	_ string,
	conversation string,
) ([]convo.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversation)
	if f.err != nil {
		return nil, f.err
	}
	return append([]convo.Suggestion(nil), f.out...), nil
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeEmitter) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, v)
	return nil
}

type matcherFunc func(string) []convo.Suggestion

func (m matcherFunc) Match(text string) []convo.Suggestion { return m(text) }

func speaker(n int) *int { return &n }

func newTestScheduler(
	t *testing.T,
	start time.Time,
	gen Generator,
	matcher Matcher,
) (*Scheduler, *convo.Buffer, *fakeEmitter) {
	t.Helper()
	buf := convo.NewBuffer(convo.DefaultCapacity, convo.DefaultWindow, "dossier")
	em := &fakeEmitter{}
	s := NewScheduler(buf, gen, matcher, em, log.New(io.Discard), func() time.Time {
		return start
	})
	return s, buf, em
}

func TestTickDebounceScenario(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{out: []convo.Suggestion{{Kind: convo.KindInfo, Text: "x", Priority: convo.PriorityLow}}}
	s, buf, em := newTestScheduler(t, t0.Add(-10*time.Second), gen, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		buf.Add(speaker(i%2), "zin", t0.Add(-time.Duration(3-i)*time.Second))
	}

	assert.True(t, s.Tick(ctx, t0), "fires with growth and elapsed cooldown")
	assert.False(t, s.Tick(ctx, t0.Add(1*time.Second)), "no growth")

	buf.Add(speaker(0), "nieuw", t0.Add(2*time.Second))
	assert.False(t, s.Tick(ctx, t0.Add(3*time.Second)), "cooldown not elapsed")
	assert.True(t, s.Tick(ctx, t0.Add(6*time.Second)), "growth still present and cooldown elapsed")

	assert.Equal(t, 2, gen.Calls())
	assert.Len(t, em.events, 2)
	assert.Equal(t, t0.Add(6*time.Second), buf.LastSuggestionAt())
}

func TestTickFailureLeavesCountersForRetry(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{err: errors.New("upstream 500")}
	s, buf, em := newTestScheduler(t, t0.Add(-10*time.Second), gen, nil)
	ctx := context.Background()

	buf.Add(speaker(1), "ik ben benauwd", t0)

	assert.False(t, s.Tick(ctx, t0))
	assert.Empty(t, em.events)
	assert.Empty(t, buf.Suggestions())

	gen.mu.Lock()
	gen.err = nil
	gen.out = []convo.Suggestion{{Kind: convo.KindWarning, Text: "Vraag naar benauwdheid", Priority: convo.PriorityHigh}}
	gen.mu.Unlock()

	assert.True(t, s.Tick(ctx, t0.Add(time.Second)), "same content retried")
	assert.Equal(t, 2, gen.Calls())
	require.Len(t, em.events, 1)
}

func TestTickNeverFiresTwiceWithinInterval(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{}
	s, buf, _ := newTestScheduler(t, t0.Add(-time.Minute), gen, nil)
	ctx := context.Background()

	var fired []time.Time
	for i := 0; i < 30; i++ {
		now := t0.Add(time.Duration(i) * time.Second)
		buf.Add(speaker(0), "woord", now)
		if s.Tick(ctx, now) {
			fired = append(fired, now)
		}
	}

	require.NotEmpty(t, fired)
	for i := 1; i < len(fired); i++ {
		assert.GreaterOrEqual(t, fired[i].Sub(fired[i-1]), DefaultInterval)
	}
}

func TestTickAppendsChecklistMatches(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	gen := &fakeGenerator{out: []convo.Suggestion{{Kind: convo.KindQuestion, Text: "Sinds wanneer?", Priority: convo.PriorityMedium}}}
	matcher := matcherFunc(func(text string) []convo.Suggestion {
		assert.Contains(t, text, "Speaker 1: pijn op de borst")
		return []convo.Suggestion{{Kind: convo.KindProtocol, Text: "Relevant protocol: Acute zorg", ProtocolID: "life_threatening_1"}}
	})
	s, buf, em := newTestScheduler(t, t0.Add(-10*time.Second), gen, matcher)

	buf.Add(speaker(1), "pijn op de borst", t0)
	require.True(t, s.Tick(context.Background(), t0))

	got := buf.Suggestions()
	require.Len(t, got, 2)
	assert.Equal(t, convo.KindQuestion, got[0].Kind)
	assert.Equal(t, "life_threatening_1", got[1].ProtocolID)

	require.Len(t, em.events, 1)
	ev := em.events[0].(Event)
	assert.Equal(t, "suggestions", ev.Type)
	assert.Equal(t, got, ev.Suggestions)
}

type blockingGenerator struct {
	cancel context.CancelFunc
}

func (b blockingGenerator) Generate(context.Context, string, string) ([]convo.Suggestion, error) {
	b.cancel()
	return []convo.Suggestion{{Kind: convo.KindInfo, Text: "te laat"}}, nil
}

func TestTickDiscardsResultAfterCancel(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, buf, em := newTestScheduler(t, t0.Add(-10*time.Second), blockingGenerator{cancel: cancel}, nil)
	buf.Add(speaker(0), "hallo", t0)

	assert.False(t, s.Tick(ctx, t0))
	assert.Empty(t, em.events)
	assert.Empty(t, buf.Suggestions())
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _ := newTestScheduler(t, time.Now(), &fakeGenerator{}, nil)
	s.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
