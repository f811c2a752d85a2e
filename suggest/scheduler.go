package suggest

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"node.town/triage/convo"
)

const (
	DefaultInterval     = 5 * time.Second
	DefaultPollInterval = 1 * time.Second
)

type Matcher interface {
	Match(text string) []convo.Suggestion
}

type Emitter interface {
	Send(v any) error
}

type Event struct {
	Type        string             `json:"type"`
	Suggestions []convo.Suggestion `json:"suggestions"`
}

type Scheduler struct {
	buffer    *convo.Buffer
	generator Generator
	matcher   Matcher
	emitter   Emitter
	logger    *log.Logger

	Interval     time.Duration
	PollInterval time.Duration
	Now          func() time.Time

	lastSuggestionAt  time.Time
	lastObservedCount int
}

// NewScheduler starts the cooldown at the time of creation, so the first
// batch of a session comes no earlier than Interval after it starts.
func NewScheduler(
	buffer *convo.Buffer,
	generator Generator,
	matcher Matcher,
	emitter Emitter,
	logger *log.Logger,
	now func() time.Time,
) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		buffer:           buffer,
		generator:        generator,
		matcher:          matcher,
		emitter:          emitter,
		logger:           logger,
		Interval:         DefaultInterval,
		PollInterval:     DefaultPollInterval,
		Now:              now,
		lastSuggestionAt: now(),
	}
}

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.Now())
		}
	}
}

// Tick evaluates the fire condition once and reports whether a batch was
// delivered.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) bool {
	count := len(s.buffer.Recent(now))
	if count <= s.lastObservedCount || now.Sub(s.lastSuggestionAt) < s.Interval {
		return false
	}

	conversation := s.buffer.FormatForSuggestion(now)
	if conversation == "" {
		return false
	}

	s.logger.Debug("suggest", "utterances", count, "previous", s.lastObservedCount)

	batch, err := s.generator.Generate(ctx, s.buffer.Context(), conversation)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		s.logger.Warn("suggestion generation failed", "error", err)
		return false
	}

	if s.matcher != nil {
		batch = append(batch, s.matcher.Match(conversation)...)
	}

	s.buffer.SetSuggestions(batch, now)
	s.lastSuggestionAt = now
	s.lastObservedCount = count

	err = s.emitter.Send(Event{Type: "suggestions", Suggestions: batch})
	if err != nil {
		s.logger.Warn("send suggestions", "error", err)
	}
	return true
}
