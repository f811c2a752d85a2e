package llm

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Observer receives the outcome of every completion call.
type Observer interface {
	ObserveGeneration(label string, d time.Duration, err error)
}

type loggingModel struct {
	next     LanguageModel
	logger   *log.Logger
	observer Observer
}

// WithLogging wraps a model so that every call logs its label and
// duration. Latency is reported, never bounded.
func WithLogging(next LanguageModel, logger *log.Logger, observer Observer) LanguageModel {
	return &loggingModel{next: next, logger: logger, observer: observer}
}

func (m *loggingModel) ChatCompletion(
	ctx context.Context,
	req *ChatCompletionRequest,
) (string, error) {
	start := time.Now()
	out, err := m.next.ChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Warn("generate", "label", req.Label, "duration", elapsed, "error", err)
	} else {
		m.logger.Info("generate", "label", req.Label, "duration", elapsed, "chars", len(out))
	}
	if m.observer != nil {
		m.observer.ObserveGeneration(req.Label, elapsed, err)
	}
	return out, err
}
