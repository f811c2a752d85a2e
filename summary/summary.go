// Package summary turns a transcript or dossier into a generated text and
// reports the lifecycle of that generation as client events.
package summary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"node.town/triage/llm"
)

type Kind string

const (
	KindReport   Kind = "report"
	KindFollowup Kind = "followup"
	KindDossier  Kind = "ecd"
)

var ErrUnknownKind = errors.New("unknown summary type")

// ParseKind maps a client summary_type onto a Kind. An empty value means
// report.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindReport, nil
	case KindReport, KindFollowup:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) prefix() string {
	if k == KindDossier {
		return "ecd_summary"
	}
	return "conversation_summary"
}

type Event struct {
	Type    string `json:"type"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Emitter interface {
	Send(v any) error
}

type Dispatcher struct {
	model  llm.LanguageModel
	logger *log.Logger

	Temperature float32
}

func NewDispatcher(model llm.LanguageModel, logger *log.Logger) *Dispatcher {
	return &Dispatcher{model: model, logger: logger, Temperature: 0.7}
}

// Generate renders the kind's prompt around input and returns the model's
// text. It emits nothing.
func (d *Dispatcher) Generate(ctx context.Context, kind Kind, input string) (string, error) {
	p, ok := prompts[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var user bytes.Buffer
	if err := p.user.Execute(&user, input); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", kind, err)
	}

	req := (&llm.ChatCompletionRequest{
		Label:        string(kind),
		SystemPrompt: p.system,
		Temperature:  d.Temperature,
	}).WithUserMessage(user.String())

	out, err := d.model.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate %s summary: %w", kind, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("generate %s summary: %w", kind, llm.ErrEmptyCompletion)
	}
	return out, nil
}

// Dispatch emits <prefix>_start, runs the generation and then emits
// exactly one of <prefix>_complete or <prefix>_error. The returned error
// is only ever a delivery failure from the emitter.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	emitter Emitter,
	kind Kind,
	input string,
) error {
	prefix := kind.prefix()
	if err := emitter.Send(Event{Type: prefix + "_start"}); err != nil {
		return err
	}

	d.logger.Info("summarize", "kind", kind, "chars", len(input))

	text, err := d.Generate(ctx, kind, input)
	if err != nil {
		d.logger.Warn("summary failed", "kind", kind, "error", err)
		return emitter.Send(Event{Type: prefix + "_error", Error: err.Error()})
	}

	return emitter.Send(Event{Type: prefix + "_complete", Summary: text})
}

// DispatchRequest handles a client's stop_recording summary_type. An
// unknown type still yields a start and an error event.
func (d *Dispatcher) DispatchRequest(
	ctx context.Context,
	emitter Emitter,
	summaryType string,
	transcript string,
) error {
	kind, err := ParseKind(summaryType)
	if err != nil {
		d.logger.Warn("summary request", "error", err)
		if err := emitter.Send(Event{Type: "conversation_summary_start"}); err != nil {
			return err
		}
		return emitter.Send(Event{Type: "conversation_summary_error", Error: err.Error()})
	}
	return d.Dispatch(ctx, emitter, kind, transcript)
}
