package convo

import "strings"

type Kind string

const (
	KindWarning  Kind = "warning"
	KindInfo     Kind = "info"
	KindQuestion Kind = "question"
	KindProtocol Kind = "protocol"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Step is one action of a procedural checklist as shown to the operator.
type Step struct {
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description" yaml:"description"`
	Action           string   `json:"action" yaml:"action"`
	Icon             string   `json:"icon" yaml:"icon"`
	ExampleQuestions []string `json:"example_questions" yaml:"example_questions"`
}

// Suggestion is one advisory item shown during a live session. Batches are
// replaced as a whole; a Suggestion is never mutated after creation.
type Suggestion struct {
	Kind              Kind     `json:"type"`
	Text              string   `json:"text"`
	Priority          Priority `json:"priority"`
	EvidenceReference string   `json:"ecdReference,omitempty"`
	EvidenceDate      string   `json:"ecdReferenceDate,omitempty"`
	EvidenceSource    string   `json:"ecdReferenceSource,omitempty"`

	ProtocolID          string `json:"protocol_id,omitempty"`
	ProtocolType        string `json:"protocol_type,omitempty"`
	ProtocolDescription string `json:"protocol_description,omitempty"`
	Steps               []Step `json:"steps,omitempty"`
}

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWarning, KindInfo, KindQuestion, KindProtocol:
		return k, true
	}
	return "", false
}

func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	}
	return "", false
}
