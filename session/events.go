package session

import "errors"

var (
	ErrConnect  = errors.New("connect to transcription service")
	ErrDelivery = errors.New("deliver to client")
	ErrProbe    = errors.New("liveness probe")
	ErrClosed   = errors.New("session closed")
)

type TranscriptEvent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
	Speaker    *int   `json:"speaker"`
}

// ErrorEvent is the terminal event of a failed session.
type ErrorEvent struct {
	Error string `json:"error"`
}

type ControlMessage struct {
	Type        string `json:"type"`
	SummaryType string `json:"summary_type"`
}
