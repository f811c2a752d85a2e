package stt

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

type MessageResponse struct {
	Type        string  `json:"type"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	Channel     struct {
		Alternatives []Alternative `json:"alternatives"`
	} `json:"channel"`
}

type Result struct {
	Text       string
	IsFinal    bool
	Speaker    *int
	Start      float64
	Duration   float64
	Confidence float64
}

// ParseResult decodes one service message. It reports ok only for Results
// messages with a non-empty transcript. The speaker is the speaker of the
// first word; mixed-speaker alternatives are attributed to that speaker.
func ParseResult(data []byte) (Result, bool, error) {
	var mr MessageResponse
	if err := json.Unmarshal(data, &mr); err != nil {
		return Result{}, false, fmt.Errorf("decode transcription message: %w", err)
	}

	if mr.Type != "Results" || len(mr.Channel.Alternatives) == 0 {
		return Result{}, false, nil
	}

	alt := mr.Channel.Alternatives[0]
	transcript := strings.TrimSpace(alt.Transcript)
	if transcript == "" {
		return Result{}, false, nil
	}

	result := Result{
		Text:       transcript,
		IsFinal:    mr.IsFinal,
		Start:      mr.Start,
		Duration:   mr.Duration,
		Confidence: alt.Confidence,
	}
	if len(alt.Words) > 0 {
		result.Speaker = alt.Words[0].Speaker
	}
	return result, true, nil
}
