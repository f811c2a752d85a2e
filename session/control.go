package session

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

// readClient pumps the client connection: binary frames go to the audio
// relay, text frames to the control handler. A read error means the
// client is gone and ends the session without an error event.
func (s *Session) readClient(ctx context.Context) error {
	defer close(s.controls)
	if s.audioIn != nil {
		defer s.audioIn.Close()
	}

	for {
		kind, data, err := s.client.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Info("client disconnected", "error", err)
				s.cancel()
			}
			return nil
		}

		switch kind {
		case websocket.BinaryMessage:
			if s.audioIn == nil {
				continue
			}
			if _, err := s.audioIn.Write(data); err != nil {
				s.logger.Debug("drop client audio", "error", err)
			}
		case websocket.TextMessage:
			select {
			case s.controls <- data:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// handleControls processes control messages one at a time; a summary
// request blocks later messages until its terminal event is sent.
func (s *Session) handleControls(ctx context.Context) error {
	emit := scoped{ctx: ctx, out: s.out}

	for {
		var data []byte
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case data, ok = <-s.controls:
			if !ok {
				return nil
			}
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("control message", "error", err)
			continue
		}

		switch msg.Type {
		case "stop_recording":
			if s.deps.Summaries == nil {
				s.logger.Warn("summary requested without a summary model")
				continue
			}
			s.logger.Info("summary requested", "summary_type", msg.SummaryType)
			err := s.deps.Summaries.DispatchRequest(
				ctx,
				emit,
				msg.SummaryType,
				s.buffer.FormatForTranscript(),
			)
			if err != nil {
				s.logger.Warn("summary not delivered", "error", err)
			}
		default:
			s.logger.Debug("ignore control message", "type", msg.Type)
		}
	}
}
