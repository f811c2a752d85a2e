package stt

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReceiveTimeout = errors.New("receive timeout")
	ErrClosed         = errors.New("transcription stream closed")
)

// Stream is one live connection to a transcription service. Writes may be
// called from several goroutines; Receive from one.
type Stream interface {
	SendAudio(data []byte) error
	Ping() error
	CloseStream() error
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}
