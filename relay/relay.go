// Package relay forwards audio from a byte source to a transcription
// stream in fixed-size chunks.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const ChunkSize = 1024

type Sink interface {
	SendAudio(data []byte) error
}

// Run copies src to sink one chunk at a time until src is exhausted or ctx
// is done. A chunk is whatever a single read returns, at most ChunkSize
// bytes, so audio from a live source is forwarded as soon as it arrives. A source that is an io.Closer is closed when ctx is done so a
// blocked read returns. It reports the number of bytes relayed; the error
// is non-nil only for a read or write failure.
func Run(ctx context.Context, src io.Reader, sink Sink) (int64, error) {
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	var total int64
	buf := make([]byte, ChunkSize)

	for {
		n, err := src.Read(buf)
		if ctx.Err() != nil {
			return total, nil
		}
		if n > 0 {
			if werr := sink.SendAudio(buf[:n]); werr != nil {
				if ctx.Err() != nil {
					return total, nil
				}
				return total, fmt.Errorf("relay audio: %w", werr)
			}
			total += int64(n)
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return total, nil
		default:
			return total, fmt.Errorf("read audio: %w", err)
		}
	}
}
