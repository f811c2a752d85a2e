package stt

import (
	"context"
	"fmt"
	"time"
)

const KeepAliveInterval = 10 * time.Second

type Pinger interface {
	Ping() error
}

// KeepAlive probes p every interval until ctx is done. The first failed
// probe ends the loop and is returned.
func KeepAlive(ctx context.Context, p Pinger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Ping(); err != nil {
				return fmt.Errorf("keepalive: %w", err)
			}
		}
	}
}
