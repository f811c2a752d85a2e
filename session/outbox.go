package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// outbox serializes events onto the client connection. The first write
// failure is reported through onFail and every later Send fails fast.
// Once sealed, events are dropped.
type outbox struct {
	mu           sync.Mutex
	conn         ClientConn
	writeTimeout time.Duration
	onFail       func(error)

	sealed bool
	failed error
}

func (o *outbox) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sealed {
		return ErrClosed
	}
	if o.failed != nil {
		return o.failed
	}

	if o.writeTimeout > 0 {
		_ = o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout))
	}
	if err := o.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		o.failed = fmt.Errorf("%w: %v", ErrDelivery, err)
		if o.onFail != nil {
			o.onFail(o.failed)
		}
		return o.failed
	}
	return nil
}

func (o *outbox) seal() {
	o.mu.Lock()
	o.sealed = true
	o.mu.Unlock()
}

// scoped drops events once ctx is done, so that a result finishing after
// its task was cancelled never reaches the client.
type scoped struct {
	ctx context.Context
	out *outbox
}

func (s scoped) Send(v any) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	return s.out.Send(v)
}

type emitter interface {
	Send(v any) error
}

// counted increments counter for every event next delivers.
type counted struct {
	next    emitter
	counter prometheus.Counter
}

func (c counted) Send(v any) error {
	if err := c.next.Send(v); err != nil {
		return err
	}
	c.counter.Inc()
	return nil
}
