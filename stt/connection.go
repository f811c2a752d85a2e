package stt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

type control struct {
	Type string `json:"type"`
}

// DefaultWriteTimeout bounds every write to the service. A service that
// stops reading fails the write instead of blocking the relay.
const DefaultWriteTimeout = 10 * time.Second

type Connection struct {
	conn   *websocket.Conn
	logger *log.Logger

	WriteTimeout time.Duration

	writeMu sync.Mutex

	messages chan []byte
	readErr  error

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

func newConnection(conn *websocket.Conn, logger *log.Logger) *Connection {
	c := &Connection{
		conn:         conn,
		logger:       logger,
		WriteTimeout: DefaultWriteTimeout,
		messages:     make(chan []byte),
		closed:       make(chan struct{}),
	}
	go c.readPump()
	return c
}

// A gorilla connection cannot be read again after a read deadline expires,
// so reads happen here without deadlines and Receive applies the timeout.
func (c *Connection) readPump() {
	defer close(c.messages)

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		select {
		case c.messages <- data:
		case <-c.closed:
			return
		}
	}
}

func (c *Connection) Receive(
	ctx context.Context,
	timeout time.Duration,
) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-c.messages:
		if !ok {
			if websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("%w: %v", ErrClosed, c.readErr)
		}
		return data, nil
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Connection) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Connection) setWriteDeadline() error {
	return c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
}

func (c *Connection) SendAudio(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if err := c.setWriteDeadline(); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	err := c.conn.WriteMessage(websocket.BinaryMessage, data)
	if err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// Ping sends a websocket ping frame followed by a KeepAlive message, which
// Deepgram needs to keep an idle stream open.
func (c *Connection) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	err := c.conn.WriteControl(
		websocket.PingMessage,
		[]byte{},
		time.Now().Add(PongTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to send ping: %w", err)
	}
	if err := c.setWriteDeadline(); err != nil {
		return fmt.Errorf("failed to send KeepAlive: %w", err)
	}
	if err := c.conn.WriteJSON(control{Type: "KeepAlive"}); err != nil {
		return fmt.Errorf("failed to send KeepAlive: %w", err)
	}
	return nil
}

// CloseStream asks the service to flush pending results and close.
func (c *Connection) CloseStream() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if err := c.setWriteDeadline(); err != nil {
		return fmt.Errorf("failed to send CloseStream: %w", err)
	}
	if err := c.conn.WriteJSON(control{Type: "CloseStream"}); err != nil {
		return fmt.Errorf("failed to send CloseStream: %w", err)
	}
	return nil
}

// Close does not wait for a pending write: the close frame is sent with
// its own deadline and closing the socket fails any write still blocked.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)

		if err := c.conn.Close(); err != nil {
			c.closeErr = fmt.Errorf("failed to close WebSocket connection: %w", err)
		}
		c.logger.Info("closed", "kind", "deepgram")
	})
	return c.closeErr
}
