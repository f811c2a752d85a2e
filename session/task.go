package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errTaskTimeout = errors.New("task did not stop within grace period")

// task is one goroutine bound to a session. Its context is a child of the
// session context.
type task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	cancelOnce sync.Once
	cancels    atomic.Int32
}

func (t *task) stop(grace time.Duration) error {
	t.cancelOnce.Do(func() {
		t.cancels.Add(1)
		t.cancel()
	})

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.err
	case <-timer.C:
		return errTaskTimeout
	}
}
