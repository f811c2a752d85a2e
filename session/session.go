// Package session runs one live triage session: it relays audio to the
// transcription service, feeds the conversation buffer, drives the
// suggestion and summary flows and tears all of it down on exit.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"node.town/triage/convo"
	"node.town/triage/etc"
	"node.town/triage/metrics"
	"node.town/triage/relay"
	"node.town/triage/stt"
	"node.town/triage/suggest"
	"node.town/triage/summary"
)

type State int32

const (
	Connecting State = iota
	Streaming
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ClientConn is the downstream connection. *websocket.Conn satisfies it.
type ClientConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

type ContextProvider interface {
	ContextString() string
}

type Config struct {
	ConnectTimeout    time.Duration
	ReceiveTimeout    time.Duration
	KeepAliveInterval time.Duration
	SummaryDelay      time.Duration
	TaskGrace         time.Duration
	DetachedWait      time.Duration
	WriteTimeout      time.Duration
	MaxProbeFailures  int

	BufferCapacity     int
	BufferWindow       time.Duration
	SuggestionInterval time.Duration
	PollInterval       time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     10 * time.Second,
		ReceiveTimeout:     5 * time.Second,
		KeepAliveInterval:  stt.KeepAliveInterval,
		SummaryDelay:       100 * time.Millisecond,
		TaskGrace:          2 * time.Second,
		DetachedWait:       5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxProbeFailures:   3,
		BufferCapacity:     convo.DefaultCapacity,
		BufferWindow:       convo.DefaultWindow,
		SuggestionInterval: suggest.DefaultInterval,
		PollInterval:       suggest.DefaultPollInterval,
	}
}

// Deps are the collaborators of a session. Audio, Suggester, Matcher,
// Summaries, Dossier and Metrics are optional. Without Audio the session
// relays the binary frames the client sends.
type Deps struct {
	Upstream  stt.Dialer
	Audio     io.ReadCloser
	Suggester suggest.Generator
	Matcher   suggest.Matcher
	Summaries *summary.Dispatcher
	Dossier   ContextProvider
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type Session struct {
	ID string

	cfg    Config
	deps   Deps
	client ClientConn
	logger *log.Logger
	now    func() time.Time

	out    *outbox
	buffer *convo.Buffer

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32

	mu       sync.Mutex
	upstream stt.Stream
	tasks    []*task
	reader   *task
	handler  *task
	detached chan struct{}
	cause    error

	controls chan []byte
	audioIn  *io.PipeWriter

	teardownOnce sync.Once
	startedAt    time.Time
}

func New(client ClientConn, deps Deps, cfg Config) *Session {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	var patientContext string
	if deps.Dossier != nil {
		patientContext = deps.Dossier.ContextString()
	}

	s := &Session{
		ID:       etc.NewFreshID(),
		cfg:      cfg,
		deps:     deps,
		client:   client,
		now:      deps.Now,
		buffer:   convo.NewBuffer(cfg.BufferCapacity, cfg.BufferWindow, patientContext),
		controls: make(chan []byte, 8),
	}
	s.logger = deps.Logger.With("session", s.ID)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.out = &outbox{
		conn:         client,
		writeTimeout: cfg.WriteTimeout,
		onFail:       s.abort,
	}
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Buffer() *convo.Buffer {
	return s.buffer
}

// Err is the cause of a failed session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func (s *Session) abort(err error) {
	s.mu.Lock()
	if s.cause == nil {
		s.cause = err
		s.logger.Error("session failed", "error", err)
	}
	s.mu.Unlock()
	s.cancel()
}

// Run drives the session until the upstream closes, the client goes away,
// ctx is done or a fatal error occurs. It always tears down before
// returning and reports the fatal cause, if any.
func (s *Session) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()
	defer s.Close()

	s.startedAt = s.now()
	if m := s.deps.Metrics; m != nil {
		m.SessionsStarted.Inc()
		m.ActiveSessions.Inc()
	}

	s.logger.Info("connecting")
	if err := s.connect(); err != nil {
		s.abort(err)
		return s.Err()
	}

	if !s.state.CompareAndSwap(int32(Connecting), int32(Streaming)) {
		return s.Err()
	}
	s.logger.Info("streaming")

	src := s.deps.Audio
	if src == nil {
		pr, pw := io.Pipe()
		src, s.audioIn = pr, pw
	}

	s.spawn("relay", func(ctx context.Context) error {
		return s.relayAudio(ctx, src)
	})
	if s.cfg.KeepAliveInterval > 0 {
		s.spawn("keepalive", func(ctx context.Context) error {
			if err := stt.KeepAlive(ctx, s.upstream, s.cfg.KeepAliveInterval); err != nil {
				return fmt.Errorf("%w: %v", ErrProbe, err)
			}
			return nil
		})
	}
	if s.deps.Suggester != nil {
		s.spawn("suggestions", s.runSuggestions)
	}

	select {
	case <-time.After(s.cfg.SummaryDelay):
		s.startDossierSummary()
	case <-s.ctx.Done():
	}

	s.mu.Lock()
	s.reader = s.spawnLocked("client reader", s.readClient)
	s.handler = s.spawnLocked("control handler", s.handleControls)
	s.mu.Unlock()

	s.decode()
	return s.Err()
}

func (s *Session) connect() error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
	defer cancel()

	start := time.Now()
	up, err := s.deps.Upstream.Dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if m := s.deps.Metrics; m != nil {
		m.ConnectDuration.Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() >= Closing {
		up.Close()
		return ErrClosed
	}
	s.upstream = up
	return nil
}

// spawn starts fn as a task of the session. Nothing is started once
// teardown has begun.
func (s *Session) spawn(name string, fn func(context.Context) error) *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.spawnLocked(name, fn)
	if t != nil {
		s.tasks = append(s.tasks, t)
	}
	return t
}

func (s *Session) spawnLocked(name string, fn func(context.Context) error) *task {
	if s.State() >= Closing {
		return nil
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{name: name, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		t.err = fn(ctx)
		if t.err != nil && ctx.Err() == nil {
			s.abort(fmt.Errorf("%s: %w", name, t.err))
		}
	}()
	return t
}

func (s *Session) relayAudio(ctx context.Context, src io.ReadCloser) error {
	defer src.Close()

	n, err := relay.Run(ctx, src, s.upstream)
	if m := s.deps.Metrics; m != nil {
		m.AudioBytes.Add(float64(n))
	}
	if err != nil || ctx.Err() != nil {
		return err
	}
	// The client pipe also ends when teardown stops the reader.
	if s.State() >= Closing {
		return nil
	}

	s.logger.Info("audio source exhausted", "bytes", n)
	if err := s.upstream.CloseStream(); err != nil && !errors.Is(err, stt.ErrClosed) {
		s.logger.Warn("close stream", "error", err)
	}
	return nil
}

func (s *Session) runSuggestions(ctx context.Context) error {
	var emitter suggest.Emitter = scoped{ctx: ctx, out: s.out}
	if m := s.deps.Metrics; m != nil {
		emitter = counted{next: emitter, counter: m.SuggestionBatches}
	}
	sched := suggest.NewScheduler(
		s.buffer,
		s.deps.Suggester,
		s.deps.Matcher,
		emitter,
		s.logger.With("component", "suggest"),
		s.now,
	)
	sched.Interval = s.cfg.SuggestionInterval
	sched.PollInterval = s.cfg.PollInterval
	return sched.Run(ctx)
}

// startDossierSummary runs the initial dossier summary on a context that
// outlives session cancellation. Teardown waits for it for a bounded time
// but never cancels it.
func (s *Session) startDossierSummary() {
	if s.deps.Summaries == nil || s.buffer.Context() == "" {
		return
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.State() >= Closing {
		s.mu.Unlock()
		return
	}
	s.detached = done
	s.mu.Unlock()

	ctx := context.WithoutCancel(s.ctx)
	go func() {
		defer close(done)
		err := s.deps.Summaries.Dispatch(ctx, s.out, summary.KindDossier, s.buffer.Context())
		if err != nil {
			s.logger.Warn("dossier summary not delivered", "error", err)
		}
	}()
}

// decode is the sole writer of the conversation buffer.
func (s *Session) decode() {
	emit := scoped{ctx: s.ctx, out: s.out}
	failures := 0

	for {
		data, err := s.upstream.Receive(s.ctx, s.cfg.ReceiveTimeout)
		switch {
		case err == nil:
			failures = 0

		case s.ctx.Err() != nil:
			return

		case errors.Is(err, stt.ErrReceiveTimeout):
			if m := s.deps.Metrics; m != nil {
				m.ReceiveTimeouts.Inc()
			}
			if perr := s.upstream.Ping(); perr != nil {
				failures++
				s.logger.Warn("probe failed", "error", perr, "failures", failures)
				if failures >= s.cfg.MaxProbeFailures {
					s.abort(fmt.Errorf("%w: %d consecutive failures: %v", ErrProbe, failures, perr))
					return
				}
			} else {
				failures = 0
			}
			continue

		case errors.Is(err, stt.ErrClosed):
			s.logger.Info("upstream closed", "reason", err)
			return

		default:
			s.abort(fmt.Errorf("receive: %w", err))
			return
		}

		result, ok, err := stt.ParseResult(data)
		if err != nil {
			s.logger.Warn("decode", "error", err)
			if m := s.deps.Metrics; m != nil {
				m.DecodeErrors.Inc()
			}
			continue
		}
		if !ok {
			continue
		}

		s.buffer.Add(result.Speaker, result.Text, s.now())
		if result.IsFinal {
			s.logger.Info("hear", "txt", result.Text, "speaker", result.Speaker)
		} else {
			s.logger.Debug("hear", "tmp", result.Text)
		}

		err = emit.Send(TranscriptEvent{
			Type:       "transcript",
			Transcript: result.Text,
			IsFinal:    result.IsFinal,
			Speaker:    result.Speaker,
		})
		if err != nil {
			return
		}
		if m := s.deps.Metrics; m != nil {
			m.TranscriptEvents.WithLabelValues(fmt.Sprint(result.IsFinal)).Inc()
		}
	}
}

// Close tears the session down. It is idempotent and safe to call from
// several goroutines; every caller returns after teardown has finished.
func (s *Session) Close() error {
	s.teardownOnce.Do(s.teardown)
	return s.Err()
}

func (s *Session) teardown() {
	s.mu.Lock()
	s.state.Store(int32(Closing))
	reader, handler := s.reader, s.handler
	tasks := append([]*task(nil), s.tasks...)
	detached := s.detached
	up := s.upstream
	s.mu.Unlock()

	s.logger.Info("closing")
	grace := s.cfg.TaskGrace

	if reader != nil {
		reader.cancelOnce.Do(func() {
			reader.cancels.Add(1)
			reader.cancel()
		})
		_ = s.client.SetReadDeadline(time.Now())
		s.joinTask(reader, grace)
	}
	if handler != nil {
		s.joinTask(handler, grace)
	}
	for _, t := range tasks {
		s.joinTask(t, grace)
	}

	if detached != nil {
		select {
		case <-detached:
		case <-time.After(s.cfg.DetachedWait):
			s.logger.Warn("dossier summary still running at close")
		}
	}

	s.cancel()

	if s.deps.Audio != nil {
		_ = s.deps.Audio.Close()
	}

	if up != nil {
		if err := up.Close(); err != nil {
			s.logger.Warn("close upstream", "error", err)
		}
	}

	cause := s.Err()
	if cause != nil && !errors.Is(cause, ErrDelivery) {
		if err := s.out.Send(ErrorEvent{Error: cause.Error()}); err != nil {
			s.logger.Debug("terminal error not delivered", "error", err)
		}
	}
	s.out.seal()

	s.state.Store(int32(Closed))

	if m := s.deps.Metrics; m != nil && !s.startedAt.IsZero() {
		m.ActiveSessions.Dec()
		m.SessionDuration.Observe(s.now().Sub(s.startedAt).Seconds())
		if cause != nil {
			m.SessionFailures.WithLabelValues(failureCause(cause)).Inc()
		}
	}
	s.logger.Info("closed", "error", cause)
}

func (s *Session) joinTask(t *task, grace time.Duration) {
	err := t.stop(grace)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("task cleanup", "task", t.name, "error", err)
	}
}

func failureCause(err error) string {
	switch {
	case errors.Is(err, ErrConnect):
		return "connect"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, ErrProbe):
		return "probe"
	}
	return "other"
}
