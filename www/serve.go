package www

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"node.town/triage/checklist"
	"node.town/triage/session"
)

type Options struct {
	Logger     *log.Logger
	NewSession func(conn session.ClientConn) *session.Session
	Catalog    *checklist.Catalog
	Gatherer   prometheus.Gatherer
}

type Server struct {
	Router *chi.Mux

	logger     *log.Logger
	newSession func(conn session.ClientConn) *session.Session
	catalog    *checklist.Catalog
	upgrader   websocket.Upgrader

	base     context.Context
	stop     context.CancelFunc
	sessions sync.WaitGroup
}

func NewServer(opts Options) *Server {
	base, stop := context.WithCancel(context.Background())
	s := &Server{
		Router:     chi.NewRouter(),
		logger:     opts.Logger,
		newSession: opts.NewSession,
		catalog:    opts.Catalog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		base: base,
		stop: stop,
	}

	r := s.Router
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(allowAllOrigins)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/protocols", s.handleProtocols)
	r.Get("/ws/transcribe", s.handleTranscribe)

	return s
}

func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	err := chi.Walk(s.Router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		_, err := fmt.Fprintf(w, "%s %s\n", method, route)
		return err
	})
	if err != nil {
		http.Error(w, "Failed to list routes", http.StatusInternalServerError)
	}
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		http.Error(w, "no protocol catalog", http.StatusNotFound)
		return
	}

	protocols := s.catalog.All()
	if q := r.URL.Query().Get("match"); q != "" {
		protocols = s.catalog.Relevant(q)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(protocols); err != nil {
		s.logger.Error("encode protocols", "error", err)
	}
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	s.sessions.Add(1)
	defer s.sessions.Done()

	sess := s.newSession(conn)
	s.logger.Info("accept", "session", sess.ID, "remote", r.RemoteAddr)

	if err := sess.Run(s.base); err != nil {
		s.logger.Warn("session ended", "session", sess.ID, "error", err)
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}

// Serve listens on addr until ctx is done, then stops accepting, ends
// live sessions and waits for them to tear down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	s.stop()
	s.sessions.Wait()

	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return shutdownErr
}
