package www

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/triage/checklist"
	"node.town/triage/metrics"
	"node.town/triage/session"
	"node.town/triage/stt"
)

type refusingDialer struct{}

func (refusingDialer) Dial(context.Context) (stt.Stream, error) {
	return nil, errors.New("upstream unavailable")
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := log.New(io.Discard)

	s := NewServer(Options{
		Logger:  logger,
		Catalog: checklist.Default(),
		NewSession: func(conn session.ClientConn) *session.Session {
			return session.New(conn, session.Deps{
				Upstream: refusingDialer{},
				Logger:   logger,
				Metrics:  m,
			}, session.DefaultConfig())
		},
		Gatherer: reg,
	})
	srv := httptest.NewServer(s.Router)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthzAndCORS(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestProtocolsMatch(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/protocols?match=de%20pati%C3%ABnt%20is%20bewusteloos")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []checklist.Protocol
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, checklist.TypeLifeThreatening, got[0].Type)
}

func TestTranscribeReportsConnectFailure(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/transcribe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Contains(t, ev["error"], "upstream unavailable")

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `triage_session_failures_total{cause="connect"} 1`)
}

func TestServeReturnsNilAfterShutdown(t *testing.T) {
	s := NewServer(Options{Logger: log.New(io.Discard), Catalog: checklist.Default()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

func TestServeReportsListenError(t *testing.T) {
	s := NewServer(Options{Logger: log.New(io.Discard), Catalog: checklist.Default()})

	err := s.Serve(context.Background(), "127.0.0.1:-1")
	assert.Error(t, err)
}
