package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browser-monitor-worker/domain"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []domain.CapturedEvent
}

func (h *recordingHandler) OnEvent(ev domain.CapturedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

type staticLog struct {
	data string
	err  error
}

func (l staticLog) ReadAll() (string, error) { return l.data, l.err }

func setupTestServer(t *testing.T, log LogReader) (*Server, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	return NewServer(handler, log, "127.0.0.1:0", nil), handler
}

func TestHandleHealthz(t *testing.T) {
	s, _ := setupTestServer(t, staticLog{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleEvents(t *testing.T) {
	s, handler := setupTestServer(t, staticLog{})

	body := `{"events":[
		{"source_application":"com.android.chrome","kind":"TEXT_CHANGED","text":"http://example.com"},
		{"source_application":"com.android.chrome","kind":"WINDOW_CONTENT_CHANGED","root":{"children":[{"view_id":"com.android.chrome:id/url_bar","text":"http://a.com"}]}}
	]}`
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, handler.events, 2)
	assert.Equal(t, "http://example.com", handler.events[0].Text)
	assert.Nil(t, handler.events[0].Root)
	assert.Equal(t, domain.EventWindowContentChanged, handler.events[1].Kind)
	require.NotNil(t, handler.events[1].Root)
	assert.Equal(t, 1, handler.events[1].Root.ChildCount())
}

func TestHandleEventsEmptyBatch(t *testing.T) {
	s, handler := setupTestServer(t, staticLog{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"events":[]}`)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, handler.events)
}

func TestHandleEventsInvalidJSON(t *testing.T) {
	s, _ := setupTestServer(t, staticLog{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"events":`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEventsMethodNotAllowed(t *testing.T) {
	s, _ := setupTestServer(t, staticLog{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleLog(t *testing.T) {
	s, _ := setupTestServer(t, staticLog{data: "2024-05-01T12:00:00Z | URL | http://a.com\n"})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/log", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "2024-05-01T12:00:00Z | URL | http://a.com\n", w.Body.String())
}

func TestHandleLogReadError(t *testing.T) {
	s, _ := setupTestServer(t, staticLog{err: errors.New("permission denied")})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/log", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStartAndShutdown(t *testing.T) {
	// Reserve a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := NewServer(&recordingHandler{}, staticLog{}, address, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + address + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "ok"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
