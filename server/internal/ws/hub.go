package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/objectstream/objectstream/server/internal/config"
	"github.com/objectstream/objectstream/server/internal/metrics"
)

// readLimit bounds inbound frames; clients are not expected to send data.
const readLimit = 512

// Source draws standard-normal values. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	NormFloat64() float64
}

// globalSource draws from math/rand/v2's auto-seeded global generator, so
// sequences differ between runs.
type globalSource struct{}

func (globalSource) NormFloat64() float64 { return rand.NormFloat64() }

// Sample is the JSON message sent to clients.
type Sample struct {
	Value float64 `json:"value"`
}

// Option customises a Hub.
type Option func(*Hub)

// WithSource sets the factory used to build each session's random source.
func WithSource(fn func() Source) Option {
	return func(h *Hub) { h.newSource = fn }
}

// WithOriginCheck replaces the allow-all origin check of the upgrader.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.upgrader.CheckOrigin = fn }
}

// Hub tracks open stream sessions and serves new ones.
type Hub struct {
	cfg       config.StreamConfig
	metrics   *metrics.Metrics
	newSource func() Source
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
}

// New creates a Hub using cfg's write deadline and ping/pong timings. m may
// be nil.
func New(cfg config.StreamConfig, m *metrics.Metrics, opts ...Option) *Hub {
	h := &Hub{
		cfg:       cfg,
		metrics:   m,
		newSource: func() Source { return globalSource{} },
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run blocks until ctx is cancelled, then ends every open session and refuses
// new ones.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP validates the stream parameters, upgrades the connection and runs
// the session until it ends. It blocks for the life of the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := ParseParams(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s := &session{
		conn:   conn,
		params: p,
		src:    h.newSource(),
		cfg:    h.cfg,
		cancel: cancel,
		sent:   h.metrics.SampleSent,
	}
	if !h.register(s) {
		s.sendClose(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.unregister(s)

	slog.Debug("ws: session opened",
		"remote", r.RemoteAddr,
		"mean", p.Mean,
		"std", p.Std,
		"interval", p.Interval,
	)

	go s.readPump()
	s.run(ctx)

	slog.Debug("ws: session closed", "remote", r.RemoteAddr)
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}
	h.metrics.SessionOpened()
	return true
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		h.metrics.SessionClosed()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.sessions {
		s.cancel()
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail}) //nolint:errcheck
}
