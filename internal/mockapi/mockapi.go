// Package mockapi implements an in-process mock of the UptimeSquirrel
// agent API for tests and local development. It records everything the
// agent sends and supports failure injection and rate limiting.
package mockapi

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/otel"
)

// Config configures the mock server.
type Config struct {
	Addr string

	// AgentKey, when set, is required in the X-Agent-Key header.
	AgentKey string

	// RemoteConfig is served on GET /agent/config. Nil yields 404, which
	// the agent treats as "no remote configuration".
	RemoteConfig *agent.RemoteConfig

	// RateLimit caps metric posts per second. Zero disables limiting.
	RateLimit int
}

func DefaultConfig() *Config {
	return &Config{
		Addr: "127.0.0.1:0",
	}
}

// MetricsEnvelope mirrors the wire format of a metrics report.
type MetricsEnvelope struct {
	AgentVersion string        `json:"agent_version"`
	Timestamp    int64         `json:"timestamp"`
	Metrics      *agent.Sample `json:"metrics"`
}

// Server is the mock server interface.
type Server interface {
	Start() error
	Stop(ctx context.Context)
	Addr() string
	BaseURL() string

	Registrations() []agent.Registration
	Samples() []MetricsEnvelope
	Alerts() []agent.Alert

	SetRemoteConfig(rc *agent.RemoteConfig)
	FailNext(n int)
}

// New creates a new mock server.
func New(config *Config) Server {
	if config == nil {
		config = DefaultConfig()
	}
	s := &mockServer{cfg: config}
	if config.RateLimit > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimit, time.Second)
	}
	return s
}

// StartTestServer starts a server with defaults and returns cleanup.
func StartTestServer() (server Server, cleanup func()) {
	cfg := DefaultConfig()
	srv := New(cfg)
	if err := srv.Start(); err != nil {
		return srv, func() {}
	}
	cleanup = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}
	return srv, cleanup
}

type mockServer struct {
	cfg        *Config
	httpServer *http.Server
	listener   net.Listener
	addr       string

	failNext    atomic.Int64
	rateLimiter *tokenBucket

	mu            sync.Mutex
	registrations []agent.Registration
	samples       []MetricsEnvelope
	alerts        []agent.Alert
	remoteConfig  *agent.RemoteConfig
}

func (s *mockServer) Start() error {
	if s.cfg == nil {
		s.cfg = DefaultConfig()
	}
	s.remoteConfig = s.cfg.RemoteConfig

	ln, err := net.Listen("tcp", normalizeAddr(s.cfg.Addr))
	if err != nil {
		return err
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/agent/register", s.handleRegister)
	mux.HandleFunc("/agent/metrics", s.handleMetrics)
	mux.HandleFunc("/agent/alerts", s.handleAlerts)
	mux.HandleFunc("/agent/config", s.handleConfig)

	s.httpServer = &http.Server{
		Handler: otel.Middleware(otel.GetGlobalTracer())(mux),
	}

	go func() {
		_ = s.httpServer.Serve(ln)
	}()

	return nil
}

func (s *mockServer) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	_ = s.httpServer.Shutdown(ctx)
}

func (s *mockServer) Addr() string {
	return s.addr
}

func (s *mockServer) BaseURL() string {
	if s.addr == "" {
		return ""
	}
	return "http://" + s.addr
}

// Registrations returns recorded registration payloads.
func (s *mockServer) Registrations() []agent.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Registration(nil), s.registrations...)
}

// Samples returns recorded metric envelopes.
func (s *mockServer) Samples() []MetricsEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MetricsEnvelope(nil), s.samples...)
}

// Alerts returns recorded alerts.
func (s *mockServer) Alerts() []agent.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Alert(nil), s.alerts...)
}

// SetRemoteConfig changes what GET /agent/config serves.
func (s *mockServer) SetRemoteConfig(rc *agent.RemoteConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteConfig = rc
}

// FailNext makes the next n metric and alert posts fail with 500.
func (s *mockServer) FailNext(n int) {
	s.failNext.Store(int64(n))
}

func (s *mockServer) authorized(r *http.Request) bool {
	if s.cfg.AgentKey == "" {
		return true
	}
	return r.Header.Get("X-Agent-Key") == s.cfg.AgentKey
}

// shouldFail consumes one injected failure if any are pending.
func (s *mockServer) shouldFail() bool {
	for {
		n := s.failNext.Load()
		if n <= 0 {
			return false
		}
		if s.failNext.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (s *mockServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid agent key"})
		return
	}

	var reg agent.Registration
	if err := decodeBody(r, &reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	s.registrations = append(s.registrations, reg)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "agent registered",
		"agent_id": uuid.NewString(),
	})
}

func (s *mockServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid agent key"})
		return
	}
	if s.rateLimiter != nil && !s.rateLimiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}
	if s.shouldFail() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return
	}

	var env MetricsEnvelope
	if err := decodeBody(r, &env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	s.samples = append(s.samples, env)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *mockServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid agent key"})
		return
	}
	if s.shouldFail() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
		return
	}

	var alert agent.Alert
	if err := decodeBody(r, &alert); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *mockServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid agent key"})
		return
	}

	s.mu.Lock()
	rc := s.remoteConfig
	s.mu.Unlock()

	if rc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no remote config"})
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func normalizeAddr(addr string) string {
	if addr == "" {
		return "127.0.0.1:0"
	}
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		return "127.0.0.1:" + port
	}
	return addr
}

type tokenBucket struct {
	capacity int
	tokens   int
	lastFill time.Time
	mu       sync.Mutex
	window   time.Duration
}

func newRateLimiter(capacity int, window time.Duration) *tokenBucket {
	return &tokenBucket{
		capacity: capacity,
		tokens:   capacity,
		lastFill: time.Now(),
		window:   window,
	}
}

func (t *tokenBucket) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.lastFill) >= t.window {
		t.tokens = t.capacity
		t.lastFill = now
	}

	if t.tokens <= 0 {
		return false
	}
	t.tokens--
	return true
}
