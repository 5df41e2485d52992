// Package bridge runs a local webhook receiver so event-driven tooling can
// be exercised against real delivery payloads without exposing a public
// endpoint. Each accepted delivery is written to the project's deliveries
// directory as <event>-<delivery-id>.json.
package bridge

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

var errServerDisabled = errors.New("bridge: server disabled")

// Delivery describes one accepted webhook delivery.
type Delivery struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	Signed     bool      `json:"signed"`
	Path       string    `json:"path"`
	ReceivedAt time.Time `json:"received_at"`
}

// Hook observes accepted deliveries. Returning an error converts the
// delivery into a 500 for the sender.
type Hook interface {
	HandleDelivery(d Delivery, payload []byte) error
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(Delivery, []byte) error

// HandleDelivery implements Hook.
func (f HookFunc) HandleDelivery(d Delivery, payload []byte) error {
	return f(d, payload)
}

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Printf(format string, args ...any)
}

// Server wraps the HTTP listener and handlers backing the webhook receiver.
type Server struct {
	settings Settings
	hook     Hook
	logger   Logger
	clock    func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
	accepted  int64
}

// Option customizes server construction.
type Option func(*Server)

// WithHook registers an observer for accepted deliveries.
func WithHook(h Hook) Option {
	return func(s *Server) {
		if h != nil {
			s.hook = h
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a webhook receiver using the provided settings.
func NewServer(settings Settings, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		hook:     HookFunc(func(Delivery, []byte) error { return nil }),
		logger:   nopLogger{},
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("bridge: server is nil")
	}
	if !s.settings.Enabled {
		return errServerDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("bridge: server already started")
	}
	if s.settings.DeliveriesDir == "" {
		return fmt.Errorf("bridge: deliveries directory is not configured")
	}
	if err := os.MkdirAll(s.settings.DeliveriesDir, 0o755); err != nil {
		return fmt.Errorf("bridge: ensure deliveries dir: %w", err)
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWebhook)
	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("bridge: serve error: %v", err)
		}
	}()
	s.logger.Printf("bridge: listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests
// to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Accepted reports the number of deliveries accepted since start.
func (s *Server) Accepted() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accepted
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(time.Since(s.startTime).Seconds())
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Accepted      int64  `json:"accepted"`
}

type deliveryResponse struct {
	Status   string `json:"status"`
	Delivery string `json:"delivery"`
	Event    string `json:"event"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", fmt.Sprintf("%s, %s", http.MethodGet, http.MethodHead))
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	resp := healthResponse{
		Status:        string(s.Status()),
		UptimeSeconds: s.uptimeSeconds(),
		Accepted:      s.Accepted(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	event := strings.TrimSpace(r.Header.Get("X-GitHub-Event"))
	if event == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-GitHub-Event header is required"})
		return
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload exceeds limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unable to read body"})
		return
	}
	signed := false
	if s.settings.Secret != "" {
		if !verifySignature(s.settings.Secret, body, r.Header.Get("X-Hub-Signature-256")) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
			return
		}
		signed = true
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	deliveryID := sanitizeID(r.Header.Get("X-GitHub-Delivery"))
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	delivery := Delivery{
		ID:         deliveryID,
		Event:      event,
		Signed:     signed,
		ReceivedAt: s.now(),
	}
	delivery.Path = filepath.Join(s.settings.DeliveriesDir, fmt.Sprintf("%s-%s.json", sanitizeID(event), deliveryID))
	if err := os.WriteFile(delivery.Path, body, 0o644); err != nil {
		s.logger.Printf("bridge: store delivery %s: %v", deliveryID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "unable to store delivery"})
		return
	}
	if err := s.hook.HandleDelivery(delivery, body); err != nil {
		s.logger.Printf("bridge: hook error for %s: %v", deliveryID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "delivery processing failed"})
		return
	}
	s.mu.Lock()
	s.accepted++
	s.mu.Unlock()
	s.logger.Printf("bridge: accepted %s delivery %s", event, deliveryID)
	writeJSON(w, http.StatusAccepted, deliveryResponse{Status: "accepted", Delivery: deliveryID, Event: event})
}

// verifySignature checks the X-Hub-Signature-256 header against the payload
// using a constant-time comparison.
func verifySignature(secret string, payload []byte, header string) bool {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(provided, mac.Sum(nil))
}

// SignPayload computes the X-Hub-Signature-256 header value for a payload.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// sanitizeID keeps delivery and event identifiers filesystem-safe.
func sanitizeID(value string) string {
	value = strings.TrimSpace(value)
	var sb strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return strings.Trim(sb.String(), "._")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
