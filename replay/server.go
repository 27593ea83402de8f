// ABOUTME: Mock orchestrator that replays a recorded NDJSON script to each POST /api/stream request.
// ABOUTME: Delay and chunk size are configurable so clients can be exercised against slow, oddly-split streams.
package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config controls how a Server replays its script.
type Config struct {
	Addr      string        // listen address (default: "127.0.0.1:2390")
	Delay     time.Duration // pause between writes
	ChunkSize int           // bytes per write; 0 writes one line at a time
	Metrics   http.Handler  // served at /metrics when non-nil
	Observer  Observer      // counts served streams; nil disables counting
	Logf      func(format string, args ...any)
}

// Stream outcomes reported to an Observer.
const (
	OutcomeCompleted  = "completed"
	OutcomeClientGone = "client_gone"
	OutcomeWriteError = "write_error"
	OutcomeRejected   = "rejected"
)

// Observer receives replay-side counts. telemetry.Collector implements it.
type Observer interface {
	ReplayWrote(lines, n int)
	ReplayFinished(outcome string)
}

type nopObserver struct{}

func (nopObserver) ReplayWrote(int, int)  {}
func (nopObserver) ReplayFinished(string) {}

// Server replays one Script to every client.
type Server struct {
	script Script
	cfg    Config
	router chi.Router
}

type streamRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// NewServer builds the router for script.
func NewServer(script Script, cfg Config) (*Server, error) {
	if len(script.Lines) == 0 {
		return nil, ErrEmptyScript
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:2390"
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must not be negative, got %d", cfg.ChunkSize)
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	s := &Server{script: script, cfg: cfg}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.cfg.Logf))

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/stream", s.handleStream)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.cfg.Logf("replay listening addr=%s lines=%d delay=%s chunk=%d", s.cfg.Addr, len(s.script.Lines), s.cfg.Delay, s.cfg.ChunkSize)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down replay server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "lines": len(s.script.Lines)})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.cfg.Observer.ReplayFinished(OutcomeRejected)
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		s.cfg.Observer.ReplayFinished(OutcomeRejected)
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	if req.SessionID != "" {
		w.Header().Set("X-Session-ID", req.SessionID)
	}
	w.WriteHeader(http.StatusOK)
	if canFlush {
		flusher.Flush()
	}

	for i, chunk := range s.chunks() {
		if i > 0 && s.cfg.Delay > 0 {
			timer := time.NewTimer(s.cfg.Delay)
			select {
			case <-r.Context().Done():
				timer.Stop()
				s.cfg.Logf("replay client gone session=%s sent=%d", req.SessionID, i)
				s.cfg.Observer.ReplayFinished(OutcomeClientGone)
				return
			case <-timer.C:
			}
		}
		n, err := w.Write(chunk)
		// Only newline-terminated lines count as sent.
		s.cfg.Observer.ReplayWrote(bytes.Count(chunk[:n], []byte{'\n'}), n)
		if err != nil {
			s.cfg.Logf("replay write failed session=%s err=%v", req.SessionID, err)
			s.cfg.Observer.ReplayFinished(OutcomeWriteError)
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
	s.cfg.Observer.ReplayFinished(OutcomeCompleted)
}

// chunks splits the script payload into write units.
func (s *Server) chunks() [][]byte {
	if s.cfg.ChunkSize == 0 {
		out := make([][]byte, len(s.script.Lines))
		for i, line := range s.script.Lines {
			out[i] = []byte(line + "\n")
		}
		return out
	}
	payload := s.script.Bytes()
	var out [][]byte
	for len(payload) > 0 {
		n := min(s.cfg.ChunkSize, len(payload))
		out = append(out, payload[:n])
		payload = payload[n:]
	}
	return out
}
