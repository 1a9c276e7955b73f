package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"substackmon/internal/config"
	"substackmon/internal/logging"
	"substackmon/internal/monitor"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type statusResponse struct {
	Status        string `json:"status"`
	WorkerActive  bool   `json:"worker_active"`
	PingActive    bool   `json:"ping_active"`
	LastProcessed string `json:"last_processed,omitempty"`
	CycleCount    int64  `json:"cycle_count"`
	LastOutcome   string `json:"last_outcome,omitempty"`
	LastPostURL   string `json:"last_post_url,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
	LastPingAt    string `json:"last_ping_at,omitempty"`
	LastPingOK    *bool  `json:"last_ping_ok,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleRoot)
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/start", requireToken(srv.token, srv.handleStart))
	mux.HandleFunc("/stop", requireToken(srv.token, srv.handleStop))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound listen address, or empty before start.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := s.daemon.Status(r.Context())
	payload := statusResponse{
		Status:        "idle",
		WorkerActive:  status.WorkerActive,
		PingActive:    status.PingActive,
		LastProcessed: status.LastProcessed,
		CycleCount:    status.Worker.CycleCount,
	}
	if status.WorkerActive {
		payload.Status = "running"
	}
	if !status.Worker.StartedAt.IsZero() {
		payload.StartedAt = status.Worker.StartedAt.UTC().Format(time.RFC3339)
	}
	if last := status.Worker.LastResult; last != nil {
		payload.LastOutcome = string(last.Outcome)
		payload.LastPostURL = last.PostURL
	}
	if ping := status.LastPing; ping != nil {
		payload.LastPingAt = ping.At.UTC().Format(time.RFC3339)
		ok := ping.OK
		payload.LastPingOK = &ok
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *apiServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch err := s.daemon.StartWorker(); {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "worker started"})
	case errors.Is(err, monitor.ErrAlreadyRunning):
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "worker already running"})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch err := s.daemon.StopWorker(); {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "worker stopping..."})
	case errors.Is(err, monitor.ErrNotRunning):
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "worker not running"})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.WithComponent(s.logger, "api-server")
	}
	return logging.NewNop()
}
