package daemon

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/eventstore"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
)

// HTTPServer serves metrics, health and material state.
type HTTPServer struct {
	addr         string
	daemon       *Daemon
	server       *http.Server
	errorAdapter *errors.HTTPErrorAdapter
}

// NewHTTPServer creates a server for daemon listening on addr.
func NewHTTPServer(addr string, daemon *Daemon) *HTTPServer {
	return &HTTPServer{
		addr:         addr,
		daemon:       daemon,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// Handler returns the routes of the server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.daemon.registry))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /materials/{name}", s.handleMaterial)
	mux.HandleFunc("POST /materials/{name}/poll", s.handlePoll)
	return mux
}

// Start binds the listen address and serves in the background.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	slog.Info("HTTP server started", "addr", ln.Addr().String())
	return nil
}

// Stop shuts the listener down, waiting for active requests.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.daemon.PerformHealthChecks(r.Context())
	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status      Status                     `json:"status"`
	ActivePolls int                        `json:"active_polls"`
	LastPollAt  *time.Time                 `json:"last_poll_at,omitempty"`
	Materials   []eventstore.MaterialState `json:"materials"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:      s.daemon.GetStatus(),
		ActivePolls: int(s.daemon.activePolls.Load()),
		Materials:   s.daemon.projection.All(),
	}
	if t, ok := s.daemon.lastPollAt.Load().(time.Time); ok {
		resp.LastPollAt = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleMaterial(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	state, ok := s.daemon.projection.Get(name)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "no state recorded for material").
			WithContext("material", name).
			Build())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// PollResponse is the body of POST /materials/{name}/poll.
type PollResponse struct {
	JobID     string                  `json:"job_id"`
	Material  string                  `json:"material"`
	Previous  string                  `json:"previous,omitempty"`
	Attempts  int                     `json:"attempts"`
	Revisions []material.RevisionJSON `json:"revisions"`
}

func (s *HTTPServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	res, err := s.daemon.PollNamed(r.Context(), r.PathValue("name"))
	if err != nil {
		if err == ErrPollInProgress {
			w.WriteHeader(http.StatusConflict)
			return
		}
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	resp := PollResponse{
		JobID:     res.JobID,
		Material:  res.Material,
		Previous:  res.Previous,
		Attempts:  res.Attempts,
		Revisions: make([]material.RevisionJSON, 0, len(res.Revisions)),
	}
	for _, rev := range res.Revisions {
		resp.Revisions = append(resp.Revisions, material.ToJSON(rev))
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
