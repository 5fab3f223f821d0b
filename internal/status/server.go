// Package status exposes /health and /metrics while a job runs. A run stuck
// deep in its retry budget can legitimately live for hours; this is how an
// operator tells "retrying patiently" apart from "dead".
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfenwick/racecollect/internal/core/domain"
)

// RunInfo is what /health reports about the in-flight run.
type RunInfo struct {
	RunID     string         `json:"run_id"`
	Job       domain.JobKind `json:"job"`
	StartedAt time.Time      `json:"started_at"`
}

// Server is the status HTTP server.
type Server struct {
	server *http.Server

	mu   sync.RWMutex
	info RunInfo
}

// NewServer creates a status server for the given port.
func NewServer(port int, info RunInfo) *Server {
	mux := http.NewServeMux()
	s := &Server{
		info: info,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	info := s.info
	s.mu.RUnlock()

	response := struct {
		Status string `json:"status"`
		RunInfo
		Uptime string `json:"uptime"`
	}{
		Status:  "running",
		RunInfo: info,
		Uptime:  time.Since(info.StartedAt).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
