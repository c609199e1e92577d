// Package control exposes an HTTP health/status endpoint for the
// running sequencer, grounded on the teacher's health server
// (LivenessHandler/ReadinessHandler over a plain net/http.ServeMux,
// started in its own goroutine and never blocking the caller).
package control

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/sequencer"
	"github.com/neo4reo/real-timely/internal/telemetry"
)

// ServiceStatus is one service's diagnostic snapshot.
type ServiceStatus struct {
	Name                string `json:"name"`
	Period              int    `json:"period"`
	CPU                 int    `json:"cpu"`
	PriorityDescending  int    `json:"priority_descending"`
	ReleaseCount        uint64 `json:"release_count"`
	WorkCount           uint64 `json:"work_count"`
	Overruns            uint64 `json:"overruns"`
}

// Status is the full /status payload.
type Status struct {
	RunID         string                     `json:"run_id"`
	Status        string                     `json:"status"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Iteration     uint64                     `json:"iteration"`
	MaxIterations uint64                     `json:"max_iterations"`
	Pipeline      framepipeline.Occupancy    `json:"pipeline"`
	Services      []ServiceStatus            `json:"services"`
	Telemetry     *telemetry.Stats           `json:"telemetry,omitempty"`
}

// Server serves /healthz and /status for a running Schedule.
type Server struct {
	schedule  *sequencer.Schedule
	pipeline  *framepipeline.Pipeline
	telemetry *telemetry.Emitter // nil when no mqtt section is configured
	started   time.Time
	runID     uuid.UUID

	httpServer *http.Server
}

// New constructs a Server. telemetry may be nil. Each Server gets a
// fresh random runID, reported as run_id in /status, so a dashboard can
// tell two overlapping runs apart.
func New(addr string, schedule *sequencer.Schedule, pipeline *framepipeline.Pipeline, telem *telemetry.Emitter) *Server {
	s := &Server{
		schedule:  schedule,
		pipeline:  pipeline,
		telemetry: telem,
		started:   time.Now(),
		runID:     uuid.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the HTTP server in its own goroutine; it does not block.
func (s *Server) Start() {
	slog.Info("control: starting health/status server", "addr", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("control: server failed", "error", err)
		}
	}()
}

// Stop shuts the HTTP server down.
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"iteration": s.schedule.IterationCounter(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := Status{
		RunID:         s.runID.String(),
		Status:        "running",
		UptimeSeconds: time.Since(s.started).Seconds(),
		Iteration:     s.schedule.IterationCounter(),
		MaxIterations: s.schedule.MaxIterations,
		Pipeline:      s.pipeline.Snapshot(),
	}
	if s.schedule.IterationCounter() >= s.schedule.MaxIterations {
		status.Status = "terminated"
	}

	for _, svc := range s.schedule.Services() {
		status.Services = append(status.Services, ServiceStatus{
			Name:               svc.Name,
			Period:             svc.Period,
			CPU:                svc.CPU,
			PriorityDescending: svc.PriorityDescending(),
			ReleaseCount:       svc.ReleaseCount(),
			WorkCount:          svc.WorkCount(),
			Overruns:           svc.Overruns(),
		})
	}

	if s.telemetry != nil {
		snap := s.telemetry.Snapshot()
		status.Telemetry = &snap
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}
