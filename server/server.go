// Package server exposes the admin HTTP surface: health, metrics, the job
// list and the command endpoint.
//
// Permissions sent to /commands are taken as-is, so the listener must only be
// reachable from localhost or a trusted network.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timgluz/nrwatch/command"
	"github.com/timgluz/nrwatch/scheduler"
)

const (
	DefaultListen         = "127.0.0.1:8080"
	DefaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
)

type Config struct {
	Listen string `json:"listen" yaml:"listen"`
}

func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request) (string, error)
}

type JobLister interface {
	Jobs() []scheduler.JobInfo
}

type Server struct {
	config     Config
	dispatcher Dispatcher
	jobs       JobLister
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
}

func New(config Config, dispatcher Dispatcher, jobs JobLister, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	return &Server{
		config:     config,
		dispatcher: dispatcher,
		jobs:       jobs,
		gatherer:   gatherer,
		logger:     logger,
	}
}

type commandResponse struct {
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(DefaultRequestTimeout))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/jobs", s.handleJobs)
	r.Post("/commands", s.handleCommand)

	return r
}

// ListenAndServe blocks until ctx is cancelled, then shuts the server down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting admin server", "listen", s.config.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down admin server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<html>
	<head><title>nrwatch</title></head>
	<body>
	<h1>New Relic alerting engine</h1>
	<p><a href="/metrics">Metrics</a></p>
	<p><a href="/jobs">Scheduled jobs</a></p>
	</body>
	</html>`))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Jobs())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "invalid command payload"})
		return
	}

	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, commandResponse{Error: "text is required"})
		return
	}

	reply, err := s.dispatcher.Dispatch(r.Context(), req)
	if errors.Is(err, command.ErrNoMatch) {
		writeJSON(w, http.StatusNotFound, commandResponse{Error: "unknown command"})
		return
	}
	if err != nil {
		s.logger.Error("Command failed", "requestID", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, commandResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
