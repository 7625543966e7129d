// Package server serves health, metrics and run history over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/model"
	"MarketSeries/internal/recorder"
)

const defaultRunsLimit = 20

// Server is the HTTP surface of serve mode.
type Server struct {
	router   *chi.Mux
	http     *http.Server
	recorder recorder.Recorder
	started  time.Time
}

// New builds the router. metrics may be nil, in which case /metrics is not mounted.
func New(addr string, metrics http.Handler, rec recorder.Recorder) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Server{recorder: rec, started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Get("/runs", s.runs)

	s.router = r
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("HTTP server shutting down")
		return s.http.Shutdown(shutdownCtx)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

type runResponse struct {
	RunID       string    `json:"run_id"`
	Pipeline    string    `json:"pipeline"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	InputRows   int       `json:"input_rows"`
	OutputRows  int       `json:"output_rows"`
	Diagnostics int       `json:"diagnostics"`
}

func toResponse(s model.RunSummary) runResponse {
	return runResponse{
		RunID:       s.RunID,
		Pipeline:    string(s.Pipeline),
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		InputRows:   s.InputRows,
		OutputRows:  s.OutputRows,
		Diagnostics: s.Diagnostics,
	}
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := s.recorder.RecentRuns(r.Context(), limit)
	if err != nil {
		log.Errorf("list runs: %v", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "run history unavailable"})
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = toResponse(run)
	}
	render.JSON(w, r, out)
}
