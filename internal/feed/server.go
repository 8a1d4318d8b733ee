// Package feed serves the roster as a subscribable iCalendar feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"rostercal/internal/ics"
	"rostercal/internal/metrics"
	"rostercal/internal/models"
	"rostercal/internal/pipeline"
	"rostercal/internal/roster"
)

const shutdownTimeout = 5 * time.Second

// EventSource loads the current roster. It is called on every request.
type EventSource interface {
	Load(ctx context.Context, f pipeline.Filter) ([]models.Event, error)
}

type Server struct {
	log        *slog.Logger
	source     EventSource
	serializer ics.Serializer
	address    string
	version    string
}

func NewServer(logger *slog.Logger, source EventSource, serializer ics.Serializer, address, version string) *Server {
	return &Server{
		log:        logger.With("component", "feed"),
		source:     source,
		serializer: serializer,
		address:    address,
		version:    version,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	// Web calendar viewers fetch the feed cross-origin.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler)

	r.Get("/calendar.ics", s.calendarHandler)
	r.Get("/people", s.peopleHandler)
	r.Get("/healthz", s.healthHandler)
	r.Get("/version", s.versionHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting feed server.", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down feed server: %w", err)
	}
	s.log.Info("Feed server stopped.")
	return nil
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, ok := s.load(w, r, pipeline.Filter{
		Person:   q.Get("person"),
		DutyType: q.Get("duty_type"),
	})
	if !ok {
		return
	}

	doc := s.serializer.Render(events)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	if _, err := w.Write([]byte(doc)); err != nil {
		s.log.Warn("err during writing to connection", "error", err)
	}
}

func (s *Server) peopleHandler(w http.ResponseWriter, r *http.Request) {
	events, ok := s.load(w, r, pipeline.Filter{})
	if !ok {
		return
	}
	s.writeResponse(w, http.StatusOK, roster.People(events))
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	if _, err := fmt.Fprintf(w, "%s\n", s.version); err != nil {
		s.log.Warn("err during writing to connection", "error", err)
	}
}

// load fetches the roster and writes a 500 on failure. The caller must stop
// when ok is false.
func (s *Server) load(w http.ResponseWriter, r *http.Request, f pipeline.Filter) ([]models.Event, bool) {
	events, err := s.source.Load(r.Context(), f)
	if err != nil {
		metrics.FeedLoadErrors.Inc()
		s.log.Error("Failed to load roster", "error", err)
		s.writeResponse(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return events, true
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		data = map[string]string{"error": x.Error()}
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("err during writing to connection", "error", err)
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.FeedRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.FeedDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.Debug("Served request.", "method", r.Method, "path", r.URL.Path, "status", status, "duration", time.Since(start))
	})
}
