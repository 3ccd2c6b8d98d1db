package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ResultSource exposes the most recent successful classification.
type ResultSource interface {
	sharedobs.ReadinessChecker
	LastResult() (domain.Result, bool)
}

// Server exposes health, readiness, metrics and last-run HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /runs/latest routes.
func NewServer(addr string, src ResultSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(src))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /runs/latest", handleLatest(src))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// RunSummary is the JSON body of /runs/latest.
type RunSummary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	MinYear     int            `json:"min_year"`
	MaxYear     int            `json:"max_year"`
	Year        *int           `json:"year,omitempty"`
	SmoothFrac  float64        `json:"smooth_frac"`
	Cells       int            `json:"cells"`
	FinalLabels map[string]int `json:"final_labels"`
}

// Summarize counts the final labels of a result.
func Summarize(r domain.Result) RunSummary {
	sum := RunSummary{
		GeneratedAt: r.GeneratedAt,
		MinYear:     r.Params.MinYear,
		MaxYear:     r.Params.MaxYear,
		Year:        r.Params.Year,
		SmoothFrac:  r.Params.SmoothFrac,
		Cells:       len(r.Rows),
		FinalLabels: make(map[string]int),
	}
	for _, row := range r.Rows {
		sum.FinalLabels[row.Final.String()]++
	}
	return sum
}

func handleLatest(src ResultSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		result, ok := src.LastResult()
		if !ok {
			sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no completed classification run"})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, Summarize(result))
	}
}
