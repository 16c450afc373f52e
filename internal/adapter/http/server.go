package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/observability"
	"github.com/ki-SH-an/NO2-predictor/internal/registry"
	"github.com/ki-SH-an/NO2-predictor/internal/selection"
	"github.com/ki-SH-an/NO2-predictor/internal/trend"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Selector is the request state machine as seen by the API.
type Selector interface {
	Select(c domain.Coordinate) (domain.DisplayState, error)
	Current() domain.DisplayState
	Subscribe(l selection.Listener) func()
}

// Options configures the HTTP surface.
type Options struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64 // selections per second
	RateBurst      int
	Tracing        bool
}

// Deps are the components the API exposes.
type Deps struct {
	Selector Selector
	Catalog  *registry.Catalog
	Trend    *trend.Generator
	Ready    ReadinessChecker
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Server exposes the map API, the live WebSocket feed, and the health,
// readiness, and metrics endpoints.
type Server struct {
	httpServer  *http.Server
	selector    Selector
	catalog     *registry.Catalog
	trend       *trend.Generator
	limiter     *rate.Limiter
	hub         *Hub
	unsubscribe func()
	logger      *slog.Logger
}

// NewServer creates the HTTP server and subscribes its WebSocket hub to the
// selector's transitions.
func NewServer(opts Options, deps Deps) *Server {
	mux := http.NewServeMux()
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)

	s := &Server{
		selector: deps.Selector,
		catalog:  deps.Catalog,
		trend:    deps.Trend,
		limiter:  limiter,
		hub:      NewHub(deps.Selector, limiter, opts.AllowedOrigins, deps.Metrics, deps.Logger),
		logger:   deps.Logger,
	}
	s.unsubscribe = deps.Selector.Subscribe(s.hub.Broadcast)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/selection", s.handleSelect)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/areas", s.handleAreas)
	mux.HandleFunc("GET /api/areas.geojson", s.handleAreasGeoJSON)
	mux.HandleFunc("GET /api/heatmap", s.handleHeatmap)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/trend", s.handleTrend)
	mux.HandleFunc("GET /api/trend.png", s.handleTrendPNG)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	var handler http.Handler = cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(requestID(mux))
	if opts.Tracing {
		handler = otelhttp.NewHandler(handler, "no2-predictor")
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline
// and disconnects WebSocket subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unsubscribe()
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

const requestIDHeader = "X-Request-ID"

// requestID echoes the caller's X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
