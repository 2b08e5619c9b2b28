// Package api - Thin HTTP layer over the tariff engine.
// Handlers decode input, call the engine or resolver, and encode output.
// No tariff logic lives here.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/logging"
)

// Calculator computes bills
type Calculator interface {
	ComputeBill(ctx context.Context, units decimal.Decimal, bc tariff.BillingContext) (*tariff.Breakdown, error)
}

// TableStore exposes resolved tables and cache control
type TableStore interface {
	Table(ctx context.Context, jurisdiction, category string) (*tariff.Table, error)
	Jurisdictions(ctx context.Context) ([]tariff.JurisdictionIndex, error)
	Clear(ctx context.Context) error
}

// Server is the API server
type Server struct {
	engine  Calculator
	tables  TableStore
	mux     *http.ServeMux
	handler http.Handler
	version string
	log     *zap.Logger
	limits  *LimiterStore
}

// Option configures a Server
type Option func(*Server)

// WithRateLimit enables per-client token-bucket limiting; rps <= 0 disables it
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.limits = NewLimiterStore(rps, burst)
		}
	}
}

// WithLogger overrides the access logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates a new API server
func NewServer(version string, engine Calculator, tables TableStore, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		tables:  tables,
		mux:     http.NewServeMux(),
		version: version,
		log:     logging.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	var h http.Handler = s.mux
	if s.limits != nil {
		h = RateLimit(s.limits, s.log)(h)
	}
	s.handler = RequestID(AccessLog(s.log)(h))
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /dynamic-tariff/compute", s.handleCompute)
	s.mux.HandleFunc("GET /dynamic-tariff/table", s.handleTable)
	s.mux.HandleFunc("GET /dynamic-tariff/jurisdictions", s.handleJurisdictions)
	s.mux.HandleFunc("DELETE /dynamic-tariff/cache", s.handleClearCache)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limits != nil {
		go s.limits.StartJanitor(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("version", s.version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}
