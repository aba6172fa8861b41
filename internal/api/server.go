package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"price-target-alerts/internal/storage"
)

// Options tune the HTTP server.
type Options struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
}

// Server exposes the read/write surface consumed by external users: price
// history, alert registration, and swap quotes.
type Server struct {
	opts   Options
	logger zerolog.Logger
	http   *http.Server
}

// New wires the router and handlers.
func New(opts Options, prices PriceReader, alerts storage.AlertStore, quoter RateQuoter, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Use(Metrics)

	r.Get("/healthz", Health())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/prices", func(r chi.Router) {
		r.Get("/hourly", HourlyPrices(prices))
		r.Get("/latest", LatestPrice(prices))
	})
	r.Post("/alerts", CreateAlert(alerts))
	r.Get("/swap-rate", SwapRate(quoter))

	return &Server{
		opts:   opts,
		logger: logger,
		http: &http.Server{
			Addr:              opts.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("http api listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http api stopped")
	return nil
}
