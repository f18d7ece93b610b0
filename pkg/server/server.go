package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	handlers "github.com/loxe-ai/evidence-tracer/pkg/handlers/scan"
	evidencemiddleware "github.com/loxe-ai/evidence-tracer/pkg/server/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Scans     handlers.Service
	Inventory handlers.Inventory
	Health    Pinger
	Metrics   prometheus.Gatherer
	Logger    zerolog.Logger
	// Drain blocks until background scans have finished.
	Drain func()
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

type WebAPI struct {
	router  http.Handler
	logger  *zerolog.Logger
	server  *http.Server
	timeout time.Duration
	drain   func()
}

func ConfigureRouter(config Config) http.Handler {
	deps := config.Dependencies
	scanHandler := handlers.NewHandler(deps.Scans, deps.Inventory)

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(evidencemiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.Ping(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/scans", scanHandler.StartScan)
		r.Get("/scans/{id}", scanHandler.GetScan)
		r.Get("/scans/{id}/report.csv", scanHandler.GetReport)
		r.Get("/accounts/{account}/assets", scanHandler.ListAssets)
	})

	return router
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router:  router,
		logger:  &logger,
		timeout: timeout,
		drain:   config.Dependencies.Drain,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")
		return w.Shutdown()
	}
}

// Shutdown stops accepting requests, then waits for running scans up to the
// same deadline.
func (w *WebAPI) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := w.server.Close(); err != nil {
			return err
		}
	}

	if w.drain == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		w.drain()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info().Msg("background scans drained")
	case <-ctx.Done():
		w.logger.Warn().Msg("shutdown deadline reached with scans still running")
	}
	return nil
}
