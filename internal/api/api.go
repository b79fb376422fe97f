package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"chat-app/internal/api/middleware"
	"chat-app/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	routeRegistrars     []RouteRegistrar
	corsConfig          middleware.CORSConfig
	metrics             *metrics
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, reg prometheus.Registerer, registrars ...RouteRegistrar) *APIServer {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		routeRegistrars:     registrars,
		corsConfig:          defaultCORSConfig(nil),
		metrics:             newMetrics(reg, listenAddr, rqm),
	}
}

// SetCORSOrigins replaces the origins allowed by the CORS middleware.
func (s *APIServer) SetCORSOrigins(origins []string) {
	s.corsConfig = defaultCORSConfig(origins)
}

// Routes builds the instrumented handler with every registered route plus
// /metrics.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return s.metrics.instrument(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.listenAddr).Msg("server listening")
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
