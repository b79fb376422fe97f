package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"chat-app/internal/api/middleware"
	"chat-app/internal/queue"

	"github.com/rs/zerolog/log"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func defaultCORSConfig(origins []string) middleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	return middleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Requested-With", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: true,
	}
}

func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		err := <-errc
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				log.Warn().
					Err(httpErr.ErrorLog).
					Int("status", httpErr.StatusCode).
					Str("path", r.URL.Path).
					Msg(httpErr.Message)
				WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message})
			} else {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled handler error")
				WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
			}
		}
	}

	middlewares := []middleware.Middleware{
		middleware.CORS(s.corsConfig),
		middleware.Logging(),
	}

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if len(authMiddleware) > 0 {
			middleware.Chain(baseHandler, authMiddleware...)(w, r)
			return
		}
		baseHandler(w, r)
	}

	return middleware.Chain(finalHandler, middlewares...)
}
