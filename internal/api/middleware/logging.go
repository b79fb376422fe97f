package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"chat-app/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required for WebSocket upgrades behind this middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		if r.status == 0 {
			r.status = http.StatusSwitchingProtocols
		}
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("statusRecorder: underlying ResponseWriter does not support hijacking")
}

func Logging() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			next(rec, r)

			level := zerolog.InfoLevel
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = zerolog.ErrorLevel
			case rec.status >= http.StatusBadRequest:
				level = zerolog.WarnLevel
			}

			log.WithLevel(level).
				Str("method", r.Method).
				Str("uri", r.URL.Path).
				Int("status", rec.status).
				Int("size", rec.size).
				Dur("duration", time.Since(start)).
				Str("client_ip", utils.RealClientIP(r)).
				Str("user_agent", r.UserAgent()).
				Str("request_id", reqID).
				Msg("http request")
		}
	}
}
