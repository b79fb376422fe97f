package client

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the client side collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	frames    *prometheus.CounterVec
	liveState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_client_http_requests_total",
				Help: "Total count of REST calls made to the chat backend.",
			},
			[]string{"op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_client_http_request_duration_seconds",
				Help:    "Histogram of REST call durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_client_live_frames_total",
				Help: "Live frames received, by outcome.",
			},
			[]string{"result"},
		),
		liveState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_client_live_state",
			Help: "Live connection state (0 closed, 1 connecting, 2 open).",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.frames, m.liveState)
	return m
}

// ObserveRequest records one REST call; status 0 means no response arrived.
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(op, label).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) FrameReceived(result string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(result).Inc()
}

func (m *Metrics) SetLiveState(state int) {
	if m == nil {
		return
	}
	m.liveState.Set(float64(state))
}
