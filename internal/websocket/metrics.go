package websocket

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the live channel collectors. A nil *Metrics records nothing.
type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	delivered   prometheus.Counter
	evicted     prometheus.Counter
	inbound     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_server_ws_connections",
			Help: "Current number of active websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_server_ws_rooms",
			Help: "Current number of chatrooms with at least one live client.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_server_ws_messages_delivered_total",
			Help: "Total websocket frames queued to clients.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_server_ws_clients_evicted_total",
			Help: "Clients dropped because their send buffer was full.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_server_ws_inbound_total",
			Help: "Frames received from clients, by outcome.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.connections, m.rooms, m.delivered, m.evicted, m.inbound)
	return m
}

func (m *Metrics) incConnections() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) decConnections() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) setRooms(count int) {
	if m != nil {
		m.rooms.Set(float64(count))
	}
}

func (m *Metrics) addDelivered(count int) {
	if m != nil {
		m.delivered.Add(float64(count))
	}
}

func (m *Metrics) incEvicted() {
	if m != nil {
		m.evicted.Inc()
	}
}

func (m *Metrics) inboundFrame(result string) {
	if m != nil {
		m.inbound.WithLabelValues(result).Inc()
	}
}
