package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/battery233/gooccupancy"
)

type Metrics struct {
	registry      *prometheus.Registry
	notifications *prometheus.CounterVec
	active        *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "occupancy_notifications_total",
			Help: "Total sensor notifications by channel and decode result.",
		}, []string{"channel", "result"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "occupancy_channel_active",
			Help: "Last decoded channel state (1 active, 0 idle).",
		}, []string{"device", "channel"}),
	}

	m.registry.MustRegister(m.notifications, m.active)

	return m
}

// Handle records one update.
func (m *Metrics) Handle(u gooccupancy.Update) {
	if m == nil {
		return
	}
	if u.Error != nil {
		m.notifications.WithLabelValues(u.Channel.String(), "invalid").Inc()
		return
	}
	m.notifications.WithLabelValues(u.Channel.String(), "decoded").Inc()

	v := 0.0
	if u.Active {
		v = 1
	}
	m.active.WithLabelValues(u.DeviceID, u.Channel.String()).Set(v)
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
