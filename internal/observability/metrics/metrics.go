// Package metrics holds the relay's Prometheus counters.
//
// All methods are safe on a nil *Metrics, so components can take an optional
// metrics handle without guarding every call.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertrelay"

// Alert outcomes.
const (
	AlertOK         = "ok"
	AlertBadRequest = "bad_request"
	AlertSendFailed = "send_failed"
)

type Metrics struct {
	reg *prometheus.Registry

	alerts       *prometheus.CounterVec
	messages     *prometheus.CounterVec
	updateErrors prometheus.Counter
}

// New builds a private registry with the relay counters plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert requests handled, by result.",
		}, []string{"result"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Outbound admin messages, by result.",
		}, []string{"result"}),
		updateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_update_errors_total",
			Help:      "Errors reported by the bot update loop.",
		}),
	}
	reg.MustRegister(
		m.alerts,
		m.messages,
		m.updateErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Pre-create label values so they show up as 0 before the first alert.
	for _, r := range []string{AlertOK, AlertBadRequest, AlertSendFailed} {
		m.alerts.WithLabelValues(r)
	}
	m.messages.WithLabelValues("sent")
	m.messages.WithLabelValues("failed")
	return m
}

func (m *Metrics) Alert(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}

func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.messages.WithLabelValues("sent").Inc()
}

func (m *Metrics) MessageFailed() {
	if m == nil {
		return
	}
	m.messages.WithLabelValues("failed").Inc()
}

func (m *Metrics) UpdateError() {
	if m == nil {
		return
	}
	m.updateErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}
