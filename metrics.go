/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	claimResultWon     = "won"
	claimResultTaken   = "already_claimed"
	claimResultInvalid = "invalid_name"
)

// metrics methods are nil-safe so components can run without a registry.
type metrics struct {
	registry *prometheus.Registry

	claims        *prometheus.CounterVec
	resets        prometheus.Counter
	notifications *prometheus.CounterVec
	pruned        prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shield",
			Name:      "claim_attempts_total",
			Help:      "Claim attempts, by result.",
		}, []string{"result"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shield",
			Name:      "resets_total",
			Help:      "Number of times the shield has been reset.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shield",
			Name:      "notifications_delivered_total",
			Help:      "Notifications successfully delivered to displays, by kind.",
		}, []string{"kind"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shield",
			Name:      "displays_pruned_total",
			Help:      "Displays dropped after a failed send.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.claims,
		m.resets,
		m.notifications,
		m.pruned,
	)

	return m
}

// watchRegistry exposes the live display count as a gauge.
func (m *metrics) watchRegistry(r *ConnectionRegistry) {
	if m == nil {
		return
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "shield",
		Name:      "displays_connected",
		Help:      "Display subscribers currently registered.",
	}, func() float64 {
		return float64(r.Len())
	}))
}

func (m *metrics) claimAttempt(result string) {
	if m == nil {
		return
	}

	m.claims.WithLabelValues(result).Inc()
}

func (m *metrics) reset() {
	if m == nil {
		return
	}

	m.resets.Inc()
}

func (m *metrics) notificationSent(kind NotificationKind, delivered int) {
	if m == nil || delivered <= 0 {
		return
	}

	m.notifications.WithLabelValues(string(kind)).Add(float64(delivered))
}

func (m *metrics) subscriberPruned() {
	if m == nil {
		return
	}

	m.pruned.Inc()
}

func registerMetricsHandler(cfg *Config, m *metrics, mux *httprouter.Router) {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	mux.GET(cfg.prefix+"/metrics", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		handler.ServeHTTP(w, r)
	})
}
