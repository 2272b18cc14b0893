package metrics

import (
	"net/http"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector exposes account operation counters on a private registry.
type MetricsCollector struct {
	registry        *prometheus.Registry
	accountsCreated *prometheus.CounterVec
	movements       *prometheus.CounterVec
	restartDuration prometheus.Histogram
	restartAccounts *prometheus.CounterVec
}

func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &MetricsCollector{
		registry: registry,
		accountsCreated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bankaccounts_account_creations_total",
			Help: "Account creation attempts by customer kind and outcome",
		}, []string{"kind", "outcome"}),
		movements: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bankaccounts_movements_total",
			Help: "Deposits and withdrawals by type and outcome",
		}, []string{"type", "outcome"}),
		restartDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "bankaccounts_restart_transactions_duration_seconds",
			Help:    "Time taken by the monthly transaction reset sweep",
			Buckets: prometheus.DefBuckets,
		}),
		restartAccounts: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "bankaccounts_restart_transactions_accounts_total",
			Help: "Accounts visited by the reset sweep by result",
		}, []string{"result"}),
	}
}

func (m *MetricsCollector) RecordAccountCreation(kind, outcome string) {
	m.accountsCreated.WithLabelValues(kind, outcome).Inc()
}

func (m *MetricsCollector) RecordMovement(txType domain.TransactionType, outcome string) {
	m.movements.WithLabelValues(string(txType), outcome).Inc()
}

func (m *MetricsCollector) RecordRestart(duration time.Duration, total, failed int) {
	m.restartDuration.Observe(duration.Seconds())
	m.restartAccounts.WithLabelValues("reset").Add(float64(total - failed))
	m.restartAccounts.WithLabelValues("failed").Add(float64(failed))
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
