package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payment_confirmation"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	notifications *prometheus.CounterVec
	verifications *prometheus.CounterVec
	autoCheckRuns *prometheus.CounterVec
	runDuration   prometheus.Histogram
	gatherer      prometheus.Gatherer
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Transfer notifications received, by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Payment verifications, by source and outcome.",
		}, []string{"source", "outcome"}),
		autoCheckRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_check_runs_total",
			Help:      "Auto-check passes, by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auto_check_run_duration_seconds",
			Help:      "Duration of auto-check passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.notifications, m.verifications, m.autoCheckRuns, m.runDuration)
	return m
}

func (m *Metrics) ObserveNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveVerification(source, outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) ObserveAutoCheckRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.autoCheckRuns.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
