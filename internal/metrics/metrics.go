// Package metrics provides Prometheus instrumentation for riskfeed: counters
// for scored posts, moderation calls, collector requests and alerts, and a
// histogram of post risk scores.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PostsScored counts labeled posts by violence type.
	PostsScored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskfeed_posts_scored_total",
		Help: "Total number of posts scored",
	}, []string{"violence_type"})

	// RiskScore records the distribution of post risk scores.
	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "riskfeed_post_risk_score",
		Help:    "Distribution of post risk scores",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	// ModerationRequests counts moderation lookups by outcome.
	ModerationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskfeed_moderation_requests_total",
		Help: "Total number of moderation lookups",
	}, []string{"outcome"}) // outcome = "flagged", "clean", "cached", "error"

	// CollectorRequests counts content API requests by HTTP status class.
	CollectorRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskfeed_collector_requests_total",
		Help: "Total number of content API requests",
	}, []string{"status"}) // status = "2xx", "4xx", "5xx", "error"

	// AlertsRaised counts monitor alerts by violence type.
	AlertsRaised = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "riskfeed_alerts_total",
		Help: "Total number of alerts raised by the monitor",
	}, []string{"violence_type"})

	// MonitorUsers tracks how many users the last monitor pass checked.
	MonitorUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "riskfeed_monitor_users",
		Help: "Number of users checked in the last monitor pass",
	})
)

func init() {
	prometheus.MustRegister(
		PostsScored,
		RiskScore,
		ModerationRequests,
		CollectorRequests,
		AlertsRaised,
		MonitorUsers,
	)
}

// ObservePost records one scored post
func ObservePost(violenceType string, risk float64) {
	PostsScored.WithLabelValues(violenceType).Inc()
	RiskScore.Observe(risk)
}

// StatusClass maps an HTTP status code to its label value
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "error"
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
