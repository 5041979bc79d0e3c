package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trusthive_auth_attempts_total",
		Help: "Credential verification attempts by mechanism and outcome.",
	}, []string{"mechanism", "outcome"})

	tokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthive_tokens_issued_total",
		Help: "Opaque hand-off tokens issued.",
	})

	tokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trusthive_tokens_swept_total",
		Help: "Expired or consumed tokens removed by the sweeper.",
	})
)

func recordAuthAttempt(mechanism string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	authAttempts.WithLabelValues(mechanism, outcome).Inc()
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
