package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "activity_planner"

// Label values used with the collectors below.
const (
	AttemptSuccess        = "success"
	AttemptTransportError = "transport_error"
	AttemptDomainError    = "domain_error"

	FetchOK            = "ok"
	FetchDomainFailure = "domain_failure"
	FetchUnreachable   = "unreachable"
)

var (
	sunriseAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sunrise",
		Name:      "attempts_total",
		Help:      "Outbound requests to the sunrise-sunset provider by result.",
	}, []string{"result"})
	sunriseFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sunrise",
		Name:      "fetch_total",
		Help:      "Completed sun data fetches (after retries) by outcome.",
	}, []string{"outcome"})
	sunriseAttemptDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sunrise",
		Name:      "attempt_duration_seconds",
		Help:      "Latency of single outbound requests to the sunrise-sunset provider.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
	planRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan",
		Name:      "requests_total",
		Help:      "Handled /plan-activity requests by HTTP status.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(sunriseAttempts, sunriseFetches, sunriseAttemptDuration, planRequests)
}

// RecordSunriseAttempt counts one outbound attempt and its latency.
func RecordSunriseAttempt(result string, took time.Duration) {
	sunriseAttempts.WithLabelValues(result).Inc()
	sunriseAttemptDuration.Observe(took.Seconds())
}

// RecordSunriseFetch counts the final outcome of a fetch.
func RecordSunriseFetch(outcome string) {
	sunriseFetches.WithLabelValues(outcome).Inc()
}

// RecordPlanRequest counts a handled plan request.
func RecordPlanRequest(status string) {
	planRequests.WithLabelValues(status).Inc()
}

// SunriseAttempts exposes the attempt counter for tests.
func SunriseAttempts(result string) prometheus.Counter {
	return sunriseAttempts.WithLabelValues(result)
}

// SunriseFetches exposes the fetch outcome counter for tests.
func SunriseFetches(outcome string) prometheus.Counter {
	return sunriseFetches.WithLabelValues(outcome)
}

// PlanRequests exposes the plan request counter for tests.
func PlanRequests(status string) prometheus.Counter {
	return planRequests.WithLabelValues(status)
}
