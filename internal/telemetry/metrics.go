package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usf"

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the external survey API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "status"})

	pageRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "requests_total",
		Help:      "Page requests served, by route and status code.",
	}, []string{"route", "method", "status"})

	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "submissions_total",
		Help:      "Survey submissions accepted by the external API.",
	}, []string{"survey_id"})

	answered = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "answered_questions",
		Help:      "Number of answered questions per submission.",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})

	runners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "survey",
		Name:      "open_runners",
		Help:      "Survey runners currently alive.",
	})
)

// ObserveUpstream records one call to the external API. status is 0 when the call failed in transport.
func ObserveUpstream(op string, status int, d time.Duration) {
	s := "error"
	if status > 0 {
		s = strconv.Itoa(status)
	}
	upstreamDuration.WithLabelValues(op, s).Observe(d.Seconds())
}

func ObservePage(route, method string, status int) {
	pageRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func ObserveSubmission(surveyID string, answeredQuestions int) {
	submissions.WithLabelValues(surveyID).Inc()
	answered.Observe(float64(answeredQuestions))
}

// SetOpenRunners reports the number of live survey runners.
func SetOpenRunners(n int) {
	runners.Set(float64(n))
}
