package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_analysis_total",
			Help: "Total number of analyzed utterances",
		},
		[]string{"kind", "outcome"},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careguard_analysis_duration_seconds",
			Help:    "Utterance analysis duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"kind"},
	)

	PhishingScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "careguard_phishing_score",
			Help:    "Distribution of combined phishing scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_alerts_total",
			Help: "Total number of alerts raised",
		},
		[]string{"type"},
	)

	StoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careguard_store_op_duration_seconds",
			Help:    "Log store operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"op", "category", "status"},
	)

	ClassifierCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_classifier_calls_total",
			Help: "Total number of secondary classifier calls",
		},
		[]string{"status"},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careguard_events_published_total",
			Help: "Total number of events published on the bus",
		},
		[]string{"type"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careguard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "path", "status"},
	)
)

func Init() {
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(PhishingScore)
	prometheus.MustRegister(AlertsTotal)
	prometheus.MustRegister(StoreOpDuration)
	prometheus.MustRegister(ClassifierCalls)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(HTTPRequestDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
