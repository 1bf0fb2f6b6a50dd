package observer

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports detection events as Prometheus metrics
type PrometheusObserver struct {
	DetectionsTotal   *prometheus.CounterVec
	FailuresTotal     *prometheus.CounterVec
	DegradedTotal     *prometheus.CounterVec
	DetectionDuration prometheus.Histogram
	MorphProbability  prometheus.Histogram
	FetchedTotal      prometheus.Counter
}

// NewPrometheusObserver creates the detection metrics and registers them
// with registry
func NewPrometheusObserver(registry prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{}
	o.initMetrics()
	if err := registry.Register(o); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return o, nil
}

func (o *PrometheusObserver) initMetrics() {
	o.DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morph_detections_total",
			Help: "Total number of completed morph detections partitioned by prediction.",
		},
		[]string{"prediction"},
	)
	o.FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morph_detection_failures_total",
			Help: "Total number of detections that produced no report, by error type.",
		},
		[]string{"error_type"},
	)
	o.DegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "morph_analyzer_degraded_total",
			Help: "Total number of analyzer failures replaced by a neutral result.",
		},
		[]string{"analyzer"},
	)
	o.DetectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "morph_detection_duration_seconds",
			Help:    "Time taken to fetch, decode and analyze one image.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)
	o.MorphProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "morph_probability",
			Help:    "Distribution of calibrated morph probabilities.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		},
	)
	o.FetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "morph_images_fetched_total",
			Help: "Total number of images fetched and decoded.",
		},
	)
}

// Describe implements prometheus.Collector
func (o *PrometheusObserver) Describe(ch chan<- *prometheus.Desc) {
	o.DetectionsTotal.Describe(ch)
	o.FailuresTotal.Describe(ch)
	o.DegradedTotal.Describe(ch)
	o.DetectionDuration.Describe(ch)
	o.MorphProbability.Describe(ch)
	o.FetchedTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (o *PrometheusObserver) Collect(ch chan<- prometheus.Metric) {
	o.DetectionsTotal.Collect(ch)
	o.FailuresTotal.Collect(ch)
	o.DegradedTotal.Collect(ch)
	o.DetectionDuration.Collect(ch)
	o.MorphProbability.Collect(ch)
	o.FetchedTotal.Collect(ch)
}

// OnEvent records the event
func (o *PrometheusObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	switch event.EventType {
	case ImageFetched:
		o.FetchedTotal.Inc()
	case DetectionCompleted:
		o.DetectionsTotal.WithLabelValues(event.Prediction).Inc()
		o.DetectionDuration.Observe(event.ProcessingTime.Seconds())
		o.MorphProbability.Observe(event.MorphProbability)
		for _, name := range event.DegradedAnalyzers {
			o.DegradedTotal.WithLabelValues(name).Inc()
		}
	case DetectionFailed:
		errorType := event.ErrorType
		if errorType == "" {
			errorType = "unknown"
		}
		o.FailuresTotal.WithLabelValues(errorType).Inc()
	}
}

// GetObserverName returns the observer name
func (o *PrometheusObserver) GetObserverName() string {
	return "prometheus_observer"
}
