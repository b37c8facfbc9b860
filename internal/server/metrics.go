package server

import (
	"time"

	"github.com/kolah/ontogen/internal/diag"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ontogen"

// Metrics holds the Prometheus collectors of the HTTP service.
type Metrics struct {
	conversions *prometheus.CounterVec   // by format and status (ok/invalid/error)
	duration    *prometheus.HistogramVec // by format
	warnings    *prometheus.CounterVec   // by kind
	uploads     *prometheus.CounterVec   // by status (ok/error)
	extractions *prometheus.CounterVec   // by status (ok/unsupported/error)
}

// NewMetrics creates the service collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "requests_total",
			Help:      "Total number of conversion requests",
		}, []string{"format", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "duration_seconds",
			Help:      "Conversion duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"format"}),

		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "warnings_total",
			Help:      "Total number of conversion warnings",
		}, []string{"kind"}),

		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "requests_total",
			Help:      "Total number of CMS uploads",
		}, []string{"status"}),

		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "requests_total",
			Help:      "Total number of text extractions",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.conversions, m.duration, m.warnings, m.uploads, m.extractions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordConversion(format, status string, elapsed time.Duration, warnings []diag.Warning) {
	m.conversions.WithLabelValues(format, status).Inc()
	m.duration.WithLabelValues(format).Observe(elapsed.Seconds())
	for _, w := range warnings {
		m.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

func (m *Metrics) recordUpload(status string) {
	m.uploads.WithLabelValues(status).Inc()
}

func (m *Metrics) recordExtraction(status string) {
	m.extractions.WithLabelValues(status).Inc()
}
