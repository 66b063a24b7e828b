package codec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ctxmix"

// Metrics exports Stats as Prometheus series labelled by operation
// ("compress" or "decompress").
type Metrics struct {
	// Runs counts finished runs by operation and result (ok, error).
	Runs *prometheus.CounterVec

	// Bytes counts bytes by operation and direction (in, out).
	Bytes *prometheus.CounterVec

	// Bits counts modelled bits.
	Bits *prometheus.CounterVec

	// IdealBits accumulates the predictor's information content.
	IdealBits *prometheus.CounterVec

	// PendingRuns counts pending runs started by the arithmetic coder.
	PendingRuns *prometheus.CounterVec

	// MaxPending records the longest pending run of the last run.
	MaxPending *prometheus.GaugeVec

	// Duration measures run time.
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Finished runs by operation and result",
		}, []string{"op", "result"}),
		Bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_total",
			Help:      "Bytes read and written by operation",
		}, []string{"op", "direction"}),
		Bits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bits_total",
			Help:      "Bits passed through the arithmetic coder",
		}, []string{"op"}),
		IdealBits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ideal_bits_total",
			Help:      "Summed -log2 probability of the coded bits",
		}, []string{"op"}),
		PendingRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pending_runs_total",
			Help:      "Pending bit runs started by the coder",
		}, []string{"op"}),
		MaxPending: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "max_pending_bits",
			Help:      "Longest pending bit run of the last run",
		}, []string{"op"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"op"}),
	}
}

// Observe records one run.
func (m *Metrics) Observe(op string, s Stats, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Runs.WithLabelValues(op, result).Inc()
	m.Bytes.WithLabelValues(op, "in").Add(float64(s.BytesIn))
	m.Bytes.WithLabelValues(op, "out").Add(float64(s.BytesOut))
	m.Bits.WithLabelValues(op).Add(float64(s.Bits))
	m.IdealBits.WithLabelValues(op).Add(s.IdealBits)
	m.PendingRuns.WithLabelValues(op).Add(float64(s.PendingRuns))
	m.MaxPending.WithLabelValues(op).Set(float64(s.MaxPending))
	m.Duration.WithLabelValues(op).Observe(s.Duration.Seconds())
}
