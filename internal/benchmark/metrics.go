package benchmark

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trial outcomes used as the "result" label.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultTimeout = "timeout"
)

// Metrics records run counters on a private Prometheus registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	trials            *prometheus.CounterVec
	trialDuration     *prometheus.HistogramVec
	isolationFailures prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "querybench",
			Name:      "trials_total",
			Help:      "Trials executed, by case and result.",
		}, []string{"case", "result"}),
		trialDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "querybench",
			Name:      "trial_duration_seconds",
			Help:      "Wall time of successful trials.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		}, []string{"case"}),
		isolationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "querybench",
			Name:      "isolation_failures_total",
			Help:      "Cache isolation calls that failed.",
		}),
	}
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format, suitable
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return errors.New("metrics are disabled")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeTrial(name string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues(name, ResultOK).Inc()
	m.trialDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFailure(name string, err error) {
	if m == nil {
		return
	}
	result := ResultFailed
	if errors.Is(err, ErrTimeout) {
		result = ResultTimeout
	}
	m.trials.WithLabelValues(name, result).Inc()
}

func (m *Metrics) isolationFailed() {
	if m == nil {
		return
	}
	m.isolationFailures.Inc()
}
