package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	renders       *prometheus.CounterVec
	ready         prometheus.Gauge
}

// newMetrics registers the gate metrics with reg. A nil reg creates
// unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dapp",
			Subsystem: "gate",
			Name:      "stage_duration_seconds",
			Help:      "Time taken by each start-up stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dapp",
			Subsystem: "gate",
			Name:      "stage_failures_total",
			Help:      "Start-up stage failures by error kind.",
		}, []string{"stage", "kind"}),
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dapp",
			Subsystem: "gate",
			Name:      "renders_total",
			Help:      "Gated requests by rendered view.",
		}, []string{"view"}),
		ready: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dapp",
			Subsystem: "gate",
			Name:      "ready",
			Help:      "1 once every stage has completed and no fatal failure occurred.",
		}),
	}
}

func (m *metrics) observeStage(s Stage, ss StageState) {
	m.stageDuration.WithLabelValues(s.String(), ss.Status.String()).Observe(ss.Duration().Seconds())
	if ss.Status == Failed {
		m.stageFailures.WithLabelValues(s.String(), ss.Err.String()).Inc()
	}
}
