package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 实验服务的 Prometheus 指标；nil 接收者上的方法都是空操作
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	WinnerDecisions    *prometheus.CounterVec
	LifecycleOps       *prometheus.CounterVec
}

// New 在 reg 上注册指标；reg 为 nil 时使用默认 registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abtest_evaluations_total",
				Help: "Number of experiment evaluations by result",
			},
			[]string{"result"},
		),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "abtest_evaluation_duration_seconds",
			Help:    "Wall time of a full experiment evaluation",
			Buckets: prometheus.DefBuckets,
		}),
		WinnerDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abtest_winner_decisions_total",
				Help: "Evaluations that declared a winner vs not enough data",
			},
			[]string{"decision"},
		),
		LifecycleOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "abtest_lifecycle_operations_total",
				Help: "Experiment lifecycle operations by op and result",
			},
			[]string{"op", "result"},
		),
	}
}

func (m *Metrics) ObserveEvaluation(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(result).Inc()
	m.EvaluationDuration.Observe(seconds)
}

func (m *Metrics) ObserveWinner(declared bool) {
	if m == nil {
		return
	}
	decision := "none"
	if declared {
		decision = "declared"
	}
	m.WinnerDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveLifecycle(op, result string) {
	if m == nil {
		return
	}
	m.LifecycleOps.WithLabelValues(op, result).Inc()
}
