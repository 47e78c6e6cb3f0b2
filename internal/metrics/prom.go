package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records optimizer events in Prometheus metrics.
type PromSink struct {
	evaluations     *prometheus.CounterVec
	evaluationTime  *prometheus.HistogramVec
	sweepTime       *prometheus.HistogramVec
	optimalCapacity *prometheus.GaugeVec
}

// NewPromSink registers the optimizer metrics on reg. If reg is nil the
// default registerer is used. Collectors that are already registered are
// reused, so several sinks may share one registry.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bsize_evaluations_total",
		Help: "Number of simulated capacity grid points",
	}, []string{"policy"})
	evaluationTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bsize_evaluation_seconds",
		Help:    "Time spent simulating one capacity",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"policy"})
	sweepTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bsize_sweep_seconds",
		Help:    "Time spent on a full capacity sweep",
		Buckets: prometheus.DefBuckets,
	}, []string{"policy"})
	optimalCapacity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bsize_optimal_capacity_kwh",
		Help: "Optimal capacity found by the most recent sweep",
	}, []string{"policy"})

	var err error
	if evaluations, err = register(reg, evaluations); err != nil {
		return nil, err
	}
	if evaluationTime, err = register(reg, evaluationTime); err != nil {
		return nil, err
	}
	if sweepTime, err = register(reg, sweepTime); err != nil {
		return nil, err
	}
	if optimalCapacity, err = register(reg, optimalCapacity); err != nil {
		return nil, err
	}

	return &PromSink{
		evaluations:     evaluations,
		evaluationTime:  evaluationTime,
		sweepTime:       sweepTime,
		optimalCapacity: optimalCapacity,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordEvaluation(e Evaluation) {
	s.evaluations.WithLabelValues(e.Policy).Inc()
	s.evaluationTime.WithLabelValues(e.Policy).Observe(e.Duration.Seconds())
}

func (s *PromSink) RecordSweep(sw Sweep) {
	s.sweepTime.WithLabelValues(sw.Policy).Observe(sw.Duration.Seconds())
	s.optimalCapacity.WithLabelValues(sw.Policy).Set(sw.OptimalCapacityKWh)
}
