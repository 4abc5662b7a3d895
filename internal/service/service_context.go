package service

import (
	"model-abtest/internal/metrics"
	"model-abtest/internal/store"
)

type ServiceContext struct {
	Store       store.Store
	Metrics     *metrics.Metrics
	Experiments *ExperimentService
	Evaluator   *Evaluator
}

func NewServiceContext(st store.Store, m *metrics.Metrics) *ServiceContext {
	return &ServiceContext{
		Store:       st,
		Metrics:     m,
		Experiments: NewExperimentService(st, m),
		Evaluator:   NewEvaluator(st, NewWinnerSelector(HeuristicConfidence{}), m),
	}
}
