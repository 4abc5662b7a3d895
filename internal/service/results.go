package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"model-abtest/internal/metrics"
	"model-abtest/internal/model"
	"model-abtest/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecentAssignmentLimit 结果里附带的最近分配记录条数，仅供审计展示
const RecentAssignmentLimit = 50

type ExperimentResults struct {
	TestID            string                 `json:"test_id"`
	Status            model.ExperimentStatus `json:"status"`
	SampleSizeTarget  int                    `json:"sample_size_target"`
	TotalSamples      int                    `json:"total_samples"`
	Progress          int                    `json:"progress"`
	Variants          []VariantResult        `json:"variants"`
	Winner            *Winner                `json:"winner"`
	RecentAssignments []model.Assignment     `json:"recent_assignments"`
	EvaluatedAt       time.Time              `json:"evaluated_at"`
}

// ComposeResults 只做组装，不再计算指标
func ComposeResults(exp *model.Experiment, variants []VariantResult, winner *Winner, recent []model.Assignment, now time.Time) *ExperimentResults {
	total := 0
	for _, v := range variants {
		total += v.SampleCount
	}

	progress := 0
	if exp.SampleSizeTarget > 0 {
		progress = int(math.Round(100 * float64(total) / float64(exp.SampleSizeTarget)))
		if progress > 100 {
			progress = 100
		}
	}

	if recent == nil {
		recent = []model.Assignment{}
	}
	if variants == nil {
		variants = []VariantResult{}
	}

	return &ExperimentResults{
		TestID:            exp.ID,
		Status:            exp.Status,
		SampleSizeTarget:  exp.SampleSizeTarget,
		TotalSamples:      total,
		Progress:          progress,
		Variants:          variants,
		Winner:            winner,
		RecentAssignments: recent,
		EvaluatedAt:       now,
	}
}

// Evaluator 串联 聚合 -> 指标 -> 选优 -> 组装。
// 无状态、无缓存，每次调用都从存储重新读取。
type Evaluator struct {
	store      store.Store
	aggregator *AssignmentAggregator
	calculator *MetricsCalculator
	selector   *WinnerSelector
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

func NewEvaluator(st store.Store, selector *WinnerSelector, m *metrics.Metrics) *Evaluator {
	if selector == nil {
		selector = NewWinnerSelector(nil)
	}
	return &Evaluator{
		store:      st,
		aggregator: NewAssignmentAggregator(st),
		calculator: NewMetricsCalculator(st),
		selector:   selector,
		metrics:    m,
		tracer:     otel.Tracer("model-abtest/service"),
		now:        time.Now,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, experimentID string) (*ExperimentResults, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "Evaluator.Evaluate",
		trace.WithAttributes(attribute.String("experiment.id", experimentID)))
	defer span.End()

	results, err := e.evaluate(ctx, experimentID)

	elapsed := time.Since(start).Seconds()
	switch {
	case err == nil:
		e.metrics.ObserveEvaluation("ok", elapsed)
		e.metrics.ObserveWinner(results.Winner != nil)
		span.SetAttributes(
			attribute.Int("experiment.total_samples", results.TotalSamples),
			attribute.Bool("experiment.has_winner", results.Winner != nil),
		)
	case errors.Is(err, ErrNotFound):
		e.metrics.ObserveEvaluation("not_found", elapsed)
		span.SetStatus(codes.Error, err.Error())
	default:
		e.metrics.ObserveEvaluation("error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("实验评估失败", "experiment_id", experimentID, "error", err)
	}
	return results, err
}

func (e *Evaluator) evaluate(ctx context.Context, experimentID string) (*ExperimentResults, error) {
	exp, err := e.store.GetExperiment(ctx, experimentID)
	if err != nil {
		return nil, storeErr("get_experiment", experimentID, err)
	}

	grouped, err := e.aggregator.Aggregate(ctx, exp)
	if err != nil {
		return nil, err
	}

	variants, err := e.calculator.Compute(ctx, exp.Variants, grouped)
	if err != nil {
		return nil, err
	}

	winner := e.selector.Select(variants, exp.SampleSizeTarget)

	recent, err := e.store.RecentAssignments(ctx, exp.ID, RecentAssignmentLimit)
	if err != nil {
		return nil, &StoreError{Op: "recent_assignments", Err: err}
	}

	slog.Debug("实验评估完成", "experiment_id", exp.ID, "variants", len(variants), "has_winner", winner != nil)
	return ComposeResults(exp, variants, winner, recent, e.now()), nil
}
