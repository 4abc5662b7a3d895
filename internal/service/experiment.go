package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"model-abtest/internal/metrics"
	"model-abtest/internal/model"
	"model-abtest/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// 权重之和允许的误差；额外的 1e-9 吸收浮点累加误差
const weightSumTolerance = 0.01 + 1e-9

var validate *validator.Validate

func init() {
	validate = validator.New()
	// 错误信息里使用 json 字段名，和请求体保持一致
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type CreateExperimentRequest struct {
	Name             string                 `json:"name" validate:"required,max=200"`
	Description      string                 `json:"description"`
	RouteID          string                 `json:"route_id" validate:"required,max=64"`
	Environment      string                 `json:"environment" validate:"omitempty,max=32"`
	Variants         []model.Variant        `json:"variants" validate:"min=2,dive"`
	SampleSizeTarget int                    `json:"sample_size_target" validate:"gte=10"`
	Metrics          map[string]interface{} `json:"metrics"`
	CreatedBy        string                 `json:"created_by" validate:"max=100"`
}

// Validate 结构校验 + 权重之和为 100（±0.01）
func (r *CreateExperimentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return translateValidation(err)
	}

	sum := 0.0
	for _, v := range r.Variants {
		sum += v.Weight
	}
	if math.Abs(sum-100) > weightSumTolerance {
		return invalid("variants", "权重之和必须为 100，当前为 %.4f", sum)
	}
	return nil
}

// ExperimentPatch 部分更新；nil 字段表示不修改，出现的字段整体替换
type ExperimentPatch struct {
	Name             *string                 `json:"name"`
	Description      *string                 `json:"description"`
	Status           *model.ExperimentStatus `json:"status"`
	Variants         []model.Variant         `json:"variants"`
	SampleSizeTarget *int                    `json:"sample_size_target"`
	Metrics          map[string]interface{}  `json:"metrics"`
}

// ExperimentService 管理实验定义与状态机
type ExperimentService struct {
	store   store.Store
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func NewExperimentService(st store.Store, m *metrics.Metrics) *ExperimentService {
	return &ExperimentService{
		store:   st,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *ExperimentService) Create(ctx context.Context, req CreateExperimentRequest) (*model.Experiment, error) {
	if req.SampleSizeTarget == 0 {
		req.SampleSizeTarget = model.DefaultSampleSizeTarget
	}
	if req.Environment == "" {
		req.Environment = model.DefaultEnvironment
	}
	if err := req.Validate(); err != nil {
		s.metrics.ObserveLifecycle("create", "invalid")
		return nil, err
	}

	// 创建时统一生成稳定 ID，忽略调用方传入的值
	variants := make([]model.Variant, len(req.Variants))
	for i, v := range req.Variants {
		v.ID = s.newID()
		variants[i] = v
	}

	exp := &model.Experiment{
		ID:               s.newID(),
		Name:             req.Name,
		Description:      req.Description,
		RouteID:          req.RouteID,
		Environment:      req.Environment,
		Variants:         variants,
		SampleSizeTarget: req.SampleSizeTarget,
		Status:           model.StatusDraft,
		Metrics:          req.Metrics,
		CreatedBy:        req.CreatedBy,
	}
	if err := s.store.CreateExperiment(ctx, exp); err != nil {
		s.metrics.ObserveLifecycle("create", "error")
		return nil, &StoreError{Op: "create_experiment", Err: err}
	}

	s.metrics.ObserveLifecycle("create", "ok")
	slog.Info("实验已创建", "experiment_id", exp.ID, "route_id", exp.RouteID, "variants", len(variants))
	return exp, nil
}

func (s *ExperimentService) Update(ctx context.Context, id string, patch ExperimentPatch) (*model.Experiment, error) {
	exp, err := s.store.GetExperiment(ctx, id)
	if err != nil {
		s.metrics.ObserveLifecycle("update", "error")
		return nil, storeErr("get_experiment", id, err)
	}

	if err := validatePatch(exp, patch); err != nil {
		s.metrics.ObserveLifecycle("update", "invalid")
		return nil, err
	}

	if patch.Name != nil {
		exp.Name = *patch.Name
	}
	if patch.Description != nil {
		exp.Description = *patch.Description
	}
	if patch.Variants != nil {
		exp.Variants = s.keepVariantIDs(patch.Variants)
	}
	if patch.SampleSizeTarget != nil {
		exp.SampleSizeTarget = *patch.SampleSizeTarget
	}
	if patch.Metrics != nil {
		exp.Metrics = patch.Metrics
	}
	if patch.Status != nil {
		s.transition(exp, *patch.Status)
	}

	if err := s.store.SaveExperiment(ctx, exp); err != nil {
		s.metrics.ObserveLifecycle("update", "error")
		return nil, storeErr("save_experiment", id, err)
	}

	s.metrics.ObserveLifecycle("update", "ok")
	slog.Info("实验已更新", "experiment_id", exp.ID, "status", exp.Status)
	return exp, nil
}

// transition 切换状态；started_at / completed_at 只在首次进入时写入
func (s *ExperimentService) transition(exp *model.Experiment, to model.ExperimentStatus) {
	now := s.now()
	switch to {
	case model.StatusRunning:
		if exp.StartedAt == nil {
			exp.StartedAt = &now
		}
	case model.StatusCompleted:
		if exp.CompletedAt == nil {
			exp.CompletedAt = &now
		}
	}
	exp.Status = to
}

// keepVariantIDs 保留调用方带回的变体 ID，缺失或重复的重新生成
func (s *ExperimentService) keepVariantIDs(in []model.Variant) []model.Variant {
	out := make([]model.Variant, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, v := range in {
		if _, dup := seen[v.ID]; v.ID == "" || dup {
			v.ID = s.newID()
		}
		seen[v.ID] = struct{}{}
		out[i] = v
	}
	return out
}

func validatePatch(exp *model.Experiment, patch ExperimentPatch) error {
	if patch.SampleSizeTarget != nil && *patch.SampleSizeTarget < model.MinSampleSizeTarget {
		return invalid("sample_size_target", "不能小于 %d", model.MinSampleSizeTarget)
	}
	if patch.Status == nil {
		return nil
	}

	to := *patch.Status
	if !to.Valid() {
		return invalid("status", "未知状态 %q", to)
	}
	from := exp.Status
	if from == to {
		return nil
	}
	if from == model.StatusCompleted {
		return invalid("status", "实验已完成，不能切换到 %s", to)
	}
	if to == model.StatusDraft {
		return invalid("status", "不能从 %s 回到 draft", from)
	}
	return nil
}

// Delete 只删除实验定义，历史分配与结果不级联删除
func (s *ExperimentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExperiment(ctx, id); err != nil {
		s.metrics.ObserveLifecycle("delete", "error")
		return storeErr("delete_experiment", id, err)
	}
	s.metrics.ObserveLifecycle("delete", "ok")
	slog.Info("实验已删除", "experiment_id", id)
	return nil
}

func (s *ExperimentService) Get(ctx context.Context, id string) (*model.Experiment, error) {
	exp, err := s.store.GetExperiment(ctx, id)
	if err != nil {
		return nil, storeErr("get_experiment", id, err)
	}
	return exp, nil
}

func (s *ExperimentService) List(ctx context.Context, filter store.ListFilter) ([]model.Experiment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("status", "未知状态 %q", filter.Status)
	}
	if filter.Environment == "" {
		filter.Environment = model.DefaultEnvironment
	}

	list, err := s.store.ListExperiments(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "list_experiments", Err: err}
	}
	return list, nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("", "%v", err)
	}

	fe := verrs[0]
	field := fe.Namespace()
	// 去掉顶层结构体名
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return invalid(field, "不满足约束 %s=%s", fe.Tag(), fe.Param())
	}
	return invalid(field, "不满足约束 %s", fe.Tag())
}
