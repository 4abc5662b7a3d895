// Package store 提供实验定义、分配记录与请求结果的读写访问。
//
// 分配记录与请求结果由外部网关写入，本服务只读；实验定义由本服务维护。
package store

import (
	"context"
	"errors"

	"model-abtest/internal/model"
)

// MaxOutcomeBatch 单次按 request_id 查询结果的上限
const MaxOutcomeBatch = 1000

var (
	ErrNotFound      = errors.New("记录不存在")
	ErrBatchTooLarge = errors.New("request_id 数量超过单次查询上限")
)

// ListFilter 实验列表过滤条件；Status 为空表示不过滤
type ListFilter struct {
	Status      model.ExperimentStatus
	Environment string
}

type Store interface {
	CreateExperiment(ctx context.Context, exp *model.Experiment) error
	SaveExperiment(ctx context.Context, exp *model.Experiment) error
	GetExperiment(ctx context.Context, id string) (*model.Experiment, error)
	ListExperiments(ctx context.Context, filter ListFilter) ([]model.Experiment, error)
	DeleteExperiment(ctx context.Context, id string) error

	// GetAssignments 按 assigned_at、id 升序返回实验的全部分配记录
	GetAssignments(ctx context.Context, experimentID string) ([]model.Assignment, error)
	// RecentAssignments 按 assigned_at 倒序返回最近 limit 条
	RecentAssignments(ctx context.Context, experimentID string, limit int) ([]model.Assignment, error)
	// GetOutcomes 按 request_id 批量查询结果，缺失的 request_id 直接跳过
	GetOutcomes(ctx context.Context, requestIDs []string) ([]model.Outcome, error)
}
