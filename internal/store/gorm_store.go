package store

import (
	"context"
	"errors"
	"fmt"

	"model-abtest/internal/model"

	"gorm.io/gorm"
)

// GormStore 基于 MySQL 的实现
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateExperiment(ctx context.Context, exp *model.Experiment) error {
	if err := s.db.WithContext(ctx).Create(exp).Error; err != nil {
		return fmt.Errorf("创建实验失败: %w", err)
	}
	return nil
}

func (s *GormStore) SaveExperiment(ctx context.Context, exp *model.Experiment) error {
	if err := s.db.WithContext(ctx).Save(exp).Error; err != nil {
		return fmt.Errorf("保存实验失败: %w", err)
	}
	return nil
}

func (s *GormStore) GetExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	var exp model.Experiment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&exp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询实验失败: %w", err)
	}
	return &exp, nil
}

func (s *GormStore) ListExperiments(ctx context.Context, filter ListFilter) ([]model.Experiment, error) {
	var experiments []model.Experiment

	query := s.db.WithContext(ctx).Model(&model.Experiment{}).Where("environment = ?", filter.Environment)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Order("created_at DESC").Find(&experiments).Error; err != nil {
		return nil, fmt.Errorf("查询实验列表失败: %w", err)
	}
	return experiments, nil
}

// DeleteExperiment 软删除实验定义，分配与结果记录保留
func (s *GormStore) DeleteExperiment(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Experiment{})
	if result.Error != nil {
		return fmt.Errorf("删除实验失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetAssignments(ctx context.Context, experimentID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.db.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("assigned_at ASC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("查询分配记录失败: %w", err)
	}
	return assignments, nil
}

func (s *GormStore) RecentAssignments(ctx context.Context, experimentID string, limit int) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.db.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("assigned_at DESC, id DESC").
		Limit(limit).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("查询最近分配记录失败: %w", err)
	}
	return assignments, nil
}

func (s *GormStore) GetOutcomes(ctx context.Context, requestIDs []string) ([]model.Outcome, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	if len(requestIDs) > MaxOutcomeBatch {
		return nil, fmt.Errorf("%w: %d", ErrBatchTooLarge, len(requestIDs))
	}

	var outcomes []model.Outcome
	if err := s.db.WithContext(ctx).Where("request_id IN ?", requestIDs).Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("查询请求结果失败: %w", err)
	}
	return outcomes, nil
}
