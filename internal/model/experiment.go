package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExperimentStatus 实验状态
type ExperimentStatus string

const (
	StatusDraft     ExperimentStatus = "draft"
	StatusRunning   ExperimentStatus = "running"
	StatusPaused    ExperimentStatus = "paused"
	StatusCompleted ExperimentStatus = "completed"
)

// Valid 是否为已知状态
func (s ExperimentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

const (
	DefaultSampleSizeTarget = 1000
	MinSampleSizeTarget     = 10
	DefaultEnvironment      = "production"
)

// Experiment 路由上的 A/B 实验定义
type Experiment struct {
	ID        string         `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string `gorm:"type:varchar(200);not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	// 所属路由
	RouteID     string `gorm:"type:varchar(64);not null;index" json:"route_id"`
	Environment string `gorm:"type:varchar(32);not null;index" json:"environment"`

	// 变体顺序即展示顺序；历史分配按 Variant.ID 关联
	Variants         datatypes.JSONSlice[Variant] `gorm:"type:json" json:"variants"`
	SampleSizeTarget int                          `gorm:"not null;default:1000" json:"sample_size_target"`

	Status      ExperimentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	StartedAt   *time.Time       `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`

	Metrics   datatypes.JSONMap `gorm:"type:json" json:"metrics,omitempty"`
	CreatedBy string            `gorm:"type:varchar(100)" json:"created_by"`
}

// Variant 实验中的一个候选配置（模型 + 流量权重）
type Variant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name" validate:"required"`
	Model       string  `json:"model" validate:"required"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
	Description string  `json:"description,omitempty"`
}

// VariantIndex 按稳定 ID 查找变体下标，找不到返回 -1
func (e *Experiment) VariantIndex(variantID string) int {
	for i, v := range e.Variants {
		if v.ID == variantID {
			return i
		}
	}
	return -1
}
