package model

import "time"

// Assignment 网关把某个请求路由到某个变体的记录，只追加不修改
type Assignment struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	ExperimentID string `gorm:"type:varchar(36);not null;index:idx_assignment_exp_time,priority:1" json:"experiment_id"`
	// 旧数据只有下标；新数据同时写入稳定 ID
	VariantIndex int       `gorm:"not null" json:"variant_index"`
	VariantID    string    `gorm:"type:varchar(36);index" json:"variant_id,omitempty"`
	RequestID    *string   `gorm:"type:varchar(64);index" json:"request_id"`
	AssignedAt   time.Time `gorm:"not null;index:idx_assignment_exp_time,priority:2" json:"assigned_at"`
}

// Outcome 请求的实际结果，每个 request_id 至多一条
type Outcome struct {
	RequestID  string    `gorm:"type:varchar(64);primarykey" json:"request_id"`
	Cost       float64   `gorm:"type:decimal(18,8);not null;default:0" json:"cost"`
	DurationMs int64     `gorm:"not null;default:0" json:"duration_ms"`
	Status     string    `gorm:"type:varchar(20);not null;index" json:"status"`
	SchemaPass bool      `gorm:"not null;default:false" json:"schema_pass"`
	CreatedAt  time.Time `json:"created_at"`
}

const OutcomeStatusSuccess = "success"
