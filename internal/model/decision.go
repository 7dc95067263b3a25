package model

import (
	"errors"
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// DecisionModel 决定台账数据模型
// 仅追加,没有更新与删除路径; (instance_id, created_at) 上的索引
// 支撑按时间顺序的台账读取与重放
type DecisionModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	InstanceID  string    `gorm:"type:varchar(64);not null;index:idx_decisions_instance_time,priority:1"`
	StepIndex   int       `gorm:"type:int;not null"`
	Actor       string    `gorm:"type:varchar(64);not null;index"`
	Kind        string    `gorm:"type:varchar(32);not null"` // APPROVE/REJECT/TRANSFER/WITHDRAW/ESCALATE
	TargetActor string    `gorm:"type:varchar(64)"`          // TRANSFER 的接收人
	Comment     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;index:idx_decisions_instance_time,priority:2"`
}

// TableName 指定表名
func (DecisionModel) TableName() string {
	return "approval_decisions"
}

// Validate 验证决定模型
func (dm *DecisionModel) Validate() error {
	if dm.ID == "" {
		return errors.New("decision ID is required")
	}
	if dm.InstanceID == "" {
		return errors.New("instance ID is required")
	}
	if dm.Actor == "" {
		return errors.New("actor is required")
	}
	if !workflow.DecisionKind(dm.Kind).Valid() {
		return errors.New("decision kind is invalid")
	}
	if dm.StepIndex < 0 {
		return errors.New("step index must not be negative")
	}
	return nil
}

// ToDecision 转换为领域决定
func (dm *DecisionModel) ToDecision() *workflow.Decision {
	return &workflow.Decision{
		ID:          dm.ID,
		InstanceID:  dm.InstanceID,
		StepIndex:   dm.StepIndex,
		Actor:       dm.Actor,
		Kind:        workflow.DecisionKind(dm.Kind),
		TargetActor: dm.TargetActor,
		Comment:     dm.Comment,
		CreatedAt:   dm.CreatedAt,
	}
}

// NewDecisionModel 从领域决定构建数据模型
func NewDecisionModel(d *workflow.Decision) *DecisionModel {
	return &DecisionModel{
		ID:          d.ID,
		InstanceID:  d.InstanceID,
		StepIndex:   d.StepIndex,
		Actor:       d.Actor,
		Kind:        string(d.Kind),
		TargetActor: d.TargetActor,
		Comment:     d.Comment,
		CreatedAt:   d.CreatedAt,
	}
}
