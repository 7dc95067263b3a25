package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// ApprovalInstanceModel 审批实例数据模型
// Revision 是乐观锁版本号,每次状态转换提交时加一;
// 并发更新靠 UPDATE ... WHERE revision = ? 的受影响行数检测
type ApprovalInstanceModel struct {
	ID              string     `gorm:"primaryKey;type:varchar(64)"`
	DocumentID      string     `gorm:"type:varchar(64);not null;index"`
	DocumentType    string     `gorm:"type:varchar(64);not null;index"`
	WorkflowCode    string     `gorm:"type:varchar(64);not null;index"`
	WorkflowVersion int        `gorm:"type:int;not null"` // 启动时固定的模板版本
	Initiator       string     `gorm:"type:varchar(64);not null;index"`
	Status          string     `gorm:"type:varchar(32);not null;index"` // IN_PROGRESS/APPROVED/REJECTED/WITHDRAWN
	StepIndex       int        `gorm:"type:int;not null"`
	StepDeadline    time.Time  `gorm:"not null;index"` // 当前步骤截止时间
	Priority        string     `gorm:"type:varchar(16);not null;default:'NORMAL'"`
	StartedAt       time.Time  `gorm:"not null;index"`
	CompletedAt     *time.Time `gorm:"index"`
	Comments        string     `gorm:"type:text"`
	Overrides       []byte     `gorm:"type:jsonb"` // 步骤下标 → 转办后审批人
	Revision        int        `gorm:"type:int;not null;default:0"`
}

// TableName 指定表名
func (ApprovalInstanceModel) TableName() string {
	return "approval_instances"
}

// Validate 验证实例模型
func (im *ApprovalInstanceModel) Validate() error {
	if im.ID == "" {
		return errors.New("instance ID is required")
	}
	if im.DocumentID == "" {
		return errors.New("document ID is required")
	}
	if im.WorkflowCode == "" {
		return errors.New("workflow code is required")
	}
	if im.WorkflowVersion <= 0 {
		return errors.New("workflow version must be positive")
	}
	if im.Initiator == "" {
		return errors.New("initiator is required")
	}
	if im.Status == "" {
		return errors.New("instance status is required")
	}
	if im.StepIndex < 0 {
		return errors.New("step index must not be negative")
	}
	return nil
}

// ToInstance 反序列化为领域实例
func (im *ApprovalInstanceModel) ToInstance() (*workflow.Instance, error) {
	var overrides map[int]string
	if len(im.Overrides) > 0 {
		if err := json.Unmarshal(im.Overrides, &overrides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance overrides: %w", err)
		}
	}
	return &workflow.Instance{
		ID:              im.ID,
		DocumentID:      im.DocumentID,
		DocumentType:    im.DocumentType,
		WorkflowCode:    im.WorkflowCode,
		WorkflowVersion: im.WorkflowVersion,
		Initiator:       im.Initiator,
		Status:          workflow.Status(im.Status),
		StepIndex:       im.StepIndex,
		StepDeadline:    im.StepDeadline,
		Priority:        workflow.Priority(im.Priority),
		StartedAt:       im.StartedAt,
		CompletedAt:     im.CompletedAt,
		Comments:        im.Comments,
		Overrides:       overrides,
		Revision:        im.Revision,
	}, nil
}

// NewApprovalInstanceModel 从领域实例构建数据模型
func NewApprovalInstanceModel(inst *workflow.Instance) (*ApprovalInstanceModel, error) {
	var overrides []byte
	if len(inst.Overrides) > 0 {
		data, err := json.Marshal(inst.Overrides)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal instance overrides: %w", err)
		}
		overrides = data
	}
	return &ApprovalInstanceModel{
		ID:              inst.ID,
		DocumentID:      inst.DocumentID,
		DocumentType:    inst.DocumentType,
		WorkflowCode:    inst.WorkflowCode,
		WorkflowVersion: inst.WorkflowVersion,
		Initiator:       inst.Initiator,
		Status:          string(inst.Status),
		StepIndex:       inst.StepIndex,
		StepDeadline:    inst.StepDeadline,
		Priority:        string(inst.Priority),
		StartedAt:       inst.StartedAt,
		CompletedAt:     inst.CompletedAt,
		Comments:        inst.Comments,
		Overrides:       overrides,
		Revision:        inst.Revision,
	}, nil
}
