package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// WorkflowTemplateModel 工作流模板数据模型
// 主键组合 (code, version),版本一旦写入即不可变,更新产生新版本行
type WorkflowTemplateModel struct {
	Code         string    `gorm:"primaryKey;type:varchar(64)"`
	Version      int       `gorm:"primaryKey;type:int;not null;default:1"`
	Name         string    `gorm:"type:varchar(255);not null"`
	DocumentType string    `gorm:"type:varchar(64);not null;index"` // 适用文档类型
	Steps        []byte    `gorm:"type:jsonb;not null"`             // 序列化后的有序步骤列表
	// 不设列默认值: gorm 在 Create 时会跳过带 default 标签的零值字段,
	// 停用状态的 false 会被悄悄写成 true
	Active       bool      `gorm:"not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	CreatedBy    string    `gorm:"type:varchar(64)"` // 创建人 ID
}

// TableName 指定表名
func (WorkflowTemplateModel) TableName() string {
	return "workflow_templates"
}

// Validate 验证模板模型
func (tm *WorkflowTemplateModel) Validate() error {
	if tm.Code == "" {
		return errors.New("template code is required")
	}
	if tm.Version <= 0 {
		return errors.New("template version must be positive")
	}
	if tm.Name == "" {
		return errors.New("template name is required")
	}
	if tm.DocumentType == "" {
		return errors.New("document type is required")
	}
	if len(tm.Steps) == 0 {
		return errors.New("template steps are required")
	}
	return nil
}

// ToTemplate 反序列化为领域模板
func (tm *WorkflowTemplateModel) ToTemplate() (*workflow.Template, error) {
	var steps []workflow.StepDefinition
	if err := json.Unmarshal(tm.Steps, &steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template steps: %w", err)
	}
	return &workflow.Template{
		Code:         tm.Code,
		Name:         tm.Name,
		DocumentType: tm.DocumentType,
		Steps:        steps,
		Version:      tm.Version,
		Active:       tm.Active,
		CreatedAt:    tm.CreatedAt,
		UpdatedAt:    tm.UpdatedAt,
	}, nil
}

// NewWorkflowTemplateModel 从领域模板构建数据模型
func NewWorkflowTemplateModel(tpl *workflow.Template, createdBy string) (*WorkflowTemplateModel, error) {
	steps, err := json.Marshal(tpl.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template steps: %w", err)
	}
	return &WorkflowTemplateModel{
		Code:         tpl.Code,
		Version:      tpl.Version,
		Name:         tpl.Name,
		DocumentType: tpl.DocumentType,
		Steps:        steps,
		Active:       tpl.Active,
		CreatedAt:    tpl.CreatedAt,
		UpdatedAt:    tpl.UpdatedAt,
		CreatedBy:    createdBy,
	}, nil
}
