package workflow

import (
	"fmt"
	"time"
)

// StepDefinition 审批步骤定义
// 每个步骤要求一个角色或一组指定审批人,二者至少其一
type StepDefinition struct {
	Name       string   `json:"name"`                  // 步骤名称
	Role       string   `json:"role,omitempty"`        // 要求的角色(由权限网关解释)
	Approvers  []string `json:"approvers,omitempty"`   // 指定审批人列表
	SLAHours   int      `json:"sla_hours"`             // 步骤时限(小时)
	EscalateTo string   `json:"escalate_to,omitempty"` // 超时升级接收人
}

// Deadline 计算步骤截止时间
// 截止时间为绝对时间戳,在步骤激活时一次性计算,之后不再重算
func (s StepDefinition) Deadline(from time.Time) time.Time {
	hours := s.SLAHours
	if hours <= 0 {
		hours = 72 // 未配置时限时的默认值
	}
	return from.Add(time.Duration(hours) * time.Hour)
}

// Template 审批工作流模板
// (Code, Version) 组合唯一标识一个模板版本
// 一旦有实例引用某个版本,该版本即不可变,修改只能产生新版本
type Template struct {
	Code         string           `json:"code"`          // 模板编码
	Name         string           `json:"name"`          // 模板名称
	DocumentType string           `json:"document_type"` // 适用文档类型
	Steps        []StepDefinition `json:"steps"`         // 有序步骤列表
	Version      int              `json:"version"`       // 模板版本
	Active       bool             `json:"active"`        // 是否启用
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Validate 验证模板定义
func (t *Template) Validate() error {
	if t.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidTemplate)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if t.DocumentType == "" {
		return fmt.Errorf("%w: document type is required", ErrInvalidTemplate)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidTemplate)
	}
	for i, step := range t.Steps {
		if step.Name == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidTemplate, i)
		}
		if step.Role == "" && len(step.Approvers) == 0 {
			return fmt.Errorf("%w: step %q requires a role or at least one approver", ErrInvalidTemplate, step.Name)
		}
		for _, approver := range step.Approvers {
			if approver == "" {
				return fmt.Errorf("%w: step %q has an empty approver reference", ErrInvalidTemplate, step.Name)
			}
		}
	}
	return nil
}

// Step 返回指定下标的步骤定义
func (t *Template) Step(index int) (StepDefinition, bool) {
	if index < 0 || index >= len(t.Steps) {
		return StepDefinition{}, false
	}
	return t.Steps[index], true
}

// IsLastStep 判断下标是否为最后一个步骤
func (t *Template) IsLastStep(index int) bool {
	return index == len(t.Steps)-1
}
