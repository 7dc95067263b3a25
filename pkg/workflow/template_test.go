package workflow_test

import (
	"testing"
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
)

// TestTemplateValidate 测试模板验证
func TestTemplateValidate(t *testing.T) {
	tpl := &workflow.Template{
		Code:         "sop-review",
		Name:         "SOP 审批流程",
		DocumentType: "SOP",
		Version:      1,
		Steps: []workflow.StepDefinition{
			{Name: "部门审核", Role: "dept_reviewer", SLAHours: 24},
			{Name: "质量审核", Role: "qa_reviewer", SLAHours: 48},
			{Name: "批准", Approvers: []string{"qa-head"}, SLAHours: 24},
		},
	}
	assert.NoError(t, tpl.Validate())

	// Code 为空
	invalid := *tpl
	invalid.Code = ""
	err := invalid.Validate()
	assert.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidTemplate)

	// 步骤列表为空
	invalid = *tpl
	invalid.Steps = nil
	assert.ErrorIs(t, invalid.Validate(), workflow.ErrInvalidTemplate)

	// 步骤既没有角色也没有审批人
	invalid = *tpl
	invalid.Steps = []workflow.StepDefinition{{Name: "孤立步骤"}}
	assert.ErrorIs(t, invalid.Validate(), workflow.ErrInvalidTemplate)

	// 审批人列表包含空字符串
	invalid = *tpl
	invalid.Steps = []workflow.StepDefinition{{Name: "批准", Approvers: []string{"qa-head", ""}}}
	assert.ErrorIs(t, invalid.Validate(), workflow.ErrInvalidTemplate)
}

// TestTemplateStep 测试步骤访问
func TestTemplateStep(t *testing.T) {
	tpl := &workflow.Template{
		Steps: []workflow.StepDefinition{
			{Name: "first", Role: "r1"},
			{Name: "second", Role: "r2"},
		},
	}

	step, ok := tpl.Step(0)
	assert.True(t, ok)
	assert.Equal(t, "first", step.Name)

	_, ok = tpl.Step(2)
	assert.False(t, ok)
	_, ok = tpl.Step(-1)
	assert.False(t, ok)

	assert.False(t, tpl.IsLastStep(0))
	assert.True(t, tpl.IsLastStep(1))
}

// TestStepDeadline 测试截止时间计算
func TestStepDeadline(t *testing.T) {
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	step := workflow.StepDefinition{Name: "review", Role: "r", SLAHours: 24}
	assert.Equal(t, from.Add(24*time.Hour), step.Deadline(from))

	// 未配置时限时使用默认 72 小时
	step = workflow.StepDefinition{Name: "review", Role: "r"}
	assert.Equal(t, from.Add(72*time.Hour), step.Deadline(from))
}
