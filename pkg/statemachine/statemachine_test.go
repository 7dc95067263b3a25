package statemachine_test

import (
	"testing"
	"time"

	"github.com/gmpstack/docflow/pkg/statemachine"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplate() *workflow.Template {
	return &workflow.Template{
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
}

func testInstance(stepIndex int) *workflow.Instance {
	return &workflow.Instance{
		ID:           "inst-001",
		Status:       workflow.StatusInProgress,
		StepIndex:    stepIndex,
		StepDeadline: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

// TestApplyApproveAdvances 测试中间步骤通过后推进
func TestApplyApproveAdvances(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tpl := testTemplate()

	outcome, err := statemachine.Apply(testInstance(0), tpl, workflow.KindApprove, now)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, outcome.Status)
	assert.Equal(t, 1, outcome.StepIndex)
	assert.True(t, outcome.Advanced)
	assert.False(t, outcome.Completed)
	// 新步骤的截止时间按其自身时限从当前时刻起算
	assert.Equal(t, now.Add(48*time.Hour), outcome.Deadline)
}

// TestApplyApproveLastStep 测试最后一步通过后到达终态
func TestApplyApproveLastStep(t *testing.T) {
	now := time.Now()
	outcome, err := statemachine.Apply(testInstance(2), testTemplate(), workflow.KindApprove, now)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, outcome.Status)
	assert.Equal(t, 2, outcome.StepIndex)
	assert.False(t, outcome.Advanced)
	assert.True(t, outcome.Completed)
}

// TestApplyReject 测试任意步骤拒绝立即终止
func TestApplyReject(t *testing.T) {
	for stepIndex := 0; stepIndex < 3; stepIndex++ {
		outcome, err := statemachine.Apply(testInstance(stepIndex), testTemplate(), workflow.KindReject, time.Now())
		require.NoError(t, err)
		assert.Equal(t, workflow.StatusRejected, outcome.Status)
		assert.Equal(t, stepIndex, outcome.StepIndex)
		assert.True(t, outcome.Completed)
	}
}

// TestApplyWithdraw 测试撤回到达终态
func TestApplyWithdraw(t *testing.T) {
	outcome, err := statemachine.Apply(testInstance(1), testTemplate(), workflow.KindWithdraw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWithdrawn, outcome.Status)
	assert.True(t, outcome.Completed)
}

// TestApplyTransferKeepsStep 测试转办不改变步骤与截止时间
func TestApplyTransferKeepsStep(t *testing.T) {
	inst := testInstance(1)
	outcome, err := statemachine.Apply(inst, testTemplate(), workflow.KindTransfer, time.Now())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, outcome.Status)
	assert.Equal(t, 1, outcome.StepIndex)
	assert.False(t, outcome.Advanced)
	assert.False(t, outcome.Completed)
	assert.Equal(t, inst.StepDeadline, outcome.Deadline)
}

// TestApplyEscalateKeepsStep 测试催办不改变步骤
func TestApplyEscalateKeepsStep(t *testing.T) {
	inst := testInstance(0)
	outcome, err := statemachine.Apply(inst, testTemplate(), workflow.KindEscalate, time.Now())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, outcome.Status)
	assert.Equal(t, 0, outcome.StepIndex)
	assert.Equal(t, inst.StepDeadline, outcome.Deadline)
}

// TestApplyTerminalInstance 终态实例拒绝任何决定
func TestApplyTerminalInstance(t *testing.T) {
	for _, status := range []workflow.Status{
		workflow.StatusApproved,
		workflow.StatusRejected,
		workflow.StatusWithdrawn,
	} {
		inst := testInstance(2)
		inst.Status = status
		_, err := statemachine.Apply(inst, testTemplate(), workflow.KindApprove, time.Now())
		assert.ErrorIs(t, err, workflow.ErrInstanceNotInProgress, "status %s", status)
	}
}

// TestApplyInvalidStepIndex 测试越界步骤下标
func TestApplyInvalidStepIndex(t *testing.T) {
	_, err := statemachine.Apply(testInstance(5), testTemplate(), workflow.KindApprove, time.Now())
	assert.Error(t, err)
}

// TestApplyUnknownKind 测试未知决定类型
func TestApplyUnknownKind(t *testing.T) {
	_, err := statemachine.Apply(testInstance(0), testTemplate(), workflow.DecisionKind("DELEGATE"), time.Now())
	assert.Error(t, err)
}
