package workflow_test

import (
	"testing"

	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReplayFullApproval 测试全部通过的重放
func TestReplayFullApproval(t *testing.T) {
	decisions := []workflow.Decision{
		{Kind: workflow.KindApprove, StepIndex: 0},
		{Kind: workflow.KindApprove, StepIndex: 1},
		{Kind: workflow.KindApprove, StepIndex: 2},
	}

	result, err := workflow.Replay(3, decisions)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, result.Status)
	assert.Equal(t, 2, result.StepIndex)
}

// TestReplayRejectMidway 测试中途拒绝的重放
func TestReplayRejectMidway(t *testing.T) {
	decisions := []workflow.Decision{
		{Kind: workflow.KindApprove, StepIndex: 0},
		{Kind: workflow.KindReject, StepIndex: 1},
	}

	result, err := workflow.Replay(3, decisions)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, result.Status)
	assert.Equal(t, 1, result.StepIndex)
}

// TestReplayTransferAndEscalate 测试转办与催办不改变状态
func TestReplayTransferAndEscalate(t *testing.T) {
	decisions := []workflow.Decision{
		{Kind: workflow.KindApprove, StepIndex: 0},
		{Kind: workflow.KindTransfer, StepIndex: 1, TargetActor: "carol"},
		{Kind: workflow.KindEscalate, StepIndex: 1},
		{Kind: workflow.KindApprove, StepIndex: 1},
	}

	result, err := workflow.Replay(3, decisions)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, result.Status)
	assert.Equal(t, 2, result.StepIndex)
}

// TestReplayWithdraw 测试撤回的重放
func TestReplayWithdraw(t *testing.T) {
	decisions := []workflow.Decision{
		{Kind: workflow.KindApprove, StepIndex: 0},
		{Kind: workflow.KindWithdraw, StepIndex: 1},
	}

	result, err := workflow.Replay(3, decisions)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWithdrawn, result.Status)
}

// TestReplayEmptyLedger 空台账重放得到初始状态
func TestReplayEmptyLedger(t *testing.T) {
	result, err := workflow.Replay(3, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, result.Status)
	assert.Equal(t, 0, result.StepIndex)
}

// TestReplayCorruptLedger 测试损坏台账的检测
func TestReplayCorruptLedger(t *testing.T) {
	// 终态之后仍有决定
	decisions := []workflow.Decision{
		{Kind: workflow.KindReject, StepIndex: 0},
		{Kind: workflow.KindApprove, StepIndex: 0},
	}
	_, err := workflow.Replay(3, decisions)
	assert.Error(t, err)

	// 步骤下标与重放位置不一致
	decisions = []workflow.Decision{
		{Kind: workflow.KindApprove, StepIndex: 1},
	}
	_, err = workflow.Replay(3, decisions)
	assert.Error(t, err)

	// 未知决定类型
	decisions = []workflow.Decision{
		{Kind: workflow.DecisionKind("DELEGATE"), StepIndex: 0},
	}
	_, err = workflow.Replay(3, decisions)
	assert.Error(t, err)

	// 非法步骤数
	_, err = workflow.Replay(0, nil)
	assert.Error(t, err)
}
