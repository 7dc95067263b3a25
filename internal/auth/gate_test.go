package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gmpstack/docflow/internal/auth"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRoleChecker 角色检查桩实现
type stubRoleChecker struct {
	members map[string]bool // "user:role" → 是否属于该角色
	err     error
	calls   int
}

func (s *stubRoleChecker) CheckPermission(ctx context.Context, userID, relation, objectType, objectID string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.members[userID+":"+objectID], nil
}

func gateTemplate() *workflow.Template {
	return &workflow.Template{
		Code:         "sop-review",
		Name:         "SOP Review",
		DocumentType: "SOP",
		Version:      1,
		Active:       true,
		Steps: []workflow.StepDefinition{
			{Name: "QA Review", Role: "qa-reviewer", SLAHours: 24},
			{Name: "Final Sign-off", Approvers: []string{"dana", "erin"}, SLAHours: 48},
		},
	}
}

func gateInstance(stepIndex int) *workflow.Instance {
	return &workflow.Instance{
		ID:           "inst-001",
		DocumentID:   "doc-001",
		WorkflowCode: "sop-review",
		Status:       workflow.StatusInProgress,
		StepIndex:    stepIndex,
	}
}

// TestCanDecide_RoleMembership 测试角色成员判定
func TestCanDecide_RoleMembership(t *testing.T) {
	roles := &stubRoleChecker{members: map[string]bool{"alice:qa-reviewer": true}}
	gate := auth.NewPermissionGate(roles)

	assert.NoError(t, gate.CanDecide(context.Background(), "alice", gateInstance(0), gateTemplate()))

	err := gate.CanDecide(context.Background(), "mallory", gateInstance(0), gateTemplate())
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
}

// TestCanDecide_DesignatedApprovers 测试指定审批人步骤
func TestCanDecide_DesignatedApprovers(t *testing.T) {
	roles := &stubRoleChecker{members: map[string]bool{}}
	gate := auth.NewPermissionGate(roles)

	assert.NoError(t, gate.CanDecide(context.Background(), "dana", gateInstance(1), gateTemplate()))

	err := gate.CanDecide(context.Background(), "alice", gateInstance(1), gateTemplate())
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
	// 指定审批人步骤不走角色检查
	assert.Equal(t, 0, roles.calls)
}

// TestCanDecide_TransferOverride 测试转办覆盖优先于模板配置
func TestCanDecide_TransferOverride(t *testing.T) {
	roles := &stubRoleChecker{members: map[string]bool{"alice:qa-reviewer": true}}
	gate := auth.NewPermissionGate(roles)

	inst := gateInstance(0)
	inst.Overrides = map[int]string{0: "frank"}

	assert.NoError(t, gate.CanDecide(context.Background(), "frank", inst, gateTemplate()))

	// 覆盖存在时,原本有角色的审批人也被拒绝
	err := gate.CanDecide(context.Background(), "alice", inst, gateTemplate())
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
	assert.Equal(t, 0, roles.calls)
}

// TestCanDecide_CheckerUnavailable 测试权限服务不可达时拒绝
func TestCanDecide_CheckerUnavailable(t *testing.T) {
	roles := &stubRoleChecker{err: errors.New("connection refused")}
	gate := auth.NewPermissionGate(roles)

	err := gate.CanDecide(context.Background(), "alice", gateInstance(0), gateTemplate())
	require.Error(t, err)
	// 不可达不是授权判定,错误不应伪装成 ErrNotAuthorized
	assert.NotErrorIs(t, err, workflow.ErrNotAuthorized)
}

// TestCanDecide_NoCheckerConfigured 测试角色步骤缺少检查器时拒绝
func TestCanDecide_NoCheckerConfigured(t *testing.T) {
	gate := auth.NewPermissionGate(nil)

	err := gate.CanDecide(context.Background(), "alice", gateInstance(0), gateTemplate())
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
}

// TestCanDecide_EmptyActor 测试空操作人被拒绝
func TestCanDecide_EmptyActor(t *testing.T) {
	gate := auth.NewPermissionGate(&stubRoleChecker{})

	err := gate.CanDecide(context.Background(), "", gateInstance(0), gateTemplate())
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
}

// TestCanDecide_StepOutOfRange 测试步骤越界
func TestCanDecide_StepOutOfRange(t *testing.T) {
	gate := auth.NewPermissionGate(&stubRoleChecker{})

	err := gate.CanDecide(context.Background(), "alice", gateInstance(5), gateTemplate())
	require.Error(t, err)
}
