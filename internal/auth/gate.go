package auth

import (
	"context"
	"fmt"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// RoleChecker 角色成员关系检查接口
// 由 OpenFGA 客户端(含缓存包装)实现
type RoleChecker interface {
	CheckPermission(ctx context.Context, userID string, relation string, objectType string, objectID string) (bool, error)
}

// PermissionGate 审批权限网关
// 判断操作人是否有权对实例的当前步骤做出决定
type PermissionGate interface {
	CanDecide(ctx context.Context, actor string, inst *workflow.Instance, tpl *workflow.Template) error
}

// permissionGate 权限网关实现
// 判定顺序: 转办覆盖 > 模板指定审批人 > 角色成员检查
// 检查失败(包括 OpenFGA 不可达)一律拒绝,绝不放行
type permissionGate struct {
	roles RoleChecker
}

// NewPermissionGate 创建权限网关
func NewPermissionGate(roles RoleChecker) PermissionGate {
	return &permissionGate{roles: roles}
}

// CanDecide 检查操作人对当前步骤的决定权
func (g *permissionGate) CanDecide(ctx context.Context, actor string, inst *workflow.Instance, tpl *workflow.Template) error {
	if actor == "" {
		return fmt.Errorf("%w: actor is empty", workflow.ErrNotAuthorized)
	}

	// 1. 转办覆盖: 覆盖存在时只有接收人可以决定
	if override, ok := inst.Overrides[inst.StepIndex]; ok {
		if actor == override {
			return nil
		}
		return fmt.Errorf("%w: step %d was transferred to another approver", workflow.ErrNotAuthorized, inst.StepIndex)
	}

	step, ok := tpl.Step(inst.StepIndex)
	if !ok {
		return fmt.Errorf("instance %s references step %d outside template %s v%d",
			inst.ID, inst.StepIndex, tpl.Code, tpl.Version)
	}

	// 2. 模板指定审批人
	if len(step.Approvers) > 0 {
		for _, approver := range step.Approvers {
			if actor == approver {
				return nil
			}
		}
		return fmt.Errorf("%w: actor is not among the designated approvers of step %q", workflow.ErrNotAuthorized, step.Name)
	}

	// 3. 角色成员检查
	if g.roles == nil {
		return fmt.Errorf("%w: no role checker configured for role-based step %q", workflow.ErrNotAuthorized, step.Name)
	}
	allowed, err := g.roles.CheckPermission(ctx, actor, "member", "role", step.Role)
	if err != nil {
		// 权限服务不可达时拒绝,不放行
		return fmt.Errorf("role check for %q failed: %w", step.Role, err)
	}
	if !allowed {
		return fmt.Errorf("%w: actor lacks role %q required by step %q", workflow.ErrNotAuthorized, step.Role, step.Name)
	}
	return nil
}
