// Package statemachine 实现审批实例的状态转换函数
// 转换函数是纯函数: 不做鉴权,不做持久化,只计算给定决定之后的新状态
// 对决定类型做穷尽分支,新增类型会在此处立即暴露遗漏
package statemachine

import (
	"fmt"
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// Outcome 一次转换的计算结果
// 调用方负责将其原子地写回实例并追加台账条目
type Outcome struct {
	Status    workflow.Status // 转换后的实例状态
	StepIndex int             // 转换后的步骤下标
	Deadline  time.Time       // 新步骤的截止时间,仅 Advanced 为 true 时有意义
	Advanced  bool            // 是否推进到了下一步
	Completed bool            // 是否到达终态
}

// Apply 对处于审批中的实例施加一个决定,返回转换结果
// 前置条件: 实例状态为 IN_PROGRESS 且步骤下标有效,由调用方保证;
// 此处对前置条件做防御校验并以业务错误上报
func Apply(inst *workflow.Instance, tpl *workflow.Template, kind workflow.DecisionKind, now time.Time) (Outcome, error) {
	if !inst.InProgress() {
		return Outcome{}, fmt.Errorf("%w: status is %s", workflow.ErrInstanceNotInProgress, inst.Status)
	}
	if _, ok := tpl.Step(inst.StepIndex); !ok {
		return Outcome{}, fmt.Errorf("instance %s references step %d outside template %s v%d (%d steps)",
			inst.ID, inst.StepIndex, tpl.Code, tpl.Version, len(tpl.Steps))
	}

	switch kind {
	case workflow.KindApprove:
		if tpl.IsLastStep(inst.StepIndex) {
			return Outcome{
				Status:    workflow.StatusApproved,
				StepIndex: inst.StepIndex,
				Completed: true,
			}, nil
		}
		next, _ := tpl.Step(inst.StepIndex + 1)
		return Outcome{
			Status:    workflow.StatusInProgress,
			StepIndex: inst.StepIndex + 1,
			Deadline:  next.Deadline(now),
			Advanced:  true,
		}, nil

	case workflow.KindReject:
		return Outcome{
			Status:    workflow.StatusRejected,
			StepIndex: inst.StepIndex,
			Completed: true,
		}, nil

	case workflow.KindWithdraw:
		return Outcome{
			Status:    workflow.StatusWithdrawn,
			StepIndex: inst.StepIndex,
			Completed: true,
		}, nil

	case workflow.KindTransfer, workflow.KindEscalate:
		// 不改变状态与步骤,截止时间沿用当前步骤的
		return Outcome{
			Status:    workflow.StatusInProgress,
			StepIndex: inst.StepIndex,
			Deadline:  inst.StepDeadline,
		}, nil

	default:
		return Outcome{}, fmt.Errorf("unknown decision kind %q", kind)
	}
}
