package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmpstack/docflow/pkg/event"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GetApprovalInstance 获取审批实例
func (e *approvalEngine) GetApprovalInstance(ctx context.Context, instanceID string) (*workflow.Instance, error) {
	im, err := e.instances.FindByID(instanceID)
	if err != nil {
		return nil, err
	}
	return im.ToInstance()
}

// GetCurrentStep 获取实例的当前步骤信息
// 仅对审批中的实例有意义,终态实例返回 ErrInstanceNotInProgress
func (e *approvalEngine) GetCurrentStep(ctx context.Context, instanceID string) (*StepInfo, error) {
	inst, err := e.GetApprovalInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if !inst.InProgress() {
		return nil, fmt.Errorf("%w: status is %s", workflow.ErrInstanceNotInProgress, inst.Status)
	}

	tpl, err := e.loadTemplate(inst)
	if err != nil {
		return nil, err
	}
	step, ok := tpl.Step(inst.StepIndex)
	if !ok {
		return nil, fmt.Errorf("instance %s references step %d outside template %s v%d",
			inst.ID, inst.StepIndex, tpl.Code, tpl.Version)
	}

	return &StepInfo{
		Instance:  inst,
		Step:      step,
		StepIndex: inst.StepIndex,
		Approvers: inst.CurrentApprovers(tpl),
		Overdue:   inst.Overdue(e.now()),
	}, nil
}

// GetDecisions 按时间顺序读取实例的决定台账
func (e *approvalEngine) GetDecisions(ctx context.Context, instanceID string) ([]*workflow.Decision, error) {
	// 先确认实例存在,区分空台账与不存在的实例
	if _, err := e.instances.FindByID(instanceID); err != nil {
		return nil, err
	}

	dms, err := e.decisions.FindByInstanceID(instanceID)
	if err != nil {
		return nil, err
	}
	decisions := make([]*workflow.Decision, len(dms))
	for i, dm := range dms {
		decisions[i] = dm.ToDecision()
	}
	return decisions, nil
}

// GetActorDecisions 获取某操作人跨实例的全部决定,新决定在前
func (e *approvalEngine) GetActorDecisions(ctx context.Context, actor string) ([]*workflow.Decision, error) {
	dms, err := e.decisions.FindByActor(actor)
	if err != nil {
		return nil, err
	}
	decisions := make([]*workflow.Decision, len(dms))
	for i, dm := range dms {
		decisions[i] = dm.ToDecision()
	}
	return decisions, nil
}

// GetPendingTasks 获取用户的待办任务
// 逐实例通过权限网关判定,网关失败的实例不进入待办而非放行
func (e *approvalEngine) GetPendingTasks(ctx context.Context, userID string) ([]*PendingTask, error) {
	ims, err := e.instances.FindInProgress()
	if err != nil {
		return nil, err
	}

	now := e.now()
	tasks := make([]*PendingTask, 0)
	for _, im := range ims {
		inst, err := im.ToInstance()
		if err != nil {
			return nil, err
		}
		tpl, err := e.loadTemplate(inst)
		if err != nil {
			if errors.Is(err, workflow.ErrTemplateNotFound) {
				logrus.WithField("instance_id", inst.ID).Warn("Instance references missing template, skipping")
				continue
			}
			return nil, err
		}

		if err := e.gate.CanDecide(ctx, userID, inst, tpl); err != nil {
			if !workflow.IsBusinessError(err) {
				logrus.WithError(err).WithField("instance_id", inst.ID).Warn("Permission check failed, excluding from pending tasks")
			}
			continue
		}

		step, ok := tpl.Step(inst.StepIndex)
		if !ok {
			continue
		}
		tasks = append(tasks, &PendingTask{
			Instance: inst,
			Step:     step,
			Deadline: inst.StepDeadline,
			Overdue:  inst.Overdue(now),
		})
	}
	return tasks, nil
}

// GetDocumentApprovalHistory 获取文档的完整审批历史
// 每个实例附带其全部台账条目,新实例在前
func (e *approvalEngine) GetDocumentApprovalHistory(ctx context.Context, documentID string) ([]*DocumentHistory, error) {
	ims, err := e.instances.FindByDocumentID(documentID)
	if err != nil {
		return nil, err
	}

	history := make([]*DocumentHistory, 0, len(ims))
	for _, im := range ims {
		inst, err := im.ToInstance()
		if err != nil {
			return nil, err
		}
		dms, err := e.decisions.FindByInstanceID(inst.ID)
		if err != nil {
			return nil, err
		}
		decisions := make([]*workflow.Decision, len(dms))
		for i, dm := range dms {
			decisions[i] = dm.ToDecision()
		}
		history = append(history, &DocumentHistory{
			Instance:  inst,
			Decisions: decisions,
		})
	}
	return history, nil
}

// SweepOverdue 扫描超时实例并发出升级通知
// 不写台账、不改状态,重复执行至多产生重复通知,返回通知的实例数
func (e *approvalEngine) SweepOverdue(ctx context.Context) (int, error) {
	ims, err := e.instances.FindOverdue(e.now())
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, im := range ims {
		inst, err := im.ToInstance()
		if err != nil {
			logrus.WithError(err).WithField("instance_id", im.ID).Error("Failed to decode overdue instance")
			continue
		}
		tpl, err := e.loadTemplate(inst)
		if err != nil {
			logrus.WithError(err).WithField("instance_id", inst.ID).Error("Failed to load template for overdue instance")
			continue
		}

		recipients := escalationRecipients(inst, tpl)
		evt := &event.Event{
			ID:         uuid.New().String(),
			Type:       event.TypeStepEscalated,
			Instance:   inst,
			Recipients: recipients,
			OccurredAt: e.now(),
		}
		if err := e.events.Handle(evt); err != nil {
			logrus.WithError(err).WithField("instance_id", inst.ID).Error("Failed to emit escalation event")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"instance_id": inst.ID,
			"step_index":  inst.StepIndex,
			"deadline":    inst.StepDeadline,
			"recipients":  recipients,
		}).Info("Overdue approval escalated")
		notified++
	}
	return notified, nil
}

// loadTemplate 加载实例引用的模板版本
func (e *approvalEngine) loadTemplate(inst *workflow.Instance) (*workflow.Template, error) {
	tm, err := e.templates.FindByCode(inst.WorkflowCode, inst.WorkflowVersion)
	if err != nil {
		return nil, err
	}
	return tm.ToTemplate()
}

// escalationRecipients 解析超时升级的通知接收人
// 步骤配置了升级接收人时通知升级人,否则退回通知当前审批人
func escalationRecipients(inst *workflow.Instance, tpl *workflow.Template) []string {
	if step, ok := tpl.Step(inst.StepIndex); ok && step.EscalateTo != "" {
		return []string{step.EscalateTo}
	}
	return recipientsFor(inst, tpl)
}
