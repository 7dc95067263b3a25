// Package engine 实现文档审批流程引擎
// 引擎负责实例生命周期: 启动、决定执行、转办、撤回、催办与超时扫描
// 鉴权委托给权限网关,状态计算委托给转换函数,本包负责把二者与
// 持久化原子地粘合起来
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gmpstack/docflow/internal/auth"
	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/pkg/event"
	"github.com/gmpstack/docflow/pkg/statemachine"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StartRequest 启动审批流程请求
type StartRequest struct {
	DocumentID   string
	DocumentType string
	WorkflowCode string
	Initiator    string
	Priority     workflow.Priority
	Comments     string
}

// StepInfo 当前步骤信息
type StepInfo struct {
	Instance  *workflow.Instance      `json:"instance"`
	Step      workflow.StepDefinition `json:"step"`
	StepIndex int                     `json:"step_index"`
	Approvers []string                `json:"approvers"` // 转办覆盖后的指定审批人,仅角色步骤为空
	Overdue   bool                    `json:"overdue"`
}

// PendingTask 待办任务
type PendingTask struct {
	Instance *workflow.Instance      `json:"instance"`
	Step     workflow.StepDefinition `json:"step"`
	Deadline time.Time               `json:"deadline"`
	Overdue  bool                    `json:"overdue"`
}

// DocumentHistory 文档的一次审批历史
type DocumentHistory struct {
	Instance  *workflow.Instance   `json:"instance"`
	Decisions []*workflow.Decision `json:"decisions"`
}

// Engine 审批流程引擎接口
type Engine interface {
	StartApprovalProcess(ctx context.Context, req StartRequest) (*workflow.Instance, error)
	ExecuteApprovalStep(ctx context.Context, instanceID string, actor string, approved bool, comment string) (bool, error)
	TransferApproval(ctx context.Context, instanceID string, actor string, target string, comment string) error
	WithdrawApproval(ctx context.Context, instanceID string, actor string, comment string) error
	UrgeApproval(ctx context.Context, instanceID string, actor string) error
	GetApprovalInstance(ctx context.Context, instanceID string) (*workflow.Instance, error)
	GetCurrentStep(ctx context.Context, instanceID string) (*StepInfo, error)
	GetDecisions(ctx context.Context, instanceID string) ([]*workflow.Decision, error)
	GetActorDecisions(ctx context.Context, actor string) ([]*workflow.Decision, error)
	GetPendingTasks(ctx context.Context, userID string) ([]*PendingTask, error)
	GetDocumentApprovalHistory(ctx context.Context, documentID string) ([]*DocumentHistory, error)
	SweepOverdue(ctx context.Context) (int, error)
}

// approvalEngine 审批引擎实现
type approvalEngine struct {
	db        *gorm.DB
	templates repository.TemplateRepository
	instances repository.InstanceRepository
	decisions repository.DecisionRepository
	gate      auth.PermissionGate
	events    event.Handler
	now       func() time.Time
}

// New 创建审批引擎
func New(db *gorm.DB, gate auth.PermissionGate, events event.Handler) Engine {
	if events == nil {
		events = event.NopHandler()
	}
	return &approvalEngine{
		db:        db,
		templates: repository.NewTemplateRepository(db),
		instances: repository.NewInstanceRepository(db),
		decisions: repository.NewDecisionRepository(db),
		gate:      gate,
		events:    events,
		now:       time.Now,
	}
}

// StartApprovalProcess 启动审批流程
// 按编码解析启用中的最新模板版本,在步骤 0 创建实例并计算首个截止时间
func (e *approvalEngine) StartApprovalProcess(ctx context.Context, req StartRequest) (*workflow.Instance, error) {
	if req.DocumentID == "" || req.WorkflowCode == "" || req.Initiator == "" {
		return nil, fmt.Errorf("%w: document ID, workflow code and initiator are required", workflow.ErrInvalidTemplate)
	}

	tm, err := e.templates.FindByCode(req.WorkflowCode, 0)
	if err != nil {
		return nil, err
	}
	if !tm.Active {
		return nil, fmt.Errorf("%w: workflow %q is inactive", workflow.ErrTemplateNotFound, req.WorkflowCode)
	}
	tpl, err := tm.ToTemplate()
	if err != nil {
		return nil, err
	}

	// 同一文档同一时刻至多一个审批中实例
	running, err := e.instances.FindInProgressByDocumentID(req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check running approvals: %w", err)
	}
	if running != nil {
		return nil, fmt.Errorf("%w: document %q is held by instance %s", workflow.ErrApprovalInProgress, req.DocumentID, running.ID)
	}

	now := e.now()
	priority := req.Priority
	if priority == "" {
		priority = workflow.PriorityNormal
	}
	documentType := req.DocumentType
	if documentType == "" {
		documentType = tpl.DocumentType
	}

	first, _ := tpl.Step(0)
	inst := &workflow.Instance{
		ID:              uuid.New().String(),
		DocumentID:      req.DocumentID,
		DocumentType:    documentType,
		WorkflowCode:    tpl.Code,
		WorkflowVersion: tpl.Version,
		Initiator:       req.Initiator,
		Status:          workflow.StatusInProgress,
		StepIndex:       0,
		StepDeadline:    first.Deadline(now),
		Priority:        priority,
		StartedAt:       now,
		Comments:        req.Comments,
		Revision:        0,
	}

	im, err := model.NewApprovalInstanceModel(inst)
	if err != nil {
		return nil, err
	}
	if err := e.instances.Create(im); err != nil {
		return nil, fmt.Errorf("failed to create approval instance: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"instance_id":   inst.ID,
		"document_id":   inst.DocumentID,
		"workflow_code": inst.WorkflowCode,
		"version":       inst.WorkflowVersion,
		"initiator":     inst.Initiator,
	}).Info("Approval process started")

	e.emit(event.TypeInstanceStarted, inst, nil, recipientsFor(inst, tpl))

	return inst, nil
}

// ExecuteApprovalStep 对当前步骤执行同意或拒绝
// 返回值表示实例是否因此到达终态; 业务失败返回类型化错误,
// 并发冲突在内部重载后重试一次
func (e *approvalEngine) ExecuteApprovalStep(ctx context.Context, instanceID string, actor string, approved bool, comment string) (bool, error) {
	kind := workflow.KindApprove
	if !approved {
		kind = workflow.KindReject
	}

	outcome, err := e.decideWithRetry(ctx, instanceID, actor, kind, comment, "")
	if err != nil {
		return false, err
	}
	return outcome.Completed, nil
}

// TransferApproval 将当前步骤转办给其他审批人
// 替换语义: 原审批人立即失去决定权,接收人独占当前步骤
func (e *approvalEngine) TransferApproval(ctx context.Context, instanceID string, actor string, target string, comment string) error {
	if target == "" {
		return fmt.Errorf("%w: transfer target is required", workflow.ErrNotAuthorized)
	}
	if target == actor {
		return fmt.Errorf("%w: cannot transfer a step to yourself", workflow.ErrNotAuthorized)
	}
	_, err := e.decideWithRetry(ctx, instanceID, actor, workflow.KindTransfer, comment, target)
	return err
}

// WithdrawApproval 发起人撤回审批流程
func (e *approvalEngine) WithdrawApproval(ctx context.Context, instanceID string, actor string, comment string) error {
	_, err := e.decideWithRetry(ctx, instanceID, actor, workflow.KindWithdraw, comment, "")
	return err
}

// UrgeApproval 发起人催办当前步骤
// 只追加 ESCALATE 台账条目并通知当前审批人,不改变状态
func (e *approvalEngine) UrgeApproval(ctx context.Context, instanceID string, actor string) error {
	_, err := e.decideWithRetry(ctx, instanceID, actor, workflow.KindEscalate, "", "")
	return err
}

// decideWithRetry 执行决定,并发冲突时重载重试一次
func (e *approvalEngine) decideWithRetry(ctx context.Context, instanceID string, actor string, kind workflow.DecisionKind, comment string, target string) (statemachine.Outcome, error) {
	outcome, err := e.decide(ctx, instanceID, actor, kind, comment, target)
	if errors.Is(err, workflow.ErrConcurrentModification) {
		logrus.WithFields(logrus.Fields{
			"instance_id": instanceID,
			"actor":       actor,
			"kind":        kind,
		}).Warn("Concurrent modification detected, retrying once")
		outcome, err = e.decide(ctx, instanceID, actor, kind, comment, target)
	}
	return outcome, err
}

// decide 执行一次完整的决定: 加载、鉴权、转换、原子提交、发事件
func (e *approvalEngine) decide(ctx context.Context, instanceID string, actor string, kind workflow.DecisionKind, comment string, target string) (statemachine.Outcome, error) {
	// 1. 加载实例
	im, err := e.instances.FindByID(instanceID)
	if err != nil {
		return statemachine.Outcome{}, err
	}
	inst, err := im.ToInstance()
	if err != nil {
		return statemachine.Outcome{}, err
	}
	if !inst.InProgress() {
		return statemachine.Outcome{}, fmt.Errorf("%w: status is %s", workflow.ErrInstanceNotInProgress, inst.Status)
	}

	// 2. 加载启动时固定的模板版本
	tm, err := e.templates.FindByCode(inst.WorkflowCode, inst.WorkflowVersion)
	if err != nil {
		return statemachine.Outcome{}, err
	}
	tpl, err := tm.ToTemplate()
	if err != nil {
		return statemachine.Outcome{}, err
	}

	// 3. 鉴权
	if err := e.authorize(ctx, actor, kind, inst, tpl); err != nil {
		return statemachine.Outcome{}, err
	}

	// 4. 计算状态转换
	now := e.now()
	outcome, err := statemachine.Apply(inst, tpl, kind, now)
	if err != nil {
		return statemachine.Outcome{}, err
	}

	// 5. 构建转换后的实例
	decision := &workflow.Decision{
		ID:          uuid.New().String(),
		InstanceID:  inst.ID,
		StepIndex:   inst.StepIndex,
		Actor:       actor,
		Kind:        kind,
		TargetActor: target,
		Comment:     comment,
		CreatedAt:   now,
	}

	prevRevision := inst.Revision
	next := *inst
	next.Status = outcome.Status
	next.StepIndex = outcome.StepIndex
	next.StepDeadline = outcome.Deadline
	if outcome.Completed {
		completedAt := now
		next.CompletedAt = &completedAt
	}
	if kind == workflow.KindTransfer {
		overrides := make(map[int]string, len(inst.Overrides)+1)
		for k, v := range inst.Overrides {
			overrides[k] = v
		}
		overrides[inst.StepIndex] = target
		next.Overrides = overrides
	}

	// 6. 状态更新与台账追加在一个事务里提交
	nm, err := model.NewApprovalInstanceModel(&next)
	if err != nil {
		return statemachine.Outcome{}, err
	}
	dm := model.NewDecisionModel(decision)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.instances.WithTx(tx).UpdateWithRevision(nm, prevRevision); err != nil {
			return err
		}
		return e.decisions.WithTx(tx).Append(dm)
	})
	if err != nil {
		return statemachine.Outcome{}, err
	}
	next.Revision = nm.Revision

	logrus.WithFields(logrus.Fields{
		"instance_id": inst.ID,
		"actor":       actor,
		"kind":        kind,
		"step_index":  decision.StepIndex,
		"status":      next.Status,
	}).Info("Approval decision recorded")

	// 7. 提交成功后发事件,推送失败不影响已提交的转换
	e.emit(eventTypeFor(kind, outcome), &next, decision, decisionRecipients(kind, &next, tpl, target))

	return outcome, nil
}

// authorize 检查操作人对指定决定类型的权限
// WITHDRAW 与 ESCALATE 只允许发起人,其余决定走权限网关
func (e *approvalEngine) authorize(ctx context.Context, actor string, kind workflow.DecisionKind, inst *workflow.Instance, tpl *workflow.Template) error {
	switch kind {
	case workflow.KindWithdraw:
		if actor != inst.Initiator {
			return fmt.Errorf("%w: only the initiator may withdraw", workflow.ErrNotAuthorized)
		}
		return nil
	case workflow.KindEscalate:
		if actor != inst.Initiator {
			return fmt.Errorf("%w: only the initiator may urge", workflow.ErrNotAuthorized)
		}
		return nil
	default:
		return e.gate.CanDecide(ctx, actor, inst, tpl)
	}
}

// emit 发布事件,处理器失败只记日志
func (e *approvalEngine) emit(t event.Type, inst *workflow.Instance, decision *workflow.Decision, recipients []string) {
	evt := &event.Event{
		ID:         uuid.New().String(),
		Type:       t,
		Instance:   inst,
		Decision:   decision,
		Recipients: recipients,
		OccurredAt: e.now(),
	}
	if err := e.events.Handle(evt); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"instance_id": inst.ID,
			"event_type":  t,
		}).Error("Failed to handle approval event")
	}
}

// eventTypeFor 决定类型到事件类型的映射
func eventTypeFor(kind workflow.DecisionKind, outcome statemachine.Outcome) event.Type {
	switch {
	case outcome.Completed:
		return event.TypeTerminal
	case kind == workflow.KindTransfer:
		return event.TypeStepTransferred
	case kind == workflow.KindEscalate:
		return event.TypeStepEscalated
	default:
		return event.TypeStepAdvanced
	}
}

// recipientsFor 解析实例当前步骤的通知接收人
// 仅角色步骤以 role: 前缀标注角色,由通知链路解析成员
func recipientsFor(inst *workflow.Instance, tpl *workflow.Template) []string {
	approvers := inst.CurrentApprovers(tpl)
	if len(approvers) > 0 {
		return approvers
	}
	if step, ok := tpl.Step(inst.StepIndex); ok && step.Role != "" {
		return []string{"role:" + step.Role}
	}
	return nil
}

// decisionRecipients 解析决定事件的通知接收人
func decisionRecipients(kind workflow.DecisionKind, next *workflow.Instance, tpl *workflow.Template, target string) []string {
	switch kind {
	case workflow.KindTransfer:
		return []string{target}
	case workflow.KindWithdraw, workflow.KindReject:
		return []string{next.Initiator}
	default:
		if next.InProgress() {
			return recipientsFor(next, tpl)
		}
		return []string{next.Initiator}
	}
}
