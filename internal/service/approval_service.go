package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmpstack/docflow/internal/engine"
	"github.com/gmpstack/docflow/internal/metrics"
	"github.com/gmpstack/docflow/pkg/workflow"
)

// ApprovalService 审批服务接口
// 在引擎之上叠加审计日志与指标上报,API 层只与本服务交互
type ApprovalService interface {
	Start(ctx context.Context, req *StartApprovalRequest) (*workflow.Instance, error)
	Approve(ctx context.Context, instanceID string, req *DecisionRequest) (bool, error)
	Reject(ctx context.Context, instanceID string, req *DecisionRequest) (bool, error)
	Transfer(ctx context.Context, instanceID string, req *TransferApprovalRequest) error
	Withdraw(ctx context.Context, instanceID string, req *DecisionRequest) error
	Urge(ctx context.Context, instanceID string) error
	Get(ctx context.Context, instanceID string) (*workflow.Instance, error)
	GetCurrentStep(ctx context.Context, instanceID string) (*engine.StepInfo, error)
	GetDecisions(ctx context.Context, instanceID string) ([]*workflow.Decision, error)
	GetActorDecisions(ctx context.Context, actor string) ([]*workflow.Decision, error)
	GetPendingTasks(ctx context.Context, userID string) ([]*engine.PendingTask, error)
	GetDocumentHistory(ctx context.Context, documentID string) ([]*engine.DocumentHistory, error)
	SweepOverdue(ctx context.Context) (int, error)
}

// StartApprovalRequest 启动审批流程请求
// @Description 为文档启动审批流程的请求参数
type StartApprovalRequest struct {
	DocumentID   string `json:"document_id" example:"doc-001" binding:"required"`   // 文档 ID
	DocumentType string `json:"document_type" example:"SOP" binding:"required"`     // 文档类型
	WorkflowCode string `json:"workflow_code" example:"sop-review" binding:"required"` // 工作流编码
	Priority     string `json:"priority" example:"normal"`                          // 优先级 normal/high/urgent
	Comments     string `json:"comments" example:"年度复审"`                            // 启动说明
}

// DecisionRequest 审批决定请求
// @Description 同意/拒绝/撤回的请求参数
type DecisionRequest struct {
	Comment string `json:"comment" example:"符合要求"` // 审批意见
}

// TransferApprovalRequest 转办请求
// @Description 转办当前步骤的请求参数
type TransferApprovalRequest struct {
	Target  string `json:"target" example:"user-002" binding:"required"` // 新审批人 ID
	Comment string `json:"comment" example:"休假期间转办"`                     // 转办原因
}

// approvalService 审批服务实现
type approvalService struct {
	engine      engine.Engine
	auditLogSvc AuditLogService
}

// NewApprovalService 创建审批服务
func NewApprovalService(eng engine.Engine, auditLogSvc AuditLogService) ApprovalService {
	return &approvalService{
		engine:      eng,
		auditLogSvc: auditLogSvc,
	}
}

// Start 启动审批流程
func (s *approvalService) Start(ctx context.Context, req *StartApprovalRequest) (*workflow.Instance, error) {
	initiator := getUserIDFromContext(ctx)
	if initiator == "" {
		return nil, fmt.Errorf("%w: missing initiator identity", workflow.ErrNotAuthorized)
	}

	priority := workflow.Priority(strings.ToUpper(req.Priority))
	if req.Priority == "" {
		priority = workflow.PriorityNormal
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", req.Priority)
	}

	inst, err := s.engine.StartApprovalProcess(ctx, engine.StartRequest{
		DocumentID:   req.DocumentID,
		DocumentType: req.DocumentType,
		WorkflowCode: req.WorkflowCode,
		Initiator:    initiator,
		Priority:     priority,
		Comments:     req.Comments,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApprovalStarted()
	s.audit(ctx, "create", inst.ID, map[string]string{
		"document_id":   inst.DocumentID,
		"workflow_code": inst.WorkflowCode,
	})

	return inst, nil
}

// Approve 同意当前步骤,返回实例是否因此到达终态
func (s *approvalService) Approve(ctx context.Context, instanceID string, req *DecisionRequest) (bool, error) {
	return s.decide(ctx, instanceID, true, req)
}

// Reject 拒绝当前步骤,返回实例是否因此到达终态
func (s *approvalService) Reject(ctx context.Context, instanceID string, req *DecisionRequest) (bool, error) {
	return s.decide(ctx, instanceID, false, req)
}

// decide 执行同意或拒绝
func (s *approvalService) decide(ctx context.Context, instanceID string, approved bool, req *DecisionRequest) (bool, error) {
	actor := getUserIDFromContext(ctx)
	comment := ""
	if req != nil {
		comment = req.Comment
	}

	completed, err := s.engine.ExecuteApprovalStep(ctx, instanceID, actor, approved, comment)
	if err != nil {
		s.recordConflict(err)
		return false, err
	}

	action := "reject"
	kind := workflow.KindReject
	if approved {
		action = "approve"
		kind = workflow.KindApprove
	}
	metrics.RecordDecision(string(kind))
	s.audit(ctx, action, instanceID, map[string]interface{}{
		"comment":   comment,
		"completed": completed,
	})

	return completed, nil
}

// Transfer 转办当前步骤
func (s *approvalService) Transfer(ctx context.Context, instanceID string, req *TransferApprovalRequest) error {
	actor := getUserIDFromContext(ctx)
	if err := s.engine.TransferApproval(ctx, instanceID, actor, req.Target, req.Comment); err != nil {
		s.recordConflict(err)
		return err
	}

	metrics.RecordDecision(string(workflow.KindTransfer))
	s.audit(ctx, "transfer", instanceID, map[string]string{
		"target":  req.Target,
		"comment": req.Comment,
	})
	return nil
}

// Withdraw 撤回审批流程
func (s *approvalService) Withdraw(ctx context.Context, instanceID string, req *DecisionRequest) error {
	actor := getUserIDFromContext(ctx)
	comment := ""
	if req != nil {
		comment = req.Comment
	}

	if err := s.engine.WithdrawApproval(ctx, instanceID, actor, comment); err != nil {
		s.recordConflict(err)
		return err
	}

	metrics.RecordDecision(string(workflow.KindWithdraw))
	s.audit(ctx, "withdraw", instanceID, map[string]string{"comment": comment})
	return nil
}

// Urge 催办当前步骤
func (s *approvalService) Urge(ctx context.Context, instanceID string) error {
	actor := getUserIDFromContext(ctx)
	if err := s.engine.UrgeApproval(ctx, instanceID, actor); err != nil {
		s.recordConflict(err)
		return err
	}

	metrics.RecordDecision(string(workflow.KindEscalate))
	s.audit(ctx, "urge", instanceID, nil)
	return nil
}

// Get 获取审批实例
func (s *approvalService) Get(ctx context.Context, instanceID string) (*workflow.Instance, error) {
	return s.engine.GetApprovalInstance(ctx, instanceID)
}

// GetCurrentStep 获取实例当前步骤信息
func (s *approvalService) GetCurrentStep(ctx context.Context, instanceID string) (*engine.StepInfo, error) {
	return s.engine.GetCurrentStep(ctx, instanceID)
}

// GetDecisions 获取实例的决定台账
func (s *approvalService) GetDecisions(ctx context.Context, instanceID string) ([]*workflow.Decision, error) {
	return s.engine.GetDecisions(ctx, instanceID)
}

// GetActorDecisions 获取某操作人跨实例的决定记录
func (s *approvalService) GetActorDecisions(ctx context.Context, actor string) ([]*workflow.Decision, error) {
	return s.engine.GetActorDecisions(ctx, actor)
}

// GetPendingTasks 获取某用户的待办任务
func (s *approvalService) GetPendingTasks(ctx context.Context, userID string) ([]*engine.PendingTask, error) {
	return s.engine.GetPendingTasks(ctx, userID)
}

// GetDocumentHistory 获取某文档的全部审批历史
func (s *approvalService) GetDocumentHistory(ctx context.Context, documentID string) ([]*engine.DocumentHistory, error) {
	return s.engine.GetDocumentApprovalHistory(ctx, documentID)
}

// SweepOverdue 扫描超时步骤并发出升级通知
func (s *approvalService) SweepOverdue(ctx context.Context) (int, error) {
	notified, err := s.engine.SweepOverdue(ctx)
	if err != nil {
		return notified, err
	}
	for i := 0; i < notified; i++ {
		metrics.RecordEscalation()
	}
	return notified, nil
}

// audit 记录审批操作的审计日志,写失败不影响业务结果
func (s *approvalService) audit(ctx context.Context, action string, instanceID string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "approval_instance", instanceID, details)
}

// recordConflict 上报乐观锁冲突指标
func (s *approvalService) recordConflict(err error) {
	if errors.Is(err, workflow.ErrConcurrentModification) {
		metrics.RecordConcurrencyConflict()
	}
}
