package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/internal/utils"
)

// ApprovalController 审批实例控制器
type ApprovalController struct {
	approvalService service.ApprovalService
}

// NewApprovalController 创建审批实例控制器
func NewApprovalController(approvalService service.ApprovalService) *ApprovalController {
	return &ApprovalController{
		approvalService: approvalService,
	}
}

// validateInstanceID 验证实例 ID 并返回错误响应(如果无效)
func (c *ApprovalController) validateInstanceID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateInstanceID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid instance ID", err.Error())
		return false
	}
	return true
}

// Start 启动审批流程
// @Summary      启动审批流程
// @Description  为文档按指定工作流启动审批,发起人取自认证身份
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        request body service.StartApprovalRequest true "启动参数"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /approvals [post]
// @Security     BearerAuth
func (c *ApprovalController) Start(ctx *gin.Context) {
	var req service.StartApprovalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateDocumentID(req.DocumentID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid document ID", err.Error())
		return
	}

	inst, err := c.approvalService.Start(requestContext(ctx), &req)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, inst)
}

// Get 获取审批实例
// @Summary      获取审批实例详情
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "实例 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /approvals/{id} [get]
// @Security     BearerAuth
func (c *ApprovalController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	inst, err := c.approvalService.Get(requestContext(ctx), id)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, inst)
}

// Approve 同意当前步骤
// @Summary      同意当前步骤
// @Description  通过后实例推进到下一步骤,最后一步通过则到达 APPROVED 终态
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        id path string true "实例 ID"
// @Param        request body service.DecisionRequest false "审批意见"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /approvals/{id}/approve [post]
// @Security     BearerAuth
func (c *ApprovalController) Approve(ctx *gin.Context) {
	c.decide(ctx, true)
}

// Reject 拒绝当前步骤
// @Summary      拒绝当前步骤
// @Description  任何步骤的拒绝都立即使实例到达 REJECTED 终态
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        id path string true "实例 ID"
// @Param        request body service.DecisionRequest false "审批意见"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /approvals/{id}/reject [post]
// @Security     BearerAuth
func (c *ApprovalController) Reject(ctx *gin.Context) {
	c.decide(ctx, false)
}

// decide 执行同意或拒绝
func (c *ApprovalController) decide(ctx *gin.Context, approved bool) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	var req service.DecisionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	var (
		completed bool
		err       error
	)
	if approved {
		completed, err = c.approvalService.Approve(requestContext(ctx), id, &req)
	} else {
		completed, err = c.approvalService.Reject(requestContext(ctx), id, &req)
	}
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, gin.H{"instance_id": id, "completed": completed})
}

// Transfer 转办当前步骤
// @Summary      转办当前步骤
// @Description  把当前步骤的审批职责转给另一位用户,不推进流程
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        id path string true "实例 ID"
// @Param        request body service.TransferApprovalRequest true "转办参数"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /approvals/{id}/transfer [post]
// @Security     BearerAuth
func (c *ApprovalController) Transfer(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	var req service.TransferApprovalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := c.approvalService.Transfer(requestContext(ctx), id, &req); err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, gin.H{"instance_id": id, "target": req.Target})
}

// Withdraw 撤回审批流程
// @Summary      撤回审批流程
// @Description  仅发起人可撤回,撤回后实例到达 WITHDRAWN 终态
// @Tags         审批管理
// @Accept       json
// @Produce      json
// @Param        id path string true "实例 ID"
// @Param        request body service.DecisionRequest false "撤回原因"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /approvals/{id}/withdraw [post]
// @Security     BearerAuth
func (c *ApprovalController) Withdraw(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	var req service.DecisionRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	if err := c.approvalService.Withdraw(requestContext(ctx), id, &req); err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, gin.H{"instance_id": id, "status": "WITHDRAWN"})
}

// Urge 催办当前步骤
// @Summary      催办当前步骤
// @Description  仅发起人可催办,在台账留痕并重发通知,不改变流程状态
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "实例 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Router       /approvals/{id}/urge [post]
// @Security     BearerAuth
func (c *ApprovalController) Urge(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	if err := c.approvalService.Urge(requestContext(ctx), id); err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, gin.H{"instance_id": id})
}

// GetStep 获取当前步骤信息
// @Summary      获取当前步骤信息
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "实例 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /approvals/{id}/step [get]
// @Security     BearerAuth
func (c *ApprovalController) GetStep(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	step, err := c.approvalService.GetCurrentStep(requestContext(ctx), id)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, step)
}

// GetDecisions 获取决定台账
// @Summary      获取决定台账
// @Description  按时间顺序返回实例的全部决定记录
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "实例 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /approvals/{id}/decisions [get]
// @Security     BearerAuth
func (c *ApprovalController) GetDecisions(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	decisions, err := c.approvalService.GetDecisions(requestContext(ctx), id)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, decisions)
}

// GetPending 获取当前用户的待办任务
// @Summary      获取待办任务
// @Description  返回当前用户有权处理的全部在途步骤
// @Tags         审批管理
// @Produce      json
// @Success      200  {object}  Response
// @Router       /approvals/pending [get]
// @Security     BearerAuth
func (c *ApprovalController) GetPending(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		Error(ctx, http.StatusUnauthorized, "missing user identity", "")
		return
	}

	tasks, err := c.approvalService.GetPendingTasks(requestContext(ctx), userID)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, tasks)
}

// GetUserDecisions 获取某用户的决定记录
// @Summary      获取用户决定记录
// @Description  按时间倒序返回某用户跨实例的全部决定
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "用户 ID"
// @Success      200  {object}  Response
// @Router       /users/{id}/decisions [get]
// @Security     BearerAuth
func (c *ApprovalController) GetUserDecisions(ctx *gin.Context) {
	userID := ctx.Param("id")
	if userID == "" {
		Error(ctx, http.StatusBadRequest, "missing user ID", "")
		return
	}

	decisions, err := c.approvalService.GetActorDecisions(requestContext(ctx), userID)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, decisions)
}

// GetDocumentHistory 获取文档的审批历史
// @Summary      获取文档审批历史
// @Description  返回文档的每一次审批实例及其完整台账
// @Tags         审批管理
// @Produce      json
// @Param        id path string true "文档 ID"
// @Success      200  {object}  Response
// @Router       /documents/{id}/history [get]
// @Security     BearerAuth
func (c *ApprovalController) GetDocumentHistory(ctx *gin.Context) {
	documentID := ctx.Param("id")
	if err := utils.ValidateDocumentID(documentID); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid document ID", err.Error())
		return
	}

	history, err := c.approvalService.GetDocumentHistory(requestContext(ctx), documentID)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, history)
}
