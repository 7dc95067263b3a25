package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/service"
)

// QueryController 审批实例列表查询控制器
type QueryController struct {
	queryService service.QueryService
	auditLogSvc  service.AuditLogService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService, auditLogSvc service.AuditLogService) *QueryController {
	return &QueryController{
		queryService: queryService,
		auditLogSvc:  auditLogSvc,
	}
}

// ListInstances 列出审批实例
// @Summary      获取审批实例列表
// @Description  分页获取审批实例列表,支持多条件过滤与排序
// @Tags         查询
// @Produce      json
// @Param        status query string false "实例状态"
// @Param        document_type query string false "文档类型"
// @Param        workflow_code query string false "工作流编码"
// @Param        initiator query string false "发起人"
// @Param        started_after query string false "启动时间起始(RFC3339)"
// @Param        started_before query string false "启动时间结束(RFC3339)"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        sort_by query string false "排序字段" default(started_at)
// @Param        order query string false "排序方向" Enums(asc, desc) default(desc)
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /approvals [get]
// @Security     BearerAuth
func (c *QueryController) ListInstances(ctx *gin.Context) {
	filter := &service.ListInstancesFilter{
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	}

	if v := ctx.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := ctx.Query("document_type"); v != "" {
		filter.DocumentType = &v
	}
	if v := ctx.Query("workflow_code"); v != "" {
		filter.WorkflowCode = &v
	}
	if v := ctx.Query("initiator"); v != "" {
		filter.Initiator = &v
	}
	if v := ctx.Query("started_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid started_after", v)
			return
		}
		filter.StartTime = &t
	}
	if v := ctx.Query("started_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid started_before", v)
			return
		}
		filter.EndTime = &t
	}
	if v := ctx.Query("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := ctx.Query("page_size"); v != "" {
		if pageSize, err := strconv.Atoi(v); err == nil && pageSize > 0 {
			filter.PageSize = pageSize
		}
	}

	resp, err := c.queryService.ListInstances(filter)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Paginated(ctx, resp.Data, resp.Pagination)
}

// ListAuditLogs 列出某资源的审计日志
// @Summary      获取资源审计日志
// @Tags         查询
// @Produce      json
// @Param        type path string true "资源类型"
// @Param        id path string true "资源 ID"
// @Success      200  {object}  Response
// @Router       /audit-logs/{type}/{id} [get]
// @Security     BearerAuth
func (c *QueryController) ListAuditLogs(ctx *gin.Context) {
	resourceType := ctx.Param("type")
	resourceID := ctx.Param("id")

	logs, err := c.auditLogSvc.ListByResource(resourceType, resourceID)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, logs)
}

// ListUserAuditLogs 列出某用户的审计日志
// @Summary      获取用户审计日志
// @Tags         查询
// @Produce      json
// @Param        id path string true "用户 ID"
// @Success      200  {object}  Response
// @Router       /users/{id}/audit-logs [get]
// @Security     BearerAuth
func (c *QueryController) ListUserAuditLogs(ctx *gin.Context) {
	userID := ctx.Param("id")

	logs, err := c.auditLogSvc.ListByUser(userID)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, logs)
}
