package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/internal/utils"
)

// WorkflowController 工作流模板控制器
type WorkflowController struct {
	workflowService service.WorkflowService
}

// NewWorkflowController 创建工作流模板控制器
func NewWorkflowController(workflowService service.WorkflowService) *WorkflowController {
	return &WorkflowController{
		workflowService: workflowService,
	}
}

// validateCode 验证工作流编码并返回错误响应(如果无效)
func (c *WorkflowController) validateCode(ctx *gin.Context, code string) bool {
	if err := utils.ValidateWorkflowCode(code); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid workflow code", err.Error())
		return false
	}
	return true
}

// Create 创建工作流模板
// @Summary      创建工作流模板
// @Description  创建审批工作流模板,同一编码重复创建视为发布新版本
// @Tags         工作流管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateWorkflowRequest true "模板定义"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /workflows [post]
// @Security     BearerAuth
func (c *WorkflowController) Create(ctx *gin.Context) {
	var req service.CreateWorkflowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if !c.validateCode(ctx, req.Code) {
		return
	}

	tpl, err := c.workflowService.Create(requestContext(ctx), &req)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, tpl)
}

// List 列出工作流模板
// @Summary      列出工作流模板
// @Description  列出全部模板的最新版本,支持按文档类型过滤
// @Tags         工作流管理
// @Produce      json
// @Param        document_type query string false "文档类型"
// @Success      200  {object}  Response
// @Failure      500  {object}  ErrorResponse
// @Router       /workflows [get]
// @Security     BearerAuth
func (c *WorkflowController) List(ctx *gin.Context) {
	var (
		templates interface{}
		err       error
	)

	if documentType := ctx.Query("document_type"); documentType != "" {
		templates, err = c.workflowService.ListByDocumentType(documentType)
	} else {
		templates, err = c.workflowService.List()
	}
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, templates)
}

// Get 获取工作流模板
// @Summary      获取工作流模板
// @Description  按编码获取模板,version 参数缺省时返回最新版本
// @Tags         工作流管理
// @Produce      json
// @Param        code path string true "工作流编码"
// @Param        version query int false "模板版本"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /workflows/{code} [get]
// @Security     BearerAuth
func (c *WorkflowController) Get(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	version := 0
	if raw := ctx.Query("version"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			Error(ctx, http.StatusBadRequest, "invalid version", raw)
			return
		}
		version = parsed
	}

	tpl, err := c.workflowService.Get(code, version)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, tpl)
}

// Update 更新工作流模板
// @Summary      更新工作流模板
// @Description  基于最新版本生成一个新版本,既有版本保持不可变
// @Tags         工作流管理
// @Accept       json
// @Produce      json
// @Param        code path string true "工作流编码"
// @Param        request body service.UpdateWorkflowRequest true "模板变更"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /workflows/{code} [put]
// @Security     BearerAuth
func (c *WorkflowController) Update(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	var req service.UpdateWorkflowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	tpl, err := c.workflowService.Update(requestContext(ctx), code, &req)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, tpl)
}

// ListVersions 列出工作流模板的全部版本
// @Summary      列出模板版本
// @Tags         工作流管理
// @Produce      json
// @Param        code path string true "工作流编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /workflows/{code}/versions [get]
// @Security     BearerAuth
func (c *WorkflowController) ListVersions(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	versions, err := c.workflowService.ListVersions(code)
	if err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, versions)
}

// SetActive 启用或停用工作流模板
// @Summary      启停工作流模板
// @Description  停用只阻止新实例启动,在途实例不受影响
// @Tags         工作流管理
// @Accept       json
// @Produce      json
// @Param        code path string true "工作流编码"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /workflows/{code}/active [put]
// @Security     BearerAuth
func (c *WorkflowController) SetActive(ctx *gin.Context) {
	code := ctx.Param("code")
	if !c.validateCode(ctx, code) {
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := c.workflowService.SetActive(requestContext(ctx), code, req.Active); err != nil {
		DomainError(ctx, err)
		return
	}

	Success(ctx, gin.H{"code": code, "active": req.Active})
}
