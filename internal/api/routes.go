package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/auth"
	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/internal/websocket"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	DB              *gorm.DB
	Config          *config.Config
	Hub             *websocket.Hub
	Validator       *auth.KeycloakTokenValidator
	FGAClient       *auth.OpenFGAClient
	WorkflowService service.WorkflowService
	ApprovalService service.ApprovalService
	QueryService    service.QueryService
	AuditLogService service.AuditLogService
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	if config.IsProduction(deps.Config) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 全局中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if deps.Config != nil {
		router.Use(CORSMiddleware(deps.Config.CORS.AllowedOrigins))
	}
	router.Use(RateLimitMiddleware(100, 200))
	router.Use(TracingMiddleware())

	// 健康检查
	healthController := NewHealthController(deps.DB, deps.FGAClient)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 实时推送
	if deps.Hub != nil && deps.Validator != nil {
		router.GET("/ws/approvals", websocket.ApprovalStreamHandler(deps.Hub, deps.Validator))
	}

	workflowController := NewWorkflowController(deps.WorkflowService)
	approvalController := NewApprovalController(deps.ApprovalService)
	queryController := NewQueryController(deps.QueryService, deps.AuditLogService)

	// API v1 路由组,全部要求认证
	v1 := router.Group("/api/v1")
	if deps.Validator != nil {
		v1.Use(auth.KeycloakAuthMiddleware(deps.Validator))
	}
	{
		// 工作流模板管理
		workflows := v1.Group("/workflows")
		{
			workflows.POST("", workflowController.Create)
			workflows.GET("", workflowController.List)
			workflows.GET("/:code", workflowController.Get)
			workflows.PUT("/:code", workflowController.Update)
			workflows.GET("/:code/versions", workflowController.ListVersions)
			workflows.PUT("/:code/active", workflowController.SetActive)
		}

		// 审批实例
		approvals := v1.Group("/approvals")
		{
			approvals.POST("", approvalController.Start)
			approvals.GET("", queryController.ListInstances)
			approvals.GET("/pending", approvalController.GetPending)
			approvals.GET("/:id", approvalController.Get)
			approvals.POST("/:id/approve", approvalController.Approve)
			approvals.POST("/:id/reject", approvalController.Reject)
			approvals.POST("/:id/transfer", approvalController.Transfer)
			approvals.POST("/:id/withdraw", approvalController.Withdraw)
			approvals.POST("/:id/urge", approvalController.Urge)
			approvals.GET("/:id/step", approvalController.GetStep)
			approvals.GET("/:id/decisions", approvalController.GetDecisions)
		}

		// 文档审批历史
		v1.GET("/documents/:id/history", approvalController.GetDocumentHistory)

		// 用户维度查询
		users := v1.Group("/users")
		{
			users.GET("/:id/decisions", approvalController.GetUserDecisions)
			users.GET("/:id/audit-logs", queryController.ListUserAuditLogs)
		}

		// 审计日志
		v1.GET("/audit-logs/:type/:id", queryController.ListAuditLogs)
	}

	return router
}
