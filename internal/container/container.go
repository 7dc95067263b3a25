package container

import (
	"fmt"
	"time"

	"github.com/gmpstack/docflow/internal/auth"
	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/database"
	"github.com/gmpstack/docflow/internal/engine"
	"github.com/gmpstack/docflow/internal/integration"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/internal/websocket"
	"github.com/gmpstack/docflow/pkg/event"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、引擎、服务与外部客户端
type Container struct {
	cfg               *config.Config
	db                *gorm.DB
	hub               *websocket.Hub
	notifier          event.Handler
	approvalEngine    engine.Engine
	sweeper           *engine.Sweeper
	fgaClient         *auth.OpenFGAClient
	keycloakValidator *auth.KeycloakTokenValidator
	workflowService   service.WorkflowService
	approvalService   service.ApprovalService
	queryService      service.QueryService
	auditLogService   service.AuditLogService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库(带重试机制,指数退避)
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := database.CreateIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	// 2. 初始化 OpenFGA 客户端(带重试机制)
	fgaClient, err := auth.NewOpenFGAClientWithRetry(cfg.OpenFGA.APIURL, cfg.OpenFGA.StoreID, cfg.OpenFGA.ModelID, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
	}

	// 3. 初始化 Keycloak Token 验证器
	keycloakValidator := auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer)

	// 4. WebSocket Hub 与事件通知器
	hub := websocket.NewHub()
	notifier := integration.NewNotifier(db, cfg.Engine, websocket.NewEventBroadcaster(hub))

	// 5. 审批引擎
	gate := auth.NewPermissionGate(fgaClient)
	approvalEngine := engine.New(db, gate, notifier)

	// 6. 服务层
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	workflowService := service.NewWorkflowService(repository.NewTemplateRepository(db), auditLogService)
	approvalService := service.NewApprovalService(approvalEngine, auditLogService)
	queryService := service.NewQueryService(db)

	// 7. 超时扫描器(走服务门面,便于上报升级指标)
	sweeper := engine.NewSweeper(approvalService, time.Duration(cfg.Engine.SweepInterval)*time.Second)

	return &Container{
		cfg:               cfg,
		db:                db,
		hub:               hub,
		notifier:          notifier,
		approvalEngine:    approvalEngine,
		sweeper:           sweeper,
		fgaClient:         fgaClient,
		keycloakValidator: keycloakValidator,
		workflowService:   workflowService,
		approvalService:   approvalService,
		queryService:      queryService,
		auditLogService:   auditLogService,
	}, nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Engine 获取审批引擎
func (c *Container) Engine() engine.Engine {
	return c.approvalEngine
}

// Sweeper 获取超时扫描器
func (c *Container) Sweeper() *engine.Sweeper {
	return c.sweeper
}

// OpenFGAClient 获取 OpenFGA 客户端
func (c *Container) OpenFGAClient() *auth.OpenFGAClient {
	return c.fgaClient
}

// KeycloakValidator 获取 Keycloak Token 验证器
func (c *Container) KeycloakValidator() *auth.KeycloakTokenValidator {
	return c.keycloakValidator
}

// WorkflowService 获取工作流模板管理服务
func (c *Container) WorkflowService() service.WorkflowService {
	return c.workflowService
}

// ApprovalService 获取审批服务
func (c *Container) ApprovalService() service.ApprovalService {
	return c.approvalService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// Close 关闭容器,清理资源
// 先停通知器等待在途事件推完,再断开数据库
func (c *Container) Close() error {
	if c.notifier != nil {
		_ = c.notifier.Close()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
