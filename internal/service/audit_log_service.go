package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/google/uuid"
)

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details interface{}) error
	ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error)
	ListByUser(userID string) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
	}
}

// RecordAction 记录操作审计日志
// 请求元信息(request_id/ip/user_agent)由中间件写入 context
func (s *auditLogService) RecordAction(
	ctx context.Context,
	userID string,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	requestID := ""
	if v := ctx.Value("request_id"); v != nil {
		requestID, _ = v.(string)
	}

	auditLog := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestID,
		IP:           GetClientIP(ctx),
		UserAgent:    GetUserAgent(ctx),
		Details:      detailsJSON,
		CreatedAt:    time.Now(),
	}

	return s.auditRepo.Save(auditLog)
}

// ListByResource 查询某资源的操作痕迹
func (s *auditLogService) ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByResource(resourceType, resourceID)
}

// ListByUser 查询某用户的操作痕迹
func (s *auditLogService) ListByUser(userID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByUserID(userID)
}

// GetClientIP 从 context 获取客户端 IP
func GetClientIP(ctx context.Context) string {
	if v := ctx.Value("ip"); v != nil {
		if ip, ok := v.(string); ok {
			return ip
		}
	}
	return ""
}

// GetUserAgent 从 context 获取 User Agent
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value("user_agent"); v != nil {
		if ua, ok := v.(string); ok {
			return ua
		}
	}
	return ""
}

// getUserIDFromContext 从 context 中获取用户 ID
// 由认证中间件在请求进入时设置
func getUserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value("user_id").(string); ok {
		return userID
	}
	return ""
}
