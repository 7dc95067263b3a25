package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/pkg/workflow"
)

// WorkflowService 工作流模板管理服务接口
// 模板按 (code, version) 不可变存储: 创建与更新都会落一行新版本,
// 启停只翻转 active 标志,历史版本永远可供在途实例回放
type WorkflowService interface {
	Create(ctx context.Context, req *CreateWorkflowRequest) (*workflow.Template, error)
	Get(code string, version int) (*workflow.Template, error)
	Update(ctx context.Context, code string, req *UpdateWorkflowRequest) (*workflow.Template, error)
	List() ([]*workflow.Template, error)
	ListByDocumentType(documentType string) ([]*workflow.Template, error)
	ListVersions(code string) ([]*workflow.Template, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// CreateWorkflowRequest 创建工作流模板请求
// @Description 创建审批工作流模板的请求参数
type CreateWorkflowRequest struct {
	Code         string                    `json:"code" example:"sop-review" binding:"required"`    // 模板编码
	Name         string                    `json:"name" example:"SOP 审批流程" binding:"required"`      // 模板名称
	DocumentType string                    `json:"document_type" example:"SOP" binding:"required"`  // 适用文档类型
	Steps        []workflow.StepDefinition `json:"steps" binding:"required"`                        // 有序步骤列表
}

// UpdateWorkflowRequest 更新工作流模板请求
// 更新不会触碰既有版本行,而是生成一行自增版本
// @Description 更新审批工作流模板的请求参数
type UpdateWorkflowRequest struct {
	Name         string                    `json:"name" example:"SOP 审批流程"`     // 模板名称
	DocumentType string                    `json:"document_type" example:"SOP"` // 适用文档类型
	Steps        []workflow.StepDefinition `json:"steps"`                       // 有序步骤列表
}

// workflowCacheEntry 模板缓存条目
type workflowCacheEntry struct {
	template  *workflow.Template
	expiresAt time.Time
}

// workflowService 工作流模板管理服务实现
type workflowService struct {
	templates   repository.TemplateRepository
	auditLogSvc AuditLogService
	cache       *sync.Map
	cacheTTL    time.Duration
}

// NewWorkflowService 创建工作流模板管理服务
func NewWorkflowService(templates repository.TemplateRepository, auditLogSvc AuditLogService) WorkflowService {
	return &workflowService{
		templates:   templates,
		auditLogSvc: auditLogSvc,
		cache:       &sync.Map{},
		cacheTTL:    5 * time.Minute, // 默认缓存 5 分钟
	}
}

// Create 创建工作流模板
// 同一编码重复创建视为发布新版本,版本号取当前最大值加一
func (s *workflowService) Create(ctx context.Context, req *CreateWorkflowRequest) (*workflow.Template, error) {
	now := time.Now()

	// 1. 计算下一个版本号
	maxVersion, err := s.templates.MaxVersion(req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve next version: %w", err)
	}

	// 2. 构建并验证模板对象
	tpl := &workflow.Template{
		Code:         req.Code,
		Name:         req.Name,
		DocumentType: req.DocumentType,
		Steps:        req.Steps,
		Version:      maxVersion + 1,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	// 3. 落库
	tm, err := model.NewWorkflowTemplateModel(tpl, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.templates.Save(tm); err != nil {
		return nil, fmt.Errorf("failed to create workflow template: %w", err)
	}

	// 4. 记录审计日志
	if s.auditLogSvc != nil {
		if userID := getUserIDFromContext(ctx); userID != "" {
			details := fmt.Sprintf(`{"code":"%s","version":%d,"name":"%s"}`, tpl.Code, tpl.Version, tpl.Name)
			_ = s.auditLogSvc.RecordAction(ctx, userID, "create", "workflow_template", tpl.Code, details)
		}
	}

	return tpl, nil
}

// Get 获取工作流模板(带缓存)
// version <= 0 表示取最新版本,最新版本不走缓存以免读到过期内容
func (s *workflowService) Get(code string, version int) (*workflow.Template, error) {
	if version > 0 {
		cacheKey := fmt.Sprintf("%s:%d", code, version)
		if val, found := s.cache.Load(cacheKey); found {
			entry := val.(*workflowCacheEntry)
			if time.Now().Before(entry.expiresAt) {
				return entry.template, nil
			}
			s.cache.Delete(cacheKey)
		}
	}

	tm, err := s.templates.FindByCode(code, version)
	if err != nil {
		return nil, err
	}
	tpl, err := tm.ToTemplate()
	if err != nil {
		return nil, err
	}

	// 历史版本不可变,可以安全缓存
	if version > 0 {
		s.cache.Store(fmt.Sprintf("%s:%d", code, version), &workflowCacheEntry{
			template:  tpl,
			expiresAt: time.Now().Add(s.cacheTTL),
		})
	}

	return tpl, nil
}

// Update 更新工作流模板
// 基于当前最新版本生成新版本行,未提供的字段沿用最新版本的值
func (s *workflowService) Update(ctx context.Context, code string, req *UpdateWorkflowRequest) (*workflow.Template, error) {
	current, err := s.Get(code, 0)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = current.Name
	}
	documentType := req.DocumentType
	if documentType == "" {
		documentType = current.DocumentType
	}
	steps := req.Steps
	if len(steps) == 0 {
		steps = current.Steps
	}

	updated, err := s.Create(ctx, &CreateWorkflowRequest{
		Code:         code,
		Name:         name,
		DocumentType: documentType,
		Steps:        steps,
	})
	if err != nil {
		return nil, err
	}

	if s.auditLogSvc != nil {
		if userID := getUserIDFromContext(ctx); userID != "" {
			details := fmt.Sprintf(`{"code":"%s","version":%d}`, updated.Code, updated.Version)
			_ = s.auditLogSvc.RecordAction(ctx, userID, "update", "workflow_template", code, details)
		}
	}

	return updated, nil
}

// List 列出全部工作流模板(每个编码只取最新版本)
func (s *workflowService) List() ([]*workflow.Template, error) {
	models, err := s.templates.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow templates: %w", err)
	}
	return toTemplates(models)
}

// ListByDocumentType 按文档类型列出启用中的工作流模板
func (s *workflowService) ListByDocumentType(documentType string) ([]*workflow.Template, error) {
	models, err := s.templates.FindByDocumentType(documentType)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow templates: %w", err)
	}
	return toTemplates(models)
}

// ListVersions 列出某编码的全部历史版本
func (s *workflowService) ListVersions(code string) ([]*workflow.Template, error) {
	models, err := s.templates.FindVersions(code)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow versions: %w", err)
	}
	if len(models) == 0 {
		return nil, workflow.ErrTemplateNotFound
	}
	return toTemplates(models)
}

// SetActive 启用或停用某编码的全部版本
// 停用只阻止新实例启动,在途实例继续按已固定的版本走完
func (s *workflowService) SetActive(ctx context.Context, code string, active bool) error {
	if err := s.templates.SetActive(code, active); err != nil {
		return err
	}

	s.clearWorkflowCache(code)

	if s.auditLogSvc != nil {
		if userID := getUserIDFromContext(ctx); userID != "" {
			action := "deactivate"
			if active {
				action = "activate"
			}
			details := fmt.Sprintf(`{"code":"%s","active":%t}`, code, active)
			_ = s.auditLogSvc.RecordAction(ctx, userID, action, "workflow_template", code, details)
		}
	}

	return nil
}

// clearWorkflowCache 清除某编码全部版本的缓存
func (s *workflowService) clearWorkflowCache(code string) {
	prefix := code + ":"
	s.cache.Range(func(key, value interface{}) bool {
		if keyStr, ok := key.(string); ok && strings.HasPrefix(keyStr, prefix) {
			s.cache.Delete(key)
		}
		return true
	})
}

// toTemplates 批量反序列化模板模型
func toTemplates(models []*model.WorkflowTemplateModel) ([]*workflow.Template, error) {
	templates := make([]*workflow.Template, 0, len(models))
	for _, tm := range models {
		tpl, err := tm.ToTemplate()
		if err != nil {
			continue // 跳过无法反序列化的模板
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}
