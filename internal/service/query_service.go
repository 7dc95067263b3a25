package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/utils"
	"github.com/gmpstack/docflow/pkg/workflow"
	"gorm.io/gorm"
)

// QueryService 审批实例查询服务接口
// 面向列表页的只读查询,带过滤、排序与分页; 单实例读取走审批服务
type QueryService interface {
	ListInstances(filter *ListInstancesFilter) (*InstanceListResponse, error)
}

// ListInstancesFilter 实例列表查询过滤器
type ListInstancesFilter struct {
	Status       *string
	DocumentType *string
	WorkflowCode *string
	Initiator    *string
	StartTime    *time.Time
	EndTime      *time.Time
	Page         int
	PageSize     int
	SortBy       string
	Order        string // asc/desc
}

// InstanceListResponse 实例列表响应
type InstanceListResponse struct {
	Data       []*workflow.Instance
	Pagination PaginationInfo
}

// PaginationInfo 分页信息
type PaginationInfo struct {
	Page      int
	PageSize  int
	Total     int64
	TotalPage int
}

// queryService 查询服务实现
type queryService struct {
	db *gorm.DB
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{db: db}
}

// ListInstances 列出审批实例
func (s *queryService) ListInstances(filter *ListInstancesFilter) (*InstanceListResponse, error) {
	if filter == nil {
		filter = &ListInstancesFilter{}
	}

	// 设置默认值
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.SortBy == "" {
		filter.SortBy = "started_at"
	}
	if filter.Order == "" {
		filter.Order = "desc"
	}

	// 构建查询
	query := s.db.Model(&model.ApprovalInstanceModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", strings.ToUpper(*filter.Status))
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.WorkflowCode != nil {
		query = query.Where("workflow_code = ?", *filter.WorkflowCode)
	}
	if filter.Initiator != nil {
		query = query.Where("initiator = ?", *filter.Initiator)
	}
	if filter.StartTime != nil {
		query = query.Where("started_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("started_at <= ?", *filter.EndTime)
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count instances: %w", err)
	}

	// 排序(验证排序字段与方向,防止 SQL 注入)
	if err := utils.ValidateSortField(filter.SortBy); err != nil {
		return nil, fmt.Errorf("invalid sort field: %w", err)
	}
	if err := utils.ValidateSortOrder(filter.Order); err != nil {
		return nil, fmt.Errorf("invalid sort order: %w", err)
	}
	query = query.Order(fmt.Sprintf("%s %s", filter.SortBy, strings.ToUpper(filter.Order)))

	// 分页
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Offset(offset).Limit(filter.PageSize)

	// 查询数据
	var models []*model.ApprovalInstanceModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find instances: %w", err)
	}

	instances := make([]*workflow.Instance, 0, len(models))
	for _, im := range models {
		inst, err := im.ToInstance()
		if err != nil {
			continue // 跳过无法反序列化的实例
		}
		instances = append(instances, inst)
	}

	// 计算总页数
	totalPage := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPage++
	}

	return &InstanceListResponse{
		Data: instances,
		Pagination: PaginationInfo{
			Page:      filter.Page,
			PageSize:  filter.PageSize,
			Total:     total,
			TotalPage: totalPage,
		},
	}, nil
}
