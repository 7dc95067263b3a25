package repository

import (
	"errors"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/pkg/workflow"
	"gorm.io/gorm"
)

// TemplateRepository 模板仓储接口
// 模板版本不可变,没有更新路径: 修改模板即写入更高版本的新行,
// 停用只翻转 active 标志,不影响已启动实例引用的历史版本
type TemplateRepository interface {
	Save(template *model.WorkflowTemplateModel) error
	FindByCode(code string, version int) (*model.WorkflowTemplateModel, error)
	FindVersions(code string) ([]*model.WorkflowTemplateModel, error)
	FindByDocumentType(documentType string) ([]*model.WorkflowTemplateModel, error)
	FindAll() ([]*model.WorkflowTemplateModel, error)
	MaxVersion(code string) (int, error)
	SetActive(code string, active bool) error
}

// templateRepository 模板仓储实现
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// Save 保存模板版本
func (r *templateRepository) Save(template *model.WorkflowTemplateModel) error {
	return r.db.Create(template).Error
}

// FindByCode 根据编码查找模板
// version <= 0 时返回最新版本
func (r *templateRepository) FindByCode(code string, version int) (*model.WorkflowTemplateModel, error) {
	var template model.WorkflowTemplateModel
	query := r.db.Where("code = ?", code)

	if version > 0 {
		query = query.Where("version = ?", version)
	} else {
		query = query.Order("version DESC").Limit(1)
	}

	if err := query.First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrTemplateNotFound
		}
		return nil, err
	}
	return &template, nil
}

// FindVersions 查找模板的全部版本,新版本在前
func (r *templateRepository) FindVersions(code string) ([]*model.WorkflowTemplateModel, error) {
	var templates []*model.WorkflowTemplateModel
	err := r.db.Where("code = ?", code).Order("version DESC").Find(&templates).Error
	return templates, err
}

// FindByDocumentType 查找适用指定文档类型的启用模板(各编码的最新版本)
func (r *templateRepository) FindByDocumentType(documentType string) ([]*model.WorkflowTemplateModel, error) {
	var templates []*model.WorkflowTemplateModel
	err := r.db.
		Where("document_type = ? AND active = ?", documentType, true).
		Order("code ASC, version DESC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return latestPerCode(templates), nil
}

// FindAll 查找所有模板的最新版本
func (r *templateRepository) FindAll() ([]*model.WorkflowTemplateModel, error) {
	var templates []*model.WorkflowTemplateModel
	err := r.db.Order("code ASC, version DESC").Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return latestPerCode(templates), nil
}

// latestPerCode 从按 (code ASC, version DESC) 排序的行中取每个编码的首行
func latestPerCode(templates []*model.WorkflowTemplateModel) []*model.WorkflowTemplateModel {
	result := make([]*model.WorkflowTemplateModel, 0, len(templates))
	lastCode := ""
	for _, t := range templates {
		if t.Code == lastCode {
			continue
		}
		result = append(result, t)
		lastCode = t.Code
	}
	return result
}

// MaxVersion 返回模板当前最大版本号,不存在时返回 0
func (r *templateRepository) MaxVersion(code string) (int, error) {
	var version int
	err := r.db.Model(&model.WorkflowTemplateModel{}).
		Where("code = ?", code).
		Select("COALESCE(MAX(version), 0)").
		Scan(&version).Error
	return version, err
}

// SetActive 翻转模板全部版本的启用标志
func (r *templateRepository) SetActive(code string, active bool) error {
	result := r.db.Model(&model.WorkflowTemplateModel{}).
		Where("code = ?", code).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrTemplateNotFound
	}
	return nil
}
