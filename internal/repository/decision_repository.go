package repository

import (
	"github.com/gmpstack/docflow/internal/model"
	"gorm.io/gorm"
)

// DecisionRepository 决定台账仓储接口
// 台账仅追加,接口上没有更新与删除方法
type DecisionRepository interface {
	Append(decision *model.DecisionModel) error
	FindByInstanceID(instanceID string) ([]*model.DecisionModel, error)
	FindByActor(actor string) ([]*model.DecisionModel, error)
	WithTx(tx *gorm.DB) DecisionRepository
}

// decisionRepository 决定台账仓储实现
type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository 创建决定台账仓储
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *decisionRepository) WithTx(tx *gorm.DB) DecisionRepository {
	return &decisionRepository{db: tx}
}

// Append 追加台账条目
func (r *decisionRepository) Append(decision *model.DecisionModel) error {
	return r.db.Create(decision).Error
}

// FindByInstanceID 按时间顺序读取实例的全部台账条目
func (r *decisionRepository) FindByInstanceID(instanceID string) ([]*model.DecisionModel, error) {
	var decisions []*model.DecisionModel
	err := r.db.Where("instance_id = ?", instanceID).
		Order("created_at ASC, id ASC").
		Find(&decisions).Error
	return decisions, err
}

// FindByActor 查找指定操作人的全部决定,新决定在前
func (r *decisionRepository) FindByActor(actor string) ([]*model.DecisionModel, error) {
	var decisions []*model.DecisionModel
	err := r.db.Where("actor = ?", actor).
		Order("created_at DESC").
		Find(&decisions).Error
	return decisions, err
}
