package repository

import (
	"errors"
	"time"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/pkg/workflow"
	"gorm.io/gorm"
)

// InstanceRepository 审批实例仓储接口
// 实例永不删除; 状态转换走 UpdateWithRevision 的乐观锁路径,
// 其余方法只读
type InstanceRepository interface {
	Create(instance *model.ApprovalInstanceModel) error
	FindByID(id string) (*model.ApprovalInstanceModel, error)
	UpdateWithRevision(instance *model.ApprovalInstanceModel, expectedRevision int) error
	FindByDocumentID(documentID string) ([]*model.ApprovalInstanceModel, error)
	FindInProgressByDocumentID(documentID string) (*model.ApprovalInstanceModel, error)
	FindInProgress() ([]*model.ApprovalInstanceModel, error)
	FindOverdue(now time.Time) ([]*model.ApprovalInstanceModel, error)
	WithTx(tx *gorm.DB) InstanceRepository
}

// instanceRepository 审批实例仓储实现
type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository 创建审批实例仓储
func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *instanceRepository) WithTx(tx *gorm.DB) InstanceRepository {
	return &instanceRepository{db: tx}
}

// Create 创建实例
func (r *instanceRepository) Create(instance *model.ApprovalInstanceModel) error {
	return r.db.Create(instance).Error
}

// FindByID 根据 ID 查找实例
func (r *instanceRepository) FindByID(id string) (*model.ApprovalInstanceModel, error) {
	var instance model.ApprovalInstanceModel
	if err := r.db.Where("id = ?", id).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, workflow.ErrInstanceNotFound
		}
		return nil, err
	}
	return &instance, nil
}

// UpdateWithRevision 带乐观锁的整行更新
// 写入前提是行上的 revision 仍等于读取时的值; 受影响行数为 0
// 说明存在并发修改,返回 ErrConcurrentModification 让调用方重试
func (r *instanceRepository) UpdateWithRevision(instance *model.ApprovalInstanceModel, expectedRevision int) error {
	instance.Revision = expectedRevision + 1
	result := r.db.Model(&model.ApprovalInstanceModel{}).
		Where("id = ? AND revision = ?", instance.ID, expectedRevision).
		Select("*").Omit("id", "started_at").
		Updates(instance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return workflow.ErrConcurrentModification
	}
	return nil
}

// FindByDocumentID 查找文档的全部实例,新实例在前
func (r *instanceRepository) FindByDocumentID(documentID string) ([]*model.ApprovalInstanceModel, error) {
	var instances []*model.ApprovalInstanceModel
	err := r.db.Where("document_id = ?", documentID).
		Order("started_at DESC").
		Find(&instances).Error
	return instances, err
}

// FindInProgressByDocumentID 查找文档当前审批中的实例
// 同一文档同一时刻至多一个审批中实例,找不到时返回 nil 而非错误
func (r *instanceRepository) FindInProgressByDocumentID(documentID string) (*model.ApprovalInstanceModel, error) {
	var instance model.ApprovalInstanceModel
	err := r.db.Where("document_id = ? AND status = ?", documentID, string(workflow.StatusInProgress)).
		First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instance, nil
}

// FindInProgress 查找全部审批中的实例
func (r *instanceRepository) FindInProgress() ([]*model.ApprovalInstanceModel, error) {
	var instances []*model.ApprovalInstanceModel
	err := r.db.Where("status = ?", string(workflow.StatusInProgress)).
		Order("started_at ASC").
		Find(&instances).Error
	return instances, err
}

// FindOverdue 查找当前步骤已超时的审批中实例
func (r *instanceRepository) FindOverdue(now time.Time) ([]*model.ApprovalInstanceModel, error) {
	var instances []*model.ApprovalInstanceModel
	err := r.db.Where("status = ? AND step_deadline < ?", string(workflow.StatusInProgress), now).
		Order("step_deadline ASC").
		Find(&instances).Error
	return instances, err
}
