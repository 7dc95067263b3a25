package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedInstances 写入 n 条测试实例,started_at 依次递增一分钟
func seedInstances(t *testing.T, db *gorm.DB, n int, status workflow.Status) time.Time {
	t.Helper()
	repo := repository.NewInstanceRepository(db)
	base := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	for i := 0; i < n; i++ {
		im, err := model.NewApprovalInstanceModel(&workflow.Instance{
			ID:              fmt.Sprintf("inst-%03d", i),
			DocumentID:      fmt.Sprintf("doc-%03d", i),
			DocumentType:    "SOP",
			WorkflowCode:    "sop-review",
			WorkflowVersion: 1,
			Initiator:       "ivan",
			Status:          status,
			StepDeadline:    base.Add(72 * time.Hour),
			Priority:        workflow.PriorityNormal,
			StartedAt:       base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(im))
	}
	return base
}

// TestQueryService_DefaultsAndOrdering 测试默认分页与排序
func TestQueryService_DefaultsAndOrdering(t *testing.T) {
	db := setupTestDB(t)
	seedInstances(t, db, 3, workflow.StatusInProgress)
	svc := service.NewQueryService(db)

	resp, err := svc.ListInstances(nil)
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 20, resp.Pagination.PageSize)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 1, resp.Pagination.TotalPage)
	// 默认按 started_at 降序,最新实例在前
	assert.Equal(t, "inst-002", resp.Data[0].ID)
}

// TestQueryService_Pagination 测试分页边界
func TestQueryService_Pagination(t *testing.T) {
	db := setupTestDB(t)
	seedInstances(t, db, 5, workflow.StatusInProgress)
	svc := service.NewQueryService(db)

	resp, err := svc.ListInstances(&service.ListInstancesFilter{Page: 2, PageSize: 2, SortBy: "started_at", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "inst-002", resp.Data[0].ID)
	assert.Equal(t, int64(5), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPage)

	// 超出范围的页返回空数据而非错误
	resp, err = svc.ListInstances(&service.ListInstancesFilter{Page: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

// TestQueryService_Filters 测试组合过滤
func TestQueryService_Filters(t *testing.T) {
	db := setupTestDB(t)
	base := seedInstances(t, db, 3, workflow.StatusInProgress)
	svc := service.NewQueryService(db)

	// 状态过滤大小写不敏感
	status := "in_progress"
	resp, err := svc.ListInstances(&service.ListInstancesFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 3)

	missing := "APPROVED"
	resp, err = svc.ListInstances(&service.ListInstancesFilter{Status: &missing})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)

	// 时间窗口过滤
	start := base.Add(time.Minute)
	resp, err = svc.ListInstances(&service.ListInstancesFilter{StartTime: &start})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 2)
}

// TestQueryService_RejectsUnsafeSort 测试非法排序参数被拒绝
func TestQueryService_RejectsUnsafeSort(t *testing.T) {
	db := setupTestDB(t)
	seedInstances(t, db, 1, workflow.StatusInProgress)
	svc := service.NewQueryService(db)

	_, err := svc.ListInstances(&service.ListInstancesFilter{SortBy: "started_at; DROP TABLE approval_instances"})
	assert.Error(t, err)

	_, err = svc.ListInstances(&service.ListInstancesFilter{Order: "sideways"})
	assert.Error(t, err)
}
