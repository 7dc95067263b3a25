package repository_test

import (
	"testing"
	"time"

	"github.com/gmpstack/docflow/internal/database"
	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// newTemplateModel 构建测试模板模型
func newTemplateModel(t *testing.T, code string, version int, active bool) *model.WorkflowTemplateModel {
	t.Helper()
	tpl := &workflow.Template{
		Code:         code,
		Name:         "测试流程",
		DocumentType: "SOP",
		Steps: []workflow.StepDefinition{
			{Name: "部门审核", Approvers: []string{"alice"}, SLAHours: 24},
		},
		Version:   version,
		Active:    active,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	tm, err := model.NewWorkflowTemplateModel(tpl, "admin")
	require.NoError(t, err)
	return tm
}

// TestTemplateRepository_SaveAndFind 测试保存与按版本读取
func TestTemplateRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 2, true)))

	// 指定版本
	tm, err := repo.FindByCode("sop-review", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, tm.Version)

	// version <= 0 返回最新版本
	tm, err = repo.FindByCode("sop-review", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, tm.Version)
}

// TestTemplateRepository_FindByCodeNotFound 测试查找不存在的模板
func TestTemplateRepository_FindByCodeNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	_, err := repo.FindByCode("nope", 0)
	assert.ErrorIs(t, err, workflow.ErrTemplateNotFound)

	_, err = repo.FindByCode("nope", 3)
	assert.ErrorIs(t, err, workflow.ErrTemplateNotFound)
}

// TestTemplateRepository_VersionsImmutable 测试版本行互不覆盖
func TestTemplateRepository_VersionsImmutable(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 2, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 3, true)))

	// 新版本在前
	versions, err := repo.FindVersions("sop-review")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 1, versions[2].Version)
}

// TestTemplateRepository_MaxVersion 测试最大版本号
func TestTemplateRepository_MaxVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	// 不存在的编码返回 0
	max, err := repo.MaxVersion("sop-review")
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 2, true)))

	max, err = repo.MaxVersion("sop-review")
	require.NoError(t, err)
	assert.Equal(t, 2, max)
}

// TestTemplateRepository_FindAllLatestPerCode 测试列表只含每个编码的最新版本
func TestTemplateRepository_FindAllLatestPerCode(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 2, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "batch-record", 1, true)))

	all, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 2)

	byCode := map[string]int{}
	for _, tm := range all {
		byCode[tm.Code] = tm.Version
	}
	assert.Equal(t, 2, byCode["sop-review"])
	assert.Equal(t, 1, byCode["batch-record"])
}

// TestTemplateRepository_SetActive 测试启停翻转全部版本
func TestTemplateRepository_SetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))
	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 2, true)))

	require.NoError(t, repo.SetActive("sop-review", false))

	versions, err := repo.FindVersions("sop-review")
	require.NoError(t, err)
	for _, tm := range versions {
		assert.False(t, tm.Active)
	}

	// 不存在的编码报未找到
	err = repo.SetActive("nope", true)
	assert.ErrorIs(t, err, workflow.ErrTemplateNotFound)
}

// TestTemplateRepository_SaveInactive 测试创建时停用标志原样落库
func TestTemplateRepository_SaveInactive(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "retired", 1, false)))

	tm, err := repo.FindByCode("retired", 1)
	require.NoError(t, err)
	assert.False(t, tm.Active)
}

// TestTemplateRepository_FindByDocumentType 测试按文档类型过滤
func TestTemplateRepository_FindByDocumentType(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewTemplateRepository(db)

	require.NoError(t, repo.Save(newTemplateModel(t, "sop-review", 1, true)))

	other := newTemplateModel(t, "deviation", 1, true)
	other.DocumentType = "DEVIATION"
	require.NoError(t, repo.Save(other))

	inactive := newTemplateModel(t, "retired", 1, false)
	require.NoError(t, repo.Save(inactive))

	matches, err := repo.FindByDocumentType("SOP")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "sop-review", matches[0].Code)
}
