package engine_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gmpstack/docflow/internal/auth"
	"github.com/gmpstack/docflow/internal/database"
	"github.com/gmpstack/docflow/internal/engine"
	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/pkg/event"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeRoles 角色成员的内存实现
type fakeRoles struct {
	members map[string][]string // 角色 -> 成员
	err     error
}

func (f *fakeRoles) CheckPermission(ctx context.Context, userID string, relation string, objectType string, objectID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, member := range f.members[objectID] {
		if member == userID {
			return true, nil
		}
	}
	return false, nil
}

// captureHandler 捕获事件的处理器
type captureHandler struct {
	mu     sync.Mutex
	events []*event.Event
}

func (h *captureHandler) Handle(evt *event.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return nil
}

func (h *captureHandler) Close() error { return nil }

func (h *captureHandler) byType(t event.Type) []*event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []*event.Event
	for _, evt := range h.events {
		if evt.Type == t {
			result = append(result, evt)
		}
	}
	return result
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedTemplate(t *testing.T, db *gorm.DB, tpl *workflow.Template) {
	t.Helper()
	tpl.CreatedAt = time.Now()
	tpl.UpdatedAt = tpl.CreatedAt
	tm, err := model.NewWorkflowTemplateModel(tpl, "admin")
	require.NoError(t, err)
	require.NoError(t, repository.NewTemplateRepository(db).Save(tm))
}

func reviewTemplate() *workflow.Template {
	return &workflow.Template{
		Code:         "sop-review",
		Name:         "SOP 审批流程",
		DocumentType: "SOP",
		Version:      1,
		Active:       true,
		Steps: []workflow.StepDefinition{
			{Name: "部门审核", Approvers: []string{"alice"}, SLAHours: 24, EscalateTo: "dept-head"},
			{Name: "质量审核", Approvers: []string{"bob"}, SLAHours: 48},
			{Name: "批准", Approvers: []string{"qa-head"}, SLAHours: 24},
		},
	}
}

func newEngine(t *testing.T, db *gorm.DB, roles auth.RoleChecker, events event.Handler) engine.Engine {
	t.Helper()
	if events == nil {
		events = event.NopHandler()
	}
	return engine.New(db, auth.NewPermissionGate(roles), events)
}

func start(t *testing.T, eng engine.Engine) *workflow.Instance {
	t.Helper()
	inst, err := eng.StartApprovalProcess(context.Background(), engine.StartRequest{
		DocumentID:   "doc-001",
		DocumentType: "SOP",
		WorkflowCode: "sop-review",
		Initiator:    "ivan",
	})
	require.NoError(t, err)
	return inst
}

// TestStartApprovalProcess 测试流程启动
func TestStartApprovalProcess(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	events := &captureHandler{}
	eng := newEngine(t, db, &fakeRoles{}, events)

	inst := start(t, eng)
	assert.Equal(t, workflow.StatusInProgress, inst.Status)
	assert.Equal(t, 0, inst.StepIndex)
	assert.Equal(t, "ivan", inst.Initiator)
	assert.Equal(t, 1, inst.WorkflowVersion)
	assert.Equal(t, workflow.PriorityNormal, inst.Priority)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), inst.StepDeadline, time.Minute)

	require.Len(t, events.byType(event.TypeInstanceStarted), 1)
	assert.Equal(t, []string{"alice"}, events.byType(event.TypeInstanceStarted)[0].Recipients)

	// 落库后可读回
	loaded, err := eng.GetApprovalInstance(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, loaded.ID)
	assert.Equal(t, 0, loaded.Revision)
}

// TestStartMissingOrInactiveTemplate 测试启动时模板缺失或停用
func TestStartMissingOrInactiveTemplate(t *testing.T) {
	db := newTestDB(t)
	eng := newEngine(t, db, &fakeRoles{}, nil)

	_, err := eng.StartApprovalProcess(context.Background(), engine.StartRequest{
		DocumentID: "doc-001", WorkflowCode: "missing", Initiator: "ivan",
	})
	assert.ErrorIs(t, err, workflow.ErrTemplateNotFound)

	tpl := reviewTemplate()
	tpl.Active = false
	seedTemplate(t, db, tpl)
	_, err = eng.StartApprovalProcess(context.Background(), engine.StartRequest{
		DocumentID: "doc-001", WorkflowCode: "sop-review", Initiator: "ivan",
	})
	assert.ErrorIs(t, err, workflow.ErrTemplateNotFound)
}

// TestStartRejectsDuplicateInProgress 测试同一文档不允许并行审批
func TestStartRejectsDuplicateInProgress(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	_, err := eng.StartApprovalProcess(ctx, engine.StartRequest{
		DocumentID: "doc-001", WorkflowCode: "sop-review", Initiator: "judy",
	})
	assert.ErrorIs(t, err, workflow.ErrApprovalInProgress)

	// 在途实例到达终态后可再次启动
	require.NoError(t, eng.WithdrawApproval(ctx, inst.ID, "ivan", ""))
	_, err = eng.StartApprovalProcess(ctx, engine.StartRequest{
		DocumentID: "doc-001", WorkflowCode: "sop-review", Initiator: "ivan",
	})
	require.NoError(t, err)
}

// TestFullApprovalFlow 测试三步全部通过
func TestFullApprovalFlow(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	events := &captureHandler{}
	eng := newEngine(t, db, &fakeRoles{}, events)
	ctx := context.Background()

	inst := start(t, eng)

	completed, err := eng.ExecuteApprovalStep(ctx, inst.ID, "alice", true, "部门审核通过")
	require.NoError(t, err)
	assert.False(t, completed)

	completed, err = eng.ExecuteApprovalStep(ctx, inst.ID, "bob", true, "质量审核通过")
	require.NoError(t, err)
	assert.False(t, completed)

	completed, err = eng.ExecuteApprovalStep(ctx, inst.ID, "qa-head", true, "批准")
	require.NoError(t, err)
	assert.True(t, completed)

	final, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, final.Status)
	assert.Equal(t, 2, final.StepIndex)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, 3, final.Revision)

	// 台账重放重现终态
	decisions, err := eng.GetDecisions(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	replayed := make([]workflow.Decision, len(decisions))
	for i, d := range decisions {
		replayed[i] = *d
	}
	result, err := workflow.Replay(3, replayed)
	require.NoError(t, err)
	assert.Equal(t, final.Status, result.Status)
	assert.Equal(t, final.StepIndex, result.StepIndex)

	assert.Len(t, events.byType(event.TypeStepAdvanced), 2)
	assert.Len(t, events.byType(event.TypeTerminal), 1)
}

// TestRejectTerminatesImmediately 测试中途拒绝
func TestRejectTerminatesImmediately(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)
	_, err := eng.ExecuteApprovalStep(ctx, inst.ID, "alice", true, "")
	require.NoError(t, err)

	completed, err := eng.ExecuteApprovalStep(ctx, inst.ID, "bob", false, "文件不符合规范")
	require.NoError(t, err)
	assert.True(t, completed)

	final, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, final.Status)
	assert.Equal(t, 1, final.StepIndex)

	// 终态实例拒绝任何后续决定
	_, err = eng.ExecuteApprovalStep(ctx, inst.ID, "qa-head", true, "")
	assert.ErrorIs(t, err, workflow.ErrInstanceNotInProgress)
}

// TestUnauthorizedActor 测试非授权操作人被拒且状态不变
func TestUnauthorizedActor(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	_, err := eng.ExecuteApprovalStep(ctx, inst.ID, "mallory", true, "")
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)

	// 状态与台账都不变
	loaded, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.StepIndex)
	assert.Equal(t, 0, loaded.Revision)
	decisions, err := eng.GetDecisions(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

// TestRoleBasedStep 测试仅角色步骤通过角色成员判定
func TestRoleBasedStep(t *testing.T) {
	db := newTestDB(t)
	tpl := reviewTemplate()
	tpl.Steps[0] = workflow.StepDefinition{Name: "部门审核", Role: "dept_reviewer", SLAHours: 24}
	seedTemplate(t, db, tpl)
	roles := &fakeRoles{members: map[string][]string{"dept_reviewer": {"dave"}}}
	eng := newEngine(t, db, roles, nil)
	ctx := context.Background()

	inst := start(t, eng)

	_, err := eng.ExecuteApprovalStep(ctx, inst.ID, "mallory", true, "")
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)

	completed, err := eng.ExecuteApprovalStep(ctx, inst.ID, "dave", true, "")
	require.NoError(t, err)
	assert.False(t, completed)
}

// TestRoleCheckerFailureFailsClosed 权限服务不可达时拒绝而非放行
func TestRoleCheckerFailureFailsClosed(t *testing.T) {
	db := newTestDB(t)
	tpl := reviewTemplate()
	tpl.Steps[0] = workflow.StepDefinition{Name: "部门审核", Role: "dept_reviewer", SLAHours: 24}
	seedTemplate(t, db, tpl)
	roles := &fakeRoles{err: assert.AnError}
	eng := newEngine(t, db, roles, nil)
	ctx := context.Background()

	inst := start(t, eng)

	_, err := eng.ExecuteApprovalStep(ctx, inst.ID, "dave", true, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, workflow.ErrNotAuthorized) // 基础设施失败,不是业务拒绝

	loaded, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Revision)
}

// TestTransferReplacesApprover 测试转办的替换语义
func TestTransferReplacesApprover(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	events := &captureHandler{}
	eng := newEngine(t, db, &fakeRoles{}, events)
	ctx := context.Background()

	inst := start(t, eng)

	require.NoError(t, eng.TransferApproval(ctx, inst.ID, "alice", "carol", "休假转办"))

	// 原审批人失去决定权
	_, err := eng.ExecuteApprovalStep(ctx, inst.ID, "alice", true, "")
	assert.ErrorIs(t, err, workflow.ErrNotAuthorized)

	// 接收人可以决定,步骤与截止时间未变
	step, err := eng.GetCurrentStep(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, step.StepIndex)
	assert.Equal(t, []string{"carol"}, step.Approvers)

	completed, err := eng.ExecuteApprovalStep(ctx, inst.ID, "carol", true, "")
	require.NoError(t, err)
	assert.False(t, completed)

	// 转办只影响当时的步骤,下一步审批人不受影响
	completed, err = eng.ExecuteApprovalStep(ctx, inst.ID, "bob", true, "")
	require.NoError(t, err)
	assert.False(t, completed)

	require.Len(t, events.byType(event.TypeStepTransferred), 1)
	assert.Equal(t, []string{"carol"}, events.byType(event.TypeStepTransferred)[0].Recipients)
}

// TestTransferValidation 测试转办参数校验
func TestTransferValidation(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	assert.ErrorIs(t, eng.TransferApproval(ctx, inst.ID, "alice", "", ""), workflow.ErrNotAuthorized)
	assert.ErrorIs(t, eng.TransferApproval(ctx, inst.ID, "alice", "alice", ""), workflow.ErrNotAuthorized)
	assert.ErrorIs(t, eng.TransferApproval(ctx, inst.ID, "mallory", "carol", ""), workflow.ErrNotAuthorized)
}

// TestWithdrawInitiatorOnly 测试撤回仅限发起人
func TestWithdrawInitiatorOnly(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	assert.ErrorIs(t, eng.WithdrawApproval(ctx, inst.ID, "alice", ""), workflow.ErrNotAuthorized)

	require.NoError(t, eng.WithdrawApproval(ctx, inst.ID, "ivan", "需求变更"))

	final, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWithdrawn, final.Status)
	assert.NotNil(t, final.CompletedAt)

	// 撤回是终态,不能再撤回或审批
	assert.ErrorIs(t, eng.WithdrawApproval(ctx, inst.ID, "ivan", ""), workflow.ErrInstanceNotInProgress)
}

// TestUrgeAppendsEscalateEntry 测试催办
func TestUrgeAppendsEscalateEntry(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	events := &captureHandler{}
	eng := newEngine(t, db, &fakeRoles{}, events)
	ctx := context.Background()

	inst := start(t, eng)

	assert.ErrorIs(t, eng.UrgeApproval(ctx, inst.ID, "alice"), workflow.ErrNotAuthorized)

	require.NoError(t, eng.UrgeApproval(ctx, inst.ID, "ivan"))

	// 状态与步骤不变,台账追加 ESCALATE 条目
	loaded, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, loaded.Status)
	assert.Equal(t, 0, loaded.StepIndex)
	assert.Equal(t, 1, loaded.Revision)

	decisions, err := eng.GetDecisions(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, workflow.KindEscalate, decisions[0].Kind)

	require.Len(t, events.byType(event.TypeStepEscalated), 1)
	assert.Equal(t, []string{"alice"}, events.byType(event.TypeStepEscalated)[0].Recipients)
}

// TestGetCurrentStep 测试当前步骤查询
func TestGetCurrentStep(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	step, err := eng.GetCurrentStep(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "部门审核", step.Step.Name)
	assert.False(t, step.Overdue)

	require.NoError(t, eng.WithdrawApproval(ctx, inst.ID, "ivan", ""))
	_, err = eng.GetCurrentStep(ctx, inst.ID)
	assert.ErrorIs(t, err, workflow.ErrInstanceNotInProgress)

	_, err = eng.GetCurrentStep(ctx, "missing")
	assert.ErrorIs(t, err, workflow.ErrInstanceNotFound)
}

// TestGetPendingTasks 测试待办任务查询
func TestGetPendingTasks(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	tasks, err := eng.GetPendingTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, inst.ID, tasks[0].Instance.ID)
	assert.Equal(t, "部门审核", tasks[0].Step.Name)

	// 非当前步骤审批人没有待办
	tasks, err = eng.GetPendingTasks(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// 推进后待办转移
	_, err = eng.ExecuteApprovalStep(ctx, inst.ID, "alice", true, "")
	require.NoError(t, err)
	tasks, err = eng.GetPendingTasks(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	tasks, err = eng.GetPendingTasks(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestGetActorDecisions 测试按操作人跨实例查询决定
func TestGetActorDecisions(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	first := start(t, eng)
	_, err := eng.ExecuteApprovalStep(ctx, first.ID, "alice", true, "同意")
	require.NoError(t, err)
	require.NoError(t, eng.WithdrawApproval(ctx, first.ID, "ivan", "重新提交"))

	second := start(t, eng)
	_, err = eng.ExecuteApprovalStep(ctx, second.ID, "alice", false, "材料不全")
	require.NoError(t, err)

	decisions, err := eng.GetActorDecisions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	// 新决定在前,且跨越两个实例
	assert.Equal(t, workflow.KindReject, decisions[0].Kind)
	assert.Equal(t, second.ID, decisions[0].InstanceID)
	assert.Equal(t, workflow.KindApprove, decisions[1].Kind)
	assert.Equal(t, first.ID, decisions[1].InstanceID)

	decisions, err = eng.GetActorDecisions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

// TestGetDocumentApprovalHistory 测试文档审批历史
func TestGetDocumentApprovalHistory(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	first := start(t, eng)
	require.NoError(t, eng.WithdrawApproval(ctx, first.ID, "ivan", "重新提交"))

	second := start(t, eng)
	_, err := eng.ExecuteApprovalStep(ctx, second.ID, "alice", true, "")
	require.NoError(t, err)

	history, err := eng.GetDocumentApprovalHistory(ctx, "doc-001")
	require.NoError(t, err)
	require.Len(t, history, 2)

	statuses := map[string]workflow.Status{}
	for _, h := range history {
		statuses[h.Instance.ID] = h.Instance.Status
	}
	assert.Equal(t, workflow.StatusWithdrawn, statuses[first.ID])
	assert.Equal(t, workflow.StatusInProgress, statuses[second.ID])

	// 其他文档没有历史
	history, err = eng.GetDocumentApprovalHistory(ctx, "doc-other")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// TestSweepOverdue 测试超时扫描
func TestSweepOverdue(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	events := &captureHandler{}
	eng := newEngine(t, db, &fakeRoles{}, events)
	ctx := context.Background()

	inst := start(t, eng)

	// 无超时实例时不通知
	notified, err := eng.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, notified)

	// 把当前步骤截止时间拨到过去
	require.NoError(t, db.Model(&model.ApprovalInstanceModel{}).
		Where("id = ?", inst.ID).
		Update("step_deadline", time.Now().Add(-time.Hour)).Error)

	notified, err = eng.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	escalations := events.byType(event.TypeStepEscalated)
	require.Len(t, escalations, 1)
	assert.Equal(t, []string{"dept-head"}, escalations[0].Recipients)

	// 扫描不写台账、不改状态,重复执行只产生重复通知
	decisions, err := eng.GetDecisions(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, decisions)

	notified, err = eng.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
	loaded, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, loaded.Status)
	assert.Equal(t, 0, loaded.Revision)
}

// TestOptimisticLockConflict 测试乐观锁冲突检测
func TestOptimisticLockConflict(t *testing.T) {
	db := newTestDB(t)
	seedTemplate(t, db, reviewTemplate())
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	// 模拟并发修改: 用过期的 revision 直接走仓储更新
	repo := repository.NewInstanceRepository(db)
	im, err := repo.FindByID(inst.ID)
	require.NoError(t, err)

	// 第一次更新成功
	require.NoError(t, repo.UpdateWithRevision(im, 0))

	// 持有旧 revision 的更新失败
	stale, err := model.NewApprovalInstanceModel(inst)
	require.NoError(t, err)
	err = repo.UpdateWithRevision(stale, 0)
	assert.ErrorIs(t, err, workflow.ErrConcurrentModification)

	// 引擎在冲突后重载重试,外部观察不到冲突
	completed, err := eng.ExecuteApprovalStep(ctx, inst.ID, "alice", true, "")
	require.NoError(t, err)
	assert.False(t, completed)
}

// TestConcurrentApproveSingleAdvance 测试两个审批人同时同意只推进一步
// 落败方重载后面对的是下一步骤,权限检查将其拒绝
func TestConcurrentApproveSingleAdvance(t *testing.T) {
	// 内存 SQLite 在多连接下各自为库,并发场景用文件库
	dsn := filepath.Join(t.TempDir(), "docflow.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	tpl := reviewTemplate()
	tpl.Steps[0].Approvers = []string{"alice", "bob"}
	seedTemplate(t, db, tpl)
	eng := newEngine(t, db, &fakeRoles{}, nil)
	ctx := context.Background()

	inst := start(t, eng)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, actor string) {
			defer wg.Done()
			_, errs[i] = eng.ExecuteApprovalStep(ctx, inst.ID, actor, true, "")
		}(i, actor)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, workflow.ErrNotAuthorized)
		}
	}
	assert.Equal(t, 1, successes)

	// 恰好推进一步,台账恰好一条 APPROVE
	loaded, err := eng.GetApprovalInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, loaded.Status)
	assert.Equal(t, 1, loaded.StepIndex)
	assert.Equal(t, 1, loaded.Revision)

	decisions, err := eng.GetDecisions(ctx, inst.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, workflow.KindApprove, decisions[0].Kind)
}
