package workflow

import "time"

// Status 审批实例整体状态
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS" // 审批中
	StatusApproved   Status = "APPROVED"    // 已通过
	StatusRejected   Status = "REJECTED"    // 已拒绝
	StatusWithdrawn  Status = "WITHDRAWN"   // 已撤回
)

// Terminal 判断状态是否为终态
// 终态没有出边,实例到达终态后不再接受任何决定
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusWithdrawn
}

// Priority 审批优先级
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid 判断优先级取值是否合法
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Instance 审批实例
// 一个模板版本针对一份文档的一次执行
// 不变式: 状态为 IN_PROGRESS 时 StepIndex 落在 [0, len(steps)) 内,
// 且唯一标识当前可接受决定的步骤; 实例永不删除,撤回是终态而非删除
type Instance struct {
	ID              string         `json:"id"`
	DocumentID      string         `json:"document_id"`      // 关联文档 ID(外部所有)
	DocumentType    string         `json:"document_type"`    // 文档类型
	WorkflowCode    string         `json:"workflow_code"`    // 模板编码
	WorkflowVersion int            `json:"workflow_version"` // 启动时固定的模板版本
	Initiator       string         `json:"initiator"`        // 发起人
	Status          Status         `json:"status"`
	StepIndex       int            `json:"step_index"`    // 当前步骤下标(从 0 开始)
	StepDeadline    time.Time      `json:"step_deadline"` // 当前步骤截止时间
	Priority        Priority       `json:"priority"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Comments        string         `json:"comments,omitempty"`
	Overrides       map[int]string `json:"overrides,omitempty"` // 步骤下标 → 转办后的审批人
	Revision        int            `json:"revision"`            // 乐观锁版本号
}

// InProgress 判断实例是否仍在审批中
func (i *Instance) InProgress() bool {
	return i.Status == StatusInProgress
}

// CurrentApprovers 解析当前步骤的审批人集合
// 转办覆盖优先于模板中指定的审批人; 仅要求角色的步骤返回空集合,
// 此时成员判断完全交给权限网关
func (i *Instance) CurrentApprovers(tpl *Template) []string {
	if override, ok := i.Overrides[i.StepIndex]; ok {
		return []string{override}
	}
	step, ok := tpl.Step(i.StepIndex)
	if !ok {
		return nil
	}
	return step.Approvers
}

// Overdue 判断当前步骤是否已超时
func (i *Instance) Overdue(now time.Time) bool {
	return i.InProgress() && now.After(i.StepDeadline)
}
