package workflow

import "time"

// DecisionKind 决定类型
// 封闭集合,状态机的转换函数对其做穷尽分支,
// 新增类型会迫使所有分支点显式处理
type DecisionKind string

const (
	KindApprove  DecisionKind = "APPROVE"  // 同意,推进或完成
	KindReject   DecisionKind = "REJECT"   // 拒绝,终止
	KindTransfer DecisionKind = "TRANSFER" // 转办当前步骤
	KindWithdraw DecisionKind = "WITHDRAW" // 发起人撤回
	KindEscalate DecisionKind = "ESCALATE" // 催办,只触发通知
)

// Valid 判断决定类型是否属于封闭集合
func (k DecisionKind) Valid() bool {
	switch k {
	case KindApprove, KindReject, KindTransfer, KindWithdraw, KindEscalate:
		return true
	}
	return false
}

// Decision 决定台账条目
// 仅追加; 按时间排序的条目序列必须能确定性地重建实例的全部状态演变
type Decision struct {
	ID          string       `json:"id"`
	InstanceID  string       `json:"instance_id"`
	StepIndex   int          `json:"step_index"` // 决定发生时的步骤下标
	Actor       string       `json:"actor"`
	Kind        DecisionKind `json:"kind"`
	TargetActor string       `json:"target_actor,omitempty"` // TRANSFER 的接收人
	Comment     string       `json:"comment,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
