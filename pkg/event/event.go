// Package event 定义审批引擎对外发布的领域事件
// 引擎在每次状态转换提交后发布事件,通知链路(数据库 outbox、
// Webhook、WebSocket)订阅事件,引擎本身不依赖任何通知实现
package event

import (
	"time"

	"github.com/gmpstack/docflow/pkg/workflow"
)

// Type 事件类型
type Type string

const (
	TypeInstanceStarted Type = "instance_started" // 审批流程启动
	TypeStepAdvanced    Type = "step_advanced"    // 步骤推进
	TypeStepTransferred Type = "step_transferred" // 当前步骤转办
	TypeStepEscalated   Type = "step_escalated"   // 催办或超时升级
	TypeTerminal        Type = "terminal"         // 到达终态
)

// Event 审批事件
// 事件携带转换后的实例快照,消费方不需要回查数据库
type Event struct {
	ID         string             `json:"id"`
	Type       Type               `json:"type"`
	Instance   *workflow.Instance `json:"instance"`
	Decision   *workflow.Decision `json:"decision,omitempty"` // 触发转换的决定,启动与扫描事件为空
	Recipients []string           `json:"recipients,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Handler 事件处理器接口
// Handle 必须快速返回,耗时推送交给处理器内部的异步通道
type Handler interface {
	Handle(evt *Event) error
	Close() error
}

// NopHandler 返回丢弃所有事件的处理器,用于测试与单机工具
func NopHandler() Handler { return nopHandler{} }

type nopHandler struct{}

func (nopHandler) Handle(*Event) error { return nil }
func (nopHandler) Close() error        { return nil }
