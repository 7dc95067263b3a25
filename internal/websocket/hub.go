// Package websocket 实现审批事件的实时推送
// 客户端订阅后收到与自己相关的审批事件(待办到达、转办、催办、终态),
// 角色接收人无法在网关侧解析成员,降级为全量广播由客户端过滤
package websocket

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gmpstack/docflow/pkg/event"
	"github.com/sirupsen/logrus"
)

// Hub 管理所有 WebSocket 连接
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 广播消息到所有客户端
	Broadcast chan []byte

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 互斥锁,保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToUser 向特定用户推送消息
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
			}
		}
	}
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// EventBroadcaster 把审批事件送入 Hub
// 实现通知链路的 Broadcaster 接口
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster 创建事件广播器
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// Broadcast 按接收人定向推送事件
// 没有接收人或存在 role: 前缀接收人时退化为全量广播
func (b *EventBroadcaster) Broadcast(evt *event.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		logrus.WithError(err).WithField("event_id", evt.ID).Error("Failed to marshal event for websocket")
		return
	}

	broadcastAll := len(evt.Recipients) == 0
	for _, recipient := range evt.Recipients {
		if strings.HasPrefix(recipient, "role:") {
			broadcastAll = true
			continue
		}
		b.hub.BroadcastToUser(recipient, data)
	}
	// 发起人总能看到自己流程的动向
	if evt.Instance != nil {
		b.hub.BroadcastToUser(evt.Instance.Initiator, data)
	}

	if broadcastAll {
		select {
		case b.hub.Broadcast <- data:
		default:
			logrus.WithField("event_id", evt.ID).Warn("Websocket broadcast channel full, dropping event")
		}
	}
}
