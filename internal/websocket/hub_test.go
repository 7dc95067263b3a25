package websocket

import (
	"testing"
	"time"

	"github.com/gmpstack/docflow/pkg/event"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient 创建不带真实连接的测试客户端
func newTestClient(id, userID string, hub *Hub) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Send:   make(chan []byte, 8),
	}
}

// register 注册客户端并等待 Hub 处理完成
func register(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	want := hub.GetClientCount() + 1
	hub.Register <- c
	require.Eventually(t, func() bool {
		return hub.GetClientCount() >= want
	}, time.Second, 5*time.Millisecond)
}

// receive 从客户端读取一条消息
func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received no message", c.ID)
		return nil
	}
}

// TestHub_RegisterUnregister 测试客户端注册与注销
func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient("c1", "alice", hub)
	register(t, hub, client)
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Unregister <- client
	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 0
	}, time.Second, 5*time.Millisecond)

	// 注销会关闭发送通道
	_, open := <-client.Send
	assert.False(t, open)
}

// TestHub_BroadcastToUser 测试定向推送
func TestHub_BroadcastToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient("c1", "alice", hub)
	bob := newTestClient("c2", "bob", hub)
	register(t, hub, alice)
	register(t, hub, bob)

	hub.BroadcastToUser("alice", []byte("pending task"))

	assert.Equal(t, []byte("pending task"), receive(t, alice))
	assert.Empty(t, bob.Send)
}

// TestHub_Broadcast 测试全量广播
func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient("c1", "alice", hub)
	bob := newTestClient("c2", "bob", hub)
	register(t, hub, alice)
	register(t, hub, bob)

	hub.Broadcast <- []byte("announcement")

	assert.Equal(t, []byte("announcement"), receive(t, alice))
	assert.Equal(t, []byte("announcement"), receive(t, bob))
}

// TestEventBroadcaster_TargetedRecipients 测试事件按接收人定向推送
func TestEventBroadcaster_TargetedRecipients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	approver := newTestClient("c1", "dana", hub)
	initiator := newTestClient("c2", "ivan", hub)
	bystander := newTestClient("c3", "mallory", hub)
	register(t, hub, approver)
	register(t, hub, initiator)
	register(t, hub, bystander)

	b := NewEventBroadcaster(hub)
	b.Broadcast(&event.Event{
		ID:         "evt-001",
		Type:       event.TypeStepAdvanced,
		Instance:   &workflow.Instance{ID: "inst-001", Initiator: "ivan"},
		Recipients: []string{"dana"},
		OccurredAt: time.Now(),
	})

	// 接收人和发起人都收到事件,旁观者收不到
	assert.NotEmpty(t, receive(t, approver))
	assert.NotEmpty(t, receive(t, initiator))
	assert.Empty(t, bystander.Send)
}

// TestEventBroadcaster_RoleRecipientFallsBackToBroadcast 测试角色接收人退化为全量广播
func TestEventBroadcaster_RoleRecipientFallsBackToBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	bystander := newTestClient("c1", "mallory", hub)
	register(t, hub, bystander)

	b := NewEventBroadcaster(hub)
	b.Broadcast(&event.Event{
		ID:         "evt-002",
		Type:       event.TypeInstanceStarted,
		Instance:   &workflow.Instance{ID: "inst-001", Initiator: "ivan"},
		Recipients: []string{"role:qa-reviewer"},
		OccurredAt: time.Now(),
	})

	assert.NotEmpty(t, receive(t, bystander))
}
