// Package integration 实现通知链路
// 事件先落库(outbox)再异步推送到 Webhook 与 WebSocket,
// 推送失败只影响 outbox 状态,绝不回滚触发事件的审批转换
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/model"
	"github.com/gmpstack/docflow/internal/repository"
	"github.com/gmpstack/docflow/pkg/event"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Broadcaster 实时推送接口,由 WebSocket hub 实现
type Broadcaster interface {
	Broadcast(evt *event.Event)
}

// dbNotifier 基于数据库 outbox 的事件处理器
type dbNotifier struct {
	eventRepo   repository.EventRepository
	httpClient  *http.Client
	webhookURL  string
	broadcaster Broadcaster
	queue       chan *event.Event
	stop        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewNotifier 创建通知处理器并启动推送 worker
// broadcaster 可以为 nil(如 migrate/sweep 等单次命令)
func NewNotifier(db *gorm.DB, cfg config.EngineConfig, broadcaster Broadcaster) event.Handler {
	workers := cfg.EventWorkers
	if workers <= 0 {
		workers = 1
	}
	timeout := time.Duration(cfg.WebhookTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	n := &dbNotifier{
		eventRepo:   repository.NewEventRepository(db),
		httpClient:  &http.Client{Timeout: timeout},
		webhookURL:  cfg.WebhookURL,
		broadcaster: broadcaster,
		queue:       make(chan *event.Event, 1000),
		stop:        make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}

	return n
}

// Handle 处理事件: 先落库,再异步推送
func (n *dbNotifier) Handle(evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	em := &model.EventModel{
		ID:         evt.ID,
		InstanceID: evt.Instance.ID,
		Type:       string(evt.Type),
		Data:       data,
		Status:     "pending",
		RetryCount: 0,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := n.eventRepo.Save(em); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	select {
	case n.queue <- evt:
	default:
		// 队列满时不阻塞审批路径,事件留在 outbox 等待重推
		logrus.WithFields(logrus.Fields{
			"event_id":    evt.ID,
			"event_type":  evt.Type,
			"instance_id": evt.Instance.ID,
		}).Warn("Event queue full, leaving event pending in outbox")
	}

	return nil
}

// Close 停止推送 worker 并等待在途事件处理完
func (n *dbNotifier) Close() error {
	n.closeOnce.Do(func() {
		close(n.stop)
	})
	n.wg.Wait()
	return nil
}

// worker 事件推送 worker
func (n *dbNotifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case evt := <-n.queue:
			n.push(evt)
		case <-n.stop:
			return
		}
	}
}

// push 推送单个事件到 WebSocket 与 Webhook
func (n *dbNotifier) push(evt *event.Event) {
	// WebSocket 广播尽力而为,不计入 outbox 状态
	if n.broadcaster != nil {
		n.broadcaster.Broadcast(evt)
	}

	em, err := n.loadOutboxRow(evt.ID)
	if err != nil {
		logrus.WithError(err).WithField("event_id", evt.ID).Error("Failed to load outbox row")
		return
	}

	// 未配置 Webhook 时无需推送,直接标记成功
	if n.webhookURL == "" {
		n.markStatus(em, "success")
		return
	}

	maxRetries := 3
	backoff := time.Second
	for i := 0; i < maxRetries; i++ {
		if err := n.sendWebhookRequest(evt); err == nil {
			n.markStatus(em, "success")
			return
		} else {
			logrus.WithError(err).WithFields(logrus.Fields{
				"event_id": evt.ID,
				"attempt":  i + 1,
			}).Warn("Webhook push failed")
		}

		em.RetryCount++
		em.UpdatedAt = time.Now()
		if err := n.eventRepo.Save(em); err != nil {
			logrus.WithError(err).WithField("event_id", evt.ID).Error("Failed to update outbox retry count")
		}

		if i < maxRetries-1 {
			time.Sleep(backoff)
			backoff *= 2 // 指数退避
		}
	}

	n.markStatus(em, "failed")
}

// loadOutboxRow 读取事件的 outbox 行
func (n *dbNotifier) loadOutboxRow(eventID string) (*model.EventModel, error) {
	return n.eventRepo.FindByID(eventID)
}

// sendWebhookRequest 发送 Webhook 请求
func (n *dbNotifier) sendWebhookRequest(evt *event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}

	return nil
}

// markStatus 更新 outbox 行状态
func (n *dbNotifier) markStatus(em *model.EventModel, status string) {
	em.Status = status
	em.UpdatedAt = time.Now()
	if err := n.eventRepo.Save(em); err != nil {
		logrus.WithError(err).WithField("event_id", em.ID).Error("Failed to update outbox status")
	}
}
