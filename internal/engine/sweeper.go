package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// OverdueSweeper 超时扫描入口,引擎和它上层的服务门面都满足该接口
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// Sweeper 周期性超时扫描器
// 服务进程内的定时器,按固定间隔调用引擎的超时扫描;
// 也可以通过 sweep 子命令由外部调度器单次触发
type Sweeper struct {
	engine   OverdueSweeper
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper 创建超时扫描器
func NewSweeper(engine OverdueSweeper, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动后台扫描循环
func (s *Sweeper) Start() {
	go s.run()
}

// Stop 停止扫描并等待当前一轮结束
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			notified, err := s.engine.SweepOverdue(ctx)
			cancel()
			if err != nil {
				logrus.WithError(err).Error("Escalation sweep failed")
				continue
			}
			if notified > 0 {
				logrus.WithField("notified", notified).Info("Escalation sweep completed")
			}
		case <-s.stop:
			return
		}
	}
}
