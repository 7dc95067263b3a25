package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 审批流程启动数
	approvalsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "approvals_started_total",
			Help: "Total number of approval processes started",
		},
	)

	// 审批决定数
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions",
		},
		[]string{"kind"}, // APPROVE, REJECT, TRANSFER, WITHDRAW, ESCALATE
	)

	// 乐观锁冲突数
	concurrencyConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_concurrency_conflicts_total",
			Help: "Total number of optimistic lock conflicts surfaced to callers",
		},
	)

	// 超时升级通知数
	escalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_escalations_total",
			Help: "Total number of overdue escalation notifications",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 实例状态分布
	instancesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "approval_instances_by_status",
			Help: "Number of approval instances by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(approvalsStartedTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(concurrencyConflictsTotal)
	prometheus.MustRegister(escalationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(instancesByStatus)

	// 注册 Go 运行时指标(只注册一次)
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordApprovalStarted 记录审批流程启动
func RecordApprovalStarted() {
	approvalsStartedTotal.Inc()
}

// RecordDecision 记录审批决定
func RecordDecision(kind string) {
	decisionsTotal.WithLabelValues(kind).Inc()
}

// RecordConcurrencyConflict 记录上抛给调用方的乐观锁冲突
func RecordConcurrencyConflict() {
	concurrencyConflictsTotal.Inc()
}

// RecordEscalation 记录超时升级通知
func RecordEscalation() {
	escalationsTotal.Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateInstancesByStatus 更新实例状态分布指标
func UpdateInstancesByStatus(status string, count float64) {
	instancesByStatus.WithLabelValues(status).Set(count)
}
