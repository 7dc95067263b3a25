package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gmpstack/docflow/internal/config"
	"github.com/gmpstack/docflow/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,未设置的项回落到默认值
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试,等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.WorkflowTemplateModel{},
			&model.ApprovalInstanceModel{},
			&model.DecisionModel{},
			&model.EventModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表(使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	// 创建 workflow_templates 表(使用组合主键 code, version)
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_templates (
			code VARCHAR(64) NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			name VARCHAR(255) NOT NULL,
			document_type VARCHAR(64) NOT NULL,
			steps TEXT NOT NULL,
			active BOOLEAN NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			created_by VARCHAR(64),
			PRIMARY KEY (code, version)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create workflow_templates table: %w", err)
	}

	// 创建 approval_instances 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_instances (
			id VARCHAR(64) PRIMARY KEY,
			document_id VARCHAR(64) NOT NULL,
			document_type VARCHAR(64) NOT NULL,
			workflow_code VARCHAR(64) NOT NULL,
			workflow_version INTEGER NOT NULL,
			initiator VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			step_index INTEGER NOT NULL,
			step_deadline DATETIME NOT NULL,
			priority VARCHAR(16) NOT NULL DEFAULT 'NORMAL',
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			comments TEXT,
			overrides TEXT,
			revision INTEGER NOT NULL DEFAULT 0
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_instances table: %w", err)
	}

	// 创建 approval_decisions 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_decisions (
			id VARCHAR(64) PRIMARY KEY,
			instance_id VARCHAR(64) NOT NULL,
			step_index INTEGER NOT NULL,
			actor VARCHAR(64) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			target_actor VARCHAR(64),
			comment TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_decisions table: %w", err)
	}

	// 创建 approval_events 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS approval_events (
			id VARCHAR(64) PRIMARY KEY,
			instance_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create approval_events table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// workflow_templates 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_templates_document_type ON workflow_templates(document_type, active)").Error; err != nil {
		return fmt.Errorf("failed to create idx_templates_document_type: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_templates_created_at ON workflow_templates(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_templates_created_at: %w", err)
	}

	// approval_instances 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_document ON approval_instances(document_id, status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_document: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_status_deadline ON approval_instances(status, step_deadline)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_status_deadline: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_initiator ON approval_instances(initiator)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_initiator: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_workflow_code ON approval_instances(workflow_code)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_workflow_code: %w", err)
	}

	// approval_decisions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_instance_time ON approval_decisions(instance_id, created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_instance_time: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_decisions_actor ON approval_decisions(actor)").Error; err != nil {
		return fmt.Errorf("failed to create idx_decisions_actor: %w", err)
	}

	// approval_events 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_status ON approval_events(status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_instance_id ON approval_events(instance_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_events_instance_id: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_templates_steps_gin ON workflow_templates USING GIN (steps)").Error; err != nil {
			return fmt.Errorf("failed to create idx_templates_steps_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	// 关闭旧连接
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
