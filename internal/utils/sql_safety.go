package utils

import (
	"errors"
	"strings"
)

// 允许用于排序的列,白名单之外的输入一律拒绝
var sortableColumns = map[string]bool{
	"started_at":    true,
	"completed_at":  true,
	"step_deadline": true,
	"status":        true,
	"priority":      true,
	"document_id":   true,
	"document_type": true,
	"workflow_code": true,
	"initiator":     true,
	"created_at":    true,
}

// ValidateSortField 验证排序字段,防止 SQL 注入
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortableColumns[strings.ToLower(field)] {
		return errors.New("sort field is not sortable")
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "DESC" // 默认降序
}
