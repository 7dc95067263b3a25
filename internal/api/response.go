package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/internal/utils"
	"github.com/gmpstack/docflow/pkg/workflow"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code" example:"0"`          // 状态码: 0 表示成功,非 0 表示失败
	Message string      `json:"message" example:"success"` // 响应消息
	Data    interface{} `json:"data"`                      // 响应数据
}

// ErrorResponse 错误响应格式
type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`                           // 错误码
	Message string `json:"message" example:"invalid request"`            // 错误消息
	Detail  string `json:"detail,omitempty" example:"validation failed"` // 错误详情(可选)
}

// PaginatedResponse 分页响应
type PaginatedResponse struct {
	Code       int                    `json:"code" example:"0"`
	Message    string                 `json:"message" example:"success"`
	Data       interface{}            `json:"data"`       // 数据列表
	Pagination service.PaginationInfo `json:"pagination"` // 分页信息
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string, detail string) {
	statusCode := http.StatusInternalServerError
	if code >= 400 && code < 600 {
		statusCode = code
	}

	c.JSON(statusCode, ErrorResponse{
		Code:    code,
		Message: message,
		Detail:  detail,
	})
}

// Paginated 分页响应
func Paginated(c *gin.Context, data interface{}, pagination service.PaginationInfo) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Code:       0,
		Message:    "success",
		Data:       data,
		Pagination: pagination,
	})
}

// DomainError 把业务错误映射为 HTTP 状态码
// 哨兵错误之外的一切视为基础设施故障,对外只暴露 500 与简短消息
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrTemplateNotFound):
		Error(c, http.StatusNotFound, "workflow template not found", err.Error())
	case errors.Is(err, workflow.ErrInstanceNotFound):
		Error(c, http.StatusNotFound, "approval instance not found", err.Error())
	case errors.Is(err, workflow.ErrInvalidTemplate):
		Error(c, http.StatusBadRequest, "invalid workflow template", err.Error())
	case errors.Is(err, workflow.ErrInstanceNotInProgress):
		Error(c, http.StatusConflict, "approval instance is not in progress", err.Error())
	case errors.Is(err, workflow.ErrApprovalInProgress):
		Error(c, http.StatusConflict, "document already has an approval in progress", err.Error())
	case errors.Is(err, workflow.ErrConcurrentModification):
		Error(c, http.StatusConflict, "approval instance was modified concurrently", err.Error())
	case errors.Is(err, workflow.ErrNotAuthorized):
		Error(c, http.StatusForbidden, "not authorized for this step", err.Error())
	default:
		var verr *utils.ValidationError
		if errors.As(err, &verr) {
			Error(c, http.StatusBadRequest, verr.Message, verr.Code)
			return
		}
		Error(c, http.StatusInternalServerError, "internal server error", "")
	}
}
