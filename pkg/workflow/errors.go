package workflow

import "errors"

// 业务错误哨兵
// API 层通过 errors.Is 将其映射为对应的 HTTP 状态,
// 基础设施错误一律用 %w 包装后作为通用失败上抛
var (
	ErrTemplateNotFound       = errors.New("workflow template not found")
	ErrInvalidTemplate        = errors.New("invalid workflow template")
	ErrInstanceNotFound       = errors.New("approval instance not found")
	ErrInstanceNotInProgress  = errors.New("approval instance is not in progress")
	ErrApprovalInProgress     = errors.New("document already has an approval in progress")
	ErrNotAuthorized          = errors.New("actor is not authorized for the current step")
	ErrConcurrentModification = errors.New("approval instance was modified concurrently")
)

// IsBusinessError 判断错误是否属于业务规则失败
// 业务失败是非致命的类型化结果,与基础设施失败区分上报
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrInvalidTemplate) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrInstanceNotInProgress) ||
		errors.Is(err, ErrApprovalInProgress) ||
		errors.Is(err, ErrNotAuthorized) ||
		errors.Is(err, ErrConcurrentModification)
}
