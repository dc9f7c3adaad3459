package services

import (
	"errors"
	"fmt"
)

// 服务错误码
const (
	CodeAccessDenied = "ACCESS_DENIED" // 权限不足
	CodeInvalidState = "INVALID_STATE" // 状态机不允许的转换
	CodeLimitReached = "LIMIT_REACHED" // 超出数量上限
	CodeNotFound     = "NOT_FOUND"     // 资源不存在
	CodeInvalidInput = "VALIDATION"    // 请求数据不合法
)

// ServiceError 带错误码的服务层错误
// 控制器根据Code映射HTTP状态码，Message直接返回给前端
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	State   string `json:"state,omitempty"` // INVALID_STATE时带上实际状态
	Limit   int    `json:"limit,omitempty"` // LIMIT_REACHED时带上配置的上限
}

// Error 实现error接口
func (e *ServiceError) Error() string {
	return e.Message
}

// ErrAccessDenied 权限不足
func ErrAccessDenied(message string) *ServiceError {
	return &ServiceError{Code: CodeAccessDenied, Message: message}
}

// ErrInvalidState 非法状态转换，携带当前实际状态方便前端对账
func ErrInvalidState(message, actual string) *ServiceError {
	return &ServiceError{Code: CodeInvalidState, Message: fmt.Sprintf("%s（当前状态: %s）", message, actual), State: actual}
}

// ErrLimitReached 超出上限，携带配置的上限值
func ErrLimitReached(message string, limit int) *ServiceError {
	return &ServiceError{Code: CodeLimitReached, Message: message, Limit: limit}
}

// ErrNotFound 资源不存在
func ErrNotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

// ErrInvalidInput 请求数据不合法
func ErrInvalidInput(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidInput, Message: message}
}

// AsServiceError 提取服务错误，普通error返回nil
func AsServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return nil
}
