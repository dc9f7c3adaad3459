package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyloop/services"
)

// respondError 将服务层错误映射为HTTP响应
// 带错误码的服务错误按错误码映射状态码，普通错误一律按400处理
func respondError(ctx *gin.Context, err error) {
	serviceErr := services.AsServiceError(err)
	if serviceErr == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusBadRequest
	switch serviceErr.Code {
	case services.CodeAccessDenied:
		status = http.StatusForbidden
	case services.CodeNotFound:
		status = http.StatusNotFound
	case services.CodeInvalidState, services.CodeLimitReached:
		status = http.StatusConflict
	case services.CodeInvalidInput:
		status = http.StatusBadRequest
	}

	body := gin.H{"error": serviceErr.Message, "code": serviceErr.Code}
	if serviceErr.State != "" {
		body["state"] = serviceErr.State
	}
	if serviceErr.Limit > 0 {
		body["limit"] = serviceErr.Limit
	}
	ctx.JSON(status, body)
}

// currentUserID 从上下文取当前用户ID，未认证时写401并返回false
func currentUserID(ctx *gin.Context) (uint, bool) {
	userID, exists := ctx.Get("userID")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return 0, false
	}
	return userID.(uint), true
}
