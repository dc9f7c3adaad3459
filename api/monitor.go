package api

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"studyloop/services"
)

// MonitorController 监控控制器
type MonitorController struct {
	NotifyService *services.NotifyService
}

// NewMonitorController 创建监控控制器
func NewMonitorController(notifyService *services.NotifyService) *MonitorController {
	return &MonitorController{
		NotifyService: notifyService,
	}
}

// GetHealth 健康检查
func (c *MonitorController) GetHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetSystemStatus 获取系统状态
func (c *MonitorController) GetSystemStatus(ctx *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := gin.H{
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc":       m.Alloc / 1024 / 1024,      // MB
			"total_alloc": m.TotalAlloc / 1024 / 1024, // MB
			"sys":         m.Sys / 1024 / 1024,        // MB
			"num_gc":      m.NumGC,
		},
	}

	// Kafka可能未启用
	if c.NotifyService != nil {
		metrics := c.NotifyService.GetMetrics()
		status["notify"] = gin.H{
			"events_sent": metrics["events_sent"],
			"errors":      metrics["errors"],
		}
	}

	ctx.JSON(http.StatusOK, status)
}
