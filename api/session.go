package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studyloop/models"
	"studyloop/services"
)

// SessionController 测验会话控制器
type SessionController struct {
	SessionService *services.SessionService
	Generator      services.QuestionGenerator
}

// NewSessionController 创建测验会话控制器
func NewSessionController(sessionService *services.SessionService, generator services.QuestionGenerator) *SessionController {
	return &SessionController{
		SessionService: sessionService,
		Generator:      generator,
	}
}

// CreateSession 在小组内创建测验会话
func (c *SessionController) CreateSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.SessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	session, err := c.SessionService.CreateSession(groupID, userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话创建成功",
		"session": gin.H{
			"id":     session.ID,
			"code":   session.Code,
			"status": session.Status,
			"kind":   session.Kind,
		},
	})
}

// ListSessions 列出小组的测验会话
func (c *SessionController) ListSessions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	sessions, err := c.SessionService.ListGroupSessions(groupID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
	})
}

// GetSession 获取会话详情（题目选项按请求者乱序）
func (c *SessionController) GetSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.GetSessionDetail(sessionID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"session": session,
	})
}

// ApproveSession 审批通过会话
func (c *SessionController) ApproveSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.ApproveSession(sessionID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话已通过审批",
		"status":  session.Status,
	})
}

// RejectSession 驳回会话
func (c *SessionController) RejectSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if err := c.SessionService.RejectSession(sessionID, userID, req.Reason); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话已驳回",
	})
}

// CancelSession 取消会话
func (c *SessionController) CancelSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.SessionService.CancelSession(sessionID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话已取消",
	})
}

// JoinSession 加入会话
func (c *SessionController) JoinSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.SessionService.JoinSession(sessionID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "成功加入会话",
	})
}

// SubmitAnswers 提交作答
func (c *SessionController) SubmitAnswers(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	result, err := c.SessionService.SubmitAnswers(sessionID, userID, req.Responses)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "提交成功",
		"result":  result,
	})
}

// GetLeaderboard 获取会话排行榜
func (c *SessionController) GetLeaderboard(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	entries, stats, err := c.SessionService.GetLeaderboard(sessionID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"stats":       stats,
	})
}

// GetParticipants 获取会话参与者和在线状态（轮询）
func (c *SessionController) GetParticipants(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	participants, err := c.SessionService.GetSessionParticipants(sessionID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"participants": participants,
	})
}

// DeleteSession 删除单个会话
func (c *SessionController) DeleteSession(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.SessionService.DeleteSession(sessionID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话删除成功",
	})
}

// BulkDeleteSessions 批量删除会话（全有或全无）
func (c *SessionController) BulkDeleteSessions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		SessionIDs []uint `json:"session_ids" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if err := c.SessionService.BulkDeleteSessions(groupID, userID, req.SessionIDs); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "会话批量删除成功",
		"deleted": len(req.SessionIDs),
	})
}

// GenerateQuestions 为会话生成AI题目
func (c *SessionController) GenerateQuestions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if c.Generator == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "出题服务未配置"})
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}
	if req.Count <= 0 {
		req.Count = 5
	}

	questions, err := c.SessionService.AttachGeneratedQuestions(sessionID, userID, c.Generator, req.Count)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "题目生成成功",
		"questions": questions,
	})
}

// SweepExpired 手动触发过期扫描（维护接口）
func (c *SessionController) SweepExpired(ctx *gin.Context) {
	if _, ok := currentUserID(ctx); !ok {
		return
	}

	swept, err := c.SessionService.SweepExpiredSessions()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "过期扫描完成",
		"swept":   swept,
	})
}
