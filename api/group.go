package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studyloop/models"
	"studyloop/services"
)

// GroupController 学习小组控制器
type GroupController struct {
	GroupService *services.GroupService
}

// NewGroupController 创建学习小组控制器
func NewGroupController(groupService *services.GroupService) *GroupController {
	return &GroupController{
		GroupService: groupService,
	}
}

// parseIDParam 解析路径中的数字ID
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	idStr := ctx.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的ID参数"})
		return 0, false
	}
	return uint(id), true
}

// CreateGroup 创建小组
func (c *GroupController) CreateGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req models.GroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	// 创建小组
	group, err := c.GroupService.CreateGroup(userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	// 获取小组响应
	groupResp, err := c.GroupService.GetGroupResponse(group.ID, userID, true)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "小组创建成功",
		"group":   groupResp,
	})
}

// GetGroupByID 根据ID获取小组
func (c *GroupController) GetGroupByID(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	// 是否包含成员信息
	includeMembers := ctx.DefaultQuery("include_members", "false") == "true"

	// 获取小组信息
	groupResp, err := c.GroupService.GetGroupResponse(groupID, userID, includeMembers)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"group": groupResp,
	})
}

// GetGroups 获取用户加入的小组列表
func (c *GroupController) GetGroups(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	groups, err := c.GroupService.GetUserGroups(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"groups": groups,
	})
}

// UpdateGroup 更新小组信息
func (c *GroupController) UpdateGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.GroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	// 更新小组
	group, err := c.GroupService.UpdateGroup(groupID, userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	groupResp, err := c.GroupService.GetGroupResponse(group.ID, userID, false)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "小组更新成功",
		"group":   groupResp,
	})
}

// UpdateSettings 更新小组设置
func (c *GroupController) UpdateSettings(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.GroupSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	settings, err := c.GroupService.UpdateSettings(groupID, userID, &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "设置更新成功",
		"settings": settings,
	})
}

// JoinGroup 加入小组
func (c *GroupController) JoinGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.GroupService.JoinGroup(groupID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "成功加入小组",
	})
}

// LeaveGroup 离开小组
func (c *GroupController) LeaveGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.GroupService.LeaveGroup(groupID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "成功离开小组",
	})
}

// InviteMember 邀请成员
func (c *GroupController) InviteMember(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if err := c.GroupService.InviteMember(groupID, userID, req.UserID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "邀请已发送",
	})
}

// GetMyInvitations 获取我的待处理邀请
func (c *GroupController) GetMyInvitations(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	invitations, err := c.GroupService.GetMyInvitations(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"invitations": invitations,
	})
}

// RespondInvitation 处理邀请（接受/拒绝）
func (c *GroupController) RespondInvitation(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	invitationID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if err := c.GroupService.RespondInvitation(invitationID, userID, req.Accept); err != nil {
		respondError(ctx, err)
		return
	}

	message := "已拒绝邀请"
	if req.Accept {
		message = "已加入小组"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}

// ChangeMemberRole 调整成员角色（提升/降级管理员）
func (c *GroupController) ChangeMemberRole(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	targetUserID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if err := c.GroupService.ChangeMemberRole(groupID, userID, targetUserID, req.Role); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "角色调整成功",
	})
}

// RemoveMember 移除小组成员
func (c *GroupController) RemoveMember(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	targetUserID, ok := parseIDParam(ctx, "userId")
	if !ok {
		return
	}

	if err := c.GroupService.RemoveMember(groupID, userID, targetUserID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "成员移除成功",
	})
}

// GetGroupMembers 获取小组成员
func (c *GroupController) GetGroupMembers(ctx *gin.Context) {
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	members, err := c.GroupService.GetGroupMembers(groupID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"members": members,
	})
}

// DisbandGroup 解散小组
func (c *GroupController) DisbandGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.GroupService.DisbandGroup(groupID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "小组解散成功",
	})
}
