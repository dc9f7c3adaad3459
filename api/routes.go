package api

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"studyloop/services"
)

// RegisterRoutes 注册API路由
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, notifyService *services.NotifyService) {
	// 创建服务
	userService := services.NewUserService(db, rdb)
	groupService := services.NewGroupService(db, notifyService)
	sessionService := services.NewSessionService(db, rdb, notifyService)

	// 出题服务未配置时保持nil接口，控制器返回503
	var generator services.QuestionGenerator
	if g := services.NewHTTPQuestionGenerator(); g != nil {
		generator = g
	}

	// 创建控制器
	authController := NewAuthController(userService)
	userController := NewUserController(userService)
	groupController := NewGroupController(groupService)
	monitorController := NewMonitorController(notifyService)
	sessionController := NewSessionController(sessionService, generator)

	// 公开路由
	public := r.Group("/api")
	{
		// 认证相关
		public.POST("/register", authController.Register)
		public.POST("/login", authController.Login)
		public.GET("/health", monitorController.GetHealth)
	}

	// 需要认证的路由
	api := r.Group("/api")
	{
		// 用户相关
		api.GET("/profile", authController.GetProfile)
		api.PUT("/profile", authController.UpdateProfile)
		api.PUT("/password", authController.ChangePassword)
		api.GET("/users", userController.GetAllUsers)
		api.GET("/users/search", userController.SearchUsers)
		api.GET("/users/:id", userController.GetUserByID)
		api.POST("/heartbeat", userController.Heartbeat)

		// 小组相关
		api.GET("/groups", groupController.GetGroups)
		api.POST("/groups", groupController.CreateGroup)
		api.GET("/groups/:id", groupController.GetGroupByID)
		api.PUT("/groups/:id", groupController.UpdateGroup)
		api.DELETE("/groups/:id", groupController.DisbandGroup)
		api.PUT("/groups/:id/settings", groupController.UpdateSettings)
		api.POST("/groups/:id/join", groupController.JoinGroup)
		api.POST("/groups/:id/leave", groupController.LeaveGroup)
		api.GET("/groups/:id/members", groupController.GetGroupMembers)
		api.POST("/groups/:id/invitations", groupController.InviteMember)
		api.PUT("/groups/:id/members/:userId/role", groupController.ChangeMemberRole)
		api.DELETE("/groups/:id/members/:userId", groupController.RemoveMember)
		api.GET("/invitations", groupController.GetMyInvitations)
		api.PUT("/invitations/:id", groupController.RespondInvitation)

		// 测验会话相关
		api.POST("/groups/:id/sessions", sessionController.CreateSession)
		api.GET("/groups/:id/sessions", sessionController.ListSessions)
		api.DELETE("/groups/:id/sessions", sessionController.BulkDeleteSessions)
		api.GET("/sessions/:id", sessionController.GetSession)
		api.POST("/sessions/:id/approve", sessionController.ApproveSession)
		api.POST("/sessions/:id/reject", sessionController.RejectSession)
		api.POST("/sessions/:id/cancel", sessionController.CancelSession)
		api.POST("/sessions/:id/join", sessionController.JoinSession)
		api.POST("/sessions/:id/submit", sessionController.SubmitAnswers)
		api.GET("/sessions/:id/leaderboard", sessionController.GetLeaderboard)
		api.GET("/sessions/:id/participants", sessionController.GetParticipants)
		api.DELETE("/sessions/:id", sessionController.DeleteSession)
		api.POST("/sessions/:id/generate", sessionController.GenerateQuestions)
		api.POST("/sessions/sweep", sessionController.SweepExpired)

		// 监控相关
		api.GET("/monitor/system", monitorController.GetSystemStatus)
	}
}
