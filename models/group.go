package models

import (
	"time"
)

// 成员角色
const (
	RoleOwner  = "owner"  // 群主
	RoleAdmin  = "admin"  // 管理员
	RoleMember = "member" // 普通成员
	RoleGuest  = "guest"  // 非成员（隐式角色，不落库）
)

// Group 学习小组模型
type Group struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	Avatar      string    `json:"avatar"`
	IsPrivate   bool      `json:"is_private" gorm:"default:false"`
	MaxMembers  int       `json:"max_members" gorm:"default:50"`
	CreatorID   uint      `json:"creator_id" gorm:"not null"`
	Creator     User      `json:"creator" gorm:"foreignKey:CreatorID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Settings *GroupSettings `json:"settings,omitempty" gorm:"foreignKey:GroupID"`
}

// GroupSettings 小组能力开关设置
// 每个小组一行，缺省值即规格默认值
type GroupSettings struct {
	GroupID                     uint      `json:"group_id" gorm:"primaryKey"`
	AllowMemberInvitations      bool      `json:"allow_member_invitations" gorm:"default:false"`
	OnlyAdminsCanCreateSessions bool      `json:"only_admins_can_create_sessions" gorm:"default:false"`
	OnlyAdminsCanStartQuiz      bool      `json:"only_admins_can_start_quiz" gorm:"default:false"`
	RequireSessionApproval      bool      `json:"require_session_approval" gorm:"default:false"`
	AdminCanManageMembers       bool      `json:"admin_can_manage_members" gorm:"default:true"`
	AdminCanDeleteSessions      bool      `json:"admin_can_delete_sessions" gorm:"default:true"`
	ShufflePerMember            bool      `json:"shuffle_per_member" gorm:"default:false"`
	MaxAdminCount               int       `json:"max_admin_count" gorm:"default:3"`
	MaxConcurrentSessions       int       `json:"max_concurrent_sessions" gorm:"default:5"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// DefaultGroupSettings 返回带默认值的设置记录
// 设置行缺失时权限判定按此兜底
func DefaultGroupSettings(groupID uint) *GroupSettings {
	return &GroupSettings{
		GroupID:                groupID,
		AdminCanManageMembers:  true,
		AdminCanDeleteSessions: true,
		MaxAdminCount:          3,
		MaxConcurrentSessions:  5,
	}
}

// GroupMember 小组成员关联表
type GroupMember struct {
	GroupID  uint      `json:"group_id" gorm:"primaryKey"`
	UserID   uint      `json:"user_id" gorm:"primaryKey"`
	Role     string    `json:"role" gorm:"size:20;not null;default:'member'"`
	JoinedAt time.Time `json:"joined_at"`
}

// GroupInvitation 小组邀请记录
type GroupInvitation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	GroupID   uint      `json:"group_id" gorm:"not null;index"`
	InviterID uint      `json:"inviter_id" gorm:"not null"`
	InviteeID uint      `json:"invitee_id" gorm:"not null;index"`
	Status    string    `json:"status" gorm:"size:20;not null;default:'pending'"` // pending/accepted/declined
	CreatedAt time.Time `json:"created_at"`
}

// 邀请状态
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// GroupResponse 小组响应模型
type GroupResponse struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Avatar      string         `json:"avatar"`
	IsPrivate   bool           `json:"is_private"`
	MaxMembers  int            `json:"max_members"`
	CreatorID   uint           `json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	MemberCount int            `json:"member_count"`
	MyRole      string         `json:"my_role,omitempty"`
	Settings    *GroupSettings `json:"settings,omitempty"`
	Members     []MemberInfo   `json:"members,omitempty"`
}

// MemberInfo 带角色的成员信息
type MemberInfo struct {
	ID       uint      `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Online   bool      `json:"online"`
}

// GroupRequest 创建/更新小组请求模型
type GroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
	IsPrivate   bool   `json:"is_private"`
	MaxMembers  int    `json:"max_members"`
}

// GroupSettingsRequest 更新小组设置请求模型
// 全部用指针以区分“未提交”和“显式关闭”
type GroupSettingsRequest struct {
	AllowMemberInvitations      *bool `json:"allow_member_invitations"`
	OnlyAdminsCanCreateSessions *bool `json:"only_admins_can_create_sessions"`
	OnlyAdminsCanStartQuiz      *bool `json:"only_admins_can_start_quiz"`
	RequireSessionApproval      *bool `json:"require_session_approval"`
	AdminCanManageMembers       *bool `json:"admin_can_manage_members"`
	AdminCanDeleteSessions      *bool `json:"admin_can_delete_sessions"`
	ShufflePerMember            *bool `json:"shuffle_per_member"`
	MaxAdminCount               *int  `json:"max_admin_count"`
	MaxConcurrentSessions       *int  `json:"max_concurrent_sessions"`
}
