package services

import (
	"studyloop/models"
)

// Capability 小组内的操作能力
type Capability string

const (
	CapManageGroup       Capability = "manage-group"       // 修改小组资料
	CapInvite            Capability = "invite"             // 邀请成员
	CapSettings          Capability = "settings"           // 修改小组设置
	CapManageMembers     Capability = "manage-members"     // 踢人/改角色
	CapCreateSession     Capability = "create-session"     // 创建测验会话
	CapManageSession     Capability = "manage-session"     // 审批/驳回会话
	CapDeleteSession     Capability = "delete-session"     // 删除会话
	CapManageQuiz        Capability = "manage-quiz"        // 编辑题目
	CapStartQuiz         Capability = "start-quiz"         // 开始作答
	CapGenerateQuestions Capability = "generate-questions" // AI出题
	CapSelectPreset      Capability = "select-preset"      // 选择出题预设
)

// CapabilitySet 能力集合
type CapabilitySet map[Capability]bool

// Can 判断是否具备某能力
func (s CapabilitySet) Can(capability Capability) bool {
	return s[capability]
}

// CapabilitiesFor 计算用户在小组内的能力集合
// 纯函数：基础角色表 -> 会话创建者补充 -> 设置项覆盖，未知角色或缺失数据一律判空（拒绝优先）
// settings为nil时按默认设置计算，isSessionCreator表示目标会话由该用户创建
func CapabilitiesFor(role string, settings *models.GroupSettings, isSessionCreator bool) CapabilitySet {
	if settings == nil {
		settings = models.DefaultGroupSettings(0)
	}

	caps := make(CapabilitySet)

	// 基础角色表（固定，不可配置）
	switch role {
	case models.RoleOwner:
		caps[CapManageGroup] = true
		caps[CapInvite] = true
		caps[CapSettings] = true
		caps[CapManageMembers] = true
		caps[CapCreateSession] = true
		caps[CapManageSession] = true
		caps[CapDeleteSession] = true
		caps[CapManageQuiz] = true
		caps[CapStartQuiz] = true
		caps[CapGenerateQuestions] = true
		caps[CapSelectPreset] = true
	case models.RoleAdmin:
		caps[CapManageGroup] = true
		caps[CapInvite] = true
		caps[CapManageMembers] = true
		caps[CapCreateSession] = true
		caps[CapManageSession] = true
		caps[CapDeleteSession] = true
		caps[CapManageQuiz] = true
		caps[CapStartQuiz] = true
		caps[CapGenerateQuestions] = true
		caps[CapSelectPreset] = true
	case models.RoleMember:
		caps[CapStartQuiz] = true
		caps[CapSelectPreset] = true
		caps[CapCreateSession] = true
	default:
		// 未知角色/非成员：空集合
		return caps
	}

	// 设置项覆盖
	if role == models.RoleAdmin {
		if !settings.AdminCanManageMembers {
			delete(caps, CapManageMembers)
		}
		if !settings.AdminCanDeleteSessions {
			delete(caps, CapDeleteSession)
		}
	}
	if role == models.RoleMember {
		if settings.AllowMemberInvitations {
			caps[CapInvite] = true
		}
		if settings.OnlyAdminsCanCreateSessions {
			delete(caps, CapCreateSession)
		}
		if settings.OnlyAdminsCanStartQuiz {
			delete(caps, CapStartQuiz)
		}
	}

	// 会话创建者补充：非管理角色也能管理自己创建的会话
	if isSessionCreator {
		caps[CapManageSession] = true
		caps[CapManageQuiz] = true
		caps[CapStartQuiz] = true
		caps[CapGenerateQuestions] = true
		caps[CapSelectPreset] = true
	}

	return caps
}
