package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"studyloop/models"
)

// GroupService 学习小组服务
type GroupService struct {
	DB     *gorm.DB
	notify *NotifyService
}

// NewGroupService 创建学习小组服务实例
func NewGroupService(db *gorm.DB, notify *NotifyService) *GroupService {
	return &GroupService{DB: db, notify: notify}
}

// memberRole 查询用户在小组中的角色，非成员返回guest
func (s *GroupService) memberRole(groupID, userID uint) (string, error) {
	var member models.GroupMember
	err := s.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleGuest, nil
		}
		return "", err
	}
	return member.Role, nil
}

// settings 读取小组设置，缺行时按默认值兜底
func (s *GroupService) settings(groupID uint) (*models.GroupSettings, error) {
	var settings models.GroupSettings
	err := s.DB.Where("group_id = ?", groupID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultGroupSettings(groupID), nil
		}
		return nil, err
	}
	return &settings, nil
}

// capabilities 计算用户在小组内的能力集合
func (s *GroupService) capabilities(groupID, userID uint) (CapabilitySet, error) {
	role, err := s.memberRole(groupID, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings(groupID)
	if err != nil {
		return nil, err
	}
	return CapabilitiesFor(role, settings, false), nil
}

// CreateGroup 创建新小组
// 创建者自动成为owner成员，同时写入默认设置行
func (s *GroupService) CreateGroup(creatorID uint, req *models.GroupRequest) (*models.Group, error) {
	// 检查小组名是否已存在
	var existingGroup models.Group
	if err := s.DB.Where("name = ?", req.Name).First(&existingGroup).Error; err == nil {
		return nil, errors.New("小组名已存在")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	maxMembers := req.MaxMembers
	if maxMembers <= 0 {
		maxMembers = 50
	}

	group := &models.Group{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
		IsPrivate:   req.IsPrivate,
		MaxMembers:  maxMembers,
		CreatorID:   creatorID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// 开启事务
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		// 创建者自动加入并成为群主
		member := models.GroupMember{
			GroupID:  group.ID,
			UserID:   creatorID,
			Role:     models.RoleOwner,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		// 写入默认设置行
		return tx.Create(models.DefaultGroupSettings(group.ID)).Error
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetGroupByID 根据ID获取小组
func (s *GroupService) GetGroupByID(id uint) (*models.Group, error) {
	var group models.Group
	if err := s.DB.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("小组不存在")
		}
		return nil, err
	}
	return &group, nil
}

// GetGroupResponse 获取小组响应模型
func (s *GroupService) GetGroupResponse(id, userID uint, includeMembers bool) (*models.GroupResponse, error) {
	group, err := s.GetGroupByID(id)
	if err != nil {
		return nil, err
	}

	role, err := s.memberRole(id, userID)
	if err != nil {
		return nil, err
	}
	// 私有小组对非成员不可见
	if group.IsPrivate && role == models.RoleGuest {
		return nil, ErrNotFound("小组不存在")
	}

	var memberCount int64
	if err := s.DB.Model(&models.GroupMember{}).Where("group_id = ?", id).Count(&memberCount).Error; err != nil {
		return nil, err
	}

	response := &models.GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Avatar:      group.Avatar,
		IsPrivate:   group.IsPrivate,
		MaxMembers:  group.MaxMembers,
		CreatorID:   group.CreatorID,
		CreatedAt:   group.CreatedAt,
		MemberCount: int(memberCount),
		MyRole:      role,
	}

	// 成员才能看到设置
	if role != models.RoleGuest {
		settings, err := s.settings(id)
		if err != nil {
			return nil, err
		}
		response.Settings = settings
	}

	if includeMembers {
		members, err := s.GetGroupMembers(id)
		if err != nil {
			return nil, err
		}
		response.Members = members
	}

	return response, nil
}

// GetUserGroups 获取用户加入的所有小组
func (s *GroupService) GetUserGroups(userID uint) ([]models.GroupResponse, error) {
	var memberships []models.GroupMember
	if err := s.DB.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}

	roleByGroup := make(map[uint]string, len(memberships))
	groupIDs := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		roleByGroup[m.GroupID] = m.Role
		groupIDs = append(groupIDs, m.GroupID)
	}

	var groups []models.Group
	if err := s.DB.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return nil, err
	}

	responses := make([]models.GroupResponse, len(groups))
	for i, group := range groups {
		var count int64
		if err := s.DB.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		responses[i] = models.GroupResponse{
			ID:          group.ID,
			Name:        group.Name,
			Description: group.Description,
			Avatar:      group.Avatar,
			IsPrivate:   group.IsPrivate,
			MaxMembers:  group.MaxMembers,
			CreatorID:   group.CreatorID,
			CreatedAt:   group.CreatedAt,
			MemberCount: int(count),
			MyRole:      roleByGroup[group.ID],
		}
	}

	return responses, nil
}

// UpdateGroup 更新小组信息（需要manage-group能力）
func (s *GroupService) UpdateGroup(id, userID uint, req *models.GroupRequest) (*models.Group, error) {
	group, err := s.GetGroupByID(id)
	if err != nil {
		return nil, err
	}

	caps, err := s.capabilities(id, userID)
	if err != nil {
		return nil, err
	}
	if !caps.Can(CapManageGroup) {
		return nil, ErrAccessDenied("没有权限更新小组")
	}

	// 检查小组名是否已被其他小组使用
	if req.Name != group.Name {
		var existingGroup models.Group
		if err := s.DB.Where("name = ? AND id != ?", req.Name, id).First(&existingGroup).Error; err == nil {
			return nil, errors.New("小组名已存在")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		group.Name = req.Name
	}

	group.Description = req.Description
	group.IsPrivate = req.IsPrivate
	if req.Avatar != "" {
		group.Avatar = req.Avatar
	}
	if req.MaxMembers > 0 {
		group.MaxMembers = req.MaxMembers
	}
	group.UpdatedAt = time.Now()

	if err := s.DB.Save(group).Error; err != nil {
		return nil, err
	}

	return group, nil
}

// UpdateSettings 更新小组设置（仅owner，settings能力）
// 只更新请求中显式提交的字段
func (s *GroupService) UpdateSettings(groupID, userID uint, req *models.GroupSettingsRequest) (*models.GroupSettings, error) {
	if _, err := s.GetGroupByID(groupID); err != nil {
		return nil, err
	}

	caps, err := s.capabilities(groupID, userID)
	if err != nil {
		return nil, err
	}
	if !caps.Can(CapSettings) {
		return nil, ErrAccessDenied("没有权限修改小组设置")
	}

	settings, err := s.settings(groupID)
	if err != nil {
		return nil, err
	}

	if req.AllowMemberInvitations != nil {
		settings.AllowMemberInvitations = *req.AllowMemberInvitations
	}
	if req.OnlyAdminsCanCreateSessions != nil {
		settings.OnlyAdminsCanCreateSessions = *req.OnlyAdminsCanCreateSessions
	}
	if req.OnlyAdminsCanStartQuiz != nil {
		settings.OnlyAdminsCanStartQuiz = *req.OnlyAdminsCanStartQuiz
	}
	if req.RequireSessionApproval != nil {
		settings.RequireSessionApproval = *req.RequireSessionApproval
	}
	if req.AdminCanManageMembers != nil {
		settings.AdminCanManageMembers = *req.AdminCanManageMembers
	}
	if req.AdminCanDeleteSessions != nil {
		settings.AdminCanDeleteSessions = *req.AdminCanDeleteSessions
	}
	if req.ShufflePerMember != nil {
		settings.ShufflePerMember = *req.ShufflePerMember
	}
	if req.MaxAdminCount != nil && *req.MaxAdminCount > 0 {
		settings.MaxAdminCount = *req.MaxAdminCount
	}
	if req.MaxConcurrentSessions != nil && *req.MaxConcurrentSessions > 0 {
		settings.MaxConcurrentSessions = *req.MaxConcurrentSessions
	}
	settings.UpdatedAt = time.Now()

	if err := s.DB.Save(settings).Error; err != nil {
		return nil, err
	}

	return settings, nil
}

// InviteMember 邀请用户加入小组
// 需要invite能力（成员受allowMemberInvitations开关控制），受人数上限约束
func (s *GroupService) InviteMember(groupID, inviterID, inviteeID uint) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}

	caps, err := s.capabilities(groupID, inviterID)
	if err != nil {
		return err
	}
	if !caps.Can(CapInvite) {
		return ErrAccessDenied("没有权限邀请成员")
	}

	// 被邀请人必须存在
	var invitee models.User
	if err := s.DB.First(&invitee, inviteeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("被邀请的用户不存在")
		}
		return err
	}

	// 已是成员不重复邀请
	role, err := s.memberRole(groupID, inviteeID)
	if err != nil {
		return err
	}
	if role != models.RoleGuest {
		return errors.New("该用户已经是小组成员")
	}

	var memberCount int64
	if err := s.DB.Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&memberCount).Error; err != nil {
		return err
	}
	if int(memberCount) >= group.MaxMembers {
		return ErrLimitReached(fmt.Sprintf("小组人数已达上限（%d）", group.MaxMembers), group.MaxMembers)
	}

	// 存在待处理邀请时不重复创建
	var pending int64
	if err := s.DB.Model(&models.GroupInvitation{}).
		Where("group_id = ? AND invitee_id = ? AND status = ?", groupID, inviteeID, models.InviteStatusPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return errors.New("已有待处理的邀请")
	}

	invitation := models.GroupInvitation{
		GroupID:   groupID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    models.InviteStatusPending,
		CreatedAt: time.Now(),
	}
	return s.DB.Create(&invitation).Error
}

// RespondInvitation 被邀请人接受或拒绝邀请
func (s *GroupService) RespondInvitation(invitationID, userID uint, accept bool) error {
	var invitation models.GroupInvitation
	if err := s.DB.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("邀请不存在")
		}
		return err
	}

	if invitation.InviteeID != userID {
		return ErrNotFound("邀请不存在")
	}
	if invitation.Status != models.InviteStatusPending {
		return ErrInvalidState("邀请已处理", invitation.Status)
	}

	if !accept {
		return s.DB.Model(&invitation).Update("status", models.InviteStatusDeclined).Error
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&invitation).Update("status", models.InviteStatusAccepted).Error; err != nil {
			return err
		}
		member := models.GroupMember{
			GroupID:  invitation.GroupID,
			UserID:   userID,
			Role:     models.RoleMember,
			JoinedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
}

// JoinGroup 加入公开小组
func (s *GroupService) JoinGroup(groupID, userID uint) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}
	if group.IsPrivate {
		return ErrAccessDenied("私有小组只能通过邀请加入")
	}

	// 检查用户是否已在小组中
	role, err := s.memberRole(groupID, userID)
	if err != nil {
		return err
	}
	if role != models.RoleGuest {
		return errors.New("已经是小组成员")
	}

	var memberCount int64
	if err := s.DB.Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&memberCount).Error; err != nil {
		return err
	}
	if int(memberCount) >= group.MaxMembers {
		return ErrLimitReached(fmt.Sprintf("小组人数已达上限（%d）", group.MaxMembers), group.MaxMembers)
	}

	member := models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     models.RoleMember,
		JoinedAt: time.Now(),
	}
	return s.DB.Create(&member).Error
}

// LeaveGroup 离开小组
func (s *GroupService) LeaveGroup(groupID, userID uint) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}

	// 群主不能离开小组
	if group.CreatorID == userID {
		return errors.New("群主不能离开小组")
	}

	role, err := s.memberRole(groupID, userID)
	if err != nil {
		return err
	}
	if role == models.RoleGuest {
		return errors.New("不是小组成员")
	}

	return s.DB.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{}).Error
}

// RemoveMember 将成员移出小组（需要manage-members能力）
func (s *GroupService) RemoveMember(groupID, userID, targetUserID uint) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}

	caps, err := s.capabilities(groupID, userID)
	if err != nil {
		return err
	}
	if !caps.Can(CapManageMembers) {
		return ErrAccessDenied("没有权限移除成员")
	}

	if group.CreatorID == targetUserID {
		return ErrAccessDenied("不能移除群主")
	}

	role, err := s.memberRole(groupID, targetUserID)
	if err != nil {
		return err
	}
	if role == models.RoleGuest {
		return ErrNotFound("目标用户不是小组成员")
	}

	return s.DB.Where("group_id = ? AND user_id = ?", groupID, targetUserID).Delete(&models.GroupMember{}).Error
}

// ChangeMemberRole 提升/降级成员角色
// 需要manage-members能力；提升为admin时受maxAdminCount上限约束
func (s *GroupService) ChangeMemberRole(groupID, userID, targetUserID uint, newRole string) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}

	if newRole != models.RoleAdmin && newRole != models.RoleMember {
		return ErrInvalidInput("角色只能是admin或member")
	}

	caps, err := s.capabilities(groupID, userID)
	if err != nil {
		return err
	}
	if !caps.Can(CapManageMembers) {
		return ErrAccessDenied("没有权限调整成员角色")
	}

	// 群主角色不可变更
	if group.CreatorID == targetUserID {
		return ErrAccessDenied("不能变更群主的角色")
	}

	targetRole, err := s.memberRole(groupID, targetUserID)
	if err != nil {
		return err
	}
	if targetRole == models.RoleGuest {
		return ErrNotFound("目标用户不是小组成员")
	}
	if targetRole == newRole {
		return nil
	}

	settings, err := s.settings(groupID)
	if err != nil {
		return err
	}

	// 上限检查和角色写入放同一个事务，避免并发提升挤过上限
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if newRole == models.RoleAdmin {
			var adminCount int64
			if err := tx.Model(&models.GroupMember{}).
				Where("group_id = ? AND role = ?", groupID, models.RoleAdmin).
				Count(&adminCount).Error; err != nil {
				return err
			}
			if int(adminCount) >= settings.MaxAdminCount {
				return ErrLimitReached(
					fmt.Sprintf("管理员数量已达上限（%d）", settings.MaxAdminCount),
					settings.MaxAdminCount)
			}
		}
		return tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, targetUserID).
			Update("role", newRole).Error
	})
	if err != nil {
		return err
	}

	// 角色已落库，通知失败不回滚
	if s.notify != nil {
		if err := s.notify.PublishMemberEvent("member.role_changed", groupID, targetUserID, newRole); err != nil {
			log.Printf("发布成员角色变更事件失败: %v", err)
		}
	}

	return nil
}

// GetGroupMembers 获取小组成员（带角色）
func (s *GroupService) GetGroupMembers(groupID uint) ([]models.MemberInfo, error) {
	var memberships []models.GroupMember
	if err := s.DB.Where("group_id = ?", groupID).Order("joined_at").Find(&memberships).Error; err != nil {
		return nil, err
	}

	members := make([]models.MemberInfo, 0, len(memberships))
	for _, m := range memberships {
		var user models.User
		if err := s.DB.First(&user, m.UserID).Error; err != nil {
			continue
		}
		members = append(members, models.MemberInfo{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return members, nil
}

// DisbandGroup 解散小组（仅群主）
func (s *GroupService) DisbandGroup(groupID, userID uint) error {
	group, err := s.GetGroupByID(groupID)
	if err != nil {
		return err
	}

	// 只有群主可以解散小组
	if group.CreatorID != userID {
		return ErrAccessDenied("没有权限解散小组")
	}

	// 开启事务，级联删除会话和参与记录
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var sessionIDs []uint
		if err := tx.Model(&models.QuizSession{}).
			Where("group_id = ?", groupID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.Participant{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", sessionIDs).Delete(&models.QuizSession{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupSettings{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, groupID).Error
	})
}

// GetMyInvitations 获取用户待处理的邀请
func (s *GroupService) GetMyInvitations(userID uint) ([]models.GroupInvitation, error) {
	var invitations []models.GroupInvitation
	if err := s.DB.Where("invitee_id = ? AND status = ?", userID, models.InviteStatusPending).
		Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}
