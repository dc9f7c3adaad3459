package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyloop/config"
	"studyloop/models"
)

// SessionService 测验会话服务
// 负责会话状态机：创建、审批、加入、提交、过期、删除
type SessionService struct {
	db     *gorm.DB
	rdb    *redis.Client
	notify *NotifyService
}

// NewSessionService 创建测验会话服务
func NewSessionService(db *gorm.DB, rdb *redis.Client, notify *NotifyService) *SessionService {
	return &SessionService{
		db:     db,
		rdb:    rdb,
		notify: notify,
	}
}

// initialSessionStatus 计算新会话的初始状态和类型
// 纯函数：需要审批先进pending，否则按预约时间进scheduled或active
func initialSessionStatus(requireApproval bool, scheduledAt *time.Time, now time.Time) (string, string) {
	kind := models.SessionKindInstant
	if scheduledAt != nil && scheduledAt.After(now) {
		kind = models.SessionKindScheduled
	}
	if requireApproval {
		return models.SessionStatusPending, kind
	}
	if kind == models.SessionKindScheduled {
		return models.SessionStatusScheduled, kind
	}
	return models.SessionStatusActive, kind
}

// liveTarget 审批通过后进入的状态
func liveTarget(scheduledAt *time.Time, now time.Time) string {
	if scheduledAt != nil && scheduledAt.After(now) {
		return models.SessionStatusScheduled
	}
	return models.SessionStatusActive
}

// validateQuestions 校验题目集
func validateQuestions(questions []models.Question) error {
	for i, question := range questions {
		if question.Text == "" {
			return ErrInvalidInput(fmt.Sprintf("第%d题缺少题干", i+1))
		}
		if len(question.Options) < 2 {
			return ErrInvalidInput(fmt.Sprintf("第%d题选项不足", i+1))
		}
		found := false
		for _, option := range question.Options {
			if option == question.Answer {
				found = true
				break
			}
		}
		if !found {
			return ErrInvalidInput(fmt.Sprintf("第%d题的答案不在选项中", i+1))
		}
	}
	return nil
}

// newSessionCode 生成8位会话邀请码
func newSessionCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// resolveAccess 解析用户在小组内的角色、设置和能力集合
// 小组不存在返回NOT_FOUND，非成员角色为guest（能力为空）
func (s *SessionService) resolveAccess(groupID, userID uint, session *models.QuizSession) (string, *models.GroupSettings, CapabilitySet, error) {
	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, nil, ErrNotFound("小组不存在")
		}
		return "", nil, nil, err
	}

	settings, err := s.groupSettings(groupID)
	if err != nil {
		return "", nil, nil, err
	}

	role := models.RoleGuest
	var member models.GroupMember
	err = s.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err == nil {
		role = member.Role
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil, err
	}

	isCreator := session != nil && session.CreatorID == userID
	return role, settings, CapabilitiesFor(role, settings, isCreator), nil
}

// groupSettings 读取小组设置，缺行时按默认值兜底
func (s *SessionService) groupSettings(groupID uint) (*models.GroupSettings, error) {
	var settings models.GroupSettings
	err := s.db.Where("group_id = ?", groupID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultGroupSettings(groupID), nil
		}
		return nil, err
	}
	return &settings, nil
}

// getSession 按ID读取会话
func (s *SessionService) getSession(sessionID uint) (*models.QuizSession, error) {
	var session models.QuizSession
	if err := s.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("会话不存在")
		}
		return nil, err
	}
	return &session, nil
}

// requireMember 要求请求者是小组成员，否则按NOT_FOUND返回（避免探测资源存在性）
func requireMember(role string) error {
	if role == models.RoleGuest {
		return ErrNotFound("会话不存在")
	}
	return nil
}

// CreateSession 创建测验会话
// 受create-session能力和maxConcurrentSessions上限约束
func (s *SessionService) CreateSession(groupID, userID uint, req *models.SessionRequest) (*models.QuizSession, error) {
	role, settings, caps, err := s.resolveAccess(groupID, userID, nil)
	if err != nil {
		return nil, err
	}
	// 非成员按不存在处理，避免探测小组存在性
	if role == models.RoleGuest {
		return nil, ErrNotFound("小组不存在")
	}
	if !caps.Can(CapCreateSession) {
		return nil, ErrAccessDenied("没有权限创建会话")
	}

	if err := validateQuestions(req.Questions); err != nil {
		return nil, err
	}

	now := time.Now()
	status, kind := initialSessionStatus(settings.RequireSessionApproval, req.ScheduledAt, now)

	session := &models.QuizSession{
		Code:        newSessionCode(),
		GroupID:     groupID,
		CreatorID:   userID,
		Title:       req.Title,
		Kind:        kind,
		Status:      status,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := session.SetQuestions(req.Questions); err != nil {
		return nil, ErrInvalidInput("题目数据序列化失败")
	}
	if err := session.SetLoop(req.Loop); err != nil {
		return nil, ErrInvalidInput("视频片段数据序列化失败")
	}

	// 上限检查和创建放在同一个事务里，避免并发创建挤过上限
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var liveCount int64
		if err := tx.Model(&models.QuizSession{}).
			Where("group_id = ? AND status IN ?", groupID,
				[]string{models.SessionStatusScheduled, models.SessionStatusActive}).
			Count(&liveCount).Error; err != nil {
			return err
		}
		if int(liveCount) >= settings.MaxConcurrentSessions {
			return ErrLimitReached(
				fmt.Sprintf("小组同时进行的会话已达上限（%d）", settings.MaxConcurrentSessions),
				settings.MaxConcurrentSessions)
		}
		return tx.Create(session).Error
	})
	if err != nil {
		return nil, err
	}

	// 状态已落库，通知失败不回滚
	s.publishEvent("session.created", session)

	return session, nil
}

// ApproveSession 审批通过待审会话（pending -> scheduled|active）
func (s *SessionService) ApproveSession(sessionID, userID uint) (*models.QuizSession, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	role, _, caps, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, err
	}
	if !caps.Can(CapManageSession) {
		return nil, ErrAccessDenied("没有权限审批会话")
	}

	if session.Status != models.SessionStatusPending {
		return nil, ErrInvalidState("只能审批待审批的会话", session.Status)
	}

	target := liveTarget(session.ScheduledAt, time.Now())

	// 带状态条件更新，并发下只允许一次转换生效
	result := s.db.Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionStatusPending).
		Updates(map[string]interface{}{"status": target, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		fresh, err := s.getSession(sessionID)
		if err != nil {
			return nil, err
		}
		return nil, ErrInvalidState("只能审批待审批的会话", fresh.Status)
	}

	session.Status = target
	s.publishEvent("session.approved", session)

	return session, nil
}

// RejectSession 驳回待审会话（pending -> cancelled），记录驳回原因
func (s *SessionService) RejectSession(sessionID, userID uint, reason string) error {
	session, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	role, _, caps, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return err
	}
	if err := requireMember(role); err != nil {
		return err
	}
	if !caps.Can(CapManageSession) {
		return ErrAccessDenied("没有权限驳回会话")
	}

	if session.Status != models.SessionStatusPending {
		return ErrInvalidState("只能驳回待审批的会话", session.Status)
	}

	result := s.db.Model(&models.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionStatusPending).
		Updates(map[string]interface{}{
			"status":        models.SessionStatusCancelled,
			"reject_reason": reason,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		fresh, err := s.getSession(sessionID)
		if err != nil {
			return err
		}
		return ErrInvalidState("只能驳回待审批的会话", fresh.Status)
	}

	session.Status = models.SessionStatusCancelled
	s.publishEvent("session.rejected", session)

	return nil
}

// CancelSession 取消未结束的会话（scheduled|active -> cancelled）
// 需要manage-session能力或者是会话创建者
func (s *SessionService) CancelSession(sessionID, userID uint) error {
	session, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	role, _, caps, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return err
	}
	if err := requireMember(role); err != nil {
		return err
	}
	if !caps.Can(CapManageSession) {
		return ErrAccessDenied("没有权限取消会话")
	}

	if session.Status != models.SessionStatusScheduled && session.Status != models.SessionStatusActive {
		return ErrInvalidState("只能取消已排期或进行中的会话", session.Status)
	}

	result := s.db.Model(&models.QuizSession{}).
		Where("id = ? AND status IN ?", sessionID,
			[]string{models.SessionStatusScheduled, models.SessionStatusActive}).
		Updates(map[string]interface{}{"status": models.SessionStatusCancelled, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		fresh, err := s.getSession(sessionID)
		if err != nil {
			return err
		}
		return ErrInvalidState("只能取消已排期或进行中的会话", fresh.Status)
	}

	session.Status = models.SessionStatusCancelled
	s.publishEvent("session.cancelled", session)

	return nil
}

// JoinSession 加入会话
// 按(session, user)幂等：重复加入只刷新在线状态，不会产生重复记录
func (s *SessionService) JoinSession(sessionID, userID uint) error {
	session, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	role, _, _, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return err
	}
	if err := requireMember(role); err != nil {
		return err
	}

	// 加入时重新检查过期，不依赖后台扫描是否已翻状态
	session, err = s.expireIfNeeded(session)
	if err != nil {
		return err
	}
	if session.Status != models.SessionStatusScheduled && session.Status != models.SessionStatusActive {
		return ErrInvalidState("会话不在可加入状态", session.Status)
	}

	participant := models.Participant{
		SessionID: sessionID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&participant).Error; err != nil {
		return err
	}

	s.markOnline(sessionID, userID)
	return nil
}

// SubmitAnswers 提交作答并判分
// (session, user)键上覆盖写入，重复提交收敛为一行（后写覆盖）
func (s *SessionService) SubmitAnswers(sessionID, userID uint, responses []string) (*models.ScoreResult, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	role, _, _, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, err
	}

	if session.Status != models.SessionStatusScheduled && session.Status != models.SessionStatusActive {
		return nil, ErrInvalidState("会话不在可提交状态", session.Status)
	}
	// 提交时重新检查过期：越过24小时边界后即使状态还没被扫描翻转也要拒绝
	if IsSessionExpired(session, time.Now()) {
		if _, err := s.expireIfNeeded(session); err != nil {
			return nil, err
		}
		return nil, ErrInvalidState("会话已过期，不能提交", models.SessionStatusCompleted)
	}

	questions, err := s.loadQuestions(session)
	if err != nil {
		return nil, err
	}

	score, err := ScoreResponses(questions, responses)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	participant := models.Participant{
		SessionID:    sessionID,
		UserID:       userID,
		JoinedAt:     now,
		CompletedAt:  &now,
		Score:        &score.Score,
		CorrectCount: score.CorrectCount,
		TotalCount:   score.TotalCount,
	}
	if err := participant.SetResponses(responses); err != nil {
		return nil, ErrInvalidInput("作答数据序列化失败")
	}

	// 幂等覆盖：重复提交更新成绩字段，保留最初的加入时间
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"completed_at", "score", "correct_count", "total_count", "responses_data"}),
	}).Create(&participant).Error; err != nil {
		return nil, err
	}

	s.markOnline(sessionID, userID)
	s.publishEvent("session.submitted", session)

	return score, nil
}

// expireIfNeeded 惰性过期：已越过有效期的会话就地翻转为completed
func (s *SessionService) expireIfNeeded(session *models.QuizSession) (*models.QuizSession, error) {
	if !IsSessionExpired(session, time.Now()) {
		return session, nil
	}

	result := s.db.Model(&models.QuizSession{}).
		Where("id = ? AND status IN ?", session.ID,
			[]string{models.SessionStatusScheduled, models.SessionStatusActive}).
		Updates(map[string]interface{}{"status": models.SessionStatusCompleted, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, result.Error
	}
	// 条件更新没有命中说明并发方先改了状态，重读库里的真实状态
	if result.RowsAffected == 0 {
		return s.getSession(session.ID)
	}

	session.Status = models.SessionStatusCompleted
	s.publishEvent("session.completed", session)
	return session, nil
}

// SweepExpiredSessions 批量过期扫描，由后台定时器或维护接口触发
// 返回本次翻转的会话数
func (s *SessionService) SweepExpiredSessions() (int, error) {
	var candidates []models.QuizSession
	if err := s.db.Where("status IN ?",
		[]string{models.SessionStatusScheduled, models.SessionStatusActive}).
		Find(&candidates).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range candidates {
		if !IsSessionExpired(&candidates[i], time.Now()) {
			continue
		}
		if _, err := s.expireIfNeeded(&candidates[i]); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// ListGroupSessions 列出小组的会话（读取前先做惰性过期）
func (s *SessionService) ListGroupSessions(groupID, userID uint) ([]models.SessionResponse, error) {
	role, _, _, err := s.resolveAccess(groupID, userID, nil)
	if err != nil {
		return nil, err
	}
	if role == models.RoleGuest {
		return nil, ErrNotFound("小组不存在")
	}

	var sessions []models.QuizSession
	if err := s.db.Where("group_id = ?", groupID).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	responses := make([]models.SessionResponse, 0, len(sessions))
	for i := range sessions {
		session, err := s.expireIfNeeded(&sessions[i])
		if err != nil {
			return nil, err
		}
		resp, err := s.buildSessionResponse(session, 0, false)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, nil
}

// GetSessionDetail 获取会话详情
// 题目选项按种子乱序后返回，开启按成员乱序时不同成员看到不同顺序
func (s *SessionService) GetSessionDetail(sessionID, userID uint) (*models.SessionResponse, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	role, settings, _, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, err
	}

	session, err = s.expireIfNeeded(session)
	if err != nil {
		return nil, err
	}

	return s.buildSessionResponse(session, userID, settings.ShufflePerMember)
}

// buildSessionResponse 组装会话响应，userID非零时附带乱序后的题目
func (s *SessionService) buildSessionResponse(session *models.QuizSession, userID uint, perMember bool) (*models.SessionResponse, error) {
	var participantCount int64
	if err := s.db.Model(&models.Participant{}).
		Where("session_id = ?", session.ID).Count(&participantCount).Error; err != nil {
		return nil, err
	}

	loop, err := session.Loop()
	if err != nil {
		return nil, err
	}

	resp := &models.SessionResponse{
		ID:               session.ID,
		Code:             session.Code,
		GroupID:          session.GroupID,
		CreatorID:        session.CreatorID,
		Title:            session.Title,
		Kind:             session.Kind,
		Status:           session.Status,
		ScheduledAt:      session.ScheduledAt,
		RejectReason:     session.RejectReason,
		CreatedAt:        session.CreatedAt,
		ParticipantCount: int(participantCount),
		Loop:             loop,
	}

	questions, err := s.loadQuestions(session)
	if err != nil {
		return nil, err
	}
	resp.QuestionCount = len(questions)

	// 作答者只拿到题干和乱序后的选项，答案和解析只随判分结果返回
	if userID != 0 {
		shuffled := ShuffleQuestions(questions, session.GroupID, session.ID, userID, perMember)
		resp.Questions = models.QuestionViews(shuffled)
	}
	return resp, nil
}

// DeleteSession 删除单个会话
// 需要delete-session能力或者是会话创建者，进行中的会话不允许删除
func (s *SessionService) DeleteSession(sessionID, userID uint) error {
	session, err := s.getSession(sessionID)
	if err != nil {
		return err
	}

	role, _, caps, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return err
	}
	if err := requireMember(role); err != nil {
		return err
	}
	if !caps.Can(CapDeleteSession) && session.CreatorID != userID {
		return ErrAccessDenied("没有权限删除会话")
	}

	if session.Status == models.SessionStatusActive {
		return ErrInvalidState("进行中的会话不能删除", session.Status)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.QuizSession{}, sessionID).Error; err != nil {
			return err
		}
		s.dropQuestionCache(sessionID)
		return nil
	})
}

// bulkDeleteAllowed 批量删除授权：具备delete-session能力，或批次内全部会话都由调用者创建
func bulkDeleteAllowed(caps CapabilitySet, userID uint, sessions []models.QuizSession) bool {
	if caps.Can(CapDeleteSession) {
		return true
	}
	for _, session := range sessions {
		if session.CreatorID != userID {
			return false
		}
	}
	return true
}

// BulkDeleteSessions 批量删除会话（全有或全无）
// 批次里只要有一个进行中的会话，整批拒绝并报出阻塞的会话ID，一行都不删
func (s *SessionService) BulkDeleteSessions(groupID, userID uint, sessionIDs []uint) error {
	if len(sessionIDs) == 0 {
		return ErrInvalidInput("会话ID列表为空")
	}

	role, _, caps, err := s.resolveAccess(groupID, userID, nil)
	if err != nil {
		return err
	}
	// 非成员按不存在处理，避免探测小组存在性
	if role == models.RoleGuest {
		return ErrNotFound("小组不存在")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var sessions []models.QuizSession
		if err := tx.Where("id IN ? AND group_id = ?", sessionIDs, groupID).Find(&sessions).Error; err != nil {
			return err
		}
		if len(sessions) != len(sessionIDs) {
			return ErrNotFound("部分会话不存在")
		}

		// 授权看整个批次：没有delete-session能力时只能删自己创建的会话
		if !bulkDeleteAllowed(caps, userID, sessions) {
			return ErrAccessDenied("没有权限删除会话")
		}

		var blocking []string
		for _, session := range sessions {
			if session.Status == models.SessionStatusActive {
				blocking = append(blocking, fmt.Sprintf("%d", session.ID))
			}
		}
		if len(blocking) > 0 {
			return ErrInvalidState(
				fmt.Sprintf("批次中包含进行中的会话（%s），整批已拒绝", strings.Join(blocking, ", ")),
				models.SessionStatusActive)
		}

		if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", sessionIDs).Delete(&models.QuizSession{}).Error; err != nil {
			return err
		}
		for _, id := range sessionIDs {
			s.dropQuestionCache(id)
		}
		return nil
	})
}

// GetLeaderboard 获取会话排行榜和聚合统计
func (s *SessionService) GetLeaderboard(sessionID, userID uint) ([]models.LeaderboardEntry, *models.SessionStats, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	role, _, _, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, nil, err
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ?", sessionID).Find(&participants).Error; err != nil {
		return nil, nil, err
	}

	stats := AggregateParticipants(participants)

	// 有成绩的在前按分数降序，其余按加入时间
	sort.SliceStable(participants, func(i, j int) bool {
		pi, pj := participants[i], participants[j]
		if pi.Score != nil && pj.Score != nil {
			return *pi.Score > *pj.Score
		}
		if pi.Score != nil {
			return true
		}
		if pj.Score != nil {
			return false
		}
		return pi.JoinedAt.Before(pj.JoinedAt)
	})

	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		var user models.User
		if err := s.db.First(&user, p.UserID).Error; err != nil {
			continue
		}
		entry := models.LeaderboardEntry{
			UserID:       p.UserID,
			Username:     user.Username,
			Avatar:       user.Avatar,
			CorrectCount: p.CorrectCount,
			TotalCount:   p.TotalCount,
			CompletedAt:  p.CompletedAt,
			Rank:         i + 1,
		}
		if p.Score != nil {
			entry.Score = *p.Score
		}
		entries = append(entries, entry)
	}

	return entries, &stats, nil
}

// GetSessionParticipants 获取会话参与者及在线状态（客户端轮询）
func (s *SessionService) GetSessionParticipants(sessionID, userID uint) ([]models.MemberInfo, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	role, _, _, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, err
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ?", sessionID).Order("joined_at").Find(&participants).Error; err != nil {
		return nil, err
	}

	online := s.onlineSet(sessionID)

	members := make([]models.MemberInfo, 0, len(participants))
	for _, p := range participants {
		var user models.User
		if err := s.db.First(&user, p.UserID).Error; err != nil {
			continue
		}
		members = append(members, models.MemberInfo{
			ID:       user.ID,
			Username: user.Username,
			Avatar:   user.Avatar,
			JoinedAt: p.JoinedAt,
			Online:   online[p.UserID],
		})
	}
	return members, nil
}

// AttachGeneratedQuestions 调用AI出题协作方为会话生成题目
// 状态校验和落库在前，通知在后；协作方失败不影响已提交的状态
func (s *SessionService) AttachGeneratedQuestions(sessionID, userID uint, generator QuestionGenerator, count int) ([]models.Question, error) {
	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	role, _, caps, err := s.resolveAccess(session.GroupID, userID, session)
	if err != nil {
		return nil, err
	}
	if err := requireMember(role); err != nil {
		return nil, err
	}
	if !caps.Can(CapGenerateQuestions) {
		return nil, ErrAccessDenied("没有权限生成题目")
	}

	if session.IsTerminal() {
		return nil, ErrInvalidState("会话已结束，不能生成题目", session.Status)
	}

	loop, err := session.Loop()
	if err != nil {
		return nil, err
	}
	if loop == nil {
		return nil, ErrInvalidInput("会话没有视频片段，无法出题")
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.AppConfig.GeneratorTimeout)*time.Second)
	defer cancel()

	questions, err := generator.Generate(ctx, loop, count)
	if err != nil {
		return nil, fmt.Errorf("AI出题失败: %w", err)
	}
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	if err := session.SetQuestions(questions); err != nil {
		return nil, ErrInvalidInput("题目数据序列化失败")
	}
	if err := s.db.Model(&models.QuizSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"questions_data": session.QuestionsData, "updated_at": time.Now()}).Error; err != nil {
		return nil, err
	}

	s.dropQuestionCache(sessionID)
	return questions, nil
}

// loadQuestions 读取题目集，Redis读穿缓存，数据库永远是权威来源
func (s *SessionService) loadQuestions(session *models.QuizSession) ([]models.Question, error) {
	ctx := context.Background()
	key := questionCacheKey(session.ID)

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var questions []models.Question
		if err := json.Unmarshal([]byte(cached), &questions); err == nil {
			return questions, nil
		}
	}

	questions, err := session.Questions()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(questions); err == nil {
		s.rdb.Set(ctx, key, data, time.Duration(config.AppConfig.CacheExpiration)*time.Second)
	}
	return questions, nil
}

// dropQuestionCache 题目变更或会话删除时失效缓存
func (s *SessionService) dropQuestionCache(sessionID uint) {
	ctx := context.Background()
	s.rdb.Del(ctx, questionCacheKey(sessionID))
}

// markOnline 把用户加入会话在线集合（有效期兜底，避免遗留脏在线状态）
func (s *SessionService) markOnline(sessionID, userID uint) {
	ctx := context.Background()
	key := sessionOnlineKey(sessionID)
	s.rdb.SAdd(ctx, key, fmt.Sprintf("%d", userID))
	s.rdb.Expire(ctx, key, SessionTTL)
}

// onlineSet 读取会话在线集合
func (s *SessionService) onlineSet(sessionID uint) map[uint]bool {
	ctx := context.Background()
	ids, err := s.rdb.SMembers(ctx, sessionOnlineKey(sessionID)).Result()
	if err != nil {
		return map[uint]bool{}
	}
	online := make(map[uint]bool, len(ids))
	for _, idStr := range ids {
		var id uint
		if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil {
			online[id] = true
		}
	}
	return online
}

// publishEvent 落库之后发布会话事件，失败只记日志
func (s *SessionService) publishEvent(event string, session *models.QuizSession) {
	if s.notify == nil {
		return
	}
	s.notify.PublishSessionEvent(event, session)
}

func questionCacheKey(sessionID uint) string {
	return fmt.Sprintf("session:questions:%d", sessionID)
}

func sessionOnlineKey(sessionID uint) string {
	return fmt.Sprintf("session:online:%d", sessionID)
}
