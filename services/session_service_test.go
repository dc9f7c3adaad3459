package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studyloop/models"
)

// newTestSessionService 基于SQLite和内存Redis搭建可独立运行的服务
func newTestSessionService(t *testing.T) (*SessionService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupSettings{},
		&models.GroupMember{},
		&models.GroupInvitation{},
		&models.QuizSession{},
		&models.Participant{},
	)
	if err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewSessionService(db, rdb, nil), db
}

// seedGroup 建一个小组：群主、普通成员，和一个未加入的外部用户
func seedGroup(t *testing.T, db *gorm.DB) (owner, member, outsider models.User, group models.Group) {
	t.Helper()

	owner = models.User{Username: "owner", Password: "x", Email: "owner@test.local"}
	member = models.User{Username: "member", Password: "x", Email: "member@test.local"}
	outsider = models.User{Username: "outsider", Password: "x", Email: "outsider@test.local"}
	for _, u := range []*models.User{&owner, &member, &outsider} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	group = models.Group{Name: "日语学习组", CreatorID: owner.ID, MaxMembers: 50}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("创建小组失败: %v", err)
	}
	if err := db.Create(models.DefaultGroupSettings(group.ID)).Error; err != nil {
		t.Fatalf("创建小组设置失败: %v", err)
	}
	memberships := []models.GroupMember{
		{GroupID: group.ID, UserID: owner.ID, Role: models.RoleOwner, JoinedAt: time.Now()},
		{GroupID: group.ID, UserID: member.ID, Role: models.RoleMember, JoinedAt: time.Now()},
	}
	for _, m := range memberships {
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("创建成员关系失败: %v", err)
		}
	}
	return owner, member, outsider, group
}

// seedSession 直接落一条指定状态的会话
func seedSession(t *testing.T, db *gorm.DB, groupID, creatorID uint, status string) models.QuizSession {
	t.Helper()

	session := models.QuizSession{
		Code:      newSessionCode(),
		GroupID:   groupID,
		CreatorID: creatorID,
		Title:     "听力测验",
		Kind:      models.SessionKindInstant,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := session.SetQuestions([]models.Question{
		{Text: "q1", Options: []string{"a", "b"}, Answer: "a"},
	}); err != nil {
		t.Fatalf("写入题目失败: %v", err)
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}
	return session
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	svcErr := AsServiceError(err)
	if svcErr == nil || svcErr.Code != code {
		t.Fatalf("期望错误码%s，得到: %v", code, err)
	}
}

func TestMutationsInvisibleToNonMembers(t *testing.T) {
	s, db := newTestSessionService(t)
	owner, _, outsider, group := seedGroup(t, db)
	pending := seedSession(t, db, group.ID, owner.ID, models.SessionStatusPending)

	// 非成员的所有写操作都按NOT_FOUND返回，和读路径一致，无法借403探测资源存在性
	_, err := s.CreateSession(group.ID, outsider.ID, &models.SessionRequest{Title: "t"})
	wantCode(t, err, CodeNotFound)

	_, err = s.ApproveSession(pending.ID, outsider.ID)
	wantCode(t, err, CodeNotFound)

	wantCode(t, s.RejectSession(pending.ID, outsider.ID, "理由"), CodeNotFound)
	wantCode(t, s.CancelSession(pending.ID, outsider.ID), CodeNotFound)
	wantCode(t, s.DeleteSession(pending.ID, outsider.ID), CodeNotFound)
	wantCode(t, s.BulkDeleteSessions(group.ID, outsider.ID, []uint{pending.ID}), CodeNotFound)

	_, err = s.AttachGeneratedQuestions(pending.ID, outsider.ID, nil, 5)
	wantCode(t, err, CodeNotFound)

	// 会话应原封不动
	var fresh models.QuizSession
	if err := db.First(&fresh, pending.ID).Error; err != nil {
		t.Fatalf("会话被误删: %v", err)
	}
	if fresh.Status != models.SessionStatusPending {
		t.Fatalf("会话状态被修改: %s", fresh.Status)
	}
}

func TestMemberWithoutCapabilityGetsAccessDenied(t *testing.T) {
	s, db := newTestSessionService(t)
	owner, member, _, group := seedGroup(t, db)
	pending := seedSession(t, db, group.ID, owner.ID, models.SessionStatusPending)

	// 成员缺能力是ACCESS_DENIED，和非成员的NOT_FOUND是两类条件
	_, err := s.ApproveSession(pending.ID, member.ID)
	wantCode(t, err, CodeAccessDenied)
	wantCode(t, s.RejectSession(pending.ID, member.ID, "理由"), CodeAccessDenied)
}

func TestBulkDeleteByCreator(t *testing.T) {
	s, db := newTestSessionService(t)
	owner, member, _, group := seedGroup(t, db)

	mine1 := seedSession(t, db, group.ID, member.ID, models.SessionStatusCompleted)
	mine2 := seedSession(t, db, group.ID, member.ID, models.SessionStatusCompleted)
	others := seedSession(t, db, group.ID, owner.ID, models.SessionStatusCompleted)

	// 没有delete-session能力的成员可以批量删除自己创建的会话
	if err := s.BulkDeleteSessions(group.ID, member.ID, []uint{mine1.ID, mine2.ID}); err != nil {
		t.Fatalf("创建者批量删除失败: %v", err)
	}
	var count int64
	db.Model(&models.QuizSession{}).Where("id IN ?", []uint{mine1.ID, mine2.ID}).Count(&count)
	if count != 0 {
		t.Fatalf("会话未被删除: %d", count)
	}

	// 批次里混入他人的会话则整批拒绝，一行不删
	mine3 := seedSession(t, db, group.ID, member.ID, models.SessionStatusCompleted)
	wantCode(t, s.BulkDeleteSessions(group.ID, member.ID, []uint{mine3.ID, others.ID}), CodeAccessDenied)
	db.Model(&models.QuizSession{}).Where("id IN ?", []uint{mine3.ID, others.ID}).Count(&count)
	if count != 2 {
		t.Fatalf("拒绝的批次不应删除任何会话: %d", count)
	}
}

func TestBulkDeleteBlockedByActive(t *testing.T) {
	s, db := newTestSessionService(t)
	owner, _, _, group := seedGroup(t, db)

	done := seedSession(t, db, group.ID, owner.ID, models.SessionStatusCompleted)
	active := seedSession(t, db, group.ID, owner.ID, models.SessionStatusActive)

	wantCode(t, s.BulkDeleteSessions(group.ID, owner.ID, []uint{done.ID, active.ID}), CodeInvalidState)

	var count int64
	db.Model(&models.QuizSession{}).Where("id IN ?", []uint{done.ID, active.ID}).Count(&count)
	if count != 2 {
		t.Fatalf("整批拒绝后不应有会话被删除: %d", count)
	}
}

func TestExpireIfNeededReportsStoreState(t *testing.T) {
	s, db := newTestSessionService(t)
	owner, _, _, group := seedGroup(t, db)

	session := seedSession(t, db, group.ID, owner.ID, models.SessionStatusActive)
	stale := session
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := db.Model(&models.QuizSession{}).Where("id = ?", session.ID).
		Update("created_at", stale.CreatedAt).Error; err != nil {
		t.Fatalf("回拨创建时间失败: %v", err)
	}

	// 另一方抢先取消了会话，过期翻转的条件更新不会命中
	if err := db.Model(&models.QuizSession{}).Where("id = ?", session.ID).
		Update("status", models.SessionStatusCancelled).Error; err != nil {
		t.Fatalf("取消会话失败: %v", err)
	}

	got, err := s.expireIfNeeded(&stale)
	if err != nil {
		t.Fatalf("过期检查失败: %v", err)
	}
	if got.Status != models.SessionStatusCancelled {
		t.Fatalf("应报告库里的真实状态cancelled，得到: %s", got.Status)
	}

	var fresh models.QuizSession
	if err := db.First(&fresh, session.ID).Error; err != nil {
		t.Fatalf("读取会话失败: %v", err)
	}
	if fresh.Status != models.SessionStatusCancelled {
		t.Fatalf("库里状态被覆盖: %s", fresh.Status)
	}
}
