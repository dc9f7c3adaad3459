package services

import (
	"testing"
	"time"

	"studyloop/models"
)

func TestIsSessionExpiredInstant(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &models.QuizSession{
		Kind:   models.SessionKindInstant,
		Status: models.SessionStatusActive,
	}

	// 刚好24小时不算过期，越过才算
	session.CreatedAt = now.Add(-SessionTTL)
	if IsSessionExpired(session, now) {
		t.Fatal("恰好24小时不应判定过期")
	}
	session.CreatedAt = now.Add(-SessionTTL - time.Second)
	if !IsSessionExpired(session, now) {
		t.Fatal("超过24小时应判定过期")
	}
	session.CreatedAt = now.Add(-23 * time.Hour)
	if IsSessionExpired(session, now) {
		t.Fatal("23小时不应判定过期")
	}
}

func TestIsSessionExpiredScheduled(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// 预约会话从预约时间起算而不是创建时间
	scheduledAt := now.Add(-time.Hour)
	session := &models.QuizSession{
		Kind:        models.SessionKindScheduled,
		Status:      models.SessionStatusScheduled,
		ScheduledAt: &scheduledAt,
	}
	session.CreatedAt = now.Add(-72 * time.Hour)
	if IsSessionExpired(session, now) {
		t.Fatal("预约时间后1小时不应判定过期")
	}

	scheduledAt = now.Add(-SessionTTL - time.Minute)
	session.ScheduledAt = &scheduledAt
	if !IsSessionExpired(session, now) {
		t.Fatal("预约时间后超过24小时应判定过期")
	}

	// 预约时间缺失时回退到创建时间
	session.ScheduledAt = nil
	session.CreatedAt = now.Add(-SessionTTL - time.Minute)
	if !IsSessionExpired(session, now) {
		t.Fatal("缺少预约时间时应按创建时间判定")
	}
}

func TestIsSessionExpiredStatusGate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-100 * time.Hour)

	for _, status := range []string{
		models.SessionStatusPending,
		models.SessionStatusCompleted,
		models.SessionStatusCancelled,
	} {
		session := &models.QuizSession{
			Kind:   models.SessionKindInstant,
			Status: status,
		}
		session.CreatedAt = old
		if IsSessionExpired(session, now) {
			t.Fatalf("状态%s不应参与过期判断", status)
		}
	}

	// 进行中的旧会话要被判定过期
	session := &models.QuizSession{
		Kind:   models.SessionKindInstant,
		Status: models.SessionStatusActive,
	}
	session.CreatedAt = old
	if !IsSessionExpired(session, now) {
		t.Fatal("超期的进行中会话应判定过期")
	}
}
