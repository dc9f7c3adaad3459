package services

import (
	"time"

	"studyloop/models"
)

// SessionTTL 会话有效期：即时会话从创建起、预约会话从预约时间起24小时
const SessionTTL = 24 * time.Hour

// IsSessionExpired 判断会话在now时刻是否已过期
// 纯函数，单个检查和批量扫描共用同一条逻辑
// 终态或待审批的会话不参与过期判断
func IsSessionExpired(session *models.QuizSession, now time.Time) bool {
	if session.Status != models.SessionStatusScheduled && session.Status != models.SessionStatusActive {
		return false
	}

	start := session.CreatedAt
	if session.Kind == models.SessionKindScheduled && session.ScheduledAt != nil {
		// 预约会话的有效期从预约时间算起，不是创建时间
		start = *session.ScheduledAt
	}

	return now.Sub(start) > SessionTTL
}
