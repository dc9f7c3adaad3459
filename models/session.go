package models

import (
	"encoding/json"
	"time"
)

// SessionKind 会话类型
const (
	SessionKindInstant   = "instant"   // 即时会话
	SessionKindScheduled = "scheduled" // 预约会话
)

// 会话状态（状态机只能向前推进）
const (
	SessionStatusPending   = "pending"   // 待审批
	SessionStatusScheduled = "scheduled" // 已排期未开始
	SessionStatusActive    = "active"    // 进行中
	SessionStatusCompleted = "completed" // 已结束（终态）
	SessionStatusCancelled = "cancelled" // 已取消（终态）
)

// Question 测验题目
// Answer 保存正确选项的文本而不是位置，乱序后不需要改写
type Question struct {
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// VideoLoop 循环播放的视频片段
type VideoLoop struct {
	VideoID    string  `json:"video_id"`
	Title      string  `json:"title"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Transcript string  `json:"transcript,omitempty"`
}

// QuizSession 小组测验会话模型
type QuizSession struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	Code          string     `json:"code" gorm:"size:8;index"`
	GroupID       uint       `json:"group_id" gorm:"not null;index"`
	CreatorID     uint       `json:"creator_id" gorm:"not null;index"`
	Title         string     `json:"title"`
	Kind          string     `json:"kind" gorm:"size:20;not null;default:'instant'"`
	Status        string     `json:"status" gorm:"size:20;not null;default:'active'"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	RejectReason  string     `json:"reject_reason,omitempty"`
	QuestionsData string     `json:"-" gorm:"type:json"`
	LoopData      string     `json:"-" gorm:"type:json"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Questions 解析会话内嵌的题目集
func (s *QuizSession) Questions() ([]Question, error) {
	if s.QuestionsData == "" {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal([]byte(s.QuestionsData), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// SetQuestions 序列化题目集存入会话
func (s *QuizSession) SetQuestions(questions []Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	s.QuestionsData = string(data)
	return nil
}

// Loop 解析会话内嵌的视频片段信息
func (s *QuizSession) Loop() (*VideoLoop, error) {
	if s.LoopData == "" {
		return nil, nil
	}
	var loop VideoLoop
	if err := json.Unmarshal([]byte(s.LoopData), &loop); err != nil {
		return nil, err
	}
	return &loop, nil
}

// SetLoop 序列化视频片段信息存入会话
func (s *QuizSession) SetLoop(loop *VideoLoop) error {
	if loop == nil {
		s.LoopData = ""
		return nil
	}
	data, err := json.Marshal(loop)
	if err != nil {
		return err
	}
	s.LoopData = string(data)
	return nil
}

// IsTerminal 判断会话是否处于终态
func (s *QuizSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusCancelled
}

// Participant 会话参与者记录
// (session_id, user_id) 唯一，提交时覆盖而不是新增
type Participant struct {
	SessionID     uint       `json:"session_id" gorm:"primaryKey"`
	UserID        uint       `json:"user_id" gorm:"primaryKey"`
	JoinedAt      time.Time  `json:"joined_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Score         *int       `json:"score,omitempty"`
	CorrectCount  int        `json:"correct_count"`
	TotalCount    int        `json:"total_count"`
	ResponsesData string     `json:"-" gorm:"type:json"`
}

// Responses 解析参与者的原始作答
func (p *Participant) Responses() ([]string, error) {
	if p.ResponsesData == "" {
		return nil, nil
	}
	var responses []string
	if err := json.Unmarshal([]byte(p.ResponsesData), &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

// SetResponses 序列化原始作答存入记录
func (p *Participant) SetResponses(responses []string) error {
	data, err := json.Marshal(responses)
	if err != nil {
		return err
	}
	p.ResponsesData = string(data)
	return nil
}

// QuestionView 面向作答者的题目视图
// 只暴露题干和选项，正确答案和解析只在判分结果里返回
type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuestionViews 把题目集转换为作答者视图
func QuestionViews(questions []Question) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, question := range questions {
		views[i] = QuestionView{Text: question.Text, Options: question.Options}
	}
	return views
}

// QuestionResult 单题判分结果（与作答数组按位置一一对应）
type QuestionResult struct {
	Question    string `json:"question"`
	Selected    string `json:"selected"`
	Correct     string `json:"correct"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// ScoreResult 一次提交的判分结果
type ScoreResult struct {
	Results      []QuestionResult `json:"results"`
	Score        int              `json:"score"`
	CorrectCount int              `json:"correct_count"`
	TotalCount   int              `json:"total_count"`
}

// SessionStats 会话聚合统计
type SessionStats struct {
	TotalParticipants int `json:"total_participants"`
	AverageScore      int `json:"average_score"`
	HighestScore      int `json:"highest_score"`
	CompletionRate    int `json:"completion_rate"`
}

// SessionRequest 创建会话请求模型
type SessionRequest struct {
	Title       string     `json:"title"`
	Kind        string     `json:"kind"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Questions   []Question `json:"questions"`
	Loop        *VideoLoop `json:"loop"`
}

// SubmitRequest 提交作答请求模型
type SubmitRequest struct {
	Responses []string `json:"responses" binding:"required"`
}

// SessionResponse 会话响应模型
type SessionResponse struct {
	ID               uint           `json:"id"`
	Code             string         `json:"code"`
	GroupID          uint           `json:"group_id"`
	CreatorID        uint           `json:"creator_id"`
	Title            string         `json:"title"`
	Kind             string         `json:"kind"`
	Status           string         `json:"status"`
	ScheduledAt      *time.Time     `json:"scheduled_at,omitempty"`
	RejectReason     string         `json:"reject_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	QuestionCount    int            `json:"question_count"`
	ParticipantCount int            `json:"participant_count"`
	Loop             *VideoLoop     `json:"loop,omitempty"`
	Questions        []QuestionView `json:"questions,omitempty"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	UserID       uint       `json:"user_id"`
	Username     string     `json:"username"`
	Avatar       string     `json:"avatar"`
	Score        int        `json:"score"`
	CorrectCount int        `json:"correct_count"`
	TotalCount   int        `json:"total_count"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Rank         int        `json:"rank"`
}
