package services

import (
	"testing"
	"time"

	"studyloop/models"
)

func quizFixture() []models.Question {
	return []models.Question{
		{Text: "q1", Options: []string{"a", "b", "c"}, Answer: "a"},
		{Text: "q2", Options: []string{"a", "b", "c"}, Answer: "b"},
		{Text: "q3", Options: []string{"a", "b", "c"}, Answer: "c"},
	}
}

func TestScoreResponses(t *testing.T) {
	result, err := ScoreResponses(quizFixture(), []string{"a", "b", "a"})
	if err != nil {
		t.Fatalf("判分失败: %v", err)
	}
	if result.CorrectCount != 2 || result.TotalCount != 3 {
		t.Fatalf("正确数统计错误: %d/%d", result.CorrectCount, result.TotalCount)
	}
	if result.Score != 67 {
		t.Fatalf("得分应四舍五入为67: %d", result.Score)
	}
	if !result.Results[0].IsCorrect || !result.Results[1].IsCorrect || result.Results[2].IsCorrect {
		t.Fatalf("逐题判定错误: %+v", result.Results)
	}
	if result.Results[2].Selected != "a" || result.Results[2].Correct != "c" {
		t.Fatalf("逐题明细错误: %+v", result.Results[2])
	}
}

func TestScoreResponsesPerfectAndZero(t *testing.T) {
	perfect, err := ScoreResponses(quizFixture(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("判分失败: %v", err)
	}
	if perfect.Score != 100 {
		t.Fatalf("全对应得100分: %d", perfect.Score)
	}

	zero, err := ScoreResponses(quizFixture(), []string{"b", "c", "a"})
	if err != nil {
		t.Fatalf("判分失败: %v", err)
	}
	if zero.Score != 0 {
		t.Fatalf("全错应得0分: %d", zero.Score)
	}
}

func TestScoreResponsesValidation(t *testing.T) {
	_, err := ScoreResponses(nil, nil)
	svcErr := AsServiceError(err)
	if svcErr == nil || svcErr.Code != CodeInvalidInput {
		t.Fatalf("空题目应返回VALIDATION错误: %v", err)
	}

	_, err = ScoreResponses(quizFixture(), []string{"a", "b"})
	svcErr = AsServiceError(err)
	if svcErr == nil || svcErr.Code != CodeInvalidInput {
		t.Fatalf("作答数量不一致应返回VALIDATION错误: %v", err)
	}
}

func TestScoreResponsesDeterministic(t *testing.T) {
	// 重复提交同样的答案必须得到同样的分数
	first, err := ScoreResponses(quizFixture(), []string{"a", "c", "c"})
	if err != nil {
		t.Fatalf("判分失败: %v", err)
	}
	second, err := ScoreResponses(quizFixture(), []string{"a", "c", "c"})
	if err != nil {
		t.Fatalf("判分失败: %v", err)
	}
	if first.Score != second.Score || first.CorrectCount != second.CorrectCount {
		t.Fatalf("重复判分结果不一致: %d vs %d", first.Score, second.Score)
	}
}

func TestAggregateParticipants(t *testing.T) {
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	score80 := 80
	score60 := 60

	participants := []models.Participant{
		{UserID: 1, Score: &score80, CompletedAt: &completedAt},
		{UserID: 2, Score: &score60},
	}

	stats := AggregateParticipants(participants)
	if stats.TotalParticipants != 2 {
		t.Fatalf("参与人数错误: %d", stats.TotalParticipants)
	}
	if stats.AverageScore != 70 {
		t.Fatalf("平均分错误: %d", stats.AverageScore)
	}
	if stats.HighestScore != 80 {
		t.Fatalf("最高分错误: %d", stats.HighestScore)
	}
	if stats.CompletionRate != 50 {
		t.Fatalf("完成率错误: %d", stats.CompletionRate)
	}
}

func TestAggregateParticipantsEmpty(t *testing.T) {
	stats := AggregateParticipants(nil)
	if stats.TotalParticipants != 0 || stats.AverageScore != 0 ||
		stats.HighestScore != 0 || stats.CompletionRate != 0 {
		t.Fatalf("空集合应返回全零统计: %+v", stats)
	}
}

func TestAggregateParticipantsUnscored(t *testing.T) {
	// 只加入未作答的参与者不产生分数统计
	participants := []models.Participant{
		{UserID: 1},
		{UserID: 2},
	}
	stats := AggregateParticipants(participants)
	if stats.TotalParticipants != 2 {
		t.Fatalf("参与人数错误: %d", stats.TotalParticipants)
	}
	if stats.AverageScore != 0 || stats.HighestScore != 0 || stats.CompletionRate != 0 {
		t.Fatalf("未作答参与者不应产生分数统计: %+v", stats)
	}
}
