package services

import (
	"math"

	"studyloop/models"
)

// ScoreResponses 对一次提交判分
// responses与questions按位置一一对应，长度不一致直接判为数据错误
func ScoreResponses(questions []models.Question, responses []string) (*models.ScoreResult, error) {
	if len(questions) == 0 {
		return nil, ErrInvalidInput("会话没有题目")
	}
	if len(responses) != len(questions) {
		return nil, ErrInvalidInput("作答数量与题目数量不一致")
	}

	results := make([]models.QuestionResult, len(questions))
	correctCount := 0

	for i, question := range questions {
		selected := responses[i]
		isCorrect := selected == question.Answer
		if isCorrect {
			correctCount++
		}
		results[i] = models.QuestionResult{
			Question:    question.Text,
			Selected:    selected,
			Correct:     question.Answer,
			IsCorrect:   isCorrect,
			Explanation: question.Explanation,
		}
	}

	return &models.ScoreResult{
		Results:      results,
		Score:        roundPercent(correctCount, len(questions)),
		CorrectCount: correctCount,
		TotalCount:   len(questions),
	}, nil
}

// AggregateParticipants 汇总会话所有参与者的统计
// 平均分和最高分只统计有成绩的参与者，空集合返回全零而不是除零
func AggregateParticipants(participants []models.Participant) models.SessionStats {
	stats := models.SessionStats{
		TotalParticipants: len(participants),
	}
	if len(participants) == 0 {
		return stats
	}

	scoreSum := 0
	scoredCount := 0
	completedCount := 0

	for _, p := range participants {
		if p.Score != nil {
			scoreSum += *p.Score
			scoredCount++
			if *p.Score > stats.HighestScore {
				stats.HighestScore = *p.Score
			}
		}
		if p.CompletedAt != nil {
			completedCount++
		}
	}

	if scoredCount > 0 {
		stats.AverageScore = int(math.Round(float64(scoreSum) / float64(scoredCount)))
	}
	stats.CompletionRate = roundPercent(completedCount, len(participants))

	return stats
}

// roundPercent 四舍五入的百分比
func roundPercent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
