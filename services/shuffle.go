package services

import (
	"fmt"

	"studyloop/models"
)

// hashSeed 从种子字符串派生32位哈希（h = h*31 + ch）
func hashSeed(seed string) int32 {
	var hash int32
	for _, ch := range seed {
		hash = hash*31 + int32(ch)
	}
	return hash
}

// ShuffleSeed 生成选项乱序种子
// 统一约定 "{groupID}-{sessionID}-{questionIndex}"，开启按成员乱序时追加 "-{userID}"
// 同一种子永远得到同一顺序，刷新/重试不会变
func ShuffleSeed(groupID, sessionID uint, questionIndex int, userID uint, perMember bool) string {
	seed := fmt.Sprintf("%d-%d-%d", groupID, sessionID, questionIndex)
	if perMember {
		seed = fmt.Sprintf("%s-%d", seed, userID)
	}
	return seed
}

// ShuffleOptions 用种子对选项做确定性乱序
// 哈希经固定线性同余步进驱动Fisher-Yates，不依赖任何全局随机源
func ShuffleOptions(options []string, seed string) []string {
	shuffled := make([]string, len(options))
	copy(shuffled, options)

	hash := hashSeed(seed)
	for i := len(shuffled) - 1; i > 0; i-- {
		hash = (hash*9301 + 49297) % 233280
		j := hash % int32(i+1)
		if j < 0 {
			j = -j
		}
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// ShuffleQuestion 返回选项乱序后的题目副本
// 正确答案按选项文本记录，乱序后依然指向同一个选项
func ShuffleQuestion(question models.Question, seed string) models.Question {
	question.Options = ShuffleOptions(question.Options, seed)
	return question
}

// ShuffleQuestions 对整套题目按题序乱序选项
func ShuffleQuestions(questions []models.Question, groupID, sessionID, userID uint, perMember bool) []models.Question {
	shuffled := make([]models.Question, len(questions))
	for i, question := range questions {
		seed := ShuffleSeed(groupID, sessionID, i, userID, perMember)
		shuffled[i] = ShuffleQuestion(question, seed)
	}
	return shuffled
}
