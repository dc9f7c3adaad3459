package services

import (
	"fmt"
	"sort"
	"testing"

	"studyloop/models"
)

func TestShuffleSeed(t *testing.T) {
	if got := ShuffleSeed(3, 17, 2, 9, false); got != "3-17-2" {
		t.Fatalf("会话级种子错误: %s", got)
	}
	if got := ShuffleSeed(3, 17, 2, 9, true); got != "3-17-2-9" {
		t.Fatalf("成员级种子错误: %s", got)
	}

	// 不同成员在按成员乱序下得到不同种子
	a := ShuffleSeed(3, 17, 2, 9, true)
	b := ShuffleSeed(3, 17, 2, 10, true)
	if a == b {
		t.Fatal("不同成员的种子不应相同")
	}

	// 关闭按成员乱序时种子与成员无关
	a = ShuffleSeed(3, 17, 2, 9, false)
	b = ShuffleSeed(3, 17, 2, 10, false)
	if a != b {
		t.Fatal("会话级种子不应包含成员信息")
	}
}

func TestShuffleOptionsDeterministic(t *testing.T) {
	options := []string{"猫", "狗", "鸟", "鱼"}

	first := ShuffleOptions(options, "3-17-0")
	second := ShuffleOptions(options, "3-17-0")
	if len(first) != len(second) {
		t.Fatalf("两次乱序长度不一致: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("同一种子两次乱序结果不同: %v vs %v", first, second)
		}
	}
}

func TestShuffleOptionsIsPermutation(t *testing.T) {
	options := []string{"a", "b", "c", "d", "e"}
	shuffled := ShuffleOptions(options, "7-1-3")

	if len(shuffled) != len(options) {
		t.Fatalf("乱序后长度变化: %d", len(shuffled))
	}
	sortedGot := append([]string(nil), shuffled...)
	sortedWant := append([]string(nil), options...)
	sort.Strings(sortedGot)
	sort.Strings(sortedWant)
	for i := range sortedWant {
		if sortedGot[i] != sortedWant[i] {
			t.Fatalf("乱序后选项集合变化: %v", shuffled)
		}
	}
}

func TestShuffleOptionsDoesNotMutateInput(t *testing.T) {
	options := []string{"a", "b", "c", "d"}
	ShuffleOptions(options, "1-1-0")
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if options[i] != want[i] {
			t.Fatalf("原始选项被修改: %v", options)
		}
	}
}

func TestShuffleOptionsVariesWithSeed(t *testing.T) {
	options := []string{"a", "b", "c", "d"}

	// 遍历一批种子，至少要出现一个非原序的排列
	moved := false
	for i := 0; i < 50 && !moved; i++ {
		shuffled := ShuffleOptions(options, fmt.Sprintf("1-1-%d", i))
		for j := range options {
			if shuffled[j] != options[j] {
				moved = true
				break
			}
		}
	}
	if !moved {
		t.Fatal("所有种子都得到原序，乱序未生效")
	}
}

func TestShuffleQuestionsKeepsAnswer(t *testing.T) {
	questions := []models.Question{
		{Text: "「ありがとう」是什么意思", Options: []string{"谢谢", "再见", "你好", "对不起"}, Answer: "谢谢"},
		{Text: "「さようなら」是什么意思", Options: []string{"谢谢", "再见", "你好", "对不起"}, Answer: "再见"},
	}

	shuffled := ShuffleQuestions(questions, 3, 17, 9, true)
	if len(shuffled) != len(questions) {
		t.Fatalf("题目数量变化: %d", len(shuffled))
	}
	for i, q := range shuffled {
		found := false
		for _, option := range q.Options {
			if option == q.Answer {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("第%d题乱序后答案不在选项中: %v", i+1, q.Options)
		}
		if q.Answer != questions[i].Answer {
			t.Fatalf("第%d题答案文本被改写: %s", i+1, q.Answer)
		}
	}

	// 原题目不应被修改
	if questions[0].Options[0] != "谢谢" {
		t.Fatalf("原题目选项被修改: %v", questions[0].Options)
	}
}
