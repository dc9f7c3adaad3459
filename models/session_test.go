package models

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestQuestionViews(t *testing.T) {
	questions := []Question{
		{Text: "q1", Options: []string{"a", "b", "c"}, Answer: "a", Explanation: "e1"},
		{Text: "q2", Options: []string{"x", "y"}, Answer: "y", Explanation: "e2"},
	}

	views := QuestionViews(questions)
	if len(views) != 2 {
		t.Fatalf("视图数量错误: %d", len(views))
	}
	for i, view := range views {
		if view.Text != questions[i].Text {
			t.Fatalf("第%d题题干不一致: %s", i+1, view.Text)
		}
		if len(view.Options) != len(questions[i].Options) {
			t.Fatalf("第%d题选项数量不一致: %v", i+1, view.Options)
		}
	}
}

func TestSessionResponseOmitsAnswers(t *testing.T) {
	questions := []Question{
		{Text: "q1", Options: []string{"opt-1", "opt-2"}, Answer: "opt-1", Explanation: "why-it-is-right"},
	}

	resp := SessionResponse{
		ID:        1,
		Status:    SessionStatusActive,
		Questions: QuestionViews(questions),
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}

	// 作答前下发的会话详情不允许携带答案和解析
	if bytes.Contains(data, []byte("answer")) {
		t.Fatalf("会话详情泄露了答案字段: %s", data)
	}
	if bytes.Contains(data, []byte("explanation")) || bytes.Contains(data, []byte("why-it-is-right")) {
		t.Fatalf("会话详情泄露了解析字段: %s", data)
	}
	if !bytes.Contains(data, []byte("opt-2")) {
		t.Fatalf("会话详情缺少选项: %s", data)
	}
}
