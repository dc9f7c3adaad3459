package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"studyloop/models"
)

func TestGenerateFetchesMissingTranscript(t *testing.T) {
	transcriptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("字幕请求解析失败: %v", err)
		}
		if req["video_id"] != "vid-1" {
			t.Errorf("字幕请求缺少视频ID: %v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"transcript": "こんにちは、世界"})
	}))
	defer transcriptSrv.Close()

	var gotTranscript string
	generatorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("出题请求解析失败: %v", err)
		}
		gotTranscript, _ = req["transcript"].(string)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"questions": []models.Question{
				{Text: "q1", Options: []string{"a", "b"}, Answer: "a"},
			},
		})
	}))
	defer generatorSrv.Close()

	g := &HTTPQuestionGenerator{
		client: generatorSrv.Client(),
		url:    generatorSrv.URL,
		fetcher: &HTTPTranscriptFetcher{
			client: transcriptSrv.Client(),
			url:    transcriptSrv.URL,
		},
	}

	// 片段没有自带字幕，先走字幕服务再出题
	loop := &models.VideoLoop{VideoID: "vid-1", StartSec: 10, EndSec: 25}
	questions, err := g.Generate(context.Background(), loop, 1)
	if err != nil {
		t.Fatalf("出题失败: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("题目数量错误: %d", len(questions))
	}
	if gotTranscript != "こんにちは、世界" {
		t.Fatalf("出题请求未带上提取的字幕: %q", gotTranscript)
	}
}

func TestGenerateKeepsProvidedTranscript(t *testing.T) {
	var gotTranscript string
	generatorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		gotTranscript, _ = req["transcript"].(string)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"questions": []models.Question{
				{Text: "q1", Options: []string{"a", "b"}, Answer: "a"},
			},
		})
	}))
	defer generatorSrv.Close()

	fetcherCalled := false
	transcriptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetcherCalled = true
		json.NewEncoder(w).Encode(map[string]string{"transcript": "不该用到"})
	}))
	defer transcriptSrv.Close()

	g := &HTTPQuestionGenerator{
		client: generatorSrv.Client(),
		url:    generatorSrv.URL,
		fetcher: &HTTPTranscriptFetcher{
			client: transcriptSrv.Client(),
			url:    transcriptSrv.URL,
		},
	}

	loop := &models.VideoLoop{VideoID: "vid-1", StartSec: 0, EndSec: 5, Transcript: "已有字幕"}
	if _, err := g.Generate(context.Background(), loop, 1); err != nil {
		t.Fatalf("出题失败: %v", err)
	}
	if gotTranscript != "已有字幕" {
		t.Fatalf("自带字幕被改写: %q", gotTranscript)
	}
	if fetcherCalled {
		t.Fatal("片段自带字幕时不应调用字幕服务")
	}
}
