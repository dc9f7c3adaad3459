package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"studyloop/config"
	"studyloop/models"
)

// QuestionGenerator AI出题协作方接口
// 出题服务是外部系统，这里只定义边界；失败由调用方决定如何兜底
type QuestionGenerator interface {
	Generate(ctx context.Context, loop *models.VideoLoop, count int) ([]models.Question, error)
}

// TranscriptFetcher 字幕提取协作方接口
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, startSec, endSec float64) (string, error)
}

// HTTPTranscriptFetcher 通过HTTP调用外部字幕提取服务
type HTTPTranscriptFetcher struct {
	client *http.Client
	url    string
}

// NewHTTPTranscriptFetcher 创建HTTP字幕提取客户端
// 未配置TRANSCRIPT_URL时返回nil，出题时只能使用请求自带的字幕
func NewHTTPTranscriptFetcher() *HTTPTranscriptFetcher {
	if config.AppConfig.TranscriptURL == "" {
		return nil
	}
	return &HTTPTranscriptFetcher{
		client: &http.Client{
			Timeout: time.Duration(config.AppConfig.GeneratorTimeout) * time.Second,
		},
		url: config.AppConfig.TranscriptURL,
	}
}

// Fetch 请求外部服务提取视频片段的字幕
func (f *HTTPTranscriptFetcher) Fetch(ctx context.Context, videoID string, startSec, endSec float64) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"video_id":  videoID,
		"start_sec": startSec,
		"end_sec":   endSec,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("字幕服务返回异常状态: %d", resp.StatusCode)
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Transcript, nil
}

// HTTPQuestionGenerator 通过HTTP调用外部出题服务
type HTTPQuestionGenerator struct {
	client  *http.Client
	url     string
	fetcher TranscriptFetcher
}

// NewHTTPQuestionGenerator 创建HTTP出题客户端
// 未配置GENERATOR_URL时返回nil，调用方需要判空
func NewHTTPQuestionGenerator() *HTTPQuestionGenerator {
	if config.AppConfig.GeneratorURL == "" {
		return nil
	}
	g := &HTTPQuestionGenerator{
		client: &http.Client{
			Timeout: time.Duration(config.AppConfig.GeneratorTimeout) * time.Second,
		},
		url: config.AppConfig.GeneratorURL,
	}
	if f := NewHTTPTranscriptFetcher(); f != nil {
		g.fetcher = f
	}
	return g
}

// Generate 请求外部服务为视频片段生成选择题
// 片段没有自带字幕且配置了字幕服务时，先提取字幕再出题
func (g *HTTPQuestionGenerator) Generate(ctx context.Context, loop *models.VideoLoop, count int) ([]models.Question, error) {
	if loop == nil {
		return nil, errors.New("缺少视频片段信息")
	}

	transcript := loop.Transcript
	if transcript == "" && g.fetcher != nil {
		fetched, err := g.fetcher.Fetch(ctx, loop.VideoID, loop.StartSec, loop.EndSec)
		if err != nil {
			return nil, fmt.Errorf("字幕提取失败: %w", err)
		}
		transcript = fetched
	}

	body, err := json.Marshal(map[string]interface{}{
		"video_id":   loop.VideoID,
		"transcript": transcript,
		"start_sec":  loop.StartSec,
		"end_sec":    loop.EndSec,
		"count":      count,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("出题服务返回异常状态: %d", resp.StatusCode)
	}

	var result struct {
		Questions []models.Question `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Questions) == 0 {
		return nil, errors.New("出题服务未返回题目")
	}

	return result.Questions, nil
}
