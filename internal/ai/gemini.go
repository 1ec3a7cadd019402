// Package ai は生成AIエンドポイントへの検査レポート解析・チャットアダプタを提供する。
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/labnote/internal/model"
)

// ErrNotConfigured はAPIキー未設定のまま解析を要求した場合に返される。
var ErrNotConfigured = errors.New("gemini client not configured: set GEMINI_API_KEY")

// ErrEmptyRawText はチャット対象のレポートテキストが空の場合に返される。
var ErrEmptyRawText = errors.New("lab report raw text is required for chat")

// chatRawTextLimit はチャットプロンプトに埋め込むレポートテキストの上限文字数。
// 超過分は切り詰め、その旨のマーカーを付記する。
const chatRawTextLimit = 50000

// truncationMarker はテキスト切り詰め時にプロンプトへ付記するマーカー。
const truncationMarker = "\n\n[... text truncated for length ...]"

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config はGeminiクライアントの設定。
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration

	// テスト用にオーバーライド可能なURL
	BaseURL string
}

// Client はGemini generateContent APIのクライアント。
// 3操作（テキスト解析・PDF解析・チャット）はいずれも単発・非ストリーミングで、
// ローカルでのリトライは行わない。プロバイダー側の失敗はそのままエラーとして返す。
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	metrics MetricsRecorder
}

// MetricsRecorder はAI呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordAISuccess(operation string)
	RecordAIFailure(operation string)
	RecordAILatency(duration time.Duration)
}

// noopMetrics はメトリクス未設定時のレコーダー。
type noopMetrics struct{}

func (noopMetrics) RecordAISuccess(string)        {}
func (noopMetrics) RecordAIFailure(string)        {}
func (noopMetrics) RecordAILatency(time.Duration) {}

// NewClient はGeminiクライアントを生成する。
// APIキーが空でもクライアント自体は生成され、各操作がErrNotConfiguredを返す。
func NewClient(config Config, metrics MetricsRecorder) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Client{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: config.Timeout},
		metrics: metrics,
	}
}

// Configured はAPIキーが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Gemini API request/response structures
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inlineData,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// AnalyzeText は検査レポートの生テキスト（と任意の構造化データ）を
// 患者向けの平易な解説文に変換する。
func (c *Client) AnalyzeText(ctx context.Context, rawText string, structured *model.StructuredData) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	prompt := buildAnalyzeTextPrompt(rawText, structured)
	return c.generate(ctx, "analyze_text", []geminiPart{{Text: prompt}})
}

// AnalyzePDF はPDFバイナリをマルチモーダルモデルに直接渡して解析する。
// サーバー側でのテキスト抽出は行わない。
func (c *Client) AnalyzePDF(ctx context.Context, pdf []byte, fileName string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	parts := []geminiPart{
		{Text: buildAnalyzePDFPrompt(fileName)},
		{InlineData: &geminiBlobPart{
			MimeType: "application/pdf",
			Data:     base64.StdEncoding.EncodeToString(pdf),
		}},
	}
	return c.generate(ctx, "analyze_pdf", parts)
}

// Chat は保存済みレポートの生テキスト（と任意の過去解析）を根拠として
// フォローアップ質問に回答する。rawTextが空の場合はErrEmptyRawTextを返す。
func (c *Client) Chat(ctx context.Context, rawText, priorAnalysis, question string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(rawText) == "" {
		return "", ErrEmptyRawText
	}

	prompt := buildChatPrompt(rawText, priorAnalysis, question)
	return c.generate(ctx, "chat", []geminiPart{{Text: prompt}})
}

// generate はgenerateContentエンドポイントを1回呼び出し、最初の候補のテキストを返す。
func (c *Client) generate(ctx context.Context, operation string, parts []geminiPart) (string, error) {
	start := time.Now()

	text, err := c.doGenerate(ctx, parts)
	c.metrics.RecordAILatency(time.Since(start))
	if err != nil {
		c.metrics.RecordAIFailure(operation)
		return "", err
	}

	c.metrics.RecordAISuccess(operation)
	return text, nil
}

func (c *Client) doGenerate(ctx context.Context, parts []geminiPart) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini API error: %s (code: %d)", geminiResp.Error.Message, geminiResp.Error.Code)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
