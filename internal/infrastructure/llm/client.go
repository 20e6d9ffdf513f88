package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/finsight/backend/internal/infrastructure/log"
)

// Client Chat Completion API 客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions 单次请求的生成参数
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool // 要求模型输出纯 JSON
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat 响应格式约束
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient 创建 Chat 客户端
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: log.NewModuleLogger("llm", "client"),
	}
}

// Chat 发送一次对话请求，返回首个 choice 的内容
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	if opts.Model == "" {
		return "", fmt.Errorf("model is required")
	}

	reqBody := ChatRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.Debug("Sending chat request",
		"url", url,
		"model", opts.Model,
		"json_mode", opts.JSONMode,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := c.readResponseBody(resp)
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	c.logger.Debug("Chat request completed",
		"model", opts.Model,
		"tokens", chatResp.Usage.TotalTokens,
	)

	return chatResp.Choices[0].Message.Content, nil
}

// ChatWithFallback 依次尝试模型列表，返回内容和实际使用的模型
// 所有模型都失败时返回最后一个错误
func (c *Client) ChatWithFallback(ctx context.Context, messages []Message, opts ChatOptions, models []string) (string, string, error) {
	if len(models) == 0 {
		return "", "", fmt.Errorf("model list is empty")
	}

	var lastErr error
	for _, model := range models {
		opts.Model = model
		content, err := c.Chat(ctx, messages, opts)
		if err == nil {
			return content, model, nil
		}
		lastErr = err

		c.logger.Warn("Model failed, trying next",
			"model", model,
			"error", err,
		)
	}

	return "", "", fmt.Errorf("all models failed: %w", lastErr)
}

// TestConnection 测试 Chat API 连接
func (c *Client) TestConnection(ctx context.Context, model string) error {
	c.logger.Debug("Testing chat API connection",
		"base_url", c.baseURL,
		"model", model,
	)

	_, err := c.Chat(ctx, []Message{
		{Role: "user", Content: "Reply with the single word: OK"},
	}, ChatOptions{Model: model, MaxTokens: 10})
	if err != nil {
		return fmt.Errorf("chat connection test failed: %w", err)
	}

	c.logger.Info("Chat API connection test successful",
		"model", model,
	)

	return nil
}

// readResponseBody 读取响应体
func (c *Client) readResponseBody(resp *http.Response) (string, error) {
	if resp.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
