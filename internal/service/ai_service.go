package service

import (
	"bufio"
	"bytes"
	"career_coach_backend/internal/config"
	"career_coach_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIProvider 文本生成服务的统一抽象：角色标注的消息进，纯文本出
type AIProvider interface {
	Chat(ctx context.Context, messages []AIChatMessage) (string, error)
}

// AIStreamProvider 支持流式输出的提供方实现该接口
type AIStreamProvider interface {
	ChatStream(ctx context.Context, messages []AIChatMessage) (<-chan string, <-chan error)
}

type AIService struct {
	provider AIProvider
}

func NewAIService(cfg config.AIConfig) *AIService {
	var provider AIProvider
	if cfg.Provider == "gemini" {
		p, err := NewGeminiProvider(cfg)
		if err == nil {
			provider = p
		}
	}
	if provider == nil {
		provider = NewOpenAIProvider(cfg)
	}
	return &AIService{provider: provider}
}

// NewAIServiceWithProvider 测试时注入假的提供方
func NewAIServiceWithProvider(provider AIProvider) *AIService {
	return &AIService{provider: provider}
}

func (s *AIService) Chat(ctx context.Context, messages []AIChatMessage) (string, error) {
	result, err := s.provider.Chat(ctx, messages)
	if err != nil {
		monitoring.AIRequestCounter.WithLabelValues("chat", "error").Inc()
		return "", err
	}
	monitoring.AIRequestCounter.WithLabelValues("chat", "success").Inc()
	return result, nil
}

// ChatStream 流式对话。提供方不支持流式时退化为一次性返回完整结果
func (s *AIService) ChatStream(ctx context.Context, messages []AIChatMessage) (<-chan string, <-chan error) {
	if sp, ok := s.provider.(AIStreamProvider); ok {
		return sp.ChatStream(ctx, messages)
	}

	out := make(chan string, 1)
	errChan := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errChan)
		result, err := s.Chat(ctx, messages)
		if err != nil {
			errChan <- err
			return
		}
		out <- result
	}()
	return out, errChan
}

// --- OpenAI 兼容接口实现 ---

type OpenAIProvider struct {
	config config.AIConfig
	client *http.Client
}

func NewOpenAIProvider(cfg config.AIConfig) *OpenAIProvider {
	return &OpenAIProvider{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
	Stream   bool            `json:"stream,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"` // 流式响应
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []AIChatMessage) (string, error) {
	reqBody := ChatCompletionRequest{
		Model:    p.config.Model,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("AI returned no choices")
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []AIChatMessage) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	reqBody := ChatCompletionRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   true,
	}
	jsonData, _ := json.Marshal(reqBody)

	go func() {
		defer close(out)
		defer close(errChan)

		req, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			errChan <- err
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

		resp, err := p.client.Do(req)
		if err != nil {
			errChan <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- err
				}
				break
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var streamResp ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
				continue
			}

			if len(streamResp.Choices) > 0 {
				content := streamResp.Choices[0].Delta.Content
				if content != "" {
					out <- content
				}
			}
		}
	}()

	return out, errChan
}

// --- Gemini 实现 ---

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(cfg config.AIConfig) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []AIChatMessage) (string, error) {
	// Gemini 无独立的 system 角色，统一拼接为单个提示词
	var sb strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(sb.String()), nil)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("gemini returned no response")
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
