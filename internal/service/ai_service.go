package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"online_edu_backend/internal/config"
)

// AIService 对接 OpenAI 兼容的 chat-completions 接口，实现题目生成能力。
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const generateSystemPrompt = `你是一个教学测评出题助手。用户会给出主题和数量，你必须只输出合法 JSON 数组（不要 markdown、不要代码块、不要任何解释），格式如下：

[
  {
    "prompt": "题干",
    "options": ["选项A", "选项B", "选项C", "选项D"],
    "correctAnswers": ["选项A"],
    "explanation": "答案解析"
  }
]

要求：每题 2-6 个选项；correctAnswers 必须是 options 的非空子集，可以多选，但不能有重复项。`

// Generate 为主题生成 count 道题。实现 QuestionGenerator。
func (s *AIService) Generate(topicTitle string, count int) ([]QuestionDraft, error) {
	prompt := fmt.Sprintf("主题：%s\n请生成 %d 道选择题。", topicTitle, count)

	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: generateSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.Error != nil {
		return nil, fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("AI returned no choices")
	}

	content := stripCodeFence(result.Choices[0].Message.Content)

	var drafts []QuestionDraft
	if err := json.Unmarshal([]byte(content), &drafts); err != nil {
		return nil, fmt.Errorf("AI returned invalid question JSON: %v", err)
	}
	if len(drafts) > count {
		drafts = drafts[:count]
	}
	return drafts, nil
}

// stripCodeFence 模型偶尔无视指令包一层 ```json，这里容错剥掉
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
