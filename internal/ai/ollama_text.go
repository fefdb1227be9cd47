package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Токенизатор для оценки промптов, когда Ollama не вернул счетчики.
const fallbackTokenEncoding = "cl100k_base"

// ollamaTextClient реализует TextGenerator поверх локального Ollama.
type ollamaTextClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

var _ TextGenerator = (*ollamaTextClient)(nil)

// NewOllamaTextClient создает клиент Ollama.
// host указывается без суффикса /v1, например http://localhost:11434.
func NewOllamaTextClient(host, model string, timeout time.Duration, logger *zap.Logger) (TextGenerator, error) {
	baseURL := strings.TrimSuffix(host, "/v1")
	baseURL = strings.TrimSuffix(baseURL, "/")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	httpClient := &http.Client{Timeout: timeout}
	client := api.NewClient(parsedURL, httpClient)

	logger.Info("Ollama client created",
		zap.String("base_url", baseURL),
		zap.String("model", model),
		zap.Duration("timeout", timeout))

	return &ollamaTextClient{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.Named("OllamaText"),
	}, nil
}

func (c *ollamaTextClient) GenerateText(ctx context.Context, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	// Ollama локальный, стоимость всегда 0
	usageInfo := UsageInfo{EstimatedCostUSD: 0}

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.WithLabelValues("ollama", "text", "error").Inc()
		return "", usageInfo, fmt.Errorf("%w: системный промпт пуст", ErrAIGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"num_predict": intVal(params.MaxTokens),
		},
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending request to Ollama",
		zap.String("model", c.model),
		zap.Int("system_prompt_bytes", len(systemPrompt)),
		zap.Int("user_input_bytes", len(userInput)))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		// Сохраняем последний (полный) ответ
		resp = r
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Ollama API request failed",
			zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.WithLabelValues("ollama", "text", "error").Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		c.logger.Error("Ollama API returned empty response", zap.Duration("duration", duration))
		aiRequestsTotal.WithLabelValues("ollama", "text", "error_empty_response").Inc()
		return "", usageInfo, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues("ollama", "text", "success").Inc()
	aiRequestDuration.WithLabelValues("ollama", "text").Observe(duration.Seconds())

	generatedText := resp.Message.Content

	usageInfo.PromptTokens = resp.PromptEvalCount
	usageInfo.CompletionTokens = resp.EvalCount
	usageInfo.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	if usageInfo.TotalTokens == 0 {
		// Старые версии Ollama не возвращают счетчики, оцениваем сами
		usageInfo = c.estimateUsage(systemPrompt, userInput, generatedText)
	}
	observeUsage("ollama", usageInfo)

	return generatedText, usageInfo, nil
}

// estimateUsage приблизительно считает токены через tiktoken.
func (c *ollamaTextClient) estimateUsage(systemPrompt, userInput, response string) UsageInfo {
	tke, err := tiktoken.GetEncoding(fallbackTokenEncoding)
	if err != nil {
		c.logger.Warn("Failed to get tokenizer for usage estimation", zap.Error(err))
		return UsageInfo{}
	}
	prompt := len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userInput, nil, nil))
	completion := len(tke.Encode(response, nil, nil))
	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
