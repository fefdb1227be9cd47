package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// imageAnalysisPrompt - инструкция для описания загруженного изображения.
const imageAnalysisPrompt = "Describe this image in detail for a children's story. Focus on characters, objects, colors, and setting."

const (
	imageAnalysisMaxTokens   = 500
	imageAnalysisTemperature = 0.3
)

// openAIVisionClient реализует ImageAnalyzer через vision-модель OpenAI.
type openAIVisionClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

var _ ImageAnalyzer = (*openAIVisionClient)(nil)

// NewOpenAIVisionClient создает клиент анализа изображений.
func NewOpenAIVisionClient(client *openaigo.Client, model string, logger *zap.Logger) ImageAnalyzer {
	return &openAIVisionClient{
		client: client,
		model:  model,
		logger: logger.Named("OpenAIVision"),
	}
}

func (c *openAIVisionClient) DescribeImage(ctx context.Context, imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("%w: пустое изображение", ErrImageAnalysisFailed)
	}

	mimeType := http.DetectContentType(imageData)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{
				Role: openaigo.ChatMessageRoleUser,
				MultiContent: []openaigo.ChatMessagePart{
					{
						Type: openaigo.ChatMessagePartTypeImageURL,
						ImageURL: &openaigo.ChatMessageImageURL{
							URL: dataURL,
						},
					},
					{
						Type: openaigo.ChatMessagePartTypeText,
						Text: imageAnalysisPrompt,
					},
				},
			},
		},
		MaxTokens:   imageAnalysisMaxTokens,
		Temperature: imageAnalysisTemperature,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Image analysis request failed",
			zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.WithLabelValues("openai", "vision", "error").Inc()
		return "", fmt.Errorf("%w: %v", ErrImageAnalysisFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiRequestsTotal.WithLabelValues("openai", "vision", "error_empty_response").Inc()
		return "", fmt.Errorf("%w: получен пустой ответ", ErrImageAnalysisFailed)
	}

	aiRequestsTotal.WithLabelValues("openai", "vision", "success").Inc()
	aiRequestDuration.WithLabelValues("openai", "vision").Observe(duration.Seconds())

	description := resp.Choices[0].Message.Content
	c.logger.Debug("Image description received",
		zap.Duration("duration", duration),
		zap.Int("description_chars", len(description)))

	return description, nil
}
