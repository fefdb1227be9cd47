package ai

import (
	"fmt"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"story-server/internal/config"
)

// Providers - набор генеративных сервисов, который получают пайплайны.
// Всегда передается как сконструированная зависимость, не синглтон.
type Providers struct {
	Text   TextGenerator
	Vision ImageAnalyzer
	Images ImageGenerator
	Speech SpeechSynthesizer
}

const defaultAITimeout = 2 * time.Minute

// NewProviders собирает провайдеров по конфигурации.
// Текст: Ollama при заданном OLLAMA_HOST, иначе OpenAI.
// Изображения: OpenAI как основной, SANA как резервный при наличии.
func NewProviders(cfg config.AIConfig, logger *zap.Logger) (*Providers, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}

	clientConfig := openaigo.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	client := openaigo.NewClientWithConfig(clientConfig)

	var text TextGenerator
	if cfg.OllamaHost != "" {
		ollamaText, err := NewOllamaTextClient(cfg.OllamaHost, cfg.OllamaModel, defaultAITimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания Ollama клиента: %w", err)
		}
		text = ollamaText
		logger.Info("Using Ollama as text provider", zap.String("model", cfg.OllamaModel))
	} else {
		text = NewOpenAITextClient(client, cfg.TextModel, logger)
		logger.Info("Using OpenAI as text provider", zap.String("model", cfg.TextModel))
	}

	images := NewFallbackImageGenerator(logger,
		NewOpenAIImageClient(client, cfg.ImageModel, logger), "openai")
	if cfg.SanaBaseURL != "" {
		images.AddFallback("sana",
			NewSanaImageClient(cfg.SanaBaseURL, time.Duration(cfg.SanaTimeoutSec)*time.Second, logger))
		logger.Info("SANA fallback image provider registered", zap.String("base_url", cfg.SanaBaseURL))
	}

	return &Providers{
		Text:   text,
		Vision: NewOpenAIVisionClient(client, cfg.VisionModel, logger),
		Images: images,
		Speech: NewOpenAISpeechClient(client, cfg.TTSModel, logger),
	}, nil
}
