package ai

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Константы цен за 1М токенов в USD. Используются только для оценочной
// метрики стоимости, биллинг на них не опирается.
const (
	pricePerMillionInputTokensUSD  = 0.15
	pricePerMillionOutputTokensUSD = 0.6
)

// Ошибки генеративных сервисов.
var (
	ErrAIGenerationFailed    = errors.New("ошибка генерации текста AI")
	ErrImageAnalysisFailed   = errors.New("ошибка анализа изображения")
	ErrImageGenerationFailed = errors.New("ошибка генерации изображения")
	ErrSpeechSynthesisFailed = errors.New("ошибка синтеза речи")
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_server_ai_requests_total",
			Help: "Total number of requests to external AI providers.",
		},
		[]string{"provider", "operation", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_request_duration_seconds",
			Help:    "Histogram of AI provider request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"provider"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_server_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"provider"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_server_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"provider"},
	)
)

// GenerationParams - параметры генерации текста.
// Указатели, чтобы отличить 0/0.0 от отсутствия значения.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo содержит информацию об использовании токенов и стоимости.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
}

// TextGenerator генерирует текст по системному промпту и вводу пользователя.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// ImageAnalyzer строит текстовое описание изображения.
type ImageAnalyzer interface {
	DescribeImage(ctx context.Context, imageData []byte) (string, error)
}

// ImageGenerator генерирует изображение по промпту.
// Провайдер подбирает ближайший поддерживаемый размер к запрошенному.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error)
}

// SpeechSynthesizer синтезирует сырое PCM-аудио из текста.
type SpeechSynthesizer interface {
	// Synthesize возвращает 16-битное моно PCM на частоте SampleRate().
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	SampleRate() int
}

func calculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) * pricePerMillionInputTokensUSD / 1_000_000.0
	outputCost := float64(completionTokens) * pricePerMillionOutputTokensUSD / 1_000_000.0
	return inputCost + outputCost
}

func observeUsage(provider string, usage UsageInfo) {
	if usage.TotalTokens == 0 {
		return
	}
	aiPromptTokens.WithLabelValues(provider).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.WithLabelValues(provider).Observe(float64(usage.CompletionTokens))
	if usage.EstimatedCostUSD > 0 {
		aiEstimatedCostUSD.WithLabelValues(provider).Add(usage.EstimatedCostUSD)
	}
}
