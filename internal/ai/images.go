package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIImageClient реализует ImageGenerator через OpenAI Images API.
type openAIImageClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

var _ ImageGenerator = (*openAIImageClient)(nil)

// NewOpenAIImageClient создает основной клиент генерации изображений.
func NewOpenAIImageClient(client *openaigo.Client, model string, logger *zap.Logger) ImageGenerator {
	return &openAIImageClient{
		client: client,
		model:  model,
		logger: logger.Named("OpenAIImage"),
	}
}

func (c *openAIImageClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: пустой промпт", ErrImageGenerationFailed)
	}

	startTime := time.Now()
	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           nearestImageSize(width, height),
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Image generation request failed",
			zap.Duration("duration", duration), zap.Error(err))
		aiRequestsTotal.WithLabelValues("openai", "image", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		aiRequestsTotal.WithLabelValues("openai", "image", "error_empty_response").Inc()
		return nil, fmt.Errorf("%w: получен пустой ответ", ErrImageGenerationFailed)
	}

	imageData, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		aiRequestsTotal.WithLabelValues("openai", "image", "error_decode").Inc()
		return nil, fmt.Errorf("%w: ошибка декодирования base64: %v", ErrImageGenerationFailed, err)
	}

	aiRequestsTotal.WithLabelValues("openai", "image", "success").Inc()
	aiRequestDuration.WithLabelValues("openai", "image").Observe(duration.Seconds())

	c.logger.Debug("Image generated",
		zap.Duration("duration", duration),
		zap.Int("size_bytes", len(imageData)))

	return imageData, nil
}

// nearestImageSize подбирает ближайший поддерживаемый размер OpenAI
// к запрошенной ориентации.
func nearestImageSize(width, height int) string {
	switch {
	case height > width:
		return "1024x1792"
	case width > height:
		return "1792x1024"
	default:
		return openaigo.CreateImageSize1024x1024
	}
}

// sanaAPIRequest - тело запроса к локальному серверу генерации изображений.
type sanaAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

// sanaImageClient реализует ImageGenerator через self-hosted SANA сервер.
// Используется как резервный провайдер.
type sanaImageClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ ImageGenerator = (*sanaImageClient)(nil)

// NewSanaImageClient создает клиент резервного сервера генерации изображений.
func NewSanaImageClient(baseURL string, timeout time.Duration, logger *zap.Logger) ImageGenerator {
	return &sanaImageClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("SanaImage"),
	}
}

func (c *sanaImageClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: пустой промпт", ErrImageGenerationFailed)
	}

	reqPayload := sanaAPIRequest{
		Prompt: prompt,
		Ratio:  imageRatio(width, height),
	}
	reqBodyBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := c.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	startTime := time.Now()
	c.logger.Debug("Sending request to SANA API", zap.String("url", endpointURL))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		aiRequestsTotal.WithLabelValues("sana", "image", "error").Inc()
		return nil, fmt.Errorf("%w: http request failed: %v", ErrImageGenerationFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("SANA API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes))
		aiRequestsTotal.WithLabelValues("sana", "image", "error").Inc()
		return nil, fmt.Errorf("%w: API returned status %d: %s", ErrImageGenerationFailed, resp.StatusCode, string(bodyBytes))
	}
	if readErr != nil {
		aiRequestsTotal.WithLabelValues("sana", "image", "error").Inc()
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrImageGenerationFailed, readErr)
	}
	if len(bodyBytes) == 0 {
		aiRequestsTotal.WithLabelValues("sana", "image", "error_empty_response").Inc()
		return nil, fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}

	aiRequestsTotal.WithLabelValues("sana", "image", "success").Inc()
	aiRequestDuration.WithLabelValues("sana", "image").Observe(time.Since(startTime).Seconds())

	c.logger.Debug("Image data received from SANA", zap.Int("size_bytes", len(bodyBytes)))
	return bodyBytes, nil
}

func imageRatio(width, height int) string {
	switch {
	case height > width:
		return "9:16"
	case width > height:
		return "16:9"
	default:
		return "1:1"
	}
}

// fallbackImageGenerator пробует провайдеров по порядку и агрегирует
// их ошибки, если не справился ни один.
type fallbackImageGenerator struct {
	providers []namedImageGenerator
	logger    *zap.Logger
}

type namedImageGenerator struct {
	name string
	gen  ImageGenerator
}

var _ ImageGenerator = (*fallbackImageGenerator)(nil)

// NewFallbackImageGenerator объединяет основной и резервные провайдеры.
func NewFallbackImageGenerator(logger *zap.Logger, primary ImageGenerator, primaryName string) *fallbackImageGenerator {
	return &fallbackImageGenerator{
		providers: []namedImageGenerator{{name: primaryName, gen: primary}},
		logger:    logger.Named("ImageFallback"),
	}
}

// AddFallback регистрирует резервный провайдер.
func (f *fallbackImageGenerator) AddFallback(name string, gen ImageGenerator) {
	f.providers = append(f.providers, namedImageGenerator{name: name, gen: gen})
}

func (f *fallbackImageGenerator) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	var errs []string
	for _, p := range f.providers {
		imageData, err := p.gen.GenerateImage(ctx, prompt, width, height)
		if err == nil {
			return imageData, nil
		}
		f.logger.Warn("Image provider failed, trying next",
			zap.String("provider", p.name), zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", p.name, err))
	}
	return nil, fmt.Errorf("%w:\n- %s", ErrImageGenerationFailed, strings.Join(errs, "\n- "))
}
