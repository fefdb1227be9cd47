package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ttsSampleRate - частота дискретизации сырого PCM из OpenAI TTS.
// 16 бит, моно.
const ttsSampleRate = 24000

// openAISpeechClient реализует SpeechSynthesizer через OpenAI TTS.
type openAISpeechClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

var _ SpeechSynthesizer = (*openAISpeechClient)(nil)

// NewOpenAISpeechClient создает клиент синтеза речи.
func NewOpenAISpeechClient(client *openaigo.Client, model string, logger *zap.Logger) SpeechSynthesizer {
	return &openAISpeechClient{
		client: client,
		model:  model,
		logger: logger.Named("OpenAISpeech"),
	}
}

func (c *openAISpeechClient) SampleRate() int {
	return ttsSampleRate
}

func (c *openAISpeechClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: пустой текст", ErrSpeechSynthesisFailed)
	}

	startTime := time.Now()
	resp, err := c.client.CreateSpeech(ctx, openaigo.CreateSpeechRequest{
		Model:          openaigo.SpeechModel(c.model),
		Input:          text,
		Voice:          openaigo.SpeechVoice(voiceID),
		ResponseFormat: openaigo.SpeechResponseFormatPcm,
	})
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Speech synthesis request failed",
			zap.Duration("duration", duration),
			zap.String("voice", voiceID),
			zap.Error(err))
		aiRequestsTotal.WithLabelValues("openai", "tts", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSpeechSynthesisFailed, err)
	}
	defer resp.Close()

	pcmData, err := io.ReadAll(resp)
	if err != nil {
		aiRequestsTotal.WithLabelValues("openai", "tts", "error_read").Inc()
		return nil, fmt.Errorf("%w: ошибка чтения аудио-потока: %v", ErrSpeechSynthesisFailed, err)
	}
	if len(pcmData) == 0 {
		aiRequestsTotal.WithLabelValues("openai", "tts", "error_empty_response").Inc()
		return nil, fmt.Errorf("%w: получен пустой аудио-поток", ErrSpeechSynthesisFailed)
	}

	aiRequestsTotal.WithLabelValues("openai", "tts", "success").Inc()
	aiRequestDuration.WithLabelValues("openai", "tts").Observe(duration.Seconds())

	c.logger.Debug("Speech synthesized",
		zap.Duration("duration", duration),
		zap.String("voice", voiceID),
		zap.Int("pcm_bytes", len(pcmData)))

	return pcmData, nil
}
