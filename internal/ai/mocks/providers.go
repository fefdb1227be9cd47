package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"story-server/internal/ai"
)

// Mock TextGenerator
type TextGenerator struct {
	mock.Mock
}

func (m *TextGenerator) GenerateText(ctx context.Context, systemPrompt, userInput string, params ai.GenerationParams) (string, ai.UsageInfo, error) {
	args := m.Called(ctx, systemPrompt, userInput, params)
	usage, _ := args.Get(1).(ai.UsageInfo)
	return args.String(0), usage, args.Error(2)
}

// Mock ImageAnalyzer
type ImageAnalyzer struct {
	mock.Mock
}

func (m *ImageAnalyzer) DescribeImage(ctx context.Context, imageData []byte) (string, error) {
	args := m.Called(ctx, imageData)
	return args.String(0), args.Error(1)
}

// Mock ImageGenerator
type ImageGenerator struct {
	mock.Mock
}

func (m *ImageGenerator) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	args := m.Called(ctx, prompt, width, height)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// Mock SpeechSynthesizer
type SpeechSynthesizer struct {
	mock.Mock
}

func (m *SpeechSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	args := m.Called(ctx, text, voiceID)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *SpeechSynthesizer) SampleRate() int {
	args := m.Called()
	return args.Int(0)
}
