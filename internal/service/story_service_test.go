package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-server/internal/ai"
	aimocks "story-server/internal/ai/mocks"
	"story-server/internal/assets"
	"story-server/internal/audio"
	"story-server/internal/messaging"
	"story-server/internal/models"
	repomocks "story-server/internal/repository/mocks"
)

type storyServiceFixture struct {
	svc          *StoryService
	storyRepo    *repomocks.StoryRepository
	revisionRepo *repomocks.StoryRevisionRepository
	settingsRepo *repomocks.UserStorySettingsRepository
	text         *aimocks.TextGenerator
	vision       *aimocks.ImageAnalyzer
	speech       *aimocks.SpeechSynthesizer
	guard        *repomocks.GenerationGuard
}

func newStoryServiceFixture(t *testing.T) *storyServiceFixture {
	t.Helper()
	logger := zap.NewNop()

	f := &storyServiceFixture{
		storyRepo:    new(repomocks.StoryRepository),
		revisionRepo: new(repomocks.StoryRevisionRepository),
		settingsRepo: new(repomocks.UserStorySettingsRepository),
		text:         new(aimocks.TextGenerator),
		vision:       new(aimocks.ImageAnalyzer),
		speech:       new(aimocks.SpeechSynthesizer),
		guard:        new(repomocks.GenerationGuard),
	}

	store := assets.NewStore(t.TempDir(), "/media", logger)
	// ffmpeg недоступен в тестах, кодировщик уходит в WAV-фолбэк.
	encoder := audio.NewEncoder(audio.NewFFmpegTranscoder("/nonexistent/ffmpeg", logger), logger)
	audioSvc := NewAudioService(f.speech, encoder, store, f.storyRepo, logger)

	sceneRepo := new(repomocks.StorySceneRepository)
	images := new(aimocks.ImageGenerator)
	sceneSvc := NewSceneService(images, store, sceneRepo, logger)

	f.svc = NewStoryService(
		f.storyRepo, f.revisionRepo, f.settingsRepo,
		f.text, f.vision, audioSvc, sceneSvc,
		store, f.guard, messaging.NewNoopEventPublisher(), logger,
	)
	return f
}

func strPtr(s string) *string { return &s }

func TestGenerate_TextSurvivesAudioFailure(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Prompt:   "a brave little fox",
		Template: models.TemplateAdventure,
	}

	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("Once upon a time, a fox set out.", ai.UsageInfo{}, nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, mock.Anything, mock.Anything).Return(nil)
	f.speech.On("Synthesize", mock.Anything, mock.Anything, models.DefaultVoiceID).
		Return(nil, errors.New("tts provider down"))

	ok := f.svc.Generate(context.Background(), story, GenerateOptions{})

	assert.True(t, ok, "текст сгенерирован, провал озвучки не считается общим провалом")
	assert.Equal(t, "Once upon a time, a fox set out.", story.Text())
	assert.Nil(t, story.AudioPath)
	f.storyRepo.AssertNotCalled(t, "UpdateAudioPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_PassesTemperatureAndTokenLimit(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Prompt:   "a sleepy bear",
		Template: models.TemplateAdventure,
	}

	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(p ai.GenerationParams) bool {
		return p.Temperature != nil && *p.Temperature == storyTemperature &&
			p.MaxTokens != nil && *p.MaxTokens == storyMaxTokens
	})).Return("The bear slept all winter.", ai.UsageInfo{}, nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, mock.Anything, mock.Anything).Return(nil)
	f.speech.On("Synthesize", mock.Anything, mock.Anything, models.DefaultVoiceID).
		Return(nil, errors.New("tts provider down"))

	ok := f.svc.Generate(context.Background(), story, GenerateOptions{})

	assert.True(t, ok)
	f.text.AssertExpectations(t)
}

func TestGenerate_TotalFailureStoresErrorText(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Prompt:   "a story",
		Template: models.TemplateFantasy,
	}

	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", ai.UsageInfo{}, errors.New("quota exceeded"))
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, mock.Anything, (*string)(nil)).Return(nil)

	ok := f.svc.Generate(context.Background(), story, GenerateOptions{})

	assert.False(t, ok)
	assert.Contains(t, story.Text(), "Error generating story")
	assert.Contains(t, story.Text(), "Please try again or contact support.")
}

func TestGenerate_EducationalTemplateInSystemPrompt(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Prompt:   "a robot who learns to paint",
		Template: models.TemplateEducational,
	}

	var capturedSystemPrompt string
	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedSystemPrompt = args.String(1)
		}).
		Return("The robot painted its first sunrise.", ai.UsageInfo{}, nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, mock.Anything, mock.Anything).Return(nil)
	f.speech.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("skip audio"))

	ok := f.svc.Generate(context.Background(), story, GenerateOptions{})

	require.True(t, ok)
	assert.NotEmpty(t, story.Text())
	require.NotNil(t, story.SystemPromptUsed)
	assert.Contains(t, *story.SystemPromptUsed, "educational story that teaches while entertaining")
	assert.Contains(t, capturedSystemPrompt, "Ace Storyteller")
}

func TestGenerate_UnknownTemplateFallsBackToAdventure(t *testing.T) {
	prompt := BuildSystemPrompt(models.StoryTemplate("pirate"), nil)
	assert.Contains(t, prompt, "exciting adventure story")
}

func TestGenerate_SettingsPresetsAppended(t *testing.T) {
	settings := models.DefaultStorySettings(uuid.New())
	settings.AgeRange = models.AgeRange9to12
	settings.GenrePreference = "mystery"

	prompt := BuildSystemPrompt(models.TemplateMystery, settings)

	assert.Contains(t, prompt, "Presets:")
	assert.Contains(t, prompt, "600-700 words")
	assert.Contains(t, prompt, "Mystery elements (clues, puzzles, detective work)")
	assert.True(t, strings.HasPrefix(prompt, "You are Ace Storyteller"))
}

func TestUpdateText_SnapshotsRevision(t *testing.T) {
	f := newStoryServiceFixture(t)
	actorID := uuid.New()
	story := &models.Story{
		ID:        uuid.New(),
		UserID:    actorID,
		StoryText: strPtr("A"),
	}

	var captured *models.StoryRevision
	f.revisionRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.StoryRevision)
		}).
		Return(nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, "B", (*string)(nil)).Return(nil)

	err := f.svc.UpdateText(context.Background(), story, actorID, "B")

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "A", captured.StoryText)
	assert.Equal(t, actorID, captured.EditedBy)
	assert.Equal(t, "B", story.Text())
	f.revisionRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestUpdateText_NoRevisionForEmptyPrevious(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: uuid.New(), UserID: uuid.New()}

	f.storyRepo.On("UpdateText", mock.Anything, story.ID, "B", (*string)(nil)).Return(nil)

	err := f.svc.UpdateText(context.Background(), story, story.UserID, "B")

	require.NoError(t, err)
	f.revisionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateText_NoRevisionForIdenticalText(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), StoryText: strPtr("same")}

	f.storyRepo.On("UpdateText", mock.Anything, story.ID, "same", (*string)(nil)).Return(nil)

	err := f.svc.UpdateText(context.Background(), story, story.UserID, "same")

	require.NoError(t, err)
	f.revisionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGenerate_GuardBlocksConcurrentRun(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), Prompt: "p"}

	f.guard.On("Acquire", mock.Anything, story.ID).Return(nil, models.ErrGenerationInProgress)

	ok := f.svc.Generate(context.Background(), story, GenerateOptions{})

	assert.False(t, ok)
	f.text.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegenerate_ModificationAppendedToPrompt(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Prompt:    "a dragon story",
		Template:  models.TemplateFantasy,
		StoryText: strPtr("old text"),
	}

	var capturedUserMessage string
	f.storyRepo.On("UpdatePrompt", mock.Anything, story.ID, mock.Anything).Return(nil)
	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedUserMessage = args.String(2)
		}).
		Return("new text", ai.UsageInfo{}, nil)
	f.revisionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, "new text", mock.Anything).Return(nil)
	f.speech.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("skip audio"))

	ok, err := f.svc.Regenerate(context.Background(), story, story.UserID, RegenerateInput{
		Modifications: "make the dragon friendly",
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, story.Prompt, "a dragon story")
	assert.Contains(t, story.Prompt, "Modifications requested: make the dragon friendly")
	assert.Contains(t, capturedUserMessage, "make the dragon friendly")
	f.revisionRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestRegenerate_ReusesCachedImageDescription(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Prompt:           "a castle",
		Template:         models.TemplateAdventure,
		ImagePath:        strPtr("2026/08/x/upload.png"),
		ImageDescription: strPtr("a drawn castle on a hill"),
	}

	var capturedUserMessage string
	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.settingsRepo.On("GetByUser", mock.Anything, story.UserID).Return(nil, models.ErrNotFound)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedUserMessage = args.String(2)
		}).
		Return("story text", ai.UsageInfo{}, nil)
	f.storyRepo.On("UpdateText", mock.Anything, story.ID, mock.Anything, mock.Anything).Return(nil)
	f.speech.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("skip audio"))

	ok, err := f.svc.Regenerate(context.Background(), story, story.UserID, RegenerateInput{})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, capturedUserMessage, "a drawn castle on a hill")
	f.vision.AssertNotCalled(t, "DescribeImage", mock.Anything, mock.Anything)
}

func TestGenerateAudio_RejectsUnknownVoice(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), StoryText: strPtr("text")}

	err := f.svc.GenerateAudio(context.Background(), story, strPtr("definitely-not-a-voice"))

	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGenerateAudio_ProducesAssetAndSweepsOld(t *testing.T) {
	f := newStoryServiceFixture(t)
	story := &models.Story{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		StoryText: strPtr("Once upon a time."),
	}

	pcm := make([]byte, 4800) // 0.1s тишины, 24кГц 16-бит моно
	f.guard.On("Acquire", mock.Anything, story.ID).Return(func() {}, nil)
	f.speech.On("Synthesize", mock.Anything, "Once upon a time.", models.DefaultVoiceID).Return(pcm, nil)
	f.speech.On("SampleRate").Return(24000)
	f.storyRepo.On("UpdateAudioPath", mock.Anything, story.ID, mock.Anything).Return(nil)

	err := f.svc.GenerateAudio(context.Background(), story, nil)

	require.NoError(t, err)
	require.NotNil(t, story.AudioPath)
	assert.True(t, strings.HasSuffix(*story.AudioPath, ".wav"), "без ffmpeg кодировщик падает в WAV")
	assert.Contains(t, *story.AudioPath, story.ID.String())
}
