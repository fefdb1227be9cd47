package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	aimocks "story-server/internal/ai/mocks"
	"story-server/internal/assets"
	"story-server/internal/models"
	repomocks "story-server/internal/repository/mocks"
)

const threePartStory = "### Part 1\nThe fox woke up.\n### Part 2\nThe fox found a map.\n### Part 3\nThe fox came home."

func newSceneServiceFixture(t *testing.T) (*SceneService, *aimocks.ImageGenerator, *repomocks.StorySceneRepository) {
	t.Helper()
	logger := zap.NewNop()
	images := new(aimocks.ImageGenerator)
	sceneRepo := new(repomocks.StorySceneRepository)
	store := assets.NewStore(t.TempDir(), "/media", logger)
	return NewSceneService(images, store, sceneRepo, logger), images, sceneRepo
}

func TestGenerateScenes_AllSucceed(t *testing.T) {
	svc, images, sceneRepo := newSceneServiceFixture(t)
	story := &models.Story{ID: uuid.New(), StoryText: strPtr(threePartStory)}

	sceneRepo.On("DeleteByStory", mock.Anything, story.ID).Return(int64(0), nil)
	images.On("GenerateImage", mock.Anything, mock.Anything, sceneImageWidth, sceneImageHeight).
		Return([]byte("png-bytes"), nil)
	sceneRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	scenes, err := svc.GenerateScenes(context.Background(), story)

	require.NoError(t, err)
	require.Len(t, scenes, 3)
	for i, scene := range scenes {
		assert.Equal(t, i+1, scene.SceneNumber)
		require.NotNil(t, scene.ImagePrompt)
		assert.Contains(t, *scene.ImagePrompt, "child-friendly portrait illustration")
		require.NotNil(t, scene.ImagePath)
		assert.Contains(t, *scene.ImagePath, "scenes/")
	}
}

func TestGenerateScenes_PartialFailureReturnsSuccessfulSubset(t *testing.T) {
	svc, images, sceneRepo := newSceneServiceFixture(t)
	story := &models.Story{ID: uuid.New(), StoryText: strPtr(threePartStory)}

	sceneRepo.On("DeleteByStory", mock.Anything, story.ID).Return(int64(3), nil)
	// Вторая сцена падает, остальные проходят.
	images.On("GenerateImage", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "found a map")
	}), sceneImageWidth, sceneImageHeight).Return(nil, errors.New("provider error"))
	images.On("GenerateImage", mock.Anything, mock.Anything, sceneImageWidth, sceneImageHeight).
		Return([]byte("png-bytes"), nil)
	sceneRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	scenes, err := svc.GenerateScenes(context.Background(), story)

	require.NoError(t, err, "частичный провал считается успехом")
	require.Len(t, scenes, 2)
	assert.Equal(t, 1, scenes[0].SceneNumber)
	assert.Equal(t, 3, scenes[1].SceneNumber)
}

func TestGenerateScenes_AllFail(t *testing.T) {
	svc, images, sceneRepo := newSceneServiceFixture(t)
	story := &models.Story{ID: uuid.New(), StoryText: strPtr(threePartStory)}

	sceneRepo.On("DeleteByStory", mock.Anything, story.ID).Return(int64(0), nil)
	images.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("provider error"))

	scenes, err := svc.GenerateScenes(context.Background(), story)

	assert.Error(t, err)
	assert.Empty(t, scenes)
}

func TestGenerateScenes_EmptyTextFailsFast(t *testing.T) {
	svc, images, _ := newSceneServiceFixture(t)
	story := &models.Story{ID: uuid.New(), StoryText: strPtr("   ")}

	_, err := svc.GenerateScenes(context.Background(), story)

	assert.ErrorIs(t, err, models.ErrStoryTextMissing)
	images.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitializeScenes_UpsertsWithoutDeleting(t *testing.T) {
	svc, _, sceneRepo := newSceneServiceFixture(t)
	story := &models.Story{ID: uuid.New(), StoryText: strPtr(threePartStory)}

	sceneRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	scenes, err := svc.InitializeScenes(context.Background(), story)

	require.NoError(t, err)
	assert.Len(t, scenes, 3)
	sceneRepo.AssertNotCalled(t, "DeleteByStory", mock.Anything, mock.Anything)
}

func TestBuildImagePrompt_TruncatesLongSceneText(t *testing.T) {
	long := strings.Repeat("a very long scene sentence. ", 50)

	prompt := buildImagePrompt(long)

	assert.Less(t, len(prompt), len(long))
	assert.True(t, strings.HasPrefix(prompt, "A beautiful, colorful, child-friendly"))
	assert.True(t, strings.HasSuffix(prompt, "detailed characters and setting."))
}

func TestBuildImagePrompt_KeepsMultibyteRunesIntact(t *testing.T) {
	// Кириллический текст длиннее лимита: каждый символ занимает два
	// байта, срез по байтам порвал бы руну на границе.
	long := strings.Repeat("Лиса шла домой через тёмный лес и пела. ", 30)

	prompt := buildImagePrompt(long)

	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, "Лиса шла домой")
}
