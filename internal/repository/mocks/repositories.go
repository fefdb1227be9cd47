package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"story-server/internal/models"
	"story-server/internal/repository"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.StoryFilter) ([]*models.Story, int64, error) {
	args := m.Called(ctx, userID, filter)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.Get(1).(int64), args.Error(2)
}
func (m *StoryRepository) UpdateText(ctx context.Context, id uuid.UUID, storyText string, systemPromptUsed *string) error {
	args := m.Called(ctx, id, storyText, systemPromptUsed)
	return args.Error(0)
}
func (m *StoryRepository) UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	args := m.Called(ctx, id, prompt)
	return args.Error(0)
}
func (m *StoryRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}
func (m *StoryRepository) UpdateVoice(ctx context.Context, id uuid.UUID, voiceID *string) error {
	args := m.Called(ctx, id, voiceID)
	return args.Error(0)
}
func (m *StoryRepository) UpdateAudioPath(ctx context.Context, id uuid.UUID, audioPath *string) error {
	args := m.Called(ctx, id, audioPath)
	return args.Error(0)
}
func (m *StoryRepository) UpdateImage(ctx context.Context, id uuid.UUID, imagePath *string) error {
	args := m.Called(ctx, id, imagePath)
	return args.Error(0)
}
func (m *StoryRepository) UpdateImageDescription(ctx context.Context, id uuid.UUID, description string) error {
	args := m.Called(ctx, id, description)
	return args.Error(0)
}
func (m *StoryRepository) SetPublished(ctx context.Context, id uuid.UUID, isPublished bool) error {
	args := m.Called(ctx, id, isPublished)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock StoryRevisionRepository
type StoryRevisionRepository struct {
	mock.Mock
}

func (m *StoryRevisionRepository) Create(ctx context.Context, revision *models.StoryRevision) error {
	args := m.Called(ctx, revision)
	return args.Error(0)
}
func (m *StoryRevisionRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryRevision, error) {
	args := m.Called(ctx, storyID)
	revisions, _ := args.Get(0).([]*models.StoryRevision)
	return revisions, args.Error(1)
}

// Mock StorySceneRepository
type StorySceneRepository struct {
	mock.Mock
}

func (m *StorySceneRepository) Create(ctx context.Context, scene *models.StoryScene) error {
	args := m.Called(ctx, scene)
	return args.Error(0)
}
func (m *StorySceneRepository) Upsert(ctx context.Context, scene *models.StoryScene) error {
	args := m.Called(ctx, scene)
	return args.Error(0)
}
func (m *StorySceneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoryScene, error) {
	args := m.Called(ctx, id)
	scene, _ := args.Get(0).(*models.StoryScene)
	return scene, args.Error(1)
}
func (m *StorySceneRepository) GetByStoryAndNumber(ctx context.Context, storyID uuid.UUID, sceneNumber int) (*models.StoryScene, error) {
	args := m.Called(ctx, storyID, sceneNumber)
	scene, _ := args.Get(0).(*models.StoryScene)
	return scene, args.Error(1)
}
func (m *StorySceneRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryScene, error) {
	args := m.Called(ctx, storyID)
	scenes, _ := args.Get(0).([]*models.StoryScene)
	return scenes, args.Error(1)
}
func (m *StorySceneRepository) UpdateImage(ctx context.Context, id uuid.UUID, imagePath, imagePrompt *string) error {
	args := m.Called(ctx, id, imagePath, imagePrompt)
	return args.Error(0)
}
func (m *StorySceneRepository) DeleteByStory(ctx context.Context, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, storyID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *StorySceneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock StorySessionRepository
type StorySessionRepository struct {
	mock.Mock
}

func (m *StorySessionRepository) Create(ctx context.Context, session *models.StorySession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *StorySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StorySession, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*models.StorySession)
	return session, args.Error(1)
}
func (m *StorySessionRepository) End(ctx context.Context, id uuid.UUID, endedAt time.Time, completed bool) (*models.StorySession, error) {
	args := m.Called(ctx, id, endedAt, completed)
	session, _ := args.Get(0).(*models.StorySession)
	return session, args.Error(1)
}
func (m *StorySessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StorySession, error) {
	args := m.Called(ctx, userID, limit, offset)
	sessions, _ := args.Get(0).([]*models.StorySession)
	return sessions, args.Error(1)
}

// Mock UserStorySettingsRepository
type UserStorySettingsRepository struct {
	mock.Mock
}

func (m *UserStorySettingsRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserStorySettings, error) {
	args := m.Called(ctx, userID)
	settings, _ := args.Get(0).(*models.UserStorySettings)
	return settings, args.Error(1)
}
func (m *UserStorySettingsRepository) Create(ctx context.Context, settings *models.UserStorySettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}
func (m *UserStorySettingsRepository) Update(ctx context.Context, settings *models.UserStorySettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// Mock PlaylistRepository
type PlaylistRepository struct {
	mock.Mock
}

func (m *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	args := m.Called(ctx, playlist)
	return args.Error(0)
}
func (m *PlaylistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	args := m.Called(ctx, id)
	playlist, _ := args.Get(0).(*models.Playlist)
	return playlist, args.Error(1)
}
func (m *PlaylistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Playlist, error) {
	args := m.Called(ctx, userID)
	playlists, _ := args.Get(0).([]*models.Playlist)
	return playlists, args.Error(1)
}
func (m *PlaylistRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Playlist, error) {
	args := m.Called(ctx, limit, offset)
	playlists, _ := args.Get(0).([]*models.Playlist)
	return playlists, args.Error(1)
}
func (m *PlaylistRepository) Update(ctx context.Context, playlist *models.Playlist) error {
	args := m.Called(ctx, playlist)
	return args.Error(0)
}
func (m *PlaylistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *PlaylistRepository) AddStory(ctx context.Context, playlistID, storyID uuid.UUID) error {
	args := m.Called(ctx, playlistID, storyID)
	return args.Error(0)
}
func (m *PlaylistRepository) RemoveStory(ctx context.Context, playlistID, storyID uuid.UUID) error {
	args := m.Called(ctx, playlistID, storyID)
	return args.Error(0)
}
func (m *PlaylistRepository) ListStories(ctx context.Context, playlistID uuid.UUID) ([]*models.Story, error) {
	args := m.Called(ctx, playlistID)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.Error(1)
}

// Mock GenerationGuard
type GenerationGuard struct {
	mock.Mock
}

func (m *GenerationGuard) Acquire(ctx context.Context, storyID uuid.UUID) (func(), error) {
	args := m.Called(ctx, storyID)
	release, _ := args.Get(0).(func())
	if release == nil {
		release = func() {}
	}
	return release, args.Error(1)
}
