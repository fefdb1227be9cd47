package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/models"
	"story-server/internal/repository"
)

// PlaylistService управляет плейлистами историй.
type PlaylistService struct {
	playlistRepo repository.PlaylistRepository
	storyRepo    repository.StoryRepository
	logger       *zap.Logger
}

// NewPlaylistService создает сервис плейлистов.
func NewPlaylistService(
	playlistRepo repository.PlaylistRepository,
	storyRepo repository.StoryRepository,
	logger *zap.Logger,
) *PlaylistService {
	return &PlaylistService{
		playlistRepo: playlistRepo,
		storyRepo:    storyRepo,
		logger:       logger.Named("PlaylistService"),
	}
}

// Create создает плейлист пользователя.
func (s *PlaylistService) Create(ctx context.Context, userID uuid.UUID, name, description string, isPublic bool) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: имя плейлиста обязательно", models.ErrInvalidInput)
	}

	playlist := &models.Playlist{
		UserID:      userID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
	}
	if err := s.playlistRepo.Create(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Get возвращает плейлист, доступный пользователю: собственный или публичный.
func (s *PlaylistService) Get(ctx context.Context, userID, playlistID uuid.UUID) (*models.Playlist, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist.UserID != userID && !playlist.IsPublic {
		return nil, models.ErrForbidden
	}
	return playlist, nil
}

// ListForUser возвращает плейлисты пользователя.
func (s *PlaylistService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Playlist, error) {
	return s.playlistRepo.ListByUser(ctx, userID)
}

// ListPublic возвращает страницу публичных плейлистов.
func (s *PlaylistService) ListPublic(ctx context.Context, limit, offset int) ([]*models.Playlist, error) {
	return s.playlistRepo.ListPublic(ctx, limit, offset)
}

// Update изменяет имя, описание и видимость собственного плейлиста.
func (s *PlaylistService) Update(ctx context.Context, userID uuid.UUID, playlist *models.Playlist) error {
	existing, err := s.playlistRepo.GetByID(ctx, playlist.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return models.ErrForbidden
	}
	if strings.TrimSpace(playlist.Name) == "" {
		return fmt.Errorf("%w: имя плейлиста обязательно", models.ErrInvalidInput)
	}

	playlist.UserID = existing.UserID
	playlist.CreatedAt = existing.CreatedAt
	playlist.StoryCount = existing.StoryCount
	return s.playlistRepo.Update(ctx, playlist)
}

// Delete удаляет собственный плейлист пользователя.
func (s *PlaylistService) Delete(ctx context.Context, userID, playlistID uuid.UUID) error {
	existing, err := s.playlistRepo.GetByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return models.ErrForbidden
	}
	return s.playlistRepo.Delete(ctx, playlistID)
}

// AddStory добавляет историю в собственный плейлист. В чужой плейлист
// добавлять нельзя; добавить можно свою или опубликованную историю.
func (s *PlaylistService) AddStory(ctx context.Context, userID, playlistID, storyID uuid.UUID) error {
	playlist, err := s.playlistRepo.GetByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if playlist.UserID != userID {
		return models.ErrForbidden
	}

	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if story.UserID != userID && !story.IsPublished {
		return models.ErrForbidden
	}

	return s.playlistRepo.AddStory(ctx, playlistID, storyID)
}

// RemoveStory убирает историю из собственного плейлиста.
func (s *PlaylistService) RemoveStory(ctx context.Context, userID, playlistID, storyID uuid.UUID) error {
	playlist, err := s.playlistRepo.GetByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if playlist.UserID != userID {
		return models.ErrForbidden
	}
	return s.playlistRepo.RemoveStory(ctx, playlistID, storyID)
}

// ListStories возвращает истории плейлиста в порядке добавления.
func (s *PlaylistService) ListStories(ctx context.Context, userID, playlistID uuid.UUID) ([]*models.Story, error) {
	playlist, err := s.playlistRepo.GetByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist.UserID != userID && !playlist.IsPublic {
		return nil, models.ErrForbidden
	}
	return s.playlistRepo.ListStories(ctx, playlistID)
}
