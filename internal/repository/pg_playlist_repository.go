package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
)

var _ PlaylistRepository = (*pgPlaylistRepository)(nil)

type pgPlaylistRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgPlaylistRepository создает репозиторий плейлистов.
func NewPgPlaylistRepository(db DBTX, logger *zap.Logger) PlaylistRepository {
	return &pgPlaylistRepository{
		db:     db,
		logger: logger.Named("PgPlaylistRepo"),
	}
}

const playlistColumns = `p.id, p.user_id, p.name, p.description, p.is_public, p.created_at, p.updated_at,
(SELECT count(*) FROM playlist_stories ps WHERE ps.playlist_id = p.id) AS story_count`

const createPlaylistQuery = `
INSERT INTO playlists (id, user_id, name, description, is_public, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

const getPlaylistByIDQuery = `
SELECT ` + playlistColumns + `
FROM playlists p
WHERE p.id = $1`

const listPlaylistsByUserQuery = `
SELECT ` + playlistColumns + `
FROM playlists p
WHERE p.user_id = $1
ORDER BY p.created_at DESC`

const listPublicPlaylistsQuery = `
SELECT ` + playlistColumns + `
FROM playlists p
WHERE p.is_public = true
ORDER BY p.created_at DESC
LIMIT $1 OFFSET $2`

const updatePlaylistQuery = `
UPDATE playlists
SET name = $2, description = $3, is_public = $4, updated_at = now()
WHERE id = $1`

const addPlaylistStoryQuery = `
INSERT INTO playlist_stories (playlist_id, story_id, added_at)
VALUES ($1, $2, $3)
ON CONFLICT (playlist_id, story_id) DO NOTHING`

const listPlaylistStoriesQuery = `
SELECT s.id, s.user_id, s.title, s.prompt, s.system_prompt_used, s.story_text, s.template,
	s.voice_id, s.audio_path, s.image_path, s.image_description, s.is_published, s.created_at, s.updated_at
FROM stories s
JOIN playlist_stories ps ON ps.story_id = s.id
WHERE ps.playlist_id = $1
ORDER BY ps.added_at ASC`

func (r *pgPlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if playlist.ID == uuid.Nil {
		playlist.ID = uuid.New()
	}
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = time.Now()
	}
	playlist.UpdatedAt = playlist.CreatedAt

	_, err := r.db.Exec(ctx, createPlaylistQuery,
		playlist.ID,
		playlist.UserID,
		playlist.Name,
		playlist.Description,
		playlist.IsPublic,
		playlist.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create playlist", zap.Error(err), zap.String("userID", playlist.UserID.String()))
		return fmt.Errorf("ошибка создания плейлиста: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Playlist, error) {
	var playlist models.Playlist
	err := pgxscan.Get(ctx, r.db, &playlist, getPlaylistByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get playlist", zap.Error(err), zap.String("playlistID", id.String()))
		return nil, fmt.Errorf("ошибка получения плейлиста: %w", err)
	}
	return &playlist, nil
}

func (r *pgPlaylistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Playlist, error) {
	var playlists []*models.Playlist
	err := pgxscan.Select(ctx, r.db, &playlists, listPlaylistsByUserQuery, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list playlists", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("ошибка получения списка плейлистов: %w", err)
	}
	return playlists, nil
}

func (r *pgPlaylistRepository) ListPublic(ctx context.Context, limit, offset int) ([]*models.Playlist, error) {
	if limit <= 0 {
		limit = 20
	}
	var playlists []*models.Playlist
	err := pgxscan.Select(ctx, r.db, &playlists, listPublicPlaylistsQuery, limit, offset)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list public playlists", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения публичных плейлистов: %w", err)
	}
	return playlists, nil
}

func (r *pgPlaylistRepository) Update(ctx context.Context, playlist *models.Playlist) error {
	tag, err := r.db.Exec(ctx, updatePlaylistQuery,
		playlist.ID,
		playlist.Name,
		playlist.Description,
		playlist.IsPublic,
	)
	if err != nil {
		r.logger.Error("Failed to update playlist", zap.Error(err), zap.String("playlistID", playlist.ID.String()))
		return fmt.Errorf("ошибка обновления плейлиста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgPlaylistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete playlist", zap.Error(err), zap.String("playlistID", id.String()))
		return fmt.Errorf("ошибка удаления плейлиста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddStory добавляет историю в плейлист. Повторное добавление — no-op.
func (r *pgPlaylistRepository) AddStory(ctx context.Context, playlistID, storyID uuid.UUID) error {
	_, err := r.db.Exec(ctx, addPlaylistStoryQuery, playlistID, storyID, time.Now())
	if err != nil {
		r.logger.Error("Failed to add story to playlist",
			zap.Error(err),
			zap.String("playlistID", playlistID.String()),
			zap.String("storyID", storyID.String()))
		return fmt.Errorf("ошибка добавления истории в плейлист: %w", err)
	}
	return nil
}

func (r *pgPlaylistRepository) RemoveStory(ctx context.Context, playlistID, storyID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM playlist_stories WHERE playlist_id = $1 AND story_id = $2`, playlistID, storyID)
	if err != nil {
		r.logger.Error("Failed to remove story from playlist",
			zap.Error(err),
			zap.String("playlistID", playlistID.String()),
			zap.String("storyID", storyID.String()))
		return fmt.Errorf("ошибка удаления истории из плейлиста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListStories возвращает истории плейлиста в порядке добавления.
func (r *pgPlaylistRepository) ListStories(ctx context.Context, playlistID uuid.UUID) ([]*models.Story, error) {
	var stories []*models.Story
	err := pgxscan.Select(ctx, r.db, &stories, listPlaylistStoriesQuery, playlistID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list playlist stories", zap.Error(err), zap.String("playlistID", playlistID.String()))
		return nil, fmt.Errorf("ошибка получения историй плейлиста: %w", err)
	}
	return stories, nil
}
